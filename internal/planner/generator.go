package planner

import (
	"math/rand/v2"

	"weekly-meal-planner/internal/recipe"
)

// Request carries the user constraints for one plan.
type Request struct {
	DietType      string
	CalorieTarget int
	Allergies     []string
	// CuisinePreference is accepted but not yet used for selection.
	CuisinePreference string
}

// Pools are the per-slot candidates left after filtering.
type Pools struct {
	DietType string
	BySlot   map[recipe.MealSlot][]recipe.Recipe
}

// BuildPools filters every slot of the catalog against req.
func BuildPools(c recipe.Catalog, req Request) Pools {
	p := Pools{DietType: req.DietType, BySlot: make(map[recipe.MealSlot][]recipe.Recipe, len(recipe.Slots))}
	for _, slot := range recipe.Slots {
		p.BySlot[slot] = Filter(c[slot], req.DietType, req.Allergies)
	}
	return p
}

// Generator builds weekly plans from a catalog. A Generator owns its random
// source and is not safe for concurrent use; build one per request.
type Generator struct {
	catalog recipe.Catalog
	rng     Rand
}

// NewGenerator returns a Generator over catalog. A nil rng uses a randomly
// seeded PCG source.
func NewGenerator(catalog recipe.Catalog, rng Rand) *Generator {
	if rng == nil {
		rng = NewRand(rand.Uint64())
	}
	return &Generator{catalog: catalog, rng: rng}
}

// NewRand returns a deterministic source for seed.
func NewRand(seed uint64) Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Draft selects seven days of meals without calorie normalization. recent
// holds meal names from earlier plans and only affects the variety score.
func (g *Generator) Draft(req Request, recent []string) WeeklyPlan {
	pools := BuildPools(g.catalog, req)
	used := NewUsedSets()

	var plan WeeklyPlan
	for i := range plan.Days {
		plan.Days[i] = g.AssembleDay(pools, used, i, req.CalorieTarget, recent)
	}
	return plan
}

// GeneratePlan drafts a week and normalizes it to req.CalorieTarget.
func (g *Generator) GeneratePlan(req Request, recent []string) WeeklyPlan {
	return Normalize(g.Draft(req, recent), req.CalorieTarget)
}
