package planner

import (
	"weekly-meal-planner/internal/recipe"
)

// Rand is the random source used for selection. *math/rand/v2.Rand
// satisfies it.
type Rand interface {
	IntN(n int) int
}

// UsedSet records the recipe names already chosen for one slot during one
// generation.
type UsedSet map[string]struct{}

// Has reports whether name was already chosen.
func (u UsedSet) Has(name string) bool {
	_, ok := u[name]
	return ok
}

// Add marks name as chosen.
func (u UsedSet) Add(name string) { u[name] = struct{}{} }

// UsedSets holds one UsedSet per slot. Create a fresh value for every
// generation.
type UsedSets map[recipe.MealSlot]UsedSet

// NewUsedSets returns empty used sets for every slot.
func NewUsedSets() UsedSets {
	u := make(UsedSets, len(recipe.Slots))
	for _, slot := range recipe.Slots {
		u[slot] = make(UsedSet)
	}
	return u
}

// For returns the set for slot, creating it when missing.
func (u UsedSets) For(slot recipe.MealSlot) UsedSet {
	s, ok := u[slot]
	if !ok {
		s = make(UsedSet)
		u[slot] = s
	}
	return s
}

// FallbackRecipe is served when a slot has no candidates at all.
func FallbackRecipe(slot recipe.MealSlot, dietType string) recipe.Recipe {
	return recipe.Recipe{
		Name:        "Fallback " + slot.Title(),
		Ingredients: map[string]float64{"basic_food": 100, "vegetables": 50},
		Calories:    recipe.Float(300),
		Protein:     recipe.Float(15),
		Carbs:       recipe.Float(40),
		Fat:         recipe.Float(8),
		PrepTime:    15,
		DietType:    dietType,
	}
}

// Select picks one recipe for slot. Unused recipes are preferred; once every
// recipe in pool has been used a repeat is picked from the whole pool. An
// empty pool yields the fallback recipe and fallback=true. Only non-fallback
// picks are added to used. The returned recipe is a copy.
func Select(rng Rand, slot recipe.MealSlot, dietType string, pool []recipe.Recipe, used UsedSet) (r recipe.Recipe, fallback bool) {
	if len(pool) == 0 {
		return FallbackRecipe(slot, dietType), true
	}

	candidates := make([]recipe.Recipe, 0, len(pool))
	for _, p := range pool {
		if !used.Has(p.Name) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		candidates = pool
	}

	choice := candidates[rng.IntN(len(candidates))]
	used.Add(choice.Name)
	return choice.Clone(), false
}
