package planner

import (
	"math"

	"weekly-meal-planner/internal/recipe"
)

// DefaultCalories is the calorie value counted for a meal that states none.
func DefaultCalories(slot recipe.MealSlot) float64 {
	switch slot {
	case recipe.Breakfast:
		return 300
	case recipe.Lunch:
		return 400
	default:
		return 350
	}
}

// idealProteinRatio is the protein share NutritionScore measures against.
const idealProteinRatio = 0.3

// AssembleDay selects a meal for each slot, in serving order, and scores the
// day. dayIndex and calorieTarget are accepted for future per-day tuning and
// do not affect the result.
func (g *Generator) AssembleDay(pools Pools, used UsedSets, dayIndex, calorieTarget int, recent []string) DailyPlan {
	var day DailyPlan
	for _, slot := range recipe.Slots {
		r, _ := Select(g.rng, slot, pools.DietType, pools.BySlot[slot], used.For(slot))
		day.Meals.set(slot, r)
		day.TotalCalories += r.CaloriesOr(DefaultCalories(slot))
	}
	day.NutritionScore = NutritionScore(day.Meals)
	day.VarietyScore = VarietyScore(day.Meals.Names(), recent)
	return day
}

// NutritionScore returns min(10, |proteinRatio - 0.3| * 100), where the ratio
// is protein over protein+carbs+fat for the day (0.33 when all are zero).
//
// Note the direction: a higher score means the day is further from the 0.3
// ideal, so a perfectly balanced day scores 0.
func NutritionScore(m Meals) float64 {
	var protein, carbs, fat float64
	for _, r := range m.All() {
		protein += r.ProteinOr(0)
		carbs += r.CarbsOr(0)
		fat += r.FatOr(0)
	}

	ratio := 0.33
	if denom := protein + carbs + fat; denom > 0 {
		ratio = protein / denom
	}
	return math.Min(10, math.Abs(ratio-idealProteinRatio)*100)
}

// VarietyScore is the share of distinct current meal names not seen in recent,
// scaled to 10. An empty day scores 5.
func VarietyScore(current, recent []string) float64 {
	if len(current) == 0 {
		return 5.0
	}
	seen := make(map[string]struct{}, len(recent))
	for _, name := range recent {
		seen[name] = struct{}{}
	}
	fresh := make(map[string]struct{}, len(current))
	for _, name := range current {
		if _, ok := seen[name]; !ok {
			fresh[name] = struct{}{}
		}
	}
	return math.Min(10, float64(len(fresh))/float64(len(current))*10)
}
