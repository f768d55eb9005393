package planner

import (
	"math"

	"weekly-meal-planner/internal/recipe"
)

// Normalize scales the week so that its daily totals sum to calorieTarget*7.
//
// A single factor, target*7 / Σ total_calories, is applied to every present
// nutrient of every meal (floored, clamped at zero) and, independently, to each
// day's total_calories (floored, not clamped). A week totalling zero is
// returned unchanged. The input is never modified.
func Normalize(plan WeeklyPlan, calorieTarget int) WeeklyPlan {
	out := plan.Clone()

	total := out.TotalCalories()
	if total == 0 {
		return out
	}
	factor := float64(calorieTarget) * 7 / total

	for i := range out.Days {
		day := &out.Days[i]
		scaleRecipe(&day.Meals.Breakfast, factor)
		scaleRecipe(&day.Meals.Lunch, factor)
		scaleRecipe(&day.Meals.Dinner, factor)
		day.TotalCalories = math.Floor(day.TotalCalories * factor)
	}
	return out
}

// scaleRecipe rescales r's nutrients in place. r must already be a copy.
func scaleRecipe(r *recipe.Recipe, factor float64) {
	for _, v := range r.Nutrients() {
		if v == nil {
			continue
		}
		*v = math.Max(0, math.Floor(*v*factor))
	}
}
