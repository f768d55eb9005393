package shopping

import (
	"fmt"
	"maps"
	"slices"

	"weekly-meal-planner/internal/planner"
)

// Totals sums ingredient quantities by exact name across every meal of the week.
func Totals(plan planner.WeeklyPlan) map[string]float64 {
	totals := make(map[string]float64)
	for _, day := range plan.Days {
		for _, meal := range day.Meals.All() {
			for name, qty := range meal.Ingredients {
				totals[name] += qty
			}
		}
	}
	return totals
}

// BuildList returns the formatted shopping list for plan. Quantities of 1000
// or more are shown in kilograms, the rest in grams. Count items such as eggs
// are formatted the same way.
func BuildList(plan planner.WeeklyPlan) map[string]string {
	totals := Totals(plan)
	list := make(map[string]string, len(totals))
	for name, total := range totals {
		list[name] = FormatQuantity(total)
	}
	return list
}

// FormatQuantity renders a gram total for display.
func FormatQuantity(total float64) string {
	if total >= 1000 {
		return fmt.Sprintf("%.1f kg", total/1000)
	}
	return fmt.Sprintf("%.0f grams", total)
}

// Lines renders the list as sorted "name: quantity" lines.
func Lines(list map[string]string) []string {
	lines := make([]string, 0, len(list))
	for _, name := range slices.Sorted(maps.Keys(list)) {
		lines = append(lines, name+": "+list[name])
	}
	return lines
}
