package planner

import (
	"bytes"
	"encoding/json"
	"fmt"

	"weekly-meal-planner/internal/recipe"
)

// Weekdays lists the plan days in calendar order.
var Weekdays = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Meals holds the recipe chosen for each slot of a day.
type Meals struct {
	Breakfast recipe.Recipe `json:"breakfast"`
	Lunch     recipe.Recipe `json:"lunch"`
	Dinner    recipe.Recipe `json:"dinner"`
}

// Get returns the recipe for slot.
func (m Meals) Get(slot recipe.MealSlot) recipe.Recipe {
	switch slot {
	case recipe.Breakfast:
		return m.Breakfast
	case recipe.Lunch:
		return m.Lunch
	default:
		return m.Dinner
	}
}

func (m *Meals) set(slot recipe.MealSlot, r recipe.Recipe) {
	switch slot {
	case recipe.Breakfast:
		m.Breakfast = r
	case recipe.Lunch:
		m.Lunch = r
	default:
		m.Dinner = r
	}
}

// All returns the meals in serving order.
func (m Meals) All() []recipe.Recipe {
	return []recipe.Recipe{m.Breakfast, m.Lunch, m.Dinner}
}

// Names returns the meal names in serving order.
func (m Meals) Names() []string {
	return []string{m.Breakfast.Name, m.Lunch.Name, m.Dinner.Name}
}

func (m Meals) clone() Meals {
	return Meals{Breakfast: m.Breakfast.Clone(), Lunch: m.Lunch.Clone(), Dinner: m.Dinner.Clone()}
}

// DailyPlan is one day of the plan.
type DailyPlan struct {
	Meals          Meals   `json:"meals"`
	TotalCalories  float64 `json:"total_calories"`
	NutritionScore float64 `json:"nutrition_score"`
	VarietyScore   float64 `json:"variety_score"`
}

// RecipeCalories sums the meals' own calorie values, using slot defaults for
// absent ones. After normalization this can differ from TotalCalories by
// rounding.
func (d DailyPlan) RecipeCalories() float64 {
	var sum float64
	for _, slot := range recipe.Slots {
		sum += d.Meals.Get(slot).CaloriesOr(DefaultCalories(slot))
	}
	return sum
}

// WeeklyPlan is seven days of meals, Monday first.
type WeeklyPlan struct {
	Days [7]DailyPlan
}

// TotalCalories sums the canonical daily totals.
func (w WeeklyPlan) TotalCalories() float64 {
	var sum float64
	for _, d := range w.Days {
		sum += d.TotalCalories
	}
	return sum
}

// RecipeCalories sums the per-recipe calories across the week.
func (w WeeklyPlan) RecipeCalories() float64 {
	var sum float64
	for _, d := range w.Days {
		sum += d.RecipeCalories()
	}
	return sum
}

// MealNames flattens every meal name in day then slot order.
func (w WeeklyPlan) MealNames() []string {
	names := make([]string, 0, len(w.Days)*len(recipe.Slots))
	for _, d := range w.Days {
		names = append(names, d.Meals.Names()...)
	}
	return names
}

// Clone returns a deep copy of the plan.
func (w WeeklyPlan) Clone() WeeklyPlan {
	var c WeeklyPlan
	for i, d := range w.Days {
		c.Days[i] = d
		c.Days[i].Meals = d.Meals.clone()
	}
	return c
}

// MarshalJSON encodes the plan as an object keyed by weekday, in calendar order.
func (w WeeklyPlan) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range Weekdays {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(name)
		buf.Write(key)
		buf.WriteByte(':')
		day, err := json.Marshal(w.Days[i])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", name, err)
		}
		buf.Write(day)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON places each weekday key at its calendar position.
func (w *WeeklyPlan) UnmarshalJSON(data []byte) error {
	var raw map[string]DailyPlan
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var plan WeeklyPlan
	for name, day := range raw {
		idx := -1
		for i, d := range Weekdays {
			if d == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("unknown weekday %q in meal plan", name)
		}
		plan.Days[idx] = day
	}
	*w = plan
	return nil
}
