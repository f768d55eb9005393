package planner

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"testing"

	"weekly-meal-planner/internal/recipe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// firstRand always picks the first candidate.
type firstRand struct{}

func (firstRand) IntN(int) int { return 0 }

func veg(name string, calories, protein, carbs, fat float64, ingredients ...string) recipe.Recipe {
	ing := make(map[string]float64, len(ingredients))
	for _, i := range ingredients {
		ing[i] = 100
	}
	return recipe.Recipe{
		Name:        name,
		Ingredients: ing,
		Calories:    recipe.Float(calories),
		Protein:     recipe.Float(protein),
		Carbs:       recipe.Float(carbs),
		Fat:         recipe.Float(fat),
		PrepTime:    10,
		DietType:    "vegetarian",
	}
}

func numbered(prefix string, n int) []recipe.Recipe {
	out := make([]recipe.Recipe, n)
	for i := range out {
		out[i] = veg(fmt.Sprintf("%s %d", prefix, i+1), 300+float64(i)*10, 15, 40, 10, "oats")
	}
	return out
}

func TestFilter(t *testing.T) {
	pool := []recipe.Recipe{
		veg("Oats", 250, 12, 40, 6, "oats", "milk"),
		veg("Smoothie", 200, 5, 30, 2, "Cashew Milk", "banana"),
		{Name: "Untagged Toast", Ingredients: map[string]float64{"bread": 60}},
		{Name: "Egg Bhurji", Ingredients: map[string]float64{"eggs": 3}, DietType: "non-vegetarian"},
	}

	t.Run("DietType", func(t *testing.T) {
		got := Filter(pool, "vegetarian", nil)
		assert.Len(t, got, 3, "untagged recipes count as vegetarian")

		got = Filter(pool, "non-vegetarian", nil)
		require.Len(t, got, 1)
		assert.Equal(t, "Egg Bhurji", got[0].Name)
	})

	t.Run("MixedMatchesEverything", func(t *testing.T) {
		assert.Len(t, Filter(pool, MixedDiet, nil), len(pool))
	})

	t.Run("AllergyIsCaseInsensitiveSubstring", func(t *testing.T) {
		got := Filter(pool, MixedDiet, []string{"MILK"})
		names := make([]string, 0, len(got))
		for _, r := range got {
			names = append(names, r.Name)
		}
		assert.ElementsMatch(t, []string{"Untagged Toast", "Egg Bhurji"}, names)
	})

	t.Run("AllergyWithMarkupCharacters", func(t *testing.T) {
		candy := []recipe.Recipe{veg("Trail Mix", 300, 8, 30, 15, "M&M candy", "<nuts>", "raisins"), veg("Plain Oats", 250, 10, 40, 5, "oats")}
		for _, allergy := range []string{"m&m", "<nuts>", "<NUTS>"} {
			got := Filter(candy, MixedDiet, []string{allergy})
			require.Len(t, got, 1, allergy)
			assert.Equal(t, "Plain Oats", got[0].Name)
		}
	})

	t.Run("EmptyAllergyExcludesEverything", func(t *testing.T) {
		assert.Empty(t, Filter(pool, MixedDiet, []string{""}))
	})

	t.Run("NoMatchReturnsEmpty", func(t *testing.T) {
		got := Filter(pool, "vegan", nil)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("Idempotent", func(t *testing.T) {
		once := Filter(pool, "vegetarian", []string{"banana"})
		twice := Filter(once, "vegetarian", []string{"banana"})
		assert.Equal(t, once, twice)
	})
}

func TestSelect(t *testing.T) {
	t.Run("PrefersUnused", func(t *testing.T) {
		pool := numbered("Breakfast", 3)
		used := UsedSet{}
		used.Add("Breakfast 1")

		got, fallback := Select(firstRand{}, recipe.Breakfast, "vegetarian", pool, used)
		assert.False(t, fallback)
		assert.Equal(t, "Breakfast 2", got.Name)
		assert.True(t, used.Has("Breakfast 2"))
	})

	t.Run("RepeatsOnlyWhenExhausted", func(t *testing.T) {
		pool := numbered("Lunch", 2)
		used := UsedSet{"Lunch 1": {}, "Lunch 2": {}}

		got, fallback := Select(firstRand{}, recipe.Lunch, "vegetarian", pool, used)
		assert.False(t, fallback)
		assert.Equal(t, "Lunch 1", got.Name)
		assert.Len(t, used, 2)
	})

	t.Run("FallbackIsFixedAndNotRecorded", func(t *testing.T) {
		used := UsedSet{}
		got, fallback := Select(NewRand(1), recipe.Dinner, "vegan", nil, used)
		require.True(t, fallback)
		assert.Equal(t, FallbackRecipe(recipe.Dinner, "vegan"), got)
		assert.Equal(t, "Fallback Dinner", got.Name)
		assert.Equal(t, "vegan", got.DietType)
		assert.Equal(t, 300.0, *got.Calories)
		assert.Equal(t, map[string]float64{"basic_food": 100, "vegetables": 50}, got.Ingredients)
		assert.Empty(t, used)
	})

	t.Run("ReturnsCopy", func(t *testing.T) {
		pool := numbered("Dinner", 1)
		got, _ := Select(firstRand{}, recipe.Dinner, "vegetarian", pool, UsedSet{})
		*got.Calories = 1
		got.Ingredients["oats"] = 1
		assert.Equal(t, 300.0, *pool[0].Calories)
		assert.Equal(t, 100.0, pool[0].Ingredients["oats"])
	})
}

func TestScores(t *testing.T) {
	t.Run("NutritionScoreGrowsAwayFromIdeal", func(t *testing.T) {
		// protein share exactly 0.3 scores 0: the score measures distance
		// from the ideal, so lower is better.
		balanced := Meals{
			Breakfast: veg("a", 100, 30, 50, 20),
			Lunch:     veg("b", 100, 30, 50, 20),
			Dinner:    veg("c", 100, 30, 50, 20),
		}
		assert.InDelta(t, 0.0, NutritionScore(balanced), 1e-9)

		noProtein := Meals{
			Breakfast: veg("a", 100, 0, 50, 20),
			Lunch:     veg("b", 100, 0, 50, 20),
			Dinner:    veg("c", 100, 0, 50, 20),
		}
		assert.Equal(t, 10.0, NutritionScore(noProtein))

		slightlyHigh := Meals{
			Breakfast: veg("a", 100, 35, 45, 20),
			Lunch:     veg("b", 100, 35, 45, 20),
			Dinner:    veg("c", 100, 35, 45, 20),
		}
		assert.InDelta(t, 5.0, NutritionScore(slightlyHigh), 1e-9)
	})

	t.Run("NutritionScoreWithoutMacros", func(t *testing.T) {
		empty := Meals{Breakfast: recipe.Recipe{Name: "a"}, Lunch: recipe.Recipe{Name: "b"}, Dinner: recipe.Recipe{Name: "c"}}
		assert.InDelta(t, 3.0, NutritionScore(empty), 1e-9)
	})

	t.Run("VarietyScore", func(t *testing.T) {
		assert.Equal(t, 10.0, VarietyScore([]string{"a", "b", "c"}, nil))
		assert.InDelta(t, 20.0/3.0, VarietyScore([]string{"a", "b", "c"}, []string{"c"}), 1e-9)
		assert.Equal(t, 0.0, VarietyScore([]string{"a", "b", "c"}, []string{"a", "b", "c"}))
		assert.InDelta(t, 10.0/3.0, VarietyScore([]string{"a", "a", "a"}, nil), 1e-9)
		assert.Equal(t, 5.0, VarietyScore(nil, []string{"a"}))
	})
}

func TestAssembleDay(t *testing.T) {
	g := NewGenerator(nil, firstRand{})
	pools := Pools{
		DietType: "vegetarian",
		BySlot: map[recipe.MealSlot][]recipe.Recipe{
			recipe.Breakfast: {{Name: "Plain Toast"}},
			recipe.Lunch:     {veg("Dal", 450, 22, 75, 12)},
		},
	}

	day := g.AssembleDay(pools, NewUsedSets(), 0, 2000, []string{"Dal"})

	assert.Equal(t, "Plain Toast", day.Meals.Breakfast.Name)
	assert.Equal(t, "Dal", day.Meals.Lunch.Name)
	assert.Equal(t, "Fallback Dinner", day.Meals.Dinner.Name)
	// 300 default breakfast + 450 lunch + 300 fallback dinner
	assert.Equal(t, 1050.0, day.TotalCalories)
	assert.InDelta(t, 20.0/3.0, day.VarietyScore, 1e-9)
}

func exampleCatalog() recipe.Catalog {
	c := recipe.SampleCatalog()
	c[recipe.Breakfast] = []recipe.Recipe{
		veg("Masala Oats", 250, 12, 40, 6, "oats", "vegetables"),
		veg("Paneer Paratha", 380, 18, 45, 15, "whole_wheat_flour", "paneer"),
		veg("Poha", 270, 6, 50, 7, "flattened_rice", "peanuts"),
	}
	return c
}

func TestGeneratePlan(t *testing.T) {
	req := Request{DietType: "vegetarian", CalorieTarget: 2000}

	t.Run("Complete", func(t *testing.T) {
		plan := NewGenerator(exampleCatalog(), NewRand(7)).GeneratePlan(req, nil)
		for i, d := range plan.Days {
			for _, slot := range recipe.Slots {
				assert.NotEmpty(t, d.Meals.Get(slot).Name, "%s %s", Weekdays[i], slot)
			}
		}
		assert.Len(t, plan.MealNames(), 21)
	})

	t.Run("ExampleScenario", func(t *testing.T) {
		for seed := uint64(0); seed < 20; seed++ {
			g := NewGenerator(exampleCatalog(), NewRand(seed))
			draft := g.Draft(req, nil)

			breakfasts := make([]string, 0, 7)
			for _, d := range draft.Days {
				breakfasts = append(breakfasts, d.Meals.Breakfast.Name)
			}
			assert.Len(t, unique(breakfasts[:3]), 3, "first three breakfasts must differ (seed %d)", seed)

			plan := Normalize(draft, req.CalorieTarget)
			assert.InDelta(t, 14000, plan.TotalCalories(), 21, "seed %d", seed)
		}
	})

	t.Run("NoRepeatWithLargePool", func(t *testing.T) {
		c := recipe.Catalog{
			recipe.Breakfast: numbered("Breakfast", 7),
			recipe.Lunch:     numbered("Lunch", 9),
			recipe.Dinner:    numbered("Dinner", 7),
		}
		for seed := uint64(0); seed < 20; seed++ {
			plan := NewGenerator(c, NewRand(seed)).GeneratePlan(req, nil)
			for _, slot := range recipe.Slots {
				var names []string
				for _, d := range plan.Days {
					names = append(names, d.Meals.Get(slot).Name)
				}
				assert.Len(t, unique(names), 7, "%s repeated (seed %d)", slot, seed)
			}
		}
	})

	t.Run("SmallPoolExhaustsBeforeRepeating", func(t *testing.T) {
		c := recipe.Catalog{
			recipe.Breakfast: numbered("Breakfast", 2),
			recipe.Lunch:     numbered("Lunch", 4),
			recipe.Dinner:    numbered("Dinner", 1),
		}
		for seed := uint64(0); seed < 20; seed++ {
			plan := NewGenerator(c, NewRand(seed)).Draft(req, nil)
			for slot, size := range map[recipe.MealSlot]int{recipe.Breakfast: 2, recipe.Lunch: 4, recipe.Dinner: 1} {
				var names []string
				for _, d := range plan.Days[:size] {
					names = append(names, d.Meals.Get(slot).Name)
				}
				assert.Len(t, unique(names), size, "%s (seed %d)", slot, seed)
			}
		}
	})

	t.Run("FallbackWhenNothingMatches", func(t *testing.T) {
		plan := NewGenerator(exampleCatalog(), NewRand(3)).Draft(Request{DietType: "vegan", CalorieTarget: 2000}, nil)
		for _, d := range plan.Days {
			assert.Equal(t, "Fallback Breakfast", d.Meals.Breakfast.Name)
			assert.Equal(t, "Fallback Lunch", d.Meals.Lunch.Name)
			assert.Equal(t, "Fallback Dinner", d.Meals.Dinner.Name)
			assert.Equal(t, 900.0, d.TotalCalories)
		}
	})

	t.Run("AllergiesExcluded", func(t *testing.T) {
		allergic := Request{DietType: MixedDiet, CalorieTarget: 1800, Allergies: []string{"paneer", "FISH"}}
		for seed := uint64(0); seed < 20; seed++ {
			plan := NewGenerator(exampleCatalog(), NewRand(seed)).GeneratePlan(allergic, nil)
			for _, d := range plan.Days {
				for _, m := range d.Meals.All() {
					for ing := range m.Ingredients {
						assert.NotContains(t, strings.ToLower(ing), "paneer")
						assert.NotContains(t, strings.ToLower(ing), "fish")
					}
				}
			}
		}
	})

	t.Run("RecentHistoryLowersVariety", func(t *testing.T) {
		g := NewGenerator(exampleCatalog(), NewRand(11))
		fresh := g.Draft(req, nil)
		for _, d := range fresh.Days {
			assert.Equal(t, 10.0, d.VarietyScore)
		}

		stale := NewGenerator(exampleCatalog(), NewRand(11)).Draft(req, fresh.MealNames())
		for _, d := range stale.Days {
			assert.Equal(t, 0.0, d.VarietyScore)
		}
	})
}

func TestNormalize(t *testing.T) {
	draft := NewGenerator(exampleCatalog(), NewRand(5)).Draft(Request{DietType: "vegetarian"}, nil)

	t.Run("ConservesCalories", func(t *testing.T) {
		for _, target := range []int{1200, 1500, 2000, 2750, 3333} {
			plan := Normalize(draft, target)
			want := float64(target * 7)
			got := plan.TotalCalories()
			assert.LessOrEqual(t, got, want)
			assert.Greater(t, got, want-7)
		}
	})

	t.Run("NonNegative", func(t *testing.T) {
		for _, target := range []int{2000, 0, -500} {
			plan := Normalize(draft, target)
			for _, d := range plan.Days {
				for _, m := range d.Meals.All() {
					for _, v := range m.Nutrients() {
						if v != nil {
							assert.GreaterOrEqual(t, *v, 0.0)
						}
					}
				}
			}
		}
	})

	t.Run("DoesNotAliasInput", func(t *testing.T) {
		before, err := json.Marshal(draft)
		require.NoError(t, err)

		_ = Normalize(draft, 4000)

		after, err := json.Marshal(draft)
		require.NoError(t, err)
		assert.JSONEq(t, string(before), string(after))
	})

	t.Run("ZeroTotalIsUnchanged", func(t *testing.T) {
		var plan WeeklyPlan
		for i := range plan.Days {
			plan.Days[i].Meals = Meals{
				Breakfast: veg("a", 0, 1, 1, 1),
				Lunch:     veg("b", 0, 1, 1, 1),
				Dinner:    veg("c", 0, 1, 1, 1),
			}
		}
		assert.Equal(t, plan, Normalize(plan, 2000))
	})

	t.Run("FloorsEachDayIndependently", func(t *testing.T) {
		plan := Normalize(draft, 2000)
		factor := 14000 / draft.TotalCalories()
		for i, d := range plan.Days {
			assert.Equal(t, math.Floor(draft.Days[i].TotalCalories*factor), d.TotalCalories)
		}
		// per-recipe flooring can only lose calories relative to the daily totals
		assert.LessOrEqual(t, plan.RecipeCalories(), plan.TotalCalories()+1e-9)
	})
}

func TestWeeklyPlanJSON(t *testing.T) {
	plan := NewGenerator(exampleCatalog(), NewRand(9)).GeneratePlan(Request{DietType: "vegetarian", CalorieTarget: 2000}, nil)

	data, err := json.Marshal(plan)
	require.NoError(t, err)

	text := string(data)
	last := -1
	for _, day := range Weekdays {
		idx := strings.Index(text, `"`+day+`"`)
		require.Greater(t, idx, last, "%s out of order", day)
		last = idx
	}
	assert.Contains(t, text, `"total_calories"`)
	assert.Contains(t, text, `"breakfast":{"name"`)

	var decoded WeeklyPlan
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, plan, decoded)

	var bad WeeklyPlan
	assert.Error(t, json.Unmarshal([]byte(`{"Funday":{}}`), &bad))
}

func unique(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
