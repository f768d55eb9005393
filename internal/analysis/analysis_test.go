package analysis

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"weekly-meal-planner/internal/llm"
	"weekly-meal-planner/internal/planner"
	"weekly-meal-planner/internal/recipe"
	"weekly-meal-planner/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTextGenerator struct {
	content string
	err     error
	prompt  string
}

func (m *mockTextGenerator) GenerateContent(_ context.Context, prompt string) (llm.ContentResponse, error) {
	m.prompt = prompt
	if m.err != nil {
		return llm.ContentResponse{}, m.err
	}
	return llm.ContentResponse{Content: m.content, Usage: shared.TokenUsage{PromptTokens: 10, CompletionTokens: 4, Model: "mock"}}, nil
}

func meal(name, ingredient string) recipe.Recipe {
	return recipe.Recipe{
		Name:        name,
		Ingredients: map[string]float64{ingredient: 100},
		Calories:    recipe.Float(500),
		Protein:     recipe.Float(30),
		Carbs:       recipe.Float(50),
		Fat:         recipe.Float(20),
	}
}

// repetitivePlan serves the same three meals every day at a 0.3 protein ratio.
func repetitivePlan() planner.WeeklyPlan {
	var plan planner.WeeklyPlan
	for i := range plan.Days {
		plan.Days[i].Meals = planner.Meals{Breakfast: meal("A", "x"), Lunch: meal("B", "y"), Dinner: meal("C", "z")}
	}
	return plan
}

func variedPlan() planner.WeeklyPlan {
	var plan planner.WeeklyPlan
	n := 0
	next := func() recipe.Recipe {
		n++
		return meal(fmt.Sprintf("Meal %d", n), fmt.Sprintf("ingredient %d", n))
	}
	for i := range plan.Days {
		plan.Days[i].Meals = planner.Meals{Breakfast: next(), Lunch: next(), Dinner: next()}
	}
	return plan
}

func TestGoals(t *testing.T) {
	g, ok := ParseGoal(" Muscle_Building ")
	assert.True(t, ok)
	assert.Equal(t, MuscleBuilding, g)

	_, ok = ParseGoal("bulk")
	assert.False(t, ok)

	assert.Equal(t, GeneralHealth, GoalFromList([]string{"bulk", "general_health", "weight_loss"}))
	assert.Equal(t, Maintenance, GoalFromList(nil))
	assert.Equal(t, 0.25, Goal("unknown").TargetProteinRatio())
	assert.Equal(t, 0.35, MuscleBuilding.TargetProteinRatio())
}

func TestBasic(t *testing.T) {
	b := Basic(repetitivePlan())
	assert.Equal(t, 1500.0, b.AvgDailyCalories)
	assert.Equal(t, 90.0, b.AvgDailyProtein)
	assert.Equal(t, 21, b.TotalMeals)
	assert.InDelta(t, 0.3, b.ProteinRatio, 1e-9)

	var empty planner.WeeklyPlan
	assert.Zero(t, Basic(empty).ProteinRatio, "no macros gives a zero ratio")
}

func TestCompliance(t *testing.T) {
	b := Basic(repetitivePlan())

	c := Compliance(b, WeightLoss)
	assert.InDelta(t, 10.0, c.ProteinComplianceScore, 1e-9)
	assert.True(t, c.MeetsProteinTarget)

	c = Compliance(b, Maintenance)
	assert.InDelta(t, 5.0, c.ProteinComplianceScore, 1e-9)
	assert.False(t, c.MeetsProteinTarget)

	c = Compliance(BasicNutrition{ProteinRatio: 0.9}, GeneralHealth)
	assert.Equal(t, 0.0, c.ProteinComplianceScore)
}

func TestVariety(t *testing.T) {
	v := Variety(repetitivePlan())
	assert.Equal(t, 3, v.UniqueMeals)
	assert.Equal(t, 21, v.TotalMeals)
	assert.InDelta(t, 30.0/21.0, v.VarietyScore, 1e-9)
	assert.InDelta(t, 1.0, v.IngredientDiversity, 1e-9)
	assert.Equal(t, "Needs Improvement", v.Assessment)

	v = Variety(variedPlan())
	assert.Equal(t, 10.0, v.VarietyScore)
	assert.Equal(t, 7.0, v.IngredientDiversity)
	assert.Equal(t, "Excellent", v.Assessment)

	assert.Equal(t, "Good", Variety(planWithUnique(15)).Assessment)
}

// planWithUnique builds a week with exactly n distinct meal names.
func planWithUnique(n int) planner.WeeklyPlan {
	var plan planner.WeeklyPlan
	i := 0
	for d := range plan.Days {
		var m planner.Meals
		for _, slot := range recipe.Slots {
			r := meal(fmt.Sprintf("Meal %d", i%n), "x")
			switch slot {
			case recipe.Breakfast:
				m.Breakfast = r
			case recipe.Lunch:
				m.Lunch = r
			default:
				m.Dinner = r
			}
			i++
		}
		plan.Days[d].Meals = m
	}
	return plan
}

func TestRecommendations(t *testing.T) {
	assert.Equal(t,
		[]string{RecommendProtein, RecommendVariety, RecommendIngredients},
		Recommendations(GoalCompliance{}, VarietyAssessment{VarietyScore: 2, UniqueIngredients: 3}))

	assert.Equal(t,
		[]string{RecommendNone},
		Recommendations(GoalCompliance{MeetsProteinTarget: true}, VarietyAssessment{VarietyScore: 6, UniqueIngredients: 15}))
}

func TestAnalyze(t *testing.T) {
	ctx := context.Background()

	t.Run("WithoutGenerator", func(t *testing.T) {
		report, meta := NewAnalyzer(nil, nil).Analyze(ctx, repetitivePlan(), WeightLoss)
		assert.Equal(t, WeightLoss, report.Goal)
		assert.InDelta(t, 5.0+30.0/21.0*0.3+0.2, report.OverallScore, 1e-9)
		assert.Equal(t, []string{RecommendVariety, RecommendIngredients}, report.Recommendations)
		assert.Equal(t, UnavailableInsights(), report.AIInsights)
		assert.Equal(t, shared.AgentInsights, meta.AgentName)
	})

	t.Run("UnknownGoalUsesMaintenance", func(t *testing.T) {
		report, _ := NewAnalyzer(nil, nil).Analyze(ctx, repetitivePlan(), Goal("bulk"))
		assert.Equal(t, Maintenance, report.Goal)
		assert.Equal(t, 0.25, report.GoalCompliance.TargetProteinRatio)
	})

	t.Run("ParsesEmbeddedJSON", func(t *testing.T) {
		gen := &mockTextGenerator{content: "Here you go:\n```json\n{\"strengths\": [\"Plenty of dal\"], \"health_impact\": \"Positive\"}\n```"}
		report, meta := NewAnalyzer(gen, nil).Analyze(ctx, variedPlan(), MuscleBuilding)

		assert.Equal(t, []string{"Plenty of dal"}, report.AIInsights.Strengths)
		assert.Equal(t, "Positive", report.AIInsights.HealthImpact)
		assert.True(t, meta.Success)
		assert.Equal(t, 10, meta.Usage.PromptTokens)
		assert.Contains(t, gen.prompt, "muscle_building")
		assert.Contains(t, gen.prompt, `"Monday"`)
	})

	t.Run("UnparsableReplyFallsBack", func(t *testing.T) {
		gen := &mockTextGenerator{content: "I cannot help with that {oops"}
		report, meta := NewAnalyzer(gen, nil).Analyze(ctx, variedPlan(), Maintenance)
		assert.Equal(t, FallbackInsights(), report.AIInsights)
		assert.True(t, meta.Success)
	})

	t.Run("GeneratorErrorIsRecorded", func(t *testing.T) {
		gen := &mockTextGenerator{err: errors.New("quota exceeded")}
		report, meta := NewAnalyzer(gen, nil).Analyze(ctx, variedPlan(), Maintenance)
		require.Contains(t, report.AIInsights.Error, "quota exceeded")
		assert.False(t, meta.Success)
		assert.NotEmpty(t, report.Recommendations, "scores are still computed")
	})
}

func TestParseInsights(t *testing.T) {
	assert.Equal(t, FallbackInsights(), ParseInsights("no json at all"))
	assert.Equal(t, FallbackInsights(), ParseInsights("} backwards {"))
	assert.Equal(t, []string{"x"}, ParseInsights(`{"improvements": ["x"]}`).Improvements)
}
