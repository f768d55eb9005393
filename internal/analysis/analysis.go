// Package analysis scores a weekly plan against a nutrition goal and can ask
// a text generator for narrative insights. Nothing here influences which
// recipes are selected.
package analysis

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"

	"weekly-meal-planner/internal/llm"
	"weekly-meal-planner/internal/planner"
	"weekly-meal-planner/internal/shared"

	"go.uber.org/zap"
)

//go:embed insights_prompt.md
var insightsPrompt string

var insightsTmpl = template.Must(template.New("Insights").Parse(insightsPrompt))

// Goal is a nutrition objective with a target protein ratio.
type Goal string

const (
	WeightLoss     Goal = "weight_loss"
	MuscleBuilding Goal = "muscle_building"
	Maintenance    Goal = "maintenance"
	GeneralHealth  Goal = "general_health"
)

var proteinTargets = map[Goal]float64{
	WeightLoss:     0.30,
	MuscleBuilding: 0.35,
	Maintenance:    0.25,
	GeneralHealth:  0.20,
}

// ParseGoal recognises a goal name, ignoring case and surrounding space.
func ParseGoal(s string) (Goal, bool) {
	g := Goal(strings.ToLower(strings.TrimSpace(s)))
	_, ok := proteinTargets[g]
	return g, ok
}

// GoalFromList returns the first recognised goal, or Maintenance.
func GoalFromList(goals []string) Goal {
	for _, s := range goals {
		if g, ok := ParseGoal(s); ok {
			return g
		}
	}
	return Maintenance
}

// TargetProteinRatio returns the goal's protein target. Unknown goals use
// the maintenance target.
func (g Goal) TargetProteinRatio() float64 {
	if t, ok := proteinTargets[g]; ok {
		return t
	}
	return proteinTargets[Maintenance]
}

// BasicNutrition holds weekly averages. Absent nutrients count as zero.
type BasicNutrition struct {
	AvgDailyCalories float64 `json:"avg_daily_calories"`
	AvgDailyProtein  float64 `json:"avg_daily_protein"`
	AvgDailyCarbs    float64 `json:"avg_daily_carbs"`
	AvgDailyFat      float64 `json:"avg_daily_fat"`
	TotalMeals       int     `json:"total_meals"`
	ProteinRatio     float64 `json:"protein_ratio"`
}

// GoalCompliance measures the protein ratio against the goal.
type GoalCompliance struct {
	ProteinComplianceScore float64 `json:"protein_compliance_score"`
	MeetsProteinTarget     bool    `json:"meets_protein_target"`
	TargetProteinRatio     float64 `json:"target_protein_ratio"`
	ActualProteinRatio     float64 `json:"actual_protein_ratio"`
}

// VarietyAssessment counts distinct meals and ingredients over the week.
type VarietyAssessment struct {
	VarietyScore        float64 `json:"variety_score"`
	IngredientDiversity float64 `json:"ingredient_diversity"`
	UniqueMeals         int     `json:"unique_meals"`
	TotalMeals          int     `json:"total_meals"`
	UniqueIngredients   int     `json:"unique_ingredients"`
	Assessment          string  `json:"assessment"`
}

// Insights is the narrative produced by a text generator.
type Insights struct {
	Insights      string   `json:"insights,omitempty"`
	Suggestions   []string `json:"suggestions,omitempty"`
	Strengths     []string `json:"strengths,omitempty"`
	Improvements  []string `json:"improvements,omitempty"`
	Substitutions []string `json:"substitutions,omitempty"`
	HealthImpact  string   `json:"health_impact,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// Report is the full analysis of one plan.
type Report struct {
	Goal              Goal              `json:"goal"`
	BasicNutrition    BasicNutrition    `json:"basic_nutrition"`
	GoalCompliance    GoalCompliance    `json:"goal_compliance"`
	AIInsights        Insights          `json:"ai_insights"`
	VarietyAssessment VarietyAssessment `json:"variety_assessment"`
	OverallScore      float64           `json:"overall_score"`
	Recommendations   []string          `json:"recommendations"`
}

// Recommendation texts.
const (
	RecommendProtein     = "Increase protein-rich foods like lentils, chicken, or fish"
	RecommendVariety     = "Add more variety to prevent meal boredom"
	RecommendIngredients = "Incorporate more diverse ingredients for better nutrition"
	RecommendNone        = "Great job! Your meal plan is well-balanced and varied"
)

// Analyzer produces reports. A nil generator disables AI insights.
type Analyzer struct {
	gen llm.TextGenerator
	log *zap.Logger
}

// NewAnalyzer returns an Analyzer. gen may be nil.
func NewAnalyzer(gen llm.TextGenerator, log *zap.Logger) *Analyzer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Analyzer{gen: gen, log: log}
}

// Analyze scores plan for goal and, when a generator is configured, attaches
// its insights. The returned meta describes the insights call.
func (a *Analyzer) Analyze(ctx context.Context, plan planner.WeeklyPlan, goal Goal) (Report, shared.AgentMeta) {
	if _, ok := proteinTargets[goal]; !ok {
		goal = Maintenance
	}

	basic := Basic(plan)
	compliance := Compliance(basic, goal)
	variety := Variety(plan)

	r := Report{
		Goal:              goal,
		BasicNutrition:    basic,
		GoalCompliance:    compliance,
		VarietyAssessment: variety,
		OverallScore:      OverallScore(compliance, variety),
		Recommendations:   Recommendations(compliance, variety),
	}

	var meta shared.AgentMeta
	r.AIInsights, meta = a.insights(ctx, plan, goal, basic, variety)
	return r, meta
}

// Basic computes weekly averages over the plan's days.
func Basic(plan planner.WeeklyPlan) BasicNutrition {
	var b BasicNutrition
	var calories, protein, carbs, fat float64
	for _, day := range plan.Days {
		for _, m := range day.Meals.All() {
			calories += m.CaloriesOr(0)
			protein += m.ProteinOr(0)
			carbs += m.CarbsOr(0)
			fat += m.FatOr(0)
			b.TotalMeals++
		}
	}

	days := float64(len(plan.Days))
	b.AvgDailyCalories = calories / days
	b.AvgDailyProtein = protein / days
	b.AvgDailyCarbs = carbs / days
	b.AvgDailyFat = fat / days
	if denom := protein + carbs + fat; denom > 0 {
		b.ProteinRatio = protein / denom
	}
	return b
}

// Compliance scores the protein ratio: 10 minus 100 points per unit of
// distance from target, clamped to [0, 10]. A score of 7 meets the target.
func Compliance(b BasicNutrition, goal Goal) GoalCompliance {
	target := goal.TargetProteinRatio()
	score := math.Max(0, 10-math.Abs(b.ProteinRatio-target)*100)
	return GoalCompliance{
		ProteinComplianceScore: math.Min(10, score),
		MeetsProteinTarget:     score >= 7,
		TargetProteinRatio:     target,
		ActualProteinRatio:     b.ProteinRatio,
	}
}

// Variety counts repetition across the whole week.
func Variety(plan planner.WeeklyPlan) VarietyAssessment {
	meals := make(map[string]struct{})
	ingredients := make(map[string]struct{})
	var v VarietyAssessment
	for _, day := range plan.Days {
		for _, m := range day.Meals.All() {
			meals[m.Name] = struct{}{}
			for name := range m.Ingredients {
				ingredients[name] = struct{}{}
			}
			v.TotalMeals++
		}
	}

	v.UniqueMeals = len(meals)
	v.UniqueIngredients = len(ingredients)
	if v.TotalMeals > 0 {
		v.VarietyScore = float64(v.UniqueMeals) / float64(v.TotalMeals) * 10
	}
	v.IngredientDiversity = math.Min(10, float64(v.UniqueIngredients)/3)

	switch {
	case v.VarietyScore >= 8:
		v.Assessment = "Excellent"
	case v.VarietyScore >= 6:
		v.Assessment = "Good"
	default:
		v.Assessment = "Needs Improvement"
	}
	return v
}

// OverallScore weights goal compliance 50%, meal variety 30% and ingredient
// diversity 20%.
func OverallScore(c GoalCompliance, v VarietyAssessment) float64 {
	return c.ProteinComplianceScore*0.5 + v.VarietyScore*0.3 + v.IngredientDiversity*0.2
}

// Recommendations lists the improvements the scores call for.
func Recommendations(c GoalCompliance, v VarietyAssessment) []string {
	var recs []string
	if !c.MeetsProteinTarget {
		recs = append(recs, RecommendProtein)
	}
	if v.VarietyScore < 6 {
		recs = append(recs, RecommendVariety)
	}
	if v.UniqueIngredients < 15 {
		recs = append(recs, RecommendIngredients)
	}
	if len(recs) == 0 {
		recs = append(recs, RecommendNone)
	}
	return recs
}

// UnavailableInsights is reported when no generator is configured.
func UnavailableInsights() Insights {
	return Insights{Insights: "AI analysis unavailable", Suggestions: []string{}}
}

// FallbackInsights is reported when the generator's reply cannot be parsed.
func FallbackInsights() Insights {
	return Insights{
		Strengths:     []string{"Balanced macronutrients", "Good variety"},
		Improvements:  []string{"Increase protein diversity", "Add more vegetables"},
		Substitutions: []string{"Consider quinoa instead of rice"},
		HealthImpact:  "Generally healthy with minor adjustments needed",
	}
}

type promptData struct {
	Goal        Goal
	PlanJSON    string
	Basic       BasicNutrition
	Variety     VarietyAssessment
	TargetRatio float64
}

func (a *Analyzer) insights(ctx context.Context, plan planner.WeeklyPlan, goal Goal, basic BasicNutrition, variety VarietyAssessment) (Insights, shared.AgentMeta) {
	meta := shared.AgentMeta{AgentName: shared.AgentInsights}
	if a.gen == nil {
		meta.Success = true
		return UnavailableInsights(), meta
	}

	start := time.Now()
	prompt, err := buildInsightsPrompt(plan, goal, basic, variety)
	if err != nil {
		a.log.Error("failed to build insights prompt", zap.Error(err))
		return Insights{Error: err.Error()}, meta
	}

	resp, err := a.gen.GenerateContent(ctx, prompt)
	meta.Latency = time.Since(start)
	meta.Usage = resp.Usage
	if err != nil {
		a.log.Error("insight generation failed", zap.Error(err))
		return Insights{Error: err.Error()}, meta
	}

	meta.Success = true
	return ParseInsights(resp.Content), meta
}

func buildInsightsPrompt(plan planner.WeeklyPlan, goal Goal, basic BasicNutrition, variety VarietyAssessment) (string, error) {
	planJSON, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal plan for prompt: %w", err)
	}

	var buf bytes.Buffer
	err = insightsTmpl.Execute(&buf, promptData{
		Goal:        goal,
		PlanJSON:    string(planJSON),
		Basic:       basic,
		Variety:     variety,
		TargetRatio: goal.TargetProteinRatio(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render insights prompt: %w", err)
	}
	return buf.String(), nil
}

// ParseInsights reads the JSON object spanning the first '{' to the last '}'
// of text. Anything unreadable yields FallbackInsights.
func ParseInsights(text string) Insights {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end < start {
		return FallbackInsights()
	}

	var in Insights
	if err := json.Unmarshal([]byte(text[start:end+1]), &in); err != nil {
		return FallbackInsights()
	}
	return in
}
