// Package preferences holds a user's dietary preferences and their storage.
package preferences

import (
	"strings"
	"time"

	"weekly-meal-planner/internal/planner"
)

// Preferences are the user inputs that shape a plan.
type Preferences struct {
	DietType          string   `json:"diet_type"`
	CalorieTarget     int      `json:"calorie_target"`
	Allergies         []string `json:"allergies"`
	CuisinePreference string   `json:"cuisine_preference"`
	Goals             []string `json:"goals,omitempty"`
}

// Defaults fill fields the user left unset.
type Defaults struct {
	DietType          string
	CalorieTarget     int
	CuisinePreference string
}

// DefaultCuisine is used when neither the user nor Defaults name a cuisine.
const DefaultCuisine = "any"

// Strength describes how firmly a preference was stated.
type Strength string

const (
	Strong Strength = "strong"
	Medium Strength = "medium"
	Weak   Strength = "weak"
)

// Stored is the persisted form of Preferences.
type Stored struct {
	Preferences
	LastUpdated        time.Time           `json:"last_updated"`
	PreferenceStrength map[string]Strength `json:"preference_strength"`
}

// Merge overlays the non-zero fields of explicit onto base. A nil slice in
// explicit keeps base's value; an empty one clears it.
func Merge(base Preferences, explicit *Preferences) Preferences {
	if explicit == nil {
		return base
	}
	out := base
	if explicit.DietType != "" {
		out.DietType = explicit.DietType
	}
	if explicit.CalorieTarget != 0 {
		out.CalorieTarget = explicit.CalorieTarget
	}
	if explicit.Allergies != nil {
		out.Allergies = explicit.Allergies
	}
	if explicit.CuisinePreference != "" {
		out.CuisinePreference = explicit.CuisinePreference
	}
	if explicit.Goals != nil {
		out.Goals = explicit.Goals
	}
	return out
}

// Normalize fills unset fields from d, trims values and drops blank
// allergies. The receiver is not modified.
func (p Preferences) Normalize(d Defaults) Preferences {
	out := p
	out.DietType = strings.ToLower(strings.TrimSpace(out.DietType))
	if out.DietType == "" {
		out.DietType = d.DietType
	}
	if out.CalorieTarget == 0 {
		out.CalorieTarget = d.CalorieTarget
	}
	out.CuisinePreference = strings.TrimSpace(out.CuisinePreference)
	if out.CuisinePreference == "" {
		out.CuisinePreference = d.CuisinePreference
	}
	if out.CuisinePreference == "" {
		out.CuisinePreference = DefaultCuisine
	}
	out.Allergies = cleanList(p.Allergies)
	out.Goals = cleanList(p.Goals)
	return out
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Strength rates each field: lists are strong when non-empty, strings are
// medium unless empty or "any"/"flexible", numbers are always weak.
func (p Preferences) Strength() map[string]Strength {
	return map[string]Strength{
		"diet_type":          stringStrength(p.DietType),
		"calorie_target":     Weak,
		"allergies":          listStrength(p.Allergies),
		"cuisine_preference": stringStrength(p.CuisinePreference),
		"goals":              listStrength(p.Goals),
	}
}

func stringStrength(s string) Strength {
	switch s {
	case "", "any", "flexible":
		return Weak
	}
	return Medium
}

func listStrength(l []string) Strength {
	if len(l) > 0 {
		return Strong
	}
	return Weak
}

// Request converts the preferences into planner input.
func (p Preferences) Request() planner.Request {
	return planner.Request{
		DietType:          p.DietType,
		CalorieTarget:     p.CalorieTarget,
		Allergies:         p.Allergies,
		CuisinePreference: p.CuisinePreference,
	}
}
