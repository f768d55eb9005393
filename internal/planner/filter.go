package planner

import (
	"bytes"
	"encoding/json"
	"strings"

	"weekly-meal-planner/internal/recipe"
)

// MixedDiet matches recipes of every diet type.
const MixedDiet = "mixed"

// Filter returns the recipes of pool that match dietType and contain none of
// the allergies.
//
// The allergen test is textual: an allergy excludes a recipe when, lowercased,
// it is a substring of the JSON array of the recipe's sorted ingredient names,
// encoded without HTML escaping.
// "milk" therefore also excludes "Cashew Milk", and an empty allergy string
// excludes everything. Callers drop blank allergies before filtering.
func Filter(pool []recipe.Recipe, dietType string, allergies []string) []recipe.Recipe {
	lowered := make([]string, len(allergies))
	for i, a := range allergies {
		lowered[i] = strings.ToLower(a)
	}

	out := make([]recipe.Recipe, 0, len(pool))
	for _, r := range pool {
		if dietType != MixedDiet && r.Diet() != dietType {
			continue
		}
		if containsAllergen(r, lowered) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func containsAllergen(r recipe.Recipe, allergies []string) bool {
	if len(allergies) == 0 {
		return false
	}
	names := r.IngredientNames()
	if names == nil {
		names = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(names)
	text := strings.ToLower(buf.String())
	for _, a := range allergies {
		if strings.Contains(text, a) {
			return true
		}
	}
	return false
}
