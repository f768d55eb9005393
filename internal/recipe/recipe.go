package recipe

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// MealSlot is one of the three daily eating occasions.
type MealSlot string

const (
	Breakfast MealSlot = "breakfast"
	Lunch     MealSlot = "lunch"
	Dinner    MealSlot = "dinner"
)

// Slots lists every meal slot in serving order.
var Slots = []MealSlot{Breakfast, Lunch, Dinner}

// ParseSlot maps a case-insensitive slot name to a MealSlot.
func ParseSlot(s string) (MealSlot, bool) {
	switch MealSlot(strings.ToLower(strings.TrimSpace(s))) {
	case Breakfast:
		return Breakfast, true
	case Lunch:
		return Lunch, true
	case Dinner:
		return Dinner, true
	}
	return "", false
}

// Title returns the slot name with its first letter upper-cased.
func (s MealSlot) Title() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// DefaultDietType is assumed for recipes that carry no diet tag.
const DefaultDietType = "vegetarian"

// Recipe is a catalog entry. Nutrient fields are optional; nil means the
// source did not state a value.
type Recipe struct {
	Name        string             `json:"name"`
	Ingredients map[string]float64 `json:"ingredients"`
	Calories    *float64           `json:"calories,omitempty"`
	Protein     *float64           `json:"protein,omitempty"`
	Carbs       *float64           `json:"carbs,omitempty"`
	Fat         *float64           `json:"fat,omitempty"`
	PrepTime    int                `json:"prep_time"`
	DietType    string             `json:"type,omitempty"`
}

// Diet returns the recipe's diet tag, or DefaultDietType when untagged.
func (r Recipe) Diet() string {
	if r.DietType == "" {
		return DefaultDietType
	}
	return r.DietType
}

// CaloriesOr returns the stated calories or def when absent.
func (r Recipe) CaloriesOr(def float64) float64 { return valueOr(r.Calories, def) }

// ProteinOr returns the stated protein or def when absent.
func (r Recipe) ProteinOr(def float64) float64 { return valueOr(r.Protein, def) }

// CarbsOr returns the stated carbs or def when absent.
func (r Recipe) CarbsOr(def float64) float64 { return valueOr(r.Carbs, def) }

// FatOr returns the stated fat or def when absent.
func (r Recipe) FatOr(def float64) float64 { return valueOr(r.Fat, def) }

// IngredientNames returns the ingredient names in sorted order.
func (r Recipe) IngredientNames() []string {
	return slices.Sorted(maps.Keys(r.Ingredients))
}

// Clone returns a deep copy that shares no pointers or maps with r.
func (r Recipe) Clone() Recipe {
	c := r
	c.Ingredients = maps.Clone(r.Ingredients)
	c.Calories = clonePtr(r.Calories)
	c.Protein = clonePtr(r.Protein)
	c.Carbs = clonePtr(r.Carbs)
	c.Fat = clonePtr(r.Fat)
	return c
}

// Nutrients returns the optional nutrient pointers. Writing through them
// changes r, so only use them on a Clone.
func (r Recipe) Nutrients() []*float64 {
	return []*float64{r.Calories, r.Protein, r.Carbs, r.Fat}
}

// Float is a convenience for building optional nutrient values.
func Float(v float64) *float64 { return &v }

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Catalog groups recipes by meal slot. It is read-only once loaded.
type Catalog map[MealSlot][]Recipe

// Size returns the number of recipes across all slots.
func (c Catalog) Size() int {
	n := 0
	for _, pool := range c {
		n += len(pool)
	}
	return n
}

// Validate rejects catalogs that would produce nonsense plans. It is meant to
// run at load time so malformed data never reaches the planner.
func (c Catalog) Validate() error {
	var errs []error
	for slot, pool := range c {
		if _, ok := ParseSlot(string(slot)); !ok {
			errs = append(errs, fmt.Errorf("unknown meal slot %q", slot))
			continue
		}
		for i, r := range pool {
			if strings.TrimSpace(r.Name) == "" {
				errs = append(errs, fmt.Errorf("%s recipe #%d has no name", slot, i))
			}
			for field, p := range map[string]*float64{
				"calories": r.Calories, "protein": r.Protein, "carbs": r.Carbs, "fat": r.Fat,
			} {
				if p != nil && *p < 0 {
					errs = append(errs, fmt.Errorf("%s recipe %q has negative %s", slot, r.Name, field))
				}
			}
			for name, qty := range r.Ingredients {
				if qty < 0 {
					errs = append(errs, fmt.Errorf("%s recipe %q has negative quantity for %q", slot, r.Name, name))
				}
			}
			if r.PrepTime < 0 {
				errs = append(errs, fmt.Errorf("%s recipe %q has negative prep_time", slot, r.Name))
			}
		}
	}
	return errors.Join(errs...)
}

// Duplicates reports recipe names that appear more than once within a slot.
// Duplicates weaken repeat avoidance but are not fatal.
func (c Catalog) Duplicates() map[MealSlot][]string {
	out := make(map[MealSlot][]string)
	for slot, pool := range c {
		seen := make(map[string]int, len(pool))
		for _, r := range pool {
			seen[r.Name]++
			if seen[r.Name] == 2 {
				out[slot] = append(out[slot], r.Name)
			}
		}
	}
	return out
}
