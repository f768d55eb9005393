package preferences

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"weekly-meal-planner/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var defaults = Defaults{DietType: "vegetarian", CalorieTarget: 2000}

func TestNormalize(t *testing.T) {
	t.Run("FillsDefaults", func(t *testing.T) {
		got := Preferences{}.Normalize(defaults)
		assert.Equal(t, "vegetarian", got.DietType)
		assert.Equal(t, 2000, got.CalorieTarget)
		assert.Equal(t, DefaultCuisine, got.CuisinePreference)
		assert.NotNil(t, got.Allergies)
		assert.Empty(t, got.Allergies)
	})

	t.Run("DropsBlankAllergies", func(t *testing.T) {
		in := Preferences{DietType: " Mixed ", Allergies: []string{"", " peanuts ", "  "}}
		got := in.Normalize(defaults)
		assert.Equal(t, "mixed", got.DietType)
		assert.Equal(t, []string{"peanuts"}, got.Allergies)
		assert.Equal(t, []string{"", " peanuts ", "  "}, in.Allergies, "input is untouched")
	})

	t.Run("KeepsExplicitValues", func(t *testing.T) {
		got := Preferences{DietType: "non-vegetarian", CalorieTarget: 1500, CuisinePreference: "indian"}.Normalize(defaults)
		assert.Equal(t, "non-vegetarian", got.DietType)
		assert.Equal(t, 1500, got.CalorieTarget)
		assert.Equal(t, "indian", got.CuisinePreference)
	})
}

func TestMerge(t *testing.T) {
	stored := Preferences{DietType: "non-vegetarian", CalorieTarget: 1800, Allergies: []string{"fish"}, Goals: []string{"weight_loss"}}

	assert.Equal(t, stored, Merge(stored, nil))

	got := Merge(stored, &Preferences{CalorieTarget: 2200})
	assert.Equal(t, "non-vegetarian", got.DietType)
	assert.Equal(t, 2200, got.CalorieTarget)
	assert.Equal(t, []string{"fish"}, got.Allergies)

	got = Merge(stored, &Preferences{Allergies: []string{}})
	assert.Empty(t, got.Allergies, "an explicit empty list clears stored allergies")
}

func TestStrength(t *testing.T) {
	s := Preferences{DietType: "vegetarian", CalorieTarget: 2000, Allergies: []string{"nuts"}, CuisinePreference: "any"}.Strength()
	assert.Equal(t, Medium, s["diet_type"])
	assert.Equal(t, Weak, s["calorie_target"])
	assert.Equal(t, Strong, s["allergies"])
	assert.Equal(t, Weak, s["cuisine_preference"])
	assert.Equal(t, Weak, s["goals"])

	assert.Equal(t, Weak, Preferences{CuisinePreference: "flexible"}.Strength()["cuisine_preference"])
}

func TestRequest(t *testing.T) {
	req := Preferences{DietType: "mixed", CalorieTarget: 1700, Allergies: []string{"milk"}, CuisinePreference: "thai"}.Request()
	assert.Equal(t, "mixed", req.DietType)
	assert.Equal(t, 1700, req.CalorieTarget)
	assert.Equal(t, []string{"milk"}, req.Allergies)
	assert.Equal(t, "thai", req.CuisinePreference)
}

func TestRepository(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "prefs.db"), zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db.SQL)
	repo.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	got, err := repo.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, got)

	prefs := Preferences{DietType: "vegetarian", CalorieTarget: 1900, Allergies: []string{"peanuts"}, CuisinePreference: "any"}
	_, err = repo.Save(ctx, "alice", prefs)
	require.NoError(t, err)

	prefs.CalorieTarget = 2100
	saved, err := repo.Save(ctx, "alice", prefs)
	require.NoError(t, err)
	assert.Equal(t, Strong, saved.PreferenceStrength["allergies"])

	got, err = repo.Get(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, prefs, got.Preferences)
	assert.Equal(t, saved.PreferenceStrength, got.PreferenceStrength)
	assert.True(t, got.LastUpdated.Equal(saved.LastUpdated))
}
