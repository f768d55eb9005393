package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "planner.db")

	db, err := NewDB(path, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"recipes", "user_preferences", "sessions", "meal_history", "shopping_lists", "execution_metrics"} {
		var name string
		err := db.SQL.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}

	t.Run("MigrationsAreIdempotent", func(t *testing.T) {
		require.NoError(t, RunMigrations(path, zap.NewNop()))
	})
}
