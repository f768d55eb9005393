package recipe

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Repository is a database-backed repository for recipes.
type Repository struct {
	db  *sql.DB
	log *zap.Logger
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB, log *zap.Logger) *Repository {
	if log == nil {
		log = zap.NewNop()
	}
	return &Repository{db: db, log: log}
}

// SaveCatalog replaces the stored recipes with the catalog in a single
// transaction. A name repeated within a slot keeps its last recipe.
func (r *Repository) SaveCatalog(ctx context.Context, c Catalog) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM recipes`); err != nil {
		return fmt.Errorf("failed to clear recipes: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO recipes (slot, name, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(slot, name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare recipe insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, slot := range Slots {
		for _, rec := range c[slot] {
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("failed to marshal recipe to JSON: %w", err)
			}
			if _, err := stmt.ExecContext(ctx, string(slot), rec.Name, string(data), now); err != nil {
				return fmt.Errorf("failed to save recipe %q: %w", rec.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog: %w", err)
	}
	return nil
}

// List loads every stored recipe grouped by slot, in insertion order.
func (r *Repository) List(ctx context.Context) (Catalog, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT slot, name, data FROM recipes ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	c := make(Catalog)
	for rows.Next() {
		var slot, name, data string
		if err := rows.Scan(&slot, &name, &data); err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		var rec Recipe
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			r.log.Warn("skipping unreadable recipe", zap.String("slot", slot), zap.String("name", name), zap.Error(err))
			continue
		}
		c[MealSlot(slot)] = append(c[MealSlot(slot)], rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recipes: %w", err)
	}
	return c, nil
}

// Count returns the number of recipes in the database.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	return count, nil
}
