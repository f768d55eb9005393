package shopping

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repository handles persistence of shopping lists.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new shopping list repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Save creates a new shopping list in the database and returns its ID.
func (r *Repository) Save(ctx context.Context, list *List) (int64, error) {
	itemsJSON, err := json.Marshal(list.Items)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal shopping list items: %w", err)
	}

	if list.CreatedAt.IsZero() {
		list.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO shopping_lists (user_id, history_id, items, created_at) VALUES (?, ?, ?, ?)`,
		list.UserID, list.HistoryID, string(itemsJSON), list.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert shopping list: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read shopping list id: %w", err)
	}
	list.ID = id
	return id, nil
}

// GetByHistoryID retrieves the shopping list generated with a history entry.
func (r *Repository) GetByHistoryID(ctx context.Context, historyID int64) (*List, error) {
	return r.getOne(ctx, `
		SELECT id, user_id, history_id, items, created_at FROM shopping_lists
		WHERE history_id = ? ORDER BY id DESC LIMIT 1`, historyID)
}

// LatestByUser retrieves the user's most recent shopping list.
func (r *Repository) LatestByUser(ctx context.Context, userID string) (*List, error) {
	return r.getOne(ctx, `
		SELECT id, user_id, history_id, items, created_at FROM shopping_lists
		WHERE user_id = ? ORDER BY id DESC LIMIT 1`, userID)
}

// DeleteByHistoryID deletes the shopping lists of a history entry.
func (r *Repository) DeleteByHistoryID(ctx context.Context, historyID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM shopping_lists WHERE history_id = ?`, historyID); err != nil {
		return fmt.Errorf("failed to delete shopping list: %w", err)
	}
	return nil
}

func (r *Repository) getOne(ctx context.Context, query string, arg any) (*List, error) {
	var (
		list  List
		items string
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&list.ID, &list.UserID, &list.HistoryID, &items, &list.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // No shopping list found
		}
		return nil, fmt.Errorf("failed to get shopping list: %w", err)
	}

	if err := json.Unmarshal([]byte(items), &list.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shopping list items: %w", err)
	}
	return &list, nil
}
