package preferences

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repository is a database-backed store of user preferences.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Save replaces the user's preferences, stamping last_updated and strengths.
func (r *Repository) Save(ctx context.Context, userID string, p Preferences) (*Stored, error) {
	stored := &Stored{
		Preferences:        p,
		LastUpdated:        r.now().UTC(),
		PreferenceStrength: p.Strength(),
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal preferences: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		userID, string(data), stored.LastUpdated)
	if err != nil {
		return nil, fmt.Errorf("failed to save preferences for user %s: %w", userID, err)
	}
	return stored, nil
}

// Get returns the user's stored preferences, or nil when none are saved.
func (r *Repository) Get(ctx context.Context, userID string) (*Stored, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM user_preferences WHERE user_id = ?`, userID).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get preferences for user %s: %w", userID, err)
	}

	var stored Stored
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal preferences: %w", err)
	}
	return &stored, nil
}
