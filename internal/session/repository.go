package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Session represents a user's planning session.
type Session struct {
	ID           string      `json:"session_id"`
	UserID       string      `json:"user_id"`
	CreatedAt    time.Time   `json:"created_at"`
	LastActivity time.Time   `json:"last_activity"`
	Context      ContextData `json:"context"`
}

// ContextData holds structured data stored in the context JSON field
type ContextData struct {
	LastHistoryID int64  `json:"last_history_id,omitempty"`
	LastPlanAt    string `json:"last_plan_at,omitempty"`
	PlansCreated  int    `json:"plans_created,omitempty"`
}

// Repository provides access to session persistence operations
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new Repository instance
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// NewID returns the session id for userID created at t.
func NewID(userID string, t time.Time) string {
	return fmt.Sprintf("sess_%s_%d", userID, t.Unix())
}

// Create starts a session for userID. A second Create for the same user
// within the same second returns the existing session.
func (r *Repository) Create(ctx context.Context, userID string) (*Session, error) {
	now := r.now().UTC()
	s := &Session{
		ID:           NewID(userID, now),
		UserID:       userID,
		CreatedAt:    now,
		LastActivity: now,
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, context, created_at, last_activity) VALUES (?, ?, '{}', ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_activity = excluded.last_activity`,
		s.ID, userID, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s, nil
}

// Get retrieves a session by ID. It returns nil when the session does not exist.
func (r *Repository) Get(ctx context.Context, id string) (*Session, error) {
	var (
		s       Session
		rawData string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, context, created_at, last_activity FROM sessions WHERE id = ?`, id).
		Scan(&s.ID, &s.UserID, &rawData, &s.CreatedAt, &s.LastActivity)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if err := json.Unmarshal([]byte(rawData), &s.Context); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session context: %w", err)
	}
	return &s, nil
}

// Update replaces the session context and bumps last_activity. It reports
// whether the session exists.
func (r *Repository) Update(ctx context.Context, id string, data ContextData) (bool, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return false, fmt.Errorf("failed to marshal session context: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET context = ?, last_activity = ? WHERE id = ?`,
		string(jsonData), r.now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("failed to update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// CleanupOlderThan removes sessions idle for longer than maxIdle and returns
// how many were removed.
func (r *Repository) CleanupOlderThan(ctx context.Context, maxIdle time.Duration) (int64, error) {
	cutoff := r.now().UTC().Add(-maxIdle)
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE last_activity < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up sessions: %w", err)
	}
	return res.RowsAffected()
}
