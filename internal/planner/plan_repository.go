package planner

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// MaxHistoryEntries caps the history log across all users.
const MaxHistoryEntries = 500

// Feedback is the user's rating of a stored plan.
type Feedback struct {
	Rating   int    `json:"rating"`
	Comments string `json:"comments"`
}

// HistoryEntry is one stored plan.
type HistoryEntry struct {
	ID        int64      `json:"id"`
	UserID    string     `json:"user_id"`
	Timestamp string     `json:"timestamp"`
	MealPlan  WeeklyPlan `json:"meal_plan"`
	Feedback  Feedback   `json:"feedback"`
}

// PlanRepository is a database-backed, append-only log of generated plans.
type PlanRepository struct {
	db       *sql.DB
	log      *zap.Logger
	now      func() time.Time
	capacity int
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(db *sql.DB, log *zap.Logger) *PlanRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &PlanRepository{db: db, log: log, now: time.Now, capacity: MaxHistoryEntries}
}

// Append stores plan for userID and trims the log to MaxHistoryEntries,
// dropping the shopping lists of evicted entries.
func (r *PlanRepository) Append(ctx context.Context, userID string, plan WeeklyPlan, fb Feedback) (HistoryEntry, error) {
	data, err := json.Marshal(plan)
	if err != nil {
		return HistoryEntry{}, fmt.Errorf("failed to marshal meal plan: %w", err)
	}

	entry := HistoryEntry{
		UserID:    userID,
		Timestamp: r.now().UTC().Format(time.RFC3339Nano),
		MealPlan:  plan,
		Feedback:  fb,
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return HistoryEntry{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO meal_history (user_id, timestamp, meal_plan, rating, comments) VALUES (?, ?, ?, ?, ?)`,
		userID, entry.Timestamp, string(data), fb.Rating, fb.Comments)
	if err != nil {
		return HistoryEntry{}, fmt.Errorf("failed to insert meal history: %w", err)
	}
	if entry.ID, err = res.LastInsertId(); err != nil {
		return HistoryEntry{}, fmt.Errorf("failed to read meal history id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM meal_history WHERE id NOT IN (SELECT id FROM meal_history ORDER BY id DESC LIMIT ?)`,
		r.capacity); err != nil {
		return HistoryEntry{}, fmt.Errorf("failed to trim meal history: %w", err)
	}
	// Shopping lists belong to their history entry and go with it.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM shopping_lists WHERE history_id NOT IN (SELECT id FROM meal_history)`); err != nil {
		return HistoryEntry{}, fmt.Errorf("failed to trim shopping lists: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return HistoryEntry{}, fmt.Errorf("failed to commit meal history: %w", err)
	}
	return entry, nil
}

// ListByUser returns up to limit entries for userID, newest first. A limit of
// zero or less returns every entry.
func (r *PlanRepository) ListByUser(ctx context.Context, userID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, timestamp, meal_plan, rating, comments
		FROM meal_history WHERE user_id = ? ORDER BY id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal history for user %s: %w", userID, err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var (
			e    HistoryEntry
			data string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Timestamp, &data, &e.Feedback.Rating, &e.Feedback.Comments); err != nil {
			return nil, fmt.Errorf("failed to scan meal history: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &e.MealPlan); err != nil {
			r.log.Warn("skipping unreadable meal history entry", zap.Int64("id", e.ID), zap.Error(err))
			continue
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meal history: %w", err)
	}
	return entries, nil
}

// RecentMealNames flattens the meal names of the user's last window plans.
func (r *PlanRepository) RecentMealNames(ctx context.Context, userID string, window int) ([]string, error) {
	if window <= 0 {
		return nil, nil
	}
	entries, err := r.ListByUser(ctx, userID, window)
	if err != nil {
		return nil, err
	}
	var names []string
	for i := len(entries) - 1; i >= 0; i-- {
		names = append(names, entries[i].MealPlan.MealNames()...)
	}
	return names, nil
}

// Delete removes the user's entry stamped with timestamp and returns its id,
// or 0 when there was no such entry.
func (r *PlanRepository) Delete(ctx context.Context, userID, timestamp string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`DELETE FROM meal_history WHERE user_id = ? AND timestamp = ? RETURNING id`, userID, timestamp).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to delete meal history: %w", err)
	}
	return id, nil
}
