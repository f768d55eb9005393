package shopping

import "time"

// List is a stored shopping list for one generated plan.
type List struct {
	ID        int64             `json:"id"`
	UserID    string            `json:"user_id"`
	HistoryID int64             `json:"history_id"`
	Items     map[string]string `json:"items"`
	CreatedAt time.Time         `json:"created_at"`
}
