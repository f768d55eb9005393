package shared

import (
	"time"
)

// TokenUsage tracks the tokens consumed by a request.
type TokenUsage struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	Model            string `json:"model"`
}

// Add accumulates other into u. The model of u is kept unless it is empty.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
	if u.Model == "" {
		u.Model = other.Model
	}
}

// AgentMeta holds operational metadata for one step of plan generation,
// whether or not a model was involved.
type AgentMeta struct {
	AgentName string
	Usage     TokenUsage
	Latency   time.Duration
	Success   bool
}

// Agent names recorded in execution metrics.
const (
	AgentPlanner  = "Planner"
	AgentInsights = "Insights"
)
