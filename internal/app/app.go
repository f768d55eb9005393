package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"weekly-meal-planner/internal/analysis"
	"weekly-meal-planner/internal/config"
	"weekly-meal-planner/internal/database"
	"weekly-meal-planner/internal/llm"
	"weekly-meal-planner/internal/metrics"
	"weekly-meal-planner/internal/planner"
	"weekly-meal-planner/internal/preferences"
	"weekly-meal-planner/internal/recipe"
	"weekly-meal-planner/internal/session"
	"weekly-meal-planner/internal/shared"
	"weekly-meal-planner/internal/shopping"

	"go.uber.org/zap"
)

// ErrMissingUserID is returned when a request names no user.
var ErrMissingUserID = errors.New("user_id is required")

// historyFeedback is attached to every plan saved by GeneratePlan.
var historyFeedback = planner.Feedback{Rating: 0, Comments: "auto saved"}

// App holds the application's dependencies.
type App struct {
	cfg     *config.Config
	log     *zap.Logger
	catalog recipe.Catalog

	analyzer     *analysis.Analyzer
	prefsRepo    *preferences.Repository
	sessionRepo  *session.Repository
	planRepo     *planner.PlanRepository
	shoppingRepo *shopping.Repository
	metricsStore *metrics.Store

	// newRand gives each generation its own random source.
	newRand func() planner.Rand
}

// NewApp creates and initializes a new App instance. textGen may be nil, in
// which case plans carry no AI insights.
func NewApp(cfg *config.Config, log *zap.Logger, db *database.DB, catalog recipe.Catalog, textGen llm.TextGenerator) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{
		cfg:          cfg,
		log:          log,
		catalog:      catalog,
		analyzer:     analysis.NewAnalyzer(textGen, log.Named("analysis")),
		prefsRepo:    preferences.NewRepository(db.SQL),
		sessionRepo:  session.NewRepository(db.SQL),
		planRepo:     planner.NewPlanRepository(db.SQL, log.Named("history")),
		shoppingRepo: shopping.NewRepository(db.SQL),
		metricsStore: metrics.NewStore(db.SQL),
		newRand:      func() planner.Rand { return planner.NewRand(uint64(time.Now().UnixNano())) },
	}
}

// PlanRequest asks for a new weekly plan. Preferences override the stored
// ones field by field; SessionID continues an existing session.
type PlanRequest struct {
	UserID      string                   `json:"user_id"`
	Preferences *preferences.Preferences `json:"preferences,omitempty"`
	SessionID   string                   `json:"session_id,omitempty"`
}

// PlanResult is everything produced for one request.
type PlanResult struct {
	MealPlan     planner.WeeklyPlan      `json:"meal_plan"`
	Analysis     analysis.Report         `json:"analysis"`
	ShoppingList map[string]string       `json:"shopping_list"`
	Preferences  preferences.Preferences `json:"preferences"`
	SessionID    string                  `json:"session_id"`
	HistoryID    int64                   `json:"history_id"`
	Timestamp    string                  `json:"timestamp"`
}

func (a *App) defaults() preferences.Defaults {
	return preferences.Defaults{
		DietType:      a.cfg.DefaultDietType,
		CalorieTarget: a.cfg.DefaultCalorieTarget,
	}
}

// GeneratePlan runs the full workflow: resolve preferences, read recent
// history, generate and analyze the plan, build the shopping list, then
// persist. Only a failure to append history fails the request; other
// persistence errors are logged.
func (a *App) GeneratePlan(ctx context.Context, req PlanRequest) (*PlanResult, error) {
	if req.UserID == "" {
		return nil, ErrMissingUserID
	}
	log := a.log.With(zap.String("user_id", req.UserID))

	prefs := a.resolvePreferences(ctx, log, req)

	recent, err := a.planRepo.RecentMealNames(ctx, req.UserID, a.cfg.HistoryWindow)
	if err != nil {
		log.Warn("failed to read recent history, continuing without it", zap.Error(err))
		recent = nil
	}

	start := time.Now()
	plan := planner.NewGenerator(a.catalog, a.newRand()).GeneratePlan(prefs.Request(), recent)
	plannerMeta := shared.AgentMeta{AgentName: shared.AgentPlanner, Latency: time.Since(start), Success: true}
	log.Info("plan generated",
		zap.String("diet_type", prefs.DietType),
		zap.Int("calorie_target", prefs.CalorieTarget),
		zap.Int("recent_meals", len(recent)),
		zap.Duration("latency", plannerMeta.Latency))

	report, insightsMeta := a.analyzer.Analyze(ctx, plan, analysis.GoalFromList(prefs.Goals))
	list := shopping.BuildList(plan)

	sessionID := a.ensureSession(ctx, log, req)

	if _, err := a.prefsRepo.Save(ctx, req.UserID, prefs); err != nil {
		log.Error("failed to save preferences", zap.Error(err))
	}

	entry, err := a.planRepo.Append(ctx, req.UserID, plan, historyFeedback)
	if err != nil {
		return nil, fmt.Errorf("failed to save meal history: %w", err)
	}

	if _, err := a.shoppingRepo.Save(ctx, &shopping.List{UserID: req.UserID, HistoryID: entry.ID, Items: list}); err != nil {
		log.Error("failed to save shopping list", zap.Error(err))
	}

	if sessionID != "" {
		a.touchSession(ctx, log, sessionID, entry)
	}

	for _, meta := range []shared.AgentMeta{plannerMeta, insightsMeta} {
		if err := a.metricsStore.RecordMeta(ctx, meta); err != nil {
			log.Warn("failed to record metrics", zap.String("agent", meta.AgentName), zap.Error(err))
		}
	}

	return &PlanResult{
		MealPlan:     plan,
		Analysis:     report,
		ShoppingList: list,
		Preferences:  prefs,
		SessionID:    sessionID,
		HistoryID:    entry.ID,
		Timestamp:    entry.Timestamp,
	}, nil
}

func (a *App) resolvePreferences(ctx context.Context, log *zap.Logger, req PlanRequest) preferences.Preferences {
	var base preferences.Preferences
	stored, err := a.prefsRepo.Get(ctx, req.UserID)
	if err != nil {
		log.Warn("failed to load stored preferences, using defaults", zap.Error(err))
	} else if stored != nil {
		base = stored.Preferences
	}
	return preferences.Merge(base, req.Preferences).Normalize(a.defaults())
}

func (a *App) ensureSession(ctx context.Context, log *zap.Logger, req PlanRequest) string {
	if req.SessionID != "" {
		s, err := a.sessionRepo.Get(ctx, req.SessionID)
		if err != nil {
			log.Warn("failed to load session", zap.String("session_id", req.SessionID), zap.Error(err))
		} else if s != nil && s.UserID == req.UserID {
			return s.ID
		}
	}

	s, err := a.sessionRepo.Create(ctx, req.UserID)
	if err != nil {
		log.Error("failed to create session", zap.Error(err))
		return ""
	}
	return s.ID
}

func (a *App) touchSession(ctx context.Context, log *zap.Logger, id string, entry planner.HistoryEntry) {
	s, err := a.sessionRepo.Get(ctx, id)
	if err != nil || s == nil {
		log.Warn("session vanished before update", zap.String("session_id", id), zap.Error(err))
		return
	}
	data := s.Context
	data.LastHistoryID = entry.ID
	data.LastPlanAt = entry.Timestamp
	data.PlansCreated++
	if _, err := a.sessionRepo.Update(ctx, id, data); err != nil {
		log.Warn("failed to update session", zap.String("session_id", id), zap.Error(err))
	}
}

// History returns the user's stored plans, newest first.
func (a *App) History(ctx context.Context, userID string, limit int) ([]planner.HistoryEntry, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	return a.planRepo.ListByUser(ctx, userID, limit)
}

// DeleteHistory removes one stored plan and its shopping lists, and reports
// whether the plan existed.
func (a *App) DeleteHistory(ctx context.Context, userID, timestamp string) (bool, error) {
	if userID == "" {
		return false, ErrMissingUserID
	}
	id, err := a.planRepo.Delete(ctx, userID, timestamp)
	if err != nil {
		return false, err
	}
	if id == 0 {
		return false, nil
	}
	if err := a.shoppingRepo.DeleteByHistoryID(ctx, id); err != nil {
		return true, fmt.Errorf("failed to delete shopping list of history %d: %w", id, err)
	}
	return true, nil
}

// ShoppingList returns the user's shopping list for one history entry, or
// the latest one when historyID is 0. It returns nil when there is none.
func (a *App) ShoppingList(ctx context.Context, userID string, historyID int64) (*shopping.List, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	if historyID == 0 {
		return a.shoppingRepo.LatestByUser(ctx, userID)
	}
	list, err := a.shoppingRepo.GetByHistoryID(ctx, historyID)
	if err != nil || list == nil || list.UserID != userID {
		return nil, err
	}
	return list, nil
}

// maxRecommendationScan bounds how much history Recommendations reads.
const maxRecommendationScan = 100

// Recommendation points back at a recent plan.
type Recommendation struct {
	Timestamp string   `json:"timestamp"`
	Sample    []string `json:"sample"`
}

// Recommendations returns up to limit of the user's most recent plans, each
// with its distinct meal names in serving order.
func (a *App) Recommendations(ctx context.Context, userID string, limit int) ([]Recommendation, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	entries, err := a.planRepo.ListByUser(ctx, userID, maxRecommendationScan)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	recs := make([]Recommendation, 0, len(entries))
	for _, e := range entries {
		var sample []string
		seen := make(map[string]bool)
		for _, name := range e.MealPlan.MealNames() {
			if !seen[name] {
				seen[name] = true
				sample = append(sample, name)
			}
		}
		recs = append(recs, Recommendation{Timestamp: e.Timestamp, Sample: sample})
	}
	return recs, nil
}

// Preferences returns the user's stored preferences, or nil.
func (a *App) Preferences(ctx context.Context, userID string) (*preferences.Stored, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	return a.prefsRepo.Get(ctx, userID)
}

// SavePreferences overlays update onto the stored preferences and saves
// the normalized result.
func (a *App) SavePreferences(ctx context.Context, userID string, update preferences.Preferences) (*preferences.Stored, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	var base preferences.Preferences
	stored, err := a.prefsRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		base = stored.Preferences
	}
	return a.prefsRepo.Save(ctx, userID, preferences.Merge(base, &update).Normalize(a.defaults()))
}

// Usage returns daily execution metrics for the last days.
func (a *App) Usage(ctx context.Context, days int) ([]metrics.DailyUsage, error) {
	return a.metricsStore.GetDailyUsage(ctx, days)
}

// Health reports process and data-directory metrics.
func (a *App) Health() metrics.SysHealth {
	return metrics.GetSysHealth(filepath.Dir(a.cfg.DatabasePath))
}

// CleanupMetrics removes execution metrics older than days.
func (a *App) CleanupMetrics(ctx context.Context, days int) (int64, error) {
	return a.metricsStore.Cleanup(ctx, days)
}

// CleanupSessions removes sessions idle for longer than maxIdle.
func (a *App) CleanupSessions(ctx context.Context, maxIdle time.Duration) (int64, error) {
	return a.sessionRepo.CleanupOlderThan(ctx, maxIdle)
}

// CatalogSize returns the number of recipes available to the planner.
func (a *App) CatalogSize() int { return a.catalog.Size() }
