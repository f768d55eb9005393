package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"weekly-meal-planner/internal/app"
	"weekly-meal-planner/internal/metrics"
	"weekly-meal-planner/internal/planner"
	"weekly-meal-planner/internal/preferences"
	"weekly-meal-planner/internal/shopping"

	"go.uber.org/zap"
)

// Limits used when a request carries none.
const (
	DefaultHistoryLimit        = 20
	DefaultRecommendationLimit = 5
)

// Service is the part of app.App the HTTP API serves.
type Service interface {
	GeneratePlan(ctx context.Context, req app.PlanRequest) (*app.PlanResult, error)
	History(ctx context.Context, userID string, limit int) ([]planner.HistoryEntry, error)
	DeleteHistory(ctx context.Context, userID, timestamp string) (bool, error)
	Preferences(ctx context.Context, userID string) (*preferences.Stored, error)
	ShoppingList(ctx context.Context, userID string, historyID int64) (*shopping.List, error)
	Recommendations(ctx context.Context, userID string, limit int) ([]app.Recommendation, error)
	Health() metrics.SysHealth
}

// Server exposes the meal planner over HTTP.
type Server struct {
	svc    Service
	log    *zap.Logger
	secret []byte
}

// NewServer returns a Server. An empty jwtSecret disables authentication.
func NewServer(svc Service, jwtSecret string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{svc: svc, log: log}
	if jwtSecret != "" {
		s.secret = []byte(jwtSecret)
	}
	return s
}

// Register adds the API routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/meal-plan/generate", s.handleGenerate)
	mux.HandleFunc("GET /api/meal-plan/history/{user_id}", s.handleHistory)
	mux.HandleFunc("DELETE /api/meal-plan/history/{user_id}/{timestamp}", s.handleDeleteHistory)
	mux.HandleFunc("GET /api/meal-plan/recommendations/{user_id}", s.handleRecommendations)
	mux.HandleFunc("GET /api/shopping/{user_id}", s.handleShopping)
	mux.HandleFunc("GET /api/preferences/{user_id}", s.handlePreferences)
	mux.HandleFunc("GET /health", s.handleHealth)
}

// Handler returns the routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return Logger(s.log)(mux)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req app.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, app.ErrMissingUserID.Error())
		return
	}
	if !s.authorize(w, r, req.UserID) {
		return
	}

	res, err := s.svc.GeneratePlan(r.Context(), req)
	if err != nil {
		s.fail(w, "failed to generate meal plan", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if !s.authorize(w, r, userID) {
		return
	}

	limit, ok := queryLimit(w, r, DefaultHistoryLimit)
	if !ok {
		return
	}

	entries, err := s.svc.History(r.Context(), userID, limit)
	if err != nil {
		s.fail(w, "failed to load meal history", err)
		return
	}
	if entries == nil {
		entries = []planner.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": userID, "history": entries})
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if !s.authorize(w, r, userID) {
		return
	}

	removed, err := s.svc.DeleteHistory(r.Context(), userID, r.PathValue("timestamp"))
	if err != nil {
		s.fail(w, "failed to delete meal history", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true, "removed": removed})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if !s.authorize(w, r, userID) {
		return
	}
	limit, ok := queryLimit(w, r, DefaultRecommendationLimit)
	if !ok {
		return
	}

	recs, err := s.svc.Recommendations(r.Context(), userID, limit)
	if err != nil {
		s.fail(w, "failed to load recommendations", err)
		return
	}
	if recs == nil {
		recs = []app.Recommendation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": userID, "recommendations": recs})
}

func (s *Server) handleShopping(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if !s.authorize(w, r, userID) {
		return
	}

	var historyID int64
	if v := r.URL.Query().Get("history_id"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "history_id must be a positive integer")
			return
		}
		historyID = n
	}

	list, err := s.svc.ShoppingList(r.Context(), userID, historyID)
	if err != nil {
		s.fail(w, "failed to load shopping list", err)
		return
	}
	if list == nil {
		writeError(w, http.StatusNotFound, "no shopping list for user")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handlePreferences(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if !s.authorize(w, r, userID) {
		return
	}

	stored, err := s.svc.Preferences(r.Context(), userID)
	if err != nil {
		s.fail(w, "failed to load preferences", err)
		return
	}
	if stored == nil {
		writeError(w, http.StatusNotFound, "no preferences stored for user")
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Health())
}

// queryLimit parses the optional limit query parameter. It writes the error
// response and returns false when the value is invalid.
func queryLimit(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return 0, false
	}
	return n, true
}

// authorize enforces that the bearer token's subject is userID. It writes the
// error response and returns false when access is denied.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, userID string) bool {
	if s.secret == nil {
		return true
	}
	sub, err := subjectFromRequest(r, s.secret)
	if err != nil {
		s.log.Debug("rejected request", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusUnauthorized, err.Error())
		return false
	}
	if sub != userID {
		s.log.Warn("token subject mismatch", zap.String("subject", sub), zap.String("user_id", userID))
		writeError(w, http.StatusForbidden, errForbidden.Error())
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, app.ErrMissingUserID) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.log.Error(msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Logger logs one line per request.
func Logger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status_code", wrapped.statusCode),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
