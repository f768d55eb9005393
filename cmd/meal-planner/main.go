package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"weekly-meal-planner/internal/api"
	"weekly-meal-planner/internal/app"
	"weekly-meal-planner/internal/config"
	"weekly-meal-planner/internal/database"
	"weekly-meal-planner/internal/logger"
	"weekly-meal-planner/internal/planner"
	"weekly-meal-planner/internal/preferences"
	"weekly-meal-planner/internal/recipe"
	"weekly-meal-planner/internal/shopping"
	"weekly-meal-planner/internal/storage"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()
	cmd, args := os.Args[1], os.Args[2:]

	switch cmd {
	case "generate":
		err = runGenerate(ctx, cfg, log, args)
	case "history":
		err = runHistory(ctx, cfg, log, args)
	case "import-catalog":
		err = runImportCatalog(ctx, cfg, log)
	case "export-catalog":
		err = runExportCatalog(ctx, cfg, log, args)
	case "serve":
		err = runServe(ctx, cfg, log)
	case "token":
		err = runToken(cfg, args)
	case "metrics-cleanup":
		err = runMetricsCleanup(ctx, cfg, log, args)
	case "sessions-cleanup":
		err = runSessionsCleanup(ctx, cfg, log, args)
	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Error("command failed", zap.String("command", cmd), zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: meal-planner <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  generate           Generate a weekly meal plan")
	fmt.Println("  history            List stored plans for a user")
	fmt.Println("  import-catalog     Reload recipes from the catalog file, Ghost or the sample set")
	fmt.Println("  export-catalog     Write the stored catalog to a JSON file")
	fmt.Println("  serve              Run the HTTP API")
	fmt.Println("  token              Mint an API token for a user")
	fmt.Println("  metrics-cleanup    Remove old metric records")
	fmt.Println("  sessions-cleanup   Remove idle sessions")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func runGenerate(ctx context.Context, cfg *config.Config, log *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	user := fs.String("user", "cli", "User ID to plan for")
	diet := fs.String("diet", "", "Diet type override")
	calories := fs.Int("calories", 0, "Daily calorie target override")
	allergies := fs.String("allergies", "", "Comma separated allergies")
	goals := fs.String("goals", "", "Comma separated goals")
	asJSON := fs.Bool("json", false, "Print the full result as JSON")
	fs.Parse(args)

	rt, err := app.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	res, err := rt.App.GeneratePlan(ctx, app.PlanRequest{
		UserID: *user,
		Preferences: &preferences.Preferences{
			DietType:      *diet,
			CalorieTarget: *calories,
			Allergies:     splitList(*allergies),
			Goals:         splitList(*goals),
		},
	})
	if err != nil {
		return err
	}

	if *asJSON {
		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	printPlan(res)
	return nil
}

func printPlan(res *app.PlanResult) {
	fmt.Printf("\n--- Weekly Meal Plan (%s, %d kcal/day) ---\n", res.Preferences.DietType, res.Preferences.CalorieTarget)
	for i, day := range res.MealPlan.Days {
		fmt.Printf("\n%s (%.0f kcal)\n", planner.Weekdays[i], day.TotalCalories)
		for _, slot := range recipe.Slots {
			fmt.Printf("  %-10s %s\n", slot.Title()+":", day.Meals.Get(slot).Name)
		}
	}

	fmt.Printf("\nOverall score: %.1f/10\n", res.Analysis.OverallScore)
	for _, rec := range res.Analysis.Recommendations {
		fmt.Printf("  - %s\n", rec)
	}

	fmt.Println("\n--- Shopping List ---")
	for _, line := range shopping.Lines(res.ShoppingList) {
		fmt.Printf("  - %s\n", line)
	}
	fmt.Printf("\nSaved as history #%d (session %s)\n", res.HistoryID, res.SessionID)
}

func runHistory(ctx context.Context, cfg *config.Config, log *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	user := fs.String("user", "cli", "User ID")
	limit := fs.Int("limit", api.DefaultHistoryLimit, "Maximum number of plans, 0 for all")
	fs.Parse(args)

	rt, err := app.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	entries, err := rt.App.History(ctx, *user, *limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Printf("No plans stored for %s.\n", *user)
		return nil
	}
	for _, e := range entries {
		fmt.Printf("#%d  %s  %.0f kcal  %s\n", e.ID, e.Timestamp, e.MealPlan.TotalCalories(), strings.Join(e.MealPlan.Days[0].Meals.Names(), ", "))
	}
	return nil
}

func runImportCatalog(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	db, err := database.NewDB(cfg.DatabasePath, log.Named("database"))
	if err != nil {
		return err
	}
	defer db.Close()

	c, source, err := app.ImportCatalog(ctx, app.CatalogSourcesFor(cfg, db, log), log.Named("catalog"))
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d recipes from %s.\n", c.Size(), source)
	return nil
}

func runExportCatalog(ctx context.Context, cfg *config.Config, log *zap.Logger, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: meal-planner export-catalog <path>")
	}

	db, err := database.NewDB(cfg.DatabasePath, log.Named("database"))
	if err != nil {
		return err
	}
	defer db.Close()

	c, err := recipe.NewRepository(db.SQL, log).List(ctx)
	if err != nil {
		return err
	}
	if err := storage.SaveCatalog(args[0], c); err != nil {
		return err
	}
	fmt.Printf("Exported %d recipes to %s.\n", c.Size(), args[0])
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	rt, err := app.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	if cfg.APIJWTSecret == "" {
		log.Warn("API_JWT_SECRET not set, API is unauthenticated")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewServer(rt.App, cfg.APIJWTSecret, log.Named("api")).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("API server listening", zap.String("port", cfg.Port), zap.String("catalog", rt.CatalogSource))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}
	log.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func runToken(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	user := fs.String("user", "", "User ID the token is issued for")
	ttl := fs.Duration("ttl", 30*24*time.Hour, "Token lifetime, 0 for no expiry")
	fs.Parse(args)

	if *user == "" {
		return errors.New("-user is required")
	}
	if cfg.APIJWTSecret == "" {
		return errors.New("API_JWT_SECRET environment variable not set")
	}
	token, err := api.IssueToken(cfg.APIJWTSecret, *user, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func runMetricsCleanup(ctx context.Context, cfg *config.Config, log *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
	days := fs.Int("days", 30, "Keep records for the last N days")
	fs.Parse(args)

	rt, err := app.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	affected, err := rt.App.CleanupMetrics(ctx, *days)
	if err != nil {
		return err
	}
	fmt.Printf("Successfully removed %d old metric records.\n", affected)
	return nil
}

func runSessionsCleanup(ctx context.Context, cfg *config.Config, log *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("sessions-cleanup", flag.ExitOnError)
	maxIdle := fs.Duration("max-idle", 7*24*time.Hour, "Remove sessions idle for longer than this")
	fs.Parse(args)

	rt, err := app.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	affected, err := rt.App.CleanupSessions(ctx, *maxIdle)
	if err != nil {
		return err
	}
	fmt.Printf("Successfully removed %d idle sessions.\n", affected)
	return nil
}
