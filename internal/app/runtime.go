package app

import (
	"context"
	"errors"
	"fmt"

	"weekly-meal-planner/internal/config"
	"weekly-meal-planner/internal/database"
	"weekly-meal-planner/internal/ghost"
	"weekly-meal-planner/internal/llm"
	"weekly-meal-planner/internal/recipe"

	"go.uber.org/zap"
)

// Runtime is an App together with the resources it owns.
type Runtime struct {
	App           *App
	DB            *database.DB
	CatalogSource string

	textGen llm.TextGenerator
}

// CatalogSourcesFor returns the catalog sources named by cfg.
func CatalogSourcesFor(cfg *config.Config, db *database.DB, log *zap.Logger) CatalogSources {
	src := CatalogSources{
		Repo:     recipe.NewRepository(db.SQL, log.Named("recipes")),
		FilePath: cfg.RecipeCatalogPath,
	}
	if cfg.GhostURL != "" {
		src.Ghost = ghost.NewClient(cfg)
	}
	return src
}

// Open connects the database, loads the catalog and builds the text
// generator selected by cfg.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Runtime, error) {
	db, err := database.NewDB(cfg.DatabasePath, log.Named("database"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	catalog, source, err := LoadCatalog(ctx, CatalogSourcesFor(cfg, db, log), log.Named("catalog"))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load recipe catalog: %w", err)
	}

	textGen, err := llm.New(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize text generator: %w", err)
	}
	if textGen == nil {
		log.Info("no LLM provider configured, AI insights disabled")
	} else {
		log.Info("LLM provider configured", zap.String("provider", cfg.LLMProvider))
	}

	return &Runtime{
		App:           NewApp(cfg, log, db, catalog, textGen),
		DB:            db,
		CatalogSource: source,
		textGen:       textGen,
	}, nil
}

// Close releases the generator and the database.
func (r *Runtime) Close() error {
	var errs []error
	if c, ok := r.textGen.(llm.Closer); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, r.DB.Close())
	return errors.Join(errs...)
}
