package app

import (
	"context"
	"fmt"

	"weekly-meal-planner/internal/ghost"
	"weekly-meal-planner/internal/recipe"
	"weekly-meal-planner/internal/storage"

	"go.uber.org/zap"
)

// Catalog sources reported by LoadCatalog and ImportCatalog.
const (
	SourceRepository = "repository"
	SourceFile       = "file"
	SourceGhost      = "ghost"
	SourceSample     = "sample"
)

// CatalogSources lists where a catalog may come from. Empty fields are
// skipped.
type CatalogSources struct {
	Repo     *recipe.Repository
	FilePath string
	Ghost    ghost.Client
}

// LoadCatalog returns the first available catalog: the repository when it
// holds recipes, then the JSON file, then Ghost, then the sample set. A
// catalog read from anywhere but the repository is persisted to it.
func LoadCatalog(ctx context.Context, src CatalogSources, log *zap.Logger) (recipe.Catalog, string, error) {
	if src.Repo != nil {
		n, err := src.Repo.Count(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("failed to count stored recipes: %w", err)
		}
		if n > 0 {
			c, err := src.Repo.List(ctx)
			if err != nil {
				return nil, "", fmt.Errorf("failed to list stored recipes: %w", err)
			}
			if err := checkCatalog(c, log); err != nil {
				return nil, "", err
			}
			log.Info("catalog loaded", zap.String("source", SourceRepository), zap.Int("recipes", c.Size()))
			return c, SourceRepository, nil
		}
	}
	return ImportCatalog(ctx, src, log)
}

// ImportCatalog reads the catalog from the file, Ghost or the sample set,
// ignoring what the repository already holds, and replaces the stored
// recipes with it.
func ImportCatalog(ctx context.Context, src CatalogSources, log *zap.Logger) (recipe.Catalog, string, error) {
	c, source, err := readCatalog(ctx, src, log)
	if err != nil {
		return nil, "", err
	}
	if err := checkCatalog(c, log); err != nil {
		return nil, "", err
	}

	if src.Repo != nil {
		if err := src.Repo.SaveCatalog(ctx, c); err != nil {
			return nil, "", fmt.Errorf("failed to persist catalog: %w", err)
		}
	}
	log.Info("catalog loaded", zap.String("source", source), zap.Int("recipes", c.Size()))
	return c, source, nil
}

func readCatalog(ctx context.Context, src CatalogSources, log *zap.Logger) (recipe.Catalog, string, error) {
	if src.FilePath != "" {
		if !storage.Exists(src.FilePath) {
			return nil, "", fmt.Errorf("catalog file %s does not exist", src.FilePath)
		}
		c, err := storage.LoadCatalog(src.FilePath)
		if err != nil {
			return nil, "", err
		}
		return c, SourceFile, nil
	}

	if src.Ghost != nil {
		posts, err := src.Ghost.FetchRecipes(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("failed to fetch recipes from ghost: %w", err)
		}
		c, errs := ghost.CatalogFromPosts(posts)
		for _, err := range errs {
			log.Warn("skipping ghost post", zap.Error(err))
		}
		if c.Size() > 0 {
			return c, SourceGhost, nil
		}
		log.Warn("ghost returned no recipes, using sample catalog", zap.Int("posts", len(posts)))
	}

	return recipe.SampleCatalog(), SourceSample, nil
}

func checkCatalog(c recipe.Catalog, log *zap.Logger) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid recipe catalog: %w", err)
	}
	for slot, names := range c.Duplicates() {
		log.Warn("duplicate recipe names", zap.String("slot", string(slot)), zap.Strings("names", names))
	}
	return nil
}
