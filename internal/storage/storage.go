package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"weekly-meal-planner/internal/recipe"
)

// catalogFile is the on-disk layout: {"recipes": {"breakfast": [...], ...}}.
type catalogFile struct {
	Recipes map[string][]recipe.Recipe `json:"recipes"`
}

// LoadCatalog reads a recipe catalog from a JSON file. Unknown slot keys are
// kept so that Validate can report them.
func LoadCatalog(path string) (recipe.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var f catalogFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog: %w", err)
	}
	if f.Recipes == nil {
		return nil, fmt.Errorf("catalog file %s has no \"recipes\" object", path)
	}

	c := make(recipe.Catalog, len(f.Recipes))
	for key, pool := range f.Recipes {
		slot, ok := recipe.ParseSlot(key)
		if !ok {
			slot = recipe.MealSlot(key)
		}
		c[slot] = append(c[slot], pool...)
	}
	return c, nil
}

// SaveCatalog writes the catalog to path. The file is written to a temporary
// sibling and renamed so readers never observe a partial file.
func SaveCatalog(path string, c recipe.Catalog) error {
	f := catalogFile{Recipes: make(map[string][]recipe.Recipe, len(c))}
	for slot, pool := range c {
		f.Recipes[string(slot)] = pool
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write catalog file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close catalog file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move catalog file into place: %w", err)
	}
	return nil
}

// Exists reports whether a catalog file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
