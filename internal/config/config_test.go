package config

import (
	"testing"
)

func TestNewFromEnv(t *testing.T) {
	// Helper function to set environment variables for a test
	setEnv := func(key, value string) {
		t.Helper()
		t.Setenv(key, value)
	}

	clearAll := func() {
		for _, key := range []string{
			"DATABASE_PATH", "RECIPE_CATALOG_PATH", "LLM_PROVIDER", "GEMINI_API_KEY",
			"GEMINI_MODEL", "GROQ_API_KEY", "GHOST_API_URL", "GHOST_CONTENT_API_KEY",
			"TELEGRAM_BOT_TOKEN", "TELEGRAM_WEBHOOK_URL", "TELEGRAM_ALLOWED_USER_IDS",
			"ADMIN_TELEGRAM_ID", "API_JWT_SECRET", "PORT", "DEFAULT_DIET_TYPE",
			"DEFAULT_CALORIE_TARGET", "HISTORY_WINDOW", "LOG_LEVEL", "LOG_FORMAT",
		} {
			setEnv(key, "")
		}
	}

	t.Run("Defaults", func(t *testing.T) {
		clearAll()

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.DatabasePath != "data/meal_planner.db" {
			t.Errorf("Expected default DatabasePath, got '%s'", cfg.DatabasePath)
		}
		if cfg.DefaultDietType != "vegetarian" {
			t.Errorf("Expected DefaultDietType 'vegetarian', got '%s'", cfg.DefaultDietType)
		}
		if cfg.DefaultCalorieTarget != 2000 {
			t.Errorf("Expected DefaultCalorieTarget 2000, got %d", cfg.DefaultCalorieTarget)
		}
		if cfg.HistoryWindow != 3 {
			t.Errorf("Expected HistoryWindow 3, got %d", cfg.HistoryWindow)
		}
		if cfg.LLMProvider != "none" {
			t.Errorf("Expected LLMProvider 'none', got '%s'", cfg.LLMProvider)
		}
		if cfg.Port != "8080" {
			t.Errorf("Expected Port '8080', got '%s'", cfg.Port)
		}
	})

	t.Run("Success", func(t *testing.T) {
		clearAll()
		setEnv("DATABASE_PATH", "/tmp/plans.db")
		setEnv("GEMINI_API_KEY", "gemini_key")
		setEnv("GROQ_API_KEY", "groq_key")
		setEnv("TELEGRAM_ALLOWED_USER_IDS", "42, 7")
		setEnv("ADMIN_TELEGRAM_ID", "42")
		setEnv("DEFAULT_CALORIE_TARGET", "1800")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.DatabasePath != "/tmp/plans.db" {
			t.Errorf("Expected DatabasePath to be '/tmp/plans.db', got '%s'", cfg.DatabasePath)
		}
		if cfg.LLMProvider != "gemini" {
			t.Errorf("Expected LLMProvider 'gemini' when both keys are set, got '%s'", cfg.LLMProvider)
		}
		if len(cfg.TelegramAllowedUserIDs) != 2 || cfg.TelegramAllowedUserIDs[1] != 7 {
			t.Errorf("Expected allowed user IDs [42 7], got %v", cfg.TelegramAllowedUserIDs)
		}
		if cfg.AdminTelegramID != 42 {
			t.Errorf("Expected AdminTelegramID 42, got %d", cfg.AdminTelegramID)
		}
		if cfg.DefaultCalorieTarget != 1800 {
			t.Errorf("Expected DefaultCalorieTarget 1800, got %d", cfg.DefaultCalorieTarget)
		}
	})

	t.Run("GroqOnly", func(t *testing.T) {
		clearAll()
		setEnv("GROQ_API_KEY", "groq_key")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.LLMProvider != "groq" {
			t.Errorf("Expected LLMProvider 'groq', got '%s'", cfg.LLMProvider)
		}
	})

	t.Run("MissingGhostContentKey", func(t *testing.T) {
		clearAll()
		setEnv("GHOST_API_URL", "http://ghost.test")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for missing GHOST_CONTENT_API_KEY, got nil")
		}
		expectedError := "GHOST_CONTENT_API_KEY environment variable not set"
		if err.Error() != expectedError {
			t.Errorf("Expected error '%s', got '%s'", expectedError, err.Error())
		}
	})

	t.Run("MissingGeminiAPIKey", func(t *testing.T) {
		clearAll()
		setEnv("LLM_PROVIDER", "gemini")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for missing GEMINI_API_KEY, got nil")
		}
		expectedError := "GEMINI_API_KEY environment variable not set"
		if err.Error() != expectedError {
			t.Errorf("Expected error '%s', got '%s'", expectedError, err.Error())
		}
	})

	t.Run("InvalidCalorieTarget", func(t *testing.T) {
		clearAll()
		setEnv("DEFAULT_CALORIE_TARGET", "lots")

		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for a non-numeric DEFAULT_CALORIE_TARGET, got nil")
		}
	})

	t.Run("InvalidAllowedUserID", func(t *testing.T) {
		clearAll()
		setEnv("TELEGRAM_ALLOWED_USER_IDS", "42,abc")

		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for a malformed allowed user ID, got nil")
		}
	})
}
