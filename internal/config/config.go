package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the configuration for the application.
type Config struct {
	DatabasePath      string
	RecipeCatalogPath string

	LLMProvider  string
	GeminiAPIKey string
	GeminiModel  string
	GroqAPIKey   string

	// Ghost is an optional read-only catalog source.
	GhostURL        string
	GhostContentKey string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64

	APIJWTSecret string
	Port         string

	DefaultDietType      string
	DefaultCalorieTarget int
	HistoryWindow        int

	LogLevel  string
	LogFormat string
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	cfg := &Config{
		DatabasePath:       getEnv("DATABASE_PATH", "data/meal_planner.db"),
		RecipeCatalogPath:  os.Getenv("RECIPE_CATALOG_PATH"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GroqAPIKey:         os.Getenv("GROQ_API_KEY"),
		GhostURL:           os.Getenv("GHOST_API_URL"),
		GhostContentKey:    os.Getenv("GHOST_CONTENT_API_KEY"),
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL: os.Getenv("TELEGRAM_WEBHOOK_URL"),
		APIJWTSecret:       os.Getenv("API_JWT_SECRET"),
		Port:               getEnv("PORT", "8080"),
		DefaultDietType:    getEnv("DEFAULT_DIET_TYPE", "vegetarian"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
	}

	if cfg.GhostURL != "" && cfg.GhostContentKey == "" {
		return nil, fmt.Errorf("GHOST_CONTENT_API_KEY environment variable not set")
	}

	provider, err := resolveProvider(os.Getenv("LLM_PROVIDER"), cfg.GeminiAPIKey, cfg.GroqAPIKey)
	if err != nil {
		return nil, err
	}
	cfg.LLMProvider = provider

	if cfg.DefaultCalorieTarget, err = getEnvInt("DEFAULT_CALORIE_TARGET", 2000); err != nil {
		return nil, err
	}
	if cfg.HistoryWindow, err = getEnvInt("HISTORY_WINDOW", 3); err != nil {
		return nil, err
	}

	adminID, err := getEnvInt("ADMIN_TELEGRAM_ID", 0)
	if err != nil {
		return nil, err
	}
	cfg.AdminTelegramID = int64(adminID)

	if raw := os.Getenv("TELEGRAM_ALLOWED_USER_IDS"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS entry %q: %w", part, err)
			}
			cfg.TelegramAllowedUserIDs = append(cfg.TelegramAllowedUserIDs, id)
		}
	}

	return cfg, nil
}

// resolveProvider picks the insights backend. An empty provider means
// whichever key is present, Gemini first.
func resolveProvider(provider, geminiKey, groqKey string) (string, error) {
	switch strings.ToLower(provider) {
	case "":
		if geminiKey != "" {
			return "gemini", nil
		}
		if groqKey != "" {
			return "groq", nil
		}
		return "none", nil
	case "none":
		return "none", nil
	case "gemini":
		if geminiKey == "" {
			return "", fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
		return "gemini", nil
	case "groq":
		if groqKey == "" {
			return "", fmt.Errorf("GROQ_API_KEY environment variable not set")
		}
		return "groq", nil
	default:
		return "", fmt.Errorf("unsupported LLM_PROVIDER %q", provider)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	return n, nil
}
