package config

import (
	"fmt"
	"os"
	"strconv"

	"battle-arena/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	DBPath     string
	ServerPort string
	LogLevel   string

	// EliminationThreshold is the injury count at or above which a
	// participant is considered eliminated.
	EliminationThreshold int

	// DefenseHoldingCap is the maximum number of defense items one
	// owner may hold; enforced on transfer.
	DefenseHoldingCap int

	// NotifyWebhookURL, when set, receives battle events as JSON POSTs.
	NotifyWebhookURL string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:               getEnv("DB_PATH", "arena.db"),
		ServerPort:           getEnv("SERVER_PORT", "8080"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		EliminationThreshold: getEnvInt("ELIMINATION_THRESHOLD", constants.DefaultEliminationThreshold),
		DefenseHoldingCap:    getEnvInt("DEFENSE_HOLDING_CAP", constants.DefaultDefenseHoldingCap),
		NotifyWebhookURL:     getEnv("NOTIFY_WEBHOOK_URL", ""),
	}

	if cfg.EliminationThreshold < 1 {
		return nil, fmt.Errorf("ELIMINATION_THRESHOLD must be >= 1, got %d", cfg.EliminationThreshold)
	}
	if cfg.DefenseHoldingCap < 1 {
		return nil, fmt.Errorf("DEFENSE_HOLDING_CAP must be >= 1, got %d", cfg.DefenseHoldingCap)
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Int("elimination_threshold", cfg.EliminationThreshold).
		Int("defense_holding_cap", cfg.DefenseHoldingCap).
		Bool("webhook_enabled", cfg.NotifyWebhookURL != "").
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

var Module = fx.Provide(Load)
