package config

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"loopbot/model"
)

// Cfg is the configuration loaded by LoadConfig.
var Cfg model.Config

var defaults = map[string]interface{}{
	"COMMAND_PREFIX":        "!",
	"DB_PATH":               "data/rankings.db",
	"RUN_SCHEDULE":          true,
	"DAILY_HOUR":            4,
	"DAILY_MINUTE":          0,
	"LEADERBOARD_HOUR":      4,
	"LEADERBOARD_MINUTE":    5,
	"VOTE_SUMMARY_HOUR":     0,
	"VOTE_SUMMARY_MINUTE":   0,
	"VOTE_WINDOW_HOURS":     24,
	"CRYPTO_INTERVAL_HOURS": 1,
	"CRYPTO_LIVE_INTERVAL":  "5s",
	"CRYPTO_TICKERS":        "bitcoin,ethereum,ripple,solana",
	"HTTP_TIMEOUT":          "10s",
	"GUIDELINES_PATH":       "community_guidelines.md",
	"AI_PROVIDER":           "openai",
	"AI_MODEL":              "gpt-4o",
	"CHAT_MODEL":            "gpt-4o",
	"MINIO_BUCKET":          "loopbot-submissions",
}

// keys without a default still need binding so AutomaticEnv picks them up on Unmarshal.
var envKeys = []string{
	"DISCORD_BOT_TOKEN", "RUN_MODE", "DAILY_BANNER_URL",
	"CHALLENGE_CHANNEL_ID", "SUBMISSIONS_CHANNEL_ID", "VOTING_HALL_CHANNEL_ID",
	"LEADERBOARD_CHANNEL_ID", "CRYPTO_CHANNEL_ID", "WELCOME_CHANNEL_ID",
	"RULES_CHANNEL_ID", "MODERATOR_CHANNEL_ID", "MEMES_CHANNEL_ID",
	"OWNER_ID", "ADMIN_ROLE_IDS", "XP_ROLE_L3", "XP_ROLE_L5", "XP_ROLE_L10",
	"OPENAI_API_KEY", "GEMINI_API_KEY", "PROMPT_FEED_URL",
	"SPOTIFY_CLIENT_ID", "SPOTIFY_CLIENT_SECRET", "GIPHY_API_KEY", "REDIS_URL",
	"MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_USE_SSL",
	"HTTP_ADDR", "GRPC_ADDR",
}

// LoadConfig reads .env, config.yaml (optional) and the environment into Cfg.
// runMode, when non-empty, overrides RUN_MODE.
func LoadConfig(runMode string) error {
	cfg, err := Load(viper.New(), runMode)
	if err != nil {
		return err
	}
	Cfg = *cfg
	return nil
}

// Load builds a Config from v. Missing required values are reported as one error.
func Load(v *viper.Viper, runMode string) (*model.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("⚠️ Could not read .env: %v", err)
	}

	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config.yaml: %w", err)
		}
	}

	if runMode != "" {
		v.Set("RUN_MODE", runMode)
	}

	var cfg model.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
