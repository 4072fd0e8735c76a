package model

import "time"

// Config is the top-level structure of config.yaml and the environment.
type Config struct {
	Token   string `mapstructure:"DISCORD_BOT_TOKEN" validate:"required_unless=RunMode standings"`
	Prefix  string `mapstructure:"COMMAND_PREFIX" validate:"required"`
	DBPath  string `mapstructure:"DB_PATH" validate:"required"`
	RunMode string `mapstructure:"RUN_MODE" validate:"omitempty,oneof=daily leaderboard standings"`

	Channels     Channels     `mapstructure:",squash"`
	Schedule     Schedule     `mapstructure:",squash"`
	Auth         Auth         `mapstructure:",squash"`
	Roles        Roles        `mapstructure:",squash"`
	AI           AI           `mapstructure:",squash"`
	Integrations Integrations `mapstructure:",squash"`
	Servers      Servers      `mapstructure:",squash"`
}

// Channels holds the guild channel IDs the bot posts to or listens on.
type Channels struct {
	Challenge   string `mapstructure:"CHALLENGE_CHANNEL_ID"`
	Submissions string `mapstructure:"SUBMISSIONS_CHANNEL_ID"`
	VotingHall  string `mapstructure:"VOTING_HALL_CHANNEL_ID"`
	Leaderboard string `mapstructure:"LEADERBOARD_CHANNEL_ID"`
	Crypto      string `mapstructure:"CRYPTO_CHANNEL_ID"`
	Welcome     string `mapstructure:"WELCOME_CHANNEL_ID"`
	Rules       string `mapstructure:"RULES_CHANNEL_ID"`
	Moderator   string `mapstructure:"MODERATOR_CHANNEL_ID"`
	Memes       string `mapstructure:"MEMES_CHANNEL_ID"`
}

// Schedule holds the UTC wall-clock times of the periodic jobs.
type Schedule struct {
	Enabled             bool          `mapstructure:"RUN_SCHEDULE"`
	DailyHour           int           `mapstructure:"DAILY_HOUR" validate:"gte=0,lte=23"`
	DailyMinute         int           `mapstructure:"DAILY_MINUTE" validate:"gte=0,lte=59"`
	LeaderboardHour     int           `mapstructure:"LEADERBOARD_HOUR" validate:"gte=0,lte=23"`
	LeaderboardMinute   int           `mapstructure:"LEADERBOARD_MINUTE" validate:"gte=0,lte=59"`
	VoteSummaryHour     int           `mapstructure:"VOTE_SUMMARY_HOUR" validate:"gte=0,lte=23"`
	VoteSummaryMinute   int           `mapstructure:"VOTE_SUMMARY_MINUTE" validate:"gte=0,lte=59"`
	VoteWindowHours     int           `mapstructure:"VOTE_WINDOW_HOURS" validate:"gt=0"`
	CryptoIntervalHours int           `mapstructure:"CRYPTO_INTERVAL_HOURS" validate:"gt=0"`
	CryptoLiveInterval  time.Duration `mapstructure:"CRYPTO_LIVE_INTERVAL" validate:"gt=0"`
	HTTPTimeout         time.Duration `mapstructure:"HTTP_TIMEOUT" validate:"gt=0"`
	BannerURL           string        `mapstructure:"DAILY_BANNER_URL" validate:"omitempty,url"`
	GuidelinesPath      string        `mapstructure:"GUIDELINES_PATH"`
}

// VoteWindow returns the configured voting window as a duration.
func (s Schedule) VoteWindow() time.Duration {
	return time.Duration(s.VoteWindowHours) * time.Hour
}

// Auth holds the owner and admin role IDs.
type Auth struct {
	OwnerID      string   `mapstructure:"OWNER_ID"`
	AdminRoleIDs []string `mapstructure:"ADMIN_ROLE_IDS"`
}

// Roles maps level tiers to guild role IDs.
type Roles struct {
	Level3  string `mapstructure:"XP_ROLE_L3"`
	Level5  string `mapstructure:"XP_ROLE_L5"`
	Level10 string `mapstructure:"XP_ROLE_L10"`
}

// AI selects the LLM backend and its models.
type AI struct {
	Provider      string `mapstructure:"AI_PROVIDER" validate:"omitempty,oneof=openai gemini"`
	OpenAIKey     string `mapstructure:"OPENAI_API_KEY"`
	GeminiKey     string `mapstructure:"GEMINI_API_KEY"`
	PromptModel   string `mapstructure:"AI_MODEL"`
	ChatModel     string `mapstructure:"CHAT_MODEL"`
	PromptFeedURL string `mapstructure:"PROMPT_FEED_URL" validate:"omitempty,url"`
}

// Integrations holds credentials for the auxiliary services.
type Integrations struct {
	CryptoTickers       []string `mapstructure:"CRYPTO_TICKERS"`
	SpotifyClientID     string   `mapstructure:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string   `mapstructure:"SPOTIFY_CLIENT_SECRET"`
	GiphyAPIKey         string   `mapstructure:"GIPHY_API_KEY"`
	RedisURL            string   `mapstructure:"REDIS_URL"`
	MinioEndpoint       string   `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey      string   `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey      string   `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket         string   `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL         bool     `mapstructure:"MINIO_USE_SSL"`
}

// Servers holds the listen addresses of the read-only status surfaces.
type Servers struct {
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
}
