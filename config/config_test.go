package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	t.Setenv("VOTE_WINDOW_HOURS", "48")
	t.Setenv("ADMIN_ROLE_IDS", "r1,r2")
	t.Setenv("SUBMISSIONS_CHANNEL_ID", "123")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.Token)
	assert.Equal(t, "!", cfg.Prefix)
	assert.Equal(t, "data/rankings.db", cfg.DBPath)
	assert.Equal(t, 48*time.Hour, cfg.Schedule.VoteWindow())
	assert.Equal(t, 5*time.Second, cfg.Schedule.CryptoLiveInterval)
	assert.Equal(t, 4, cfg.Schedule.DailyHour)
	assert.Equal(t, 5, cfg.Schedule.LeaderboardMinute)
	assert.True(t, cfg.Schedule.Enabled)
	assert.Equal(t, []string{"r1", "r2"}, cfg.Auth.AdminRoleIDs)
	assert.Equal(t, []string{"bitcoin", "ethereum", "ripple", "solana"}, cfg.Integrations.CryptoTickers)
	assert.Equal(t, "123", cfg.Channels.Submissions)
}

func TestLoad_MissingToken(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "")

	_, err := Load(viper.New(), "")
	assert.Error(t, err)
}

func TestLoad_RunMode(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "token")

	cfg, err := Load(viper.New(), "daily")
	require.NoError(t, err)
	assert.Equal(t, "daily", cfg.RunMode)

	_, err = Load(viper.New(), "weekly")
	assert.Error(t, err)
}

func TestLoad_StandingsWithoutToken(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "")
	t.Setenv("GRPC_ADDR", "localhost:50051")

	cfg, err := Load(viper.New(), "standings")
	require.NoError(t, err, "standings only talks to gRPC and needs no bot token")
	assert.Equal(t, "standings", cfg.RunMode)
	assert.Empty(t, cfg.Token)

	_, err = Load(viper.New(), "daily")
	assert.Error(t, err)
}
