package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySeen(t *testing.T) {
	m := NewMemorySeen(time.Hour)
	defer m.Close()

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	first, err := m.MarkSeen(context.Background(), "https://img.test/a.png")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := m.MarkSeen(context.Background(), "https://img.test/a.png")
	require.NoError(t, err)
	assert.False(t, again)

	now = now.Add(2 * time.Hour)
	m.sweep()
	assert.Equal(t, 0, m.Len())

	expired, err := m.MarkSeen(context.Background(), "https://img.test/a.png")
	require.NoError(t, err)
	assert.True(t, expired)
}

func TestNewRedisSeen_BadURL(t *testing.T) {
	_, err := NewRedisSeen("not a url", "loopbot:", time.Hour)
	assert.Error(t, err)
}
