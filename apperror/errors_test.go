package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorClassification(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := fmt.Errorf("record: %w", Storage("insert submission", cause))

	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "disk I/O error")
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", Validation("Score must be between 1 and 10."), "❌ Score must be between 1 and 10."},
		{"duplicate", Duplicate("You have already voted on this submission."), "⚠️ You have already voted on this submission."},
		{"window", New(ErrWindowClosed, "late", nil), "⏰ Voting for this submission has closed."},
		{"external", External("coingecko", errors.New("timeout")), "⚠️ That service is unavailable right now, try again later."},
		{"storage", Storage("credit", errors.New("locked")), "⚠️ Something went wrong saving that. Nothing was recorded."},
		{"unknown", errors.New("boom"), "⚠️ Something went wrong."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}

func TestIsKind(t *testing.T) {
	err := NotFound("Submission 4 not found.")
	assert.True(t, IsKind(err, ErrValidation, ErrNotFound))
	assert.False(t, IsKind(err, ErrStorage))
	assert.False(t, IsKind(nil, ErrNotFound))
}
