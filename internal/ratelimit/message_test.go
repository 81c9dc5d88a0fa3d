package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaitMessage(t *testing.T) {
	tests := []struct {
		wait time.Duration
		want string
	}{
		{0, "Too many attempts. Please try again in 1 second."},
		{1500 * time.Millisecond, "Too many attempts. Please try again in 2 seconds."},
		{time.Minute, "Too many attempts. Please try again in 1 minute."},
		{14*time.Minute + time.Second, "Too many attempts. Please try again in 15 minutes."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WaitMessage(tt.wait), tt.wait.String())
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, RetryAfterSeconds(0))
	assert.Equal(t, 1, RetryAfterSeconds(-time.Second))
	assert.Equal(t, 3, RetryAfterSeconds(2100*time.Millisecond))
	assert.Equal(t, 900, RetryAfterSeconds(15*time.Minute))
}
