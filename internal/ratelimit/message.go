package ratelimit

import (
	"fmt"
	"math"
	"time"
)

// RetryAfterSeconds rounds a wait up to whole seconds, never below one.
func RetryAfterSeconds(wait time.Duration) int {
	s := int(math.Ceil(wait.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}

// WaitMessage is the user-facing text for a refused attempt.
func WaitMessage(wait time.Duration) string {
	if wait < time.Minute {
		n := RetryAfterSeconds(wait)
		if n == 1 {
			return "Too many attempts. Please try again in 1 second."
		}
		return fmt.Sprintf("Too many attempts. Please try again in %d seconds.", n)
	}
	m := int(math.Ceil(wait.Minutes()))
	if m == 1 {
		return "Too many attempts. Please try again in 1 minute."
	}
	return fmt.Sprintf("Too many attempts. Please try again in %d minutes.", m)
}
