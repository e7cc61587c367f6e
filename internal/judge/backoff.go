package judge

import "time"

// RateLimitDelay is the wait before retry number attempt+1 after a
// throttling error: min(base*2^attempt, maxBackoff) plus jitterFraction of
// half that delay. attempt starts at 0 and jitterFraction is in [0, 1).
func RateLimitDelay(attempt int, base, maxBackoff time.Duration, jitterFraction float64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := base
	for i := 0; i < attempt && delay < maxBackoff; i++ {
		delay *= 2
	}
	delay = min(delay, maxBackoff)

	jitterFraction = min(max(jitterFraction, 0), 1)
	jitter := time.Duration(float64(delay) * 0.5 * jitterFraction)
	return delay + jitter
}

// ParseRetryDelay is the linear wait after a malformed response. attempt
// starts at 1.
func ParseRetryDelay(attempt int) time.Duration {
	return time.Duration(max(attempt, 1)) * time.Second
}
