package signals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	MAX_RETRIES     = 3
	INITIAL_BACKOFF = 500 * time.Millisecond
	MAX_BACKOFF     = 4 * time.Second
	USER_AGENT      = "buzzdigest-signals/1.0 (+https://github.com/spacesedan/buzzdigest)"
)

var errNotFound = errors.New("resource not found")

// getJSON GETs endpoint and decodes the body into out, retrying rate limits
// and server errors with capped exponential backoff.
func getJSON(ctx context.Context, client *http.Client, endpoint string, out any) error {
	var lastErr error
	backoff := INITIAL_BACKOFF

	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", USER_AGENT)
		req.Header.Set("Accept", "application/json")

		res, err := client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			retry, err := decodeResponse(res, out)
			if !retry {
				return err
			}
			lastErr = err
		}

		if attempt == MAX_RETRIES {
			break
		}
		slog.Debug("[Signals] Retrying request",
			slog.String("endpoint", endpoint),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.String("error", lastErr.Error()))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, MAX_BACKOFF)
	}
	return fmt.Errorf("failed after %d attempts: %w", MAX_RETRIES, lastErr)
}

// decodeResponse consumes res and reports whether the request is worth retrying.
func decodeResponse(res *http.Response, out any) (bool, error) {
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusOK:
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return false, fmt.Errorf("decode response: %w", err)
		}
		return false, nil
	case res.StatusCode == http.StatusNotFound:
		return false, errNotFound
	case res.StatusCode == http.StatusTooManyRequests, res.StatusCode >= http.StatusInternalServerError:
		_, _ = io.Copy(io.Discard, res.Body)
		return true, fmt.Errorf("unexpected status %d", res.StatusCode)
	default:
		_, _ = io.Copy(io.Discard, res.Body)
		return false, fmt.Errorf("unexpected status %d", res.StatusCode)
	}
}
