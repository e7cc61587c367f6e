package signals

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/spacesedan/buzzdigest/internal/utils"
)

const (
	HATENA_COUNT_ENDPOINT = "https://bookmark.hatenaapis.com/count/entries"
	HATENA_CHUNK_SIZE     = 50
)

// HatenaFetcher scores URLs by their Hatena bookmark counts.
type HatenaFetcher struct {
	Client   *http.Client
	Endpoint string
}

func NewHatenaFetcher(client *http.Client) *HatenaFetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HatenaFetcher{Client: client, Endpoint: HATENA_COUNT_ENDPOINT}
}

// FetchBatch queries counts in chunks. The API omits URLs with no bookmarks,
// so every URL of a successful chunk gets a value; a failed chunk leaves its
// URLs absent.
func (h *HatenaFetcher) FetchBatch(ctx context.Context, urls []string) (map[string]float64, error) {
	out := make(map[string]float64, len(urls))

	for _, chunk := range utils.Chunk(urls, HATENA_CHUNK_SIZE) {
		counts, err := h.fetchChunk(ctx, chunk)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			slog.Warn("[Hatena] Chunk failed",
				slog.Int("urls", len(chunk)),
				slog.String("error", err.Error()))
			continue
		}
		for _, u := range chunk {
			out[u] = HatenaScore(counts[u])
		}
	}

	slog.Debug("[Hatena] Counts fetched", slog.Int("requested", len(urls)), slog.Int("scored", len(out)))
	return out, nil
}

func (h *HatenaFetcher) fetchChunk(ctx context.Context, chunk []string) (map[string]int, error) {
	q := url.Values{}
	for _, u := range chunk {
		q.Add("url", u)
	}

	counts := map[string]int{}
	if err := getJSON(ctx, h.Client, h.Endpoint+"?"+q.Encode(), &counts); err != nil {
		return nil, err
	}
	return counts, nil
}
