package signals

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/spacesedan/buzzdigest/internal/utils"
)

const (
	ZENN_API_ENDPOINT    = "https://zenn.dev/api/articles/"
	ZENN_MAX_CONCURRENCY = 5
)

// ZennFetcher scores zenn.dev articles by their like counts.
type ZennFetcher struct {
	Client      *http.Client
	Endpoint    string
	Concurrency int
}

func NewZennFetcher(client *http.Client) *ZennFetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ZennFetcher{Client: client, Endpoint: ZENN_API_ENDPOINT, Concurrency: ZENN_MAX_CONCURRENCY}
}

type zennArticleResponse struct {
	Article struct {
		LikedCount int `json:"liked_count"`
	} `json:"article"`
}

// FetchBatch looks up each article slug with bounded concurrency. URLs that
// are not article pages, and lookups that fail, stay absent.
func (z *ZennFetcher) FetchBatch(ctx context.Context, urls []string) (map[string]float64, error) {
	limit := max(z.Concurrency, 1)
	sem := make(chan struct{}, limit)

	var wg sync.WaitGroup
	found := utils.NewBatchBuffer[urlScore](len(urls))

	for _, u := range urls {
		slug, ok := zennSlug(u)
		if !ok {
			continue
		}

		wg.Add(1)
		go func(u, slug string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			var resp zennArticleResponse
			if err := getJSON(ctx, z.Client, z.Endpoint+url.PathEscape(slug), &resp); err != nil {
				if !errors.Is(err, errNotFound) {
					slog.Debug("[Zenn] Like lookup failed",
						slog.String("url", u),
						slog.String("error", err.Error()))
				}
				return
			}

			found.Add(urlScore{url: u, score: ZennScore(resp.Article.LikedCount)})
		}(u, slug)
	}
	wg.Wait()

	found.LogBatchProcessing("zenn_likes")
	batch := found.GetAndClear()
	out := make(map[string]float64, len(batch))
	for _, r := range batch {
		out[r.url] = r.score
	}

	return out, nil
}

// zennSlug extracts <slug> from https://zenn.dev/<user>/articles/<slug>.
func zennSlug(rawURL string) (string, bool) {
	if !onDomain(rawURL, DomainZenn) {
		return "", false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 3 || parts[1] != "articles" || parts[2] == "" {
		return "", false
	}
	return parts[2], true
}
