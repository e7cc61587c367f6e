package signals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"github.com/spacesedan/buzzdigest/internal/utils"
)

const (
	QIITA_POPULAR_FEED_URL = "https://qiita.com/popular-items/feed.atom"
	QIITA_API_ENDPOINT     = "https://qiita.com/api/v2/items/"
	QIITA_MAX_CONCURRENCY  = 3
)

// QiitaFetcher scores qiita.com articles by their position on the popular
// ranking, falling back to like counts when an API token is configured.
type QiitaFetcher struct {
	FeedURL     string
	APIEndpoint string
	Concurrency int

	parser    feedParser
	apiClient *http.Client
}

type QiitaOption func(*QiitaFetcher)

// WithQiitaToken enables the like-count lookup for unranked articles.
func WithQiitaToken(token string) QiitaOption {
	return func(q *QiitaFetcher) {
		if token == "" {
			return
		}
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
		q.apiClient = oauth2.NewClient(context.Background(), src)
	}
}

// WithQiitaAPIClient replaces the authenticated API client, mostly for tests.
func WithQiitaAPIClient(client *http.Client) QiitaOption {
	return func(q *QiitaFetcher) { q.apiClient = client }
}

func NewQiitaFetcher(client *http.Client, opts ...QiitaOption) *QiitaFetcher {
	q := &QiitaFetcher{
		FeedURL:     QIITA_POPULAR_FEED_URL,
		APIEndpoint: QIITA_API_ENDPOINT,
		Concurrency: QIITA_MAX_CONCURRENCY,
		parser:      newFeedParser(client),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

type qiitaItemResponse struct {
	LikesCount int `json:"likes_count"`
}

func (q *QiitaFetcher) FetchBatch(ctx context.Context, urls []string) (map[string]float64, error) {
	ranks, err := q.fetchRanking(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(urls))
	var unranked []string
	for _, u := range urls {
		if rank, ok := ranks[canonical(u)]; ok {
			out[u] = QiitaRankScore(rank)
			continue
		}
		if _, ok := qiitaItemID(u); !ok {
			continue
		}
		unranked = append(unranked, u)
	}

	if q.apiClient == nil {
		for _, u := range unranked {
			out[u] = 0
		}
		return out, nil
	}

	for u, score := range q.fetchLikes(ctx, unranked) {
		out[u] = score
	}
	return out, nil
}

// fetchRanking maps canonical article URLs to their 1-based ranking position.
func (q *QiitaFetcher) fetchRanking(ctx context.Context) (map[string]int, error) {
	feed, err := q.parser.ParseURLWithContext(q.FeedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("[Qiita] parse ranking feed: %w", err)
	}

	ranks := make(map[string]int, len(feed.Items))
	for i, item := range feed.Items {
		link := canonical(item.Link)
		if _, seen := ranks[link]; !seen && link != "" {
			ranks[link] = i + 1
		}
	}
	return ranks, nil
}

func (q *QiitaFetcher) fetchLikes(ctx context.Context, urls []string) map[string]float64 {
	sem := make(chan struct{}, max(q.Concurrency, 1))
	var wg sync.WaitGroup
	found := utils.NewBatchBuffer[urlScore](len(urls))

	for _, u := range urls {
		id, ok := qiitaItemID(u)
		if !ok {
			continue
		}

		wg.Add(1)
		go func(u, id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			var resp qiitaItemResponse
			if err := getJSON(ctx, q.apiClient, q.APIEndpoint+url.PathEscape(id), &resp); err != nil {
				if !errors.Is(err, errNotFound) {
					slog.Debug("[Qiita] Like lookup failed",
						slog.String("url", u),
						slog.String("error", err.Error()))
				}
				return
			}

			found.Add(urlScore{url: u, score: QiitaLikeScore(resp.LikesCount)})
		}(u, id)
	}
	wg.Wait()

	found.LogBatchProcessing("qiita_likes")
	batch := found.GetAndClear()
	out := make(map[string]float64, len(batch))
	for _, r := range batch {
		out[r.url] = r.score
	}

	return out
}

// qiitaItemID extracts <id> from https://qiita.com/<user>/items/<id>.
func qiitaItemID(rawURL string) (string, bool) {
	if !onDomain(rawURL, DomainQiita) {
		return "", false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 3 || parts[1] != "items" || parts[2] == "" {
		return "", false
	}
	return parts[2], true
}
