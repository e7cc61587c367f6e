package signals

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

const YAMADASHY_FEED_URL = "https://yamadashy.github.io/tech-blog-rss-feed/feeds/rss.xml"

const listedScore = 100.0

// YamadashyFetcher marks URLs listed on the curated tech-blog feed.
type YamadashyFetcher struct {
	FeedURL string
	parser  feedParser
}

func NewYamadashyFetcher(client *http.Client) *YamadashyFetcher {
	return &YamadashyFetcher{
		FeedURL: YAMADASHY_FEED_URL,
		parser:  newFeedParser(client),
	}
}

// FetchBatch returns 100 for listed URLs and 0 for everything else. If the
// feed cannot be read the whole source is reported as failed.
func (y *YamadashyFetcher) FetchBatch(ctx context.Context, urls []string) (map[string]float64, error) {
	feed, err := y.parser.ParseURLWithContext(y.FeedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("[Yamadashy] parse feed: %w", err)
	}

	listed := make(map[string]struct{}, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link != "" {
			listed[canonical(item.Link)] = struct{}{}
		}
	}

	out := make(map[string]float64, len(urls))
	hits := 0
	for _, u := range urls {
		if _, ok := listed[canonical(u)]; ok {
			out[u] = listedScore
			hits++
			continue
		}
		out[u] = 0
	}

	slog.Debug("[Yamadashy] Feed matched",
		slog.Int("feed_items", len(feed.Items)),
		slog.Int("listed", hits))
	return out, nil
}

// feedParser is the part of gofeed.Parser the signal sources use.
type feedParser interface {
	ParseURLWithContext(feedURL string, ctx context.Context) (*gofeed.Feed, error)
}

func newFeedParser(client *http.Client) *gofeed.Parser {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	p := gofeed.NewParser()
	p.Client = client
	p.UserAgent = USER_AGENT
	return p
}
