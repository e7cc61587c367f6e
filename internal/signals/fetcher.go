package signals

import (
	"context"
	"net/url"
	"strings"
)

// Fetcher reports one popularity signal (0-100) per URL. A URL missing from
// the returned map has no data for this source; it is not a zero.
type Fetcher interface {
	FetchBatch(ctx context.Context, urls []string) (map[string]float64, error)
}

// urlScore is one measured value collected by a concurrent lookup.
type urlScore struct {
	url   string
	score float64
}

// FetcherFunc adapts a plain function to Fetcher.
type FetcherFunc func(ctx context.Context, urls []string) (map[string]float64, error)

func (f FetcherFunc) FetchBatch(ctx context.Context, urls []string) (map[string]float64, error) {
	return f(ctx, urls)
}

// hostOf returns the lower-cased host of rawURL, or "" if it does not parse.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// onDomain reports whether rawURL is served from domain or one of its subdomains.
func onDomain(rawURL, domain string) bool {
	host := hostOf(rawURL)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// canonical drops query, fragment and trailing slash so that feed links can
// be compared to article URLs.
func canonical(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return strings.TrimSpace(rawURL)
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme == "http" {
		u.Scheme = "https"
	}
	return strings.TrimSuffix(u.String(), "/")
}
