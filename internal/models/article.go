package models

import "time"

// Article is a collected item as handed over by the feed collector. The core
// never mutates it.
type Article struct {
	URL           string    `json:"url"`
	NormalizedURL string    `json:"normalized_url"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	SourceName    string    `json:"source_name"`
	PublishedAt   time.Time `json:"published_at"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Key returns the normalized URL, or the raw URL when normalization was skipped.
func (a Article) Key() string {
	if a.NormalizedURL != "" {
		return a.NormalizedURL
	}
	return a.URL
}
