package models

// AuthorityLevel grades how authoritative a feed source is.
type AuthorityLevel string

const (
	AuthorityOfficial AuthorityLevel = "OFFICIAL"
	AuthorityHigh     AuthorityLevel = "HIGH"
	AuthorityMedium   AuthorityLevel = "MEDIUM"
	AuthorityLow      AuthorityLevel = "LOW"
)

// Score maps the level to the authority component of the buzz score.
func (a AuthorityLevel) Score() float64 {
	switch a {
	case AuthorityOfficial:
		return 100
	case AuthorityHigh:
		return 80
	case AuthorityMedium:
		return 50
	default:
		return 0
	}
}

type SourceConfig struct {
	SourceID       string         `yaml:"source_id"`
	Name           string         `yaml:"name"`
	FeedURL        string         `yaml:"feed_url"`
	AuthorityLevel AuthorityLevel `yaml:"authority_level"`
	Enabled        bool           `yaml:"enabled"`
}
