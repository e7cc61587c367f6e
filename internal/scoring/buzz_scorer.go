package scoring

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spacesedan/buzzdigest/internal/models"
	"github.com/spacesedan/buzzdigest/internal/signals"
)

const (
	DefaultInterestScore    = 15.0
	DefaultSocialProofScore = signals.DefaultSocialProofScore
)

// SignalAggregator is the social proof side of the scorer.
type SignalAggregator interface {
	Aggregate(ctx context.Context, urls []string) map[string]signals.Signal
}

// SourceLookup lists the feed sources with their authority levels.
type SourceLookup interface {
	AllSources() []models.SourceConfig
}

type ScorerConfig struct {
	Weights            models.BuzzWeights
	DefaultInterest    float64
	DefaultSocialProof float64
}

func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		Weights:            models.DefaultBuzzWeights(),
		DefaultInterest:    DefaultInterestScore,
		DefaultSocialProof: DefaultSocialProofScore,
	}
}

// BuzzScorer combines social proof, profile interest and source authority
// into one BuzzScore per article.
type BuzzScorer struct {
	cfg        ScorerConfig
	profile    models.InterestProfile
	aggregator SignalAggregator
	authority  map[string]models.AuthorityLevel
}

func NewBuzzScorer(cfg ScorerConfig, profile models.InterestProfile, sources SourceLookup, aggregator SignalAggregator) *BuzzScorer {
	authority := map[string]models.AuthorityLevel{}
	if sources != nil {
		for _, s := range sources.AllSources() {
			if _, seen := authority[s.Name]; !seen {
				authority[s.Name] = s.AuthorityLevel
			}
		}
	}
	return &BuzzScorer{
		cfg:        cfg,
		profile:    profile,
		aggregator: aggregator,
		authority:  authority,
	}
}

// CalculateScores returns scores keyed by the article's normalized URL.
func (b *BuzzScorer) CalculateScores(ctx context.Context, articles []models.Article) map[string]models.BuzzScore {
	scores := make(map[string]models.BuzzScore, len(articles))
	if len(articles) == 0 {
		return scores
	}

	urls := make([]string, 0, len(articles))
	seen := make(map[string]struct{}, len(articles))
	for _, a := range articles {
		if _, ok := seen[a.URL]; ok {
			continue
		}
		seen[a.URL] = struct{}{}
		urls = append(urls, a.URL)
	}

	var social map[string]signals.Signal
	if b.aggregator != nil {
		social = b.aggregator.Aggregate(ctx, urls)
	}

	for _, a := range articles {
		sig, ok := social[a.URL]
		if !ok {
			sig = signals.Signal{Score: b.cfg.DefaultSocialProof}
		}
		interest := b.InterestScore(a)
		authority := b.AuthorityScore(a.SourceName)

		score := models.BuzzScore{
			URL:              a.URL,
			SocialProofScore: sig.Score,
			InterestScore:    interest,
			AuthorityScore:   authority,
			SocialProofCount: sig.Sources,
			TotalScore:       b.cfg.Weights.Total(sig.Score, interest, authority),
		}
		scores[a.Key()] = score

		slog.Debug("[BuzzScorer] Score calculated",
			slog.String("url", a.URL),
			slog.Float64("total", score.TotalScore),
			slog.Float64("social_proof", score.SocialProofScore),
			slog.Float64("interest", interest),
			slog.Float64("authority", authority))
	}

	slog.Info("[BuzzScorer] Scoring complete", slog.Int("articles", len(articles)), slog.Int("scores", len(scores)))
	return scores
}

// InterestScore returns the score of the first tier with a matching topic.
func (b *BuzzScorer) InterestScore(a models.Article) float64 {
	text := strings.ToLower(a.Title + " " + a.Description)
	for _, tier := range b.profile.Tiers() {
		for _, topic := range tier.Topics {
			if matchTopic(topic, text) {
				return tier.Score
			}
		}
	}
	return b.cfg.DefaultInterest
}

func (b *BuzzScorer) AuthorityScore(sourceName string) float64 {
	return b.authority[sourceName].Score()
}

// IndexByURL re-keys scores by BuzzScore.URL, the key judgments carry.
func IndexByURL(scores map[string]models.BuzzScore) map[string]models.BuzzScore {
	out := make(map[string]models.BuzzScore, len(scores))
	for _, s := range scores {
		out[s.URL] = s
	}
	return out
}
