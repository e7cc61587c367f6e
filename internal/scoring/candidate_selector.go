package scoring

import (
	"log/slog"
	"sort"

	"github.com/spacesedan/buzzdigest/internal/models"
)

const DefaultCandidateMax = 100

// CandidateSelector keeps the highest-buzz articles for judgment.
type CandidateSelector struct {
	maxCandidates int
}

func NewCandidateSelector(maxCandidates int) *CandidateSelector {
	if maxCandidates <= 0 {
		maxCandidates = DefaultCandidateMax
	}
	return &CandidateSelector{maxCandidates: maxCandidates}
}

// Select orders by total score, newer articles first on ties, and keeps at
// most maxCandidates. scores is keyed like BuzzScorer output.
func (c *CandidateSelector) Select(articles []models.Article, scores map[string]models.BuzzScore) []models.Article {
	ranked := make([]models.Article, len(articles))
	copy(ranked, articles)

	total := func(a models.Article) float64 {
		if s, ok := scores[a.Key()]; ok {
			return s.TotalScore
		}
		return models.ZeroBuzzScore.TotalScore
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		ti, tj := total(ranked[i]), total(ranked[j])
		if ti != tj {
			return ti > tj
		}
		return ranked[i].PublishedAt.After(ranked[j].PublishedAt)
	})

	if len(ranked) > c.maxCandidates {
		ranked = ranked[:c.maxCandidates]
	}

	slog.Info("[CandidateSelector] Candidates selected",
		slog.Int("input", len(articles)),
		slog.Int("selected", len(ranked)))
	return ranked
}
