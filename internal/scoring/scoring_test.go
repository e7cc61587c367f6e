package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/buzzdigest/internal/models"
	"github.com/spacesedan/buzzdigest/internal/signals"
)

type fakeAggregator map[string]signals.Signal

func (f fakeAggregator) Aggregate(_ context.Context, urls []string) map[string]signals.Signal {
	out := map[string]signals.Signal{}
	for _, u := range urls {
		if s, ok := f[u]; ok {
			out[u] = s
		}
	}
	return out
}

type fakeSources []models.SourceConfig

func (f fakeSources) AllSources() []models.SourceConfig { return f }

func testProfile() models.InterestProfile {
	return models.InterestProfile{
		MaxInterest:    []string{"AI/ML (LLM, 機械学習基盤)"},
		HighInterest:   []string{"Go"},
		MediumInterest: []string{"データベース（PostgreSQL、DynamoDB）"},
		LowInterest:    []string{"Frontend"},
		IgnoreInterest: []string{"Rumor"},
	}
}

func TestTopicKeywords(t *testing.T) {
	assert.Equal(t, []string{"ai/ml", "llm", "機械学習基盤"}, topicKeywords("AI/ML (LLM, 機械学習基盤)"))
	assert.Equal(t, []string{"データベース", "postgresql", "dynamodb"}, topicKeywords("データベース（PostgreSQL、DynamoDB）"))
	assert.Equal(t, []string{"kubernetes"}, topicKeywords("Kubernetes"))
}

func TestInterestScoreTierPrecedence(t *testing.T) {
	s := NewBuzzScorer(DefaultScorerConfig(), testProfile(), nil, nil)

	cases := []struct {
		title string
		want  float64
	}{
		{"Serving an LLM with Go", 100},
		{"Go generics in practice", 80},
		{"Tuning dynamodb partitions", 55},
		{"Frontend build tools", 30},
		{"Celebrity rumor roundup", 0},
		{"Unrelated woodworking", DefaultInterestScore},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, s.InterestScore(models.Article{Title: c.title}), c.title)
	}
}

func TestAuthorityScore(t *testing.T) {
	s := NewBuzzScorer(DefaultScorerConfig(), testProfile(), fakeSources{
		{Name: "AWS Blog", AuthorityLevel: models.AuthorityOfficial},
		{Name: "Zenn", AuthorityLevel: models.AuthorityMedium},
	}, nil)

	assert.Equal(t, 100.0, s.AuthorityScore("AWS Blog"))
	assert.Equal(t, 50.0, s.AuthorityScore("Zenn"))
	assert.Equal(t, 0.0, s.AuthorityScore("Unknown"))
}

func TestCalculateScoresKeysAndWeights(t *testing.T) {
	agg := fakeAggregator{"https://example.com/a?utm=x": {Score: 60, Sources: 2}}
	s := NewBuzzScorer(DefaultScorerConfig(), testProfile(), fakeSources{
		{Name: "Example", AuthorityLevel: models.AuthorityHigh},
	}, agg)

	articles := []models.Article{
		{URL: "https://example.com/a?utm=x", NormalizedURL: "https://example.com/a", Title: "Go tips", SourceName: "Example"},
		{URL: "https://example.com/b", NormalizedURL: "https://example.com/b", Title: "Woodworking"},
	}

	scores := s.CalculateScores(context.Background(), articles)
	require.Len(t, scores, 2)

	a := scores["https://example.com/a"]
	assert.Equal(t, "https://example.com/a?utm=x", a.URL)
	assert.Equal(t, 2, a.SocialProofCount)
	assert.InDelta(t, 0.55*60+0.35*80+0.10*80, a.TotalScore, 1e-9)

	b := scores["https://example.com/b"]
	assert.Equal(t, DefaultSocialProofScore, b.SocialProofScore)
	assert.InDelta(t, 0.55*20+0.35*15, b.TotalScore, 1e-9)

	for _, sc := range scores {
		w := models.DefaultBuzzWeights()
		assert.InDelta(t, w.Total(sc.SocialProofScore, sc.InterestScore, sc.AuthorityScore), sc.TotalScore, 1e-9)
	}

	byURL := IndexByURL(scores)
	assert.Contains(t, byURL, "https://example.com/a?utm=x")
}

func TestCandidateSelector(t *testing.T) {
	now := time.Now()
	articles := []models.Article{
		{URL: "low", PublishedAt: now},
		{URL: "high", PublishedAt: now},
		{URL: "tie-old", PublishedAt: now.Add(-time.Hour)},
		{URL: "tie-new", PublishedAt: now},
		{URL: "unscored", PublishedAt: now},
	}
	scores := map[string]models.BuzzScore{
		"low":     {TotalScore: 10},
		"high":    {TotalScore: 90},
		"tie-old": {TotalScore: 50},
		"tie-new": {TotalScore: 50},
	}

	got := NewCandidateSelector(3).Select(articles, scores)
	require.Len(t, got, 3)
	assert.Equal(t, "high", got[0].URL)
	assert.Equal(t, "tie-new", got[1].URL)
	assert.Equal(t, "tie-old", got[2].URL)

	assert.Len(t, NewCandidateSelector(0).Select(articles, scores), len(articles))
}
