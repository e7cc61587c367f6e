package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/buzzdigest/internal/judge"
	"github.com/spacesedan/buzzdigest/internal/models"
	"github.com/spacesedan/buzzdigest/internal/scoring"
	"github.com/spacesedan/buzzdigest/internal/selection"
)

type staticScorer map[string]models.BuzzScore

func (s staticScorer) CalculateScores(_ context.Context, articles []models.Article) map[string]models.BuzzScore {
	out := map[string]models.BuzzScore{}
	for _, a := range articles {
		if sc, ok := s[a.Key()]; ok {
			out[a.Key()] = sc
		}
	}
	return out
}

type labelJudge struct {
	labels    map[string]models.InterestLabel
	cacheHits int
	seen      []models.Article
}

func (l *labelJudge) JudgeBatch(_ context.Context, articles []models.Article) judge.BatchResult {
	l.seen = articles
	res := judge.BatchResult{CacheHits: l.cacheHits}
	for _, a := range articles {
		res.Judgments = append(res.Judgments, models.JudgmentResult{
			URL:           a.URL,
			Title:         a.Title,
			InterestLabel: l.labels[a.URL],
			Confidence:    0.9,
			BuzzLabel:     models.BuzzHigh,
		})
	}
	return res
}

type recordingPublisher struct {
	calls    int
	selected []models.JudgmentResult
	err      error
}

func (r *recordingPublisher) PublishDigest(_ string, selected []models.JudgmentResult, _ map[string]models.BuzzScore) error {
	r.calls++
	r.selected = selected
	return r.err
}

type recordingHistory struct {
	calls   int
	summary models.ExecutionSummary
	err     error
}

func (r *recordingHistory) SaveRun(_ context.Context, summary models.ExecutionSummary, _ []models.JudgmentResult) error {
	r.calls++
	r.summary = summary
	return r.err
}

func fixture() ([]models.Article, staticScorer, *labelJudge) {
	articles := []models.Article{
		{URL: "https://a.example/1?ref=x", NormalizedURL: "https://a.example/1", Title: "one"},
		{URL: "https://b.example/2", Title: "two"},
		{URL: "https://c.example/3", Title: "three"},
		{URL: "https://a.example/1", NormalizedURL: "https://a.example/1", Title: "one again"},
	}
	scores := staticScorer{
		"https://a.example/1": {URL: "https://a.example/1?ref=x", TotalScore: 80},
		"https://b.example/2": {URL: "https://b.example/2", TotalScore: 50},
		"https://c.example/3": {URL: "https://c.example/3", TotalScore: 10},
	}
	j := &labelJudge{labels: map[string]models.InterestLabel{
		"https://a.example/1?ref=x": models.InterestActNow,
		"https://b.example/2":       models.InterestFYI,
		"https://c.example/3":       models.InterestIgnore,
	}}
	return articles, scores, j
}

func newPipeline(scores staticScorer, j *labelJudge, pub *recordingPublisher, hist *recordingHistory, dryRun bool) *Pipeline {
	deps := Deps{
		Scorer:     scores,
		Candidates: scoring.NewCandidateSelector(10),
		Judge:      j,
		Selector:   selection.NewFinalSelector(selection.DefaultConfig()),
	}
	if pub != nil {
		deps.Publisher = pub
	}
	if hist != nil {
		deps.History = hist
	}
	return New(deps, Options{DryRun: dryRun, Cost: DefaultCostParams()})
}

func TestRunProducesSummary(t *testing.T) {
	articles, scores, j := fixture()
	j.cacheHits = 1
	pub := &recordingPublisher{}
	hist := &recordingHistory{}

	summary, err := newPipeline(scores, j, pub, hist, false).Run(context.Background(), "run-1", articles)
	require.NoError(t, err)

	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, 4, summary.CollectedCount)
	assert.Equal(t, 3, summary.CandidateCount)
	assert.Equal(t, 3, summary.JudgedCount)
	assert.Equal(t, 1, summary.CacheHitCount)
	assert.Equal(t, 2, summary.SelectedCount)
	assert.True(t, summary.Published)

	want, err := EstimateInferenceCostUSD(2, DefaultCostParams())
	require.NoError(t, err)
	assert.InDelta(t, want, summary.EstimatedCostUSD, 1e-12)

	require.Len(t, pub.selected, 2)
	assert.Equal(t, "https://a.example/1?ref=x", pub.selected[0].URL)
	assert.Equal(t, models.BuzzHigh, pub.selected[0].BuzzLabel)
	assert.Equal(t, models.BuzzMid, pub.selected[1].BuzzLabel)

	assert.Equal(t, 1, hist.calls)
	assert.Equal(t, summary, hist.summary)
}

func TestRunDryRunSkipsSideEffects(t *testing.T) {
	articles, scores, j := fixture()
	pub := &recordingPublisher{}
	hist := &recordingHistory{}

	summary, err := newPipeline(scores, j, pub, hist, true).Run(context.Background(), "dry", articles)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.SelectedCount)
	assert.False(t, summary.Published)
	assert.Zero(t, pub.calls)
	assert.Zero(t, hist.calls)
}

func TestRunSideEffectFailuresDoNotFail(t *testing.T) {
	articles, scores, j := fixture()
	pub := &recordingPublisher{err: errors.New("broker down")}
	hist := &recordingHistory{err: errors.New("table missing")}

	summary, err := newPipeline(scores, j, pub, hist, false).Run(context.Background(), "run-2", articles)
	require.NoError(t, err)
	assert.False(t, summary.Published)
	assert.Equal(t, 1, pub.calls)
	assert.Equal(t, 1, hist.calls)
}

func TestRunNothingSelected(t *testing.T) {
	articles, scores, j := fixture()
	j.labels = map[string]models.InterestLabel{}
	pub := &recordingPublisher{}

	summary, err := newPipeline(scores, j, pub, nil, false).Run(context.Background(), "run-3", articles)
	require.NoError(t, err)
	assert.Zero(t, summary.SelectedCount)
	assert.False(t, summary.Published)
	assert.Zero(t, pub.calls)
}

func TestRunCancelled(t *testing.T) {
	articles, scores, j := fixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newPipeline(scores, j, nil, nil, false).Run(ctx, "run-4", articles)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestApplyBuzzLabelsUnscored(t *testing.T) {
	got := ApplyBuzzLabels([]models.JudgmentResult{
		{URL: "https://x.example", BuzzLabel: models.BuzzHigh},
		{URL: "https://y.example"},
	}, map[string]models.BuzzScore{
		"https://y.example": {URL: "https://y.example", TotalScore: 40},
	})
	assert.Equal(t, models.BuzzLow, got[0].BuzzLabel)
	assert.Equal(t, models.BuzzMid, got[1].BuzzLabel)
}

func TestEstimateInferenceCostUSD(t *testing.T) {
	cost, err := EstimateInferenceCostUSD(100, DefaultCostParams())
	require.NoError(t, err)
	assert.InDelta(t, 100*900*6.0/1e6+100*140*30.0/1e6, cost, 1e-12)

	zero, err := EstimateInferenceCostUSD(0, DefaultCostParams())
	require.NoError(t, err)
	assert.Zero(t, zero)

	_, err = EstimateInferenceCostUSD(-1, DefaultCostParams())
	assert.Error(t, err)

	p := DefaultCostParams()
	p.OutputCostPerMillion = -1
	_, err = EstimateInferenceCostUSD(1, p)
	assert.Error(t, err)

	p = DefaultCostParams()
	p.InputTokensPerArticle = -5
	_, err = EstimateInferenceCostUSD(1, p)
	assert.Error(t, err)
}

func TestRunRecordsDuration(t *testing.T) {
	articles, scores, j := fixture()
	p := newPipeline(scores, j, nil, nil, true)
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	calls := 0
	p.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls-1) * 3 * time.Second)
	}

	summary, err := p.Run(context.Background(), "timed", articles)
	require.NoError(t, err)
	assert.Equal(t, base, summary.ExecutedAt)
	assert.InDelta(t, 3.0, summary.DurationSeconds, 1e-9)
}
