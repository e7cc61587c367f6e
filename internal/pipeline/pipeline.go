package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/spacesedan/buzzdigest/internal/judge"
	"github.com/spacesedan/buzzdigest/internal/models"
	"github.com/spacesedan/buzzdigest/internal/scoring"
	"github.com/spacesedan/buzzdigest/internal/selection"
)

type Scorer interface {
	CalculateScores(ctx context.Context, articles []models.Article) map[string]models.BuzzScore
}

type CandidateSelector interface {
	Select(articles []models.Article, scores map[string]models.BuzzScore) []models.Article
}

type Judger interface {
	JudgeBatch(ctx context.Context, articles []models.Article) judge.BatchResult
}

type FinalSelector interface {
	Select(judgments []models.JudgmentResult, scores map[string]models.BuzzScore) selection.Result
}

// Publisher hands the shortlist to whatever renders the digest.
type Publisher interface {
	PublishDigest(runID string, selected []models.JudgmentResult, scores map[string]models.BuzzScore) error
}

type HistoryRecorder interface {
	SaveRun(ctx context.Context, summary models.ExecutionSummary, selected []models.JudgmentResult) error
}

// Deps wires the stages. Publisher and History may be nil.
type Deps struct {
	Scorer     Scorer
	Candidates CandidateSelector
	Judge      Judger
	Selector   FinalSelector
	Publisher  Publisher
	History    HistoryRecorder
}

type Options struct {
	DryRun bool
	Cost   CostParams
}

type Pipeline struct {
	deps Deps
	opts Options
	now  func() time.Time
}

func New(deps Deps, opts Options) *Pipeline {
	return &Pipeline{deps: deps, opts: opts, now: time.Now}
}

// Run scores, judges and selects articles. Publishing and history failures
// are logged and do not fail the run; only cancellation does.
func (p *Pipeline) Run(ctx context.Context, runID string, articles []models.Article) (models.ExecutionSummary, error) {
	start := p.now()
	slog.Info("[Pipeline] Run started",
		slog.String("run_id", runID),
		slog.Int("articles", len(articles)),
		slog.Bool("dry_run", p.opts.DryRun))

	unique := dedupe(articles)

	scores := p.deps.Scorer.CalculateScores(ctx, unique)
	candidates := p.deps.Candidates.Select(unique, scores)

	batch := p.deps.Judge.JudgeBatch(ctx, candidates)
	if err := ctx.Err(); err != nil {
		return models.ExecutionSummary{}, err
	}

	byURL := scoring.IndexByURL(scores)
	judgments := ApplyBuzzLabels(batch.Judgments, byURL)

	result := p.deps.Selector.Select(judgments, byURL)

	published := p.publish(runID, result.SelectedArticles, byURL)

	invoked := len(batch.Judgments) - batch.CacheHits
	cost, err := EstimateInferenceCostUSD(invoked, p.opts.Cost)
	if err != nil {
		slog.Warn("[Pipeline] Cost estimation failed", slog.String("error", err.Error()))
	}

	summary := models.ExecutionSummary{
		RunID:            runID,
		ExecutedAt:       start.UTC(),
		CollectedCount:   len(articles),
		CandidateCount:   len(candidates),
		JudgedCount:      len(batch.Judgments),
		FailedCount:      batch.FailedCount,
		CacheHitCount:    batch.CacheHits,
		SelectedCount:    len(result.SelectedArticles),
		Published:        published,
		DurationSeconds:  p.now().Sub(start).Seconds(),
		EstimatedCostUSD: cost,
	}

	p.saveHistory(ctx, summary, result.SelectedArticles)

	slog.Info("[Pipeline] Run complete",
		slog.String("run_id", runID),
		slog.Int("collected", summary.CollectedCount),
		slog.Int("candidates", summary.CandidateCount),
		slog.Int("judged", summary.JudgedCount),
		slog.Int("failed", summary.FailedCount),
		slog.Int("cache_hits", summary.CacheHitCount),
		slog.Int("selected", summary.SelectedCount),
		slog.Bool("published", summary.Published),
		slog.Float64("estimated_cost_usd", summary.EstimatedCostUSD))
	return summary, nil
}

// ApplyBuzzLabels sets each judgment's buzz label from its score.
func ApplyBuzzLabels(judgments []models.JudgmentResult, byURL map[string]models.BuzzScore) []models.JudgmentResult {
	out := make([]models.JudgmentResult, len(judgments))
	for i, j := range judgments {
		score, ok := byURL[j.URL]
		if !ok {
			score = models.ZeroBuzzScore
		}
		j.BuzzLabel = score.BuzzLabel()
		out[i] = j
	}
	return out
}

func (p *Pipeline) publish(runID string, selected []models.JudgmentResult, scores map[string]models.BuzzScore) bool {
	switch {
	case len(selected) == 0:
		slog.Warn("[Pipeline] No articles selected, nothing to publish", slog.String("run_id", runID))
		return false
	case p.opts.DryRun:
		for i, j := range selected {
			slog.Info("[Pipeline] Dry run selection",
				slog.Int("rank", i+1),
				slog.String("label", j.InterestLabel.String()),
				slog.String("buzz", j.BuzzLabel.String()),
				slog.String("title", j.Title),
				slog.String("url", j.URL))
		}
		return false
	case p.deps.Publisher == nil:
		return false
	}

	if err := p.deps.Publisher.PublishDigest(runID, selected, scores); err != nil {
		slog.Error("[Pipeline] Publishing digest failed",
			slog.String("run_id", runID),
			slog.String("error", err.Error()))
		return false
	}
	return true
}

func (p *Pipeline) saveHistory(ctx context.Context, summary models.ExecutionSummary, selected []models.JudgmentResult) {
	if p.opts.DryRun || p.deps.History == nil {
		return
	}
	if err := p.deps.History.SaveRun(ctx, summary, selected); err != nil {
		slog.Error("[Pipeline] Saving run history failed",
			slog.String("run_id", summary.RunID),
			slog.String("error", err.Error()))
	}
}

// dedupe keeps the first article per normalized URL.
func dedupe(articles []models.Article) []models.Article {
	seen := make(map[string]struct{}, len(articles))
	out := make([]models.Article, 0, len(articles))
	for _, a := range articles {
		k := a.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, a)
	}
	return out
}
