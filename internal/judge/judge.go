package judge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime/debug"
	"sync"
	"time"

	"github.com/spacesedan/buzzdigest/internal/models"
)

// Invoker sends one prompt to the inference endpoint and returns the model's
// text. Errors that carry an ErrorCode() are classified for retry.
type Invoker interface {
	Invoke(ctx context.Context, modelIdentifier, prompt string) (string, error)
}

// Cache stores judgments across runs. Get returns nil, nil on a miss.
type Cache interface {
	Get(ctx context.Context, url string) (*models.JudgmentResult, error)
	Put(ctx context.Context, judgment models.JudgmentResult) error
}

type Config struct {
	// ModelIdentifier addresses the endpoint (model id or inference profile ARN).
	ModelIdentifier string
	// ModelID is recorded on judgments.
	ModelID         string
	MaxRetries      int
	Concurrency     int
	RequestInterval time.Duration
	RetryBaseDelay  time.Duration
	MaxBackoff      time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:     2,
		Concurrency:    5,
		RetryBaseDelay: 2 * time.Second,
		MaxBackoff:     20 * time.Second,
	}
}

// BatchResult holds one judgment per input article, in input order.
type BatchResult struct {
	Judgments   []models.JudgmentResult
	FailedCount int
	CacheHits   int
	// PanicCount is the subset of failures caused by a recovered panic.
	PanicCount int
}

type Option func(*Judge)

func WithCache(c Cache) Option {
	return func(j *Judge) { j.cache = c }
}

// WithSleeper replaces the context-aware sleep used for pacing and backoff.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(j *Judge) { j.sleep = sleep }
}

func WithClock(now func() time.Time) Option {
	return func(j *Judge) { j.now = now }
}

// WithJitter replaces the source of backoff jitter fractions in [0, 1).
func WithJitter(jitter func() float64) Option {
	return func(j *Judge) { j.jitter = jitter }
}

// Judge runs one inference call per article with bounded concurrency,
// retries and a fallback verdict on failure.
type Judge struct {
	cfg     Config
	invoker Invoker
	profile models.InterestProfile
	cache   Cache

	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time
	jitter func() float64
}

func New(cfg Config, invoker Invoker, profile models.InterestProfile, opts ...Option) *Judge {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	j := &Judge{
		cfg:     cfg,
		invoker: invoker,
		profile: profile,
		sleep:   sleepContext,
		now:     time.Now,
		jitter:  rand.Float64,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// outcome pairs an article with what happened to it.
type outcome struct {
	article  models.Article
	judgment models.JudgmentResult
	err      error
	cacheHit bool
}

// JudgeBatch never fails as a whole: articles whose judgment fails get a
// fallback IGNORE verdict and are counted in FailedCount.
func (j *Judge) JudgeBatch(ctx context.Context, articles []models.Article) BatchResult {
	slog.Info("[Judge] Judgment started",
		slog.Int("articles", len(articles)),
		slog.Int("concurrency", j.cfg.Concurrency))

	outcomes := make([]outcome, len(articles))
	jobs := make(chan int)
	workers := min(j.cfg.Concurrency, len(articles))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			j.worker(ctx, id, articles, jobs, outcomes)
		}(w)
	}
	for i := range articles {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	result := BatchResult{Judgments: make([]models.JudgmentResult, 0, len(articles))}
	for _, o := range outcomes {
		switch {
		case o.err != nil:
			slog.Warn("[Judge] Judgment failed, using fallback",
				slog.String("url", o.article.URL),
				slog.String("error", o.err.Error()))
			result.FailedCount++
			if errors.Is(o.err, ErrPanic) {
				result.PanicCount++
			}
			result.Judgments = append(result.Judgments, j.fallback(o.article))
		case o.cacheHit:
			result.CacheHits++
			result.Judgments = append(result.Judgments, o.judgment)
		default:
			result.Judgments = append(result.Judgments, o.judgment)
		}
	}

	slog.Info("[Judge] Judgment complete",
		slog.Int("total", len(articles)),
		slog.Int("succeeded", len(articles)-result.FailedCount),
		slog.Int("failed", result.FailedCount),
		slog.Int("cache_hits", result.CacheHits))
	if result.PanicCount > 0 {
		slog.Error("[Judge] Judgments failed on panics and were downgraded to IGNORE",
			slog.Int("panics", result.PanicCount))
	}
	return result
}

// StaggerDelay is how long worker id waits before its first call.
func (j *Judge) StaggerDelay(id int) time.Duration {
	if j.cfg.RequestInterval <= 0 || id <= 0 {
		return 0
	}
	return time.Duration(id) * (j.cfg.RequestInterval / time.Duration(j.cfg.Concurrency))
}

func (j *Judge) worker(ctx context.Context, id int, articles []models.Article, jobs <-chan int, outcomes []outcome) {
	called := false
	for idx := range jobs {
		outcomes[idx] = j.process(ctx, id, articles[idx], &called)
	}
}

// process handles one article on worker id. A panic anywhere in it becomes
// an ErrPanic outcome.
func (j *Judge) process(ctx context.Context, id int, a models.Article, called *bool) (o outcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[Judge] Recovered panic during judgment",
				slog.String("url", a.URL),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			o = outcome{article: a, err: fmt.Errorf("%w: %v", ErrPanic, r)}
		}
	}()

	if cached, ok := j.lookup(ctx, a); ok {
		return outcome{article: a, judgment: cached, cacheHit: true}
	}

	wait := j.cfg.RequestInterval
	if !*called {
		wait = j.StaggerDelay(id)
		*called = true
	}
	if wait > 0 {
		if err := j.sleep(ctx, wait); err != nil {
			return outcome{article: a, err: err}
		}
	}

	judgment, err := j.JudgeSingle(ctx, a)
	if err != nil {
		return outcome{article: a, err: err}
	}
	j.store(ctx, judgment)
	return outcome{article: a, judgment: judgment}
}

// JudgeSingle makes up to MaxRetries+1 attempts. Malformed output and
// rate-limit errors are retried; anything else is returned immediately.
func (j *Judge) JudgeSingle(ctx context.Context, a models.Article) (models.JudgmentResult, error) {
	prompt := BuildPrompt(j.profile, a)

	var lastErr error
	for attempt := 0; attempt <= j.cfg.MaxRetries; attempt++ {
		raw, err := j.invoker.Invoke(ctx, j.cfg.ModelIdentifier, prompt)
		if err == nil {
			parsed, perr := ParseResponse(raw)
			if perr == nil {
				judgment := j.toJudgment(a, parsed)
				slog.Debug("[Judge] Judgment succeeded",
					slog.String("url", a.URL),
					slog.String("label", judgment.InterestLabel.String()))
				return judgment, nil
			}
			err = perr
		}
		lastErr = err

		delay, retryable := j.retryDelay(err, attempt)
		if !retryable {
			slog.Error("[Judge] Non-retryable inference error",
				slog.String("url", a.URL),
				slog.String("code", ErrorCode(err)),
				slog.String("error", err.Error()))
			return models.JudgmentResult{}, err
		}
		if attempt == j.cfg.MaxRetries {
			break
		}

		slog.Warn("[Judge] Retrying judgment",
			slog.String("url", a.URL),
			slog.Int("attempt", attempt+1),
			slog.String("code", ErrorCode(err)),
			slog.Duration("backoff", delay),
			slog.String("error", err.Error()))
		if serr := j.sleep(ctx, delay); serr != nil {
			return models.JudgmentResult{}, serr
		}
	}

	slog.Error("[Judge] Retries exhausted",
		slog.String("url", a.URL),
		slog.Int("attempts", j.cfg.MaxRetries+1),
		slog.String("error", lastErr.Error()))
	return models.JudgmentResult{}, lastErr
}

// retryDelay classifies err. attempt is zero-based.
func (j *Judge) retryDelay(err error, attempt int) (time.Duration, bool) {
	switch {
	case errors.Is(err, ErrParse):
		return ParseRetryDelay(attempt + 1), true
	case IsRateLimited(err):
		return RateLimitDelay(attempt, j.cfg.RetryBaseDelay, j.cfg.MaxBackoff, j.jitter()), true
	default:
		return 0, false
	}
}

func (j *Judge) toJudgment(a models.Article, p parsedJudgment) models.JudgmentResult {
	return models.JudgmentResult{
		URL:           a.URL,
		Title:         a.Title,
		Description:   a.Description,
		InterestLabel: p.Label,
		BuzzLabel:     models.BuzzLow,
		Confidence:    p.Confidence,
		Summary:       p.Summary,
		ModelID:       j.cfg.ModelID,
		JudgedAt:      j.now().UTC(),
		PublishedAt:   a.PublishedAt,
		Tags:          p.Tags,
	}
}

func (j *Judge) fallback(a models.Article) models.JudgmentResult {
	return models.JudgmentResult{
		URL:           a.URL,
		Title:         a.Title,
		Description:   a.Description,
		InterestLabel: models.InterestIgnore,
		BuzzLabel:     models.BuzzLow,
		Confidence:    0,
		Summary:       models.FallbackSummary,
		ModelID:       j.cfg.ModelID,
		JudgedAt:      j.now().UTC(),
		PublishedAt:   a.PublishedAt,
		Tags:          []string{},
	}
}

func (j *Judge) lookup(ctx context.Context, a models.Article) (models.JudgmentResult, bool) {
	if j.cache == nil {
		return models.JudgmentResult{}, false
	}
	cached, err := j.cache.Get(ctx, a.URL)
	if err != nil {
		slog.Warn("[Judge] Cache lookup failed, treating as miss",
			slog.String("url", a.URL),
			slog.String("error", err.Error()))
		return models.JudgmentResult{}, false
	}
	if cached == nil {
		return models.JudgmentResult{}, false
	}
	return *cached, true
}

func (j *Judge) store(ctx context.Context, judgment models.JudgmentResult) {
	if j.cache == nil {
		return
	}
	if err := j.cache.Put(ctx, judgment); err != nil {
		slog.Error("[Judge] Cache put failed",
			slog.String("url", judgment.URL),
			slog.String("error", err.Error()))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
