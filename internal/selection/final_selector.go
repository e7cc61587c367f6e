package selection

import (
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/spacesedan/buzzdigest/internal/models"
)

const (
	DefaultMaxArticles = 15
	DefaultAlpha       = 0.4
)

// LabelScore is the ranking weight of each interest label.
func LabelScore(l models.InterestLabel) float64 {
	switch l {
	case models.InterestActNow:
		return 100
	case models.InterestThink:
		return 60
	case models.InterestFYI:
		return 20
	case models.InterestIgnore:
		return 0
	default:
		return 0
	}
}

type Config struct {
	MaxArticles int
	// MaxPerDomain caps selections per URL host. Zero disables the cap.
	MaxPerDomain int
	// Alpha is the weight of the label score against external buzz.
	Alpha   float64
	Weights models.BuzzWeights
}

func DefaultConfig() Config {
	return Config{
		MaxArticles: DefaultMaxArticles,
		Alpha:       DefaultAlpha,
		Weights:     models.DefaultBuzzWeights(),
	}
}

type Result struct {
	SelectedArticles []models.JudgmentResult
}

type FinalSelector struct {
	cfg Config
}

func NewFinalSelector(cfg Config) *FinalSelector {
	if cfg.MaxArticles <= 0 {
		cfg.MaxArticles = DefaultMaxArticles
	}
	if cfg.MaxPerDomain < 0 {
		cfg.MaxPerDomain = 0
	}
	return &FinalSelector{cfg: cfg}
}

type ranked struct {
	judgment  models.JudgmentResult
	composite float64
}

// CompositeScore blends the label with the buzz score minus its interest part.
func (f *FinalSelector) CompositeScore(j models.JudgmentResult, score models.BuzzScore) float64 {
	return f.cfg.Alpha*LabelScore(j.InterestLabel) + (1-f.cfg.Alpha)*score.ExternalBuzz(f.cfg.Weights)
}

// Select drops IGNORE, ranks the rest and applies the domain and overall
// caps. scores is keyed by BuzzScore.URL; a judgment without a score ranks on
// its label alone.
func (f *FinalSelector) Select(judgments []models.JudgmentResult, scores map[string]models.BuzzScore) Result {
	candidates := make([]ranked, 0, len(judgments))
	for _, j := range judgments {
		if j.InterestLabel == models.InterestIgnore {
			continue
		}
		score, ok := scores[j.URL]
		if !ok {
			score = models.ZeroBuzzScore
		}
		candidates = append(candidates, ranked{judgment: j, composite: f.CompositeScore(j, score)})
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		ca, cb := candidates[a], candidates[b]
		if ca.composite != cb.composite {
			return ca.composite > cb.composite
		}
		if !ca.judgment.JudgedAt.Equal(cb.judgment.JudgedAt) {
			return ca.judgment.JudgedAt.After(cb.judgment.JudgedAt)
		}
		return ca.judgment.Confidence > cb.judgment.Confidence
	})

	selected := make([]models.JudgmentResult, 0, min(len(candidates), f.cfg.MaxArticles))
	perDomain := map[string]int{}
	for _, c := range candidates {
		if len(selected) >= f.cfg.MaxArticles {
			break
		}
		domain := domainOf(c.judgment.URL)
		if f.cfg.MaxPerDomain > 0 && perDomain[domain] >= f.cfg.MaxPerDomain {
			slog.Debug("[FinalSelector] Domain cap reached, skipping",
				slog.String("url", c.judgment.URL),
				slog.String("domain", domain))
			continue
		}
		perDomain[domain]++
		selected = append(selected, c.judgment)
	}

	slog.Info("[FinalSelector] Selection complete",
		slog.Int("judgments", len(judgments)),
		slog.Int("ranked", len(candidates)),
		slog.Int("selected", len(selected)))
	return Result{SelectedArticles: selected}
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
