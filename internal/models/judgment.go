package models

import (
	"fmt"
	"strings"
	"time"
)

// InterestLabel is the model's verdict on an article. The zero value is
// InterestIgnore.
type InterestLabel uint8

const (
	InterestIgnore InterestLabel = iota
	InterestFYI
	InterestThink
	InterestActNow
)

// InterestLabels lists every label in descending priority.
var InterestLabels = []InterestLabel{InterestActNow, InterestThink, InterestFYI, InterestIgnore}

func (l InterestLabel) String() string {
	switch l {
	case InterestActNow:
		return "ACT_NOW"
	case InterestThink:
		return "THINK"
	case InterestFYI:
		return "FYI"
	default:
		return "IGNORE"
	}
}

func ParseInterestLabel(s string) (InterestLabel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ACT_NOW":
		return InterestActNow, nil
	case "THINK":
		return InterestThink, nil
	case "FYI":
		return InterestFYI, nil
	case "IGNORE":
		return InterestIgnore, nil
	default:
		return InterestIgnore, fmt.Errorf("unknown interest label %q", s)
	}
}

func (l InterestLabel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *InterestLabel) UnmarshalText(text []byte) error {
	parsed, err := ParseInterestLabel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// BuzzLabel buckets the buzz total score. The zero value is BuzzLow.
type BuzzLabel uint8

const (
	BuzzLow BuzzLabel = iota
	BuzzMid
	BuzzHigh
)

func (l BuzzLabel) String() string {
	switch l {
	case BuzzHigh:
		return "HIGH"
	case BuzzMid:
		return "MID"
	default:
		return "LOW"
	}
}

func ParseBuzzLabel(s string) (BuzzLabel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HIGH":
		return BuzzHigh, nil
	case "MID":
		return BuzzMid, nil
	case "LOW":
		return BuzzLow, nil
	default:
		return BuzzLow, fmt.Errorf("unknown buzz label %q", s)
	}
}

func (l BuzzLabel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *BuzzLabel) UnmarshalText(text []byte) error {
	parsed, err := ParseBuzzLabel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

const (
	MaxSummaryLength = 300
	MaxTags          = 5
	MaxTagLength     = 30

	// FallbackSummary marks judgments synthesized after an inference failure.
	FallbackSummary = "LLM judgment failed"
)

// JudgmentResult is the verdict for one article, either from the model or
// synthesized as a fallback.
type JudgmentResult struct {
	URL           string        `json:"url"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	InterestLabel InterestLabel `json:"interest_label"`
	BuzzLabel     BuzzLabel     `json:"buzz_label"`
	Confidence    float64       `json:"confidence"`
	Summary       string        `json:"summary"`
	ModelID       string        `json:"model_id"`
	JudgedAt      time.Time     `json:"judged_at"`
	PublishedAt   time.Time     `json:"published_at"`
	Tags          []string      `json:"tags"`
}

// IsFallback reports whether the judgment was synthesized rather than inferred.
func (j JudgmentResult) IsFallback() bool {
	return j.Summary == FallbackSummary && j.Confidence == 0 && j.InterestLabel == InterestIgnore
}

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
