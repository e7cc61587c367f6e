package judge

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/spacesedan/buzzdigest/internal/models"
)

type parsedJudgment struct {
	Label      models.InterestLabel
	Confidence float64
	Summary    string
	Tags       []string
}

var requiredFields = []string{"interest_label", "confidence", "summary"}

// stripCodeFence removes a surrounding ```json ... ``` block if present.
func stripCodeFence(response string) string {
	cleaned := strings.TrimSpace(response)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}

// ParseResponse turns raw model text into a judgment. Every failure wraps ErrParse.
func ParseResponse(response string) (parsedJudgment, error) {
	cleaned := stripCodeFence(response)
	if cleaned == "" {
		return parsedJudgment{}, parseErrorf("empty response")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return parsedJudgment{}, parseErrorf("decode json: %v", err)
	}
	for _, f := range requiredFields {
		if _, ok := fields[f]; !ok {
			return parsedJudgment{}, parseErrorf("missing required field %q", f)
		}
	}

	var rawLabel string
	if err := json.Unmarshal(fields["interest_label"], &rawLabel); err != nil {
		return parsedJudgment{}, parseErrorf("interest_label is not a string")
	}
	label, err := models.ParseInterestLabel(rawLabel)
	if err != nil {
		return parsedJudgment{}, parseErrorf("%v", err)
	}

	confidence, err := parseConfidence(fields["confidence"])
	if err != nil {
		return parsedJudgment{}, err
	}

	var summary string
	if err := json.Unmarshal(fields["summary"], &summary); err != nil {
		return parsedJudgment{}, parseErrorf("summary is not a string")
	}

	return parsedJudgment{
		Label:      label,
		Confidence: confidence,
		Summary:    models.TruncateRunes(strings.TrimSpace(summary), models.MaxSummaryLength),
		Tags:       sanitizeTags(fields["tags"]),
	}, nil
}

// parseConfidence accepts a finite number or numeric string and clamps to [0, 1].
func parseConfidence(raw json.RawMessage) (float64, error) {
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		var s string
		if serr := json.Unmarshal(raw, &s); serr != nil {
			return 0, parseErrorf("confidence is not a number")
		}
		parsed, perr := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if perr != nil {
			return 0, parseErrorf("confidence %q is not a number", s)
		}
		v = parsed
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, parseErrorf("confidence %v is not finite", v)
	}
	return min(max(v, 0), 1), nil
}

// sanitizeTags keeps string entries only, trimmed and capped in length and count.
func sanitizeTags(raw json.RawMessage) []string {
	tags := []string{}
	if len(raw) == 0 {
		return tags
	}

	var entries []any
	if err := json.Unmarshal(raw, &entries); err != nil {
		return tags
	}
	for _, e := range entries {
		s, ok := e.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		tags = append(tags, models.TruncateRunes(s, models.MaxTagLength))
		if len(tags) >= models.MaxTags {
			break
		}
	}
	return tags
}
