package judge

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/buzzdigest/internal/models"
)

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("  {\"a\":1}  "))
}

func TestParseResponseRequiredFields(t *testing.T) {
	for _, body := range []string{
		`{"confidence":0.5,"summary":"x"}`,
		`{"interest_label":"FYI","summary":"x"}`,
		`{"interest_label":"FYI","confidence":0.5}`,
		`not json`,
		``,
	} {
		_, err := ParseResponse(body)
		assert.ErrorIs(t, err, ErrParse, body)
	}
}

func TestParseResponseSanitizesTags(t *testing.T) {
	long := strings.Repeat("x", 40)
	got, err := ParseResponse(`{"interest_label":"think","confidence":"0.4","summary":"s",
		"tags":[" Go ", 3, null, "", "` + long + `", "a", "b", "c", "d"]}`)
	require.NoError(t, err)

	assert.Equal(t, models.InterestThink, got.Label)
	assert.Equal(t, 0.4, got.Confidence)
	assert.Equal(t, []string{"Go", strings.Repeat("x", 30), "a", "b", "c"}, got.Tags)
}

func TestParseResponseNonListTags(t *testing.T) {
	got, err := ParseResponse(`{"interest_label":"FYI","confidence":0,"summary":"s","tags":"Go"}`)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
	assert.NotNil(t, got.Tags)
}

func TestParseResponseTruncatesSummary(t *testing.T) {
	summary := strings.Repeat("あ", 400)
	got, err := ParseResponse(`{"interest_label":"FYI","confidence":0.2,"summary":"` + summary + `"}`)
	require.NoError(t, err)
	assert.Equal(t, models.MaxSummaryLength, len([]rune(got.Summary)))
}

func TestRateLimitDelay(t *testing.T) {
	base, maxBackoff := 2*time.Second, 20*time.Second

	assert.Equal(t, 2*time.Second, RateLimitDelay(0, base, maxBackoff, 0))
	assert.Equal(t, 4*time.Second, RateLimitDelay(1, base, maxBackoff, 0))
	assert.Equal(t, 16*time.Second, RateLimitDelay(3, base, maxBackoff, 0))
	assert.Equal(t, 20*time.Second, RateLimitDelay(10, base, maxBackoff, 0))
	assert.Equal(t, 3*time.Second, RateLimitDelay(0, base, maxBackoff, 1))

	for attempt := 0; attempt < 8; attempt++ {
		for _, f := range []float64{0, 0.25, 0.5, 0.99} {
			d := RateLimitDelay(attempt, base, maxBackoff, f)
			capped := min(base<<attempt, maxBackoff)
			assert.GreaterOrEqual(t, d, capped)
			assert.LessOrEqual(t, d, capped+capped/2)
		}
	}
}

func TestParseRetryDelay(t *testing.T) {
	assert.Equal(t, time.Second, ParseRetryDelay(1))
	assert.Equal(t, 3*time.Second, ParseRetryDelay(3))
}

func TestBuildPromptIsDeterministic(t *testing.T) {
	profile := models.InterestProfile{
		Summary:     "Backend engineer",
		MaxInterest: []string{"Go"},
		Criteria: map[string]models.JudgmentCriterion{
			"act_now": {Label: "ACT_NOW", Description: "try it today"},
		},
	}
	a := models.Article{URL: "https://example.com/a", Title: "Go 1.24\nreleased", SourceName: "Go Blog"}

	p1 := BuildPrompt(profile, a)
	p2 := BuildPrompt(profile, a)
	assert.Equal(t, p1, p2)
	assert.Contains(t, p1, "- Title: Go 1.24 released")
	assert.Contains(t, p1, "**ACT_NOW**: try it today")
	assert.Contains(t, p1, "Backend engineer")
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, IsRateLimited(codeError{CodeThrottling}))
	assert.True(t, IsRateLimited(codeError{CodeServiceUnavailable}))
	assert.False(t, IsRateLimited(codeError{"AccessDeniedException"}))
	assert.False(t, IsRateLimited(assert.AnError))
}

func TestParseResponseRejectsNonFiniteConfidence(t *testing.T) {
	for _, confidence := range []string{`"NaN"`, `"Inf"`, `"-Infinity"`, `NaN`} {
		body := `{"interest_label":"FYI","confidence":` + confidence + `,"summary":"s"}`
		_, err := ParseResponse(body)
		assert.ErrorIs(t, err, ErrParse, body)
	}

	got, err := ParseResponse(`{"interest_label":"FYI","confidence":"1.7","summary":"s"}`)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Confidence)
}
