package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuzzWeightsTotal(t *testing.T) {
	w := DefaultBuzzWeights()

	cases := []struct{ social, interest, authority float64 }{
		{0, 0, 0},
		{100, 100, 100},
		{20, 15, 0},
		{73.5, 55, 80},
	}
	for _, c := range cases {
		want := 0.55*c.social + 0.35*c.interest + 0.10*c.authority
		assert.InDelta(t, want, w.Total(c.social, c.interest, c.authority), 1e-9)
	}
}

func TestExternalBuzzBounds(t *testing.T) {
	w := DefaultBuzzWeights()

	low := BuzzScore{TotalScore: 10, InterestScore: 100}
	assert.Equal(t, 0.0, low.ExternalBuzz(w))

	high := BuzzScore{TotalScore: 100, InterestScore: 100}
	assert.InDelta(t, 100.0, high.ExternalBuzz(w), 1e-9)

	mid := BuzzScore{TotalScore: 65, InterestScore: 30}
	assert.InDelta(t, 83.846, mid.ExternalBuzz(w), 1e-3)

	overflow := BuzzScore{TotalScore: 100, InterestScore: 0}
	assert.Equal(t, 100.0, overflow.ExternalBuzz(w))

	assert.Equal(t, 0.0, ZeroBuzzScore.ExternalBuzz(w))
}

func TestBuzzLabelThresholds(t *testing.T) {
	assert.Equal(t, BuzzHigh, BuzzScore{TotalScore: 70}.BuzzLabel())
	assert.Equal(t, BuzzMid, BuzzScore{TotalScore: 69.9}.BuzzLabel())
	assert.Equal(t, BuzzMid, BuzzScore{TotalScore: 40}.BuzzLabel())
	assert.Equal(t, BuzzLow, BuzzScore{TotalScore: 39.9}.BuzzLabel())
}
