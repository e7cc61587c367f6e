package models

const (
	buzzHighThreshold = 70.0
	buzzMidThreshold  = 40.0
)

// BuzzWeights are the blend weights of the three buzz components.
type BuzzWeights struct {
	SocialProof float64
	Interest    float64
	Authority   float64
}

func DefaultBuzzWeights() BuzzWeights {
	return BuzzWeights{
		SocialProof: 0.55,
		Interest:    0.35,
		Authority:   0.10,
	}
}

// Total blends the three component scores.
func (w BuzzWeights) Total(socialProof, interest, authority float64) float64 {
	return socialProof*w.SocialProof + interest*w.Interest + authority*w.Authority
}

// BuzzScore is the non-model popularity estimate of one article.
type BuzzScore struct {
	URL              string  `json:"url"`
	SocialProofScore float64 `json:"social_proof_score"`
	InterestScore    float64 `json:"interest_score"`
	AuthorityScore   float64 `json:"authority_score"`
	SocialProofCount int     `json:"social_proof_count"`
	TotalScore       float64 `json:"total_score"`
}

// ZeroBuzzScore stands in for articles that were never scored.
var ZeroBuzzScore = BuzzScore{}

// ExternalBuzz removes the interest contribution from the total and rescales
// the remainder to 0-100.
func (s BuzzScore) ExternalBuzz(w BuzzWeights) float64 {
	remaining := 1.0 - w.Interest
	if remaining <= 0 {
		return 0
	}
	raw := s.TotalScore - s.InterestScore*w.Interest
	if raw < 0 {
		raw = 0
	}
	return min(raw/remaining, 100.0)
}

func (s BuzzScore) BuzzLabel() BuzzLabel {
	switch {
	case s.TotalScore >= buzzHighThreshold:
		return BuzzHigh
	case s.TotalScore >= buzzMidThreshold:
		return BuzzMid
	default:
		return BuzzLow
	}
}
