package models

import (
	"fmt"
	"strings"
)

// JudgmentCriterion describes when the model should pick one interest label.
type JudgmentCriterion struct {
	Label       string   `yaml:"label"`
	Description string   `yaml:"description"`
	Examples    []string `yaml:"examples"`
}

// InterestProfile is the reader's topic preferences in five tiers plus the
// per-label judgment criteria.
type InterestProfile struct {
	Summary        string                       `yaml:"summary"`
	MaxInterest    []string                     `yaml:"max_interest"`
	HighInterest   []string                     `yaml:"high_interest"`
	MediumInterest []string                     `yaml:"medium_interest"`
	LowInterest    []string                     `yaml:"low_interest"`
	IgnoreInterest []string                     `yaml:"ignore_interest"`
	Criteria       map[string]JudgmentCriterion `yaml:"criteria"`
}

// TopicTier is one precedence level of the profile.
type TopicTier struct {
	Name    string
	Heading string
	Score   float64
	Topics  []string
}

// Tiers returns the five tiers from most interested to ignored.
func (p InterestProfile) Tiers() []TopicTier {
	return []TopicTier{
		{Name: "max", Heading: "Topics of highest interest", Score: 100, Topics: p.MaxInterest},
		{Name: "high", Heading: "Topics of strong interest", Score: 80, Topics: p.HighInterest},
		{Name: "medium", Heading: "Topics of moderate interest", Score: 55, Topics: p.MediumInterest},
		{Name: "low", Heading: "Topics of low interest", Score: 30, Topics: p.LowInterest},
		{Name: "ignore", Heading: "Topics of no interest", Score: 0, Topics: p.IgnoreInterest},
	}
}

// criteriaKeys fixes the order criteria appear in prompts.
var criteriaKeys = []string{"act_now", "think", "fyi", "ignore"}

func (p InterestProfile) FormatForPrompt() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(p.Summary))
	b.WriteString("\n\n")

	for _, tier := range p.Tiers() {
		if len(tier.Topics) == 0 {
			continue
		}
		fmt.Fprintf(&b, "**%s**:\n", tier.Heading)
		for _, topic := range tier.Topics {
			fmt.Fprintf(&b, "- %s\n", topic)
		}
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String())
}

func (p InterestProfile) FormatCriteriaForPrompt() string {
	var lines []string
	for _, key := range criteriaKeys {
		criterion, ok := p.Criteria[key]
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("- **%s**: %s", criterion.Label, criterion.Description))
		if len(criterion.Examples) > 0 {
			lines = append(lines, "  - Examples:")
			for _, example := range criterion.Examples {
				lines = append(lines, "    - "+example)
			}
		}
	}
	return strings.Join(lines, "\n")
}
