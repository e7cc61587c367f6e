package profile

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spacesedan/buzzdigest/internal/models"
)

// LoadInterestProfile reads the interest profile YAML at path.
func LoadInterestProfile(path string) (models.InterestProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.InterestProfile{}, fmt.Errorf("read interest profile: %w", err)
	}
	p, err := ParseInterestProfile(data)
	if err != nil {
		return models.InterestProfile{}, fmt.Errorf("%s: %w", path, err)
	}

	slog.Info("[Profile] Interest profile loaded",
		slog.String("path", path),
		slog.Int("max", len(p.MaxInterest)),
		slog.Int("high", len(p.HighInterest)),
		slog.Int("criteria", len(p.Criteria)))
	return p, nil
}

func ParseInterestProfile(data []byte) (models.InterestProfile, error) {
	var p models.InterestProfile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return models.InterestProfile{}, fmt.Errorf("parse interest profile: %w", err)
	}
	if err := validateProfile(p); err != nil {
		return models.InterestProfile{}, err
	}
	return p, nil
}

func validateProfile(p models.InterestProfile) error {
	for key, c := range p.Criteria {
		label, err := models.ParseInterestLabel(c.Label)
		if err != nil {
			return fmt.Errorf("criteria %q: %w", key, err)
		}
		if strings.ToLower(label.String()) != key {
			return fmt.Errorf("criteria %q has label %s", key, label)
		}
	}
	return nil
}

// SourceMaster is the static list of feed sources with their authority levels.
type SourceMaster struct {
	sources []models.SourceConfig
}

type sourceFile struct {
	Sources []models.SourceConfig `yaml:"sources"`
}

func LoadSourceMaster(path string) (*SourceMaster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source master: %w", err)
	}
	m, err := ParseSourceMaster(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Info("[Profile] Source master loaded", slog.String("path", path), slog.Int("sources", len(m.sources)))
	return m, nil
}

func ParseSourceMaster(data []byte) (*SourceMaster, error) {
	var f sourceFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse source master: %w", err)
	}

	seen := map[string]struct{}{}
	for i, s := range f.Sources {
		if s.Name == "" {
			return nil, fmt.Errorf("source #%d has no name", i+1)
		}
		if _, dup := seen[s.SourceID]; dup && s.SourceID != "" {
			return nil, fmt.Errorf("duplicate source_id %q", s.SourceID)
		}
		seen[s.SourceID] = struct{}{}

		switch s.AuthorityLevel {
		case models.AuthorityOfficial, models.AuthorityHigh, models.AuthorityMedium, models.AuthorityLow, "":
		default:
			return nil, fmt.Errorf("source %q: unknown authority_level %q", s.Name, s.AuthorityLevel)
		}
	}
	return &SourceMaster{sources: f.Sources}, nil
}

func NewSourceMaster(sources []models.SourceConfig) *SourceMaster {
	return &SourceMaster{sources: sources}
}

// AllSources returns every configured source, enabled or not.
func (m *SourceMaster) AllSources() []models.SourceConfig {
	out := make([]models.SourceConfig, len(m.sources))
	copy(out, m.sources)
	return out
}

func (m *SourceMaster) EnabledSources() []models.SourceConfig {
	var out []models.SourceConfig
	for _, s := range m.sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}
