package signals

import (
	"context"
	"log/slog"
	"sync"
)

const DefaultSocialProofScore = 20.0

const (
	DomainZenn  = "zenn.dev"
	DomainQiita = "qiita.com"
)

// Source is one weighted signal. Domain restricts the signal to URLs on that
// domain; an empty Domain applies it everywhere.
type Source struct {
	Name    string
	Weight  float64
	Domain  string
	Fetcher Fetcher
}

func (s Source) appliesTo(rawURL string) bool {
	return s.Domain == "" || onDomain(rawURL, s.Domain)
}

// Signal is the fused social proof of one URL.
type Signal struct {
	Score float64
	// Sources is how many sources had data for the URL.
	Sources int
}

type AggregatorConfig struct {
	DefaultScore float64
}

func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{DefaultScore: DefaultSocialProofScore}
}

// Aggregator fans a batch of URLs out to every source concurrently and blends
// the answers with weights normalized over the sources that had data.
type Aggregator struct {
	sources []Source
	cfg     AggregatorConfig
}

func NewAggregator(cfg AggregatorConfig, sources ...Source) *Aggregator {
	return &Aggregator{sources: sources, cfg: cfg}
}

// DefaultSources wires the four production signals with their weights.
func DefaultSources(yamadashy, hatena, zenn, qiita Fetcher) []Source {
	return []Source{
		{Name: "yamadashy", Weight: 0.05, Fetcher: yamadashy},
		{Name: "hatena", Weight: 0.45, Fetcher: hatena},
		{Name: "zenn", Weight: 0.35, Domain: DomainZenn, Fetcher: zenn},
		{Name: "qiita", Weight: 0.15, Domain: DomainQiita, Fetcher: qiita},
	}
}

// FetchBatch satisfies Fetcher with the fused score of every URL.
func (a *Aggregator) FetchBatch(ctx context.Context, urls []string) (map[string]float64, error) {
	signals := a.Aggregate(ctx, urls)
	out := make(map[string]float64, len(signals))
	for u, s := range signals {
		out[u] = s.Score
	}
	return out, nil
}

// Aggregate never fails as a whole: a source that errors is treated as
// having no data for any URL in the batch.
func (a *Aggregator) Aggregate(ctx context.Context, urls []string) map[string]Signal {
	if len(urls) == 0 {
		return map[string]Signal{}
	}

	results := make([]map[string]float64, len(a.sources))
	var wg sync.WaitGroup
	for i, src := range a.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			results[i] = a.fetchSource(ctx, src, urls)
		}(i, src)
	}
	wg.Wait()

	out := make(map[string]Signal, len(urls))
	for _, u := range urls {
		out[u] = a.blend(u, results)
	}

	slog.Info("[SignalAggregator] Batch aggregated",
		slog.Int("urls", len(urls)),
		slog.Int("sources", len(a.sources)))
	return out
}

func (a *Aggregator) fetchSource(ctx context.Context, src Source, urls []string) (values map[string]float64) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[SignalAggregator] Source panicked",
				slog.String("source", src.Name),
				slog.Any("panic", r))
			values = nil
		}
	}()

	applicable := make([]string, 0, len(urls))
	for _, u := range urls {
		if src.appliesTo(u) {
			applicable = append(applicable, u)
		}
	}
	if len(applicable) == 0 || src.Fetcher == nil {
		return nil
	}

	values, err := src.Fetcher.FetchBatch(ctx, applicable)
	if err != nil {
		slog.Warn("[SignalAggregator] Source failed, treating as absent",
			slog.String("source", src.Name),
			slog.String("error", err.Error()))
		return nil
	}
	return values
}

func (a *Aggregator) blend(u string, results []map[string]float64) Signal {
	var weighted, weights float64
	present := 0
	for i, src := range a.sources {
		if !src.appliesTo(u) {
			continue
		}
		v, ok := results[i][u]
		if !ok {
			continue
		}
		weighted += src.Weight * clampScore(v)
		weights += src.Weight
		present++
	}

	if present == 0 || weights <= 0 {
		return Signal{Score: a.cfg.DefaultScore}
	}
	return Signal{Score: weighted / weights, Sources: present}
}

func clampScore(v float64) float64 {
	return min(max(v, 0), 100)
}
