package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spacesedan/buzzdigest/config"
	"github.com/spacesedan/buzzdigest/internal/clients"
	"github.com/spacesedan/buzzdigest/internal/db"
	"github.com/spacesedan/buzzdigest/internal/judge"
	"github.com/spacesedan/buzzdigest/internal/models"
	"github.com/spacesedan/buzzdigest/internal/pipeline"
	"github.com/spacesedan/buzzdigest/internal/profile"
	"github.com/spacesedan/buzzdigest/internal/scoring"
	"github.com/spacesedan/buzzdigest/internal/selection"
	"github.com/spacesedan/buzzdigest/internal/signals"
)

const signalHTTPTimeout = 15 * time.Second

type app struct {
	settings config.Settings
	pipeline *pipeline.Pipeline
	closers  []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(settings config.Settings) (*app, error) {
	a := &app{settings: settings}

	interest, err := profile.LoadInterestProfile(settings.InterestProfilePath)
	if err != nil {
		return nil, err
	}
	sources, err := profile.LoadSourceMaster(settings.SourcesConfigPath)
	if err != nil {
		return nil, err
	}

	scorer := scoring.NewBuzzScorer(scoring.DefaultScorerConfig(), interest, sources, buildAggregator(settings))

	invoker, err := buildInvoker(settings)
	if err != nil {
		return nil, err
	}

	judgeOpts, err := a.buildCache(settings)
	if err != nil {
		a.Close()
		return nil, err
	}

	j := judge.New(judge.Config{
		ModelIdentifier: settings.Inference.ModelIdentifier(),
		ModelID:         settings.Inference.ModelID(),
		MaxRetries:      settings.Judge.MaxRetries,
		Concurrency:     settings.Judge.MaxParallel,
		RequestInterval: settings.Judge.RequestInterval,
		RetryBaseDelay:  settings.Judge.RetryBaseDelay,
		MaxBackoff:      settings.Judge.MaxBackoff,
	}, invoker, interest, judgeOpts...)

	selector := selection.DefaultConfig()
	selector.MaxArticles = settings.Selection.FinalMax
	selector.MaxPerDomain = settings.Selection.MaxPerDomain

	deps := pipeline.Deps{
		Scorer:     scorer,
		Candidates: scoring.NewCandidateSelector(settings.Selection.CandidateMax),
		Judge:      j,
		Selector:   selection.NewFinalSelector(selector),
	}

	if !settings.DryRun {
		deps.History = db.NewHistoryStore(
			clients.GetDynamoDBClient(settings.AWSRegion, settings.AWSEndpoint),
			settings.Cache.HistoryTable)

		if settings.Kafka.Broker != "" {
			producer, err := clients.NewKafkaProducer(settings.Kafka.Broker, settings.Kafka.DigestTopic)
			if err != nil {
				a.Close()
				return nil, err
			}
			a.closers = append(a.closers, producer.Close)
			deps.Publisher = producer
		} else {
			slog.Warn("[Main] KAFKA_BROKER not set, digest will not be published")
		}
	}

	a.pipeline = pipeline.New(deps, pipeline.Options{
		DryRun: settings.DryRun,
		Cost:   pipeline.DefaultCostParams(),
	})
	return a, nil
}

func buildAggregator(settings config.Settings) *signals.Aggregator {
	httpClient := &http.Client{Timeout: signalHTTPTimeout}

	var qiitaOpts []signals.QiitaOption
	if settings.QiitaAccessToken != "" {
		qiitaOpts = append(qiitaOpts, signals.WithQiitaToken(settings.QiitaAccessToken))
	}

	return signals.NewAggregator(signals.DefaultAggregatorConfig(), signals.DefaultSources(
		signals.NewYamadashyFetcher(httpClient),
		signals.NewHatenaFetcher(httpClient),
		signals.NewZennFetcher(httpClient),
		signals.NewQiitaFetcher(httpClient, qiitaOpts...),
	)...)
}

func buildInvoker(settings config.Settings) (judge.Invoker, error) {
	switch settings.Inference.Provider {
	case config.ProviderBedrock:
		return clients.NewBedrockInvoker(clients.GetBedrockClient(settings.AWSRegion)), nil
	case config.ProviderOpenAI:
		return clients.GetOpenAIClient(settings.Inference.OpenAIAPIKey), nil
	default:
		return nil, fmt.Errorf("[Main] unknown inference provider %q", settings.Inference.Provider)
	}
}

func (a *app) buildCache(settings config.Settings) ([]judge.Option, error) {
	switch settings.Cache.Backend {
	case config.CacheDynamoDB:
		client := clients.GetDynamoDBClient(settings.AWSRegion, settings.AWSEndpoint)
		return []judge.Option{judge.WithCache(db.NewDynamoJudgmentCache(client, settings.Cache.DynamoTable, 0))}, nil
	case config.CacheValkey:
		vc, err := clients.InitValkey(clients.ValkeyOptions{
			Address:  settings.Cache.ValkeyAddress,
			Password: settings.Cache.ValkeyPassword,
			TLS:      settings.Cache.ValkeyTLS,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, clients.CloseValkey)
		return []judge.Option{judge.WithCache(db.NewValkeyJudgmentCache(vc, settings.Cache.ValkeyTTL))}, nil
	default:
		return nil, nil
	}
}

// runOnce reads the collector's article dump and runs the pipeline over it.
func (a *app) runOnce(ctx context.Context) {
	runID := newRunID(time.Now())

	articles, err := loadArticles(a.settings.ArticlesPath)
	if err != nil {
		slog.Error("[Main] Failed to load articles",
			slog.String("run_id", runID),
			slog.String("error", err.Error()))
		return
	}

	if _, err := a.pipeline.Run(ctx, runID, articles); err != nil {
		slog.Error("[Main] Run aborted",
			slog.String("run_id", runID),
			slog.String("error", err.Error()))
	}
}

func newRunID(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

func loadArticles(path string) ([]models.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("[Main] read articles %s: %w", path, err)
	}
	var articles []models.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("[Main] decode articles %s: %w", path, err)
	}
	return articles, nil
}
