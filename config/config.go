package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderBedrock = "bedrock"
	ProviderOpenAI  = "openai"

	CacheDynamoDB = "dynamodb"
	CacheValkey   = "valkey"
	CacheNone     = "none"
)

// Settings is everything a digest run reads from the environment.
type Settings struct {
	Env      string
	LogLevel string
	DryRun   bool

	Inference InferenceSettings
	Judge     JudgeSettings
	Selection SelectionSettings
	Cache     CacheSettings
	Kafka     KafkaSettings

	AWSRegion   string
	AWSEndpoint string

	QiitaAccessToken string

	InterestProfilePath string
	SourcesConfigPath   string
	ArticlesPath        string
	Schedule            string
}

type InferenceSettings struct {
	Provider            string
	BedrockModelID      string
	InferenceProfileARN string
	OpenAIAPIKey        string
	OpenAIModel         string
}

type JudgeSettings struct {
	MaxParallel     int
	MaxRetries      int
	RequestInterval time.Duration
	RetryBaseDelay  time.Duration
	MaxBackoff      time.Duration
}

type SelectionSettings struct {
	CandidateMax int
	FinalMax     int
	MaxPerDomain int
}

type CacheSettings struct {
	Backend        string
	DynamoTable    string
	HistoryTable   string
	ValkeyAddress  string
	ValkeyPassword string
	ValkeyTLS      bool
	ValkeyTTL      time.Duration
}

type KafkaSettings struct {
	Broker      string
	DigestTopic string
}

// Load builds Settings from the environment, applying defaults for anything
// unset. It fails only on values that are present but malformed.
func Load() (Settings, error) {
	var errs []string
	p := &envParser{errs: &errs}

	s := Settings{
		Env:      p.str("APP_ENV", "dev"),
		LogLevel: p.str("LOG_LEVEL", "info"),
		DryRun:   p.boolean("DRY_RUN", false),
		Inference: InferenceSettings{
			Provider:            strings.ToLower(p.str("INFERENCE_PROVIDER", ProviderBedrock)),
			BedrockModelID:      p.str("BEDROCK_MODEL_ID", ""),
			InferenceProfileARN: p.str("BEDROCK_INFERENCE_PROFILE_ARN", ""),
			OpenAIAPIKey:        p.str("OPENAI_API_KEY", ""),
			OpenAIModel:         p.str("OPENAI_MODEL", "gpt-4o-mini"),
		},
		Judge: JudgeSettings{
			MaxParallel:     p.integer("LLM_MAX_PARALLEL", 5),
			MaxRetries:      p.integer("LLM_MAX_RETRIES", 2),
			RequestInterval: p.duration("LLM_REQUEST_INTERVAL", 0),
			RetryBaseDelay:  p.duration("LLM_RETRY_BASE_DELAY", 2*time.Second),
			MaxBackoff:      p.duration("LLM_MAX_BACKOFF", 20*time.Second),
		},
		Selection: SelectionSettings{
			CandidateMax: p.integer("LLM_CANDIDATE_MAX", 150),
			FinalMax:     p.integer("FINAL_SELECT_MAX", 15),
			MaxPerDomain: p.integer("FINAL_SELECT_MAX_PER_DOMAIN", 4),
		},
		Cache: CacheSettings{
			Backend:        strings.ToLower(p.str("CACHE_BACKEND", CacheDynamoDB)),
			DynamoTable:    p.str("DYNAMODB_CACHE_TABLE", "buzzdigest-cache"),
			HistoryTable:   p.str("DYNAMODB_HISTORY_TABLE", "buzzdigest-history"),
			ValkeyAddress:  p.str("VALKEY_INIT_ADDRESS", "localhost:6379"),
			ValkeyPassword: p.str("VALKEY_PASSWORD", ""),
			ValkeyTLS:      p.boolean("VALKEY_TLS", false),
			ValkeyTTL:      p.duration("VALKEY_CACHE_TTL", 30*24*time.Hour),
		},
		Kafka: KafkaSettings{
			Broker:      p.str("KAFKA_BROKER", ""),
			DigestTopic: p.str("KAFKA_DIGEST_TOPIC", "digest.selected"),
		},
		AWSRegion:           p.str("AWS_REGION", "ap-northeast-1"),
		AWSEndpoint:         p.str("AWS_ENDPOINT", ""),
		QiitaAccessToken:    p.str("QIITA_ACCESS_TOKEN", ""),
		InterestProfilePath: p.str("INTEREST_PROFILE_PATH", "config/interest_profile.yaml"),
		SourcesConfigPath:   p.str("SOURCES_CONFIG_PATH", "config/sources.yaml"),
		ArticlesPath:        p.str("ARTICLES_PATH", "articles.json"),
		Schedule:            p.str("DIGEST_SCHEDULE", ""),
	}

	if err := s.validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return Settings{}, fmt.Errorf("[Config] invalid settings: %s", strings.Join(errs, "; "))
	}

	slog.Info("[Config] Settings loaded",
		slog.String("env", s.Env),
		slog.String("provider", s.Inference.Provider),
		slog.String("cache", s.Cache.Backend),
		slog.Bool("dry_run", s.DryRun))
	return s, nil
}

func (s Settings) validate() error {
	switch s.Inference.Provider {
	case ProviderBedrock:
		if s.Inference.BedrockModelID == "" {
			return fmt.Errorf("BEDROCK_MODEL_ID is required for the bedrock provider")
		}
	case ProviderOpenAI:
		if s.Inference.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
	default:
		return fmt.Errorf("unknown INFERENCE_PROVIDER %q", s.Inference.Provider)
	}

	switch s.Cache.Backend {
	case CacheDynamoDB, CacheValkey, CacheNone:
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", s.Cache.Backend)
	}

	if s.Judge.MaxParallel < 1 {
		return fmt.Errorf("LLM_MAX_PARALLEL must be >= 1")
	}
	if s.Judge.MaxRetries < 0 {
		return fmt.Errorf("LLM_MAX_RETRIES must be >= 0")
	}
	if s.Selection.MaxPerDomain < 0 {
		return fmt.Errorf("FINAL_SELECT_MAX_PER_DOMAIN must be >= 0")
	}
	return nil
}

// ModelIdentifier is what the inference endpoint is addressed with: the
// inference profile ARN when one is set, otherwise the model id.
func (i InferenceSettings) ModelIdentifier() string {
	if i.Provider == ProviderOpenAI {
		return i.OpenAIModel
	}
	if i.InferenceProfileARN != "" {
		return i.InferenceProfileARN
	}
	return i.BedrockModelID
}

// ModelID is recorded on judgments.
func (i InferenceSettings) ModelID() string {
	if i.Provider == ProviderOpenAI {
		return i.OpenAIModel
	}
	return i.BedrockModelID
}

type envParser struct {
	errs *[]string
}

func (p *envParser) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (p *envParser) integer(key string, def int) int {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Sprintf("%s: %q is not an integer", key, raw))
		return def
	}
	return v
}

func (p *envParser) boolean(key string, def bool) bool {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Sprintf("%s: %q is not a boolean", key, raw))
		return def
	}
	return v
}

// duration accepts Go duration strings ("1.5s") or plain seconds ("2").
func (p *envParser) duration(key string, def time.Duration) time.Duration {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Sprintf("%s: %q is not a duration", key, raw))
		return def
	}
	return v
}
