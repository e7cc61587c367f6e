package db

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/spacesedan/buzzdigest/internal/models"
)

const valkeyJudgmentPrefix = "judgment:"

// KeyValueStore is satisfied by clients.ValkeyClient.
type KeyValueStore interface {
	GetString(ctx context.Context, key string) (string, bool, error)
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
}

// ValkeyJudgmentCache stores judgments as JSON values with an expiry.
type ValkeyJudgmentCache struct {
	store KeyValueStore
	ttl   time.Duration
}

func NewValkeyJudgmentCache(store KeyValueStore, ttl time.Duration) *ValkeyJudgmentCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ValkeyJudgmentCache{store: store, ttl: ttl}
}

func ValkeyJudgmentKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return valkeyJudgmentPrefix + hex.EncodeToString(sum[:])
}

func (c *ValkeyJudgmentCache) Get(ctx context.Context, url string) (*models.JudgmentResult, error) {
	raw, found, err := c.store.GetString(ctx, ValkeyJudgmentKey(url))
	if err != nil {
		return nil, fmt.Errorf("[Valkey] get judgment: %w", err)
	}
	if !found {
		return nil, nil
	}

	var j models.JudgmentResult
	if err := json.Unmarshal([]byte(raw), &j); err != nil {
		return nil, fmt.Errorf("[Valkey] decode judgment: %w", err)
	}
	if j.Tags == nil {
		j.Tags = []string{}
	}
	return &j, nil
}

func (c *ValkeyJudgmentCache) Put(ctx context.Context, j models.JudgmentResult) error {
	raw, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("[Valkey] encode judgment: %w", err)
	}
	if err := c.store.SetWithTTL(ctx, ValkeyJudgmentKey(j.URL), string(raw), c.ttl); err != nil {
		return fmt.Errorf("[Valkey] set judgment: %w", err)
	}
	slog.Debug("[Valkey] Judgment cached", slog.String("url", j.URL))
	return nil
}
