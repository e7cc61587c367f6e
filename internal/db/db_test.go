package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/buzzdigest/internal/models"
)

type fakeDynamo struct {
	mu        sync.Mutex
	items     map[string]map[string]types.AttributeValue
	batches   [][]types.WriteRequest
	unprocess int
	putErr    error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func itemKey(item map[string]types.AttributeValue) string {
	pk := item["PK"].(*types.AttributeValueMemberS).Value
	sk := item["SK"].(*types.AttributeValueMemberS).Value
	return pk + "|" + sk
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[itemKey(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.items[itemKey(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &dynamodb.BatchWriteItemOutput{UnprocessedItems: map[string][]types.WriteRequest{}}
	for table, reqs := range in.RequestItems {
		f.batches = append(f.batches, reqs)
		for _, r := range reqs {
			if f.unprocess > 0 {
				f.unprocess--
				out.UnprocessedItems[table] = append(out.UnprocessedItems[table], r)
				continue
			}
			f.items[itemKey(r.PutRequest.Item)] = r.PutRequest.Item
		}
	}
	if len(out.UnprocessedItems) == 0 {
		out.UnprocessedItems = nil
	}
	return out, nil
}

func sampleJudgment() models.JudgmentResult {
	return models.JudgmentResult{
		URL:           "https://example.com/post",
		Title:         "Post",
		Description:   "About things",
		InterestLabel: models.InterestThink,
		BuzzLabel:     models.BuzzMid,
		Confidence:    0.75,
		Summary:       "A summary",
		ModelID:       "model",
		JudgedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		PublishedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Tags:          []string{"Go", "AWS"},
	}
}

func TestURLHashKey(t *testing.T) {
	k := URLHashKey("https://example.com/post")
	assert.True(t, strings.HasPrefix(k, "URL#"))
	assert.Len(t, k, len("URL#")+16)
	assert.Equal(t, k, URLHashKey("https://example.com/post"))
	assert.NotEqual(t, k, URLHashKey("https://example.com/other"))
}

func TestDynamoJudgmentCacheRoundTrip(t *testing.T) {
	fake := newFakeDynamo()
	cache := NewDynamoJudgmentCache(fake, "cache", 0)
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	j := sampleJudgment()
	require.NoError(t, cache.Put(context.Background(), j))

	stored := fake.items[URLHashKey(j.URL)+"|"+judgmentSortKey]
	require.NotNil(t, stored)
	assert.Equal(t, "THINK", stored["interest_label"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "2026-01-02T03:04:05Z", stored["judged_at"].(*types.AttributeValueMemberS).Value)

	got, err := cache.Get(context.Background(), j.URL)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, j, *got)

	miss, err := cache.Get(context.Background(), "https://example.com/never")
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestDynamoJudgmentCacheExpiredIsMiss(t *testing.T) {
	fake := newFakeDynamo()
	cache := NewDynamoJudgmentCache(fake, "cache", time.Hour)
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	require.NoError(t, cache.Put(context.Background(), sampleJudgment()))

	cache.now = func() time.Time { return now.Add(2 * time.Hour) }
	got, err := cache.Get(context.Background(), sampleJudgment().URL)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDynamoJudgmentCacheMissingTags(t *testing.T) {
	fake := newFakeDynamo()
	cache := NewDynamoJudgmentCache(fake, "cache", 0)
	j := sampleJudgment()
	j.Tags = nil
	require.NoError(t, cache.Put(context.Background(), j))

	got, err := cache.Get(context.Background(), j.URL)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{}, got.Tags)
}

func TestDynamoJudgmentCachePutError(t *testing.T) {
	fake := newFakeDynamo()
	fake.putErr = errors.New("ResourceNotFoundException")
	err := NewDynamoJudgmentCache(fake, "cache", 0).Put(context.Background(), sampleJudgment())
	assert.Error(t, err)
}

func TestHistoryStoreSaveRun(t *testing.T) {
	fake := newFakeDynamo()
	fake.unprocess = 2
	h := NewHistoryStore(fake, "history")
	var slept []time.Duration
	h.sleep = func(d time.Duration) { slept = append(slept, d) }

	selected := make([]models.JudgmentResult, 30)
	for i := range selected {
		selected[i] = sampleJudgment()
		selected[i].URL = fmt.Sprintf("https://example.com/%d", i)
	}
	summary := models.ExecutionSummary{RunID: "run-1", SelectedCount: 30, ExecutedAt: time.Now().UTC()}

	require.NoError(t, h.SaveRun(context.Background(), summary, selected))

	assert.Contains(t, fake.items, "RUN#run-1|SUMMARY")
	assert.Contains(t, fake.items, "RUN#run-1|ARTICLE#001")
	assert.Contains(t, fake.items, "RUN#run-1|ARTICLE#030")
	assert.Len(t, fake.batches[0], maxBatchSize)
	assert.Equal(t, []time.Duration{initialBatchWait}, slept)
}

type memoryKV struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func (m *memoryKV) GetString(_ context.Context, key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memoryKV) SetWithTTL(_ context.Context, key, value string, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	m.ttls[key] = ttl
	return nil
}

func TestValkeyJudgmentCache(t *testing.T) {
	kv := &memoryKV{values: map[string]string{}, ttls: map[string]time.Duration{}}
	cache := NewValkeyJudgmentCache(kv, time.Hour)

	j := sampleJudgment()
	require.NoError(t, cache.Put(context.Background(), j))

	key := ValkeyJudgmentKey(j.URL)
	assert.True(t, strings.HasPrefix(key, "judgment:"))
	assert.Equal(t, time.Hour, kv.ttls[key])
	assert.Contains(t, kv.values[key], `"interest_label":"THINK"`)

	got, err := cache.Get(context.Background(), j.URL)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, j, *got)

	miss, err := cache.Get(context.Background(), "https://example.com/none")
	require.NoError(t, err)
	assert.Nil(t, miss)

	kv.err = errors.New("connection refused")
	_, err = cache.Get(context.Background(), j.URL)
	assert.Error(t, err)
}
