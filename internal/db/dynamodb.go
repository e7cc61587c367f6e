package db

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/spacesedan/buzzdigest/internal/models"
)

const (
	judgmentSortKey  = "JUDGMENT#v1"
	summarySortKey   = "SUMMARY"
	DefaultCacheTTL  = 30 * 24 * time.Hour
	maxBatchSize     = 25
	maxBatchRetries  = 3
	initialBatchWait = 500 * time.Millisecond
)

// DynamoDBAPI is the subset of the DynamoDB client the stores use.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// judgmentItem is the stored form of a cached judgment.
type judgmentItem struct {
	PK            string   `dynamodbav:"PK"`
	SK            string   `dynamodbav:"SK"`
	URL           string   `dynamodbav:"url"`
	Title         string   `dynamodbav:"title"`
	Description   string   `dynamodbav:"description"`
	InterestLabel string   `dynamodbav:"interest_label"`
	BuzzLabel     string   `dynamodbav:"buzz_label"`
	Confidence    float64  `dynamodbav:"confidence"`
	Summary       string   `dynamodbav:"summary"`
	ModelID       string   `dynamodbav:"model_id"`
	JudgedAt      string   `dynamodbav:"judged_at"`
	PublishedAt   string   `dynamodbav:"published_at"`
	Tags          []string `dynamodbav:"tags,omitempty"`
	TTL           int64    `dynamodbav:"ttl"`
}

// URLHashKey is the partition key for a judgment cached under url.
func URLHashKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "URL#" + hex.EncodeToString(sum[:])[:16]
}

func encodeJudgment(j models.JudgmentResult, expiresAt time.Time) judgmentItem {
	return judgmentItem{
		PK:            URLHashKey(j.URL),
		SK:            judgmentSortKey,
		URL:           j.URL,
		Title:         j.Title,
		Description:   j.Description,
		InterestLabel: j.InterestLabel.String(),
		BuzzLabel:     j.BuzzLabel.String(),
		Confidence:    j.Confidence,
		Summary:       j.Summary,
		ModelID:       j.ModelID,
		JudgedAt:      j.JudgedAt.UTC().Format(time.RFC3339),
		PublishedAt:   j.PublishedAt.UTC().Format(time.RFC3339),
		Tags:          j.Tags,
		TTL:           expiresAt.Unix(),
	}
}

func decodeJudgment(item judgmentItem) (models.JudgmentResult, error) {
	interest, err := models.ParseInterestLabel(item.InterestLabel)
	if err != nil {
		return models.JudgmentResult{}, err
	}
	buzz, err := models.ParseBuzzLabel(item.BuzzLabel)
	if err != nil {
		return models.JudgmentResult{}, err
	}
	judgedAt, err := time.Parse(time.RFC3339, item.JudgedAt)
	if err != nil {
		return models.JudgmentResult{}, fmt.Errorf("judged_at: %w", err)
	}
	publishedAt, err := time.Parse(time.RFC3339, item.PublishedAt)
	if err != nil {
		return models.JudgmentResult{}, fmt.Errorf("published_at: %w", err)
	}
	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}

	return models.JudgmentResult{
		URL:           item.URL,
		Title:         item.Title,
		Description:   item.Description,
		InterestLabel: interest,
		BuzzLabel:     buzz,
		Confidence:    item.Confidence,
		Summary:       item.Summary,
		ModelID:       item.ModelID,
		JudgedAt:      judgedAt,
		PublishedAt:   publishedAt,
		Tags:          tags,
	}, nil
}

// DynamoJudgmentCache keeps judgments across runs, expiring them by TTL.
type DynamoJudgmentCache struct {
	client DynamoDBAPI
	table  string
	ttl    time.Duration
	now    func() time.Time
}

func NewDynamoJudgmentCache(client DynamoDBAPI, table string, ttl time.Duration) *DynamoJudgmentCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &DynamoJudgmentCache{client: client, table: table, ttl: ttl, now: time.Now}
}

func judgmentKey(url string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: URLHashKey(url)},
		"SK": &types.AttributeValueMemberS{Value: judgmentSortKey},
	}
}

// Get returns nil, nil when nothing usable is cached for url. An expired item
// that DynamoDB has not swept yet counts as a miss.
func (c *DynamoJudgmentCache) Get(ctx context.Context, url string) (*models.JudgmentResult, error) {
	out, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.table),
		Key:       judgmentKey(url),
	})
	if err != nil {
		return nil, fmt.Errorf("[DynamoDB] get judgment: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var item judgmentItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("[DynamoDB] unmarshal judgment: %w", err)
	}
	if item.TTL > 0 && item.TTL <= c.now().Unix() {
		return nil, nil
	}
	if item.URL != url {
		slog.Warn("[DynamoDB] Cache key collision", slog.String("url", url), slog.String("cached_url", item.URL))
		return nil, nil
	}

	j, err := decodeJudgment(item)
	if err != nil {
		return nil, fmt.Errorf("[DynamoDB] decode judgment: %w", err)
	}
	return &j, nil
}

func (c *DynamoJudgmentCache) Put(ctx context.Context, j models.JudgmentResult) error {
	item, err := attributevalue.MarshalMap(encodeJudgment(j, c.now().Add(c.ttl)))
	if err != nil {
		return fmt.Errorf("[DynamoDB] marshal judgment: %w", err)
	}

	if _, err := c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("[DynamoDB] put judgment: %w", err)
	}

	slog.Debug("[DynamoDB] Judgment cached", slog.String("url", j.URL))
	return nil
}

// HistoryStore records one summary item and the selected articles per run.
type HistoryStore struct {
	client DynamoDBAPI
	table  string
	sleep  func(time.Duration)
}

func NewHistoryStore(client DynamoDBAPI, table string) *HistoryStore {
	return &HistoryStore{client: client, table: table, sleep: time.Sleep}
}

type summaryItem struct {
	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
	models.ExecutionSummary
}

type selectedItem struct {
	PK         string  `dynamodbav:"PK"`
	SK         string  `dynamodbav:"SK"`
	Rank       int     `dynamodbav:"rank"`
	URL        string  `dynamodbav:"url"`
	Title      string  `dynamodbav:"title"`
	Label      string  `dynamodbav:"interest_label"`
	BuzzLabel  string  `dynamodbav:"buzz_label"`
	Confidence float64 `dynamodbav:"confidence"`
	Summary    string  `dynamodbav:"summary"`
}

func runKey(runID string) string { return "RUN#" + runID }

// SaveRun stores the summary and the shortlist of one run.
func (h *HistoryStore) SaveRun(ctx context.Context, summary models.ExecutionSummary, selected []models.JudgmentResult) error {
	item, err := attributevalue.MarshalMap(summaryItem{
		PK:               runKey(summary.RunID),
		SK:               summarySortKey,
		ExecutionSummary: summary,
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] marshal summary: %w", err)
	}
	if _, err := h.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(h.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("[DynamoDB] put summary: %w", err)
	}

	if err := h.storeSelected(ctx, summary.RunID, selected); err != nil {
		return err
	}

	slog.Info("[DynamoDB] Run history stored",
		slog.String("run_id", summary.RunID),
		slog.Int("selected", len(selected)))
	return nil
}

func (h *HistoryStore) storeSelected(ctx context.Context, runID string, selected []models.JudgmentResult) error {
	for i := 0; i < len(selected); i += maxBatchSize {
		if err := ctx.Err(); err != nil {
			slog.Warn("[DynamoDB] context canceled")
			return err
		}

		end := min(i+maxBatchSize, len(selected))
		writeRequests := make([]types.WriteRequest, 0, end-i)
		for n, j := range selected[i:end] {
			rank := i + n + 1
			item, err := attributevalue.MarshalMap(selectedItem{
				PK:         runKey(runID),
				SK:         "ARTICLE#" + fmt.Sprintf("%03d", rank),
				Rank:       rank,
				URL:        j.URL,
				Title:      j.Title,
				Label:      j.InterestLabel.String(),
				BuzzLabel:  j.BuzzLabel.String(),
				Confidence: j.Confidence,
				Summary:    j.Summary,
			})
			if err != nil {
				return fmt.Errorf("[DynamoDB] marshal selected article: %w", err)
			}
			writeRequests = append(writeRequests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}

		out, err := h.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				h.table: writeRequests,
			},
		})
		if err != nil {
			return fmt.Errorf("[DynamoDB] Failed to batch write selected articles: %w", err)
		}

		// Retry writing unprocessed items
		retryCount := 0
		backoffDuration := initialBatchWait
		for len(out.UnprocessedItems) > 0 && retryCount < maxBatchRetries {
			h.sleep(backoffDuration)
			backoffDuration *= 2
			slog.Warn("[DynamoDB] Retrying unprocessed items...",
				slog.Int("retry_attempt", retryCount+1),
				slog.Int("remaining_items", len(out.UnprocessedItems[h.table])),
			)

			out, err = h.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: out.UnprocessedItems,
			})
			if err != nil {
				return fmt.Errorf("[DynamoDB] Failed to retry batch write: %w", err)
			}
			retryCount++
		}

		if remaining := len(out.UnprocessedItems[h.table]); remaining > 0 {
			return errors.New("[DynamoDB] " + strconv.Itoa(remaining) + " items were not written even after retries")
		}
	}
	return nil
}
