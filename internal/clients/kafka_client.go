package clients

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/spacesedan/buzzdigest/internal/models"
)

const kafkaFlushTimeoutMs = 5000

// DigestMessage is one selected article handed to the digest renderer.
type DigestMessage struct {
	RunID      string                `json:"run_id"`
	Rank       int                   `json:"rank"`
	Judgment   models.JudgmentResult `json:"judgment"`
	TotalScore float64               `json:"total_score"`
}

type KafkaProducer struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaProducer(broker, topic string) (*KafkaProducer, error) {
	slog.Info("[KafkaClient] Initializing Kafka Producer...", slog.String("broker", broker))

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":   broker,
		"security.protocol":   "PLAINTEXT",
		"api.version.request": "true",
		"enable.idempotence":  true,
		"acks":                "all",
	})
	if err != nil {
		return nil, fmt.Errorf("[KafkaClient] Failed to create producer: %w", err)
	}

	slog.Info("[KafkaClient] Kafka Producer initialized successfully", slog.String("topic", topic))
	return &KafkaProducer{producer: p, topic: topic}, nil
}

// EncodeDigestMessages builds one message per selected article keyed by URL.
func EncodeDigestMessages(topic, runID string, selected []models.JudgmentResult, scores map[string]models.BuzzScore) ([]*kafka.Message, error) {
	msgs := make([]*kafka.Message, 0, len(selected))
	for i, j := range selected {
		value, err := json.Marshal(DigestMessage{
			RunID:      runID,
			Rank:       i + 1,
			Judgment:   j,
			TotalScore: scores[j.URL].TotalScore,
		})
		if err != nil {
			return nil, fmt.Errorf("[KafkaClient] marshal digest message: %w", err)
		}
		msgs = append(msgs, &kafka.Message{
			TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
			Key:            []byte(j.URL),
			Value:          value,
			Headers:        []kafka.Header{{Key: "run_id", Value: []byte(runID)}},
			Timestamp:      time.Now().UTC(),
		})
	}
	return msgs, nil
}

// PublishDigest produces the shortlist and waits for delivery reports.
func (k *KafkaProducer) PublishDigest(runID string, selected []models.JudgmentResult, scores map[string]models.BuzzScore) error {
	msgs, err := EncodeDigestMessages(k.topic, runID, selected, scores)
	if err != nil {
		return err
	}

	deliveries := make(chan kafka.Event, len(msgs))
	for _, msg := range msgs {
		for i := 0; i < MAX_RETRIES; i++ {
			err = k.producer.Produce(msg, deliveries)
			if err == nil {
				break
			}
			slog.Warn("[KafkaClient] Failed to produce message, retrying...",
				slog.Int("attempt", i+1),
				slog.String("error", err.Error()))
			k.producer.Flush(100)
		}
		if err != nil {
			return fmt.Errorf("[KafkaClient] produce %s: %w", string(msg.Key), err)
		}
	}

	for range msgs {
		e := <-deliveries
		if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			return fmt.Errorf("[KafkaClient] delivery failed: %w", m.TopicPartition.Error)
		}
	}

	slog.Info("[KafkaClient] Published digest",
		slog.String("topic", k.topic),
		slog.String("run_id", runID),
		slog.Int("articles", len(msgs)))
	return nil
}

func (k *KafkaProducer) Close() {
	slog.Info("[KafkaClient] Shutting down Kafka producer...")
	if remaining := k.producer.Flush(kafkaFlushTimeoutMs); remaining > 0 {
		slog.Warn("[KafkaClient] Not all messages were delivered before shutdown",
			slog.Int("remaining", remaining))
	}
	k.producer.Close()
	slog.Info("[KafkaClient] Kafka producer shut down")
}
