package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"fairdraw/internal/platform/config"
	audit "fairdraw/pkg/platform/audit"
)

// Producer publishes audit entries to a topic, keyed by run id so one run's
// entries stay on one partition in chain order.
type Producer struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
	now    func() time.Time
}

// NewProducer connects to the configured brokers. Returns nil when Kafka is
// not configured.
func NewProducer(cfg config.KafkaConfig, logger *slog.Logger) (*Producer, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.AuditTopic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProduceRequestTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Producer{client: client, topic: cfg.AuditTopic, logger: logger, now: time.Now}, nil
}

// EnsureTopic creates the audit topic if it does not exist yet.
func (p *Producer) EnsureTopic(ctx context.Context, partitions int32) error {
	adm := kadm.NewClient(p.client)
	resp, err := adm.CreateTopics(ctx, partitions, -1, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

// Publish produces a batch synchronously and returns the first failure.
func (p *Producer) Publish(ctx context.Context, records []audit.Record) error {
	now := p.now()
	out := make([]*kgo.Record, 0, len(records))
	for _, r := range records {
		value, err := json.Marshal(audit.NewStreamMessage(r, now))
		if err != nil {
			return fmt.Errorf("encode audit entry %s/%d: %w", r.RunID, r.Index, err)
		}
		out = append(out, &kgo.Record{
			Key:   []byte(r.Key()),
			Value: value,
			Headers: []kgo.RecordHeader{
				{Key: "event_type", Value: []byte(r.EventType)},
				{Key: "entry_hash", Value: []byte(r.EntryHash)},
			},
		})
	}
	if err := p.client.ProduceSync(ctx, out...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit entries: %w", err)
	}
	return nil
}

// Health pings the cluster.
func (p *Producer) Health(ctx context.Context) error {
	return p.client.Ping(ctx)
}

func (p *Producer) Close() {
	p.client.Close()
}
