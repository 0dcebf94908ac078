// Package audit records who performed which registry write, and the ledger
// transaction that carried it. Events flow to Kafka in production; the
// in-memory publisher backs tests and broker-less development.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"docseal/internal/platform/kafka/producer"
)

// Registry write actions.
const (
	ActionStoreInitial = "store_initial"
	ActionUpdateHash   = "update_hash"
)

// Event is one security-relevant registry write.
type Event struct {
	ID          string    `json:"id"`
	Action      string    `json:"action"`
	Commitment  string    `json:"commitment"`
	Actor       string    `json:"actor"`
	TxHash      string    `json:"tx_hash"`
	BlockNumber uint64    `json:"block_number"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewEvent stamps an event with an ID and timestamp.
func NewEvent(action, commitment, actor, txHash string, blockNumber uint64) Event {
	return Event{
		ID:          uuid.New().String(),
		Action:      action,
		Commitment:  commitment,
		Actor:       actor,
		TxHash:      txHash,
		BlockNumber: blockNumber,
		OccurredAt:  time.Now().UTC(),
	}
}

// Publisher emits audit events for security-relevant operations.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// KafkaPublisher publishes audit events to a Kafka topic, keyed by
// commitment so one identity's trail stays ordered within a partition.
type KafkaPublisher struct {
	producer *producer.Producer
	topic    string
}

// NewKafkaPublisher creates a Kafka-backed audit publisher.
func NewKafkaPublisher(p *producer.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: p, topic: topic}
}

func (k *KafkaPublisher) Emit(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	return k.producer.Produce(ctx, &producer.Message{
		Topic: k.topic,
		Key:   []byte(event.Commitment),
		Value: value,
		Headers: map[string]string{
			"action": event.Action,
		},
	})
}

// MemoryPublisher collects events in memory for tests and development.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryPublisher creates an in-memory audit publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (m *MemoryPublisher) Emit(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of emitted events.
func (m *MemoryPublisher) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}
