package redis

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"pharmaledger/internal/infrastructure/storage/postgres"
)

// ChannelPrefix is prepended to the event type: "ledger.voucher.posted".
const ChannelPrefix = "ledger."

// Envelope is what subscribers receive.
type Envelope struct {
	ID            string          `json:"id"`
	EventType     string          `json:"eventType"`
	AggregateType string          `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	OccurredAt    string          `json:"occurredAt"`
	Payload       json.RawMessage `json:"payload"`
}

// Publisher relays outbox messages to Redis pub/sub.
type Publisher struct {
	client goredis.UniversalClient
}

var _ postgres.OutboxHandler = (*Publisher)(nil)

// NewPublisher creates a Publisher.
func NewPublisher(client goredis.UniversalClient) *Publisher {
	return &Publisher{client: client}
}

// Channel returns the pub/sub channel of an event type.
func Channel(eventType string) string { return ChannelPrefix + eventType }

// Handle implements postgres.OutboxHandler.
func (p *Publisher) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	body, err := json.Marshal(Envelope{
		ID:            msg.ID.String(),
		EventType:     msg.EventType,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID.String(),
		OccurredAt:    msg.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Payload:       msg.Payload,
	})
	if err != nil {
		return fmt.Errorf("marshal envelope %s: %w", msg.ID, err)
	}
	if err := p.client.Publish(ctx, Channel(msg.EventType), body).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.EventType, err)
	}
	return nil
}
