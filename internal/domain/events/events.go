// Package events defines the domain events written to the transactional outbox.
package events

import (
	"context"
	"sync"

	"pharmaledger/internal/core/id"
)

// Event types.
const (
	VoucherPosted     = "voucher.posted"
	VoucherReversed   = "voucher.reversed"
	TransactionPosted = "transaction.posted"
	TransactionVoided = "transaction.voided"
	PaymentRecorded   = "payment.recorded"
	PaymentVoided     = "payment.voided"
)

// Event is published in the same unit of work as the change it describes.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// Publisher writes events. Implementations must join the transaction in ctx.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards events.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

// Collector keeps published events in memory.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Publisher.
func (c *Collector) Publish(_ context.Context, e Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

// Events returns a copy of the collected events.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Types returns the collected event types in order.
func (c *Collector) Types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, e := range c.events {
		out[i] = e.EventType
	}
	return out
}
