package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/infrastructure/storage/postgres"
)

// fakeClient records Publish calls; every other method panics through the nil embed.
type fakeClient struct {
	goredis.UniversalClient
	channel string
	message []byte
	err     error
}

func (f *fakeClient) Publish(_ context.Context, channel string, message any) *goredis.IntCmd {
	f.channel = channel
	f.message = message.([]byte)
	return goredis.NewIntResult(1, f.err)
}

func TestPublisher_Handle(t *testing.T) {
	client := &fakeClient{}
	msg := &postgres.OutboxMessage{
		ID:            id.New(),
		AggregateType: "voucher",
		AggregateID:   id.New(),
		EventType:     "voucher.posted",
		Payload:       []byte(`{"number":"JV-20261016-0001"}`),
		CreatedAt:     time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC),
	}

	require.NoError(t, NewPublisher(client).Handle(context.Background(), msg))
	assert.Equal(t, "ledger.voucher.posted", client.channel)

	var env Envelope
	require.NoError(t, json.Unmarshal(client.message, &env))
	assert.Equal(t, msg.ID.String(), env.ID)
	assert.Equal(t, msg.AggregateID.String(), env.AggregateID)
	assert.Equal(t, "2026-10-16T09:30:00.000Z", env.OccurredAt)
	assert.JSONEq(t, `{"number":"JV-20261016-0001"}`, string(env.Payload))
}

func TestPublisher_HandleError(t *testing.T) {
	client := &fakeClient{err: errors.New("connection refused")}
	err := NewPublisher(client).Handle(context.Background(), &postgres.OutboxMessage{
		ID:        id.New(),
		EventType: "transaction.voided",
		Payload:   []byte(`{}`),
	})
	assert.ErrorContains(t, err, "publish transaction.voided")
}

func TestLocker_DefaultTTL(t *testing.T) {
	l := NewLocker(&goredis.Client{}, 0)
	assert.Equal(t, DefaultLockTTL, l.ttl)
	assert.Equal(t, "pharmaledger:lock:", l.prefix)
}
