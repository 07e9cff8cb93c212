package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/amqp"
	"fintrack/internal/store"
)

type fakeConsumer struct {
	events []*amqp.TransactionEvent
}

func (c *fakeConsumer) ConsumeTransactionEvents(ctx context.Context, handler func(*amqp.TransactionEvent) error) error {
	for _, e := range c.events {
		if err := handler(e); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestAuditWorker_RecordsEvents(t *testing.T) {
	repo := store.NewMemory()
	consumer := &fakeConsumer{events: []*amqp.TransactionEvent{
		amqp.NewTransactionEvent("income", "create", 1, 7, 100_000),
		amqp.NewTransactionEvent("expense", "delete", 2, 7, 0),
	}}

	w := NewAuditWorker(consumer, repo, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := w.Run(ctx)
	assert.NoError(t, err)

	entries, err := repo.ListAudit(context.Background(), 7, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "expense", entries[0].Entity)
	assert.Equal(t, "delete", entries[0].Action)
	assert.Equal(t, "income", entries[1].Entity)
	assert.Equal(t, int64(100_000), entries[1].AmountCents)
}

func TestAuditWorker_DropsInvalidEvents(t *testing.T) {
	repo := store.NewMemory()
	consumer := &fakeConsumer{events: []*amqp.TransactionEvent{
		amqp.NewTransactionEvent("subscription", "create", 1, 7, 100),
		amqp.NewTransactionEvent("income", "merge", 1, 7, 100),
		amqp.NewTransactionEvent("income", "create", 0, 7, 100),
	}}

	w := NewAuditWorker(consumer, repo, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, w.Run(ctx))

	entries, err := repo.ListAudit(context.Background(), 7, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
