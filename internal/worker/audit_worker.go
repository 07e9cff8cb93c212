// Package worker contains the audit worker that consumes transaction events
// and appends them to the audit log.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/store"
)

// EventConsumer delivers transaction events. Satisfied by *amqp.Client.
type EventConsumer interface {
	ConsumeTransactionEvents(ctx context.Context, handler func(*amqp.TransactionEvent) error) error
}

// AuditWorker turns transaction events into audit log rows.
type AuditWorker struct {
	consumer EventConsumer
	audit    store.AuditStore
	logger   *slog.Logger
}

func NewAuditWorker(consumer EventConsumer, audit store.AuditStore, logger *slog.Logger) *AuditWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditWorker{
		consumer: consumer,
		audit:    audit,
		logger:   logger,
	}
}

// Run consumes events until the context is cancelled. Cancellation is a
// clean shutdown, not an error.
func (w *AuditWorker) Run(ctx context.Context) error {
	w.logger.Info("Audit worker started")

	err := w.consumer.ConsumeTransactionEvents(ctx, func(event *amqp.TransactionEvent) error {
		return w.handleEvent(ctx, event)
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		w.logger.Info("Audit worker stopped")
		return nil
	}
	return err
}

func (w *AuditWorker) handleEvent(ctx context.Context, event *amqp.TransactionEvent) error {
	if err := validateEvent(event); err != nil {
		// A malformed event would never succeed on retry; log and drop.
		w.logger.Error("Dropping invalid transaction event",
			"entity", event.Entity,
			"action", event.Action,
			"error", err)
		return nil
	}

	entry := core.AuditEntry{
		Entity:      event.Entity,
		Action:      event.Action,
		EntityID:    event.ID,
		UserID:      event.UserID,
		AmountCents: event.AmountCents,
		RecordedAt:  event.Timestamp,
	}

	if err := w.audit.AppendAudit(ctx, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}

	w.logger.Info("Recorded audit entry",
		"entity", event.Entity,
		"action", event.Action,
		"entity_id", event.ID,
		"user_id", event.UserID)

	return nil
}

func validateEvent(event *amqp.TransactionEvent) error {
	switch event.Entity {
	case "income", "expense":
	default:
		return fmt.Errorf("unknown entity %q", event.Entity)
	}
	switch event.Action {
	case "create", "update", "delete":
	default:
		return fmt.Errorf("unknown action %q", event.Action)
	}
	if event.ID <= 0 || event.UserID <= 0 {
		return fmt.Errorf("missing ids: id=%d user_id=%d", event.ID, event.UserID)
	}
	return nil
}
