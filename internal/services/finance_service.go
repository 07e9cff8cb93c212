// Package services orchestrates persistence and event publishing for income
// and expense mutations.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/store"
)

// EventPublisher publishes transaction events. Satisfied by *amqp.Client.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, event *amqp.TransactionEvent) error
}

// FinanceService applies income and expense mutations to the repository and
// publishes a transaction event for each applied one. Publishing is best
// effort: a broker failure never fails the request, the row is already
// persisted.
type FinanceService struct {
	repo      store.Repository
	publisher EventPublisher
}

func NewFinanceService(repo store.Repository, publisher EventPublisher) *FinanceService {
	return &FinanceService{
		repo:      repo,
		publisher: publisher,
	}
}

// Repo exposes the underlying repository for read paths that need no
// event publishing.
func (s *FinanceService) Repo() store.Repository {
	return s.repo
}

func (s *FinanceService) CreateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}

	created, err := s.repo.CreateIncome(ctx, in)
	if err != nil {
		return core.Income{}, fmt.Errorf("create income: %w", err)
	}

	s.publish(ctx, amqp.NewTransactionEvent("income", "create", created.ID, created.UserID, created.Amount.Cents))
	return created, nil
}

func (s *FinanceService) UpdateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}

	updated, err := s.repo.UpdateIncome(ctx, in)
	if err != nil {
		return core.Income{}, err
	}

	s.publish(ctx, amqp.NewTransactionEvent("income", "update", updated.ID, updated.UserID, updated.Amount.Cents))
	return updated, nil
}

func (s *FinanceService) DeleteIncome(ctx context.Context, userID, id int64) error {
	if err := s.repo.DeleteIncome(ctx, userID, id); err != nil {
		return err
	}

	s.publish(ctx, amqp.NewTransactionEvent("income", "delete", id, userID, 0))
	return nil
}

func (s *FinanceService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	created, err := s.repo.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	s.publish(ctx, amqp.NewTransactionEvent("expense", "create", created.ID, created.UserID, created.Amount.Cents))
	return created, nil
}

func (s *FinanceService) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	updated, err := s.repo.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, err
	}

	s.publish(ctx, amqp.NewTransactionEvent("expense", "update", updated.ID, updated.UserID, updated.Amount.Cents))
	return updated, nil
}

func (s *FinanceService) DeleteExpense(ctx context.Context, userID, id int64) error {
	if err := s.repo.DeleteExpense(ctx, userID, id); err != nil {
		return err
	}

	s.publish(ctx, amqp.NewTransactionEvent("expense", "delete", id, userID, 0))
	return nil
}

func (s *FinanceService) publish(ctx context.Context, event *amqp.TransactionEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"entity", event.Entity,
			"action", event.Action,
			"id", event.ID,
			"error", err)
	}
}
