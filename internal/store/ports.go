// Package store defines the persistence ports the HTTP layer and the audit
// worker depend on, plus an in-memory implementation used by tests and the
// memory backend.
package store

import (
	"context"

	"fintrack/internal/core"
)

// UserStore persists user accounts.
type UserStore interface {
	// CreateUser inserts a new user and returns it with ID and CreatedAt
	// populated. Returns core.ErrEmailTaken when the email already exists.
	CreateUser(ctx context.Context, user core.User) (core.User, error)

	// UserByEmail returns core.ErrNotFound when no user has the email.
	UserByEmail(ctx context.Context, email string) (core.User, error)

	// UserByID returns core.ErrNotFound when the id does not exist.
	UserByID(ctx context.Context, id int64) (core.User, error)

	// UpdateProfilePicture sets the profile picture URL for a user.
	UpdateProfilePicture(ctx context.Context, userID int64, pictureURL string) error
}

// IncomeStore persists income rows. All operations are scoped to one user;
// an update or delete that matches no row owned by that user returns
// core.ErrNotFound, whether the id is absent or belongs to someone else.
type IncomeStore interface {
	ListIncome(ctx context.Context, userID int64) ([]core.Income, error)
	CreateIncome(ctx context.Context, in core.Income) (core.Income, error)
	UpdateIncome(ctx context.Context, in core.Income) (core.Income, error)
	DeleteIncome(ctx context.Context, userID, id int64) error
}

// ExpenseStore persists expense rows with the same ownership contract as
// IncomeStore.
type ExpenseStore interface {
	ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error)
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	DeleteExpense(ctx context.Context, userID, id int64) error
}

// SummaryReader serves the dashboard and report aggregations. All sums are
// computed over the full history of the user unless a year is given.
type SummaryReader interface {
	// Summary returns lifetime totals, the five most recent rows of each
	// kind, and per-category expense totals ordered by amount descending.
	Summary(ctx context.Context, userID int64) (core.Summary, error)

	// MonthlySummary returns per-month sums for one calendar year.
	MonthlySummary(ctx context.Context, userID int64, year int) (core.MonthlySummary, error)

	// CategoryTotals returns lifetime expense sums grouped by category,
	// ordered by amount descending.
	CategoryTotals(ctx context.Context, userID int64) ([]core.CategoryTotal, error)
}

// AuditStore persists audit rows written by the worker.
type AuditStore interface {
	AppendAudit(ctx context.Context, entry core.AuditEntry) error
	ListAudit(ctx context.Context, userID int64, limit int) ([]core.AuditEntry, error)
}

// Repository is the full persistence surface a backend must provide.
type Repository interface {
	UserStore
	IncomeStore
	ExpenseStore
	SummaryReader
	AuditStore

	// Ping verifies the underlying store is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying resources.
	Close() error
}
