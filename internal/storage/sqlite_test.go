package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func createTestUser(t *testing.T, repo *SQLiteRepository, email string) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{
		Username:     "tester",
		Email:        email,
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	return u
}

func TestSQLiteRepository_Users(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	u := createTestUser(t, repo, "mario@example.com")
	assert.NotZero(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	// Duplicate email, case-insensitive.
	_, err := repo.CreateUser(ctx, core.User{
		Username: "other", Email: "Mario@Example.com", PasswordHash: "h",
	})
	assert.ErrorIs(t, err, core.ErrEmailTaken)

	byEmail, err := repo.UserByEmail(ctx, "MARIO@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)

	_, err = repo.UserByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, repo.UpdateProfilePicture(ctx, u.ID, "https://img.example/p.png"))
	byID, err := repo.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/p.png", byID.ProfilePicture)

	assert.ErrorIs(t, repo.UpdateProfilePicture(ctx, 9999, "x"), core.ErrNotFound)
}

func TestSQLiteRepository_IncomeCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	owner := createTestUser(t, repo, "owner@example.com")
	intruder := createTestUser(t, repo, "intruder@example.com")

	in, err := repo.CreateIncome(ctx, core.Income{
		UserID: owner.ID,
		Amount: core.Money{Cents: 100_000},
		Date:   core.NewDate(2024, 3, 5),
		Note:   "salary",
	})
	require.NoError(t, err)
	assert.NotZero(t, in.ID)
	assert.Equal(t, "2024-03-05", in.Date.String())

	// Mutations scoped to another user must not match the row.
	foreign := in
	foreign.UserID = intruder.ID
	_, err = repo.UpdateIncome(ctx, foreign)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteIncome(ctx, intruder.ID, in.ID), core.ErrNotFound)

	in.Amount = core.Money{Cents: 110_000}
	in.Note = "salary plus bonus"
	updated, err := repo.UpdateIncome(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, int64(110_000), updated.Amount.Cents)
	assert.Equal(t, "salary plus bonus", updated.Note)

	list, err := repo.ListIncome(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, repo.DeleteIncome(ctx, owner.ID, in.ID))
	list, err = repo.ListIncome(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSQLiteRepository_ExpenseCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := createTestUser(t, repo, "u@example.com")

	e, err := repo.CreateExpense(ctx, core.Expense{
		UserID:      u.ID,
		Amount:      core.Money{Cents: 40_000},
		Category:    "Food",
		Subcategory: "Groceries",
		Date:        core.NewDate(2024, 3, 10),
	})
	require.NoError(t, err)
	assert.NotZero(t, e.ID)

	e.Category = "Dining"
	updated, err := repo.UpdateExpense(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, "Dining", updated.Category)
	assert.Equal(t, "Groceries", updated.Subcategory)

	require.NoError(t, repo.DeleteExpense(ctx, u.ID, e.ID))
	assert.ErrorIs(t, repo.DeleteExpense(ctx, u.ID, e.ID), core.ErrNotFound)
}

func TestSQLiteRepository_Summary(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := createTestUser(t, repo, "u@example.com")
	other := createTestUser(t, repo, "other@example.com")

	_, err := repo.CreateIncome(ctx, core.Income{
		UserID: u.ID, Amount: core.Money{Cents: 100_000}, Date: core.NewDate(2024, 3, 5),
	})
	require.NoError(t, err)
	_, err = repo.CreateExpense(ctx, core.Expense{
		UserID: u.ID, Amount: core.Money{Cents: 40_000}, Category: "Food", Date: core.NewDate(2024, 3, 10),
	})
	require.NoError(t, err)
	_, err = repo.CreateIncome(ctx, core.Income{
		UserID: other.ID, Amount: core.Money{Cents: 999_900}, Date: core.NewDate(2024, 3, 5),
	})
	require.NoError(t, err)

	s, err := repo.Summary(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), s.TotalIncome.Cents)
	assert.Equal(t, int64(40_000), s.TotalExpense.Cents)
	assert.Equal(t, int64(60_000), s.Balance.Cents)
	require.Len(t, s.RecentIncomes, 1)
	require.Len(t, s.RecentExpenses, 1)
	require.Len(t, s.CategoryTotals, 1)
	assert.Equal(t, "Food", s.CategoryTotals[0].Category)
}

func TestSQLiteRepository_Summary_RecentLimit(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := createTestUser(t, repo, "u@example.com")

	for day := 1; day <= 7; day++ {
		_, err := repo.CreateExpense(ctx, core.Expense{
			UserID: u.ID, Amount: core.Money{Cents: int64(day)}, Category: "Misc",
			Date: core.NewDate(2024, 5, day),
		})
		require.NoError(t, err)
	}

	s, err := repo.Summary(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, s.RecentExpenses, 5)
	assert.Equal(t, "2024-05-07", s.RecentExpenses[0].Date.String())
	assert.Equal(t, "2024-05-03", s.RecentExpenses[4].Date.String())
}

func TestSQLiteRepository_MonthlySummary(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := createTestUser(t, repo, "u@example.com")

	_, err := repo.CreateIncome(ctx, core.Income{
		UserID: u.ID, Amount: core.Money{Cents: 50_000}, Date: core.NewDate(2024, 1, 15),
	})
	require.NoError(t, err)
	_, err = repo.CreateIncome(ctx, core.Income{
		UserID: u.ID, Amount: core.Money{Cents: 25_000}, Date: core.NewDate(2024, 1, 28),
	})
	require.NoError(t, err)
	_, err = repo.CreateExpense(ctx, core.Expense{
		UserID: u.ID, Amount: core.Money{Cents: 10_000}, Category: "Rent", Date: core.NewDate(2024, 12, 1),
	})
	require.NoError(t, err)
	_, err = repo.CreateExpense(ctx, core.Expense{
		UserID: u.ID, Amount: core.Money{Cents: 77_000}, Category: "Rent", Date: core.NewDate(2023, 12, 1),
	})
	require.NoError(t, err)

	ms, err := repo.MonthlySummary(ctx, u.ID, 2024)
	require.NoError(t, err)
	assert.Equal(t, int64(75_000), ms.Income[0].Cents)
	assert.Equal(t, int64(10_000), ms.Expenses[11].Cents)
	for i := 1; i < 11; i++ {
		assert.Zero(t, ms.Income[i].Cents)
		assert.Zero(t, ms.Expenses[i].Cents)
	}
}

func TestSQLiteRepository_CategoryTotalsOrdering(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := createTestUser(t, repo, "u@example.com")

	rows := []struct {
		category string
		cents    int64
	}{
		{"Food", 10_000},
		{"Transport", 30_000},
		{"Food", 5_000},
		{"Fun", 2_000},
	}
	for _, r := range rows {
		_, err := repo.CreateExpense(ctx, core.Expense{
			UserID: u.ID, Amount: core.Money{Cents: r.cents}, Category: r.category,
			Date: core.NewDate(2024, 6, 1),
		})
		require.NoError(t, err)
	}

	totals, err := repo.CategoryTotals(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, totals, 3)
	assert.Equal(t, "Transport", totals[0].Category)
	assert.Equal(t, int64(30_000), totals[0].Amount.Cents)
	assert.Equal(t, "Food", totals[1].Category)
	assert.Equal(t, int64(15_000), totals[1].Amount.Cents)
}

func TestSQLiteRepository_Audit(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.AppendAudit(ctx, core.AuditEntry{
			Entity: "income", Action: "create", EntityID: int64(i + 1), UserID: 1, AmountCents: 100,
		}))
	}
	require.NoError(t, repo.AppendAudit(ctx, core.AuditEntry{
		Entity: "expense", Action: "delete", EntityID: 9, UserID: 2, AmountCents: 50,
	}))

	entries, err := repo.ListAudit(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(3), entries[0].EntityID)
	assert.Equal(t, "income", entries[0].Entity)
	assert.False(t, entries[0].RecordedAt.IsZero())
}
