package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func seedUser(t *testing.T, m *Memory, email string) core.User {
	t.Helper()
	u, err := m.CreateUser(context.Background(), core.User{
		Username:     "user-" + email,
		Email:        email,
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	return u
}

func TestMemory_CreateUser_DuplicateEmail(t *testing.T) {
	m := NewMemory()
	seedUser(t, m, "mario@example.com")

	_, err := m.CreateUser(context.Background(), core.User{
		Username: "other", Email: "MARIO@example.com", PasswordHash: "h",
	})
	assert.ErrorIs(t, err, core.ErrEmailTaken)
}

func TestMemory_UserLookups(t *testing.T) {
	m := NewMemory()
	u := seedUser(t, m, "mario@example.com")

	byEmail, err := m.UserByEmail(context.Background(), "mario@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byID, err := m.UserByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, byID.Email)

	_, err = m.UserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, m.UpdateProfilePicture(context.Background(), u.ID, "https://img.example/p.png"))
	byID, err = m.UserByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/p.png", byID.ProfilePicture)
}

func TestMemory_IncomeCRUD_OwnershipScoped(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	owner := seedUser(t, m, "owner@example.com")
	intruder := seedUser(t, m, "intruder@example.com")

	in, err := m.CreateIncome(ctx, core.Income{
		UserID: owner.ID,
		Amount: core.Money{Cents: 100_000},
		Date:   core.NewDate(2024, 3, 5),
		Note:   "salary",
	})
	require.NoError(t, err)
	require.NotZero(t, in.ID)

	// Update by a different user must not touch the row.
	in.UserID = intruder.ID
	_, err = m.UpdateIncome(ctx, in)
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.ErrorIs(t, m.DeleteIncome(ctx, intruder.ID, in.ID), core.ErrNotFound)

	in.UserID = owner.ID
	in.Note = "salary march"
	updated, err := m.UpdateIncome(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "salary march", updated.Note)

	list, err := m.ListIncome(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, m.DeleteIncome(ctx, owner.ID, in.ID))
	list, err = m.ListIncome(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemory_ListOrdering(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	u := seedUser(t, m, "u@example.com")

	dates := []core.Date{
		core.NewDate(2024, 1, 10),
		core.NewDate(2024, 3, 1),
		core.NewDate(2024, 2, 15),
	}
	for _, d := range dates {
		_, err := m.CreateExpense(ctx, core.Expense{
			UserID: u.ID, Amount: core.Money{Cents: 100}, Category: "Misc", Date: d,
		})
		require.NoError(t, err)
	}

	list, err := m.ListExpenses(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "2024-03-01", list[0].Date.String())
	assert.Equal(t, "2024-02-15", list[1].Date.String())
	assert.Equal(t, "2024-01-10", list[2].Date.String())
}

func TestMemory_Summary(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	u := seedUser(t, m, "u@example.com")
	other := seedUser(t, m, "other@example.com")

	_, err := m.CreateIncome(ctx, core.Income{
		UserID: u.ID, Amount: core.Money{Cents: 100_000}, Date: core.NewDate(2024, 3, 5),
	})
	require.NoError(t, err)
	_, err = m.CreateExpense(ctx, core.Expense{
		UserID: u.ID, Amount: core.Money{Cents: 40_000}, Category: "Food", Date: core.NewDate(2024, 3, 10),
	})
	require.NoError(t, err)

	// Rows of another user must never leak into the summary.
	_, err = m.CreateIncome(ctx, core.Income{
		UserID: other.ID, Amount: core.Money{Cents: 999_900}, Date: core.NewDate(2024, 3, 5),
	})
	require.NoError(t, err)

	s, err := m.Summary(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), s.TotalIncome.Cents)
	assert.Equal(t, int64(40_000), s.TotalExpense.Cents)
	assert.Equal(t, int64(60_000), s.Balance.Cents)
	require.Len(t, s.CategoryTotals, 1)
	assert.Equal(t, "Food", s.CategoryTotals[0].Category)
	assert.Equal(t, int64(40_000), s.CategoryTotals[0].Amount.Cents)
}

func TestMemory_Summary_RecentLimit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	u := seedUser(t, m, "u@example.com")

	for day := 1; day <= 7; day++ {
		_, err := m.CreateIncome(ctx, core.Income{
			UserID: u.ID, Amount: core.Money{Cents: int64(day)}, Date: core.NewDate(2024, 5, day),
		})
		require.NoError(t, err)
	}

	s, err := m.Summary(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, s.RecentIncomes, 5)
	assert.Equal(t, "2024-05-07", s.RecentIncomes[0].Date.String())
	assert.Equal(t, "2024-05-03", s.RecentIncomes[4].Date.String())
	assert.Empty(t, s.RecentExpenses)
}

func TestMemory_Summary_EmptyUser(t *testing.T) {
	m := NewMemory()
	u := seedUser(t, m, "fresh@example.com")

	s, err := m.Summary(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Zero(t, s.TotalIncome.Cents)
	assert.Zero(t, s.TotalExpense.Cents)
	assert.Zero(t, s.Balance.Cents)
	assert.NotNil(t, s.RecentIncomes)
	assert.NotNil(t, s.RecentExpenses)
	assert.NotNil(t, s.CategoryTotals)
}

func TestMemory_MonthlySummary(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	u := seedUser(t, m, "u@example.com")

	_, err := m.CreateIncome(ctx, core.Income{
		UserID: u.ID, Amount: core.Money{Cents: 50_000}, Date: core.NewDate(2024, 1, 15),
	})
	require.NoError(t, err)
	_, err = m.CreateIncome(ctx, core.Income{
		UserID: u.ID, Amount: core.Money{Cents: 25_000}, Date: core.NewDate(2024, 1, 28),
	})
	require.NoError(t, err)
	_, err = m.CreateExpense(ctx, core.Expense{
		UserID: u.ID, Amount: core.Money{Cents: 10_000}, Category: "Rent", Date: core.NewDate(2024, 12, 1),
	})
	require.NoError(t, err)
	// A different year must not contribute.
	_, err = m.CreateExpense(ctx, core.Expense{
		UserID: u.ID, Amount: core.Money{Cents: 77_000}, Category: "Rent", Date: core.NewDate(2023, 12, 1),
	})
	require.NoError(t, err)

	ms, err := m.MonthlySummary(ctx, u.ID, 2024)
	require.NoError(t, err)
	assert.Equal(t, int64(75_000), ms.Income[0].Cents)
	assert.Equal(t, int64(10_000), ms.Expenses[11].Cents)
	for i := 1; i < 11; i++ {
		assert.Zero(t, ms.Income[i].Cents)
		assert.Zero(t, ms.Expenses[i].Cents)
	}
}

func TestMemory_CategoryTotals_Ordering(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	u := seedUser(t, m, "u@example.com")

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
		_, err := m.CreateExpense(ctx, core.Expense{
			UserID: u.ID, Amount: core.Money{Cents: r.cents}, Category: r.category, Date: core.NewDate(2024, 6, 1),
		})
		require.NoError(t, err)
	}

	totals, err := m.CategoryTotals(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, totals, 3)
	assert.Equal(t, "Transport", totals[0].Category)
	assert.Equal(t, int64(30_000), totals[0].Amount.Cents)
	assert.Equal(t, "Food", totals[1].Category)
	assert.Equal(t, int64(15_000), totals[1].Amount.Cents)
	assert.Equal(t, "Fun", totals[2].Category)
}

func TestMemory_Audit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for i := 0; i < 3; i++ {
		require.NoError(t, m.AppendAudit(ctx, core.AuditEntry{
			Entity: "income", Action: "create", EntityID: int64(i + 1), UserID: 1, AmountCents: 100,
		}))
	}
	require.NoError(t, m.AppendAudit(ctx, core.AuditEntry{
		Entity: "expense", Action: "delete", EntityID: 9, UserID: 2, AmountCents: 50,
	}))

	entries, err := m.ListAudit(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(3), entries[0].EntityID)
	assert.Equal(t, int64(2), entries[1].EntityID)
	assert.False(t, entries[0].RecordedAt.IsZero())
}
