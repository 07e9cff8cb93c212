package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"fintrack/internal/core"
)

const recentLimit = 5

// Memory is an in-process Repository. It backs the memory data backend and
// the test suites of the layers above.
type Memory struct {
	mu sync.RWMutex

	users    map[int64]core.User
	incomes  map[int64]core.Income
	expenses map[int64]core.Expense
	audit    []core.AuditEntry

	nextUserID    int64
	nextIncomeID  int64
	nextExpenseID int64
	nextAuditID   int64
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		users:    make(map[int64]core.User),
		incomes:  make(map[int64]core.Income),
		expenses: make(map[int64]core.Expense),
	}
}

func (m *Memory) CreateUser(ctx context.Context, user core.User) (core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return core.User{}, core.ErrEmailTaken
		}
	}

	m.nextUserID++
	user.ID = m.nextUserID
	user.CreatedAt = time.Now().UTC()
	m.users[user.ID] = user
	return user, nil
}

func (m *Memory) UserByEmail(ctx context.Context, email string) (core.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (m *Memory) UserByID(ctx context.Context, id int64) (core.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (m *Memory) UpdateProfilePicture(ctx context.Context, userID int64, pictureURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return core.ErrNotFound
	}
	u.ProfilePicture = pictureURL
	m.users[userID] = u
	return nil
}

func (m *Memory) ListIncome(ctx context.Context, userID int64) ([]core.Income, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []core.Income{}
	for _, in := range m.incomes {
		if in.UserID == userID {
			out = append(out, in)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *Memory) CreateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextIncomeID++
	in.ID = m.nextIncomeID
	in.CreatedAt = time.Now().UTC()
	m.incomes[in.ID] = in
	return in, nil
}

func (m *Memory) UpdateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.incomes[in.ID]
	if !ok || existing.UserID != in.UserID {
		return core.Income{}, core.ErrNotFound
	}
	in.CreatedAt = existing.CreatedAt
	m.incomes[in.ID] = in
	return in, nil
}

func (m *Memory) DeleteIncome(ctx context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.incomes[id]
	if !ok || existing.UserID != userID {
		return core.ErrNotFound
	}
	delete(m.incomes, id)
	return nil
}

func (m *Memory) ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []core.Expense{}
	for _, e := range m.expenses {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *Memory) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextExpenseID++
	e.ID = m.nextExpenseID
	e.CreatedAt = time.Now().UTC()
	m.expenses[e.ID] = e
	return e, nil
}

func (m *Memory) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.expenses[e.ID]
	if !ok || existing.UserID != e.UserID {
		return core.Expense{}, core.ErrNotFound
	}
	e.CreatedAt = existing.CreatedAt
	m.expenses[e.ID] = e
	return e, nil
}

func (m *Memory) DeleteExpense(ctx context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.expenses[id]
	if !ok || existing.UserID != userID {
		return core.ErrNotFound
	}
	delete(m.expenses, id)
	return nil
}

func (m *Memory) Summary(ctx context.Context, userID int64) (core.Summary, error) {
	incomes, _ := m.ListIncome(ctx, userID)
	expenses, _ := m.ListExpenses(ctx, userID)
	byCategory, _ := m.CategoryTotals(ctx, userID)

	var incomeCents, expenseCents int64
	for _, in := range incomes {
		incomeCents += in.Amount.Cents
	}
	for _, e := range expenses {
		expenseCents += e.Amount.Cents
	}

	recentIn := incomes
	if len(recentIn) > recentLimit {
		recentIn = recentIn[:recentLimit]
	}
	recentEx := expenses
	if len(recentEx) > recentLimit {
		recentEx = recentEx[:recentLimit]
	}

	return core.NewSummary(incomeCents, expenseCents, recentIn, recentEx, byCategory), nil
}

func (m *Memory) MonthlySummary(ctx context.Context, userID int64, year int) (core.MonthlySummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ms core.MonthlySummary
	for _, in := range m.incomes {
		if in.UserID == userID && in.Date.Year() == year {
			ms.Income[in.Date.Month()-1].Cents += in.Amount.Cents
		}
	}
	for _, e := range m.expenses {
		if e.UserID == userID && e.Date.Year() == year {
			ms.Expenses[e.Date.Month()-1].Cents += e.Amount.Cents
		}
	}
	return ms, nil
}

func (m *Memory) CategoryTotals(ctx context.Context, userID int64) ([]core.CategoryTotal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sums := make(map[string]int64)
	for _, e := range m.expenses {
		if e.UserID == userID {
			sums[e.Category] += e.Amount.Cents
		}
	}

	out := []core.CategoryTotal{}
	for category, cents := range sums {
		out = append(out, core.CategoryTotal{Category: category, Amount: core.Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

func (m *Memory) AppendAudit(ctx context.Context, entry core.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextAuditID++
	entry.ID = m.nextAuditID
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	m.audit = append(m.audit, entry)
	return nil
}

func (m *Memory) ListAudit(ctx context.Context, userID int64, limit int) ([]core.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []core.AuditEntry{}
	for i := len(m.audit) - 1; i >= 0; i-- {
		if m.audit[i].UserID != userID {
			continue
		}
		out = append(out, m.audit[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
