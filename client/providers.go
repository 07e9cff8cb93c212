package client

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/auth"
	"fintrack/internal/core"
)

// AuthProvider owns the session: it holds the token and the identity behind
// it, and clears both when authentication is lost.
type AuthProvider struct {
	client *Client

	mu   sync.RWMutex
	user *auth.Identity
}

// NewAuthProvider wraps a client. When token is non-empty the provider
// verifies it against /api/users/me; a rejected token is discarded so the
// caller starts logged out rather than with a broken session.
func NewAuthProvider(ctx context.Context, c *Client, token string) *AuthProvider {
	p := &AuthProvider{client: c}
	if token != "" {
		c.SetToken(token)
		user, err := c.Me(ctx)
		if err != nil {
			c.SetToken("")
		} else {
			p.user = &user
		}
	}
	return p
}

func (p *AuthProvider) Register(ctx context.Context, username, email, password string) error {
	result, err := p.client.Register(ctx, username, email, password)
	if err != nil {
		return err
	}
	p.setSession(result)
	return nil
}

func (p *AuthProvider) Login(ctx context.Context, email, password string) error {
	result, err := p.client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	p.setSession(result)
	return nil
}

func (p *AuthProvider) setSession(result AuthResult) {
	p.client.SetToken(result.Token)
	p.mu.Lock()
	user := result.User
	p.user = &user
	p.mu.Unlock()
}

// Logout drops the token and the cached identity.
func (p *AuthProvider) Logout() {
	p.client.SetToken("")
	p.mu.Lock()
	p.user = nil
	p.mu.Unlock()
}

// User returns the authenticated identity, or false when logged out.
func (p *AuthProvider) User() (auth.Identity, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.user == nil {
		return auth.Identity{}, false
	}
	return *p.user, true
}

// IsAuthenticated reports whether a session is active.
func (p *AuthProvider) IsAuthenticated() bool {
	_, ok := p.User()
	return ok
}

// FinanceProvider caches the income list, the expense list and the dashboard
// summary. Mutations go through the API and then refetch the affected list
// plus the summary; the cache never patches itself optimistically, the
// server stays the single source of truth.
type FinanceProvider struct {
	client *Client

	mu       sync.RWMutex
	incomes  []core.Income
	expenses []core.Expense
	summary  core.Summary
	loaded   bool
}

func NewFinanceProvider(c *Client) *FinanceProvider {
	return &FinanceProvider{client: c}
}

// Load fetches incomes, expenses and the summary in parallel.
func (p *FinanceProvider) Load(ctx context.Context) error {
	var (
		incomes  []core.Income
		expenses []core.Expense
		summary  core.Summary
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		incomes, err = p.client.ListIncomes(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = p.client.ListExpenses(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		summary, err = p.client.DashboardSummary(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	p.mu.Lock()
	p.incomes = incomes
	p.expenses = expenses
	p.summary = summary
	p.loaded = true
	p.mu.Unlock()
	return nil
}

// Loaded reports whether Load has completed at least once.
func (p *FinanceProvider) Loaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loaded
}

// Incomes returns the cached income list.
func (p *FinanceProvider) Incomes() []core.Income {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.incomes
}

// Expenses returns the cached expense list.
func (p *FinanceProvider) Expenses() []core.Expense {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.expenses
}

// Summary returns the cached dashboard summary.
func (p *FinanceProvider) Summary() core.Summary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.summary
}

// Reset drops all cached data, for use when the session ends.
func (p *FinanceProvider) Reset() {
	p.mu.Lock()
	p.incomes = nil
	p.expenses = nil
	p.summary = core.Summary{}
	p.loaded = false
	p.mu.Unlock()
}

func (p *FinanceProvider) AddIncome(ctx context.Context, in IncomeInput) error {
	if _, err := p.client.CreateIncome(ctx, in); err != nil {
		return err
	}
	return p.refreshIncomes(ctx)
}

func (p *FinanceProvider) UpdateIncome(ctx context.Context, id int64, in IncomeInput) error {
	if _, err := p.client.UpdateIncome(ctx, id, in); err != nil {
		return err
	}
	return p.refreshIncomes(ctx)
}

func (p *FinanceProvider) DeleteIncome(ctx context.Context, id int64) error {
	if err := p.client.DeleteIncome(ctx, id); err != nil {
		return err
	}
	return p.refreshIncomes(ctx)
}

func (p *FinanceProvider) AddExpense(ctx context.Context, in ExpenseInput) error {
	if _, err := p.client.CreateExpense(ctx, in); err != nil {
		return err
	}
	return p.refreshExpenses(ctx)
}

func (p *FinanceProvider) UpdateExpense(ctx context.Context, id int64, in ExpenseInput) error {
	if _, err := p.client.UpdateExpense(ctx, id, in); err != nil {
		return err
	}
	return p.refreshExpenses(ctx)
}

func (p *FinanceProvider) DeleteExpense(ctx context.Context, id int64) error {
	if err := p.client.DeleteExpense(ctx, id); err != nil {
		return err
	}
	return p.refreshExpenses(ctx)
}

func (p *FinanceProvider) refreshIncomes(ctx context.Context) error {
	incomes, err := p.client.ListIncomes(ctx)
	if err != nil {
		return err
	}
	summary, err := p.client.DashboardSummary(ctx)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.incomes = incomes
	p.summary = summary
	p.mu.Unlock()
	return nil
}

func (p *FinanceProvider) refreshExpenses(ctx context.Context) error {
	expenses, err := p.client.ListExpenses(ctx)
	if err != nil {
		return err
	}
	summary, err := p.client.DashboardSummary(ctx)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.expenses = expenses
	p.summary = summary
	p.mu.Unlock()
	return nil
}
