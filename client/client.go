// Package client is a typed Go client for the finance tracker API, including
// provider types that mirror how the browser app consumes it: cached lists,
// parallel initial load, refetch after every mutation.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
)

// APIError is a non-2xx response decoded from the fixed {message} shape.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Client talks to the REST API and injects the bearer token when one is set.
type Client struct {
	baseURL string
	httpc   *http.Client

	mu    sync.RWMutex
	token string
}

// New creates a client for the given base URL (scheme and host, no trailing
// slash).
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// SetToken sets the bearer token used for subsequent requests. An empty
// string clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: apiErr.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// AuthResult is the payload of register and login.
type AuthResult struct {
	User  auth.Identity `json:"user"`
	Token string        `json:"token"`
}

func (c *Client) Register(ctx context.Context, username, email, password string) (AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	return out, err
}

// Me returns the identity behind the current token.
func (c *Client) Me(ctx context.Context) (auth.Identity, error) {
	var out auth.Identity
	err := c.do(ctx, http.MethodGet, "/api/users/me", nil, &out)
	return out, err
}

// IncomeInput is the create/update payload for income rows.
type IncomeInput struct {
	Amount core.Money `json:"amount"`
	Date   core.Date  `json:"date"`
	Note   string     `json:"note"`
}

func (c *Client) ListIncomes(ctx context.Context) ([]core.Income, error) {
	var out []core.Income
	err := c.do(ctx, http.MethodGet, "/api/incomes", nil, &out)
	return out, err
}

func (c *Client) CreateIncome(ctx context.Context, in IncomeInput) (core.Income, error) {
	var out core.Income
	err := c.do(ctx, http.MethodPost, "/api/incomes", in, &out)
	return out, err
}

func (c *Client) UpdateIncome(ctx context.Context, id int64, in IncomeInput) (core.Income, error) {
	var out core.Income
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/incomes/%d", id), in, &out)
	return out, err
}

func (c *Client) DeleteIncome(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/incomes/%d", id), nil, nil)
}

// ExpenseInput is the create/update payload for expense rows.
type ExpenseInput struct {
	Amount      core.Money `json:"amount"`
	Category    string     `json:"category"`
	Subcategory string     `json:"subcategory,omitempty"`
	Date        core.Date  `json:"date"`
	Note        string     `json:"note"`
}

func (c *Client) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	var out []core.Expense
	err := c.do(ctx, http.MethodGet, "/api/expenses", nil, &out)
	return out, err
}

func (c *Client) CreateExpense(ctx context.Context, in ExpenseInput) (core.Expense, error) {
	var out core.Expense
	err := c.do(ctx, http.MethodPost, "/api/expenses", in, &out)
	return out, err
}

func (c *Client) UpdateExpense(ctx context.Context, id int64, in ExpenseInput) (core.Expense, error) {
	var out core.Expense
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/expenses/%d", id), in, &out)
	return out, err
}

func (c *Client) DeleteExpense(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/expenses/%d", id), nil, nil)
}

func (c *Client) DashboardSummary(ctx context.Context) (core.Summary, error) {
	var out core.Summary
	err := c.do(ctx, http.MethodGet, "/api/dashboard/summary", nil, &out)
	return out, err
}

func (c *Client) MonthlySummary(ctx context.Context, year, month int) (core.MonthlySummary, error) {
	path := "/api/finance/monthly-summary"
	switch {
	case year != 0 && month != 0:
		path = fmt.Sprintf("%s?year=%d&month=%d", path, year, month)
	case year != 0:
		path = fmt.Sprintf("%s?year=%d", path, year)
	}
	var out core.MonthlySummary
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) ReportData(ctx context.Context, year int) (core.ReportData, error) {
	path := "/api/report-data"
	if year != 0 {
		path = fmt.Sprintf("%s?year=%d", path, year)
	}
	var out core.ReportData
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}
