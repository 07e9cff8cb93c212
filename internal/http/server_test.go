package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"fintrack/internal/auth"
	"fintrack/internal/services"
	"fintrack/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	finance := services.NewFinanceService(store.NewMemory(), nil)
	tokens := auth.NewTokenManager("test-secret", 0)
	s := NewServer(Config{
		Addr:              ":0",
		CORSOrigin:        "http://localhost:5173",
		AuthRatePerMinute: 1000,
	}, finance, tokens)
	t.Cleanup(func() { s.authLimiter.Stop() })
	return s
}

func doRequest(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func registerUser(t *testing.T, s *Server, email string) string {
	t.Helper()
	rec := doRequest(t, s, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "tester",
		"email":    email,
		"password": "hunter22",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("register returned no token")
	}
	return token
}

func TestRegister(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "mario",
		"email":    "mario@example.com",
		"password": "secret123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	body := decodeBody(t, rec)
	user, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("missing user object in %v", body)
	}
	if user["username"] != "mario" || user["email"] != "mario@example.com" {
		t.Errorf("unexpected user payload: %v", user)
	}
	if _, ok := user["id"].(float64); !ok {
		t.Errorf("user id missing: %v", user)
	}

	// Duplicate email.
	rec = doRequest(t, s, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "other",
		"email":    "mario@example.com",
		"password": "secret123",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate status = %d, want 400", rec.Code)
	}
	if msg := decodeBody(t, rec)["message"]; msg != "Email already in use" {
		t.Errorf("message = %v", msg)
	}
}

func TestRegister_MissingFields(t *testing.T) {
	s := newTestServer(t)

	tests := []map[string]string{
		{"email": "a@b.c", "password": "x"},
		{"username": "a", "password": "x"},
		{"username": "a", "email": "a@b.c"},
	}
	for _, payload := range tests {
		rec := doRequest(t, s, http.MethodPost, "/api/auth/register", "", payload)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("payload %v: status = %d, want 400", payload, rec.Code)
		}
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	registerUser(t, s, "mario@example.com")

	rec := doRequest(t, s, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "mario@example.com",
		"password": "hunter22",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if token, _ := decodeBody(t, rec)["token"].(string); token == "" {
		t.Error("login returned no token")
	}

	// Wrong password and unknown email produce the same response.
	for _, payload := range []map[string]string{
		{"email": "mario@example.com", "password": "wrong"},
		{"email": "nobody@example.com", "password": "hunter22"},
	} {
		rec := doRequest(t, s, http.MethodPost, "/api/auth/login", "", payload)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("payload %v: status = %d, want 400", payload, rec.Code)
		}
		if msg := decodeBody(t, rec)["message"]; msg != "Invalid email or password" {
			t.Errorf("payload %v: message = %v", payload, msg)
		}
	}
}

func TestAuthGate(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/incomes", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", rec.Code)
	}
	if msg := decodeBody(t, rec)["message"]; msg != "Access denied. No token provided." {
		t.Errorf("message = %v", msg)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/incomes", "not-a-valid-token", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("bad token: status = %d, want 403", rec.Code)
	}
	if msg := decodeBody(t, rec)["message"]; msg != "Invalid token" {
		t.Errorf("message = %v", msg)
	}

	// A token signed with a different secret is rejected too.
	foreign, err := auth.NewTokenManager("other-secret", 0).Sign(auth.Identity{ID: 1, Username: "x", Email: "x@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	rec = doRequest(t, s, http.MethodGet, "/api/incomes", foreign, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("foreign token: status = %d, want 403", rec.Code)
	}
}

func TestUsersMe(t *testing.T) {
	s := newTestServer(t)
	token := registerUser(t, s, "mario@example.com")

	rec := doRequest(t, s, http.MethodGet, "/api/users/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["username"] != "tester" || body["email"] != "mario@example.com" {
		t.Errorf("unexpected identity: %v", body)
	}
}

func TestIncomeCRUD(t *testing.T) {
	s := newTestServer(t)
	token := registerUser(t, s, "mario@example.com")

	rec := doRequest(t, s, http.MethodPost, "/api/incomes", token, map[string]any{
		"amount": 1000, "date": "2024-03-05", "note": "salary",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeBody(t, rec)
	if created["amount"].(float64) != 1000 {
		t.Errorf("amount = %v", created["amount"])
	}
	if created["date"] != "2024-03-05" {
		t.Errorf("date = %v", created["date"])
	}
	id := int64(created["id"].(float64))

	rec = doRequest(t, s, http.MethodPut, fmt.Sprintf("/api/incomes/%d", id), token, map[string]any{
		"amount": 1100.5, "date": "2024-03-06", "note": "salary plus bonus",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody(t, rec)
	if updated["amount"].(float64) != 1100.5 {
		t.Errorf("updated amount = %v", updated["amount"])
	}

	rec = doRequest(t, s, http.MethodGet, "/api/incomes", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0]["note"] != "salary plus bonus" {
		t.Errorf("unexpected list: %v", list)
	}

	rec = doRequest(t, s, http.MethodDelete, fmt.Sprintf("/api/incomes/%d", id), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if msg := decodeBody(t, rec)["message"]; msg != "Income deleted successfully" {
		t.Errorf("delete message = %v", msg)
	}

	rec = doRequest(t, s, http.MethodDelete, fmt.Sprintf("/api/incomes/%d", id), token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
	if msg := decodeBody(t, rec)["message"]; msg != "Income not found" {
		t.Errorf("message = %v", msg)
	}
}

func TestExpenseCRUD(t *testing.T) {
	s := newTestServer(t)
	token := registerUser(t, s, "mario@example.com")

	rec := doRequest(t, s, http.MethodPost, "/api/expenses", token, map[string]any{
		"amount": 400, "category": "Food", "subcategory": "Groceries",
		"date": "2024-03-10", "note": "weekly shop",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeBody(t, rec)
	if created["category"] != "Food" || created["subcategory"] != "Groceries" {
		t.Errorf("unexpected expense: %v", created)
	}
	id := int64(created["id"].(float64))

	// Category is required.
	rec = doRequest(t, s, http.MethodPost, "/api/expenses", token, map[string]any{
		"amount": 10, "date": "2024-03-10",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing category status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, s, http.MethodDelete, fmt.Sprintf("/api/expenses/%d", id), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if msg := decodeBody(t, rec)["message"]; msg != "Expense deleted successfully" {
		t.Errorf("delete message = %v", msg)
	}
}

func TestOwnershipIsolation(t *testing.T) {
	s := newTestServer(t)
	ownerToken := registerUser(t, s, "owner@example.com")
	intruderToken := registerUser(t, s, "intruder@example.com")

	rec := doRequest(t, s, http.MethodPost, "/api/incomes", ownerToken, map[string]any{
		"amount": 500, "date": "2024-01-01",
	})
	id := int64(decodeBody(t, rec)["id"].(float64))

	// Another user can neither update nor delete the row; both read as 404.
	rec = doRequest(t, s, http.MethodPut, fmt.Sprintf("/api/incomes/%d", id), intruderToken, map[string]any{
		"amount": 1, "date": "2024-01-01",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign update status = %d, want 404", rec.Code)
	}
	rec = doRequest(t, s, http.MethodDelete, fmt.Sprintf("/api/incomes/%d", id), intruderToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign delete status = %d, want 404", rec.Code)
	}

	// The other user's list stays empty.
	rec = doRequest(t, s, http.MethodGet, "/api/incomes", intruderToken, nil)
	var list []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("intruder sees %d rows", len(list))
	}

	// The row survived.
	rec = doRequest(t, s, http.MethodGet, "/api/incomes", ownerToken, nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("owner sees %d rows, want 1", len(list))
	}
}

func TestDashboardSummary(t *testing.T) {
	s := newTestServer(t)
	token := registerUser(t, s, "mario@example.com")

	doRequest(t, s, http.MethodPost, "/api/incomes", token, map[string]any{
		"amount": 1000, "date": "2024-03-05",
	})
	doRequest(t, s, http.MethodPost, "/api/expenses", token, map[string]any{
		"amount": 400, "category": "Food", "date": "2024-03-10",
	})

	rec := doRequest(t, s, http.MethodGet, "/api/dashboard/summary", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["totalIncome"].(float64) != 1000 {
		t.Errorf("totalIncome = %v", body["totalIncome"])
	}
	if body["totalExpense"].(float64) != 400 {
		t.Errorf("totalExpense = %v", body["totalExpense"])
	}
	if body["balance"].(float64) != 600 {
		t.Errorf("balance = %v", body["balance"])
	}

	cats, ok := body["categoryTotals"].([]any)
	if !ok || len(cats) != 1 {
		t.Fatalf("categoryTotals = %v", body["categoryTotals"])
	}
	first := cats[0].(map[string]any)
	if first["category"] != "Food" || first["amount"].(float64) != 400 {
		t.Errorf("categoryTotals[0] = %v", first)
	}

	if recent, ok := body["recentIncomes"].([]any); !ok || len(recent) != 1 {
		t.Errorf("recentIncomes = %v", body["recentIncomes"])
	}
}

func TestDashboardSummary_EmptyUser(t *testing.T) {
	s := newTestServer(t)
	token := registerUser(t, s, "fresh@example.com")

	rec := doRequest(t, s, http.MethodGet, "/api/dashboard/summary", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	for _, key := range []string{"totalIncome", "totalExpense", "balance"} {
		if body[key].(float64) != 0 {
			t.Errorf("%s = %v, want 0", key, body[key])
		}
	}
	for _, key := range []string{"recentIncomes", "recentExpenses", "categoryTotals"} {
		if list, ok := body[key].([]any); !ok || len(list) != 0 {
			t.Errorf("%s = %v, want empty array", key, body[key])
		}
	}
}

func TestMonthlySummary(t *testing.T) {
	s := newTestServer(t)
	token := registerUser(t, s, "mario@example.com")

	doRequest(t, s, http.MethodPost, "/api/incomes", token, map[string]any{
		"amount": 1000, "date": "2024-03-05",
	})
	doRequest(t, s, http.MethodPost, "/api/expenses", token, map[string]any{
		"amount": 400, "category": "Food", "date": "2024-03-10",
	})
	doRequest(t, s, http.MethodPost, "/api/expenses", token, map[string]any{
		"amount": 50, "category": "Fun", "date": "2024-07-01",
	})

	rec := doRequest(t, s, http.MethodGet, "/api/finance/monthly-summary?year=2024", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)

	income := body["income"].([]any)
	expenses := body["expenses"].([]any)
	if len(income) != 12 || len(expenses) != 12 {
		t.Fatalf("array lengths = %d/%d, want 12/12", len(income), len(expenses))
	}
	if income[2].(float64) != 1000 {
		t.Errorf("income[2] = %v, want 1000", income[2])
	}
	if expenses[2].(float64) != 400 {
		t.Errorf("expenses[2] = %v, want 400", expenses[2])
	}
	if expenses[6].(float64) != 50 {
		t.Errorf("expenses[6] = %v, want 50", expenses[6])
	}

	// Month filter keeps only the selected slot.
	rec = doRequest(t, s, http.MethodGet, "/api/finance/monthly-summary?year=2024&month=3", token, nil)
	body = decodeBody(t, rec)
	expenses = body["expenses"].([]any)
	if expenses[2].(float64) != 400 || expenses[6].(float64) != 0 {
		t.Errorf("filtered expenses = %v", expenses)
	}
}

func TestReportData(t *testing.T) {
	s := newTestServer(t)
	token := registerUser(t, s, "mario@example.com")

	doRequest(t, s, http.MethodPost, "/api/expenses", token, map[string]any{
		"amount": 400, "category": "Food", "date": "2024-03-10",
	})
	doRequest(t, s, http.MethodPost, "/api/expenses", token, map[string]any{
		"amount": 900, "category": "Rent", "date": "2024-03-01",
	})

	rec := doRequest(t, s, http.MethodGet, "/api/report-data?year=2024", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)

	labels := body["labels"].([]any)
	if len(labels) != 12 || labels[0] != "Jan" || labels[11] != "Dec" {
		t.Errorf("labels = %v", labels)
	}

	// Category ordering is by amount descending.
	catLabels := body["categoryLabels"].([]any)
	catData := body["categoryData"].([]any)
	if len(catLabels) != 2 || catLabels[0] != "Rent" || catLabels[1] != "Food" {
		t.Errorf("categoryLabels = %v", catLabels)
	}
	if catData[0].(float64) != 900 || catData[1].(float64) != 400 {
		t.Errorf("categoryData = %v", catData)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, s, http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("readyz = %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/incomes", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "http://localhost:5173" {
		t.Errorf("allow-origin = %q", origin)
	}
}

func TestAuthRateLimit(t *testing.T) {
	finance := services.NewFinanceService(store.NewMemory(), nil)
	tokens := auth.NewTokenManager("test-secret", 0)
	s := NewServer(Config{
		Addr:              ":0",
		CORSOrigin:        "http://localhost:5173",
		AuthRatePerMinute: 3,
	}, finance, tokens)
	t.Cleanup(func() { s.authLimiter.Stop() })

	payload := map[string]string{"email": "a@b.c", "password": "x"}
	for i := 0; i < 3; i++ {
		rec := doRequest(t, s, http.MethodPost, "/api/auth/login", "", payload)
		if rec.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d rate limited too early", i+1)
		}
	}
	rec := doRequest(t, s, http.MethodPost, "/api/auth/login", "", payload)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
}

func TestClaimsCacheServesRepeatRequests(t *testing.T) {
	s := newTestServer(t)
	token := registerUser(t, s, "mario@example.com")

	for i := 0; i < 3; i++ {
		rec := doRequest(t, s, http.MethodGet, "/api/users/me", token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, rec.Code)
		}
	}
	if s.claimsCache.Size() != 1 {
		t.Errorf("claims cache size = %d, want 1", s.claimsCache.Size())
	}
}
