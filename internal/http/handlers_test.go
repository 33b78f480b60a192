package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/storage"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func newTestServer(t *testing.T) (*Server, *storage.Store) {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "finance.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	tokens := auth.NewTokenService("test-secret", time.Hour)
	srv := NewServer(":0", store, tokens, Options{BcryptCost: bcrypt.MinCost})
	return srv, store
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := doJSON(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rr.Code)
		}
	}
}

func TestGetCategoriesReturnsSeededSet(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/api/categories", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}

	var categories []struct {
		ID     int64           `json:"id"`
		Name   string          `json:"name"`
		Budget decimal.Decimal `json:"budget"`
	}
	decodeBody(t, rr, &categories)
	if len(categories) != 8 {
		t.Fatalf("got %d categories, want 8", len(categories))
	}
	if categories[0].Name != "Food" {
		t.Errorf("first category = %q, want Food", categories[0].Name)
	}
}

func TestSummaryAfterIncomeAndExpense(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"category_id": 8, "amount": 1000, "description": "salary", "type": "income"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("income status = %d: %s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"category_id": 1, "amount": 200, "description": "groceries", "type": "expense"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expense status = %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/summary", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("summary status = %d: %s", rr.Code, rr.Body.String())
	}

	var report struct {
		MonthlyExpenses []struct {
			CategoryID   int64           `json:"category_id"`
			CategoryName string          `json:"category_name"`
			Total        decimal.Decimal `json:"total"`
		} `json:"monthlyExpenses"`
		TotalIncome   decimal.Decimal `json:"totalIncome"`
		TotalExpenses decimal.Decimal `json:"totalExpenses"`
		Balance       decimal.Decimal `json:"balance"`
	}
	decodeBody(t, rr, &report)

	if !report.TotalIncome.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("totalIncome = %s, want 1000", report.TotalIncome)
	}
	if !report.TotalExpenses.Equal(decimal.NewFromInt(200)) {
		t.Errorf("totalExpenses = %s, want 200", report.TotalExpenses)
	}
	if !report.Balance.Equal(decimal.NewFromInt(800)) {
		t.Errorf("balance = %s, want 800", report.Balance)
	}
	if len(report.MonthlyExpenses) != 1 || report.MonthlyExpenses[0].CategoryName != "Food" {
		t.Errorf("unexpected monthly expenses: %+v", report.MonthlyExpenses)
	}
}

func TestCreateTransactionRejectsInvalidType(t *testing.T) {
	srv, store := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"category_id": 1, "amount": 50, "type": "transfer"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rr.Code, rr.Body.String())
	}

	// The rejected request must not touch the summary singleton.
	sum, err := store.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !sum.TotalIncome.IsZero() || !sum.TotalExpenses.IsZero() || !sum.CurrentBalance.IsZero() {
		t.Fatalf("summary changed by rejected request: %+v", sum)
	}
}

func TestCreateTransactionRejectsBadAmounts(t *testing.T) {
	srv, _ := newTestServer(t)

	bodies := []string{
		`{"category_id": 1, "amount": -50, "type": "expense"}`,
		`{"category_id": 1, "amount": 0, "type": "expense"}`,
		`{"category_id": 1, "amount": "abc", "type": "expense"}`,
		`{"category_id": 1, "type": "expense"}`,
	}
	for _, body := range bodies {
		rr := doJSON(t, srv, http.MethodPost, "/api/transactions", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rr.Code)
		}
	}
}

func TestCreateTransactionAcceptsExplicitDate(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"category_id": 1, "amount": 25, "type": "expense", "date": "2024-04-09"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/transactions", "")
	var transactions []struct {
		Date string `json:"date"`
	}
	decodeBody(t, rr, &transactions)
	if len(transactions) != 1 || transactions[0].Date != "2024-04-09" {
		t.Fatalf("unexpected transactions: %+v", transactions)
	}

	// A date outside YYYY-MM-DD form is rejected before storage.
	rr = doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"category_id": 1, "amount": 25, "type": "expense", "date": "09/04/2024"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad date status = %d, want 400: %s", rr.Code, rr.Body.String())
	}
}

func TestSummaryForRequestedMonth(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, body := range []string{
		`{"category_id": 1, "amount": 50, "type": "expense", "date": "2024-01-15"}`,
		`{"category_id": 1, "amount": 30, "type": "expense", "date": "2024-02-01"}`,
	} {
		if rr := doJSON(t, srv, http.MethodPost, "/api/transactions", body); rr.Code != http.StatusOK {
			t.Fatalf("create status = %d: %s", rr.Code, rr.Body.String())
		}
	}

	rr := doJSON(t, srv, http.MethodGet, "/api/summary?month=2024-01", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("summary status = %d: %s", rr.Code, rr.Body.String())
	}
	var report struct {
		TotalExpenses decimal.Decimal `json:"totalExpenses"`
	}
	decodeBody(t, rr, &report)
	if !report.TotalExpenses.Equal(decimal.NewFromInt(50)) {
		t.Errorf("january expenses = %s, want 50", report.TotalExpenses)
	}

	for _, month := range []string{"2024", "2024-1", "2024-01-15"} {
		rr := doJSON(t, srv, http.MethodGet, "/api/summary?month="+month, "")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("month %q: status = %d, want 400", month, rr.Code)
		}
	}
}

func TestListTransactionsNewestFirst(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, body := range []string{
		`{"category_id": 1, "amount": 10, "type": "expense"}`,
		`{"category_id": 2, "amount": 20, "type": "expense"}`,
	} {
		if rr := doJSON(t, srv, http.MethodPost, "/api/transactions", body); rr.Code != http.StatusOK {
			t.Fatalf("create status = %d: %s", rr.Code, rr.Body.String())
		}
	}

	rr := doJSON(t, srv, http.MethodGet, "/api/transactions", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d: %s", rr.Code, rr.Body.String())
	}

	var transactions []struct {
		ID           int64           `json:"id"`
		CategoryID   int64           `json:"category_id"`
		Amount       decimal.Decimal `json:"amount"`
		Date         string          `json:"date"`
		Type         string          `json:"type"`
		CategoryName string          `json:"category_name"`
	}
	decodeBody(t, rr, &transactions)
	if len(transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(transactions))
	}
	// Same-day inserts come back newest insert first.
	if transactions[0].CategoryName != "Transportation" || transactions[1].CategoryName != "Food" {
		t.Errorf("unexpected order: %+v", transactions)
	}
}

func TestBudgetsSameCategoryBothPersist(t *testing.T) {
	srv, _ := newTestServer(t)

	var firstID int64
	for i, body := range []string{
		`{"category_id": 1, "amount": 50, "period": "weekly"}`,
		`{"category_id": 1, "amount": 200, "period": "monthly"}`,
	} {
		rr := doJSON(t, srv, http.MethodPost, "/api/budgets", body)
		if rr.Code != http.StatusOK {
			t.Fatalf("create budget status = %d: %s", rr.Code, rr.Body.String())
		}
		var resp struct {
			ID int64 `json:"id"`
		}
		decodeBody(t, rr, &resp)
		if resp.ID == 0 {
			t.Fatalf("budget %d: missing id in response %s", i, rr.Body.String())
		}
		if i == 0 {
			firstID = resp.ID
		} else if resp.ID == firstID {
			t.Fatalf("budget ids collide: %d", resp.ID)
		}
	}

	rr := doJSON(t, srv, http.MethodGet, "/api/budgets", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list budgets status = %d: %s", rr.Code, rr.Body.String())
	}

	var budgets []struct {
		ID           int64  `json:"id"`
		CategoryID   int64  `json:"category_id"`
		Period       string `json:"period"`
		CategoryName string `json:"category_name"`
	}
	decodeBody(t, rr, &budgets)
	if len(budgets) != 2 {
		t.Fatalf("got %d budgets, want 2", len(budgets))
	}
	for _, b := range budgets {
		if b.CategoryName != "Food" {
			t.Errorf("budget %d: category name %q, want Food", b.ID, b.CategoryName)
		}
	}
}

func TestCreateBudgetRejectsInvalidPeriod(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/budgets",
		`{"category_id": 1, "amount": 50, "period": "daily"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "period") {
		t.Errorf("error does not mention period: %s", rr.Body.String())
	}
}

func TestRegisterAndLogin(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/register",
		`{"email": "user@example.com", "password": "hunter2hunter2"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("register status = %d: %s", rr.Code, rr.Body.String())
	}

	// Duplicate registration conflicts.
	rr = doJSON(t, srv, http.MethodPost, "/api/register",
		`{"email": "user@example.com", "password": "hunter2hunter2"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register status = %d, want 400: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/login",
		`{"email": "user@example.com", "password": "hunter2hunter2"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rr.Code, rr.Body.String())
	}
	var loginResp struct {
		Token string `json:"token"`
	}
	decodeBody(t, rr, &loginResp)
	if loginResp.Token == "" {
		t.Fatal("login returned empty token")
	}

	userID, err := auth.NewTokenService("test-secret", time.Hour).Parse(loginResp.Token)
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	if userID <= 0 {
		t.Fatalf("token user id = %d", userID)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/register",
		`{"email": "user@example.com", "password": "hunter2hunter2"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("register status = %d: %s", rr.Code, rr.Body.String())
	}

	cases := []string{
		`{"email": "user@example.com", "password": "wrong-password"}`,
		`{"email": "nobody@example.com", "password": "hunter2hunter2"}`,
	}
	for _, body := range cases {
		rr := doJSON(t, srv, http.MethodPost, "/api/login", body)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("body %s: status = %d, want 401", body, rr.Code)
		}
	}
}

func TestRegisterRejectsMalformedBody(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := []string{
		`{"email": "not-an-email", "password": "hunter2hunter2"}`,
		`{"email": "user@example.com", "password": "short"}`,
		`{"email": "user@example.com"}`,
		`not json`,
	}
	for _, body := range cases {
		rr := doJSON(t, srv, http.MethodPost, "/api/register", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rr.Code)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/categories"},
		{http.MethodDelete, "/api/transactions"},
		{http.MethodPost, "/api/summary"},
		{http.MethodGet, "/api/register"},
		{http.MethodGet, "/api/login"},
	}
	for _, tc := range cases {
		rr := doJSON(t, srv, tc.method, tc.path, "{}")
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: status = %d, want 405", tc.method, tc.path, rr.Code)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/transactions", nil)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow origin = %q, want *", got)
	}
}
