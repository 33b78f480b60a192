package http

import (
	"errors"
	"log/slog"
	"net/http"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
	val "fintrack/internal/validator"

	"github.com/shopspring/decimal"
)

type createTransactionRequest struct {
	CategoryID  *int64          `json:"category_id" validate:"omitempty,gt=0"`
	Amount      decimal.Decimal `json:"amount" validate:"required,amount"`
	Description string          `json:"description"`
	Date        string          `json:"date" validate:"omitempty,date"`
	Type        string          `json:"type" validate:"required,oneof=income expense"`
}

type createBudgetRequest struct {
	CategoryID int64           `json:"category_id" validate:"required,gt=0"`
	Amount     decimal.Decimal `json:"amount" validate:"required,amount"`
	Period     string          `json:"period" validate:"required,oneof=weekly monthly"`
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list categories",
			applog.FieldComponent, applog.ComponentHTTP, applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to load categories")
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createTransaction(w, r)
	case http.MethodGet:
		s.listTransactions(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := val.Validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	// Omitted date means the transaction happened today.
	date := req.Date
	if date == "" {
		date = today()
	}

	id, err := s.store.RecordTransaction(r.Context(), core.Transaction{
		CategoryID:  req.CategoryID,
		Amount:      req.Amount,
		Description: req.Description,
		Date:        date,
		Type:        core.TransactionType(req.Type),
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to record transaction",
			applog.FieldComponent, applog.ComponentHTTP,
			applog.FieldOperation, applog.OpRecord,
			applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to record transaction")
		return
	}

	slog.InfoContext(r.Context(), "Transaction created",
		applog.FieldComponent, applog.ComponentHTTP,
		applog.FieldTxnID, id,
		applog.FieldTxnType, req.Type)
	writeMessage(w, http.StatusOK, "Transaction added successfully")
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := s.store.ListTransactions(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list transactions",
			applog.FieldComponent, applog.ComponentHTTP, applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}
	writeJSON(w, http.StatusOK, transactions)
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createBudget(w, r)
	case http.MethodGet:
		s.listBudgets(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) createBudget(w http.ResponseWriter, r *http.Request) {
	var req createBudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := val.Validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	id, err := s.store.CreateBudget(r.Context(), core.Budget{
		CategoryID: req.CategoryID,
		Amount:     req.Amount,
		Period:     core.BudgetPeriod(req.Period),
		StartDate:  today(),
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create budget",
			applog.FieldComponent, applog.ComponentHTTP, applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to create budget")
		return
	}

	slog.InfoContext(r.Context(), "Budget created",
		applog.FieldComponent, applog.ComponentHTTP,
		applog.FieldBudgetID, id)
	writeJSON(w, http.StatusOK, map[string]int64{"id": id})
}

func (s *Server) listBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.store.ListBudgets(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list budgets",
			applog.FieldComponent, applog.ComponentHTTP, applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to load budgets")
		return
	}
	writeJSON(w, http.StatusOK, budgets)
}

// handleSummary serves the monthly report, for the current month by default
// or for an explicit ?month=YYYY-MM. The figures come from transaction rows
// scoped to the month, not from the all-time summary row.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	month := r.URL.Query().Get("month")
	if month == "" {
		month = currentYearMonth()
	} else if err := val.Validate.Var(month, "yearmonth"); err != nil {
		writeError(w, http.StatusBadRequest, "month must be in YYYY-MM form")
		return
	}

	report, err := s.store.MonthlyReport(r.Context(), month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to build monthly report",
			applog.FieldComponent, applog.ComponentHTTP,
			applog.FieldOperation, applog.OpReport,
			applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := val.Validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to hash password",
			applog.FieldComponent, applog.ComponentAuth, applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	if err := s.store.CreateUser(r.Context(), req.Email, hash); err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			writeError(w, http.StatusBadRequest, "User already exists")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to create user",
			applog.FieldComponent, applog.ComponentAuth, applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	writeMessage(w, http.StatusOK, "User registered!")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := val.Validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	user, err := s.store.UserByEmail(r.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, storage.ErrUserNotFound) {
			slog.ErrorContext(r.Context(), "Failed to look up user",
				applog.FieldComponent, applog.ComponentAuth, applog.FieldError, err)
		}
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to sign token",
			applog.FieldComponent, applog.ComponentAuth, applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
