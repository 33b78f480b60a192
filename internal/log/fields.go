package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldPort       = "port"
	FieldDBPath     = "db_path"
	FieldYearMonth  = "year_month"
	FieldAmount     = "amount"
	FieldTxnType    = "transaction_type"
	FieldTxnID      = "transaction_id"
	FieldBudgetID   = "budget_id"
	FieldEmail      = "email"
)

// Components defines standard component names.
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentStorage = "storage"
	ComponentFlush   = "flush"
	ComponentAuth    = "auth"
)

// Operations defines standard operation names.
const (
	OpStartup  = "startup"
	OpShutdown = "shutdown"
	OpLoad     = "load"
	OpFlush    = "flush"
	OpRecord   = "record"
	OpReport   = "report"
)
