package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fintrack/internal/core"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20 // 1MB

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// decodeJSON reads a bounded request body into dst, rejecting anything that
// is not a single JSON object.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	_, _ = io.Copy(io.Discard, body)
	return nil
}

// validationMessage flattens validator errors into a single client-facing
// message naming the offending fields.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			fields = append(fields, fmt.Sprintf("%s is required", fieldName(fe)))
		case "amount":
			fields = append(fields, fmt.Sprintf("%s must be a positive number with at most two decimals", fieldName(fe)))
		case "oneof":
			fields = append(fields, fmt.Sprintf("%s must be one of: %s", fieldName(fe), fe.Param()))
		case "email":
			fields = append(fields, fmt.Sprintf("%s must be a valid email address", fieldName(fe)))
		case "min":
			fields = append(fields, fmt.Sprintf("%s must be at least %s characters", fieldName(fe), fe.Param()))
		default:
			fields = append(fields, fmt.Sprintf("%s is invalid", fieldName(fe)))
		}
	}
	return strings.Join(fields, "; ")
}

func fieldName(fe validator.FieldError) string {
	return strings.ToLower(fe.Field())
}

// today returns the current date in storage form.
func today() string {
	return time.Now().Format(core.DateLayout)
}

// currentYearMonth returns the current calendar month in report form.
func currentYearMonth() string {
	return time.Now().Format(core.YearMonthLayout)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
