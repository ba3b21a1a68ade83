package common

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error          string   `json:"error"`
	ExpectedFields []string `json:"expected_fields,omitempty"`
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an ErrorResponse.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: msg})
}

var badRequestErrors = []error{
	ErrBadRequest,
	ErrInvalidSource,
	ErrInvalidReport,
	ErrInvalidDate,
	ErrMissingDates,
	ErrInvalidReportType,
	ErrInvalidROIMode,
	ErrMissingFile,
	ErrNoRowsInserted,
}

// HTTPStatus maps a domain error to a status code; unknown errors are 500.
func HTTPStatus(err error) int {
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// ErrorMessage hides internal error detail from clients.
func ErrorMessage(err error, status int) string {
	if status >= http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
