package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"surveystream-data/internal/domain"
	"surveystream-data/internal/models"
)

// Response the API envelope. Success responses carry data (and
// pagination for list endpoints); failures carry error or message.
type Response struct {
	Success    bool               `json:"success"`
	Data       any                `json:"data,omitempty"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
	Message    string             `json:"message,omitempty"`
	Error      string             `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func Ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

func OkPaginated(w http.ResponseWriter, data any, p *models.Pagination) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data, Pagination: p})
}

func OkMessage(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, Response{Success: true, Message: message, Data: data})
}

func FailError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Error: message})
}

func FailMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Message: message})
}

// WriteDomainError maps the error taxonomy to HTTP status codes:
// NotFoundError 404; ConfigurationError, UnassignableTargetError and
// IneligibleEnumeratorError 422; IntegrityError and everything else 500.
func WriteDomainError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var notFound *domain.NotFoundError
	var confErr *domain.ConfigurationError
	var unassignable *domain.UnassignableTargetError
	var ineligible *domain.IneligibleEnumeratorError
	var integrity *domain.IntegrityError

	switch {
	case errors.As(err, &notFound):
		FailMessage(w, http.StatusNotFound, notFound.Message)
	case errors.As(err, &confErr):
		FailMessage(w, http.StatusUnprocessableEntity, confErr.Message)
	case errors.As(err, &unassignable):
		FailMessage(w, http.StatusUnprocessableEntity, unassignable.Error())
	case errors.As(err, &ineligible):
		FailMessage(w, http.StatusUnprocessableEntity, ineligible.Error())
	case errors.As(err, &integrity):
		logger.Error("Integrity error", zap.Error(err))
		FailError(w, http.StatusInternalServerError, integrity.Message)
	default:
		logger.Error("Internal error", zap.Error(err))
		FailError(w, http.StatusInternalServerError, "internal server error")
	}
}
