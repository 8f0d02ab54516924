package middleware

import (
	"encoding/json"
	"net/http"

	"stockflow/internal/domain"
	apperror "stockflow/internal/errors"
)

// writeError responde no mesmo formato dos handlers (domain.ErrorResponse).
func writeError(w http.ResponseWriter, err apperror.AppError, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(domain.ErrorResponse{Code: status, Category: err.Category(), Message: err.Error()})
}
