package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/gennotes/pkg/api"
)

// writeError отвечает тем же JSON форматом, что и handlers
func writeError(w http.ResponseWriter, logger *slog.Logger, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
	if err != nil {
		logger.Error("failed to encode error response", slog.Any("error", err))
	}
}
