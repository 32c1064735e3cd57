package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"pulsewatch/backend/internal/apperror"
)

const internalMessage = "Internal Server Error"

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeFailure is the only place error responses are shaped. Errors that do
// not carry an *apperror.Error are reported as internal failures and their
// text never reaches the client.
func writeFailure(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		appErr = apperror.Internal(err)
	}

	status := appErr.Status()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	} else {
		logger.Debug("request rejected",
			"method", r.Method,
			"path", r.URL.Path,
			"kind", appErr.Kind.String(),
			"message", appErr.Message,
		)
	}
	writeJSON(w, status, messageBody{Message: appErr.Message})
}
