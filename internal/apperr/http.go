package apperr

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type errorBody struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// WriteHTTP writes err as {"error": {"kind", "message"}} with the status of
// its kind. Causes are logged, never written.
func WriteHTTP(w http.ResponseWriter, r *http.Request, err error) {
	kind := KindOf(err)
	status := kind.Status()

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "error", err, "kind", kind, "method", r.Method, "path", r.URL.Path)
	} else {
		slog.Debug("request rejected", "error", err, "kind", kind, "method", r.Method, "path", r.URL.Path)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encodeErr := json.NewEncoder(w).Encode(map[string]errorBody{
		"error": {Kind: kind, Message: Message(err)},
	})
	if encodeErr != nil {
		slog.Error("failed to write error response", "error", encodeErr)
	}
}
