package gateway

import (
	"encoding/json"
	"net/http"

	"inferd/pkg/types"
)

// Client-facing error messages.
const (
	msgUnavailable = "inference backend unavailable"
	msgOverloaded  = "Server is currently overloaded"
)

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
