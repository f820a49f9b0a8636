package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// httpError answers with {"detail": msg}, the error envelope every endpoint
// except the rate limiter uses.
func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, map[string]string{
		"detail": fmt.Sprintf(format, args...),
	})
}
