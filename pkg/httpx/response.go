package httpx

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes a JSON response with the given status code.
// It sets Content-Type and no-store cache headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorBody is the dashboard's standard error shape.
type ErrorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// WriteError writes a JSON error body in the dashboard's standard shape.
func WriteError(w http.ResponseWriter, code int, message string) {
	WriteJSON(w, code, ErrorBody{Success: false, Message: message})
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// Required for responses that carry tokens or personal data.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
