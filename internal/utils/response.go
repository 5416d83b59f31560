package utils

import (
	"encoding/json"
	"net/http"

	"interview/internal/models"
)

// JSON writes payload with the given status. Responses are never cached.
func JSON(w http.ResponseWriter, status int, payload any) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// JSONError writes the same {code, message} body the socket error frames carry.
func JSONError(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, models.ErrorPayload{Code: code, Message: message})
}
