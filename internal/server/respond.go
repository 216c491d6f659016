package server

import (
	"encoding/json"
	"net/http"
)

// envelope is the uniform JSON response shape.
type envelope map[string]any

// writeJSON writes a success envelope with the given payload fields.
func writeJSON(w http.ResponseWriter, status int, payload envelope) {
	body := envelope{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes a failure envelope. details is optional context for
// the client (thread ID, action name) and is omitted when empty.
func writeError(w http.ResponseWriter, status int, message string, details envelope) {
	body := envelope{"success": false, "error": message}
	for k, v := range details {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
