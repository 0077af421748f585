package utils

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every 4xx and 5xx reply.
type ErrorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id,omitempty"`
}

// WriteJSON sends data as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

func WriteError(w http.ResponseWriter, status int, message string, fields map[string]string) error {
	return WriteJSON(w, status, ErrorResponse{Message: message, Errors: fields})
}

// WriteBytes sends a binary body such as an image or calendar file.
func WriteBytes(w http.ResponseWriter, status int, contentType string, body []byte) error {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, err := w.Write(body)
	return err
}
