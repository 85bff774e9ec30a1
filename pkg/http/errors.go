package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// ErrorResponse is the body of every non-2xx gate response
type ErrorResponse struct {
	Error       string     `json:"error"`
	LockedUntil *time.Time `json:"lockedUntil,omitempty"`
}

// WriteJSON writes v as a JSON body with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	// Encoding errors are not reported to the client
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message)
}

// WriteTooManyRequests writes a 429 with the unlock time when one is known
func WriteTooManyRequests(w http.ResponseWriter, message string, lockedUntil *time.Time) {
	resp := ErrorResponse{Error: message}
	if lockedUntil != nil {
		utc := lockedUntil.UTC()
		resp.LockedUntil = &utc
		w.Header().Set("Retry-After", retryAfterSeconds(utc))
	}
	WriteJSON(w, http.StatusTooManyRequests, resp)
}

func retryAfterSeconds(until time.Time) string {
	seconds := int(time.Until(until).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
