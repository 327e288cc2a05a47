// Package http holds the JSON API handlers. Handlers parse and authorize
// requests, delegate to the domain services, and translate service errors
// into the standard error envelope.
package http

import (
	"encoding/json"
	"log"
	"net/http"

	"saverr/internal/shared/apperr"
	"saverr/internal/shared/middleware"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			log.Printf("ERROR: failed to encode response: %v", err)
		}
	}
}

// writeError translates a service error into the error envelope. Internal
// errors are logged with their cause; the client only sees the generic
// message.
func writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		log.Printf("ERROR: %v", err)
	}
	writeJSON(w, statusFor(kind), errorBody{Error: errorDetail{
		Code:    kind.String(),
		Message: apperr.MessageOf(err),
	}})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody parses a JSON request body into dst. An empty body is an
// error; handlers with optional bodies use decodeOptionalBody.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("Invalid request body")
	}
	return nil
}

// decodeOptionalBody parses a JSON body if one is present, leaving dst
// zeroed otherwise.
func decodeOptionalBody(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("Invalid request body")
	}
	return nil
}

// userID extracts the authenticated user, writing 401 when absent.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("Invalid or expired authentication token"))
		return "", false
	}
	return id, true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: errorDetail{
		Code:    "METHOD_NOT_ALLOWED",
		Message: "Method not allowed",
	}})
}

// HandleHealth reports liveness.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
