// Package response writes the storefront JSON envelope:
//
//	{"success": true, "message": "Order placed", "order": {...}}
//
// Payload keys are merged into the top level next to success and message.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/artisanmart/storefront/pkg/apperr"
	"github.com/artisanmart/storefront/pkg/logger"
)

// Payload is merged into the envelope. "success" and "message" are reserved.
type Payload map[string]any

// Pagination is the metadata attached to paged listings.
type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"perPage"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewPagination computes total pages for a result set.
func NewPagination(page, perPage int, total int64) Pagination {
	pages := 0
	if perPage > 0 {
		pages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: pages}
}

// Envelope builds the response body.
func Envelope(success bool, message string, payload Payload) map[string]any {
	body := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = success
	body["message"] = message
	return body
}

// JSON writes an envelope with the given status.
func JSON(w http.ResponseWriter, status int, success bool, message string, payload Payload) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope(success, message, payload)) //nolint:errcheck
}

func OK(w http.ResponseWriter, message string, payload Payload) {
	JSON(w, http.StatusOK, true, message, payload)
}

func Created(w http.ResponseWriter, message string, payload Payload) {
	JSON(w, http.StatusCreated, true, message, payload)
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, false, message, nil)
}

// ValidationError sends a 422 with field-level messages.
func ValidationError(w http.ResponseWriter, errs map[string]string) {
	JSON(w, http.StatusUnprocessableEntity, false, "Validation failed", Payload{"errors": errs})
}

// Fail maps err through apperr. Internal errors are logged with the request
// logger and answered with a generic message.
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		logger.WithCtx(r.Context()).Error("request failed", "error", err, "path", r.URL.Path)
	}
	Error(w, status, apperr.Message(err))
}

func Unauthorized(w http.ResponseWriter) {
	Error(w, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(w http.ResponseWriter) {
	Error(w, http.StatusForbidden, "Forbidden")
}

func NotFound(w http.ResponseWriter) {
	Error(w, http.StatusNotFound, "Not found")
}
