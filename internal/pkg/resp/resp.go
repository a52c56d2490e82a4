/*
Package resp writes the JSON envelopes returned by the HTTP surface.

Every response carries a business code (0 on success, see package errs), a
message, optional data and, when the request went through chi's RequestID
middleware, the request id. Rejected websocket upgrades use the same envelope
so that clients can read the failure before any socket exists.
*/
package resp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"

	"clawchat/internal/pkg/errs"
	"clawchat/internal/pkg/logx"
)

// Retry hints sent with throttled and temporarily unavailable responses, in seconds.
const (
	retryAfterThrottled   = 1
	retryAfterUnavailable = 5
)

// JSONResponse is the envelope of every HTTP response.
type JSONResponse struct {
	// Code is the business status code (0 for success, see errs package).
	Code int `json:"code"`

	// Message is the client-facing description.
	Message string `json:"message"`

	// Data is the optional payload of a successful request.
	Data any `json:"data,omitempty"`

	// RequestID correlates the response with server logs.
	RequestID string `json:"requestId,omitempty"`
}

// RespondJSON sets the JSON headers and writes payload with httpStatus.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	response, err := json.Marshal(payload)
	if err != nil {
		logx.Error(
			err,
			"Error encoding JSON response",
			"http_status", httpStatus,
			"path", r.URL.Path,
		)

		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(httpStatus)
	w.Write(response)
}

// RespondSuccess writes data with code 0 and HTTP 200.
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	RespondJSON(w, r, http.StatusOK, JSONResponse{
		Code:      0,
		Message:   "success",
		Data:      data,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// RespondError writes customErr with its HTTP status. Server-side failures
// are logged with their cause, which never reaches the client. Throttled and
// unavailable responses carry a Retry-After hint.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	requestID := middleware.GetReqID(r.Context())

	if customErr.Status >= http.StatusInternalServerError {
		cause := errors.Unwrap(customErr)
		if cause == nil {
			cause = customErr
		}
		logx.Error(cause, "Request failed",
			"code", customErr.Code,
			"http_status", customErr.Status,
			"path", r.URL.Path,
			"request_id", requestID,
		)
	}

	switch customErr.Status {
	case http.StatusTooManyRequests:
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterThrottled))
	case http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterUnavailable))
	}

	RespondJSON(w, r, customErr.Status, JSONResponse{
		Code:      customErr.Code,
		Message:   customErr.Message,
		RequestID: requestID,
	})
}
