package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
// Entries without a Status default to 200 when returned over HTTP.
var errorMap = map[int]CustomError{
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request body is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	ErrNoCredential:  {Code: ErrNoCredential, Message: "No authentication provided.", Status: http.StatusUnauthorized},
	ErrInvalidToken:  {Code: ErrInvalidToken, Message: "Invalid token.", Status: http.StatusUnauthorized},
	ErrInvalidAPIKey: {Code: ErrInvalidAPIKey, Message: "Invalid API key.", Status: http.StatusUnauthorized},
	ErrAuthBackend:   {Code: ErrAuthBackend, Message: "Authentication failed.", Status: http.StatusServiceUnavailable},
	ErrAdminRequired: {Code: ErrAdminRequired, Message: "Admin access required.", Status: http.StatusForbidden},

	ErrSessionClosed:      {Code: ErrSessionClosed, Message: "Connection is closed."},
	ErrUnknownConnection:  {Code: ErrUnknownConnection, Message: "Unknown connection."},
	ErrRoomForbidden:      {Code: ErrRoomForbidden, Message: "You cannot join this room.", Status: http.StatusForbidden},
	ErrInvalidRoomTarget:  {Code: ErrInvalidRoomTarget, Message: "Invalid channel or thread id.", Status: http.StatusBadRequest},
	ErrUnsupportedCommand: {Code: ErrUnsupportedCommand, Message: "Unsupported command: %s."},
	ErrDeliveryFailed:     {Code: ErrDeliveryFailed, Message: "Event delivery failed."},
	ErrUnknownEvent:       {Code: ErrUnknownEvent, Message: "Unknown event type: %s.", Status: http.StatusBadRequest},

	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
