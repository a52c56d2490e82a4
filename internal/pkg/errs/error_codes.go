/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific failures both inside the server and on the wire,
where they are reported to clients in HTTP rejection bodies and in realtime error frames.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that a request body or realtime frame was not valid JSON.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates that the request body exceeded the allowed size.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 31xx: Connection Authentication Errors
const (
	// ErrNoCredential indicates that neither a session token nor an API key was presented.
	ErrNoCredential = 3101

	// ErrInvalidToken indicates a session token with a bad signature, bad claims, or past expiry.
	ErrInvalidToken = 3102

	// ErrInvalidAPIKey indicates that the presented API key matched no bot account.
	ErrInvalidAPIKey = 3103

	// ErrAuthBackend indicates that the bot credential lookup itself failed.
	ErrAuthBackend = 3104

	// ErrAdminRequired indicates that an internal endpoint was called without an admin identity.
	ErrAdminRequired = 3105
)

// 32xx: Realtime Coordination Errors
const (
	// ErrSessionClosed indicates an operation on a connection session that has already closed.
	ErrSessionClosed = 3201

	// ErrUnknownConnection indicates a connection id that is not attached to the router.
	ErrUnknownConnection = 3202

	// ErrRoomForbidden indicates that the room authorizer refused a join.
	ErrRoomForbidden = 3203

	// ErrInvalidRoomTarget indicates a syntactically invalid channel or thread id.
	ErrInvalidRoomTarget = 3204

	// ErrUnsupportedCommand indicates an inbound realtime command the server does not handle.
	ErrUnsupportedCommand = 3205

	// ErrDeliveryFailed indicates that a single recipient could not accept an event.
	ErrDeliveryFailed = 3206

	// ErrUnknownEvent indicates an event envelope whose type is not part of the event taxonomy.
	ErrUnknownEvent = 3207
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
