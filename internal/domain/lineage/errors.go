package lineage

import "errors"

// Error taxonomy for remote document operations. Callers match these with
// errors.Is; lower layers wrap them with status and message context.
var (
	// ErrAuthFailed indicates missing or rejected credentials. Fatal for
	// the calling operation, never retried.
	ErrAuthFailed = errors.New("remote authentication failed")

	// ErrSessionExpired indicates the remote store invalidated the current
	// session. Recovered transparently by the client with exactly one
	// re-login and retry.
	ErrSessionExpired = errors.New("remote session expired")

	// ErrRemote covers any other non-success response from the store.
	ErrRemote = errors.New("remote document store error")

	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrTimeout indicates a call exceeded its deadline. Never silently
	// retried.
	ErrTimeout = errors.New("remote call timed out")

	// ErrMalformedResponse indicates a response body that could not be
	// parsed; the raw payload is carried in the wrapping message.
	ErrMalformedResponse = errors.New("malformed remote response")
)
