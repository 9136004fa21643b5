package httpclient

import (
	"net/http"

	"github.com/combatwarrior/academy/internal/common/apperrors"
)

var (
	// ErrUnauthenticated means there is no session or the server rejected the token.
	ErrUnauthenticated = apperrors.New("authentication required; please log in").SetStatusCode(http.StatusUnauthorized)
	// ErrRequestFailed is any other non-2xx response.
	ErrRequestFailed = apperrors.New("request failed")
	// ErrForbidden is a 403: the token is valid but the role is insufficient.
	ErrForbidden = ErrRequestFailed.New("access denied").SetStatusCode(http.StatusForbidden)
	// ErrValidationFailed carries the server's field-level messages in Details.
	ErrValidationFailed = ErrRequestFailed.New("validation failed").SetStatusCode(http.StatusUnprocessableEntity)
	// ErrInvalidID is returned before any request for an id that is not a
	// single path segment.
	ErrInvalidID = apperrors.New("invalid record id").SetStatusCode(http.StatusBadRequest)
	// ErrNetwork means no response was received, including timeouts.
	ErrNetwork = apperrors.New("unable to reach the academy server; check your connection and that the server is available")
)

// HTTPError is the concrete cause attached to ErrRequestFailed and its variants.
type HTTPError struct {
	StatusCode int      // HTTP status code of the response
	Message    string   // message from the response body, or a status text fallback
	Details    []string // field-level messages from the body's errors list
}

func (e *HTTPError) Error() string {
	return e.Message
}
