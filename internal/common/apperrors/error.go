// Package apperrors provides chainable application errors that carry an HTTP status
// code and an optional list of user-facing details. Errors are built from sentinel
// templates so callers can classify failures with errors.Is while still reaching the
// concrete cause with errors.As.
package apperrors

// Error defines the interface for application errors. All mutating methods return a
// new Error so sentinels can be shared safely.
type Error interface {
	error
	Unwrap() error // support for errors.Is / errors.As

	New(msg string) Error                  // new error using the current one as template
	Msg(msg string) Error                  // new message, original kept in the chain
	MsgErr(msg string, err ...error) Error // new message plus extra wrapped errors
	Err(err ...error) Error                // attaches additional errors
	WithDetails(details ...string) Error   // attaches user-facing detail lines
	Details() []string                     // detail lines, verbatim
	SetStatusCode(int) Error               // sets HTTP status code for the error
	StatusCode() int                       // returns the current status code
	ErrorAll() string                      // message followed by detail lines
	UnwrapAll() []error                    // all wrapped errors
}
