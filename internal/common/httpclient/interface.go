// Package httpclient is the authenticated request gateway used by every back-office
// operation. It attaches the bearer token from the session store, classifies server
// failures into a small error taxonomy, and on a 401 clears the session and announces
// the change so every session gate re-prompts for login.
package httpclient

import (
	"context"
)

// Sender issues a single request and returns the raw JSON response body.
// Implementations never retry and never queue.
type Sender interface {
	Send(ctx context.Context, req Request) ([]byte, error)
}

var _ Sender = &Gateway{}
