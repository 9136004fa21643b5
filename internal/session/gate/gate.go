// Package gate implements the session gate that stands in front of every back-office
// view. A gate starts in Checking, settles on Authenticated or Unauthenticated from the
// persisted session, and drops back to Unauthenticated on logout or when any request
// gateway in the process reports a 401. While Unauthenticated no data may be loaded.
package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/combatwarrior/academy/internal/common/apperrors"
	"github.com/combatwarrior/academy/internal/common/eventbus"
	"github.com/combatwarrior/academy/internal/common/httpclient"
	"github.com/combatwarrior/academy/internal/session/tokenstore"
)

// State of a gate.
type State int

const (
	StateChecking State = iota
	StateUnauthenticated
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// LoginPath is the auth endpoint, relative to the API base URL.
const LoginPath = "auth/login"

var (
	ErrLoginFailed = apperrors.New("login failed").SetStatusCode(http.StatusUnauthorized)

	// ErrRoleNotAllowed is returned when the account is neither admin nor instructor.
	ErrRoleNotAllowed     = ErrLoginFailed.New("access denied: an admin or instructor account is required").SetStatusCode(http.StatusForbidden)
	ErrMissingCredentials = ErrLoginFailed.New("email and password are required").SetStatusCode(http.StatusBadRequest)
)

// Reasons reported by Reason while Unauthenticated.
const (
	ReasonNoSession     = "not signed in"
	ReasonExpired       = "session expired; please log in again"
	ReasonLoggedOut     = "signed out"
	ReasonNotPrivileged = "account is not an admin or instructor"
)

// Gate is safe for concurrent use.
type Gate struct {
	mu        sync.RWMutex
	state     State
	reason    string
	observers []func(State)

	config     httpclient.Configurator
	store      tokenstore.Store
	bus        *eventbus.EventBus
	httpClient *http.Client
	goHome     func()
}

// Option configures a Gate.
type Option func(*Gate)

// WithHTTPClient sets the client used for the login call.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gate) { g.httpClient = c }
}

// WithHomeNavigation marks the gate as the top-level site session. fn runs after
// an explicit logout.
func WithHomeNavigation(fn func()) Option {
	return func(g *Gate) { g.goHome = fn }
}

// New creates a gate in the Checking state. bus may be nil.
func New(config httpclient.Configurator, store tokenstore.Store, bus *eventbus.EventBus, opts ...Option) *Gate {
	g := &Gate{
		state:  StateChecking,
		config: config,
		store:  store,
		bus:    bus,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.httpClient == nil {
		g.httpClient = &http.Client{}
	}
	return g
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Reason explains the current Unauthenticated state; empty otherwise.
func (g *Gate) Reason() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.reason
}

// Session returns the persisted session when Authenticated, else the absent session.
func (g *Gate) Session() tokenstore.Session {
	if g.State() != StateAuthenticated {
		return tokenstore.Session{}
	}
	return g.store.Get()
}

// OnChange registers fn to run after every state transition. fn must not call
// back into OnChange.
func (g *Gate) OnChange(fn func(State)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observers = append(g.observers, fn)
}

// Require returns nil only when Authenticated.
func (g *Gate) Require() error {
	if g.State() == StateAuthenticated {
		return nil
	}
	return httpclient.ErrUnauthenticated
}

// Check reads the store and settles the state. A session whose user lacks a
// privileged role is cleared and treated as absent.
func (g *Gate) Check() State {
	s := g.store.Get()
	switch {
	case !s.Present():
		// drops any half-written or unparsable leftovers
		_ = g.store.Clear()
		g.setState(StateUnauthenticated, ReasonNoSession)
	case !s.User.Role.Privileged():
		log.Warn().Str("role", string(s.User.Role)).Msg("persisted session has no back-office role")
		_ = g.store.Clear()
		g.setState(StateUnauthenticated, ReasonNotPrivileged)
	default:
		g.setState(StateAuthenticated, "")
	}
	return g.State()
}

// Login authenticates against the auth endpoint directly, since no token exists
// yet. On failure the gate stays Unauthenticated and the returned error carries the
// server's message verbatim.
func (g *Gate) Login(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return ErrMissingCredentials
	}
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return ErrLoginFailed.Err(err)
	}
	u, err := httpclient.BuildURL(g.config.GetServerURL(), LoginPath, nil)
	if err != nil {
		return ErrLoginFailed.MsgErr("invalid server URL: "+err.Error(), err)
	}

	timeout := g.config.GetTimeout()
	if timeout <= 0 {
		timeout = httpclient.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return ErrLoginFailed.Err(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return httpclient.ErrNetwork.Err(err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return httpclient.ErrNetwork.Err(err)
	}

	parsed := gjson.ParseBytes(respBody)
	if resp.StatusCode < 200 || resp.StatusCode > 299 || parsed.Get("status").String() != "success" {
		msg := parsed.Get("message").String()
		if msg == "" {
			msg = "Login failed. Please check your credentials."
		}
		return ErrLoginFailed.Msg(msg).SetStatusCode(resp.StatusCode)
	}

	token := parsed.Get("data.token").String()
	user := userFromJSON(parsed.Get("data.user"))
	if token == "" || user.ID == "" {
		return ErrLoginFailed.Msg("login response did not include a token and user")
	}
	if !user.Role.Privileged() {
		g.setState(StateUnauthenticated, ReasonNotPrivileged)
		return ErrRoleNotAllowed
	}
	if err := g.store.Set(token, user); err != nil {
		return ErrLoginFailed.MsgErr("unable to save session: "+err.Error(), err)
	}
	log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("signed in")
	g.setState(StateAuthenticated, "")
	if g.bus != nil {
		g.bus.Publish(eventbus.TopicAuthenticated, user)
	}
	return nil
}

// Logout clears the session. The top-level gate then navigates home.
func (g *Gate) Logout() error {
	err := g.store.Clear()
	g.setState(StateUnauthenticated, ReasonLoggedOut)
	if g.bus != nil {
		g.bus.Publish(eventbus.TopicUnauthenticated, ReasonLoggedOut)
	}
	if g.goHome != nil {
		g.goHome()
	}
	return err
}

// Watch follows session events from the bus until ctx ends or the returned stop
// function is called. A 401 seen by any gateway moves the gate to Unauthenticated;
// a login elsewhere in the process makes it re-check the store.
func (g *Gate) Watch(ctx context.Context) (stop func()) {
	if g.bus == nil {
		return func() {}
	}
	events, unsubscribe := g.bus.Subscribe(eventbus.TopicSessionAll, 8)
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				switch e.Topic {
				case eventbus.TopicUnauthenticated:
					reason := ReasonExpired
					if r, ok := e.Data.(string); ok && r != "" {
						reason = r
					}
					g.setState(StateUnauthenticated, reason)
				case eventbus.TopicAuthenticated:
					g.Check()
				}
			}
		}
	}()
	return cancel
}

func (g *Gate) setState(s State, reason string) {
	g.mu.Lock()
	changed := g.state != s
	g.state = s
	g.reason = reason
	observers := append([]func(State){}, g.observers...)
	g.mu.Unlock()

	if !changed {
		return
	}
	log.Debug().Str("state", s.String()).Str("reason", reason).Msg("session gate transition")
	for _, fn := range observers {
		fn(s)
	}
}

// userFromJSON reads the user profile, accepting numeric IDs and the common
// name shapes returned by the auth endpoint.
func userFromJSON(u gjson.Result) tokenstore.User {
	id := u.Get("id").String()
	if id == "" {
		id = u.Get("_id").String()
	}
	name := u.Get("displayName").String()
	if name == "" {
		name = u.Get("name").String()
	}
	if name == "" {
		name = strings.TrimSpace(u.Get("firstName").String() + " " + u.Get("lastName").String())
	}
	return tokenstore.User{
		ID:          id,
		Role:        tokenstore.Role(u.Get("role").String()),
		DisplayName: name,
		Email:       u.Get("email").String(),
	}
}
