package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/combatwarrior/academy/internal/common/apperrors"
	"github.com/combatwarrior/academy/internal/common/eventbus"
	"github.com/combatwarrior/academy/internal/common/uuid"
	"github.com/combatwarrior/academy/internal/session/tokenstore"
)

// DefaultTimeout applies when the Configurator reports no timeout.
const DefaultTimeout = 20 * time.Second

// RequestIDHeader carries a per-request correlation ID.
const RequestIDHeader = "X-Academy-Request-ID"

// Configurator provides the API location and request timeout.
type Configurator interface {
	GetServerURL() string
	GetTimeout() time.Duration
}

// Request describes one API call. Query values that are empty are dropped.
type Request struct {
	Method       string
	Path         string
	Query        map[string]string
	Body         []byte
	RequiresAuth bool
}

// UnauthenticatedEvent is published on eventbus.TopicUnauthenticated after a 401.
type UnauthenticatedEvent struct {
	Method string
	Path   string
}

// Gateway sends requests on behalf of the signed-in user.
type Gateway struct {
	config     Configurator
	store      tokenstore.Store
	bus        *eventbus.EventBus
	httpClient *http.Client
}

// ClientOptions tunes the underlying transport.
type ClientOptions struct {
	DisableCertValidation bool         // skip TLS verification, for self-signed dev servers
	HTTPClient            *http.Client // use this client instead of building one
}

// NewGateway creates a gateway reading tokens from store and announcing
// authentication loss on bus. bus may be nil.
func NewGateway(config Configurator, store tokenstore.Store, bus *eventbus.EventBus, opts ...ClientOptions) *Gateway {
	var o ClientOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	httpClient := o.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
		if o.DisableCertValidation {
			httpClient.Transport = &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402
			}
		}
	}
	return &Gateway{
		config:     config,
		store:      store,
		bus:        bus,
		httpClient: httpClient,
	}
}

// Send issues req. A request that requires auth while no session exists fails with
// ErrUnauthenticated before anything goes on the wire.
func (g *Gateway) Send(ctx context.Context, req Request) ([]byte, error) {
	session := g.store.Get()
	if req.RequiresAuth && !session.Present() {
		return nil, ErrUnauthenticated
	}

	u, err := BuildURL(g.config.GetServerURL(), req.Path, req.Query)
	if err != nil {
		return nil, ErrRequestFailed.MsgErr(fmt.Sprintf("invalid server URL: %v", err), err)
	}

	timeout := g.config.GetTimeout()
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, ErrRequestFailed.MsgErr(fmt.Sprintf("failed to create request: %v", err), err)
	}
	requestID := uuid.RequestID()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(RequestIDHeader, requestID)
	if session.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+session.Token)
	}

	logger := log.Ctx(ctx).With().Str("request_id", requestID).Str("method", req.Method).Str("path", req.Path).Logger()
	logger.Debug().Msg("sending request")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		logger.Debug().Err(err).Msg("request failed without a response")
		return nil, ErrNetwork.Err(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrNetwork.Err(err)
	}
	logger.Debug().Int("status", resp.StatusCode).Msg("response received")

	if resp.StatusCode == http.StatusUnauthorized {
		g.onUnauthenticated(req)
		return nil, ErrUnauthenticated.Err(errorFromBody(resp.StatusCode, respBody))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classify(resp.StatusCode, respBody)
	}
	return respBody, nil
}

func (g *Gateway) onUnauthenticated(req Request) {
	if err := g.store.Clear(); err != nil {
		log.Error().Err(err).Msg("unable to clear session after 401")
	}
	if g.bus != nil {
		g.bus.Publish(eventbus.TopicUnauthenticated, UnauthenticatedEvent{Method: req.Method, Path: req.Path})
	}
}

func classify(status int, body []byte) apperrors.Error {
	httpErr := errorFromBody(status, body)
	switch {
	case status == http.StatusForbidden:
		return ErrForbidden.MsgErr(httpErr.Message, httpErr)
	case (status == http.StatusBadRequest || status == http.StatusUnprocessableEntity) && len(httpErr.Details) > 0:
		return ErrValidationFailed.MsgErr(httpErr.Message, httpErr).WithDetails(httpErr.Details...).SetStatusCode(status)
	default:
		return ErrRequestFailed.MsgErr(httpErr.Message, httpErr).SetStatusCode(status)
	}
}

// errorFromBody reads message and errors from an error response. The errors list
// may hold strings or objects with a msg or message field.
func errorFromBody(status int, body []byte) *HTTPError {
	e := &HTTPError{StatusCode: status}
	if gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)
		e.Message = parsed.Get("message").String()
		if e.Message == "" {
			e.Message = parsed.Get("error").String()
		}
		parsed.Get("errors").ForEach(func(_, v gjson.Result) bool {
			switch {
			case v.Type == gjson.String:
				e.Details = append(e.Details, v.String())
			case v.Get("msg").Exists():
				e.Details = append(e.Details, v.Get("msg").String())
			case v.Get("message").Exists():
				e.Details = append(e.Details, v.Get("message").String())
			}
			return true
		})
	}
	if e.Message == "" && len(e.Details) > 0 {
		e.Message = strings.Join(e.Details, "; ")
	}
	if e.Message == "" {
		if status == http.StatusNotFound {
			e.Message = "server doesn't implement this endpoint"
		} else {
			e.Message = fmt.Sprintf("server returned %d %s", status, http.StatusText(status))
		}
	}
	return e
}

// BuildURL joins base and p and encodes the non-empty query values.
func BuildURL(base, p string, query map[string]string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%q is not an absolute URL", base)
	}
	u.Path = path.Join("/", u.Path, p)
	q := u.Query()
	for k, v := range query {
		if v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// List fetches a collection.
func (g *Gateway) List(ctx context.Context, resourceType string, query map[string]string) ([]byte, error) {
	return g.Send(ctx, Request{Method: http.MethodGet, Path: resourceType, Query: query, RequiresAuth: true})
}

// Create posts a new record.
func (g *Gateway) Create(ctx context.Context, resourceType string, data []byte) ([]byte, error) {
	return g.Send(ctx, Request{Method: http.MethodPost, Path: resourceType, Body: data, RequiresAuth: true})
}

// Update replaces the record with the given id.
func (g *Gateway) Update(ctx context.Context, resourceType, id string, data []byte) ([]byte, error) {
	p, err := ItemPath(resourceType, id)
	if err != nil {
		return nil, err
	}
	return g.Send(ctx, Request{Method: http.MethodPut, Path: p, Body: data, RequiresAuth: true})
}

// Delete removes the record with the given id.
func (g *Gateway) Delete(ctx context.Context, resourceType, id string) error {
	p, err := ItemPath(resourceType, id)
	if err != nil {
		return err
	}
	_, err = g.Send(ctx, Request{Method: http.MethodDelete, Path: p, RequiresAuth: true})
	return err
}

// ItemPath addresses one record of a collection. The id must be a single path
// segment; BuildURL cleans the joined path, so "../courses/7" would otherwise
// reach a different collection.
func ItemPath(collection, id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, "/\\?#") {
		return "", ErrInvalidID.Msg(fmt.Sprintf("invalid record id %q", id))
	}
	return strings.Trim(collection, "/") + "/" + id, nil
}
