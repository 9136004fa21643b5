package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/combatwarrior/academy/internal/common/eventbus"
	"github.com/combatwarrior/academy/internal/session/tokenstore"
)

type testConfig struct {
	url     string
	timeout time.Duration
}

func (c testConfig) GetServerURL() string      { return c.url }
func (c testConfig) GetTimeout() time.Duration { return c.timeout }

type recorded struct {
	method, path, rawQuery, auth, contentType, requestID string
	body                                                 []byte
}

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *int32, *recorded) {
	t.Helper()
	var calls int32
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.rawQuery = r.URL.RawQuery
		rec.auth = r.Header.Get("Authorization")
		rec.contentType = r.Header.Get("Content-Type")
		rec.requestID = r.Header.Get(RequestIDHeader)
		rec.body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls, rec
}

func signedInStore(t *testing.T) tokenstore.Store {
	s := tokenstore.NewMemory()
	require.NoError(t, s.Set("tok-123", tokenstore.User{ID: "1", Role: tokenstore.RoleAdmin}))
	return s
}

func TestRequiresAuthWithoutSessionMakesNoCall(t *testing.T) {
	srv, calls, _ := newTestServer(t, http.StatusOK, `{}`)
	gw := NewGateway(testConfig{url: srv.URL}, tokenstore.NewMemory(), nil)

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
		_, err := gw.Send(context.Background(), Request{Method: method, Path: "students", RequiresAuth: true})
		assert.ErrorIs(t, err, ErrUnauthenticated)
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestSendAttachesHeadersAndQuery(t *testing.T) {
	srv, calls, rec := newTestServer(t, http.StatusOK, `{"status":"success","data":{"students":[]}}`)
	gw := NewGateway(testConfig{url: srv.URL + "/api"}, signedInStore(t), nil)

	body, err := gw.List(context.Background(), "students", map[string]string{
		"page":   "1",
		"limit":  "10",
		"search": "",
	})
	require.NoError(t, err)
	assert.Contains(t, string(body), `"students"`)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/api/students", rec.path)
	assert.Equal(t, "limit=10&page=1", rec.rawQuery)
	assert.Equal(t, "Bearer tok-123", rec.auth)
	assert.Equal(t, "application/json", rec.contentType)
	assert.NotEmpty(t, rec.requestID)
}

func TestPublicRequestWithoutSessionSendsNoAuthorization(t *testing.T) {
	srv, calls, rec := newTestServer(t, http.StatusOK, `{"status":"success"}`)
	gw := NewGateway(testConfig{url: srv.URL}, tokenstore.NewMemory(), nil)

	_, err := gw.Send(context.Background(), Request{Method: http.MethodGet, Path: "certificates/verify/ABC"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Empty(t, rec.auth)
	assert.Equal(t, "/certificates/verify/ABC", rec.path)
}

func TestUnauthorizedClearsStoreAndPublishes(t *testing.T) {
	srv, _, rec := newTestServer(t, http.StatusUnauthorized, `{"status":"error","message":"Token expired"}`)
	store := signedInStore(t)
	bus := eventbus.New()
	events, unsubscribe := bus.Subscribe(eventbus.TopicUnauthenticated, 1)
	defer unsubscribe()

	gw := NewGateway(testConfig{url: srv.URL}, store, bus)
	err := gw.Delete(context.Background(), "students", "42")

	require.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, "/students/42", rec.path)
	assert.False(t, store.Get().Present())

	select {
	case e := <-events:
		assert.Equal(t, UnauthenticatedEvent{Method: http.MethodDelete, Path: "students/42"}, e.Data)
	case <-time.After(time.Second):
		t.Fatal("no unauthenticated event")
	}
}

func TestValidationFailureKeepsServerMessages(t *testing.T) {
	srv, _, rec := newTestServer(t, http.StatusBadRequest,
		`{"status":"error","message":"Validation failed","errors":["Email is already registered","Phone must be 10 digits"]}`)
	gw := NewGateway(testConfig{url: srv.URL}, signedInStore(t), nil)

	_, err := gw.Create(context.Background(), "students", []byte(`{"firstName":"Ana"}`))
	require.ErrorIs(t, err, ErrValidationFailed)
	require.ErrorIs(t, err, ErrRequestFailed)
	assert.Equal(t, `{"firstName":"Ana"}`, string(rec.body))

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Equal(t, []string{"Email is already registered", "Phone must be 10 digits"}, httpErr.Details)
	assert.Equal(t, "Validation failed", err.Error())
}

func TestValidationErrorObjects(t *testing.T) {
	srv, _, _ := newTestServer(t, http.StatusUnprocessableEntity,
		`{"errors":[{"msg":"Price must be positive"},{"message":"Name is required"}]}`)
	gw := NewGateway(testConfig{url: srv.URL}, signedInStore(t), nil)

	_, err := gw.Create(context.Background(), "courses", []byte(`{}`))
	require.ErrorIs(t, err, ErrValidationFailed)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, []string{"Price must be positive", "Name is required"}, httpErr.Details)
	assert.Equal(t, "Price must be positive; Name is required", httpErr.Message)
}

func TestOtherFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		message  string
	}{
		{"server error with message", http.StatusInternalServerError, `{"message":"Database unavailable"}`, ErrRequestFailed, "Database unavailable"},
		{"legacy error field", http.StatusConflict, `{"result":0,"error":"duplicate"}`, ErrRequestFailed, "duplicate"},
		{"not found without body", http.StatusNotFound, ``, ErrRequestFailed, "server doesn't implement this endpoint"},
		{"non-json body", http.StatusBadGateway, `<html>bad gateway</html>`, ErrRequestFailed, "server returned 502 Bad Gateway"},
		{"forbidden", http.StatusForbidden, `{"message":"Admins only"}`, ErrForbidden, "Admins only"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := newTestServer(t, tt.status, tt.body)
			store := signedInStore(t)
			gw := NewGateway(testConfig{url: srv.URL}, store, nil)

			_, err := gw.List(context.Background(), "courses", nil)
			require.ErrorIs(t, err, tt.sentinel)
			assert.NotErrorIs(t, err, ErrUnauthenticated)
			var httpErr *HTTPError
			require.True(t, errors.As(err, &httpErr))
			assert.Equal(t, tt.status, httpErr.StatusCode)
			assert.Equal(t, tt.message, httpErr.Message)
			assert.True(t, store.Get().Present(), "only a 401 clears the session")
		})
	}
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	gw := NewGateway(testConfig{url: url}, signedInStore(t), nil)
	_, err := gw.List(context.Background(), "students", nil)
	require.ErrorIs(t, err, ErrNetwork)
	assert.NotErrorIs(t, err, ErrRequestFailed)
}

func TestTimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	gw := NewGateway(testConfig{url: srv.URL, timeout: 50 * time.Millisecond}, signedInStore(t), nil)
	_, err := gw.List(context.Background(), "students", nil)
	require.ErrorIs(t, err, ErrNetwork)
}

func TestBuildURL(t *testing.T) {
	u, err := BuildURL("http://localhost:5000/api", "/students/", map[string]string{"page": "2", "search": ""})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000/api/students?page=2", u)

	_, err = BuildURL("localhost", "students", nil)
	assert.Error(t, err)
}

func TestItemPath(t *testing.T) {
	p, err := ItemPath("/students/", "abc-123")
	require.NoError(t, err)
	assert.Equal(t, "students/abc-123", p)

	for _, id := range []string{"", ".", "..", "../courses/7", "a/b", `a\b`, "a?b", "a#b"} {
		_, err := ItemPath("students", id)
		assert.ErrorIs(t, err, ErrInvalidID, id)
	}
}

func TestInvalidIDMakesNoCall(t *testing.T) {
	srv, calls, _ := newTestServer(t, http.StatusOK, `{"status":"success"}`)
	gw := NewGateway(testConfig{url: srv.URL}, signedInStore(t), nil)

	require.ErrorIs(t, gw.Delete(context.Background(), "students", "../courses/7"), ErrInvalidID)
	_, err := gw.Update(context.Background(), "students", "..", []byte(`{"name":"x"}`))
	require.ErrorIs(t, err, ErrInvalidID)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}
