package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"golang.org/x/crypto/bcrypt"

	"github.com/combatwarrior/academy/internal/common/httpx"
	"github.com/combatwarrior/academy/internal/devapi/config"
)

func testAccounts(t *testing.T) (*Accounts, *Tokens) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.MinCost)
	require.NoError(t, err)
	tokens := NewTokens("test-key", time.Hour)
	users := []config.User{
		{ID: "1", Email: "admin@combatwarrior.com", FirstName: "Master", LastName: "Kim", Role: "admin", PasswordHash: string(hash)},
		{ID: "2", Email: "sensei@combatwarrior.com", Role: "instructor", PasswordHash: string(hash)},
	}
	return NewAccounts(users, tokens), tokens
}

func login(a *Accounts, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	httpx.WrapHttpRsp(a.Login).ServeHTTP(rec, req)
	return rec
}

func TestLogin(t *testing.T) {
	a, tokens := testAccounts(t)
	rec := login(a, `{"email":"Admin@CombatWarrior.com","password":"admin123"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := gjson.Parse(rec.Body.String())
	assert.Equal(t, "success", body.Get("status").String())
	assert.Equal(t, "1", body.Get("data.user.id").String())
	assert.Equal(t, "admin", body.Get("data.user.role").String())
	assert.Equal(t, "Master", body.Get("data.user.firstName").String())

	claims, err := tokens.Validate(body.Get("data.token").String())
	require.NoError(t, err)
	assert.Equal(t, "1", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "Master Kim", claims.Name)
}

func TestLoginFailures(t *testing.T) {
	a, _ := testAccounts(t)
	tests := []struct {
		name string
		body string
		code int
		msg  string
	}{
		{"wrong password", `{"email":"admin@combatwarrior.com","password":"nope"}`, http.StatusUnauthorized, "Invalid email or password"},
		{"unknown user", `{"email":"ghost@combatwarrior.com","password":"admin123"}`, http.StatusUnauthorized, "Invalid email or password"},
		{"missing", `{"email":"admin@combatwarrior.com"}`, http.StatusBadRequest, "Email and password are required"},
		{"garbage", `{`, http.StatusBadRequest, "unable to parse request data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := login(a, tt.body)
			assert.Equal(t, tt.code, rec.Code)
			body := gjson.Parse(rec.Body.String())
			assert.Equal(t, "error", body.Get("status").String())
			assert.Equal(t, tt.msg, body.Get("message").String())
		})
	}
}

func TestTokenExpiryAndTampering(t *testing.T) {
	tokens := NewTokens("k1", time.Hour)
	t0 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return t0 }

	tok, exp, err := tokens.Create("1", "admin", "a@b.co", "")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Hour), exp)

	_, err = tokens.Validate(tok)
	require.NoError(t, err)

	tokens.now = func() time.Time { return t0.Add(2 * time.Hour) }
	_, err = tokens.Validate(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)

	other := NewTokens("k2", time.Hour)
	other.now = func() time.Time { return t0 }
	_, err = other.Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddlewareAndRoles(t *testing.T) {
	a, tokens := testAccounts(t)
	adminTok, _, err := tokens.Create("1", "admin", "admin@combatwarrior.com", "")
	require.NoError(t, err)
	instructorTok, _, err := tokens.Create("2", "instructor", "sensei@combatwarrior.com", "")
	require.NoError(t, err)

	protected := Middleware(tokens)(RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))
	serve := func(h http.Handler, header string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/students/x", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, serve(protected, "Bearer "+adminTok).Code)

	rec := serve(protected, "Bearer "+instructorTok)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(protected, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "No token provided", gjson.Get(rec.Body.String(), "message").String())

	rec = serve(protected, "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", gjson.Get(rec.Body.String(), "message").String())

	me := Middleware(tokens)(httpx.WrapHttpRsp(a.Me))
	rec = serve(me, "Bearer "+instructorTok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sensei@combatwarrior.com", gjson.Get(rec.Body.String(), "data.user.email").String())
}

func TestClaimsFromContext(t *testing.T) {
	assert.Nil(t, ClaimsFromContext(context.Background()))
	c := &Claims{Role: "admin"}
	assert.Same(t, c, ClaimsFromContext(WithClaims(context.Background(), c)))
}
