package auth

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/combatwarrior/academy/internal/common/httpx"
	"github.com/combatwarrior/academy/internal/devapi/config"
)

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userRsp struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

type loginRsp struct {
	Token string  `json:"token"`
	User  userRsp `json:"user"`
}

// Accounts signs users in against the configured account list.
type Accounts struct {
	byEmail map[string]config.User
	byID    map[string]config.User
	tokens  *Tokens
}

// NewAccounts indexes users, whose passwords are already bcrypt hashed.
func NewAccounts(users []config.User, tokens *Tokens) *Accounts {
	a := &Accounts{byEmail: map[string]config.User{}, byID: map[string]config.User{}, tokens: tokens}
	for _, u := range users {
		a.byEmail[strings.ToLower(u.Email)] = u
		a.byID[u.ID] = u
	}
	return a
}

// Login handles POST /auth/login.
func (a *Accounts) Login(r *http.Request) (*httpx.Response, error) {
	var req loginReq
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, ErrMissingCredentials
	}

	u, ok := a.byEmail[email]
	if !ok {
		log.Ctx(r.Context()).Info().Str("email", email).Msg("login for unknown account")
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		log.Ctx(r.Context()).Info().Str("user_id", u.ID).Msg("login with wrong password")
		return nil, ErrInvalidCredentials
	}

	token, _, err := a.tokens.Create(u.ID, u.Role, u.Email, strings.TrimSpace(u.FirstName+" "+u.LastName))
	if err != nil {
		return nil, err
	}
	log.Ctx(r.Context()).Info().Str("user_id", u.ID).Str("role", u.Role).Msg("user logged in")
	return httpx.Success(loginRsp{Token: token, User: toUserRsp(u)}), nil
}

// Me handles GET /auth/me for an authenticated caller.
func (a *Accounts) Me(r *http.Request) (*httpx.Response, error) {
	c := ClaimsFromContext(r.Context())
	if c == nil {
		return nil, httpx.ErrUnAuthorized()
	}
	u, ok := a.byID[c.Subject]
	if !ok {
		return nil, ErrInvalidToken.Msg("account no longer exists")
	}
	return httpx.Success(map[string]any{"user": toUserRsp(u)}), nil
}

func toUserRsp(u config.User) userRsp {
	return userRsp{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName, Role: u.Role}
}
