package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/combatwarrior/academy/internal/common/uuid"
)

// Issuer is the iss claim of every token.
const Issuer = "academy-devapi"

// Claims are carried by an access token.
type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 access tokens.
type Tokens struct {
	key    []byte
	expiry time.Duration
	now    func() time.Time
}

func NewTokens(signingKey string, expiry time.Duration) *Tokens {
	return &Tokens{key: []byte(signingKey), expiry: expiry, now: time.Now}
}

// Create signs a token for the user and returns it with its expiry time.
func (t *Tokens) Create(userID, role, email, name string) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.expiry)
	claims := Claims{
		Role:  role,
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", time.Time{}, ErrTokenGeneration.Err(err)
	}
	return token, exp, nil
}

// Validate parses and verifies a token. An expired token yields ErrTokenExpired;
// anything else wrong yields ErrInvalidToken.
func (t *Tokens) Validate(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken.Err(err)
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken.Msg("token has no subject")
	}
	return claims, nil
}
