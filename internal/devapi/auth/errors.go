package auth

import (
	"net/http"

	"github.com/combatwarrior/academy/internal/common/apperrors"
)

var (
	ErrAuth apperrors.Error = apperrors.New("auth error").SetStatusCode(http.StatusInternalServerError)
)

var (
	ErrInvalidCredentials apperrors.Error = ErrAuth.New("Invalid email or password").SetStatusCode(http.StatusUnauthorized)
	ErrMissingCredentials apperrors.Error = ErrAuth.New("Email and password are required").SetStatusCode(http.StatusBadRequest)
	ErrTokenExpired       apperrors.Error = ErrAuth.New("Token expired").SetStatusCode(http.StatusUnauthorized)
	ErrInvalidToken       apperrors.Error = ErrAuth.New("Invalid token").SetStatusCode(http.StatusUnauthorized)
	ErrNotPermitted       apperrors.Error = ErrAuth.New("You do not have permission to perform this action").SetStatusCode(http.StatusForbidden)
)

var (
	ErrTokenGeneration apperrors.Error = ErrAuth.New("failed to generate token")
)
