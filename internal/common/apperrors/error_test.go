package apperrors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type causeErr struct {
	code int
}

func (c *causeErr) Error() string { return fmt.Sprintf("cause %d", c.code) }

func TestError(t *testing.T) {
	ErrBase := New("base error")
	assert.Equal(t, "base error", ErrBase.Error())
	assert.Equal(t, "msg", ErrBase.New("msg").Error())
	assert.ErrorIs(t, ErrBase, ErrBase)

	ErrFirstLevel := ErrBase.New("first level")
	assert.Equal(t, "first level", ErrFirstLevel.Error())
	assert.ErrorIs(t, ErrFirstLevel, ErrBase)

	ErrOther := New("other error")
	wrapped := ErrFirstLevel.Err(ErrOther.Msg("other msg"))
	assert.Equal(t, "first level", wrapped.Error())
	assert.ErrorIs(t, wrapped, ErrBase)
	assert.ErrorIs(t, wrapped, ErrFirstLevel)
	assert.ErrorIs(t, wrapped, ErrOther)

	err := errors.New("plain")
	wrapped = ErrFirstLevel.MsgErr("msg", err)
	assert.Equal(t, "msg", wrapped.Error())
	assert.ErrorIs(t, wrapped, ErrBase)
	assert.ErrorIs(t, wrapped, err)
}

func TestStatusCodeAndDetails(t *testing.T) {
	ErrValidation := New("validation failed").SetStatusCode(http.StatusUnprocessableEntity)
	err := ErrValidation.Msg("student is invalid").WithDetails("email is required", "phone is required")

	assert.Equal(t, http.StatusUnprocessableEntity, err.StatusCode())
	assert.Equal(t, []string{"email is required", "phone is required"}, err.Details())
	assert.Equal(t, "student is invalid: email is required; phone is required", err.ErrorAll())
	assert.ErrorIs(t, err, ErrValidation)

	// the template keeps no details
	assert.Empty(t, ErrValidation.Details())
}

func TestAsReachesWrappedCause(t *testing.T) {
	ErrRequest := New("request failed")
	err := ErrRequest.MsgErr("server exploded", &causeErr{code: 500})

	var target *causeErr
	require.True(t, errors.As(err, &target))
	assert.Equal(t, 500, target.code)

	var wrappedTwice error = fmt.Errorf("listing students: %w", err)
	target = nil
	require.True(t, errors.As(wrappedTwice, &target))
	assert.Equal(t, 500, target.code)
	assert.ErrorIs(t, wrappedTwice, ErrRequest)
}
