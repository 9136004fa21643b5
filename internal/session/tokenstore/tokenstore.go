// Package tokenstore persists the bearer token and the signed-in user's profile.
// Both live in named slots and are always written and cleared together, so a
// caller never observes a token without a user or a user without a token.
// Token validity is never judged here; the server decides on each request.
package tokenstore

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
)

// Slot names.
const (
	TokenSlot = "academy_token"
	UserSlot  = "academy_user"
)

// Role is the user's role as reported by the auth endpoint.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleInstructor Role = "instructor"
)

// Privileged reports whether the role may use the back office.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleInstructor
}

// User is the persisted profile of the signed-in user.
type User struct {
	ID          string `json:"id"`
	Role        Role   `json:"role"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Session is the process-wide authentication state. The zero value is the
// absent session.
type Session struct {
	Token string
	User  *User
}

// Present reports whether both token and user are set.
func (s Session) Present() bool {
	return s.Token != "" && s.User != nil
}

var ErrEmptyToken = errors.New("token must not be empty")

// Store reads and writes the session.
type Store interface {
	Get() Session
	Set(token string, user User) error
	Clear() error
}

type slotStore struct {
	slots Slots
}

// New returns a Store backed by the given slots.
func New(slots Slots) Store {
	return &slotStore{slots: slots}
}

// NewMemory returns a Store that lives only as long as the process.
func NewMemory() Store {
	return New(NewMemorySlots())
}

// Get returns the persisted session, or the absent session if either slot is
// missing, unreadable, or holds a user profile that does not parse.
func (s *slotStore) Get() Session {
	token, ok, err := s.slots.Read(TokenSlot)
	if err != nil || !ok || token == "" {
		return Session{}
	}
	raw, ok, err := s.slots.Read(UserSlot)
	if err != nil || !ok {
		return Session{}
	}
	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		log.Debug().Err(err).Msg("discarding unparsable user profile")
		return Session{}
	}
	return Session{Token: token, User: &user}
}

// Set persists token and user in a single write.
func (s *slotStore) Set(token string, user User) error {
	if token == "" {
		return ErrEmptyToken
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.slots.WriteAll(map[string]string{
		TokenSlot: token,
		UserSlot:  string(raw),
	})
}

// Clear removes both slots.
func (s *slotStore) Clear() error {
	return s.slots.Delete(TokenSlot, UserSlot)
}
