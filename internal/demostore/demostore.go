// Package demostore keeps public admissions and contact messages on the local
// machine when the back office runs in demo mode, without an API server.
package demostore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	jsonitor "github.com/json-iterator/go"

	"github.com/combatwarrior/academy/internal/academy"
	"github.com/combatwarrior/academy/internal/common/uuid"
	"github.com/combatwarrior/academy/internal/form"
)

var json = jsonitor.ConfigCompatibleWithStandardLibrary

// Admission statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidStatus = errors.New("status must be one of pending, approved, rejected")
)

type contents struct {
	Admissions []academy.Admission `json:"admissions"`
	Contacts   []academy.Contact   `json:"contacts"`
}

// Store is a JSON file holding demo admissions and contacts. Every change is
// written through a temporary file and a rename.
type Store struct {
	mu   sync.Mutex
	path string
	data contents
	now  func() time.Time
}

// Open loads the store at path, or starts empty if the file does not exist.
func Open(path string) (*Store, error) {
	s := &Store{path: path, now: time.Now}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.data); err != nil {
			return nil, fmt.Errorf("demo store %s is corrupt: %w", path, err)
		}
	}
	return s, nil
}

func (s *Store) save() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".demostore-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// AddAdmission checks p and records it as pending.
func (s *Store) AddAdmission(p academy.AdmissionPayload) (academy.Admission, error) {
	if err := form.Validate(p); err != nil {
		return academy.Admission{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := academy.Admission{
		ID:          uuid.New().String(),
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Email:       p.Email,
		Phone:       p.Phone,
		DateOfBirth: p.DateOfBirth,
		Course:      p.Course,
		Experience:  p.Experience,
		Message:     p.Message,
		Status:      StatusPending,
		SubmittedAt: s.now().UTC(),
	}
	s.data.Admissions = append(s.data.Admissions, a)
	if err := s.save(); err != nil {
		s.data.Admissions = s.data.Admissions[:len(s.data.Admissions)-1]
		return academy.Admission{}, err
	}
	return a, nil
}

// Admissions returns admissions newest first, optionally only those with status.
func (s *Store) Admissions(status string) []academy.Admission {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]academy.Admission, 0, len(s.data.Admissions))
	for _, a := range s.data.Admissions {
		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out
}

func (s *Store) SetAdmissionStatus(id, status string) error {
	switch status {
	case StatusPending, StatusApproved, StatusRejected:
	default:
		return ErrInvalidStatus
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.Admissions {
		if s.data.Admissions[i].ID == id {
			prev := s.data.Admissions[i].Status
			s.data.Admissions[i].Status = status
			if err := s.save(); err != nil {
				s.data.Admissions[i].Status = prev
				return err
			}
			return nil
		}
	}
	return ErrNotFound
}

func (s *Store) DeleteAdmission(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.Admissions {
		if s.data.Admissions[i].ID == id {
			prev := s.data.Admissions
			s.data.Admissions = append(append([]academy.Admission(nil), prev[:i]...), prev[i+1:]...)
			if err := s.save(); err != nil {
				s.data.Admissions = prev
				return err
			}
			return nil
		}
	}
	return ErrNotFound
}

// AddContact checks p and records it as unread.
func (s *Store) AddContact(p academy.ContactPayload) (academy.Contact, error) {
	if err := form.Validate(p); err != nil {
		return academy.Contact{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := academy.Contact{
		ID:        uuid.New().String(),
		Name:      p.Name,
		Email:     p.Email,
		Phone:     p.Phone,
		Subject:   p.Subject,
		Message:   p.Message,
		CreatedAt: s.now().UTC(),
	}
	s.data.Contacts = append(s.data.Contacts, c)
	if err := s.save(); err != nil {
		s.data.Contacts = s.data.Contacts[:len(s.data.Contacts)-1]
		return academy.Contact{}, err
	}
	return c, nil
}

// Contacts returns messages newest first.
func (s *Store) Contacts(unreadOnly bool) []academy.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]academy.Contact, 0, len(s.data.Contacts))
	for _, c := range s.data.Contacts {
		if !unreadOnly || !c.Read {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *Store) MarkContactRead(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.Contacts {
		if s.data.Contacts[i].ID == id {
			if s.data.Contacts[i].Read {
				return nil
			}
			s.data.Contacts[i].Read = true
			if err := s.save(); err != nil {
				s.data.Contacts[i].Read = false
				return err
			}
			return nil
		}
	}
	return ErrNotFound
}

func (s *Store) DeleteContact(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.Contacts {
		if s.data.Contacts[i].ID == id {
			prev := s.data.Contacts
			s.data.Contacts = append(append([]academy.Contact(nil), prev[:i]...), prev[i+1:]...)
			if err := s.save(); err != nil {
				s.data.Contacts = prev
				return err
			}
			return nil
		}
	}
	return ErrNotFound
}
