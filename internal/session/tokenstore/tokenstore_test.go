package tokenstore

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]func() Store {
	dir := t.TempDir()
	return map[string]func() Store{
		"memory": func() Store { return NewMemory() },
		"file":   func() Store { return New(NewFileSlots(filepath.Join(dir, t.Name(), "session.yaml"))) },
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	users := []User{
		{ID: "u1", Role: RoleAdmin, DisplayName: "Sensei Kim", Email: "admin@combatwarrior.com"},
		{ID: "u2", Role: RoleInstructor},
		{ID: "u3", Role: "student", DisplayName: "Üñí 名前"},
	}
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, u := range users {
				s := newStore()
				require.NoError(t, s.Set("tok-"+u.ID, u))
				got := s.Get()
				require.True(t, got.Present())
				assert.Equal(t, "tok-"+u.ID, got.Token)
				assert.Equal(t, u, *got.User)
			}
		})
	}
}

func TestClearYieldsAbsentSession(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			require.NoError(t, s.Set("tok", User{ID: "1", Role: RoleAdmin}))
			require.NoError(t, s.Clear())
			got := s.Get()
			assert.False(t, got.Present())
			assert.Empty(t, got.Token)
			assert.Nil(t, got.User)

			// clearing an empty store is fine
			require.NoError(t, s.Clear())
		})
	}
}

func TestSetRejectsEmptyToken(t *testing.T) {
	s := NewMemory()
	assert.ErrorIs(t, s.Set("", User{ID: "1"}), ErrEmptyToken)
	assert.False(t, s.Get().Present())
}

func TestGetFailsSoftOnCorruptUser(t *testing.T) {
	slots := NewMemorySlots()
	require.NoError(t, slots.WriteAll(map[string]string{
		TokenSlot: "tok",
		UserSlot:  "{not json",
	}))
	got := New(slots).Get()
	assert.False(t, got.Present())
	assert.Empty(t, got.Token)
}

func TestGetNeverReturnsTokenWithoutUser(t *testing.T) {
	slots := NewMemorySlots()
	require.NoError(t, slots.WriteAll(map[string]string{TokenSlot: "tok"}))
	got := New(slots).Get()
	assert.Empty(t, got.Token)
	assert.Nil(t, got.User)
}

func TestFileSlotsPersistAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "session.yaml")
	require.NoError(t, New(NewFileSlots(path)).Set("tok", User{ID: "7", Role: RoleInstructor}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got := New(NewFileSlots(path)).Get()
	require.True(t, got.Present())
	assert.Equal(t, "7", got.User.ID)

	require.NoError(t, New(NewFileSlots(path)).Clear())
	assert.False(t, New(NewFileSlots(path)).Get().Present())
}

func TestFileSlotsUnreadableFileIsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":::: not yaml"), 0o600))
	s := New(NewFileSlots(path))
	assert.False(t, s.Get().Present())

	require.NoError(t, s.Set("tok", User{ID: "1", Role: RoleAdmin}))
	assert.True(t, s.Get().Present())
}

func TestConcurrentSetAndClear(t *testing.T) {
	s := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Set("tok", User{ID: "1", Role: RoleAdmin})
		}()
		go func() {
			defer wg.Done()
			_ = s.Clear()
		}()
	}
	wg.Wait()

	got := s.Get()
	assert.Equal(t, got.Token != "", got.User != nil)
}

func TestRolePrivileged(t *testing.T) {
	assert.True(t, RoleAdmin.Privileged())
	assert.True(t, RoleInstructor.Privileged())
	assert.False(t, Role("student").Privileged())
	assert.False(t, Role("").Privileged())
}
