package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newTestStore() *Store {
	s := New()
	t0 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return t0 }
	return s
}

func TestInsertGetReplaceDelete(t *testing.T) {
	s := newTestStore()
	out, err := s.Insert("students", []byte(`{"firstName":"Lee","beltLevel":"white"}`))
	require.NoError(t, err)
	id := gjson.GetBytes(out, "_id").String()
	require.NotEmpty(t, id)
	assert.Equal(t, "2025-03-10T09:00:00Z", gjson.GetBytes(out, "createdAt").String())

	got, err := s.Get("students", id)
	require.NoError(t, err)
	assert.JSONEq(t, string(out), string(got))

	s.now = func() time.Time { return time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC) }
	rep, err := s.Replace("students", id, []byte(`{"firstName":"Lee","beltLevel":"yellow","_id":"spoofed"}`))
	require.NoError(t, err)
	assert.Equal(t, id, gjson.GetBytes(rep, "_id").String())
	assert.Equal(t, "yellow", gjson.GetBytes(rep, "beltLevel").String())
	assert.Equal(t, "2025-03-10T09:00:00Z", gjson.GetBytes(rep, "createdAt").String())
	assert.Equal(t, "2025-04-01T00:00:00Z", gjson.GetBytes(rep, "updatedAt").String())

	require.NoError(t, s.Delete("students", id))
	_, err = s.Get("students", id)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.ErrorIs(t, s.Delete("students", id), ErrRecordNotFound)
	_, err = s.Replace("students", id, []byte(`{}`))
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestInsertRejectsNonObject(t *testing.T) {
	s := newTestStore()
	_, err := s.Insert("students", []byte(`[1,2]`))
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestListPagesNewestFirst(t *testing.T) {
	s := newTestStore()
	for i := 1; i <= 23; i++ {
		_, err := s.Insert("students", []byte(fmt.Sprintf(`{"n":%d,"firstName":"S%02d"}`, i, i)))
		require.NoError(t, err)
	}

	p := s.List("students", Query{Page: 1, Limit: 10})
	assert.Equal(t, 23, p.TotalItems)
	assert.Equal(t, 3, p.TotalPages)
	require.Len(t, p.Items, 10)
	assert.Equal(t, int64(23), p.Items[0].Get("n").Int())

	p = s.List("students", Query{Page: 3, Limit: 10})
	require.Len(t, p.Items, 3)
	assert.Equal(t, int64(1), p.Items[2].Get("n").Int())

	p = s.List("students", Query{Page: 9, Limit: 10})
	assert.Empty(t, p.Items)
	assert.Equal(t, 23, p.TotalItems)

	p = s.List("empty", Query{})
	assert.Equal(t, 1, p.TotalPages)
	assert.Equal(t, 10, p.Limit)
	assert.NotNil(t, p.Items)
}

func TestListSearchAndFilter(t *testing.T) {
	s := newTestStore()
	for _, body := range []string{
		`{"title":"Karate Basics","category":"karate"}`,
		`{"title":"Advanced Kata","category":"karate"}`,
		`{"title":"Kids Taekwondo","category":"taekwondo","description":"fun karate games"}`,
		`{"title":"Judo Fundamentals","category":"judo","level":2}`,
	} {
		_, err := s.Insert("courses", []byte(body))
		require.NoError(t, err)
	}

	// any top-level string field counts, so the description match is included
	p := s.List("courses", Query{Search: "KARATE"})
	assert.Equal(t, 3, p.TotalItems)
	for _, it := range p.Items {
		assert.NotEqual(t, "Judo Fundamentals", it.Get("title").String())
	}

	p = s.List("courses", Query{Search: "fundamentals"})
	require.Equal(t, 1, p.TotalItems)
	assert.Equal(t, "judo", p.Items[0].Get("category").String())

	p = s.List("courses", Query{Search: "karate", FilterKey: "category", Filter: "karate"})
	require.Equal(t, 1, p.TotalItems)
	assert.Equal(t, "Karate Basics", p.Items[0].Get("title").String())

	p = s.List("courses", Query{FilterKey: "category", Filter: "taekwondo"})
	assert.Equal(t, 1, p.TotalItems)
}

func TestStatsSumCount(t *testing.T) {
	s := newTestStore()
	for _, body := range []string{
		`{"amount":100,"status":"paid"}`,
		`{"amount":50.5,"status":"paid"}`,
		`{"amount":80,"status":"pending"}`,
	} {
		_, err := s.Insert("fees", []byte(body))
		require.NoError(t, err)
	}
	stats := s.Stats("fees", "status")
	assert.Equal(t, 3, stats["total"])
	assert.Equal(t, map[string]int{"paid": 2, "pending": 1}, stats["status"])
	assert.InDelta(t, 150.5, s.Sum("fees", "amount", "status", "paid"), 0.001)

	_, _ = s.Insert("contacts", []byte(`{"read":false}`))
	_, _ = s.Insert("contacts", []byte(`{"read":true}`))
	_, _ = s.Insert("contacts", []byte(`{"read":false}`))
	assert.Equal(t, 2, s.Count("contacts", "read", false))
}

func TestFindOne(t *testing.T) {
	s := newTestStore()
	_, err := s.Insert("certificates", []byte(`{"verificationCode":"CWA-2025-0001","status":"active"}`))
	require.NoError(t, err)

	got, err := s.FindOne("certificates", "verificationCode", "cwa-2025-0001")
	require.NoError(t, err)
	assert.Equal(t, "active", gjson.GetBytes(got, "status").String())

	_, err = s.FindOne("certificates", "verificationCode", "nope")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}
