// Package store keeps the development API's records in memory as JSON
// documents, one collection per academy entity.
package store

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/combatwarrior/academy/internal/common/apperrors"
	"github.com/combatwarrior/academy/internal/common/uuid"
)

var (
	ErrStore          = apperrors.New("store error").SetStatusCode(http.StatusInternalServerError)
	ErrRecordNotFound = ErrStore.New("record not found").SetStatusCode(http.StatusNotFound)
	ErrInvalidRecord  = ErrStore.New("record must be a JSON object").SetStatusCode(http.StatusBadRequest)
)

// Query selects one page of a collection.
type Query struct {
	Page      int
	Limit     int
	Search    string
	FilterKey string // record path compared against Filter
	Filter    string
}

// Page is one page of records, newest first.
type Page struct {
	Items      []gjson.Result
	Page       int
	Limit      int
	TotalItems int
	TotalPages int
}

type record struct {
	id   string
	seq  int64
	body []byte
}

// Store is safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]*record
	seq         int64
	now         func() time.Time
}

func New() *Store {
	return &Store{collections: map[string]map[string]*record{}, now: time.Now}
}

// Insert stores body as a new record in collection and returns it with _id,
// createdAt and updatedAt set.
func (s *Store) Insert(collection string, body []byte) ([]byte, error) {
	if !gjson.ParseBytes(body).IsObject() {
		return nil, ErrInvalidRecord
	}
	id := uuid.New().String()
	ts := s.now().UTC().Format(time.RFC3339)
	out, err := setAll(body, map[string]any{"_id": id, "createdAt": ts, "updatedAt": ts})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.collections[collection]
	if c == nil {
		c = map[string]*record{}
		s.collections[collection] = c
	}
	s.seq++
	c[id] = &record{id: id, seq: s.seq, body: out}
	return clone(out), nil
}

// Get returns one record.
func (s *Store) Get(collection, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.collections[collection][id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return clone(r.body), nil
}

// Replace overwrites a record with body, keeping its _id and createdAt.
func (s *Store) Replace(collection, id string, body []byte) ([]byte, error) {
	if !gjson.ParseBytes(body).IsObject() {
		return nil, ErrInvalidRecord
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.collections[collection][id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	out, err := setAll(body, map[string]any{
		"_id":       id,
		"createdAt": gjson.GetBytes(r.body, "createdAt").String(),
		"updatedAt": s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}
	r.body = out
	return clone(out), nil
}

// Delete removes a record.
func (s *Store) Delete(collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[collection][id]; !ok {
		return ErrRecordNotFound
	}
	delete(s.collections[collection], id)
	return nil
}

// FindOne returns the first record whose value at path equals value,
// case-insensitively.
func (s *Store) FindOne(collection, path, value string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.sorted(collection) {
		if strings.EqualFold(gjson.GetBytes(r.body, path).String(), value) {
			return clone(r.body), nil
		}
	}
	return nil, ErrRecordNotFound
}

// List returns the page of matching records selected by q. Search matches any
// top-level string field; Filter must equal the value at FilterKey.
func (s *Store) List(collection string, q Query) Page {
	if q.Limit < 1 {
		q.Limit = 10
	}
	if q.Page < 1 {
		q.Page = 1
	}
	s.mu.RLock()
	matches := s.matching(collection, q)
	s.mu.RUnlock()

	p := Page{
		Items:      []gjson.Result{},
		Page:       q.Page,
		Limit:      q.Limit,
		TotalItems: len(matches),
		TotalPages: (len(matches) + q.Limit - 1) / q.Limit,
	}
	if p.TotalPages == 0 {
		p.TotalPages = 1
	}
	start := (q.Page - 1) * q.Limit
	for i := start; i < len(matches) && i < start+q.Limit; i++ {
		p.Items = append(p.Items, gjson.ParseBytes(matches[i].body))
	}
	return p
}

// Stats summarises a whole collection: "total" plus a count per value of each
// groupBy path.
func (s *Store) Stats(collection string, groupBy ...string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := map[string]any{"total": len(s.collections[collection])}
	for _, g := range groupBy {
		counts := map[string]int{}
		for _, r := range s.collections[collection] {
			if v := gjson.GetBytes(r.body, g).String(); v != "" {
				counts[v]++
			}
		}
		stats[g] = counts
	}
	return stats
}

// Sum adds up the numbers at amountPath over records whose value at wherePath
// equals where.
func (s *Store) Sum(collection, amountPath, wherePath, where string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total float64
	for _, r := range s.collections[collection] {
		if gjson.GetBytes(r.body, wherePath).String() == where {
			total += gjson.GetBytes(r.body, amountPath).Float()
		}
	}
	return total
}

// Count returns how many records have value at path.
func (s *Store) Count(collection, path string, value any) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.collections[collection] {
		if gjson.GetBytes(r.body, path).Value() == value {
			n++
		}
	}
	return n
}

func (s *Store) matching(collection string, q Query) []*record {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	var out []*record
	for _, r := range s.sorted(collection) {
		doc := gjson.ParseBytes(r.body)
		if q.FilterKey != "" && q.Filter != "" && !strings.EqualFold(doc.Get(q.FilterKey).String(), q.Filter) {
			continue
		}
		if search != "" && !containsText(doc, search) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// sorted returns the collection newest first. Callers hold the lock.
func (s *Store) sorted(collection string) []*record {
	c := s.collections[collection]
	out := make([]*record, 0, len(c))
	for _, r := range c {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq > out[j].seq })
	return out
}

func containsText(doc gjson.Result, needle string) bool {
	found := false
	doc.ForEach(func(k, v gjson.Result) bool {
		if k.String() == "_id" || v.Type != gjson.String {
			return true
		}
		if strings.Contains(strings.ToLower(v.String()), needle) {
			found = true
			return false
		}
		return true
	})
	return found
}

func setAll(body []byte, values map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := clone(body)
	var err error
	for _, k := range keys {
		if out, err = sjson.SetBytes(out, k, values[k]); err != nil {
			return nil, ErrStore.MsgErr("unable to update record", err)
		}
	}
	return out, nil
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
