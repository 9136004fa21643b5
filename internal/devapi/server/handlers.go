package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/combatwarrior/academy/internal/academy"
	"github.com/combatwarrior/academy/internal/common/httpx"
	"github.com/combatwarrior/academy/internal/devapi/store"
	"github.com/combatwarrior/academy/internal/form"
)

const (
	maxBodyBytes = 1 << 20
	maxPageSize  = 100
)

// resolveEntity maps the {entity} URL segment to a registered collection. Only
// the exact endpoint name is accepted, not the client-side aliases.
func resolveEntity(r *http.Request) (academy.Entity, error) {
	name := chi.URLParam(r, "entity")
	e, err := academy.Lookup(name)
	if err != nil || e.Descriptor.Path != name {
		return academy.Entity{}, httpx.ErrNotFound("resource " + strconv.Quote(name))
	}
	return e, nil
}

func (s *APIServer) listRecords(r *http.Request) (*httpx.Response, error) {
	e, err := resolveEntity(r)
	if err != nil {
		return nil, err
	}
	d := e.Descriptor
	q := r.URL.Query()

	page := atoiDefault(q.Get("page"), 1)
	if page < 1 {
		page = 1
	}
	limit := atoiDefault(q.Get("limit"), s.cfg.PageSize)
	if limit < 1 {
		limit = s.cfg.PageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	query := store.Query{Page: page, Limit: limit, Search: q.Get("search")}
	if d.FilterKey != "" {
		query.FilterKey = d.FilterKey
		query.Filter = q.Get(d.FilterKey)
	}

	result := s.store.List(d.Path, query)
	raw := make([]json.RawMessage, 0, len(result.Items))
	for _, it := range result.Items {
		raw = append(raw, json.RawMessage(it.Raw))
	}
	log.Ctx(r.Context()).Debug().Str("collection", d.Path).Int("page", page).Int("total", result.TotalItems).Msg("list")

	return httpx.Success(map[string]any{
		d.CollectionKey: raw,
		"pagination": map[string]int{
			"currentPage":  result.Page,
			"totalPages":   result.TotalPages,
			"totalItems":   result.TotalItems,
			"itemsPerPage": result.Limit,
		},
		"stats": s.stats(d.Path),
	}), nil
}

// stats summarise the whole collection, not the filtered page.
func (s *APIServer) stats(collection string) map[string]any {
	rl := rulesFor(collection)
	out := s.store.Stats(collection, rl.groupBy...)
	if rl.stats != nil {
		rl.stats(s.store, collection, out)
	}
	return out
}

func (s *APIServer) getRecord(r *http.Request) (*httpx.Response, error) {
	e, err := resolveEntity(r)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.Get(e.Descriptor.Path, chi.URLParam(r, "id"))
	if err != nil {
		return nil, notFound(e, err)
	}
	return httpx.Success(map[string]any{e.Descriptor.ItemKey: json.RawMessage(rec)}), nil
}

func (s *APIServer) createRecord(r *http.Request) (*httpx.Response, error) {
	e, err := resolveEntity(r)
	if err != nil {
		return nil, err
	}
	doc, err := s.buildRecord(r, e, nil)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.Insert(e.Descriptor.Path, doc)
	if err != nil {
		return nil, err
	}
	id := gjson.GetBytes(rec, "_id").String()
	log.Ctx(r.Context()).Info().Str("collection", e.Descriptor.Path).Str("id", id).Msg("record created")
	return httpx.Created(map[string]any{e.Descriptor.ItemKey: json.RawMessage(rec)},
		strings.TrimSuffix(r.URL.Path, "/")+"/"+id), nil
}

func (s *APIServer) updateRecord(r *http.Request) (*httpx.Response, error) {
	e, err := resolveEntity(r)
	if err != nil {
		return nil, err
	}
	id := chi.URLParam(r, "id")
	existing, err := s.store.Get(e.Descriptor.Path, id)
	if err != nil {
		return nil, notFound(e, err)
	}
	doc, err := s.buildRecord(r, e, existing)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.Replace(e.Descriptor.Path, id, doc)
	if err != nil {
		return nil, notFound(e, err)
	}
	log.Ctx(r.Context()).Info().Str("collection", e.Descriptor.Path).Str("id", id).Msg("record updated")
	return httpx.Success(map[string]any{e.Descriptor.ItemKey: json.RawMessage(rec)}), nil
}

func (s *APIServer) deleteRecord(r *http.Request) (*httpx.Response, error) {
	e, err := resolveEntity(r)
	if err != nil {
		return nil, err
	}
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(e.Descriptor.Path, id); err != nil {
		return nil, notFound(e, err)
	}
	log.Ctx(r.Context()).Info().Str("collection", e.Descriptor.Path).Str("id", id).Msg("record deleted")
	return httpx.Success(map[string]any{"message": e.Descriptor.ItemKey + " deleted"}), nil
}

func (s *APIServer) verifyCertificate(r *http.Request) (*httpx.Response, error) {
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if code == "" {
		return nil, httpx.ErrInvalidRequest("verification code is required")
	}
	rec, err := s.store.FindOne("certificates", "verificationCode", code)
	if err != nil {
		return nil, httpx.ErrNotFound("certificate")
	}
	return httpx.Success(map[string]any{
		"valid":       gjson.GetBytes(rec, "status").String() != "revoked",
		"certificate": json.RawMessage(rec),
	}), nil
}

// buildRecord validates the request body against the entity's payload and
// returns the document to store. existing is nil on create.
func (s *APIServer) buildRecord(r *http.Request, e academy.Entity, existing []byte) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil || !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return nil, httpx.ErrUnableToParseReqData()
	}
	return s.prepare(e, body, existing, time.Now())
}

// prepare checks body against the entity's payload type and applies the
// collection rules. Unknown fields are dropped.
func (s *APIServer) prepare(e academy.Entity, body, existing []byte, now time.Time) ([]byte, error) {
	payload := e.NewPayload()
	if err := json.Unmarshal(body, payload); err != nil {
		return nil, httpx.ErrInvalidRequest("request body does not match the " + e.Descriptor.ItemKey + " form")
	}
	if err := form.Validate(payload); err != nil {
		return nil, err
	}
	doc, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	rl := rulesFor(e.Descriptor.Path)
	set := map[string]any{}

	if existing != nil {
		for _, k := range rl.keep {
			if v := gjson.GetBytes(existing, k); v.Exists() {
				set[k] = v.Value()
			}
		}
	} else if rl.created != nil {
		values, err := rl.created(now)
		if err != nil {
			return nil, err
		}
		for k, v := range values {
			set[k] = v
		}
	}

	// managed fields only change on update; public creates cannot set them
	var bad []string
	for k, mf := range rl.managed {
		v := gjson.GetBytes(body, k)
		if existing == nil || !v.Exists() {
			continue
		}
		if !mf.allowed(v) {
			bad = append(bad, k+" "+mf.hint)
			continue
		}
		set[k] = v.Value()
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return nil, form.ErrInvalidInput.Msg(bad[0]).WithDetails(bad...)
	}

	for k, v := range set {
		if doc, err = sjson.SetBytes(doc, k, v); err != nil {
			return nil, err
		}
	}
	if rl.defaults != nil {
		for k, v := range rl.defaults(now) {
			if gjson.GetBytes(doc, k).Exists() {
				continue
			}
			if doc, err = sjson.SetBytes(doc, k, v); err != nil {
				return nil, err
			}
		}
	}
	return doc, nil
}

func notFound(e academy.Entity, err error) error {
	if errors.Is(err, store.ErrRecordNotFound) {
		return httpx.ErrNotFound(e.Descriptor.ItemKey)
	}
	return err
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
