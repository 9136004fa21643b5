// Package resource drives the list, create, update and delete cycle of one
// back-office collection (students, courses, achievements and the rest) through
// the request gateway. A Controller owns the collection view shown to the user:
// every mutation is followed by a fresh list, failures leave previously loaded
// rows untouched, and responses that no longer match the requested page and
// filters are discarded.
package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/combatwarrior/academy/internal/common/apperrors"
	"github.com/combatwarrior/academy/internal/common/httpclient"
	"github.com/combatwarrior/academy/internal/form"
)

// DefaultPageSize is the page size used when a Descriptor sets none.
const DefaultPageSize = 10

var (
	// ErrNotConfirmed is returned when a delete was declined or no confirmation
	// was possible. No request is made.
	ErrNotConfirmed = errors.New("delete not confirmed")
	ErrNoOpenForm   = errors.New("no form is open")
	ErrClosed       = errors.New("controller is closed")
)

// Descriptor describes how one collection is addressed and how its responses
// are shaped.
type Descriptor struct {
	Path          string // endpoint, e.g. "students"
	CollectionKey string // list key under data, e.g. "students"
	ItemKey       string // single record key under data, e.g. "student"
	FilterKey     string // query parameter carrying Filters.Category, e.g. "beltLevel"
	PageSize      int
}

func (d Descriptor) pageSize() int {
	if d.PageSize <= 0 {
		return DefaultPageSize
	}
	return d.PageSize
}

// Filters narrows a list. Empty values are not sent.
type Filters struct {
	Search   string
	Category string
}

type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
	ItemsPerPage int `json:"itemsPerPage"`
}

// View is the state of a collection as shown to the user. Items reflect the last
// successful list for Filters and Pagination.CurrentPage. Stats are the server's
// aggregates over the whole collection, kept as received.
type View[T any] struct {
	Items      []T
	Stats      map[string]any
	Filters    Filters
	Pagination Pagination
	IsLoading  bool
	Message    string   // dismissable failure message, empty when none
	Errors     []string // field-level messages behind Message, verbatim
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) { return f(ctx, prompt) }

// Guard reports whether data may be loaded. A session gate satisfies it.
type Guard interface {
	Require() error
}

type query struct {
	page    int
	filters Filters
}

// Controller is safe for concurrent use; searches complete on timer goroutines.
type Controller[T any] struct {
	desc      Descriptor
	sender    httpclient.Sender
	guard     Guard
	confirmer Confirmer
	debounce  *debouncer
	onChange  func(View[T])

	mu      sync.Mutex
	view    View[T]
	desired query
	draft   *form.Draft
	closed  bool
}

// Option configures a Controller.
type Option[T any] func(*Controller[T])

// WithGuard blocks every call while guard refuses.
func WithGuard[T any](g Guard) Option[T] {
	return func(c *Controller[T]) { c.guard = g }
}

// WithConfirmer sets how deletes are confirmed. Without one, Remove always fails
// with ErrNotConfirmed.
func WithConfirmer[T any](cf Confirmer) Option[T] {
	return func(c *Controller[T]) { c.confirmer = cf }
}

// WithQuietPeriod overrides DefaultQuietPeriod.
func WithQuietPeriod[T any](d time.Duration) Option[T] {
	return func(c *Controller[T]) { c.debounce = newDebouncer(d) }
}

// OnChange registers fn to receive the view after every applied update.
func OnChange[T any](fn func(View[T])) Option[T] {
	return func(c *Controller[T]) { c.onChange = fn }
}

// New creates a controller for the collection described by desc.
func New[T any](desc Descriptor, sender httpclient.Sender, opts ...Option[T]) *Controller[T] {
	c := &Controller[T]{
		desc:    desc,
		sender:  sender,
		desired: query{page: 1},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.debounce == nil {
		c.debounce = newDebouncer(DefaultQuietPeriod)
	}
	c.view.Pagination = Pagination{CurrentPage: 1, ItemsPerPage: desc.pageSize()}
	return c
}

// Descriptor returns the collection description.
func (c *Controller[T]) Descriptor() Descriptor { return c.desc }

// View returns a copy of the current view.
func (c *Controller[T]) View() View[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller[T]) snapshot() View[T] {
	v := c.view
	v.Items = append([]T(nil), c.view.Items...)
	v.Errors = append([]string(nil), c.view.Errors...)
	return v
}

// Dismiss clears the failure message.
func (c *Controller[T]) Dismiss() {
	c.update(func(v *View[T]) {
		v.Message = ""
		v.Errors = nil
	})
}

// Close stops pending searches. Responses arriving afterwards are dropped.
func (c *Controller[T]) Close() {
	c.debounce.stop()
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// List loads page with filters. The result is applied only if page and filters
// are still the ones most recently requested when the response arrives.
func (c *Controller[T]) List(ctx context.Context, page int, filters Filters) (View[T], error) {
	if page < 1 {
		page = 1
	}
	q := query{page: page, filters: filters}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return View[T]{}, ErrClosed
	}
	c.desired = q
	c.view.IsLoading = true
	c.mu.Unlock()

	err := c.fetch(ctx, q)
	return c.View(), err
}

// Search schedules a list of page 1 with filters once input has been quiet for
// the quiet period. A later call replaces a pending one.
func (c *Controller[T]) Search(ctx context.Context, filters Filters) {
	c.mu.Lock()
	c.view.Filters = filters
	c.mu.Unlock()

	c.debounce.trigger(func() {
		if _, err := c.List(ctx, 1, filters); err != nil && !errors.Is(err, ErrClosed) {
			log.Debug().Err(err).Str("path", c.desc.Path).Msg("search failed")
		}
	})
}

// Flush runs a pending search immediately instead of waiting out the quiet
// period. It returns false when no search was pending.
func (c *Controller[T]) Flush() bool {
	return c.debounce.flush()
}

// Refresh re-runs the most recently requested list.
func (c *Controller[T]) Refresh(ctx context.Context) error {
	c.mu.Lock()
	q := c.desired
	c.mu.Unlock()
	_, err := c.List(ctx, q.page, q.filters)
	return err
}

func (c *Controller[T]) fetch(ctx context.Context, q query) error {
	if err := c.require(); err != nil {
		c.finishLoading(q)
		return err
	}
	params := map[string]string{
		"page":   strconv.Itoa(q.page),
		"limit":  strconv.Itoa(c.desc.pageSize()),
		"search": strings.TrimSpace(q.filters.Search),
	}
	if c.desc.FilterKey != "" {
		params[c.desc.FilterKey] = q.filters.Category
	}

	body, err := c.sender.Send(ctx, httpclient.Request{
		Method:       http.MethodGet,
		Path:         c.desc.Path,
		Query:        params,
		RequiresAuth: true,
	})
	if err != nil {
		return c.failList(q, err)
	}

	items, stats, pagination, err := c.parseList(body, q)
	if err != nil {
		return c.failList(q, err)
	}

	c.mu.Lock()
	if c.stale(q) {
		c.mu.Unlock()
		log.Debug().Str("path", c.desc.Path).Int("page", q.page).Msg("discarding stale list response")
		return nil
	}
	c.view.Items = items
	c.view.Stats = stats
	c.view.Filters = q.filters
	c.view.Pagination = pagination
	c.view.IsLoading = false
	c.view.Message = ""
	c.view.Errors = nil
	v := c.snapshot()
	c.mu.Unlock()

	c.notify(v)
	return nil
}

func (c *Controller[T]) parseList(body []byte, q query) ([]T, map[string]any, Pagination, error) {
	data := gjson.GetBytes(body, "data")
	list := data.Get(gjsonKey(c.desc.CollectionKey))
	if !list.Exists() && data.IsArray() {
		list = data
	}
	var items []T
	if list.Exists() {
		if err := json.Unmarshal([]byte(list.Raw), &items); err != nil {
			return nil, nil, Pagination{}, ErrUnexpectedResponse.Err(err)
		}
	}
	if items == nil {
		items = []T{}
	}

	var stats map[string]any
	if s, ok := data.Get("stats").Value().(map[string]any); ok {
		stats = s
	}

	p := Pagination{
		CurrentPage:  q.page,
		ItemsPerPage: c.desc.pageSize(),
		TotalItems:   len(items),
		TotalPages:   1,
	}
	if pg := data.Get("pagination"); pg.IsObject() {
		if err := json.Unmarshal([]byte(pg.Raw), &p); err != nil {
			return nil, nil, Pagination{}, ErrUnexpectedResponse.Err(err)
		}
	}
	return items, stats, p, nil
}

// ErrUnexpectedResponse means a 2xx body did not have the expected shape.
var ErrUnexpectedResponse = apperrors.New("unexpected response from server")

// Create validates payload, posts it and reloads the current page.
func (c *Controller[T]) Create(ctx context.Context, payload any) (T, error) {
	return c.mutate(ctx, http.MethodPost, c.desc.Path, payload)
}

// Update validates payload, replaces record id and reloads the current page.
func (c *Controller[T]) Update(ctx context.Context, id string, payload any) (T, error) {
	p, err := httpclient.ItemPath(c.desc.Path, id)
	if err != nil {
		var zero T
		return zero, c.fail(err)
	}
	return c.mutate(ctx, http.MethodPut, p, payload)
}

// Remove deletes record id after the user confirms, then reloads the current
// page. label names the record in the prompt.
func (c *Controller[T]) Remove(ctx context.Context, id, label string) error {
	if err := c.require(); err != nil {
		return err
	}
	p, err := httpclient.ItemPath(c.desc.Path, id)
	if err != nil {
		return c.fail(err)
	}
	if c.confirmer == nil {
		return ErrNotConfirmed
	}
	if label == "" {
		label = id
	}
	prompt := fmt.Sprintf("Delete %s %q? This cannot be undone.", singular(c.desc), label)
	ok, cerr := c.confirmer.Confirm(ctx, prompt)
	if cerr != nil {
		return fmt.Errorf("%w: %v", ErrNotConfirmed, cerr)
	}
	if !ok {
		return ErrNotConfirmed
	}

	_, err = c.sender.Send(ctx, httpclient.Request{
		Method:       http.MethodDelete,
		Path:         p,
		RequiresAuth: true,
	})
	if err != nil {
		return c.fail(err)
	}
	c.refreshAfterMutation(ctx)
	return nil
}

// OpenForm makes d the open create or edit form.
func (c *Controller[T]) OpenForm(d *form.Draft) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = d
}

// Form returns the open form, or nil.
func (c *Controller[T]) Form() *form.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// CancelForm discards the open form.
func (c *Controller[T]) CancelForm() {
	c.OpenForm(nil)
}

// Submit decodes the open form into payload, a pointer to a payload struct, and
// creates or updates the record. The form closes on success. On failure it stays
// open with its input unchanged.
func (c *Controller[T]) Submit(ctx context.Context, payload any) (T, error) {
	var zero T
	d := c.Form()
	if d == nil {
		return zero, ErrNoOpenForm
	}
	if err := d.Decode(payload); err != nil {
		return zero, form.ErrInvalidInput.MsgErr(err.Error(), err)
	}
	var (
		rec T
		err error
	)
	if d.IsEdit() {
		rec, err = c.Update(ctx, d.ID(), payload)
	} else {
		rec, err = c.Create(ctx, payload)
	}
	if err != nil {
		return zero, err
	}
	c.mu.Lock()
	if c.draft == d {
		c.draft = nil
	}
	c.mu.Unlock()
	return rec, nil
}

func (c *Controller[T]) mutate(ctx context.Context, method, path string, payload any) (T, error) {
	var zero T
	if err := c.require(); err != nil {
		return zero, err
	}
	body, ok := payload.([]byte)
	if !ok {
		if err := form.Validate(payload); err != nil {
			return zero, c.fail(err)
		}
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return zero, err
		}
	}

	resp, err := c.sender.Send(ctx, httpclient.Request{
		Method:       method,
		Path:         path,
		Body:         body,
		RequiresAuth: true,
	})
	if err != nil {
		return zero, c.fail(err)
	}

	var rec T
	data := gjson.GetBytes(resp, "data")
	if item := data.Get(gjsonKey(c.desc.ItemKey)); c.desc.ItemKey != "" && item.IsObject() {
		data = item
	}
	if data.IsObject() {
		if err := json.Unmarshal([]byte(data.Raw), &rec); err != nil {
			log.Debug().Err(err).Str("path", path).Msg("unable to decode mutation response")
		}
	}
	c.refreshAfterMutation(ctx)
	return rec, nil
}

// refreshAfterMutation reloads the current page. Its failures only reach the view.
func (c *Controller[T]) refreshAfterMutation(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil && !errors.Is(err, ErrClosed) {
		log.Debug().Err(err).Str("path", c.desc.Path).Msg("refresh after mutation failed")
	}
}

func (c *Controller[T]) require() error {
	if c.guard == nil {
		return nil
	}
	return c.guard.Require()
}

// fail records err as the view's message unless it is an authentication
// failure, which belongs to the session gate. err is returned unchanged.
func (c *Controller[T]) fail(err error) error {
	if errors.Is(err, httpclient.ErrUnauthenticated) {
		return err
	}
	var details []string
	var appErr apperrors.Error
	if errors.As(err, &appErr) {
		details = appErr.Details()
	}
	c.update(func(v *View[T]) {
		v.Message = err.Error()
		v.Errors = append([]string(nil), details...)
	})
	return err
}

// stale reports whether a response for q no longer belongs in the view.
// Callers hold c.mu.
func (c *Controller[T]) stale(q query) bool {
	return c.closed || c.desired != q
}

// failList handles a list request that failed. A failure for a query the view
// has moved on from is returned to its caller but leaves the view alone.
func (c *Controller[T]) failList(q query, err error) error {
	c.mu.Lock()
	stale := c.stale(q)
	c.mu.Unlock()
	if stale {
		log.Debug().Err(err).Str("path", c.desc.Path).Int("page", q.page).Msg("ignoring failure of stale list request")
		return err
	}
	c.finishLoading(q)
	return c.fail(err)
}

func (c *Controller[T]) finishLoading(q query) {
	c.mu.Lock()
	if c.desired == q {
		c.view.IsLoading = false
	}
	c.mu.Unlock()
}

func (c *Controller[T]) update(fn func(*View[T])) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	fn(&c.view)
	v := c.snapshot()
	c.mu.Unlock()
	c.notify(v)
}

func (c *Controller[T]) notify(v View[T]) {
	if c.onChange != nil {
		c.onChange(v)
	}
}

func singular(d Descriptor) string {
	if d.ItemKey != "" {
		return d.ItemKey
	}
	return strings.TrimSuffix(d.Path, "s")
}

// gjsonKey escapes characters gjson treats as path syntax.
func gjsonKey(k string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)
	return r.Replace(k)
}
