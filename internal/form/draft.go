// Package form holds the editable state behind a create or edit form: scalar
// fields, dynamic string lists, and the checks that run before anything is sent.
package form

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	ErrUnknownList     = errors.New("no such list")
	ErrIndexOutOfRange = errors.New("list index out of range")
	// ErrLastEntry is returned when removing the only entry of a required list.
	// The list is left unchanged.
	ErrLastEntry = errors.New("at least one entry is required")
)

type dynamicList struct {
	required bool
	items    []string
}

// Draft is the in-progress input of one form. A Draft belongs to the view that
// opened it and is not safe for concurrent use.
//
// Field names may be dotted ("criteria.points", "styling.primaryColor"); the
// payload nests them accordingly.
type Draft struct {
	id     string
	fields map[string]any
	lists  map[string]*dynamicList
}

// New returns an empty draft for a create form.
func New() *Draft {
	return &Draft{
		fields: make(map[string]any),
		lists:  make(map[string]*dynamicList),
	}
}

// Edit returns a draft for the record id, pre-populated with fields.
func Edit(id string, fields map[string]any) *Draft {
	d := New()
	d.id = id
	for k, v := range fields {
		d.fields[k] = v
	}
	return d
}

// ID is the record being edited, or "" for a create form.
func (d *Draft) ID() string { return d.id }

// IsEdit reports whether the draft edits an existing record.
func (d *Draft) IsEdit() bool { return d.id != "" }

// SetField replaces a single field and leaves every other field as it was.
func (d *Draft) SetField(name string, value any) {
	d.fields[name] = value
}

// Field returns the value of a field.
func (d *Draft) Field(name string) (any, bool) {
	v, ok := d.fields[name]
	return v, ok
}

// DefineList declares a dynamic list. A required list always keeps at least one
// entry, so it starts with a single blank entry when no initial items are given.
func (d *Draft) DefineList(name string, required bool, initial ...string) {
	items := append([]string(nil), initial...)
	if required && len(items) == 0 {
		items = []string{""}
	}
	d.lists[name] = &dynamicList{required: required, items: items}
}

// List returns a copy of the entries of a list.
func (d *Draft) List(name string) []string {
	l, ok := d.lists[name]
	if !ok {
		return nil
	}
	return append([]string(nil), l.items...)
}

// Append adds item to the end of a list.
func (d *Draft) Append(name, item string) error {
	l, ok := d.lists[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownList, name)
	}
	l.items = append(l.items, item)
	return nil
}

// UpdateItem replaces the entry at index.
func (d *Draft) UpdateItem(name string, index int, value string) error {
	l, err := d.entry(name, index)
	if err != nil {
		return err
	}
	l.items[index] = value
	return nil
}

// Remove deletes the entry at index, unless that would empty a required list.
func (d *Draft) Remove(name string, index int) error {
	l, err := d.entry(name, index)
	if err != nil {
		return err
	}
	if l.required && len(l.items) == 1 {
		return ErrLastEntry
	}
	l.items = append(l.items[:index], l.items[index+1:]...)
	return nil
}

func (d *Draft) entry(name string, index int) (*dynamicList, error) {
	l, ok := d.lists[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownList, name)
	}
	if index < 0 || index >= len(l.items) {
		return nil, fmt.Errorf("%w: %s[%d]", ErrIndexOutOfRange, name, index)
	}
	return l, nil
}

// Payload renders the draft as a JSON object. Blank list entries are dropped.
func (d *Draft) Payload() ([]byte, error) {
	out := []byte(`{}`)
	var err error

	names := make([]string, 0, len(d.fields))
	for name := range d.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if out, err = sjson.SetBytes(out, name, d.fields[name]); err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
	}

	names = names[:0]
	for name := range d.lists {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		items := make([]string, 0, len(d.lists[name].items))
		for _, item := range d.lists[name].items {
			if strings.TrimSpace(item) != "" {
				items = append(items, item)
			}
		}
		if out, err = sjson.SetBytes(out, name, items); err != nil {
			return nil, fmt.Errorf("list %s: %w", name, err)
		}
	}
	return out, nil
}

// Decode maps the payload onto out, a pointer to a struct with json tags.
// String input is converted to the target field type where possible.
func (d *Draft) Decode(out any) error {
	payload, err := d.Payload()
	if err != nil {
		return err
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(gjson.ParseBytes(payload).Value())
}
