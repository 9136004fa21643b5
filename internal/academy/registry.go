package academy

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/combatwarrior/academy/internal/form"
	"github.com/combatwarrior/academy/internal/resource"
)

var ErrUnknownEntity = errors.New("unknown entity")

// Column is one table column, read from a record with a gjson path.
type Column struct {
	Header string
	Path   string
}

type listSpec struct {
	name     string
	required bool
}

// Entity ties a back-office collection to its endpoint, its form and its
// table layout.
type Entity struct {
	Name       string
	Aliases    []string
	Descriptor resource.Descriptor
	Columns    []Column
	lists      []listSpec
	newPayload func() any
}

// NewPayload returns a pointer to an empty payload struct for the entity.
func (e Entity) NewPayload() any { return e.newPayload() }

// NewDraft returns an empty create form with the entity's dynamic lists.
func (e Entity) NewDraft() *form.Draft {
	d := form.New()
	for _, l := range e.lists {
		d.DefineList(l.name, l.required)
	}
	return d
}

// Draft returns a form pre-populated from a JSON record. An empty id makes it a
// create form. Nested objects become dotted fields and the entity's dynamic
// lists are loaded as lists.
func (e Entity) Draft(id string, record []byte) (*form.Draft, error) {
	if len(record) > 0 && !gjson.ValidBytes(record) {
		return nil, fmt.Errorf("%s record is not valid JSON", e.Descriptor.ItemKey)
	}
	parsed := gjson.ParseBytes(record)
	fields := map[string]any{}
	isList := map[string]bool{}
	for _, l := range e.lists {
		isList[l.name] = true
	}
	parsed.ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		if isList[key] || ignoredKeys[key] {
			return true
		}
		flatten(key, v, fields)
		return true
	})

	d := form.Edit(id, fields)
	for _, l := range e.lists {
		var items []string
		parsed.Get(l.name).ForEach(func(_, v gjson.Result) bool {
			items = append(items, v.String())
			return true
		})
		d.DefineList(l.name, l.required, items...)
	}
	return d, nil
}

// server-managed keys never sent back
var ignoredKeys = map[string]bool{"_id": true, "id": true, "__v": true, "createdAt": true, "updatedAt": true}

func flatten(prefix string, v gjson.Result, out map[string]any) {
	if v.IsObject() {
		v.ForEach(func(k, child gjson.Result) bool {
			flatten(prefix+"."+k.String(), child, out)
			return true
		})
		return
	}
	out[prefix] = v.Value()
}

var registry = map[string]Entity{}

func register(e Entity) {
	registry[e.Name] = e
}

// Lookup finds an entity by name or alias, case-insensitively.
func Lookup(name string) (Entity, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if e, ok := registry[n]; ok {
		return e, nil
	}
	for _, e := range registry {
		for _, a := range e.Aliases {
			if a == n {
				return e, nil
			}
		}
	}
	return Entity{}, fmt.Errorf("%w %q; expected one of: %s", ErrUnknownEntity, name, strings.Join(Names(), ", "))
}

// Names lists the registered entity names in order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func init() {
	register(Entity{
		Name:       "students",
		Aliases:    []string{"student"},
		Descriptor: resource.Descriptor{Path: "students", CollectionKey: "students", ItemKey: "student", FilterKey: "beltLevel"},
		Columns: []Column{
			{"ID", "_id"}, {"First Name", "firstName"}, {"Last Name", "lastName"},
			{"Email", "email"}, {"Belt", "beltLevel"}, {"Status", "status"},
		},
		newPayload: func() any { return &StudentPayload{} },
	})
	register(Entity{
		Name:       "courses",
		Aliases:    []string{"course"},
		Descriptor: resource.Descriptor{Path: "courses", CollectionKey: "courses", ItemKey: "course", FilterKey: "category"},
		Columns: []Column{
			{"ID", "_id"}, {"Title", "title"}, {"Category", "category"},
			{"Price", "price"}, {"Features", "features.#"}, {"Active", "isActive"},
		},
		lists:      []listSpec{{name: "features", required: true}},
		newPayload: func() any { return &CoursePayload{} },
	})
	register(Entity{
		Name:       "achievements",
		Aliases:    []string{"achievement"},
		Descriptor: resource.Descriptor{Path: "achievements", CollectionKey: "achievements", ItemKey: "achievement", FilterKey: "category"},
		Columns: []Column{
			{"ID", "_id"}, {"Title", "title"}, {"Category", "category"},
			{"Points", "points"}, {"Criteria", "criteria.type"},
		},
		newPayload: func() any { return &AchievementPayload{} },
	})
	register(Entity{
		Name:       "badges",
		Aliases:    []string{"badge"},
		Descriptor: resource.Descriptor{Path: "badges", CollectionKey: "badges", ItemKey: "badge", FilterKey: "rarity"},
		Columns: []Column{
			{"ID", "_id"}, {"Name", "name"}, {"Rarity", "rarity"}, {"Criteria", "criteria.type"},
		},
		newPayload: func() any { return &BadgePayload{} },
	})
	register(Entity{
		Name:       "templates",
		Aliases:    []string{"template", "certificate-templates"},
		Descriptor: resource.Descriptor{Path: "certificate-templates", CollectionKey: "templates", ItemKey: "template", FilterKey: "type"},
		Columns: []Column{
			{"ID", "_id"}, {"Name", "name"}, {"Type", "type"},
			{"Fields", "fields.#"}, {"Primary Color", "styling.primaryColor"},
		},
		lists:      []listSpec{{name: "fields", required: false}},
		newPayload: func() any { return &TemplatePayload{} },
	})
	register(Entity{
		Name:       "certificates",
		Aliases:    []string{"certificate"},
		Descriptor: resource.Descriptor{Path: "certificates", CollectionKey: "certificates", ItemKey: "certificate", FilterKey: "status"},
		Columns: []Column{
			{"ID", "_id"}, {"Code", "verificationCode"}, {"Student", "studentName"},
			{"Title", "title"}, {"Status", "status"},
		},
		newPayload: func() any { return &CertificatePayload{} },
	})
	register(Entity{
		Name:       "attendance",
		Descriptor: resource.Descriptor{Path: "attendance", CollectionKey: "attendance", ItemKey: "record", FilterKey: "status"},
		Columns: []Column{
			{"ID", "_id"}, {"Student", "studentId"}, {"Date", "date"}, {"Status", "status"},
		},
		newPayload: func() any { return &AttendancePayload{} },
	})
	register(Entity{
		Name:       "belts",
		Aliases:    []string{"belt", "promotions", "belt-promotions"},
		Descriptor: resource.Descriptor{Path: "belt-promotions", CollectionKey: "promotions", ItemKey: "promotion", FilterKey: "toBelt"},
		Columns: []Column{
			{"ID", "_id"}, {"Student", "studentId"}, {"From", "fromBelt"}, {"To", "toBelt"}, {"Date", "date"},
		},
		newPayload: func() any { return &BeltPayload{} },
	})
	register(Entity{
		Name:       "fees",
		Aliases:    []string{"fee", "payments"},
		Descriptor: resource.Descriptor{Path: "fees", CollectionKey: "fees", ItemKey: "fee", FilterKey: "status"},
		Columns: []Column{
			{"ID", "_id"}, {"Student", "studentId"}, {"Amount", "amount"}, {"Due", "dueDate"}, {"Status", "status"},
		},
		newPayload: func() any { return &FeePayload{} },
	})
	register(Entity{
		Name:       "admissions",
		Aliases:    []string{"admission"},
		Descriptor: resource.Descriptor{Path: "admissions", CollectionKey: "admissions", ItemKey: "admission", FilterKey: "status"},
		Columns: []Column{
			{"ID", "_id"}, {"First Name", "firstName"}, {"Last Name", "lastName"},
			{"Course", "course"}, {"Status", "status"},
		},
		newPayload: func() any { return &AdmissionPayload{} },
	})
	register(Entity{
		Name:       "contacts",
		Aliases:    []string{"contact"},
		Descriptor: resource.Descriptor{Path: "contacts", CollectionKey: "contacts", ItemKey: "contact", FilterKey: "read"},
		Columns: []Column{
			{"ID", "_id"}, {"Name", "name"}, {"Email", "email"}, {"Subject", "subject"}, {"Read", "read"},
		},
		newPayload: func() any { return &ContactPayload{} },
	})
}
