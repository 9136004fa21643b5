package server

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/combatwarrior/academy/internal/common"
	"github.com/combatwarrior/academy/internal/devapi/store"
)

// managedField is a field the server owns but accepts from the body when the
// value is allowed.
type managedField struct {
	allowed func(v gjson.Result) bool
	hint    string
}

// rules are the per-collection behaviours on top of plain record storage.
type rules struct {
	publicCreate bool
	defaults     func(now time.Time) map[string]any          // set on create and update when absent
	created      func(now time.Time) (map[string]any, error) // set on create only
	keep         []string                                    // carried over from the stored record on update
	managed      map[string]managedField
	groupBy      []string
	stats        func(st *store.Store, collection string, out map[string]any)
}

func oneOf(values ...string) managedField {
	return managedField{
		allowed: func(v gjson.Result) bool {
			for _, x := range values {
				if v.Type == gjson.String && v.String() == x {
					return true
				}
			}
			return false
		},
		hint: "must be one of: " + strings.Join(values, ", "),
	}
}

var boolean = managedField{
	allowed: func(v gjson.Result) bool { return v.IsBool() },
	hint:    "must be true or false",
}

func ts(now time.Time) string { return now.UTC().Format(time.RFC3339) }

var collectionRules = map[string]rules{
	"students": {
		defaults: func(time.Time) map[string]any { return map[string]any{"status": "active"} },
		created:  func(now time.Time) (map[string]any, error) { return map[string]any{"joinDate": ts(now)}, nil },
		keep:     []string{"joinDate"},
		groupBy:  []string{"beltLevel", "status"},
	},
	"courses": {
		groupBy: []string{"category"},
		stats: func(st *store.Store, c string, out map[string]any) {
			out["active"] = st.Count(c, "isActive", true)
		},
	},
	"achievements": {groupBy: []string{"category"}},
	"badges":       {groupBy: []string{"rarity"}},
	"certificate-templates": {
		groupBy: []string{"type"},
	},
	"certificates": {
		defaults: func(time.Time) map[string]any { return map[string]any{"status": "active"} },
		created: func(now time.Time) (map[string]any, error) {
			code, err := common.CertificateCode(now.Year())
			if err != nil {
				return nil, err
			}
			return map[string]any{"issueDate": ts(now), "verificationCode": code}, nil
		},
		keep:    []string{"issueDate", "verificationCode"},
		groupBy: []string{"status"},
	},
	"attendance": {groupBy: []string{"status"}},
	"belt-promotions": {
		groupBy: []string{"toBelt"},
	},
	"fees": {
		groupBy: []string{"status"},
		stats: func(st *store.Store, c string, out map[string]any) {
			out["revenue"] = st.Sum(c, "amount", "status", "paid")
			out["pendingAmount"] = st.Sum(c, "amount", "status", "pending")
			out["overdueAmount"] = st.Sum(c, "amount", "status", "overdue")
		},
	},
	"admissions": {
		publicCreate: true,
		defaults:     func(time.Time) map[string]any { return map[string]any{"status": "pending"} },
		created:      func(now time.Time) (map[string]any, error) { return map[string]any{"submittedAt": ts(now)}, nil },
		keep:         []string{"submittedAt", "status"},
		managed:      map[string]managedField{"status": oneOf("pending", "approved", "rejected")},
		groupBy:      []string{"status"},
	},
	"contacts": {
		publicCreate: true,
		defaults:     func(time.Time) map[string]any { return map[string]any{"read": false} },
		keep:         []string{"read"},
		managed:      map[string]managedField{"read": boolean},
		stats: func(st *store.Store, c string, out map[string]any) {
			out["unread"] = st.Count(c, "read", false)
		},
	},
}

func rulesFor(collection string) rules {
	return collectionRules[collection]
}
