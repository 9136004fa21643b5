package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/tidwall/gjson"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"sigs.k8s.io/yaml"

	"github.com/combatwarrior/academy/internal/academy"
	"github.com/combatwarrior/academy/internal/common/apperrors"
	"github.com/combatwarrior/academy/internal/resource"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var title = cases.Title(language.English)

type output struct {
	w      io.Writer
	format string
}

func newOutput(w io.Writer, format string) (*output, error) {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return &output{w: w, format: format}, nil
	}
	return nil, fmt.Errorf("unknown output format %q; expected table, json or yaml", format)
}

func (o *output) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format JSON output: %w", err)
	}
	fmt.Fprintln(o.w, string(data))
	return nil
}

func (o *output) printYAML(v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to format YAML output: %w", err)
	}
	fmt.Fprint(o.w, string(data))
	return nil
}

// printValue writes v as JSON or YAML. Table output is the caller's job.
func (o *output) printValue(v any) error {
	if o.format == formatYAML {
		return o.printYAML(v)
	}
	return o.printJSON(v)
}

// printRecord writes one record: as JSON or YAML, or as an aligned list of
// fields for table output.
func (o *output) printRecord(raw []byte) error {
	if o.format != formatTable {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		return o.printValue(v)
	}
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	printFields(tw, "", gjson.ParseBytes(raw))
	return tw.Flush()
}

func printFields(w io.Writer, prefix string, v gjson.Result) {
	v.ForEach(func(k, child gjson.Result) bool {
		key := prefix + k.String()
		if child.IsObject() {
			printFields(w, key+".", child)
			return true
		}
		val := child.String()
		if child.IsArray() {
			var parts []string
			for _, e := range child.Array() {
				parts = append(parts, e.String())
			}
			val = strings.Join(parts, ", ")
		}
		fmt.Fprintf(w, "%s:\t%s\n", key, val)
		return true
	})
}

// printList writes a page of records with its pagination and stats.
func (o *output) printList(e academy.Entity, v resource.View[json.RawMessage]) error {
	if o.format != formatTable {
		items := make([]any, 0, len(v.Items))
		for _, raw := range v.Items {
			var item any
			if err := json.Unmarshal(raw, &item); err != nil {
				return err
			}
			items = append(items, item)
		}
		return o.printValue(map[string]any{
			e.Descriptor.CollectionKey: items,
			"pagination":               v.Pagination,
			"stats":                    v.Stats,
		})
	}

	fmt.Fprintf(o.w, "%s:\n", title.String(e.Name))
	if len(v.Items) == 0 {
		fmt.Fprintln(o.w, "No records found.")
	} else {
		tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
		headers := make([]string, len(e.Columns))
		for i, c := range e.Columns {
			headers[i] = strings.ToUpper(c.Header)
		}
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
		for _, raw := range v.Items {
			doc := gjson.ParseBytes(raw)
			cells := make([]string, len(e.Columns))
			for i, c := range e.Columns {
				cells[i] = doc.Get(c.Path).String()
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	p := v.Pagination
	fmt.Fprintf(o.w, "Page %d of %d (%d total)\n", p.CurrentPage, p.TotalPages, p.TotalItems)
	if s := formatStats(v.Stats); s != "" {
		fmt.Fprintln(o.w, s)
	}
	return nil
}

// formatStats renders server stats on one line, e.g.
// "Total: 12 | Status: active 10, inactive 2".
func formatStats(stats map[string]any) string {
	if len(stats) == 0 {
		return ""
	}
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		label := title.String(splitCamel(k))
		switch v := stats[k].(type) {
		case map[string]any:
			sub := make([]string, 0, len(v))
			for sk := range v {
				sub = append(sub, sk)
			}
			sort.Strings(sub)
			for i, sk := range sub {
				sub[i] = fmt.Sprintf("%s %v", sk, v[sk])
			}
			parts = append(parts, label+": "+strings.Join(sub, ", "))
		default:
			parts = append(parts, fmt.Sprintf("%s: %v", label, v))
		}
	}
	return strings.Join(parts, " | ")
}

// splitCamel turns "pendingAmount" into "pending amount".
func splitCamel(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// errorDetails returns the detail lines an error carries, such as per-field
// validation messages.
func errorDetails(err error) []string {
	var appErr apperrors.Error
	if errors.As(err, &appErr) {
		return appErr.Details()
	}
	return nil
}
