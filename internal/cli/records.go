package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Record files are YAML or JSON, one record per "---" document. Before parsing,
// {{ .ENV.NAME }} placeholders are filled from the environment and from a .env
// file in the working directory, so shared files can leave out secrets and
// per-site values.

var missingEnvKey = regexp.MustCompile(`map has no entry for key "(.*?)"`)

// loadRecords reads filename, or data when given, and returns each record as
// JSON in file order.
func loadRecords(filename string, data ...[]byte) ([][]byte, error) {
	var raw []byte
	if len(data) > 0 {
		raw = data[0]
	} else {
		var err error
		if raw, err = os.ReadFile(filename); err != nil {
			return nil, fmt.Errorf("failed to read file: %v", err)
		}
	}

	// YAML forbids tabs in indentation; editors add them anyway
	raw = bytes.ReplaceAll(raw, []byte("\t"), []byte("    "))

	raw, err := expandEnv(raw)
	if err != nil {
		return nil, err
	}
	docs, err := splitDocuments(raw)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%s holds no records", filename)
	}

	records := make([][]byte, len(docs))
	for i, doc := range docs {
		if records[i], err = json.Marshal(doc); err != nil {
			return nil, fmt.Errorf("record %d: unable to convert to JSON: %v", i+1, err)
		}
	}
	return records, nil
}

// expandEnv fills {{ .ENV.NAME }} placeholders. Shell variables win over .env.
func expandEnv(raw []byte) ([]byte, error) {
	env, err := godotenv.Read(".env")
	if err != nil {
		env = map[string]string{}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}

	tmpl, err := template.New("record").Option("missingkey=error").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("template error: %w", err)
	}
	var out bytes.Buffer
	if err := tmpl.Execute(&out, struct{ ENV map[string]string }{env}); err != nil {
		if m := missingEnvKey.FindStringSubmatch(err.Error()); len(m) == 2 {
			return nil, fmt.Errorf("missing environment variable: %s (set it in your shell or .env file)", m[1])
		}
		return nil, fmt.Errorf("template error: %w", err)
	}
	return out.Bytes(), nil
}

// splitDocuments decodes every non-empty document. Each one must be a mapping.
func splitDocuments(raw []byte) ([]map[string]any, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	var docs []map[string]any
	for n := 1; ; n++ {
		var doc any
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode YAML: %w", err)
		}
		if doc == nil {
			continue
		}
		v, err := normalize(doc)
		if err != nil {
			return nil, fmt.Errorf("record %d: %v", n, err)
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %d: expected a mapping of fields, got %T", n, v)
		}
		if len(m) > 0 {
			docs = append(docs, m)
		}
	}
}

// normalize makes a decoded YAML value JSON-ready: map keys must be strings
// and timestamps become the date strings the API exchanges.
func normalize(v any) (any, error) {
	switch v := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string map key: %v (type %T)", k, k)
			}
			nv, err := normalize(val)
			if err != nil {
				return nil, err
			}
			out[key] = nv
		}
		return out, nil
	case map[string]any:
		for k, val := range v {
			nv, err := normalize(val)
			if err != nil {
				return nil, err
			}
			v[k] = nv
		}
		return v, nil
	case []any:
		for i, val := range v {
			nv, err := normalize(val)
			if err != nil {
				return nil, err
			}
			v[i] = nv
		}
		return v, nil
	case time.Time:
		if v.Equal(v.Truncate(24 * time.Hour)) {
			return v.Format(time.DateOnly), nil
		}
		return v.Format(time.RFC3339), nil
	default:
		return v, nil
	}
}
