// Package diff implements pure change-detection for normalized entities
// (spec §4.5.3): given an old and new value for each comparable field, it
// reports whether anything changed and what, so the Transform Engine can
// skip writes that would be no-ops.
package diff

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Result is the outcome of comparing one entity's old and new field values.
type Result struct {
	HasChanges    bool
	ChangedFields []string
	OldValues     map[string]any
	NewValues     map[string]any
}

func newResult() *Result {
	return &Result{
		OldValues: make(map[string]any),
		NewValues: make(map[string]any),
	}
}

func (r *Result) add(field string, oldVal, newVal any) {
	r.ChangedFields = append(r.ChangedFields, field)
	r.OldValues[field] = oldVal
	r.NewValues[field] = newVal
	r.HasChanges = true
}

// fieldComparer compares one field's old/new value and appends to result
// when they differ. Each concrete comparer below normalizes types before
// calling this.
type fieldComparer struct {
	result *Result
}

// compareString compares two string values with null-empty normalization
// (spec §4.5.3: "null-empty-string normalization").
func (c *fieldComparer) compareString(field string, oldVal, newVal *string) {
	o, n := normalizeStringPtr(oldVal), normalizeStringPtr(newVal)
	if o != n {
		c.result.add(field, o, n)
	}
}

// compareValue compares two scalar values (int, bool, float) for plain
// inequality.
func compareValue[T comparable](c *fieldComparer, field string, oldVal, newVal T) {
	if oldVal != newVal {
		c.result.add(field, oldVal, newVal)
	}
}

// compareTime compares two optional timestamps by ISO-string equality,
// ignoring sub-millisecond noise (spec §4.5.3: "Timestamp fields compare by
// ISO-string equality (ignoring sub-second noise beyond ms)").
func (c *fieldComparer) compareTime(field string, oldVal, newVal *time.Time) {
	o, n := formatTimePtr(oldVal), formatTimePtr(newVal)
	if o != n {
		c.result.add(field, o, n)
	}
}

// compareJSON compares two opaque values by canonical JSON stringification
// (spec §4.5.3: "JSON/opaque fields ... are compared by canonical
// stringification").
func (c *fieldComparer) compareJSON(field string, oldVal, newVal any) {
	o, n := canonicalJSON(oldVal), canonicalJSON(newVal)
	if o != n {
		c.result.add(field, oldVal, newVal)
	}
}

func normalizeStringPtr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// canonicalJSON stringifies a value with map keys sorted, so that equal
// structures produce equal strings regardless of encounter order.
func canonicalJSON(v any) string {
	if v == nil {
		return "null"
	}
	normalized := canonicalizeValue(v)
	b, err := json.Marshal(normalized)
	if err != nil {
		return ""
	}
	return string(b)
}

// canonicalizeValue recursively sorts map keys via the order-preserving
// map[string]any JSON marshaler: Go's encoding/json already sorts map keys,
// so round-tripping through marshal/unmarshal is sufficient for maps; slices
// are normalized element-wise.
func canonicalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = canonicalizeValue(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = canonicalizeValue(elem)
		}
		return out
	default:
		return val
	}
}

// sortedKeys returns a map's keys in sorted order. Nothing in the package
// calls it; ChangedFields is built in comparison order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// normalizeTagSet lower-cases, trims and sorts a tag list. Nothing in the
// package calls it; tag comparison goes through compareJSON.
func normalizeTagSet(tags []string) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = strings.ToLower(strings.TrimSpace(t))
	}
	sort.Strings(out)
	return out
}
