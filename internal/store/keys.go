package store

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// rootCursor is the cursor token used in fetch keys for root-page requests.
const rootCursor = "@root"

// IssueSearchOptions describes one logical issue search. Two option values
// are equivalent iff their canonical keys match; map insertion order and
// nil-valued filter entries never matter.
type IssueSearchOptions struct {
	Query  string
	Filter map[string]interface{}
}

// normalized trims the query, drops nil-valued filter entries and treats an
// empty resulting map as no filter.
func (o IssueSearchOptions) normalized() IssueSearchOptions {
	out := IssueSearchOptions{Query: strings.TrimSpace(o.Query)}
	if len(o.Filter) == 0 {
		return out
	}
	filter := make(map[string]interface{}, len(o.Filter))
	for key, value := range o.Filter {
		if isNil(value) {
			continue
		}
		filter[key] = value
	}
	if len(filter) > 0 {
		out.Filter = filter
	}
	return out
}

// CanonicalKey produces a deterministic string key for a (query, filter)
// pair, independent of filter map insertion order.
func CanonicalKey(query string, filter map[string]interface{}) string {
	opts := IssueSearchOptions{Query: query, Filter: filter}.normalized()
	var filterRepr string
	if opts.Filter == nil {
		filterRepr = "null"
	} else {
		filterRepr = canonicalValue(opts.Filter)
	}
	return fmt.Sprintf("query=%s|filter=%s", opts.Query, filterRepr)
}

// fetchKey extends the canonical key with a cursor token so root-page and
// continuation requests for the same search stay distinguishable.
func fetchKey(canonicalKey, cursor string) string {
	if cursor == "" {
		cursor = rootCursor
	}
	return canonicalKey + "|cursor=" + cursor
}

// canonicalValue serializes a value deterministically: nil renders as null,
// slices keep their order, map entries sort lexicographically by key, and
// primitives use their JSON form.
func canonicalValue(value interface{}) string {
	if isNil(value) {
		return "null"
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		return canonicalValue(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		parts := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			parts = append(parts, canonicalValue(rv.Index(i).Interface()))
		}
		return "[" + strings.Join(parts, ",") + "]"
	case reflect.Map:
		entries := make([][2]string, 0, rv.Len())
		for _, key := range rv.MapKeys() {
			entries = append(entries, [2]string{
				fmt.Sprintf("%v", key.Interface()),
				canonicalValue(rv.MapIndex(key).Interface()),
			})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i][0] < entries[j][0] })
		parts := make([]string, 0, len(entries))
		for _, entry := range entries {
			parts = append(parts, fmt.Sprintf("%q:%s", entry[0], entry[1]))
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(encoded)
	}
}

// isNil reports whether value is nil, including typed nil pointers, slices
// and maps hiding behind an interface.
func isNil(value interface{}) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}

// validateFilter rejects filter values that cannot be serialized for the
// remote search endpoint before any request is issued.
func validateFilter(filter map[string]interface{}) error {
	for key, value := range filter {
		if isNil(value) {
			continue
		}
		if _, err := json.Marshal(value); err != nil {
			return fmt.Errorf("%w: filter entry %q: %v", ErrInvalidFilter, key, err)
		}
	}
	return nil
}
