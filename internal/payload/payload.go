// Package payload models inbound webhook bodies as an opaque value tree and
// resolves logical field names against it via best-effort alias matching.
// Upstream workflows rename and re-nest fields release to release, so
// precision is deliberately traded for coverage here.
package payload

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
)

// ErrMalformed is returned when a body cannot be parsed into an object.
var ErrMalformed = errors.New("body is not a JSON object")

// Tree is a parsed request payload: string keys mapping to strings, numbers,
// booleans, nulls, nested objects, or arrays.
type Tree map[string]interface{}

// Parse decodes a request body into a Tree. Bodies that are JSON-encoded
// strings containing an object are unwrapped and parsed again, since some
// upstream workflows double-encode their payloads.
func Parse(data []byte) (Tree, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, ErrMalformed
	}

	if text, ok := raw.(string); ok {
		if err := json.Unmarshal([]byte(text), &raw); err != nil {
			return nil, ErrMalformed
		}
	}

	tree, ok := raw.(map[string]interface{})
	if !ok {
		return nil, ErrMalformed
	}
	return tree, nil
}

type entry struct {
	path       string
	normalized string
	depth      int
	value      interface{}
}

// Resolver resolves logical field names against the flattened payload.
type Resolver struct {
	root    Tree
	entries []entry
}

// NewResolver flattens the tree into dotted key paths. Nested objects are
// descended; arrays are kept as opaque values.
func NewResolver(tree Tree) *Resolver {
	r := &Resolver{root: tree}
	flatten("", 0, tree, &r.entries)

	// Map iteration order is random; prefer shallow paths, then lexicographic,
	// so repeated requests resolve identically.
	sort.Slice(r.entries, func(i, j int) bool {
		if r.entries[i].depth != r.entries[j].depth {
			return r.entries[i].depth < r.entries[j].depth
		}
		return r.entries[i].path < r.entries[j].path
	})

	return r
}

func flatten(prefix string, depth int, node map[string]interface{}, out *[]entry) {
	for key, value := range node {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		if child, ok := value.(map[string]interface{}); ok {
			flatten(path, depth+1, child, out)
			continue
		}

		*out = append(*out, entry{
			path:       path,
			normalized: Normalize(path),
			depth:      depth,
			value:      value,
		})
	}
}

// Normalize strips whitespace, underscores, and hyphens and lower-cases the
// input, so "Job Type", "job_type", and "job-type" all compare equal.
func Normalize(s string) string {
	s = strings.ToLower(s)
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
}

// Resolve tries each alias in priority order: first an exact top-level key
// lookup, then a fuzzy pass over every flattened path accepting a normalized
// whole-path match or a last-segment suffix match. The first usable value
// wins. Suffix matching can latch onto an unrelated nested field that merely
// ends in the alias; that looseness is intentional.
func (r *Resolver) Resolve(aliases ...string) (interface{}, bool) {
	for _, alias := range aliases {
		if value, ok := r.root[alias]; ok && usable(value) {
			return value, true
		}

		normalized := Normalize(alias)
		for _, e := range r.entries {
			if e.normalized != normalized && !strings.HasSuffix(e.normalized, "."+normalized) {
				continue
			}
			if usable(e.value) {
				return e.value, true
			}
		}
	}
	return nil, false
}

// usable rejects nulls and empty strings so resolution keeps looking for a
// real value instead of stopping at a blank form field.
func usable(value interface{}) bool {
	if value == nil {
		return false
	}
	if text, ok := value.(string); ok {
		return strings.TrimSpace(text) != ""
	}
	return true
}
