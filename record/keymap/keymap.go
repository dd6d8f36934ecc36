// Package keymap maps the long field names used in the application record
// to fixed short aliases, to shrink the encoded payload. The alias table is
// versioned: the version used at encode time travels with the stored data,
// so a future table change can still decode old payloads with the table
// they were written with.
//
// Rewriting is schema-aware. Only keys at known field positions are
// aliased; dynamic keys (account, classroom and achievement IDs, skill
// names) and unknown keys pass through unchanged, so Expand is an exact
// inverse of Shorten even when an ID happens to spell like an alias.
package keymap

import (
	"fmt"
)

// CurrentVersion is the alias table version used for new encodes.
const CurrentVersion = 1

// Table holds the alias schema for one version.
type Table struct {
	version int
	root    *node
}

// field is one aliased key together with the schema of its value.
type field struct {
	alias string
	child *node
}

// node describes one level of the record tree. A node with fields is an
// object whose listed keys are rewritten. A node with elem is a
// collection: map keys are dynamic IDs and stay untouched, only the
// values (or slice elements) descend. A nil node is opaque, nothing
// below it is rewritten.
type node struct {
	fields  map[string]*field
	byAlias map[string]string // short -> long, filled by build
	elem    *node
}

// schemaV1 is the original alias schema. Never change an existing
// version; add a new one and bump CurrentVersion instead.
func schemaV1() *node {
	account := &node{fields: map[string]*field{
		"accountId":   {alias: "aid"},
		"displayName": {alias: "dn"},
		"role":        {alias: "rl"},
		"createdAt":   {alias: "ct"},
	}}
	classroom := &node{fields: map[string]*field{
		"classroomId":      {alias: "cid"},
		"classroomName":    {alias: "cn"},
		"ownerAccountId":   {alias: "own"},
		"memberAccountIds": {alias: "mb"},
	}}
	// skillBreakdown keys are skill names, so its value stays opaque
	progress := &node{fields: map[string]*field{
		"progressId":     {alias: "pid"},
		"accountId":      {alias: "aid"},
		"moduleId":       {alias: "mid"},
		"lessonId":       {alias: "lid"},
		"score":          {alias: "sc"},
		"attempts":       {alias: "at"},
		"skillBreakdown": {alias: "sk"},
		"masteryLevel":   {alias: "ml"},
		"updatedAt":      {alias: "ut"},
	}}
	achievement := &node{fields: map[string]*field{
		"achievementId":   {alias: "awi"},
		"achievementCode": {alias: "awc"},
		"accountId":       {alias: "aid"},
		"earnedAt":        {alias: "et"},
	}}
	return &node{fields: map[string]*field{
		"accounts":        {alias: "ac", child: &node{elem: account}},
		"classrooms":      {alias: "cl", child: &node{elem: classroom}},
		"progress":        {alias: "pr", child: &node{elem: progress}},
		"achievements":    {alias: "aw", child: &node{elem: achievement}},
		"countersCleared": {alias: "cc"},
		"clearedAt":       {alias: "ca"},
	}}
}

var schemas = map[int]func() *node{
	1: schemaV1,
}

// ForVersion returns the alias table for a given version.
func ForVersion(version int) (*Table, error) {
	mk, exists := schemas[version]
	if !exists {
		return nil, fmt.Errorf("keymap: unknown alias table version %d", version)
	}
	root := mk()
	root.build()
	return &Table{version: version, root: root}, nil
}

// Current returns the alias table for CurrentVersion.
func Current() *Table {
	t, err := ForVersion(CurrentVersion)
	if err != nil {
		panic(err) // CurrentVersion must always exist
	}
	return t
}

// Version returns the table version.
func (t *Table) Version() int {
	return t.version
}

// build fills the reverse lookup maps. Schemas are static constants, so
// a duplicate alias within one level means a broken edit.
func (n *node) build() {
	if n == nil {
		return
	}
	if n.fields != nil {
		n.byAlias = make(map[string]string, len(n.fields))
		for long, f := range n.fields {
			if other, dup := n.byAlias[f.alias]; dup {
				panic(fmt.Sprintf("keymap: duplicate alias %q for %q and %q",
					f.alias, other, long))
			}
			n.byAlias[f.alias] = long
			f.child.build()
		}
	}
	n.elem.build()
}

// Shorten replaces the known long field names with their short aliases.
// Dynamic and unknown keys, and all values, pass through unchanged.
func (t *Table) Shorten(v any) any {
	return rewrite(v, t.root, false)
}

// Expand is the exact inverse of Shorten for payloads written with this
// table.
func (t *Table) Expand(v any) any {
	return rewrite(v, t.root, true)
}

func rewrite(v any, n *node, expand bool) any {
	if n == nil {
		return v
	}
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		if n.elem != nil {
			// ID-keyed collection: keys stay, values descend
			for k, child := range val {
				out[k] = rewrite(child, n.elem, expand)
			}
			return out
		}
		for k, child := range val {
			name := k
			if expand {
				if long, known := n.byAlias[k]; known {
					name = long
				}
			}
			f, known := n.fields[name]
			if !known {
				out[k] = child
				continue
			}
			if expand {
				out[name] = rewrite(child, f.child, true)
			} else {
				out[f.alias] = rewrite(child, f.child, false)
			}
		}
		return out
	case []any:
		if n.elem == nil {
			return v
		}
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = rewrite(child, n.elem, expand)
		}
		return out
	default:
		return v
	}
}
