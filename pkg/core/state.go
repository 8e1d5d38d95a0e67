// Package core holds the small shared types of the resolution pipeline:
// the per-invocation command state and the invocation context captured from
// the caller's environment.
package core

import (
	"maps"
	"slices"
)

// FieldVerb is the state field every invocation carries: the leading
// keyword that selected the plugin.
const FieldVerb = "verb"

// State is the field-value mapping built per invocation by parsing and
// inference, and consumed by command matching and template resolution.
//
// An empty value and a missing field are equivalent everywhere: presence
// tests, match predicates, and conditional markers all treat "" as absent.
// State is call-local and never shared across invocations.
type State map[string]string

// NewState returns a state holding only the verb.
func NewState(verb string) State {
	return State{FieldVerb: verb}
}

// Get returns the value for field, or "" when unset.
func (s State) Get(field string) string {
	return s[field]
}

// Set stores value under field. Setting "" clears the field.
func (s State) Set(field, value string) {
	if value == "" {
		delete(s, field)
		return
	}
	s[field] = value
}

// Has reports whether field is set to a non-empty value.
func (s State) Has(field string) bool {
	return s[field] != ""
}

// Verb returns the verb field.
func (s State) Verb() string {
	return s[FieldVerb]
}

// Clone returns an independent copy of the state.
func (s State) Clone() State {
	return maps.Clone(s)
}

// Fields returns the set field names in sorted order, for deterministic
// logging and error snapshots.
func (s State) Fields() []string {
	return slices.Sorted(maps.Keys(s))
}
