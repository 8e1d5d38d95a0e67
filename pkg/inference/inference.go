// Copyright 2026 © The Edict Authors
// SPDX-License-Identifier: Apache-2.0

// Package inference completes and normalizes the parsed command state by
// running a plugin's ordered rewrite rules, and houses the one predicate
// evaluator the whole engine uses.
//
// Predicate language, shared by inference guards and command match maps:
//
//	field: value     exact equality
//	field: "*"       presence (set and non-empty)
//	field: "!"       absence
//	field: "^expr"   anchored regular expression
//
// A predicate map is a conjunction: every entry must hold.
package inference

import (
	"regexp"
	"strings"

	"github.com/jllopis/edict/pkg/core"
	"github.com/jllopis/edict/pkg/descriptor"
)

// Sentinel predicate values.
const (
	Present = "*"
	Absent  = "!"
)

// Match reports whether every test in pred holds against state. A nil or
// empty predicate always matches.
func Match(pred map[string]string, state core.State) bool {
	for field, test := range pred {
		if !matchOne(test, state.Get(field)) {
			return false
		}
	}
	return true
}

func matchOne(test, value string) bool {
	switch {
	case test == Present:
		return value != ""
	case test == Absent:
		return value == ""
	case strings.HasPrefix(test, "^"):
		re, err := regexp.Compile(test)
		if err != nil {
			return false
		}
		return re.MatchString(value)
	default:
		return test == value
	}
}

// Apply runs the rules once, in declaration order. Later rules observe the
// effects of earlier ones; a rule whose guard does not hold is skipped and
// never revisited. Within one rule, literal sets land before transforms so
// a transform can reference a value set by its own rule.
func Apply(rules []descriptor.Rule, state core.State) {
	for _, r := range rules {
		if !Match(r.When, state) {
			continue
		}
		for field, value := range r.Set {
			state.Set(field, value)
		}
		for field, tmpl := range r.Transform {
			state.Set(field, Expand(tmpl, state))
		}
	}
}

var fieldMarker = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Expand substitutes {field} markers in a transform template from state.
// Unset fields expand to "". This is deliberately the whole language:
// conditionals, lookups and services belong to the template resolver, not
// to state rewriting.
func Expand(tmpl string, state core.State) string {
	return fieldMarker.ReplaceAllStringFunc(tmpl, func(m string) string {
		return state.Get(m[1 : len(m)-1])
	})
}
