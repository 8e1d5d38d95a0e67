// Copyright 2026 © The Edict Authors
// SPDX-License-Identifier: Apache-2.0

package inference

import (
	"testing"

	"github.com/jllopis/edict/pkg/core"
	"github.com/jllopis/edict/pkg/descriptor"
)

func TestMatch(t *testing.T) {
	state := core.State{"verb": "SPLIT", "direction": "left"}

	tests := []struct {
		name string
		pred map[string]string
		want bool
	}{
		{"empty predicate always matches", nil, true},
		{"equality holds", map[string]string{"verb": "SPLIT"}, true},
		{"equality fails", map[string]string{"verb": "GO"}, false},
		{"presence holds", map[string]string{"direction": Present}, true},
		{"presence fails", map[string]string{"pane": Present}, false},
		{"absence holds", map[string]string{"pane": Absent}, true},
		{"absence fails", map[string]string{"direction": Absent}, false},
		{"regex holds", map[string]string{"direction": "^l"}, true},
		{"regex fails", map[string]string{"direction": "^r"}, false},
		{"conjunction needs every test", map[string]string{"verb": "SPLIT", "pane": Present}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.pred, state); got != tt.want {
				t.Errorf("Match(%v): got %v, want %v", tt.pred, got, tt.want)
			}
		})
	}
}

func TestApplyOrderedRules(t *testing.T) {
	rules := []descriptor.Rule{
		{
			When: map[string]string{"verb": "SPLIT", "direction": Absent},
			Set:  map[string]string{"direction": "right"},
		},
		{
			// Observes the effect of the rule above.
			When: map[string]string{"direction": "right"},
			Set:  map[string]string{"object": "PANE"},
		},
	}

	state := core.NewState("SPLIT")
	Apply(rules, state)

	if got := state.Get("direction"); got != "right" {
		t.Errorf("direction: got %q, want %q", got, "right")
	}
	if got := state.Get("object"); got != "PANE" {
		t.Errorf("object: got %q, want %q", got, "PANE")
	}
}

func TestApplySkipsWithoutError(t *testing.T) {
	rules := []descriptor.Rule{
		{
			When: map[string]string{"verb": "GO"},
			Set:  map[string]string{"object": "WINDOW"},
		},
	}

	state := core.NewState("SPLIT")
	Apply(rules, state)

	if state.Has("object") {
		t.Errorf("expected guarded rule to be skipped, got object=%q", state.Get("object"))
	}
}

func TestApplyTransform(t *testing.T) {
	// A bare "?" becomes the pane selector token once the object is known.
	rules := []descriptor.Rule{
		{
			When: map[string]string{"target": `^\?$`},
			Set:  map[string]string{"object": "PANE"},
		},
		{
			When:      map[string]string{"object": "PANE", "target": `^\?$`},
			Transform: map[string]string{"pane": ".{target}"},
		},
	}

	state := core.NewState("KILL")
	state.Set("target", "?")
	Apply(rules, state)

	if got := state.Get("pane"); got != ".?" {
		t.Errorf("pane: got %q, want %q", got, ".?")
	}
}

func TestApplySetThenTransformWithinRule(t *testing.T) {
	rules := []descriptor.Rule{
		{
			When:      map[string]string{"verb": "GO"},
			Set:       map[string]string{"scope": "window"},
			Transform: map[string]string{"target": "{scope}:{name}"},
		},
	}

	state := core.NewState("GO")
	state.Set("name", "editor")
	Apply(rules, state)

	if got := state.Get("target"); got != "window:editor" {
		t.Errorf("target: got %q, want %q", got, "window:editor")
	}
}

func TestExpand(t *testing.T) {
	state := core.State{"verb": "GO", "window": ":3"}

	tests := []struct {
		tmpl string
		want string
	}{
		{"{verb}", "GO"},
		{"-t {window}", "-t :3"},
		{"{missing}", ""},
		{"no markers", "no markers"},
	}

	for _, tt := range tests {
		if got := Expand(tt.tmpl, state); got != tt.want {
			t.Errorf("Expand(%q): got %q, want %q", tt.tmpl, got, tt.want)
		}
	}
}
