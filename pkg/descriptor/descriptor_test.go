// Copyright 2026 © The Edict Authors
// SPDX-License-Identifier: Apache-2.0

package descriptor

import (
	"strings"
	"testing"

	"github.com/jllopis/edict/pkg/core"
	"github.com/jllopis/edict/pkg/errors"
)

const tmuxDescriptor = `
name: tmux
version: "1.0"
provides: [pane, window, session]
patterns: [".", ":"]
vocabulary:
  verbs: [SPLIT, GO, KILL]
  aliases: {S: SPLIT, G: GO}
grammar:
  pane:      {kind: pattern, pattern: '\.\S+'}
  window:    {kind: pattern, pattern: ':\S+'}
  direction: {kind: values, values: [left, right, up, down], transform: lower}
  target:    {kind: string}
inference:
  - when: {verb: SPLIT, direction: "!"}
    set: {direction: right}
commands:
  - match: {verb: SPLIT}
    exec: "tmux split-window {direction[left:-h -b,right:-h,up:-v -b,down:-v]}"
  - match: {verb: GO, window: "*"}
    exec: "tmux select-window -t {window}"
services:
  split: "tmux split-window {direction[left:-h -b,right:-h,default:-h]}"
selectors:
  ".?": {kind: action, exec: "tmux display-panes -d 2000"}
context:
  requires_env: [TMUX]
`

func TestParse(t *testing.T) {
	p, err := Parse([]byte(tmuxDescriptor))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Name != "tmux" {
		t.Fatalf("unexpected name: %s", p.Name)
	}
	if len(p.Provides) != 3 {
		t.Errorf("provides: got %d entries, want 3", len(p.Provides))
	}
	if len(p.Commands) != 2 {
		t.Errorf("commands: got %d entries, want 2", len(p.Commands))
	}
	if p.Selectors[".?"].Kind != SelectorAction {
		t.Errorf("selector kind: got %q, want %q", p.Selectors[".?"].Kind, SelectorAction)
	}
}

func TestGrammarKeepsFileOrder(t *testing.T) {
	p, err := Parse([]byte(tmuxDescriptor))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []string{"pane", "window", "direction", "target"}
	if len(p.Grammar) != len(want) {
		t.Fatalf("grammar: got %d fields, want %d", len(p.Grammar), len(want))
	}
	for i, name := range want {
		if p.Grammar[i].Name != name {
			t.Errorf("grammar[%d]: got %q, want %q", i, p.Grammar[i].Name, name)
		}
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	in := `
name: tmux
commandz:
  - match: {verb: SPLIT}
    exec: "tmux split-window"
`
	_, err := Parse([]byte(in))
	if err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if !errors.IsKind(err, errors.KindLoad) {
		t.Errorf("expected KindLoad, got %v", errors.KindOf(err))
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Plugin {
		return &Plugin{
			Name:     "tmux",
			Commands: []Command{{Match: map[string]string{"verb": "GO"}, Exec: "tmux select-window"}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Plugin)
		wantErr string
	}{
		{
			name:   "valid minimal",
			mutate: func(p *Plugin) {},
		},
		{
			name:    "empty name",
			mutate:  func(p *Plugin) { p.Name = " " },
			wantErr: "name is required",
		},
		{
			name:    "bad name",
			mutate:  func(p *Plugin) { p.Name = "Tmux!" },
			wantErr: "must match",
		},
		{
			name:    "multi-char pattern prefix",
			mutate:  func(p *Plugin) { p.Patterns = []string{"::"} },
			wantErr: "single character",
		},
		{
			name: "duplicate grammar field",
			mutate: func(p *Plugin) {
				p.Grammar = Grammar{
					{Name: "x", Kind: KindString},
					{Name: "x", Kind: KindString},
				}
			},
			wantErr: "declared twice",
		},
		{
			name: "values field without values",
			mutate: func(p *Plugin) {
				p.Grammar = Grammar{{Name: "d", Kind: KindValues}}
			},
			wantErr: "at least one value",
		},
		{
			name: "bad pattern",
			mutate: func(p *Plugin) {
				p.Grammar = Grammar{{Name: "w", Kind: KindPattern, Pattern: "["}}
			},
			wantErr: "invalid pattern",
		},
		{
			name: "unknown transform",
			mutate: func(p *Plugin) {
				p.Grammar = Grammar{{Name: "d", Kind: KindValues, Values: []string{"a"}, Transform: "title"}}
			},
			wantErr: "unknown transform",
		},
		{
			name:    "no commands",
			mutate:  func(p *Plugin) { p.Commands = nil },
			wantErr: "at least one command",
		},
		{
			name: "command without exec",
			mutate: func(p *Plugin) {
				p.Commands = []Command{{Match: map[string]string{"verb": "GO"}, Exec: "  "}}
			},
			wantErr: "no exec template",
		},
		{
			name: "empty inference rule",
			mutate: func(p *Plugin) {
				p.Inference = []Rule{{When: map[string]string{"verb": "GO"}}}
			},
			wantErr: "neither set nor transform",
		},
		{
			name: "bad selector kind",
			mutate: func(p *Plugin) {
				p.Selectors = map[string]Selector{"?": {Kind: "popup", Exec: "fzf"}}
			},
			wantErr: "kind must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)
			err := p.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("validate: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestFieldClaim(t *testing.T) {
	direction := Field{Name: "direction", Kind: KindValues, Values: []string{"left", "right"}, Transform: TransformLower}
	pane := Field{Name: "pane", Kind: KindPattern, Pattern: `\.\S+`}
	free := Field{Name: "target", Kind: KindString}

	if err := direction.compile(); err != nil {
		t.Fatalf("compile direction: %v", err)
	}
	if err := pane.compile(); err != nil {
		t.Fatalf("compile pane: %v", err)
	}

	tests := []struct {
		name    string
		field   Field
		token   string
		want    string
		claimed bool
	}{
		{"values lowercases before match", direction, "LEFT", "left", true},
		{"values rejects undeclared", direction, "up", "", false},
		{"pattern claims whole token", pane, ".1", ".1", true},
		{"pattern is anchored", pane, "x.1", "", false},
		{"string claims anything", free, "work", "work", true},
		{"string rejects empty", free, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, claimed := tt.field.Claim(tt.token)
			if claimed != tt.claimed {
				t.Fatalf("claimed: got %v, want %v", claimed, tt.claimed)
			}
			if got != tt.want {
				t.Errorf("value: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanonicalVerb(t *testing.T) {
	p := &Plugin{
		Vocab: Vocabulary{
			Verbs:   []string{"SPLIT", "GO"},
			Aliases: map[string]string{"S": "SPLIT"},
		},
	}

	tests := []struct {
		token string
		want  string
	}{
		{"SPLIT", "SPLIT"},
		{"S", "SPLIT"},
		{"go", "GO"},
		{"FROB", ""},
	}

	for _, tt := range tests {
		if got := p.CanonicalVerb(tt.token); got != tt.want {
			t.Errorf("CanonicalVerb(%q): got %q, want %q", tt.token, got, tt.want)
		}
	}
}

func TestEligibleIn(t *testing.T) {
	p := &Plugin{Context: Requirements{RequiresEnv: []string{"TMUX"}}}

	if p.EligibleIn(core.InvocationContext{}) {
		t.Errorf("expected plugin to be filtered without TMUX")
	}
	if !p.EligibleIn(core.InvocationContext{"TMUX": "/tmp/tmux-1000/default,1,0"}) {
		t.Errorf("expected plugin to be eligible with TMUX set")
	}
}

func TestOwnsPattern(t *testing.T) {
	p := &Plugin{Patterns: []string{".", ":"}}

	if !p.OwnsPattern(".1") {
		t.Errorf("expected ownership of .1")
	}
	if !p.OwnsPattern(":work") {
		t.Errorf("expected ownership of :work")
	}
	if p.OwnsPattern("left") {
		t.Errorf("expected no ownership of bare word")
	}
	if p.OwnsPattern("") {
		t.Errorf("expected no ownership of empty token")
	}
}
