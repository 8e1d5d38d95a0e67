// Copyright 2026 © The Edict Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"testing"

	"github.com/jllopis/edict/pkg/core"
	"github.com/jllopis/edict/pkg/descriptor"
	"github.com/jllopis/edict/pkg/errors"
	"github.com/jllopis/edict/pkg/history"
	"github.com/jllopis/edict/pkg/registry"
)

func tmuxPlugin(mutate func(*descriptor.Plugin)) *descriptor.Plugin {
	p := &descriptor.Plugin{
		Name:    "tmux",
		Version: "1.0",
		Vocab: descriptor.Vocabulary{
			Verbs:   []string{"SPLIT", "GO"},
			Aliases: map[string]string{"S": "SPLIT"},
		},
		Grammar: descriptor.Grammar{
			{Name: "direction", Kind: descriptor.KindValues,
				Values: []string{"left", "right", "up", "down"}, Transform: "lower"},
			{Name: "target", Kind: descriptor.KindString},
		},
		Inference: []descriptor.Rule{
			{When: map[string]string{"verb": "SPLIT", "direction": "!"},
				Set: map[string]string{"direction": "right"}},
		},
		Commands: []descriptor.Command{
			{Match: map[string]string{"verb": "SPLIT"},
				Exec: "tmux split-window {direction[left:-h -b,right:-h,up:-v -b,down:-v]}"},
			{Match: map[string]string{"verb": "GO", "target": "*"},
				Exec: "tmux select-pane -t {target}"},
		},
		Services: map[string]string{
			"split": "tmux split-window {direction[left:-h -b,right:-h,default:-h]}",
		},
	}
	if mutate != nil {
		mutate(p)
	}
	return p
}

func mustRegistry(t *testing.T, plugins ...*descriptor.Plugin) *registry.Registry {
	t.Helper()
	reg, err := registry.New(plugins...)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	return reg
}

func TestResolveSplit(t *testing.T) {
	e := New(mustRegistry(t, tmuxPlugin(nil)))

	res, err := e.Resolve(context.Background(), []string{"SPLIT", "left"}, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Output != "tmux split-window -h -b" {
		t.Errorf("output = %q, want %q", res.Output, "tmux split-window -h -b")
	}
	if res.Kind != KindCommand {
		t.Errorf("kind = %q, want %q", res.Kind, KindCommand)
	}
	if res.Plugin != "tmux" || res.Verb != "SPLIT" {
		t.Errorf("plugin/verb = %q/%q, want tmux/SPLIT", res.Plugin, res.Verb)
	}
	if res.ID == "" {
		t.Error("resolution has no id")
	}
}

func TestResolveInferredDefault(t *testing.T) {
	e := New(mustRegistry(t, tmuxPlugin(nil)))

	res, err := e.Resolve(context.Background(), []string{"SPLIT"}, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Output != "tmux split-window -h" {
		t.Errorf("output = %q, want the inferred right split", res.Output)
	}
}

func TestResolveUnknownVerb(t *testing.T) {
	e := New(mustRegistry(t, tmuxPlugin(nil)))

	_, err := e.Resolve(context.Background(), []string{"FLY"}, nil)
	if !errors.IsKind(err, errors.KindUnknownVerb) {
		t.Fatalf("err = %v, want kind %s", err, errors.KindUnknownVerb)
	}
}

func TestResolveLeftoverWarning(t *testing.T) {
	e := New(mustRegistry(t, tmuxPlugin(func(p *descriptor.Plugin) {
		p.Grammar = descriptor.Grammar{
			{Name: "direction", Kind: descriptor.KindValues,
				Values: []string{"left", "right"}, Transform: "lower"},
		}
	})))

	res, err := e.Resolve(context.Background(), []string{"SPLIT", "up"}, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Leftover) != 1 || res.Leftover[0] != "up" {
		t.Errorf("leftover = %v, want [up]", res.Leftover)
	}
	if len(res.Warnings) == 0 {
		t.Error("expected a leftover warning")
	}
}

func TestResolveStrictOverride(t *testing.T) {
	e := New(mustRegistry(t, tmuxPlugin(func(p *descriptor.Plugin) {
		p.Grammar = descriptor.Grammar{
			{Name: "direction", Kind: descriptor.KindValues,
				Values: []string{"left", "right"}, Transform: "lower"},
		}
	})), WithStrict(true))

	_, err := e.Resolve(context.Background(), []string{"SPLIT", "up"}, nil)
	if !errors.IsKind(err, errors.KindGrammarMismatch) {
		t.Fatalf("err = %v, want kind %s", err, errors.KindGrammarMismatch)
	}
}

func TestResolveServiceHop(t *testing.T) {
	tmux := tmuxPlugin(func(p *descriptor.Plugin) {
		p.Provides = []string{"pane"}
	})
	broot := &descriptor.Plugin{
		Name:     "broot",
		Version:  "1.0",
		Provides: []string{"file_selector"},
		Requires: []string{"pane"},
		Vocab:    descriptor.Vocabulary{Verbs: []string{"BROWSE"}},
		Grammar: descriptor.Grammar{
			{Name: "direction", Kind: descriptor.KindValues,
				Values: []string{"left", "right"}, Transform: "lower"},
		},
		Commands: []descriptor.Command{
			{Match: map[string]string{"verb": "BROWSE"}, Exec: "{split} 'broot'"},
		},
	}
	e := New(mustRegistry(t, tmux, broot))

	res, err := e.Resolve(context.Background(), []string{"BROWSE", "left"}, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Output != "tmux split-window -h -b 'broot'" {
		t.Errorf("output = %q, want the composed split", res.Output)
	}
}

func TestResolveActionSelector(t *testing.T) {
	e := New(mustRegistry(t, tmuxPlugin(func(p *descriptor.Plugin) {
		p.Grammar = append(descriptor.Grammar{
			{Name: "target", Kind: descriptor.KindPattern, Pattern: `\.\S+`},
		}, p.Grammar[:1]...)
		p.Commands = []descriptor.Command{
			{Match: map[string]string{"verb": "GO", "target": "*"},
				Exec: "tmux select-pane -t {target}"},
			{Match: map[string]string{"verb": "SPLIT"}, Exec: "tmux split-window"},
		}
		p.Selectors = map[string]descriptor.Selector{
			".?": {Kind: descriptor.SelectorAction, Exec: "tmux display-panes -d 2000"},
		}
	})))

	res, err := e.Resolve(context.Background(), []string{"GO", ".?"}, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Kind != KindAction {
		t.Errorf("kind = %q, want %q", res.Kind, KindAction)
	}
	if res.Output != "tmux display-panes -d 2000" {
		t.Errorf("output = %q, want the selector command", res.Output)
	}
}

func TestResolveStreamSelector(t *testing.T) {
	e := New(mustRegistry(t, &descriptor.Plugin{
		Name:    "files",
		Version: "1.0",
		Vocab:   descriptor.Vocabulary{Verbs: []string{"EDIT"}},
		Grammar: descriptor.Grammar{
			{Name: "file", Kind: descriptor.KindString},
		},
		Commands: []descriptor.Command{
			{Match: map[string]string{"verb": "EDIT", "file": "*"},
				Exec: "$EDITOR {file}"},
		},
		Selectors: map[string]descriptor.Selector{
			"?": {Kind: descriptor.SelectorStream, Exec: "fzf"},
		},
	}))

	res, err := e.Resolve(context.Background(), []string{"EDIT", "?"}, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Kind != KindCommand {
		t.Errorf("kind = %q, want %q", res.Kind, KindCommand)
	}
	if res.Output != "$EDITOR $( fzf )" {
		t.Errorf("output = %q, want the stream substitution", res.Output)
	}
}

func TestResolveRecordsHistory(t *testing.T) {
	store := history.NewMemoryStore()
	e := New(mustRegistry(t, tmuxPlugin(nil)),
		WithHistory(store), WithSession("test-session"))

	if _, err := e.Resolve(context.Background(), []string{"SPLIT", "left"}, nil); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, err := e.Resolve(context.Background(), []string{"FLY"}, nil); err == nil {
		t.Fatal("expected an error for FLY")
	}

	recs, err := store.Query(context.Background(), history.Filter{Session: "test-session"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2 (success and failure both recorded)", len(recs))
	}
	// Most recent first.
	if !recs[0].Failed() || recs[0].ErrorKind != string(errors.KindUnknownVerb) {
		t.Errorf("first record = %+v, want the failed FLY invocation", recs[0])
	}
	if recs[1].Failed() || recs[1].Output != "tmux split-window -h -b" {
		t.Errorf("second record = %+v, want the successful split", recs[1])
	}
}

func TestResolveDeterminism(t *testing.T) {
	e := New(mustRegistry(t, tmuxPlugin(nil)))

	var first string
	for i := 0; i < 10; i++ {
		res, err := e.Resolve(context.Background(), []string{"SPLIT", "down"}, nil)
		if err != nil {
			t.Fatalf("Resolve #%d: %v", i, err)
		}
		if i == 0 {
			first = res.Output
			continue
		}
		if res.Output != first {
			t.Fatalf("run %d output = %q, want %q", i, res.Output, first)
		}
	}
}

func TestResolveEnvironmentFiltering(t *testing.T) {
	e := New(mustRegistry(t, tmuxPlugin(func(p *descriptor.Plugin) {
		p.Context = descriptor.Requirements{RequiresEnv: []string{"TMUX"}}
	})))

	if _, err := e.Resolve(context.Background(), []string{"SPLIT"}, nil); !errors.IsKind(err, errors.KindUnknownVerb) {
		t.Fatalf("without TMUX err = %v, want kind %s", err, errors.KindUnknownVerb)
	}

	ictx := core.InvocationContext{"TMUX": "/tmp/tmux-1000/default,123,0"}
	if _, err := e.Resolve(context.Background(), []string{"SPLIT"}, ictx); err != nil {
		t.Fatalf("with TMUX err = %v, want success", err)
	}
}
