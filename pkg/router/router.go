// Copyright 2026 © The Edict Authors
// SPDX-License-Identifier: Apache-2.0

// Package router turns a token sequence into a matched command: it picks
// the plugin for the leading verb, builds the command state through the
// grammar and inference passes, and scans the plugin's ordered command
// list for the first satisfied predicate.
//
// Routing is a pure function of the tokens, the invocation context and the
// registry snapshot. The stages are exported separately so a host can
// observe them; Route composes them.
package router

import (
	"fmt"
	"strings"

	"github.com/jllopis/edict/pkg/core"
	"github.com/jllopis/edict/pkg/descriptor"
	"github.com/jllopis/edict/pkg/errors"
	"github.com/jllopis/edict/pkg/grammar"
	"github.com/jllopis/edict/pkg/inference"
	"github.com/jllopis/edict/pkg/registry"
)

// Match is the routing outcome handed to the template resolver.
type Match struct {
	Plugin       *descriptor.Plugin
	Command      descriptor.Command
	CommandIndex int
	State        core.State
	Leftover     []string
}

// Router routes token sequences against one registry snapshot.
type Router struct {
	reg    *registry.Registry
	strict *bool
}

// Option configures a Router.
type Option func(*Router)

// WithStrict overrides every plugin's declared strictness: true turns all
// leftover tokens into errors, false downgrades them all to warnings.
func WithStrict(strict bool) Option {
	return func(r *Router) {
		r.strict = &strict
	}
}

// New builds a Router over a registry.
func New(reg *registry.Registry, opts ...Option) *Router {
	r := &Router{reg: reg}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route runs the full pipeline: verb, plugin, state, command.
func (r *Router) Route(tokens []string, ictx core.InvocationContext) (*Match, error) {
	verb, rest, candidates, err := r.ResolveVerb(tokens, ictx)
	if err != nil {
		return nil, err
	}
	plugin := r.SelectPlugin(candidates, rest)
	state, leftover, err := r.BuildState(plugin, verb, rest)
	if err != nil {
		return nil, err
	}
	cmd, idx, err := r.MatchCommand(plugin, state)
	if err != nil {
		return nil, err
	}
	return &Match{
		Plugin:       plugin,
		Command:      cmd,
		CommandIndex: idx,
		State:        state,
		Leftover:     leftover,
	}, nil
}

// ResolveVerb canonicalizes the leading token and returns the eligible
// candidate plugins in declaration order.
func (r *Router) ResolveVerb(tokens []string, ictx core.InvocationContext) (string, []string, []*descriptor.Plugin, error) {
	if len(tokens) == 0 || strings.TrimSpace(tokens[0]) == "" {
		return "", nil, nil, errors.New(errors.KindUnknownVerb, "empty input: no verb token")
	}
	verb, ok := r.reg.CanonicalVerb(tokens[0])
	if !ok {
		return "", nil, nil, errors.Newf(errors.KindUnknownVerb,
			"no plugin serves verb %q", tokens[0]).WithVerb(tokens[0])
	}
	candidates := r.reg.PluginsForVerb(verb, ictx)
	if len(candidates) == 0 {
		return "", nil, nil, errors.Newf(errors.KindUnknownVerb,
			"no eligible plugin serves verb %q in this environment", verb).WithVerb(verb)
	}
	return verb, tokens[1:], candidates, nil
}

// SelectPlugin applies the tie-break policy for verbs served by several
// plugins: the first remaining token whose syntax prefix is owned by
// exactly one candidate picks that candidate; with no such marker the
// first-declared candidate wins. The policy is deliberately this simple
// so descriptor authors can predict it.
func (r *Router) SelectPlugin(candidates []*descriptor.Plugin, rest []string) *descriptor.Plugin {
	if len(candidates) == 1 {
		return candidates[0]
	}
	for _, token := range rest {
		var owner *descriptor.Plugin
		owners := 0
		for _, p := range candidates {
			if p.OwnsPattern(token) {
				owner = p
				owners++
			}
		}
		if owners == 1 {
			return owner
		}
	}
	return candidates[0]
}

// BuildState parses the remaining tokens with the plugin's grammar and
// runs its inference rules. Leftover tokens are fatal only under strict
// mode; otherwise they come back for the caller to warn about.
func (r *Router) BuildState(plugin *descriptor.Plugin, verb string, rest []string) (core.State, []string, error) {
	state := core.NewState(verb)
	leftover := grammar.Parse(plugin.Grammar, state, rest)
	if len(leftover) > 0 && r.strictFor(plugin) {
		return nil, nil, errors.Newf(errors.KindGrammarMismatch,
			"%d token(s) not claimed by grammar: %s",
			len(leftover), strings.Join(leftover, " ")).
			WithVerb(verb).
			WithPlugin(plugin.Name).
			WithState(state)
	}
	inference.Apply(plugin.Inference, state)
	return state, leftover, nil
}

// MatchCommand scans the ordered command list and returns the first one
// whose predicate the state satisfies. Authors put specific predicates
// before general ones; declaration order is the only priority rule.
func (r *Router) MatchCommand(plugin *descriptor.Plugin, state core.State) (descriptor.Command, int, error) {
	for i, cmd := range plugin.Commands {
		if inference.Match(cmd.Match, state) {
			return cmd, i, nil
		}
	}
	return descriptor.Command{}, -1, errors.Newf(errors.KindNoMatchingCommand,
		"state satisfies none of %d command(s) of plugin %q: %s",
		len(plugin.Commands), plugin.Name, describeState(state)).
		WithVerb(state.Verb()).
		WithPlugin(plugin.Name).
		WithState(state)
}

func (r *Router) strictFor(plugin *descriptor.Plugin) bool {
	if r.strict != nil {
		return *r.strict
	}
	return plugin.Strict
}

func describeState(state core.State) string {
	parts := make([]string, 0, len(state))
	for _, field := range state.Fields() {
		parts = append(parts, fmt.Sprintf("%s=%s", field, state.Get(field)))
	}
	return strings.Join(parts, " ")
}
