// Copyright 2026 © The Edict Authors
// SPDX-License-Identifier: Apache-2.0

package edicttest

import (
	"testing"

	"github.com/jllopis/edict/pkg/descriptor"
	"github.com/jllopis/edict/pkg/registry"
)

// PluginBuilder constructs descriptors in code for tests, mirroring the
// YAML shape without file fixtures.
type PluginBuilder struct {
	p *descriptor.Plugin
}

// NewPlugin starts a builder for a plugin with the given name.
func NewPlugin(name string) *PluginBuilder {
	return &PluginBuilder{p: &descriptor.Plugin{
		Name:    name,
		Version: "0.0.0-test",
	}}
}

// Verbs declares the plugin's verbs.
func (b *PluginBuilder) Verbs(verbs ...string) *PluginBuilder {
	b.p.Vocab.Verbs = append(b.p.Vocab.Verbs, verbs...)
	return b
}

// Alias declares a verb alias.
func (b *PluginBuilder) Alias(alias, verb string) *PluginBuilder {
	if b.p.Vocab.Aliases == nil {
		b.p.Vocab.Aliases = map[string]string{}
	}
	b.p.Vocab.Aliases[alias] = verb
	return b
}

// Provides declares provided service capabilities.
func (b *PluginBuilder) Provides(names ...string) *PluginBuilder {
	b.p.Provides = append(b.p.Provides, names...)
	return b
}

// Requires declares required service capabilities.
func (b *PluginBuilder) Requires(names ...string) *PluginBuilder {
	b.p.Requires = append(b.p.Requires, names...)
	return b
}

// Patterns declares owned syntax prefixes.
func (b *PluginBuilder) Patterns(prefixes ...string) *PluginBuilder {
	b.p.Patterns = append(b.p.Patterns, prefixes...)
	return b
}

// Strict enables the plugin's strict grammar mode.
func (b *PluginBuilder) Strict() *PluginBuilder {
	b.p.Strict = true
	return b
}

// StringField appends a free-text grammar field.
func (b *PluginBuilder) StringField(name string) *PluginBuilder {
	b.p.Grammar = append(b.p.Grammar, descriptor.Field{
		Name: name, Kind: descriptor.KindString,
	})
	return b
}

// ValuesField appends an enum grammar field.
func (b *PluginBuilder) ValuesField(name, transform string, values ...string) *PluginBuilder {
	b.p.Grammar = append(b.p.Grammar, descriptor.Field{
		Name: name, Kind: descriptor.KindValues,
		Values: values, Transform: transform,
	})
	return b
}

// PatternField appends a regex grammar field.
func (b *PluginBuilder) PatternField(name, pattern string) *PluginBuilder {
	b.p.Grammar = append(b.p.Grammar, descriptor.Field{
		Name: name, Kind: descriptor.KindPattern, Pattern: pattern,
	})
	return b
}

// Rule appends an inference rule with a set effect.
func (b *PluginBuilder) Rule(when, set map[string]string) *PluginBuilder {
	b.p.Inference = append(b.p.Inference, descriptor.Rule{When: when, Set: set})
	return b
}

// TransformRule appends an inference rule with a transform effect.
func (b *PluginBuilder) TransformRule(when, transform map[string]string) *PluginBuilder {
	b.p.Inference = append(b.p.Inference, descriptor.Rule{When: when, Transform: transform})
	return b
}

// Command appends a command with its match predicate and exec template.
func (b *PluginBuilder) Command(match map[string]string, exec string) *PluginBuilder {
	b.p.Commands = append(b.p.Commands, descriptor.Command{Match: match, Exec: exec})
	return b
}

// Service declares a named service template.
func (b *PluginBuilder) Service(name, tmpl string) *PluginBuilder {
	if b.p.Services == nil {
		b.p.Services = map[string]string{}
	}
	b.p.Services[name] = tmpl
	return b
}

// Selector declares a selector token.
func (b *PluginBuilder) Selector(token, kind, exec string) *PluginBuilder {
	if b.p.Selectors == nil {
		b.p.Selectors = map[string]descriptor.Selector{}
	}
	b.p.Selectors[token] = descriptor.Selector{Kind: kind, Exec: exec}
	return b
}

// RequiresEnv declares environment names the invocation context must hold.
func (b *PluginBuilder) RequiresEnv(names ...string) *PluginBuilder {
	b.p.Context.RequiresEnv = append(b.p.Context.RequiresEnv, names...)
	return b
}

// Build returns the descriptor without validating it, for tests that
// exercise validation failures.
func (b *PluginBuilder) Build() *descriptor.Plugin {
	return b.p
}

// MustBuild returns the descriptor, failing the test when it is invalid.
func (b *PluginBuilder) MustBuild(t *testing.T) *descriptor.Plugin {
	t.Helper()
	if err := b.p.Validate(); err != nil {
		t.Fatalf("plugin %q: %v", b.p.Name, err)
	}
	return b.p
}

// MustRegistry builds a registry from descriptors, failing the test on a
// load error.
func MustRegistry(t *testing.T, plugins ...*descriptor.Plugin) *registry.Registry {
	t.Helper()
	reg, err := registry.New(plugins...)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	return reg
}
