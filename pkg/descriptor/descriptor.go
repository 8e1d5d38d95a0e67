// Copyright 2026 © The Edict Authors
// SPDX-License-Identifier: Apache-2.0

// Package descriptor defines the data-only plugin definition consumed by the
// registry: vocabulary, grammar, inference rules, command templates, services
// and selectors. Descriptors are parsed once at startup and never mutated.
package descriptor

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/jllopis/edict/pkg/core"
)

// Field kinds accepted in a grammar.
const (
	KindString  = "string"
	KindValues  = "values"
	KindPattern = "pattern"
)

// Selector kinds.
const (
	SelectorStream = "stream"
	SelectorAction = "action"
)

// Transform names accepted on values fields.
const (
	TransformLower = "lower"
	TransformUpper = "upper"
)

var namePattern = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)

// Plugin is one parsed plugin descriptor. All slices preserve file order;
// declaration order is the only priority mechanism the engine knows.
type Plugin struct {
	Name      string              `yaml:"name"`
	Version   string              `yaml:"version"`
	Provides  []string            `yaml:"provides"`
	Requires  []string            `yaml:"requires"`
	Patterns  []string            `yaml:"patterns"`
	Strict    bool                `yaml:"strict"`
	Vocab     Vocabulary          `yaml:"vocabulary"`
	Grammar   Grammar             `yaml:"grammar"`
	Inference []Rule              `yaml:"inference"`
	Commands  []Command           `yaml:"commands"`
	Services  map[string]string   `yaml:"services"`
	Selectors map[string]Selector `yaml:"selectors"`
	Context   Requirements        `yaml:"context"`

	// Path is the source file the descriptor was loaded from, kept for
	// error messages. Empty for descriptors built in code.
	Path string `yaml:"-"`
}

// Vocabulary lists the verbs a plugin answers to, optional short aliases,
// and the object nouns its grammar may reference.
type Vocabulary struct {
	Verbs   []string          `yaml:"verbs"`
	Aliases map[string]string `yaml:"aliases"`
	Objects []string          `yaml:"objects"`
}

// Grammar is the ordered field list of a plugin. In YAML it is written as a
// mapping; document order is preserved on decode because the parser walks
// the mapping node pairwise instead of going through a Go map.
type Grammar []Field

// Field describes how one state field claims a token.
type Field struct {
	Name      string   `yaml:"-"`
	Kind      string   `yaml:"kind"`
	Values    []string `yaml:"values"`
	Pattern   string   `yaml:"pattern"`
	Transform string   `yaml:"transform"`

	re *regexp.Regexp
}

// UnmarshalYAML decodes the grammar mapping while keeping file order.
func (g *Grammar) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("grammar must be a mapping, got %s", nodeKind(node))
	}
	out := make(Grammar, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var f Field
		if err := node.Content[i+1].Decode(&f); err != nil {
			return fmt.Errorf("grammar field %q: %w", node.Content[i].Value, err)
		}
		f.Name = node.Content[i].Value
		out = append(out, f)
	}
	*g = out
	return nil
}

// Rule is one ordered inference rule: when the guard holds, set literal
// values and/or rewrite existing values through template substitution.
type Rule struct {
	When      map[string]string `yaml:"when"`
	Set       map[string]string `yaml:"set"`
	Transform map[string]string `yaml:"transform"`
}

// Command pairs a match predicate with an exec template. Predicates use
// exact values, "*" for presence and "!" for absence. Expect lists fields
// the template needs: bare names must be set by resolution time, a
// trailing "?" documents an optional field.
type Command struct {
	Match  map[string]string `yaml:"match"`
	Exec   string            `yaml:"exec"`
	Expect []string          `yaml:"expect"`
}

// Selector is a shorthand token bound to an interactive sub-resolution.
type Selector struct {
	Kind string `yaml:"kind"`
	Exec string `yaml:"exec"`
}

// Requirements filters plugin eligibility by the invocation context.
type Requirements struct {
	RequiresEnv []string `yaml:"requires_env"`
}

const maxNameLen = 64

// Validate checks structural invariants and compiles grammar patterns.
// It must be called before a descriptor reaches the registry; Load does so.
func (p *Plugin) Validate() error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return fmt.Errorf("name exceeds %d characters", maxNameLen)
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("name %q must match %s", name, namePattern.String())
	}
	for _, prefix := range p.Patterns {
		if utf8.RuneCountInString(prefix) != 1 {
			return fmt.Errorf("pattern prefix %q must be a single character", prefix)
		}
	}
	seen := make(map[string]bool, len(p.Grammar))
	for i := range p.Grammar {
		f := &p.Grammar[i]
		if f.Name == "" {
			return fmt.Errorf("grammar field %d has no name", i)
		}
		if seen[f.Name] {
			return fmt.Errorf("grammar field %q declared twice", f.Name)
		}
		seen[f.Name] = true
		if err := f.compile(); err != nil {
			return fmt.Errorf("grammar field %q: %w", f.Name, err)
		}
	}
	for i, r := range p.Inference {
		if len(r.Set) == 0 && len(r.Transform) == 0 {
			return fmt.Errorf("inference rule %d has neither set nor transform", i)
		}
		if err := checkPredicate(r.When); err != nil {
			return fmt.Errorf("inference rule %d: %w", i, err)
		}
	}
	if len(p.Commands) == 0 {
		return fmt.Errorf("at least one command is required")
	}
	for i, c := range p.Commands {
		if len(c.Match) == 0 {
			return fmt.Errorf("command %d has no match predicate", i)
		}
		if strings.TrimSpace(c.Exec) == "" {
			return fmt.Errorf("command %d has no exec template", i)
		}
		if err := checkPredicate(c.Match); err != nil {
			return fmt.Errorf("command %d: %w", i, err)
		}
		for _, name := range c.Expect {
			if strings.TrimSuffix(name, "?") == "" {
				return fmt.Errorf("command %d: empty expect entry", i)
			}
		}
	}
	for name, s := range p.Services {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("service %q has an empty template", name)
		}
	}
	for token, sel := range p.Selectors {
		if sel.Kind != SelectorStream && sel.Kind != SelectorAction {
			return fmt.Errorf("selector %q: kind must be %q or %q, got %q",
				token, SelectorStream, SelectorAction, sel.Kind)
		}
		if strings.TrimSpace(sel.Exec) == "" {
			return fmt.Errorf("selector %q has an empty exec template", token)
		}
	}
	return nil
}

// checkPredicate compiles the regex form of predicate tests so bad guards
// fail at load time instead of silently never matching.
func checkPredicate(pred map[string]string) error {
	for field, test := range pred {
		if !strings.HasPrefix(test, "^") {
			continue
		}
		if _, err := regexp.Compile(test); err != nil {
			return fmt.Errorf("guard on %q: %w", field, err)
		}
	}
	return nil
}

// compile validates the field kind and caches the anchored pattern regex.
func (f *Field) compile() error {
	switch f.Kind {
	case KindString:
	case KindValues:
		if len(f.Values) == 0 {
			return fmt.Errorf("values field needs at least one value")
		}
	case KindPattern:
		if f.Pattern == "" {
			return fmt.Errorf("pattern field needs a pattern")
		}
		re, err := regexp.Compile("^(?:" + f.Pattern + ")$")
		if err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}
		f.re = re
	case "":
		return fmt.Errorf("kind is required")
	default:
		return fmt.Errorf("unknown kind %q", f.Kind)
	}
	switch f.Transform {
	case "", TransformLower, TransformUpper:
	default:
		return fmt.Errorf("unknown transform %q", f.Transform)
	}
	return nil
}

// Claim reports whether the field accepts the token and returns the value
// to store. Values fields apply their transform before the membership test;
// pattern fields match the whole token.
func (f *Field) Claim(token string) (string, bool) {
	switch f.Kind {
	case KindString:
		if token == "" {
			return "", false
		}
		return applyTransform(token, f.Transform), true
	case KindValues:
		v := applyTransform(token, f.Transform)
		for _, allowed := range f.Values {
			if v == allowed {
				return v, true
			}
		}
		return "", false
	case KindPattern:
		if f.re != nil && f.re.MatchString(token) {
			return token, true
		}
		return "", false
	}
	return "", false
}

// HasVerb reports whether verb is in the plugin's vocabulary, after alias
// expansion by the caller.
func (p *Plugin) HasVerb(verb string) bool {
	for _, v := range p.Vocab.Verbs {
		if v == verb {
			return true
		}
	}
	return false
}

// CanonicalVerb resolves a raw token to a vocabulary verb: exact match,
// then alias table, then uppercase fold. The empty string means the token
// is not one of this plugin's verbs.
func (p *Plugin) CanonicalVerb(token string) string {
	if p.HasVerb(token) {
		return token
	}
	if alias, ok := p.Vocab.Aliases[token]; ok && p.HasVerb(alias) {
		return alias
	}
	if upper := strings.ToUpper(token); upper != token && p.HasVerb(upper) {
		return upper
	}
	return ""
}

// OwnsPattern reports whether the plugin owns the pattern prefix of token.
func (p *Plugin) OwnsPattern(token string) bool {
	if token == "" {
		return false
	}
	for _, prefix := range p.Patterns {
		if strings.HasPrefix(token, prefix) {
			return true
		}
	}
	return false
}

// EligibleIn reports whether every declared environment requirement is
// present in the invocation context.
func (p *Plugin) EligibleIn(ictx core.InvocationContext) bool {
	for _, name := range p.Context.RequiresEnv {
		if !ictx.Has(name) {
			return false
		}
	}
	return true
}

func applyTransform(v, transform string) string {
	switch transform {
	case TransformLower:
		return strings.ToLower(v)
	case TransformUpper:
		return strings.ToUpper(v)
	}
	return v
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "unknown"
}
