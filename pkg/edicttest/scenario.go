// Copyright 2026 © The Edict Authors
// SPDX-License-Identifier: Apache-2.0

// Package edicttest provides utilities for testing descriptor sets and
// resolution behavior.
//
// This package includes:
//   - Scenario definitions for declarative resolution testing
//   - Descriptor builders for in-code plugin construction
//   - String matchers and assertion helpers
//
// Example usage:
//
//	edicttest.NewScenario("split left").
//	    WithDescriptors(tmux).
//	    WithTokens("SPLIT", "left").
//	    ExpectOutput(edicttest.Equals("tmux split-window -h -b")).
//	    Run(t)
package edicttest

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jllopis/edict/pkg/core"
	"github.com/jllopis/edict/pkg/descriptor"
	"github.com/jllopis/edict/pkg/engine"
	"github.com/jllopis/edict/pkg/errors"
	"github.com/jllopis/edict/pkg/registry"
)

// Scenario defines one declarative resolution test: a descriptor set, a
// token sequence, an invocation context and a list of expectations.
type Scenario struct {
	name         string
	descriptors  []*descriptor.Plugin
	tokens       []string
	ictx         core.InvocationContext
	opts         []engine.Option
	expectations []Expectation
}

// Expectation is a condition verified against a scenario's result.
type Expectation interface {
	// Check verifies the expectation against the result.
	Check(result *Result) error
	// Description returns a human-readable description of the expectation.
	Description() string
}

// Result is the outcome of running a scenario.
type Result struct {
	Resolution *engine.Resolution
	Err        error
	Duration   time.Duration
}

// Output returns the resolved command string, or "" on failure.
func (r *Result) Output() string {
	if r.Resolution == nil {
		return ""
	}
	return r.Resolution.Output
}

// NewScenario creates a scenario with the given name.
func NewScenario(name string) *Scenario {
	return &Scenario{name: name}
}

// WithDescriptors sets the plugin set the registry is built from.
func (s *Scenario) WithDescriptors(plugins ...*descriptor.Plugin) *Scenario {
	s.descriptors = append(s.descriptors, plugins...)
	return s
}

// WithTokens sets the input token sequence.
func (s *Scenario) WithTokens(tokens ...string) *Scenario {
	s.tokens = tokens
	return s
}

// WithContext sets the invocation context.
func (s *Scenario) WithContext(ictx core.InvocationContext) *Scenario {
	s.ictx = ictx
	return s
}

// WithEnv adds one environment signal to the invocation context.
func (s *Scenario) WithEnv(name, value string) *Scenario {
	if s.ictx == nil {
		s.ictx = core.InvocationContext{}
	}
	s.ictx[name] = value
	return s
}

// WithEngineOptions forwards options to the engine under test.
func (s *Scenario) WithEngineOptions(opts ...engine.Option) *Scenario {
	s.opts = append(s.opts, opts...)
	return s
}

// Expect adds an expectation.
func (s *Scenario) Expect(exp Expectation) *Scenario {
	s.expectations = append(s.expectations, exp)
	return s
}

// ExpectOutput expects the resolved output to satisfy the matcher.
func (s *Scenario) ExpectOutput(matcher StringMatcher) *Scenario {
	return s.Expect(&outputExpectation{matcher: matcher})
}

// ExpectKind expects the resolution kind ("command" or "action").
func (s *Scenario) ExpectKind(kind string) *Scenario {
	return s.Expect(&kindExpectation{kind: kind})
}

// ExpectNoError expects the resolution to succeed.
func (s *Scenario) ExpectNoError() *Scenario {
	return s.Expect(&noErrorExpectation{})
}

// ExpectErrorKind expects a typed error of the given kind.
func (s *Scenario) ExpectErrorKind(kind errors.ErrorKind) *Scenario {
	return s.Expect(&errorKindExpectation{kind: kind})
}

// ExpectField expects the final state to hold field=value.
func (s *Scenario) ExpectField(field, value string) *Scenario {
	return s.Expect(&fieldExpectation{field: field, value: value})
}

// ExpectLeftover expects the given tokens to stay unclaimed.
func (s *Scenario) ExpectLeftover(tokens ...string) *Scenario {
	return s.Expect(&leftoverExpectation{tokens: tokens})
}

// Run builds a registry and engine from the scenario's descriptors,
// resolves the tokens and checks every expectation. It returns the result
// for additional ad-hoc checks.
func (s *Scenario) Run(t *testing.T) *Result {
	t.Helper()

	reg, err := registry.New(s.descriptors...)
	if err != nil {
		t.Fatalf("scenario %q: registry.New: %v", s.name, err)
	}
	eng := engine.New(reg, s.opts...)

	start := time.Now()
	res, err := eng.Resolve(context.Background(), s.tokens, s.ictx)
	result := &Result{
		Resolution: res,
		Err:        err,
		Duration:   time.Since(start),
	}

	for _, exp := range s.expectations {
		if err := exp.Check(result); err != nil {
			t.Errorf("scenario %q: expectation %q failed: %v",
				s.name, exp.Description(), err)
		}
	}
	return result
}

// StringMatcher defines how to match strings in expectations.
type StringMatcher interface {
	Match(s string) bool
	Description() string
}

// Contains returns a matcher that checks if the string contains the substring.
func Contains(substr string) StringMatcher {
	return &containsMatcher{substr: substr}
}

// Equals returns a matcher that checks exact string equality.
func Equals(expected string) StringMatcher {
	return &equalsMatcher{expected: expected}
}

// Regex returns a matcher that checks against a regular expression.
func Regex(pattern string) StringMatcher {
	return &regexMatcher{pattern: pattern}
}

// HasPrefix returns a matcher that checks if the string has the given prefix.
func HasPrefix(prefix string) StringMatcher {
	return &prefixMatcher{prefix: prefix}
}

// HasSuffix returns a matcher that checks if the string has the given suffix.
func HasSuffix(suffix string) StringMatcher {
	return &suffixMatcher{suffix: suffix}
}

type containsMatcher struct {
	substr string
}

func (m *containsMatcher) Match(s string) bool {
	return strings.Contains(s, m.substr)
}

func (m *containsMatcher) Description() string {
	return fmt.Sprintf("contains %q", m.substr)
}

type equalsMatcher struct {
	expected string
}

func (m *equalsMatcher) Match(s string) bool {
	return s == m.expected
}

func (m *equalsMatcher) Description() string {
	return fmt.Sprintf("equals %q", m.expected)
}

type regexMatcher struct {
	pattern string
}

func (m *regexMatcher) Match(s string) bool {
	re, err := regexp.Compile(m.pattern)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

func (m *regexMatcher) Description() string {
	return fmt.Sprintf("matches regex %q", m.pattern)
}

type prefixMatcher struct {
	prefix string
}

func (m *prefixMatcher) Match(s string) bool {
	return strings.HasPrefix(s, m.prefix)
}

func (m *prefixMatcher) Description() string {
	return fmt.Sprintf("has prefix %q", m.prefix)
}

type suffixMatcher struct {
	suffix string
}

func (m *suffixMatcher) Match(s string) bool {
	return strings.HasSuffix(s, m.suffix)
}

func (m *suffixMatcher) Description() string {
	return fmt.Sprintf("has suffix %q", m.suffix)
}

// Expectation implementations

type outputExpectation struct {
	matcher StringMatcher
}

func (e *outputExpectation) Check(r *Result) error {
	if r.Err != nil {
		return fmt.Errorf("resolution failed: %v", r.Err)
	}
	if !e.matcher.Match(r.Output()) {
		return fmt.Errorf("output %q does not match: %s", r.Output(), e.matcher.Description())
	}
	return nil
}

func (e *outputExpectation) Description() string {
	return fmt.Sprintf("output %s", e.matcher.Description())
}

type kindExpectation struct {
	kind string
}

func (e *kindExpectation) Check(r *Result) error {
	if r.Resolution == nil {
		return fmt.Errorf("no resolution (error: %v)", r.Err)
	}
	if r.Resolution.Kind != e.kind {
		return fmt.Errorf("kind %q, want %q", r.Resolution.Kind, e.kind)
	}
	return nil
}

func (e *kindExpectation) Description() string {
	return fmt.Sprintf("resolution kind %q", e.kind)
}

type noErrorExpectation struct{}

func (e *noErrorExpectation) Check(r *Result) error {
	if r.Err != nil {
		return fmt.Errorf("expected no error, got: %v", r.Err)
	}
	return nil
}

func (e *noErrorExpectation) Description() string {
	return "no error"
}

type errorKindExpectation struct {
	kind errors.ErrorKind
}

func (e *errorKindExpectation) Check(r *Result) error {
	if r.Err == nil {
		return fmt.Errorf("expected error of kind %s, got output %q", e.kind, r.Output())
	}
	if got := errors.KindOf(r.Err); got != e.kind {
		return fmt.Errorf("error kind %s, want %s (error: %v)", got, e.kind, r.Err)
	}
	return nil
}

func (e *errorKindExpectation) Description() string {
	return fmt.Sprintf("error kind %s", e.kind)
}

type fieldExpectation struct {
	field, value string
}

func (e *fieldExpectation) Check(r *Result) error {
	if r.Resolution == nil {
		return fmt.Errorf("no resolution (error: %v)", r.Err)
	}
	if got := r.Resolution.State[e.field]; got != e.value {
		return fmt.Errorf("state[%s] = %q, want %q", e.field, got, e.value)
	}
	return nil
}

func (e *fieldExpectation) Description() string {
	return fmt.Sprintf("state field %s=%s", e.field, e.value)
}

type leftoverExpectation struct {
	tokens []string
}

func (e *leftoverExpectation) Check(r *Result) error {
	if r.Resolution == nil {
		return fmt.Errorf("no resolution (error: %v)", r.Err)
	}
	got := r.Resolution.Leftover
	if len(got) != len(e.tokens) {
		return fmt.Errorf("leftover %v, want %v", got, e.tokens)
	}
	for i := range got {
		if got[i] != e.tokens[i] {
			return fmt.Errorf("leftover %v, want %v", got, e.tokens)
		}
	}
	return nil
}

func (e *leftoverExpectation) Description() string {
	return fmt.Sprintf("leftover tokens %v", e.tokens)
}
