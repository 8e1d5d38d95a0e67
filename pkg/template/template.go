// Copyright 2026 © The Edict Authors
// SPDX-License-Identifier: Apache-2.0

// Package template expands a matched command's exec template against the
// command state and the registry's service templates.
//
// Marker grammar, composable by nesting:
//
//	{name}                      state value, else service splice, else ""
//	{?field:body}               body re-resolved when field is set, else ""
//	{field[k1:v1,...,default:d]} value keyed by the field's current value
//	{serviceName}               one automatic hop into a provider's template
//	{outer_{inner}}             innermost first, then the composed name
//
// Resolution runs in passes: each pass substitutes what it can and the
// result is re-scanned, which is how composed names settle one level at a
// time. A service marker resolves the provider's template first, anchored
// at the provider so its internal "_" services stay reachable, and splices
// the finished text. Self- or mutually-referencing templates cannot
// settle; the fixed pass and hop bounds turn them into a TEMPLATE_CYCLE
// error instead of a hang.
package template

import (
	"strings"

	"github.com/jllopis/edict/pkg/core"
	"github.com/jllopis/edict/pkg/descriptor"
	"github.com/jllopis/edict/pkg/errors"
	"github.com/jllopis/edict/pkg/registry"
)

// DefaultMaxPasses bounds substitution re-scans per resolution.
const DefaultMaxPasses = 5

// Resolver expands templates for one invocation: one plugin, one state,
// one registry snapshot. It is pure; two resolvers over the same inputs
// produce identical outputs.
type Resolver struct {
	reg       *registry.Registry
	plugin    *descriptor.Plugin
	state     core.State
	maxPasses int
	depth     int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMaxPasses overrides the substitution pass bound.
func WithMaxPasses(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxPasses = n
		}
	}
}

// New builds a Resolver. plugin is the command's owner and anchors
// same-plugin service lookup, including internal "_" services.
func New(reg *registry.Registry, plugin *descriptor.Plugin, state core.State, opts ...Option) *Resolver {
	r := &Resolver{
		reg:       reg,
		plugin:    plugin,
		state:     state,
		maxPasses: DefaultMaxPasses,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveCommand checks the command's expected fields, then resolves its
// exec template. Expected fields carry no "?" suffix and must be set in
// state; "?"-suffixed entries are documentation and never enforced.
func (r *Resolver) ResolveCommand(cmd descriptor.Command) (string, error) {
	for _, name := range cmd.Expect {
		if strings.HasSuffix(name, "?") {
			continue
		}
		if !r.state.Has(name) {
			return "", errors.Newf(errors.KindUnresolvedField,
				"required field %q is not set", name).
				WithPlugin(r.pluginName()).
				WithState(r.state)
		}
	}
	return r.Resolve(cmd.Exec)
}

// Resolve expands one template to its final string. It either returns a
// fully substituted result or an error; partially substituted text is
// never returned.
func (r *Resolver) Resolve(tmpl string) (string, error) {
	s := tmpl
	for pass := 0; pass < r.maxPasses; pass++ {
		out, err := r.pass(s)
		if err != nil {
			return "", err
		}
		if out == s {
			if marker, found := firstMarker(out); found {
				return "", errors.Newf(errors.KindTemplateCycle,
					"template settled with unresolved marker {%s}", marker).
					WithPlugin(r.pluginName()).
					WithState(r.state).
					WithContext("template", tmpl)
			}
			return normalize(out), nil
		}
		s = out
	}
	return "", errors.Newf(errors.KindTemplateCycle,
		"template did not settle within %d passes", r.maxPasses).
		WithPlugin(r.pluginName()).
		WithState(r.state).
		WithContext("template", tmpl)
}

// pass substitutes every top-level marker once, left to right. Nested
// markers are peeled one level per pass: the inner content is resolved and
// the outer marker re-emitted for the next pass to look up.
func (r *Resolver) pass(s string) (string, error) {
	var out strings.Builder
	out.Grow(len(s))

	for i := 0; i < len(s); {
		if s[i] != '{' {
			out.WriteByte(s[i])
			i++
			continue
		}
		end, ok := matchBrace(s, i)
		if !ok {
			// Unbalanced brace: literal text, not a marker.
			out.WriteByte(s[i])
			i++
			continue
		}
		content := s[i+1 : end]
		sub, err := r.substitute(content)
		if err != nil {
			return "", err
		}
		out.WriteString(sub)
		i = end + 1
	}
	return out.String(), nil
}

// substitute resolves one marker's content to its replacement text.
func (r *Resolver) substitute(content string) (string, error) {
	switch {
	case strings.HasPrefix(content, "?"):
		return r.conditional(content[1:])
	case strings.Contains(content, "{"):
		// Composed name: resolve the inner markers and re-emit the
		// marker so the next pass can look the final name up.
		inner, err := r.pass(content)
		if err != nil {
			return "", err
		}
		return "{" + inner + "}", nil
	case strings.HasSuffix(content, "]"):
		if open := strings.Index(content, "["); open > 0 {
			return r.lookup(content[:open], content[open+1:len(content)-1])
		}
		return r.simple(content)
	default:
		return r.simple(content)
	}
}

// conditional handles {?field:body}: the raw body is spliced for later
// passes only when the field is set. Markers inside the body of an absent
// field are never evaluated, so a guarded lookup cannot fail.
func (r *Resolver) conditional(content string) (string, error) {
	field, body, ok := strings.Cut(content, ":")
	if !ok || !r.state.Has(field) {
		return "", nil
	}
	return body, nil
}

// lookup handles {field[k1:v1,...]}: the field's current value picks an
// entry; the "default" key catches everything else.
func (r *Resolver) lookup(field, entries string) (string, error) {
	key := r.state.Get(field)
	def := ""
	hasDefault := false
	for _, entry := range strings.Split(entries, ",") {
		k, v, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if k == "default" {
			def, hasDefault = v, true
			continue
		}
		if k == key && key != "" {
			return v, nil
		}
	}
	if hasDefault {
		return def, nil
	}
	return "", errors.Newf(errors.KindLookup,
		"no entry for %q in lookup on field %q", key, field).
		WithPlugin(r.pluginName()).
		WithState(r.state)
}

// simple handles {name}: the state value when set, else a service splice,
// else the empty string for an unset optional field. The owning plugin's
// services are consulted first so internal "_" names stay private to it.
func (r *Resolver) simple(name string) (string, error) {
	if r.state.Has(name) {
		return r.state.Get(name), nil
	}
	if r.plugin != nil {
		if tmpl, ok := r.plugin.Services[name]; ok {
			return r.splice(name, tmpl, r.plugin)
		}
	}
	if r.reg != nil {
		if tmpl, owner, ok := r.reg.ServiceTemplate(name); ok {
			return r.splice(name, tmpl, owner)
		}
	}
	return "", nil
}

// splice resolves a service template anchored at its owner before
// splicing, so the owner's state-independent wiring (internal services,
// its own lookups) behaves the same no matter which plugin referenced it.
// Each splice consumes one depth unit; mutually recursive services run
// out of depth instead of stack.
func (r *Resolver) splice(name, tmpl string, owner *descriptor.Plugin) (string, error) {
	if r.depth >= r.maxPasses {
		return "", errors.Newf(errors.KindTemplateCycle,
			"service chain through %q exceeded %d hops", name, r.maxPasses).
			WithPlugin(r.pluginName()).
			WithState(r.state)
	}
	sub := &Resolver{
		reg:       r.reg,
		plugin:    owner,
		state:     r.state,
		maxPasses: r.maxPasses,
		depth:     r.depth + 1,
	}
	return sub.Resolve(tmpl)
}

func (r *Resolver) pluginName() string {
	if r.plugin == nil {
		return ""
	}
	return r.plugin.Name
}

// matchBrace returns the index of the brace closing the one at open.
func matchBrace(s string, open int) (int, bool) {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// firstMarker returns the content of the first balanced marker in s.
func firstMarker(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		if end, ok := matchBrace(s, i); ok {
			return s[i+1 : end], true
		}
	}
	return "", false
}

// normalize collapses space runs introduced by empty substitutions and
// trims the ends, leaving quoted segments untouched.
func normalize(s string) string {
	var out strings.Builder
	out.Grow(len(s))
	var quote byte
	space := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			out.WriteByte(c)
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			if space && out.Len() > 0 {
				out.WriteByte(' ')
			}
			space = false
			quote = c
			out.WriteByte(c)
		case c == ' ' || c == '\t':
			space = true
		default:
			if space && out.Len() > 0 {
				out.WriteByte(' ')
			}
			space = false
			out.WriteByte(c)
		}
	}
	return out.String()
}
