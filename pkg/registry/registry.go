// Copyright 2026 © The Edict Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry holds the immutable plugin set built once at startup.
// It answers three questions: which plugins serve a verb, which plugin
// provides a named service template, and which plugin owns a syntax prefix.
// All answers honor declaration order; nothing is mutated after New, so a
// Registry may be shared across concurrent invocations without locking.
package registry

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jllopis/edict/pkg/core"
	"github.com/jllopis/edict/pkg/descriptor"
	"github.com/jllopis/edict/pkg/errors"
)

// Registry is the read-only plugin collection plus its lookup indexes.
type Registry struct {
	plugins     []*descriptor.Plugin
	byName      map[string]*descriptor.Plugin
	byVerb      map[string][]*descriptor.Plugin
	services    map[string]service
	patterns    map[string]*descriptor.Plugin
	unsatisfied []string
}

type service struct {
	template string
	owner    *descriptor.Plugin
}

// New builds a Registry from validated descriptors. It fails with a
// LOAD_ERROR on the first malformed descriptor, duplicate plugin name,
// conflicting pattern ownership, or a plugin that requires a service it
// itself provides. No partial registry is ever returned.
func New(plugins ...*descriptor.Plugin) (*Registry, error) {
	r := &Registry{
		byName:   make(map[string]*descriptor.Plugin, len(plugins)),
		byVerb:   make(map[string][]*descriptor.Plugin),
		services: make(map[string]service),
		patterns: make(map[string]*descriptor.Plugin),
	}

	for _, p := range plugins {
		if p == nil {
			return nil, errors.New(errors.KindLoad, "nil descriptor")
		}
		if err := p.Validate(); err != nil {
			return nil, errors.Wrap(errors.KindLoad, "invalid descriptor", err).
				WithPlugin(p.Name)
		}
		if _, dup := r.byName[p.Name]; dup {
			return nil, errors.Newf(errors.KindLoad, "plugin %q declared twice", p.Name).
				WithPlugin(p.Name)
		}
		if cycle := selfCycle(p); cycle != "" {
			return nil, errors.Newf(errors.KindLoad,
				"plugin %q both provides and requires service %q", p.Name, cycle).
				WithPlugin(p.Name)
		}
		for _, prefix := range p.Patterns {
			if owner, taken := r.patterns[prefix]; taken {
				return nil, errors.Newf(errors.KindLoad,
					"pattern %q owned by both %q and %q", prefix, owner.Name, p.Name).
					WithPlugin(p.Name)
			}
			r.patterns[prefix] = p
		}
		for _, verb := range p.Vocab.Verbs {
			r.byVerb[verb] = append(r.byVerb[verb], p)
		}
		for name, tmpl := range p.Services {
			if strings.HasPrefix(name, "_") {
				continue
			}
			// First declared provider wins; later duplicates stay
			// reachable only from their own plugin's templates.
			if _, taken := r.services[name]; !taken {
				r.services[name] = service{template: tmpl, owner: p}
			}
		}
		r.byName[p.Name] = p
		r.plugins = append(r.plugins, p)
	}

	r.unsatisfied = r.findUnsatisfied()
	return r, nil
}

// selfCycle returns the first service name a plugin both provides and
// requires, or "".
func selfCycle(p *descriptor.Plugin) string {
	for _, req := range p.Requires {
		if slices.Contains(p.Provides, req) {
			return req
		}
	}
	return ""
}

// findUnsatisfied collects required capability names no loaded plugin
// provides. Unsatisfied requirements are not fatal: a command that never
// references the missing service still resolves.
func (r *Registry) findUnsatisfied() []string {
	provided := make(map[string]bool)
	for _, p := range r.plugins {
		for _, name := range p.Provides {
			provided[name] = true
		}
	}
	var missing []string
	for _, p := range r.plugins {
		for _, req := range p.Requires {
			if !provided[req] && !slices.Contains(missing, fmt.Sprintf("%s (required by %s)", req, p.Name)) {
				missing = append(missing, fmt.Sprintf("%s (required by %s)", req, p.Name))
			}
		}
	}
	return missing
}

// CanonicalVerb resolves a raw leading token to a canonical verb: an exact
// vocabulary hit, then per-plugin alias tables in declaration order, then
// an uppercase fold. ok is false when no plugin knows the token.
func (r *Registry) CanonicalVerb(token string) (string, bool) {
	if _, hit := r.byVerb[token]; hit {
		return token, true
	}
	for _, p := range r.plugins {
		if verb := p.CanonicalVerb(token); verb != "" {
			return verb, true
		}
	}
	if upper := strings.ToUpper(token); upper != token {
		if _, hit := r.byVerb[upper]; hit {
			return upper, true
		}
	}
	return "", false
}

// PluginsForVerb returns the candidates serving verb in declaration order,
// dropping plugins whose environment requirements the invocation context
// does not meet. The returned slice is the caller's to keep.
func (r *Registry) PluginsForVerb(verb string, ictx core.InvocationContext) []*descriptor.Plugin {
	candidates := r.byVerb[verb]
	out := make([]*descriptor.Plugin, 0, len(candidates))
	for _, p := range candidates {
		if p.EligibleIn(ictx) {
			out = append(out, p)
		}
	}
	return out
}

// ProviderFor returns the first-declared plugin exposing the named service
// template. Internal services (leading "_") are never returned.
func (r *Registry) ProviderFor(name string) (*descriptor.Plugin, bool) {
	s, ok := r.services[name]
	if !ok {
		return nil, false
	}
	return s.owner, true
}

// ServiceTemplate returns the template and owner for a named service.
func (r *Registry) ServiceTemplate(name string) (string, *descriptor.Plugin, bool) {
	s, ok := r.services[name]
	if !ok {
		return "", nil, false
	}
	return s.template, s.owner, true
}

// OwnerOfPattern returns the plugin owning a syntax prefix.
func (r *Registry) OwnerOfPattern(prefix string) (*descriptor.Plugin, bool) {
	p, ok := r.patterns[prefix]
	return p, ok
}

// Plugin returns a descriptor by name.
func (r *Registry) Plugin(name string) (*descriptor.Plugin, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// Plugins returns all descriptors in declaration order.
func (r *Registry) Plugins() []*descriptor.Plugin {
	return slices.Clone(r.plugins)
}

// Verbs returns every known verb sorted, for CLI listings.
func (r *Registry) Verbs() []string {
	out := make([]string, 0, len(r.byVerb))
	for verb := range r.byVerb {
		out = append(out, verb)
	}
	slices.Sort(out)
	return out
}

// Unsatisfied returns human-readable entries for required capabilities no
// loaded plugin provides. Empty when the set is self-contained.
func (r *Registry) Unsatisfied() []string {
	return slices.Clone(r.unsatisfied)
}
