// Copyright 2026 © The Edict Authors
// SPDX-License-Identifier: Apache-2.0

// Package grammar maps input tokens onto a plugin's declared fields.
//
// The pass is deterministic and forward-only: for each token, the first
// unfilled field (in declaration order) that accepts it claims it; a field
// claims at most one token; tokens nobody claims are returned as leftover.
// There is no backtracking, so descriptor authors order narrow fields
// (patterns, enums) before free-text ones.
package grammar

import (
	"github.com/jllopis/edict/pkg/core"
	"github.com/jllopis/edict/pkg/descriptor"
)

// Parse claims tokens into state per the grammar and returns the tokens no
// field accepted. Fields already set in state (the verb, router-injected
// values) never claim again.
func Parse(g descriptor.Grammar, state core.State, tokens []string) []string {
	var leftover []string
	for _, token := range tokens {
		if !claim(g, state, token) {
			leftover = append(leftover, token)
		}
	}
	return leftover
}

func claim(g descriptor.Grammar, state core.State, token string) bool {
	for i := range g {
		f := &g[i]
		if state.Has(f.Name) {
			continue
		}
		if value, ok := f.Claim(token); ok {
			state.Set(f.Name, value)
			return true
		}
	}
	return false
}
