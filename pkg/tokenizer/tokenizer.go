// Copyright 2026 © The Edict Authors
// SPDX-License-Identifier: Apache-2.0

// Package tokenizer splits raw command lines into the token sequences the
// router consumes. It knows nothing about verbs or grammars: quoting and
// whitespace are its whole vocabulary, so prefix markers like ".1" or ":3"
// and a bare "?" pass through as ordinary tokens.
package tokenizer

import "strings"

// Tokenize splits a line on whitespace. A single or double quoted span
// keeps its embedded whitespace and loses the quotes; a span adjacent to
// other characters joins them into one token, so `-t"my session"` is a
// single token. An unterminated quote consumes the rest of the line.
// Tokenize never fails; a blank line yields nil.
func Tokenize(line string) []string {
	var tokens []string
	var current strings.Builder
	inToken := false

	flush := func() {
		if inToken {
			tokens = append(tokens, current.String())
			current.Reset()
			inToken = false
		}
	}

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\'' || r == '"':
			inToken = true
			for i++; i < len(runes) && runes[i] != r; i++ {
				current.WriteRune(runes[i])
			}
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			inToken = true
			current.WriteRune(r)
		}
	}
	flush()
	return tokens
}
