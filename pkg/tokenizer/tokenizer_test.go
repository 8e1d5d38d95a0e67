// Copyright 2026 © The Edict Authors
// SPDX-License-Identifier: Apache-2.0

package tokenizer

import (
	"slices"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{
			name: "plain words",
			line: "GO left fast",
			want: []string{"GO", "left", "fast"},
		},
		{
			name: "blank line",
			line: "   \t ",
			want: nil,
		},
		{
			name: "double quoted span keeps spaces",
			line: `SAY "hello there" .1`,
			want: []string{"SAY", "hello there", ".1"},
		},
		{
			name: "single quoted span keeps spaces",
			line: `RUN 'ls -la' :3`,
			want: []string{"RUN", "ls -la", ":3"},
		},
		{
			name: "prefix markers survive",
			line: "GO :3 .1 ?",
			want: []string{"GO", ":3", ".1", "?"},
		},
		{
			name: "quoted span joins adjacent characters",
			line: `ATTACH -t"my session"`,
			want: []string{"ATTACH", "-tmy session"},
		},
		{
			name: "empty quotes make an empty token",
			line: `SEND ""`,
			want: []string{"SEND", ""},
		},
		{
			name: "unterminated quote runs to end of line",
			line: `SAY "no closing`,
			want: []string{"SAY", "no closing"},
		},
		{
			name: "mixed quote kinds nest as literals",
			line: `SAY "it's here"`,
			want: []string{"SAY", "it's here"},
		},
		{
			name: "tabs and repeated spaces collapse",
			line: "GO\t\tleft   up",
			want: []string{"GO", "left", "up"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.line)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Tokenize(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}
