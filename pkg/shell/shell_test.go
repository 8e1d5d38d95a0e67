// Copyright 2026 © The Edict Authors
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/jllopis/edict/pkg/errors"
)

func TestDryRunPrints(t *testing.T) {
	var out bytes.Buffer
	r := New(WithOutput(&out, &out))

	if !r.DryRun() {
		t.Fatal("new runner should default to dry-run")
	}
	if err := r.Run(context.Background(), "echo hi"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := out.String(), "would run: echo hi\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestRunExecutes(t *testing.T) {
	var out, errOut bytes.Buffer
	r := New(WithExecution(), WithOutput(&out, &errOut))

	if err := r.Run(context.Background(), "echo hello"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "hello" {
		t.Errorf("stdout = %q, want %q", got, "hello")
	}
}

func TestRunExitStatus(t *testing.T) {
	var out bytes.Buffer
	r := New(WithExecution(), WithOutput(&out, &out))

	err := r.Run(context.Background(), "exit 3")
	if !errors.IsKind(err, errors.KindExec) {
		t.Fatalf("err = %v, want kind %s", err, errors.KindExec)
	}
	if got := ExitCode(err); got != 3 {
		t.Errorf("ExitCode = %d, want 3", got)
	}
}

func TestRunEmptyCommand(t *testing.T) {
	r := New()
	if err := r.Run(context.Background(), "   "); !errors.IsKind(err, errors.KindExec) {
		t.Errorf("err = %v, want kind %s", err, errors.KindExec)
	}
}

func TestRunCanceledContext(t *testing.T) {
	var out bytes.Buffer
	r := New(WithExecution(), WithOutput(&out, &out))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.Run(ctx, "sleep 5")
	if !errors.IsKind(err, errors.KindExec) {
		t.Fatalf("err = %v, want kind %s", err, errors.KindExec)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{
			"exec error with status",
			errors.New(errors.KindExec, "exited").WithContext("exit_code", 3),
			3,
		},
		{"plain error", errors.New(errors.KindInternal, "boom"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode = %d, want %d", got, tt.want)
			}
		})
	}
}
