// Copyright 2026 © The Edict Authors
// SPDX-License-Identifier: Apache-2.0

// Package shell executes resolved command strings. It is the only package
// in the module that spawns processes; everything upstream of it only
// builds strings. The zero-value posture is deliberately safe: a Runner
// prints what it would do unless execution is switched on.
package shell

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/jllopis/edict/pkg/errors"
)

// DefaultShell interprets command strings when no shell is configured.
const DefaultShell = "/bin/sh"

// Runner executes one command string at a time through a shell.
type Runner struct {
	shell  string
	dryRun bool
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithShell sets the shell binary used to interpret commands.
func WithShell(shell string) Option {
	return func(r *Runner) {
		if shell != "" {
			r.shell = shell
		}
	}
}

// WithExecution enables real execution. Without it every Run is a dry run.
func WithExecution() Option {
	return func(r *Runner) {
		r.dryRun = false
	}
}

// WithDryRun sets dry-run explicitly, for callers driven by config.
func WithDryRun(dry bool) Option {
	return func(r *Runner) {
		r.dryRun = dry
	}
}

// WithOutput redirects the spawned command's stdout and stderr.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// WithLogger sets the logger used for the per-run debug line.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// New builds a Runner. Defaults: /bin/sh, dry-run on, process stdout and
// stderr, slog.Default.
func New(opts ...Option) *Runner {
	r := &Runner{
		shell:  DefaultShell,
		dryRun: true,
		stdout: os.Stdout,
		stderr: os.Stderr,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DryRun reports whether Run only prints.
func (r *Runner) DryRun() bool {
	return r.dryRun
}

// Run executes command as `shell -c command`, honoring ctx cancellation.
// In dry-run mode it prints "would run: <command>" and succeeds. A
// non-zero exit comes back as an EXEC_ERROR with the exit code attached.
func (r *Runner) Run(ctx context.Context, command string) error {
	command = strings.TrimSpace(command)
	if command == "" {
		return errors.New(errors.KindExec, "empty command")
	}

	if r.dryRun {
		fmt.Fprintf(r.stdout, "would run: %s\n", command)
		return nil
	}

	r.logger.DebugContext(ctx, "running command", "shell", r.shell, "command", command)

	cmd := exec.CommandContext(ctx, r.shell, "-c", command)
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return errors.Wrap(errors.KindExec, "command canceled", ctx.Err()).
				WithContext("command", command)
		}
		var exit *exec.ExitError
		if stderrors.As(err, &exit) {
			return errors.Newf(errors.KindExec, "command exited with status %d", exit.ExitCode()).
				WithContext("command", command).
				WithContext("exit_code", exit.ExitCode())
		}
		return errors.Wrap(errors.KindExec, "command failed to start", err).
			WithContext("command", command)
	}
	return nil
}

// ExitCode extracts the command exit status from a Run error: 0 for nil,
// the recorded status for an exec failure, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	e := errors.AsError(err)
	if code, ok := e.Context["exit_code"].(int); ok {
		return code
	}
	return 1
}
