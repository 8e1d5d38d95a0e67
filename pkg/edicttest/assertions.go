// Copyright 2026 © The Edict Authors
// SPDX-License-Identifier: Apache-2.0

package edicttest

import (
	"testing"

	"github.com/jllopis/edict/pkg/errors"
)

// RequireNoError fails the test immediately when err is non-nil.
func RequireNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", msg, err)
	}
}

// RequireKind fails the test immediately unless err is a typed edict error
// of the given kind.
func RequireKind(t *testing.T, err error, kind errors.ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error of kind %s, got nil", kind)
	}
	if got := errors.KindOf(err); got != kind {
		t.Fatalf("error kind %s, want %s (error: %v)", got, kind, err)
	}
}

// AssertOutput reports a failure when the result output does not satisfy
// the matcher.
func AssertOutput(t *testing.T, r *Result, matcher StringMatcher) {
	t.Helper()
	if r.Err != nil {
		t.Errorf("resolution failed: %v", r.Err)
		return
	}
	if !matcher.Match(r.Output()) {
		t.Errorf("output %q does not match: %s", r.Output(), matcher.Description())
	}
}
