// SPDX-License-Identifier: Apache-2.0
// Package errors provides typed error handling with rich context for edict.
//
// Every failure mode of the resolution pipeline maps to exactly one ErrorKind,
// so callers can branch on the kind without parsing messages. Errors carry the
// verb, the candidate plugin, and a snapshot of the command state at the point
// of failure.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
)

// ErrorKind classifies edict errors. Each pipeline stage has a distinct
// terminal kind; re-invoking with identical input always reproduces the
// same kind, so none of them are retryable.
type ErrorKind string

const (
	// KindLoad indicates a descriptor set could not be turned into a
	// registry. Fatal at startup; no partial registry is ever built.
	KindLoad ErrorKind = "LOAD_ERROR"

	// KindUnknownVerb indicates no plugin serves the leading token.
	KindUnknownVerb ErrorKind = "UNKNOWN_VERB"

	// KindGrammarMismatch indicates leftover tokens under a plugin's
	// strict mode.
	KindGrammarMismatch ErrorKind = "GRAMMAR_MISMATCH"

	// KindNoMatchingCommand indicates the inferred state satisfied none of
	// the plugin's command predicates.
	KindNoMatchingCommand ErrorKind = "NO_MATCHING_COMMAND"

	// KindLookup indicates an array-lookup marker had no matching key and
	// no default entry.
	KindLookup ErrorKind = "LOOKUP_ERROR"

	// KindUnresolvedField indicates a required template field stayed empty
	// after all substitution passes.
	KindUnresolvedField ErrorKind = "UNRESOLVED_REQUIRED_FIELD"

	// KindTemplateCycle indicates substitution did not settle within the
	// pass bound.
	KindTemplateCycle ErrorKind = "TEMPLATE_CYCLE"

	// KindConfig indicates the host configuration could not be loaded.
	KindConfig ErrorKind = "CONFIG_ERROR"

	// KindHistory indicates the invocation history store failed.
	KindHistory ErrorKind = "HISTORY_ERROR"

	// KindExec indicates the shell runner failed to execute a resolved
	// command.
	KindExec ErrorKind = "EXEC_ERROR"

	// KindInternal indicates a bug in edict itself.
	KindInternal ErrorKind = "INTERNAL_ERROR"
)

// Error is a typed error with enough context for an actionable caller-side
// message. It implements the error interface and can be unwrapped with
// errors.As().
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
	Verb    string
	Plugin  string
	State   map[string]string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// LogValue implements slog.LogValuer so errors log structured instead of
// as a flat string.
func (e *Error) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("kind", string(e.Kind)),
		slog.String("message", e.Message),
	}
	if e.Verb != "" {
		attrs = append(attrs, slog.String("verb", e.Verb))
	}
	if e.Plugin != "" {
		attrs = append(attrs, slog.String("plugin", e.Plugin))
	}
	if len(e.State) > 0 {
		attrs = append(attrs, slog.Any("state", e.State))
	}
	if e.Err != nil {
		attrs = append(attrs, slog.String("cause", e.Err.Error()))
	}
	return slog.GroupValue(attrs...)
}

// MarshalJSON implements json.Marshaler for structured output.
func (e *Error) MarshalJSON() ([]byte, error) {
	out := struct {
		Kind    string            `json:"kind"`
		Message string            `json:"message"`
		Cause   string            `json:"cause,omitempty"`
		Verb    string            `json:"verb,omitempty"`
		Plugin  string            `json:"plugin,omitempty"`
		State   map[string]string `json:"state,omitempty"`
	}{
		Kind:    string(e.Kind),
		Message: e.Message,
		Verb:    e.Verb,
		Plugin:  e.Plugin,
		State:   e.State,
	}
	if e.Err != nil {
		out.Cause = e.Err.Error()
	}
	return json.Marshal(out)
}

// New creates a new Error with the given kind and message.
func New(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf creates a new Error with a formatted message.
func Newf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a new Error wrapping a cause.
func Wrap(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// WithVerb records the verb being resolved.
// Returns the error for method chaining.
func (e *Error) WithVerb(verb string) *Error {
	e.Verb = verb
	return e
}

// WithPlugin records the candidate plugin.
// Returns the error for method chaining.
func (e *Error) WithPlugin(name string) *Error {
	e.Plugin = name
	return e
}

// WithState attaches a snapshot of the command state. The map is cloned so
// later pipeline mutations cannot change what the error reports.
func (e *Error) WithState(state map[string]string) *Error {
	e.State = maps.Clone(state)
	return e
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// KindOf returns the ErrorKind of err, or KindInternal when err is not an
// edict error. A nil err returns the empty kind.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err is an edict error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// AsError attempts to convert an error to an *Error.
// Returns the error as *Error if it is one, or wraps it as internal otherwise.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(KindInternal, "wrapped error", err)
}
