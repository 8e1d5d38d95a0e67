package core

import (
	"os"
	"strings"
)

// InvocationContext is the map of environment signals surrounding one
// invocation: caller identity, multiplexer session markers, working
// directory. The engine only reads it, and only to filter plugins by
// unmet environment requirements and to seed conditional defaults.
type InvocationContext map[string]string

// ContextFromEnv builds an InvocationContext from a KEY=VALUE environment
// list, as returned by os.Environ.
func ContextFromEnv(environ []string) InvocationContext {
	ictx := make(InvocationContext, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		ictx[k] = v
	}
	return ictx
}

// CaptureContext builds the InvocationContext for the current process:
// the full environment plus the working directory under "PWD".
func CaptureContext() InvocationContext {
	ictx := ContextFromEnv(os.Environ())
	if wd, err := os.Getwd(); err == nil {
		ictx["PWD"] = wd
	}
	return ictx
}

// Has reports whether name is present with a non-empty value.
func (c InvocationContext) Has(name string) bool {
	return c[name] != ""
}

// Get returns the value for name, or "" when unset.
func (c InvocationContext) Get(name string) string {
	return c[name]
}

// Merge returns a copy with extra pairs overlaid. Used by the CLI to
// inject caller-supplied signals over the captured environment.
func (c InvocationContext) Merge(extra map[string]string) InvocationContext {
	out := make(InvocationContext, len(c)+len(extra))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
