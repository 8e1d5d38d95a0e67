// Copyright 2026 © The Edict Authors
// SPDX-License-Identifier: Apache-2.0

// Package history persists one record per engine invocation so sessions
// can be replayed and command patterns analyzed offline. Stores are
// append-only; records are never updated.
package history

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Record is one resolved (or failed) invocation.
type Record struct {
	ID        string            `json:"id"`
	Session   string            `json:"session,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Verb      string            `json:"verb"`
	Plugin    string            `json:"plugin,omitempty"`
	Tokens    []string          `json:"tokens,omitempty"`
	State     map[string]string `json:"state,omitempty"`
	Output    string            `json:"output,omitempty"`
	ErrorKind string            `json:"error_kind,omitempty"`
	Duration  time.Duration     `json:"duration"`
}

// Failed reports whether the invocation ended in an error.
func (r Record) Failed() bool {
	return r.ErrorKind != ""
}

// Filter limits history queries. Zero values match everything.
type Filter struct {
	Session    string
	Verb       string
	Plugin     string
	OnlyFailed bool
	Limit      int
}

// Store persists invocation records.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, filter Filter) ([]Record, error)
	Close() error
}

// MemoryStore keeps records in memory. It is the default store when no
// history path is configured, and the one tests use.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append adds a record.
func (s *MemoryStore) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Timestamp = normalizeTime(rec.Timestamp)
	s.records = append(s.records, rec)
	return nil
}

// Query returns matching records, most recent first.
func (s *MemoryStore) Query(_ context.Context, filter Filter) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for i := len(s.records) - 1; i >= 0; i-- {
		rec := s.records[i]
		if filter.Session != "" && rec.Session != filter.Session {
			continue
		}
		if filter.Verb != "" && rec.Verb != filter.Verb {
			continue
		}
		if filter.Plugin != "" && rec.Plugin != filter.Plugin {
			continue
		}
		if filter.OnlyFailed && !rec.Failed() {
			continue
		}
		out = append(out, rec)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

func encodeJSON(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func decodeStrings(raw string) []string {
	if raw == "" || raw == "null" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func decodeStringMap(raw string) map[string]string {
	if raw == "" || raw == "null" {
		return nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func normalizeTime(value time.Time) time.Time {
	if value.IsZero() {
		return value
	}
	return value.UTC()
}

func microseconds(us int64) time.Duration {
	return time.Duration(us) * time.Microsecond
}
