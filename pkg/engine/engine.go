// Copyright 2026 © The Edict Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine runs the full resolution pipeline for one invocation:
// route the tokens to a plugin and command, expand the command's template,
// apply any selector the state triggered. The computation itself is the
// pure router+resolver pass; spans, metrics and history records are edge
// effects wrapped around it.
package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/edict/pkg/core"
	"github.com/jllopis/edict/pkg/descriptor"
	"github.com/jllopis/edict/pkg/errors"
	"github.com/jllopis/edict/pkg/history"
	"github.com/jllopis/edict/pkg/registry"
	"github.com/jllopis/edict/pkg/router"
	"github.com/jllopis/edict/pkg/telemetry"
	"github.com/jllopis/edict/pkg/template"
)

// Resolution kinds. A command resolution is text for the caller's shell;
// an action resolution came from an action selector and is a command the
// picker itself runs.
const (
	KindCommand = "command"
	KindAction  = "action"
)

// Resolution is the outcome of one invocation.
type Resolution struct {
	ID       string            `json:"id"`
	Verb     string            `json:"verb"`
	Plugin   string            `json:"plugin"`
	Output   string            `json:"output"`
	Kind     string            `json:"kind"`
	State    map[string]string `json:"state,omitempty"`
	Leftover []string          `json:"leftover,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
	Duration time.Duration     `json:"duration"`
}

// Engine resolves token sequences against one immutable registry. It is
// safe for concurrent use; every invocation gets its own state.
type Engine struct {
	reg       *registry.Registry
	router    *router.Router
	logger    *slog.Logger
	store     history.Store
	session   string
	maxPasses int
	tracer    trace.Tracer
	metrics   *telemetry.EngineMetrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithHistory records every invocation, success and failure both, in the
// given store. Write failures are logged and never propagated.
func WithHistory(store history.Store) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithSession tags history records with a session identifier.
func WithSession(id string) Option {
	return func(e *Engine) {
		e.session = id
	}
}

// WithStrict overrides every plugin's declared strictness.
func WithStrict(strict bool) Option {
	return func(e *Engine) {
		e.router = router.New(e.reg, router.WithStrict(strict))
	}
}

// WithMaxPasses overrides the template substitution pass bound.
func WithMaxPasses(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPasses = n
		}
	}
}

// New builds an Engine over a registry.
func New(reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{
		reg:       reg,
		router:    router.New(reg),
		logger:    slog.Default(),
		maxPasses: template.DefaultMaxPasses,
		tracer:    otel.Tracer("edict/engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.session == "" {
		e.session = uuid.NewString()
	}
	if m, err := telemetry.NewEngineMetrics(); err == nil {
		e.metrics = m
	} else {
		e.logger.Warn("engine metrics disabled", "error", err)
	}
	return e
}

// Session returns the session identifier history records carry.
func (e *Engine) Session() string {
	return e.session
}

// Resolve runs the pipeline on tokens and returns the Resolution or a
// typed error. ctx carries the span; the computation has no suspension
// points of its own.
func (e *Engine) Resolve(ctx context.Context, tokens []string, ictx core.InvocationContext) (*Resolution, error) {
	id := uuid.NewString()
	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "engine.resolve", trace.WithAttributes(
		telemetry.ResolutionAttributes(id, "", len(tokens))...))
	defer span.End()

	res, err := e.resolve(ctx, id, tokens, ictx)
	duration := time.Since(start)

	verb, plugin := "", ""
	if res != nil {
		res.Duration = duration
		verb, plugin = res.Verb, res.Plugin
	}
	kind := errors.KindOf(err)
	span.SetAttributes(telemetry.OutcomeAttributes(string(kind))...)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if ee := errors.AsError(err); ee != nil {
			verb, plugin = ee.Verb, ee.Plugin
		}
		e.logger.DebugContext(ctx, "resolution failed",
			"id", id, "verb", verb, "error", err)
	} else {
		e.logger.DebugContext(ctx, "resolved",
			"id", id, "verb", verb, "plugin", plugin, "output", res.Output)
	}

	outcome := "ok"
	if kind != "" {
		outcome = string(kind)
	}
	if e.metrics != nil {
		e.metrics.RecordInvocation(ctx, verb, plugin, outcome,
			float64(duration.Milliseconds()))
	}
	e.record(ctx, id, verb, plugin, tokens, res, kind, duration)

	if err != nil {
		return nil, err
	}
	return res, nil
}

// resolve is the pipeline body: stage spans around pure calls.
func (e *Engine) resolve(ctx context.Context, id string, tokens []string, ictx core.InvocationContext) (*Resolution, error) {
	verb, rest, candidates, err := e.stageVerb(ctx, tokens, ictx)
	if err != nil {
		return nil, err
	}

	plugin := e.stageSelect(ctx, candidates, rest)

	state, leftover, err := e.stageState(ctx, plugin, verb, rest)
	if err != nil {
		return nil, err
	}

	cmd, err := e.stageMatch(ctx, plugin, state, leftover)
	if err != nil {
		return nil, err
	}

	output, kind, err := e.stageExpand(ctx, plugin, cmd, state)
	if err != nil {
		return nil, err
	}

	res := &Resolution{
		ID:       id,
		Verb:     verb,
		Plugin:   plugin.Name,
		Output:   output,
		Kind:     kind,
		State:    state,
		Leftover: leftover,
	}
	if len(leftover) > 0 {
		res.Warnings = append(res.Warnings,
			"unclaimed token(s): "+strings.Join(leftover, " "))
		e.logger.WarnContext(ctx, "tokens not claimed by grammar",
			"plugin", plugin.Name, "leftover", leftover)
		if e.metrics != nil {
			e.metrics.RecordLeftover(ctx, plugin.Name, len(leftover))
		}
	}
	return res, nil
}

func (e *Engine) stageVerb(ctx context.Context, tokens []string, ictx core.InvocationContext) (string, []string, []*descriptor.Plugin, error) {
	_, span := e.tracer.Start(ctx, "resolve_verb")
	defer span.End()
	verb, rest, candidates, err := e.router.ResolveVerb(tokens, ictx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", nil, nil, err
	}
	span.SetAttributes(telemetry.ResolutionAttributes("", verb, len(tokens))...)
	return verb, rest, candidates, nil
}

func (e *Engine) stageSelect(ctx context.Context, candidates []*descriptor.Plugin, rest []string) *descriptor.Plugin {
	_, span := e.tracer.Start(ctx, "select_plugin")
	defer span.End()
	plugin := e.router.SelectPlugin(candidates, rest)
	span.SetAttributes(telemetry.MatchAttributes(plugin.Name, -1, nil, 0)...)
	return plugin
}

func (e *Engine) stageState(ctx context.Context, plugin *descriptor.Plugin, verb string, rest []string) (core.State, []string, error) {
	_, span := e.tracer.Start(ctx, "parse")
	state, leftover, err := e.router.BuildState(plugin, verb, rest)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, nil, err
	}
	span.End()

	_, inferSpan := e.tracer.Start(ctx, "infer")
	inferSpan.SetAttributes(telemetry.MatchAttributes(plugin.Name, -1, state.Fields(), len(leftover))...)
	inferSpan.End()
	return state, leftover, nil
}

func (e *Engine) stageMatch(ctx context.Context, plugin *descriptor.Plugin, state core.State, leftover []string) (descriptor.Command, error) {
	_, span := e.tracer.Start(ctx, "match")
	defer span.End()
	cmd, idx, err := e.router.MatchCommand(plugin, state)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return descriptor.Command{}, err
	}
	span.SetAttributes(telemetry.MatchAttributes(plugin.Name, idx, state.Fields(), len(leftover))...)
	return cmd, nil
}

// stageExpand resolves the matched command's template, applying selector
// semantics first: an action selector's resolved command replaces the
// output entirely, a stream selector substitutes itself into the field as
// $( ... ) and command expansion proceeds.
func (e *Engine) stageExpand(ctx context.Context, plugin *descriptor.Plugin, cmd descriptor.Command, state core.State) (string, string, error) {
	_, span := e.tracer.Start(ctx, "expand")
	defer span.End()

	resolver := template.New(e.reg, plugin, state, template.WithMaxPasses(e.maxPasses))

	if field, sel, hit := triggeredSelector(plugin, state); hit {
		span.SetAttributes(attribute.String(telemetry.AttrSelectorKind, sel.Kind))
		resolved, err := resolver.Resolve(sel.Exec)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return "", "", err
		}
		if sel.Kind == descriptor.SelectorAction {
			return resolved, KindAction, nil
		}
		state.Set(field, "$( "+resolved+" )")
	}

	output, err := resolver.ResolveCommand(cmd)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", "", err
	}
	return output, KindCommand, nil
}

// triggeredSelector returns the first state field, in sorted field order,
// whose value is one of the plugin's selector tokens.
func triggeredSelector(plugin *descriptor.Plugin, state core.State) (string, descriptor.Selector, bool) {
	if len(plugin.Selectors) == 0 {
		return "", descriptor.Selector{}, false
	}
	for _, field := range state.Fields() {
		if sel, ok := plugin.Selectors[state.Get(field)]; ok {
			return field, sel, true
		}
	}
	return "", descriptor.Selector{}, false
}

// record appends a history row when a store is configured. Failures are
// logged, never propagated: history must not break resolution.
func (e *Engine) record(ctx context.Context, id, verb, plugin string, tokens []string, res *Resolution, kind errors.ErrorKind, duration time.Duration) {
	if e.store == nil {
		return
	}
	rec := history.Record{
		ID:        id,
		Session:   e.session,
		Timestamp: time.Now().UTC(),
		Verb:      verb,
		Plugin:    plugin,
		Tokens:    tokens,
		ErrorKind: string(kind),
		Duration:  duration,
	}
	if res != nil {
		rec.Output = res.Output
		rec.State = res.State
	}
	if err := e.store.Append(ctx, rec); err != nil {
		e.logger.WarnContext(ctx, "history write failed", "id", id, "error", err)
	}
}
