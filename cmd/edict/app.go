// Copyright 2026 © The Edict Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/jllopis/edict/pkg/config"
	"github.com/jllopis/edict/pkg/core"
	"github.com/jllopis/edict/pkg/descriptor"
	"github.com/jllopis/edict/pkg/engine"
	"github.com/jllopis/edict/pkg/errors"
	"github.com/jllopis/edict/pkg/history"
	"github.com/jllopis/edict/pkg/registry"
	"github.com/jllopis/edict/pkg/shell"
	"github.com/jllopis/edict/pkg/telemetry"
	"github.com/jllopis/edict/pkg/tokenizer"
)

// app holds the wired host: config, registry, engine and the optional
// history store, built once per process.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	reg    *registry.Registry
	engine *engine.Engine
	store  history.Store
}

// newApp loads the configuration, the descriptors and the registry, and
// wires telemetry, history and the engine. The returned shutdown closes
// everything in reverse order.
func newApp(ctx context.Context, flags globalFlags) (*app, func(), error) {
	path := flags.ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if flags.LogLevel != "" {
		cfg.Logging.Level = flags.LogLevel
	}
	if flags.LogFormat != "" {
		cfg.Logging.Format = flags.LogFormat
	}
	logger := telemetry.ConfigureSlog(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	shutdownTelemetry, err := telemetry.Init(ctx, version, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Exporter:    cfg.Telemetry.Exporter,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return nil, nil, err
	}

	dirs := append([]string{}, cfg.Plugins.Paths...)
	dirs = append(dirs, flags.PluginDirs...)
	plugins, err := descriptor.LoadDirs(dirs)
	if err != nil {
		return nil, nil, err
	}
	if len(plugins) == 0 {
		return nil, nil, errors.Newf(errors.KindLoad,
			"no plugin descriptors found in %s", strings.Join(dirs, ", "))
	}
	reg, err := registry.New(plugins...)
	if err != nil {
		return nil, nil, err
	}
	for _, missing := range reg.Unsatisfied() {
		logger.Warn("unsatisfied service requirement", "service", missing)
	}

	opts := []engine.Option{engine.WithLogger(logger)}
	strict := cfg.Plugins.Strict
	if flags.Strict != nil {
		strict = *flags.Strict
	}
	if strict {
		opts = append(opts, engine.WithStrict(true))
	}

	var store history.Store
	if cfg.History.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.History.Path), 0o755); err != nil {
			return nil, nil, errors.Wrap(errors.KindHistory, "create history dir", err)
		}
		sqlite, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, nil, err
		}
		store = sqlite
		session := cfg.History.Session
		if session == "" {
			session = uuid.NewString()
		}
		opts = append(opts, engine.WithHistory(store), engine.WithSession(session))
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		reg:    reg,
		engine: engine.New(reg, opts...),
		store:  store,
	}
	shutdown := func() {
		if store != nil {
			if err := store.Close(); err != nil {
				logger.Warn("close history store", "error", err)
			}
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}
	return a, shutdown, nil
}

// resolveTokens runs one resolution over the CLI arguments.
func (a *app) resolveTokens(ctx context.Context, raw bool, args []string) (*engine.Resolution, error) {
	var tokens []string
	if raw {
		tokens = tokenizer.Tokenize(strings.Join(args, " "))
	} else {
		tokens = args
	}
	return a.engine.Resolve(ctx, tokens, core.CaptureContext())
}

func (a *app) runResolve(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	raw := fs.Bool("raw", false, "tokenize the arguments as one raw line")
	asJSON := fs.Bool("json", false, "print the full resolution as JSON")
	fs.Parse(args)
	if fs.NArg() == 0 {
		fatalUsage(fmt.Errorf("usage: edict resolve [--raw] [--json] TOKENS..."))
	}

	res, err := a.resolveTokens(ctx, *raw, fs.Args())
	if err != nil {
		printResolutionError(err, *asJSON)
		os.Exit(exitError)
	}
	if *asJSON {
		printJSON(res)
		return
	}
	for _, warning := range res.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", warning)
	}
	fmt.Println(res.Output)
}

func (a *app) runRun(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", a.cfg.Runner.DryRun, "print the command instead of executing it")
	raw := fs.Bool("raw", false, "tokenize the arguments as one raw line")
	fs.Parse(args)
	if fs.NArg() == 0 {
		fatalUsage(fmt.Errorf("usage: edict run [--dry-run] TOKENS..."))
	}

	res, err := a.resolveTokens(ctx, *raw, fs.Args())
	if err != nil {
		printResolutionError(err, false)
		os.Exit(exitError)
	}

	runner := shell.New(
		shell.WithShell(a.cfg.Runner.Shell),
		shell.WithDryRun(*dryRun),
		shell.WithLogger(a.logger),
	)
	if err := runner.Run(ctx, res.Output); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if code := shell.ExitCode(err); code > 0 {
			os.Exit(code)
		}
		os.Exit(exitError)
	}
}

func (a *app) runVerbs() {
	tabbed(func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "VERB\tPLUGINS")
		for _, verb := range a.reg.Verbs() {
			names := make([]string, 0, 2)
			for _, p := range a.reg.PluginsForVerb(verb, nil) {
				names = append(names, p.Name)
			}
			fmt.Fprintf(w, "%s\t%s\n", verb, strings.Join(names, ", "))
		}
	})
}

func (a *app) runPlugins() {
	tabbed(func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "NAME\tVERSION\tPROVIDES\tREQUIRES\tPATTERNS")
		for _, p := range a.reg.Plugins() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				p.Name, p.Version,
				strings.Join(sortedCopy(p.Provides), ","),
				strings.Join(sortedCopy(p.Requires), ","),
				strings.Join(p.Patterns, " "))
		}
	})
}

func (a *app) runValidate(args []string) {
	dirs := append([]string{}, a.cfg.Plugins.Paths...)
	if len(args) > 0 {
		dirs = args
	}
	plugins, err := descriptor.LoadDirs(dirs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfig)
	}
	reg, err := registry.New(plugins...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfig)
	}
	fmt.Printf("%d descriptor(s) ok\n", len(plugins))
	for _, missing := range reg.Unsatisfied() {
		fmt.Println("warning: unsatisfied requirement:", missing)
	}
}

func (a *app) runHistory(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 20, "maximum records")
	verb := fs.String("verb", "", "filter by verb")
	pluginName := fs.String("plugin", "", "filter by plugin")
	failed := fs.Bool("failed", false, "failed invocations only")
	fs.Parse(args)

	if a.store == nil {
		fatal(errors.New(errors.KindHistory, "history is disabled; set history.enabled: true"))
	}
	records, err := a.store.Query(ctx, history.Filter{
		Verb:       *verb,
		Plugin:     *pluginName,
		OnlyFailed: *failed,
		Limit:      *limit,
	})
	if err != nil {
		fatal(err)
	}
	tabbed(func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "TIME\tVERB\tPLUGIN\tRESULT")
		for _, rec := range records {
			result := rec.Output
			if rec.Failed() {
				result = "error: " + rec.ErrorKind
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				rec.Timestamp.Local().Format(time.DateTime),
				rec.Verb, rec.Plugin, result)
		}
	})
}

// printResolutionError writes the structured failure: kind, message and
// the offending state snapshot when one is attached.
func printResolutionError(err error, asJSON bool) {
	e := errors.AsError(err)
	if asJSON {
		enc := os.Stderr
		data, merr := e.MarshalJSON()
		if merr == nil {
			fmt.Fprintln(enc, string(data))
			return
		}
	}
	fmt.Fprintln(os.Stderr, e.Error())
	if len(e.State) > 0 {
		parts := make([]string, 0, len(e.State))
		for _, k := range sortedCopy(mapKeys(e.State)) {
			parts = append(parts, k+"="+e.State[k])
		}
		fmt.Fprintln(os.Stderr, "state:", strings.Join(parts, " "))
	}
}

func mapKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
