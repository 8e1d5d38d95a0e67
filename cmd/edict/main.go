// Copyright 2026 © The Edict Authors
// SPDX-License-Identifier: Apache-2.0

// edict is the command-line host of the resolution engine: it loads the
// plugin descriptors, builds the registry once, resolves verb-led token
// sequences into shell command strings and, on request, runs them.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
)

// version is set by the linker on release builds.
var version = "dev"

const (
	exitOK     = 0
	exitError  = 1
	exitUsage  = 2
	exitConfig = 3
)

type globalFlags struct {
	ConfigPath string
	PluginDirs []string
	LogLevel   string
	LogFormat  string
	Strict     *bool
	Help       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	global, args, err := parseGlobalFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}
	if global.Help || len(args) == 0 {
		printUsage()
		return
	}

	cmd, args := args[0], args[1:]
	if cmd == "help" {
		printUsage()
		return
	}
	if cmd == "version" {
		fmt.Println("edict", version)
		return
	}

	app, shutdown, err := newApp(ctx, global)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfig)
	}
	defer shutdown()

	switch cmd {
	case "resolve":
		app.runResolve(ctx, args)
	case "run":
		app.runRun(ctx, args)
	case "verbs":
		ensureNoArgs(args)
		app.runVerbs()
	case "plugins":
		ensureNoArgs(args)
		app.runPlugins()
	case "validate":
		app.runValidate(args)
	case "history":
		app.runHistory(ctx, args)
	default:
		fatalUsage(fmt.Errorf("unknown command %q", cmd))
	}
}

func parseGlobalFlags(args []string) (globalFlags, []string, error) {
	flags := globalFlags{
		ConfigPath: getenv("EDICT_CONFIG", ""),
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return flags, args[i+1:], nil
		}
		if !strings.HasPrefix(arg, "-") {
			return flags, args[i:], nil
		}
		value := func(name string) (string, error) {
			if eq := strings.IndexByte(arg, '='); eq >= 0 {
				return arg[eq+1:], nil
			}
			if i+1 >= len(args) {
				return "", fmt.Errorf("missing value for %s", name)
			}
			i++
			return args[i], nil
		}
		switch {
		case arg == "-h" || arg == "--help":
			flags.Help = true
			return flags, nil, nil
		case arg == "--strict":
			strict := true
			flags.Strict = &strict
		case arg == "--strict=false":
			strict := false
			flags.Strict = &strict
		case arg == "--config" || strings.HasPrefix(arg, "--config="):
			v, err := value("--config")
			if err != nil {
				return flags, nil, err
			}
			flags.ConfigPath = v
		case arg == "--plugin-dir" || strings.HasPrefix(arg, "--plugin-dir="):
			v, err := value("--plugin-dir")
			if err != nil {
				return flags, nil, err
			}
			flags.PluginDirs = append(flags.PluginDirs, v)
		case arg == "--log-level" || strings.HasPrefix(arg, "--log-level="):
			v, err := value("--log-level")
			if err != nil {
				return flags, nil, err
			}
			flags.LogLevel = v
		case arg == "--log-format" || strings.HasPrefix(arg, "--log-format="):
			v, err := value("--log-format")
			if err != nil {
				return flags, nil, err
			}
			flags.LogFormat = v
		default:
			return flags, nil, fmt.Errorf("unknown global flag %q", arg)
		}
	}
	return flags, nil, nil
}

func printUsage() {
	fmt.Print(`edict - declarative command composition

Usage:
  edict [global flags] <command> [args]

Commands:
  resolve [--raw] [--json] TOKENS...              resolve and print the command string
  run     [--dry-run] [--dry-run=false] TOKENS... resolve then execute via the shell runner
  verbs                                           list verb -> plugins table
  plugins                                         list loaded descriptors
  validate [DIR]                                  load and validate descriptors
  history [--limit N] [--verb V] [--failed]       query the invocation history
  version                                         print version
  help                                            print this help

Global flags:
  --config PATH       config file (default: ~/.config/edict/config.yaml, or $EDICT_CONFIG)
  --plugin-dir DIR    additional descriptor directory (repeatable)
  --log-level LEVEL   debug|info|warn|error
  --log-format FMT    text|json
  --strict            treat unclaimed tokens as errors for every plugin
`)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(exitError)
}

func fatalUsage(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(exitUsage)
}

func ensureNoArgs(args []string) {
	if len(args) > 0 {
		fatalUsage(fmt.Errorf("unexpected arguments: %v", args))
	}
}

func getenv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func tabbed(write func(w *tabwriter.Writer)) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	write(w)
	w.Flush()
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal(err)
	}
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
