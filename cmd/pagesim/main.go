// Command pagesim replays reference strings through page replacement
// policies, translates addresses through a TLB, allocates contiguous
// memory, and runs dining-philosopher style contention under a chosen strategy.
//
// Usage:
//
//	pagesim [-config file.json] [-log-level level] <command> [flags]
//
// Commands: replay, compare, workingset, translate, dine, allocate.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
)

const (
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
		os.Exit(exitUsage)
	default:
		fmt.Fprintln(os.Stderr, err)
		var usage usageError
		if errors.As(err, &usage) {
			os.Exit(exitUsage)
		}
		os.Exit(exitFailure)
	}
}

type usageError struct{ error }

func (ue usageError) Unwrap() error { return ue.error }

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		global     = flag.NewFlagSet("pagesim", flag.ContinueOnError)
		configPath = global.String("config", "", "JSON configuration `file`")
		logLevel   = global.String("log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	)
	global.SetOutput(stderr)
	global.Usage = func() {
		fmt.Fprintf(global.Output(),
			"Usage: pagesim [flags] <%s> [command flags]\n", commandNames())
		global.PrintDefaults()
	}
	if err := global.Parse(args); err != nil {
		return err
	}
	settings := defaultConfig()
	if *configPath != "" {
		loaded, err := loadConfig(*configPath, settings)
		if err != nil {
			return err
		}
		settings = *loaded
	}
	if *logLevel != "" {
		settings.LogLevel = *logLevel
	}
	logger, err := newLogger(stderr, settings.LogLevel)
	if err != nil {
		return err
	}
	args = global.Args()
	if len(args) == 0 {
		global.Usage()
		return usageError{errors.New("no command given")}
	}
	name, args := args[0], args[1:]
	cmd, ok := lookupCommand(name)
	if !ok {
		global.Usage()
		return usageError{fmt.Errorf("unknown command %q", name)}
	}
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(stderr)
	cmd.bind(flags, &settings)
	if err := flags.Parse(args); err != nil {
		return err
	}
	logger.Debug("configured", "command", name, "config", *configPath)
	env := &environment{
		config: settings,
		logger: logger,
		out:    stdout,
	}
	return cmd.run(ctx, env)
}
