// FILE: cmd/runconfig/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lixenwraith/runconfig"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
	// ExitCodeInvalid indicates the configuration was found but failed validation.
	ExitCodeInvalid = 2
)

type rootOptions struct {
	logLevel  string
	envPrefix string
	sets      []string
	logger    zerolog.Logger
}

func main() {
	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps validation failures to their own exit code.
func exitCode(err error) int {
	var verr *runconfig.ValidationError
	if errors.As(err, &verr) {
		return ExitCodeInvalid
	}
	return ExitCodeError
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "runconfig",
		Short: "Resolve, validate and inspect test-run configuration",
		Long: `runconfig resolves a test.config file from a path or directory,
composes and validates it, and prints the effective configuration
with defaults and overrides applied.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(opts.logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", opts.logLevel, err)
			}
			opts.logger = zerolog.New(zerolog.ConsoleWriter{Out: errOut, NoColor: true}).
				Level(level).
				With().
				Timestamp().
				Logger()
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.envPrefix, "env-prefix", "RUNCONFIG_", "prefix for environment overrides")
	root.PersistentFlags().StringArrayVar(&opts.sets, "set", nil, "override an option, as key=value (repeatable)")

	root.AddCommand(
		newValidateCmd(opts),
		newPrintCmd(opts),
		newSaveCmd(opts),
		newWatchCmd(opts),
	)
	return root
}

// builder creates a runconfig builder for the optional path argument.
func (o *rootOptions) builder(args []string) (*runconfig.Builder, error) {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}

	overrides := make([]string, 0, len(o.sets))
	for _, set := range o.sets {
		key, value, ok := strings.Cut(set, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", set)
		}
		overrides = append(overrides, "--"+key+"="+value)
	}

	return runconfig.NewBuilder().
		WithFile(path).
		WithArgs(overrides).
		WithEnvPrefix(o.envPrefix).
		WithLogger(o.logger), nil
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var verbose bool
	var cpus int

	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate the configuration and report the first problem",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := opts.builder(args)
			if err != nil {
				return err
			}
			cfg, err := b.Build()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: ok (%d projects)\n", cfg.Location().Label(), len(cfg.Projects()))
			if verbose {
				return writeSummary(out, cfg, cpus)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the resolved run settings")
	cmd.Flags().IntVar(&cpus, "cpus", 0, "CPU count for percentage workers (default: this machine)")
	return cmd
}

// writeSummary prints the run settings a test runner derives from cfg.
func writeSummary(out io.Writer, cfg *runconfig.Config, cpus int) error {
	workers, err := cfg.Workers(cpus)
	if err != nil {
		return err
	}
	timeouts, err := cfg.Timeouts()
	if err != nil {
		return err
	}
	reporters, err := cfg.Reporters()
	if err != nil {
		return err
	}
	names := make([]string, len(reporters))
	for i, r := range reporters {
		names[i] = r.Name
	}

	fmt.Fprintf(out, "  workers: %d\n", workers)
	fmt.Fprintf(out, "  timeout: %s\n", timeouts.Test)
	fmt.Fprintf(out, "  globalTimeout: %s\n", timeouts.Global)
	fmt.Fprintf(out, "  expect.timeout: %s\n", timeouts.Expect)
	fmt.Fprintf(out, "  reporter: %s\n", strings.Join(names, ", "))
	if current, total, ok := cfg.Shard(); ok {
		fmt.Fprintf(out, "  shard: %d/%d\n", current, total)
	}
	return nil
}

func newPrintCmd(opts *rootOptions) *cobra.Command {
	var format string
	var project string
	var debug bool

	cmd := &cobra.Command{
		Use:   "print [path]",
		Short: "Print the effective configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := opts.builder(args)
			if err != nil {
				return err
			}
			cfg, err := b.Build()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if debug {
				_, err := io.WriteString(out, cfg.Debug())
				return err
			}
			if project != "" {
				p, ok := cfg.Project(project)
				if !ok {
					return fmt.Errorf("project not found: %q", project)
				}
				data, err := runconfig.Encode(format, p.Use)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}
			return cfg.Dump(out, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format (json, yaml, toml)")
	cmd.Flags().StringVarP(&project, "project", "p", "", "print the effective use options of one project")
	cmd.Flags().BoolVar(&debug, "debug", false, "print every value with its source")
	return cmd
}

func newSaveCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "save <output> [path]",
		Short: "Write the validated configuration to a data file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := opts.builder(args[1:])
			if err != nil {
				return err
			}
			cfg, err := b.Build()
			if err != nil {
				return err
			}
			if err := cfg.Save(args[0], format); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "output format (default: from the output extension)")
	return cmd
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Revalidate the configuration whenever it changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := opts.builder(args)
			if err != nil {
				return err
			}

			watchOpts := runconfig.DefaultWatchOptions()
			if debounce > 0 {
				watchOpts.Debounce = debounce
			}

			w, err := b.Watch(watchOpts)
			if err != nil {
				return err
			}
			defer w.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "watching %s\n", w.Current().Location().Label())
			return watchLoop(ctx, out, w.Subscribe())
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 0, "coalesce changes within this duration (e.g. 200ms)")
	return cmd
}

// watchLoop prints reload events until ctx is done or events is closed.
func watchLoop(ctx context.Context, out io.Writer, events <-chan runconfig.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if event.Err != nil {
				fmt.Fprintf(out, "invalid: %v\n", event.Err)
				continue
			}
			fmt.Fprintf(out, "reloaded: %s\n", strings.Join(event.Changed, ", "))
		}
	}
}
