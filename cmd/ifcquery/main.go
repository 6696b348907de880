// Command ifcquery answers structured queries over building models. It runs
// the HTTP service (serve) or answers a single query against a graph
// document on disk (query, types, storeys, snapshot, catalog).
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ifcquery/internal/config"
	"ifcquery/internal/core"
	"ifcquery/internal/platform/logger"
)

var exitFunc = os.Exit

// main runs the command line and exits with the status returned by cli.
func main() {
	exitFunc(cli(os.Args[1:], os.Stdout, os.Stderr))
}

func cli(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(&app{stdout: stdout, stderr: stderr})
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// app carries what every subcommand shares: output streams, the resolved
// configuration and the logger.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string
	trace      bool

	cfg    *config.Config
	log    *logger.Logger
	tracer *core.JSONTraceTracer
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "ifcquery",
		Short:         "Query building models for counts, quantities, locations and systems",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				a.log.Sync()
			}
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "YAML config file (IFCQUERY_* variables override it)")
	flags.StringVar(&a.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	flags.BoolVar(&a.trace, "trace", false, "write JSON trace spans of service operations to stderr")

	root.AddCommand(
		newServeCmd(a),
		newQueryCmd(a),
		newTypesCmd(a),
		newStoreysCmd(a),
		newSnapshotCmd(a),
		newCatalogCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	if a.trace {
		a.tracer = core.NewJSONTracer(a.stderr)
	}
	return nil
}

// serviceOptions are the options shared by the server and the one-shot
// commands.
func (a *app) serviceOptions() []core.Option {
	opts := []core.Option{
		core.WithLogger(a.log),
		core.WithSessionOptions(a.cfg.SessionOptions()),
	}
	if a.tracer != nil {
		opts = append(opts, core.WithTracer(a.tracer))
	}
	if a.cfg.Log.Audit {
		opts = append(opts, core.WithAuditRecorder(core.NewLogAuditRecorder(a.log.With("component", "audit"))))
	}
	return opts
}
