package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/exam-events/internal/config"
	"github.com/pfrederiksen/exam-events/internal/logger"
	"github.com/pfrederiksen/exam-events/internal/storage"
)

const (
	ExitSuccess  = 0
	ExitError    = 1
	ExitNewExams = 2
)

// exitCodeError ends the process with a specific code and no error message
type exitCodeError struct {
	code int
}

func (e exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// app holds state shared by every command
type app struct {
	cfgPath  string
	format   string
	logLevel string
	verbose  bool

	cfg *config.Config
	log logger.Logger

	out    io.Writer
	errOut io.Writer
	now    func() time.Time
}

func newApp() *app {
	return &app{out: os.Stdout, errOut: os.Stderr, now: time.Now}
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(newApp())
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exam-events",
		Short: "Collect government exam notices into a searchable calendar",
		Long: `A CLI tool that scrapes exam notices from job portals and exam authorities,
extracts exam and application dates, and keeps one deduplicated record per exam.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	cmd.SetOut(a.out)
	cmd.SetErr(a.errOut)

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgPath, "config", "", "Config file (default ./config.yaml, ./config/config.yaml or ~/.config/exam-events/config.yaml)")
	flags.StringVar(&a.format, "format", "text", "Output format: text, json or ics (exam listings only)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level override: debug, info, warn or error")
	flags.BoolVar(&a.verbose, "verbose", false, "Enable debug logging")

	cmd.AddCommand(
		newRunCmd(a),
		newListCmd(a),
		newUpcomingCmd(a),
		newStatsCmd(a),
		newPurgeCmd(a),
		newExportCmd(a),
		newSeedCmd(a),
		newServeCmd(a),
		newExtractCmd(a),
		newSourcesCmd(a),
	)
	return cmd
}

// setup loads configuration and builds the logger before any command runs
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if _, err := a.outputFormat(); err != nil {
		return err
	}

	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}

	a.cfg = cfg
	a.log = log.With(logger.String("command", cmd.Name()))
	return nil
}

func (a *app) outputFormat() (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(a.format))
	switch format {
	case FormatText, FormatJSON, FormatICS:
	default:
		return "", fmt.Errorf("invalid format: %s (must be 'text', 'json' or 'ics')", a.format)
	}
	return format, nil
}

// openStore opens the configured database and applies the schema
func (a *app) openStore(ctx context.Context) (*storage.Store, error) {
	store, err := storage.Open(ctx, a.cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// Execute runs the CLI and exits with the command's status
func Execute() {
	os.Exit(run(context.Background(), NewRootCmd(), os.Args[1:], os.Stderr))
}

func run(ctx context.Context, cmd *cobra.Command, args []string, errOut io.Writer) int {
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		var exit exitCodeError
		if errors.As(err, &exit) {
			return exit.code
		}
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}
