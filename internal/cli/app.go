// Package cli provides the arion command line.
//
// stdout carries nothing but JSON reports, one per line; logs go to stderr.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ironsheep/arion/internal/config"
	"github.com/ironsheep/arion/internal/logging"
	"github.com/ironsheep/arion/internal/pipeline"
)

// Version information set at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// ErrFailed is returned when at least one report had result false.
var ErrFailed = errors.New("one or more commands failed")

// maxLine bounds a single command document read from stdin.
const maxLine = 10 * 1024 * 1024

// App is the command line application.
type App struct {
	root   *cobra.Command
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string
	logFormat  string
	pretty     bool
}

// New creates the application with the process's standard streams.
func New() *App {
	app := &App{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "arion [command-json]",
		Short: "Batch image resize and metadata executor",
		Long: `arion decodes one source image and runs a list of operations on it
(resize, read_meta, copy, fingerprint), printing a JSON report.

With no argument, newline-delimited command documents are read from stdin
and one report line is written per document.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          app.run,
	}

	flags := app.root.PersistentFlags()
	flags.StringVar(&app.configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&app.logLevel, "log-level", "", "log level (trace, debug, info, warn, error, disabled)")
	flags.StringVar(&app.logFormat, "log-format", "", "log format (json, console)")
	flags.BoolVar(&app.pretty, "pretty", false, "indent JSON reports")

	app.root.AddCommand(app.newVersionCmd())
	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// WithInput sets the reader used for stdin batch mode.
func (a *App) WithInput(stdin io.Reader) *App {
	a.stdin = stdin
	a.root.SetIn(stdin)
	return a
}

// Execute runs the application until it finishes or is interrupted.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the application with specific arguments.
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

func (a *App) run(cmd *cobra.Command, args []string) error {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Writer: a.stderr})
	if err != nil {
		return err
	}
	r := &runner{cfg: cfg, log: log, out: a.stdout}

	if len(args) == 1 {
		if !r.execute([]byte(args[0])) {
			return ErrFailed
		}
		return nil
	}
	return r.stream(cmd.Context(), a.stdin)
}

// loadConfig applies flags set on the command line over the file and
// environment settings.
func (a *App) loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()
	return config.Load(a.configPath, func(cfg *config.Config) {
		if flags.Changed("log-level") {
			cfg.LogLevel = a.logLevel
		}
		if flags.Changed("log-format") {
			cfg.LogFormat = a.logFormat
		}
		if flags.Changed("pretty") {
			cfg.PrettyJSON = a.pretty
		}
	})
}

// runner executes command documents and writes their reports.
type runner struct {
	cfg config.Config
	log zerolog.Logger
	out io.Writer
}

// execute runs one command document and prints its report. It returns the
// report's result.
func (r *runner) execute(doc []byte) bool {
	c := pipeline.New(pipeline.Options{
		Logger:             r.log,
		CorrectOrientation: r.cfg.CorrectRotation,
		IgnoreMetadata:     r.cfg.IgnoreMetadata,
	})
	if c.Setup(doc) {
		c.Run()
	}
	report := c.JSON(r.cfg.PrettyJSON)
	if _, err := io.WriteString(r.out, report+"\n"); err != nil {
		r.log.Error().Err(err).Msg("failed to write report")
		return false
	}
	return c.Report().Result
}

// stream runs every non-blank line of in as a command document.
func (r *runner) stream(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxLine)

	ok := true
	line := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line++
		doc := scanner.Bytes()
		if len(strings.TrimSpace(string(doc))) == 0 {
			continue
		}
		if !r.execute(doc) {
			r.log.Debug().Int("line", line).Msg("command failed")
			ok = false
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "failed to read commands")
	}
	if !ok {
		return ErrFailed
	}
	return nil
}

type versionInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return json.NewEncoder(a.stdout).Encode(versionInfo{
				Version:   Version,
				BuildTime: BuildTime,
				GitCommit: GitCommit,
			})
		},
	}
}
