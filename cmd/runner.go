package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/toplikes/internal/auth"
	"github.com/desertthunder/toplikes/internal/formatter"
	"github.com/desertthunder/toplikes/internal/repositories"
	"github.com/desertthunder/toplikes/internal/shared"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	browser    auth.Browser
	logger     *log.Logger
	output     io.Writer // results: table, JSON or CSV
	prompt     io.Writer // progress, prompts and the authorization URL
	input      io.Reader
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config // when nil, loaded from --config before any command runs
	ConfigPath string
	HTTPClient *http.Client // when nil, built from the http section of the config
	Browser    auth.Browser
	Logger     *log.Logger
	Output     io.Writer
	Prompt     io.Writer
	Input      io.Reader
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Prompt == nil {
		opts.Prompt = os.Stderr
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Browser == nil {
		opts.Browser = auth.BrowserFunc(shared.OpenBrowser)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		browser:    opts.Browser,
		logger:     opts.Logger,
		output:     opts.Output,
		prompt:     opts.Prompt,
		input:      opts.Input,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){historyCommand, setupCommand} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before applies --verbose and loads the configuration once for every command.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if r.configPath == "" {
		r.configPath = cmd.String("config")
	}

	if r.config == nil {
		config, err := shared.LoadConfigOrDefault(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
		r.logger.Debug("configuration loaded", "path", r.configPath)
	}

	if r.httpClient == nil {
		r.httpClient = &http.Client{Timeout: r.config.HTTP.Timeout}
	}

	return ctx, nil
}

// openDatabase opens the configured history database with migrations applied.
func (r *Runner) openDatabase() (*sql.DB, *repositories.SnapshotRepository, error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database %s: %w", r.config.Database.Path, err)
	}
	return db, repositories.NewSnapshotRepository(db), nil
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f any) bool {
	file, ok := f.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}

// readLine prints label when input is interactive and returns the next trimmed line of input.
func (r *Runner) readLine(label string) (string, error) {
	if isTerminal(r.input) {
		fmt.Fprint(r.prompt, label)
	}

	line, err := bufio.NewReader(r.input).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (r *Runner) writeJSON(data any) error {
	output, err := formatter.MarshalJSON(data)
	if err != nil {
		return err
	}
	return r.write(output)
}

func (r *Runner) write(b []byte) error {
	if _, err := r.output.Write(b); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	return r.write([]byte(fmt.Sprintf(format, args...)))
}

// status writes a progress line to the prompt stream so results on stdout stay machine-readable.
func (r *Runner) status(format string, args ...any) {
	fmt.Fprintf(r.prompt, format+"\n", args...)
}
