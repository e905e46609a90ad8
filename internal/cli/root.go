// Package cli defines the kadai command line: the interactive menu plus the
// list, run and logs subcommands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/five82/kadai/internal/app"
	"github.com/five82/kadai/internal/config"
	"github.com/five82/kadai/internal/keys"
	"github.com/five82/kadai/internal/logging"
)

// Streams are the standard streams a command reads and writes.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// StdStreams returns the process's own streams.
func StdStreams() Streams {
	return Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// ExitError makes Execute return Code without printing anything.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Execute runs the kadai command line and returns the process exit code.
func Execute(ctx context.Context, args []string, streams Streams) int {
	cmd := NewRootCmd(streams)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	fmt.Fprintf(streams.Err, "kadai: %v\n", err)
	return 1
}

type globals struct {
	streams Streams
	cwd     string
	debug   bool
	noSync  bool
}

// NewRootCmd builds the command tree.
func NewRootCmd(streams Streams) *cobra.Command {
	g := &globals{streams: streams}

	cmd := &cobra.Command{
		Use:           "kadai",
		Short:         "kadai: a menu for your project's scripts",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.runTUI(cmd.Context())
		},
	}
	cmd.SetIn(streams.In)
	cmd.SetOut(streams.Out)
	cmd.SetErr(streams.Err)

	cmd.PersistentFlags().StringVar(&g.cwd, "cwd", "", "start the .kadai search from this directory")
	cmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "enable verbose logging to the kadai log file")
	cmd.PersistentFlags().BoolVar(&g.noSync, "no-sync", false, "ignore remote action sources")

	cmd.AddCommand(listCmd(g), runCmd(g), logsCmd(g))
	return cmd
}

func (g *globals) runTUI(ctx context.Context) error {
	dir, err := g.workDir()
	if err != nil {
		return err
	}
	projectDir, err := config.FindProjectDir(dir)
	if errors.Is(err, config.ErrNoProject) {
		if !interactive(g.streams.In) {
			return errors.New("no .kadai directory found; create .kadai/actions/ to get started")
		}
		fmt.Fprintln(g.streams.Out, "No .kadai directory found. Initializing...")
		if projectDir, err = Scaffold(dir); err != nil {
			return err
		}
		fmt.Fprintln(g.streams.Out, "Created .kadai/actions/ with a sample action.")
	} else if err != nil {
		return err
	}

	cfg, err := config.Load(projectDir)
	if err != nil {
		return err
	}
	logger, closeLog := g.openLogger()
	defer closeLog()
	logger.Info("starting", "project", cfg.Root, "sources", len(cfg.Sources))

	session, err := app.OpenSession(ctx, app.SessionOptions{Config: cfg, Logger: logger, NoSync: g.noSync})
	if err != nil {
		return err
	}
	defer session.Close()

	opts := app.Options{Session: session}
	if f, ok := g.streams.In.(*os.File); !ok || f != os.Stdin {
		opts.Input = keys.NewReader(g.streams.In)
	}
	if g.streams.Out != os.Stdout {
		opts.Output = g.streams.Out
	}
	return app.Run(ctx, opts)
}

func (g *globals) workDir() (string, error) {
	dir := g.cwd
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working dir: %w", err)
		}
		dir = wd
	}
	return filepath.Abs(dir)
}

// loadConfig finds and loads the project for a non-interactive command.
func (g *globals) loadConfig() (config.Config, error) {
	dir, err := g.workDir()
	if err != nil {
		return config.Config{}, err
	}
	projectDir, err := config.FindProjectDir(dir)
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(projectDir)
}

// openSession loads the project with cached sources only.
func (g *globals) openSession(ctx context.Context, logger *log.Logger) (*app.Session, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	return app.OpenSession(ctx, app.SessionOptions{Config: cfg, Logger: logger, NoSync: g.noSync})
}

func (g *globals) openLogger() (*log.Logger, func()) {
	logger, closer, err := logging.Open(logging.Options{Path: config.LogPath(), Debug: g.debug})
	if err != nil {
		fmt.Fprintf(g.streams.Err, "kadai: logging disabled: %v\n", err)
		return logging.Discard(), func() {}
	}
	return logger, func() { _ = closer.Close() }
}

func interactive(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && isTerminal(f)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
