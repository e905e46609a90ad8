package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/five82/kadai/internal/action"
	"github.com/five82/kadai/internal/runner"
	"github.com/five82/kadai/internal/term"
)

func runCmd(g *globals) *cobra.Command {
	var yes bool

	c := &cobra.Command{
		Use:   "run <id>",
		Short: "Run one action in the foreground and exit with its code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog := g.openLogger()
			defer closeLog()

			session, err := g.openSession(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer session.Close()

			a, err := action.Find(session.Actions(), args[0])
			if err != nil {
				return err
			}

			stdin := g.streams.In
			if a.Meta.Confirm && !yes && interactive(stdin) {
				reader := bufio.NewReader(stdin)
				if !confirm(reader, g.streams.Err, a) {
					fmt.Fprintln(g.streams.Err, "Cancelled.")
					return &ExitError{Code: 1}
				}
				stdin = reader
			}

			cfg := session.Config
			opts := runner.Options{
				Dir:          cfg.Root,
				Env:          cfg.Env,
				Interpreters: cfg.Interpreters,
				Logger:       logger,
			}
			logger.Info("run", "action", a.ID, "runtime", a.Runtime)

			var lease *term.Lease
			if a.Meta.Fullscreen {
				if f, ok := g.streams.Out.(*os.File); ok {
					lease = term.EnterFullscreen(f)
				}
			}
			code, err := runner.RunAttached(cmd.Context(), a, opts, runner.Stdio{
				In:  stdin,
				Out: g.streams.Out,
				Err: g.streams.Err,
			})
			if lease != nil {
				lease.Release()
			}
			if err != nil {
				logger.Error("run failed", "action", a.ID, "err", err)
				return fmt.Errorf("run %s: %w", a.ID, err)
			}
			logger.Info("run finished", "action", a.ID, "code", code)

			if f, ok := g.streams.Err.(*os.File); ok && isTerminal(f) {
				printExitLine(g.streams.Err, code)
			}
			if code != 0 {
				return &ExitError{Code: code}
			}
			return nil
		},
	}

	c.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return c
}

// confirm asks before running a. Anything but y or yes declines.
func confirm(r *bufio.Reader, w io.Writer, a action.Action) bool {
	fmt.Fprintf(w, "Run %s? [y/N] ", a.Title())
	answer, err := r.ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func printExitLine(w io.Writer, code int) {
	if code == 0 {
		color.New(color.FgGreen).Fprintln(w, "✓ exit code 0")
		return
	}
	color.New(color.FgRed).Fprintf(w, "✗ exit code %d\n", code)
}
