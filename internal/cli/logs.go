package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/five82/kadai/internal/config"
	"github.com/five82/kadai/internal/logtail"
)

const defaultLogLines = 200

func logsCmd(g *globals) *cobra.Command {
	var lines int
	var level string

	c := &cobra.Command{
		Use:   "logs",
		Short: "Print the end of the kadai log file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path := config.LogPath()
			out, err := logtail.Read(path, lines)
			if err != nil {
				return err
			}
			if level != "" {
				threshold, err := log.ParseLevel(strings.ToLower(level))
				if err != nil {
					return fmt.Errorf("invalid --level %q: %w", level, err)
				}
				out = logtail.FilterLevel(out, threshold)
			}
			if len(out) == 0 {
				fmt.Fprintf(g.streams.Err, "(no log entries in %s)\n", path)
				return nil
			}
			if f, ok := g.streams.Out.(*os.File); ok && isTerminal(f) {
				out = logtail.ColorizeLines(out)
			}
			for _, line := range out {
				fmt.Fprintln(g.streams.Out, line)
			}
			return nil
		},
	}

	c.Flags().IntVarP(&lines, "lines", "n", defaultLogLines, "Number of lines to show (0 for all)")
	c.Flags().StringVar(&level, "level", "", "Only show entries at or above this level")
	return c
}
