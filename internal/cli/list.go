package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/five82/kadai/internal/action"
	"github.com/five82/kadai/internal/logging"
)

type listEntry struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Emoji       string         `json:"emoji,omitempty" yaml:"emoji,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Category    []string       `json:"category" yaml:"category"`
	Runtime     action.Runtime `json:"runtime" yaml:"runtime"`
	Confirm     bool           `json:"confirm" yaml:"confirm"`
	Source      string         `json:"source,omitempty" yaml:"source,omitempty"`
}

func listCmd(g *globals) *cobra.Command {
	var all bool
	var format string

	c := &cobra.Command{
		Use:   "list",
		Short: "Print the available actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := g.openSession(cmd.Context(), logging.Discard())
			if err != nil {
				return err
			}
			defer session.Close()
			return writeList(g.streams.Out, listEntries(session.Actions(), all), format)
		},
	}

	c.Flags().BoolVar(&all, "all", false, "Include hidden actions")
	c.Flags().StringVar(&format, "format", "json", "Output format: json|yaml")
	return c
}

func listEntries(actions []action.Action, all bool) []listEntry {
	entries := make([]listEntry, 0, len(actions))
	for _, a := range actions {
		if a.Meta.Hidden && !all {
			continue
		}
		entries = append(entries, listEntry{
			ID:          a.ID,
			Name:        a.Meta.Name,
			Emoji:       a.Meta.Emoji,
			Description: a.Meta.Description,
			Category:    append([]string{}, a.Category...),
			Runtime:     a.Runtime,
			Confirm:     a.Meta.Confirm,
			Source:      a.Source,
		})
	}
	return entries
}

func writeList(w io.Writer, entries []listEntry, format string) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q (expected json|yaml)", format)
	}
}
