package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/kadai/internal/action"
)

// Theme is a named palette. Menus render on the terminal's own background;
// only the header and command bar paint Surface.
type Theme struct {
	Name string

	Surface     string
	SelectionBg string
	Selection   string
	Border      string

	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string

	// RuntimeColors tint the runtime badge next to each action.
	RuntimeColors map[action.Runtime]string
}

// Styles returns lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	fg := func(c string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
	}
	return Styles{
		Text:        fg(t.Text),
		MutedText:   fg(t.Muted),
		FaintText:   fg(t.Faint),
		AccentText:  fg(t.Accent),
		SuccessText: fg(t.Success).Bold(true),
		WarningText: fg(t.Warning),
		DangerText:  fg(t.Danger).Bold(true),
		InfoText:    fg(t.Info),

		Header: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)).
			Padding(0, 1),
		Logo: fg(t.Warning).Bold(true),
		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color(t.SelectionBg)).
			Foreground(lipgloss.Color(t.Selection)),
		Separator: fg(t.Faint).Bold(true),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.Border)).
			Padding(0, 1),

		runtimeColors: t.RuntimeColors,
		muted:         t.Muted,
	}
}

// Styles contains pre-built lipgloss styles for a theme.
type Styles struct {
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style
	InfoText    lipgloss.Style

	Header    lipgloss.Style
	Logo      lipgloss.Style
	Selected  lipgloss.Style
	Separator lipgloss.Style
	Panel     lipgloss.Style

	runtimeColors map[action.Runtime]string
	muted         string
}

// RuntimeStyle returns the badge style for rt.
func (s Styles) RuntimeStyle(rt action.Runtime) lipgloss.Style {
	color := s.runtimeColors[rt]
	if color == "" {
		color = s.muted
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

var themes = map[string]Theme{
	"Nightfox": nightfoxTheme(),
	"Kanagawa": kanagawaTheme(),
	"Slate":    slateTheme(),
}

var themeOrder = []string{"Nightfox", "Kanagawa", "Slate"}

// GetTheme returns a theme by name, falling back to the first one.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return themes[themeOrder[0]]
}

// NextTheme returns the theme after current in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

// ThemeNames returns the available theme names in cycle order.
func ThemeNames() []string {
	return append([]string(nil), themeOrder...)
}

func nightfoxTheme() Theme {
	// https://github.com/EdenEast/nightfox.nvim
	return Theme{
		Name:        "Nightfox",
		Surface:     "#192330", // bg1
		SelectionBg: "#2b3b51", // sel0
		Selection:   "#cdcecf", // fg1
		Border:      "#39506d", // bg4

		Text:    "#cdcecf",
		Muted:   "#738091", // comment
		Faint:   "#71839b", // fg3
		Accent:  "#719cd6", // blue
		Success: "#81b29a", // green
		Warning: "#dbc074", // yellow
		Danger:  "#c94f6d", // red
		Info:    "#63cdcf", // cyan

		RuntimeColors: map[action.Runtime]string{
			action.RuntimeBash:       "#81b29a",
			action.RuntimePython:     "#dbc074",
			action.RuntimeNode:       "#63cdcf",
			action.RuntimeBun:        "#f4a261", // orange
			action.RuntimeExecutable: "#71839b",
			action.RuntimeComponent:  "#9d79d6", // magenta
		},
	}
}

func kanagawaTheme() Theme {
	// https://github.com/rebelot/kanagawa.nvim
	return Theme{
		Name:        "Kanagawa",
		Surface:     "#1F1F28", // sumiInk3
		SelectionBg: "#2D4F67", // waveBlue1
		Selection:   "#DCD7BA", // fujiWhite
		Border:      "#54546D", // sumiInk6

		Text:    "#DCD7BA",
		Muted:   "#C8C093", // oldWhite
		Faint:   "#727169", // fujiGray
		Accent:  "#7E9CD8", // crystalBlue
		Success: "#98BB6C", // springGreen
		Warning: "#E6C384", // carpYellow
		Danger:  "#E46876", // waveRed
		Info:    "#7FB4CA", // springBlue

		RuntimeColors: map[action.Runtime]string{
			action.RuntimeBash:       "#98BB6C",
			action.RuntimePython:     "#E6C384",
			action.RuntimeNode:       "#7FB4CA",
			action.RuntimeBun:        "#FFA066", // surimiOrange
			action.RuntimeExecutable: "#727169",
			action.RuntimeComponent:  "#957FB8", // oniViolet
		},
	}
}

func slateTheme() Theme {
	// Tailwind slate/sky: https://tailwindcss.com/docs/colors
	return Theme{
		Name:        "Slate",
		Surface:     "#0f172a", // slate-900
		SelectionBg: "#0284c7", // sky-600
		Selection:   "#f8fafc", // slate-50
		Border:      "#334155", // slate-700

		Text:    "#f1f5f9", // slate-100
		Muted:   "#94a3b8", // slate-400
		Faint:   "#64748b", // slate-500
		Accent:  "#38bdf8", // sky-400
		Success: "#22c55e", // green-500
		Warning: "#f59e0b", // amber-500
		Danger:  "#ef4444", // red-500
		Info:    "#06b6d4", // cyan-500

		RuntimeColors: map[action.Runtime]string{
			action.RuntimeBash:       "#22c55e",
			action.RuntimePython:     "#f59e0b",
			action.RuntimeNode:       "#06b6d4",
			action.RuntimeBun:        "#fb923c", // orange-400
			action.RuntimeExecutable: "#64748b",
			action.RuntimeComponent:  "#a78bfa", // violet-400
		},
	}
}
