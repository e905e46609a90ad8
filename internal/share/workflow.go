// Package share walks the user through publishing newly added actions:
// an optional test run of each, then a destination and a target path.
package share

import (
	"strings"

	"github.com/five82/kadai/internal/action"
	"github.com/five82/kadai/internal/config"
	"github.com/five82/kadai/internal/nav"
)

// Step is the current stage of the workflow.
type Step int

const (
	StepTestRun Step = iota
	StepTestRunOutput
	StepPickDestination
	StepPickPath
)

func (s Step) String() string {
	switch s {
	case StepTestRun:
		return "test-run"
	case StepTestRunOutput:
		return "test-run-output"
	case StepPickDestination:
		return "pick-destination"
	case StepPickPath:
		return "pick-path"
	default:
		return "unknown"
	}
}

// CustomValue marks the free-text entry in the path options.
const CustomValue = "__custom__"

// Option is one selectable row.
type Option struct {
	Label string
	Value string
}

// Result is what the user chose.
type Result struct {
	// Destination is nil when the actions stay local.
	Destination *config.Source
	// Path is relative to the repository root, e.g. "actions/@acme/sam".
	Path    string
	Actions []action.Action
}

// Effect is what the caller must do after a key.
type Effect struct {
	// StopRun asks the caller to kill the current test run.
	StopRun bool
	// StartRun asks the caller to start a test run of this action and feed
	// its output back through AppendLine and Finish with RunID.
	StartRun *action.Action
	RunID    int
	// Done ends the workflow. Result is nil when the user cancelled.
	Done   bool
	Result *Result
}

// Workflow is the share state machine. It is driven from the UI event loop
// and is not safe for concurrent use.
type Workflow struct {
	actions      []action.Action
	destinations []config.Source
	pathOptions  []Option

	step     Step
	selected int
	dest     *config.Source
	custom   string

	runIndex int
	runID    int
	lines    []string
	running  bool
	exitCode int
	exited   bool
}

// New builds a workflow over actions. existingDirs are the directories
// directly below the actions root, offered as path choices.
func New(actions []action.Action, destinations []config.Source, org, user string, existingDirs []string) *Workflow {
	w := &Workflow{
		actions:      actions,
		destinations: destinations,
		pathOptions:  PathOptions(DefaultPath(org, user), org, existingDirs),
	}
	if len(actions) == 0 {
		w.step = w.afterTestRun()
	}
	return w
}

// DefaultPath is actions/@org/user when org is set, else actions.
func DefaultPath(org, user string) string {
	if org == "" {
		return "actions"
	}
	parts := []string{"actions", "@" + org}
	if user != "" {
		parts = append(parts, user)
	}
	return strings.Join(parts, "/")
}

// PathOptions lists the default org path, the actions root, each existing
// directory, and finally the free-text entry.
func PathOptions(defaultPath, org string, existingDirs []string) []Option {
	var opts []Option
	seen := make(map[string]bool)
	if org != "" && defaultPath != "actions" {
		opts = append(opts, Option{Label: defaultPath, Value: defaultPath})
		seen[defaultPath] = true
	}
	if !seen["actions"] {
		opts = append(opts, Option{Label: "actions/", Value: "actions"})
		seen["actions"] = true
	}
	for _, dir := range existingDirs {
		p := "actions/" + dir
		if seen[p] {
			continue
		}
		opts = append(opts, Option{Label: p + "/", Value: p})
		seen[p] = true
	}
	return append(opts, Option{Label: CustomValue, Value: CustomValue})
}

func (w *Workflow) afterTestRun() Step {
	if len(w.destinations) > 0 {
		return StepPickDestination
	}
	return StepPickPath
}

func (w *Workflow) Step() Step                  { return w.step }
func (w *Workflow) Selected() int               { return w.selected }
func (w *Workflow) Actions() []action.Action    { return w.actions }
func (w *Workflow) Custom() string              { return w.custom }
func (w *Workflow) PathChoices() []Option       { return w.pathOptions }
func (w *Workflow) Destination() *config.Source { return w.dest }

// DestinationChoices lists "Keep local" followed by one row per destination.
func (w *Workflow) DestinationChoices() []Option {
	opts := []Option{{Label: "Keep local"}}
	for _, d := range w.destinations {
		opts = append(opts, Option{Label: "Push to " + d.Repo, Value: d.Key()})
	}
	return opts
}

// TestRun describes the action currently offered for a test run.
type TestRun struct {
	Action   action.Action
	Index    int
	Total    int
	Lines    []string
	Running  bool
	Exited   bool
	ExitCode int
}

// Current returns the test run state. ok is false outside the test-run steps.
func (w *Workflow) Current() (TestRun, bool) {
	if w.step != StepTestRun && w.step != StepTestRunOutput {
		return TestRun{}, false
	}
	if w.runIndex >= len(w.actions) {
		return TestRun{}, false
	}
	return TestRun{
		Action:   w.actions[w.runIndex],
		Index:    w.runIndex,
		Total:    len(w.actions),
		Lines:    w.lines,
		Running:  w.running,
		Exited:   w.exited,
		ExitCode: w.exitCode,
	}, true
}

// OnCustom reports whether the free-text path entry is selected.
func (w *Workflow) OnCustom() bool {
	return w.step == StepPickPath && w.selected == len(w.pathOptions)-1
}

// AppendLine adds output from test run id. Output from any other run is
// ignored, as is output after the run finished.
func (w *Workflow) AppendLine(id int, line string) {
	if id != w.runID || !w.running {
		return
	}
	w.lines = append(w.lines, line)
}

// Finish records the exit code of test run id.
func (w *Workflow) Finish(id, code int) {
	if id != w.runID || !w.running {
		return
	}
	w.running = false
	w.exited = true
	w.exitCode = code
}

// HandleKey applies one keypress.
func (w *Workflow) HandleKey(k nav.Key) Effect {
	switch w.step {
	case StepTestRun:
		switch {
		case k.Is(nav.KeyEnter):
			return w.startRun()
		case k.Is(nav.KeyEsc, "s"):
			w.skipTestRuns()
		}
	case StepTestRunOutput:
		switch {
		case k.Is(nav.KeyEsc, "s"):
			stop := w.running
			w.skipTestRuns()
			return Effect{StopRun: stop}
		case k.Is(nav.KeyEnter) && w.exited:
			w.nextTestRun()
		}
	case StepPickDestination:
		return w.destinationKey(k)
	case StepPickPath:
		return w.pathKey(k)
	}
	return Effect{}
}

func (w *Workflow) startRun() Effect {
	w.step = StepTestRunOutput
	w.runID++
	w.lines = nil
	w.running = true
	w.exited = false
	w.exitCode = 0
	a := w.actions[w.runIndex]
	return Effect{StartRun: &a, RunID: w.runID}
}

func (w *Workflow) skipTestRuns() {
	w.running = false
	w.step = w.afterTestRun()
	w.selected = 0
}

func (w *Workflow) nextTestRun() {
	w.runIndex++
	w.lines = nil
	w.exited = false
	w.exitCode = 0
	if w.runIndex >= len(w.actions) {
		w.skipTestRuns()
		return
	}
	w.step = StepTestRun
}

func (w *Workflow) destinationKey(k nav.Key) Effect {
	opts := w.DestinationChoices()
	switch {
	case k.Is(nav.KeyEsc):
		return Effect{Done: true}
	case k.Is(nav.KeyUp, "k"):
		w.selected = max(0, w.selected-1)
	case k.Is(nav.KeyDown, "j"):
		w.selected = min(len(opts)-1, w.selected+1)
	case k.Is(nav.KeyEnter):
		w.dest = nil
		if w.selected > 0 {
			d := w.destinations[w.selected-1]
			w.dest = &d
		}
		w.step = StepPickPath
		w.selected = 0
	}
	return Effect{}
}

func (w *Workflow) pathKey(k nav.Key) Effect {
	if k.Is(nav.KeyEsc) {
		if len(w.destinations) > 0 {
			w.step = StepPickDestination
			w.selected = 0
			return Effect{}
		}
		return Effect{Done: true}
	}

	if w.OnCustom() {
		switch {
		case k.Is(nav.KeyEnter):
			if p := strings.TrimSpace(w.custom); p != "" {
				return w.done(p)
			}
		case k.Is(nav.KeyBackspace):
			if w.custom != "" {
				r := []rune(w.custom)
				w.custom = string(r[:len(r)-1])
			}
		case k.Is(nav.KeyUp):
			w.selected = max(0, w.selected-1)
		case k.Name == "" && k.Text != "":
			w.custom += k.Text
		}
		return Effect{}
	}

	switch {
	case k.Is(nav.KeyEnter):
		return w.done(w.pathOptions[w.selected].Value)
	case k.Is(nav.KeyUp, "k"):
		w.selected = max(0, w.selected-1)
	case k.Is(nav.KeyDown, "j"):
		w.selected = min(len(w.pathOptions)-1, w.selected+1)
	}
	return Effect{}
}

func (w *Workflow) done(path string) Effect {
	return Effect{Done: true, Result: &Result{
		Destination: w.dest,
		Path:        path,
		Actions:     w.actions,
	}}
}
