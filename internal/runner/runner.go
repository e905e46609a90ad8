// Package runner spawns actions and streams their output line by line.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/charmbracelet/log"
	ps "github.com/mitchellh/go-ps"

	"github.com/five82/kadai/internal/action"
)

// SpawnFailedCode is the exit code reported when a process never started.
const SpawnFailedCode = -1

// ErrSpawn wraps failures to start a process.
var ErrSpawn = errors.New("failed to start")

// Stream identifies an output stream.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Event is either one output line or the final exit status.
type Event struct {
	Stream Stream
	Line   string

	Exit bool
	Code int
	// Err is set on the exit event of a process that could not be started.
	Err error
}

// Options describe how an action is executed.
type Options struct {
	Dir string
	// Env is layered over the kadai process environment.
	Env map[string]string
	// Interpreters overrides the default command per runtime name.
	Interpreters map[string]string
	// Stdin is nil for a closed stdin.
	Stdin  io.Reader
	Logger *log.Logger
}

// Handle is one running action.
type Handle struct {
	events chan Event
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
	term   sync.Once

	cmd    *exec.Cmd
	code   int
	logger *log.Logger
}

// Start launches a and returns immediately. It never fails: when the process
// cannot be started the handle reports a "failed to start" line followed by
// an exit event with SpawnFailedCode. Cancelling ctx kills the process.
func Start(ctx context.Context, a action.Action, opts Options) *Handle {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	h := newHandle(logger)

	cmd, err := Build(a, opts)
	if err != nil {
		h.fail(err)
		return h
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		h.fail(err)
		return h
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		h.fail(err)
		return h
	}
	if err := cmd.Start(); err != nil {
		h.fail(err)
		return h
	}
	h.cmd = cmd
	logger.Debug("action started", "id", a.ID, "pid", cmd.Process.Pid, "argv", cmd.Args)

	go func() {
		select {
		case <-ctx.Done():
			h.Kill()
		case <-h.done:
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go h.read(Stdout, stdout, &wg)
	go h.read(Stderr, stderr, &wg)
	go func() {
		wg.Wait()
		h.code = exitCode(cmd.Wait())
		logger.Debug("action exited", "id", a.ID, "code", h.code)
		h.send(Event{Exit: true, Code: h.code})
		close(h.events)
		close(h.done)
	}()
	return h
}

func newHandle(logger *log.Logger) *Handle {
	return &Handle{
		events: make(chan Event, 256),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Build returns the unstarted command for a. Callers that hand the terminal
// to the action set its stdio themselves.
func Build(a action.Action, opts Options) (*exec.Cmd, error) {
	argv, err := Command(a, opts.Interpreters)
	if err != nil {
		return nil, err
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = opts.Dir
	cmd.Env = Env(os.Environ(), opts.Env)
	cmd.Stdin = opts.Stdin
	return cmd, nil
}

func (h *Handle) fail(err error) {
	err = fmt.Errorf("%w: %v", ErrSpawn, err)
	h.logger.Warn("action failed to start", "err", err)
	h.code = SpawnFailedCode
	h.events <- Event{Stream: Stderr, Line: err.Error()}
	h.events <- Event{Exit: true, Code: SpawnFailedCode, Err: err}
	close(h.events)
	close(h.done)
}

func (h *Handle) read(stream Stream, r io.Reader, wg *sync.WaitGroup) {
	defer wg.Done()
	var split LineSplitter
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, line := range split.Push(buf[:n]) {
				h.send(Event{Stream: stream, Line: line})
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				// The stream counts as closed. The process is stopped but
				// its exit event still reaches the consumer.
				h.logger.Debug("output stream failed", "stream", stream, "err", err)
				h.terminate()
			}
			if line, ok := split.Flush(); ok {
				h.send(Event{Stream: stream, Line: line})
			}
			// Drain so the child never blocks on a full pipe after a kill.
			_, _ = io.Copy(io.Discard, r)
			return
		}
	}
}

// send delivers ev unless the handle was killed. Nothing reaches the
// consumer after Kill.
func (h *Handle) send(ev Event) {
	select {
	case <-h.stop:
		return
	default:
	}
	select {
	case h.events <- ev:
	case <-h.stop:
	}
}

// Events streams output lines in per-stream order, then a single exit event,
// then closes.
func (h *Handle) Events() <-chan Event {
	return h.events
}

// Done is closed once the process has exited and been reaped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the process exits and returns its exit code.
func (h *Handle) Wait() int {
	<-h.done
	return h.code
}

// Kill sends SIGTERM to the process and its descendants. It is safe to call
// more than once and after the process has exited. A process that ignores
// the signal is left running.
func (h *Handle) Kill() {
	h.once.Do(func() { close(h.stop) })
	h.terminate()
}

// terminate signals the process tree without silencing the handle.
func (h *Handle) terminate() {
	h.term.Do(func() {
		if h.cmd == nil || h.cmd.Process == nil {
			return
		}
		select {
		case <-h.done:
			return
		default:
		}
		pid := h.cmd.Process.Pid
		for _, child := range descendants(pid) {
			if p, err := os.FindProcess(child); err == nil {
				_ = p.Signal(syscall.SIGTERM)
			}
		}
		_ = h.cmd.Process.Signal(syscall.SIGTERM)
	})
}

// descendants lists every process below pid, parents before children.
func descendants(pid int) []int {
	procs, err := ps.Processes()
	if err != nil {
		return nil
	}
	children := make(map[int][]int)
	for _, p := range procs {
		children[p.PPid()] = append(children[p.PPid()], p.Pid())
	}
	var out []int
	queue := []int{pid}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for _, c := range children[next] {
			out = append(out, c)
			queue = append(queue, c)
		}
	}
	return out
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return SpawnFailedCode
}

// Stdio is the terminal an attached run inherits.
type Stdio struct {
	In       io.Reader
	Out, Err io.Writer
}

// RunAttached runs a in the foreground with the given stdio and returns its
// exit code. Cancelling ctx sends SIGTERM.
func RunAttached(ctx context.Context, a action.Action, opts Options, stdio Stdio) (int, error) {
	argv, err := Command(a, opts.Interpreters)
	if err != nil {
		return SpawnFailedCode, fmt.Errorf("%w: %v", ErrSpawn, err)
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.Dir = opts.Dir
	cmd.Env = Env(os.Environ(), opts.Env)
	cmd.Stdin = stdio.In
	cmd.Stdout = stdio.Out
	cmd.Stderr = stdio.Err
	if err := cmd.Start(); err != nil {
		return SpawnFailedCode, fmt.Errorf("%w: %v", ErrSpawn, err)
	}
	return exitCode(cmd.Wait()), nil
}
