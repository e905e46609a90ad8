// Package term switches the terminal into its alternate screen for actions
// that draw full-screen interfaces.
package term

import (
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	xterm "golang.org/x/term"
)

const (
	EnterAltScreen = "\x1b[?1049h\x1b[2J\x1b[H"
	// LeaveAltScreen also clears and homes the cursor so whatever draws
	// next starts from a clean slate.
	LeaveAltScreen = "\x1b[?1049l\x1b[2J\x1b[H"
)

// Lease holds the alternate screen until Release is called or the process
// receives SIGINT or SIGTERM, whichever happens first.
type Lease struct {
	w       io.Writer
	once    sync.Once
	signals chan os.Signal
	done    chan struct{}
}

// Enter writes the enter sequence to w and returns the lease that undoes it.
func Enter(w io.Writer) *Lease {
	l := &Lease{
		w:       w,
		signals: make(chan os.Signal, 1),
		done:    make(chan struct{}),
	}
	_, _ = io.WriteString(w, EnterAltScreen)
	signal.Notify(l.signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-l.signals:
			l.Release()
		case <-l.done:
		}
	}()
	return l
}

// EnterFullscreen is Enter for a real terminal. When f is not a terminal
// nothing is written and the returned lease is already released.
func EnterFullscreen(f *os.File) *Lease {
	if f == nil || !xterm.IsTerminal(int(f.Fd())) {
		l := &Lease{done: make(chan struct{})}
		l.once.Do(func() { close(l.done) })
		return l
	}
	return Enter(f)
}

// Release leaves the alternate screen. Only the first call writes.
func (l *Lease) Release() {
	l.once.Do(func() {
		signal.Stop(l.signals)
		_, _ = io.WriteString(l.w, LeaveAltScreen)
		close(l.done)
	})
}

// Done is closed once the lease has been released.
func (l *Lease) Done() <-chan struct{} {
	return l.done
}
