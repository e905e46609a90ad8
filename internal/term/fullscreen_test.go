package term

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestEnterAndRelease(t *testing.T) {
	var out syncBuffer
	l := Enter(&out)
	if out.String() != EnterAltScreen {
		t.Fatalf("enter wrote %q", out.String())
	}
	l.Release()
	l.Release()
	if got := strings.Count(out.String(), "\x1b[?1049l"); got != 1 {
		t.Fatalf("leave sequence written %d times, want 1", got)
	}
	select {
	case <-l.Done():
	default:
		t.Fatal("Done should be closed after Release")
	}
}

func TestEnterFullscreenNonTerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()

	l := EnterFullscreen(f)
	l.Release()
	info, _ := f.Stat()
	if info.Size() != 0 {
		t.Fatalf("wrote %d bytes to a non-terminal", info.Size())
	}
	select {
	case <-l.Done():
	default:
		t.Fatal("non-terminal lease should start released")
	}
}
