package keys

import (
	"io"
	"runtime"
	"sync"
)

// Reader wraps a byte stream and returns exactly one keypress token per Read.
type Reader struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  [][]byte
	err    error
	closed bool
}

// NewReader starts draining src in the background.
func NewReader(src io.Reader) *Reader {
	r := &Reader{}
	r.cond = sync.NewCond(&r.mu)
	go r.pump(src)
	return r
}

func (r *Reader) pump(src io.Reader) {
	buf := make([]byte, 4096)
	var pending []byte
	for {
		n, err := src.Read(buf)
		if n > 0 {
			data := append(pending, buf[:n]...)
			tokens, rest := Tokenize(data)
			pending = append([]byte(nil), rest...)
			r.push(tokens, nil)
		}
		if err != nil {
			var tail [][]byte
			if len(pending) > 0 {
				tail = [][]byte{pending}
			}
			if err == io.EOF {
				err = nil
			}
			r.push(tail, err)
			r.finish()
			return
		}
	}
}

func (r *Reader) push(tokens [][]byte, err error) {
	r.mu.Lock()
	for _, t := range tokens {
		r.queue = append(r.queue, append([]byte(nil), t...))
	}
	if err != nil {
		r.err = err
	}
	r.mu.Unlock()
	r.cond.Broadcast()
}

func (r *Reader) finish() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cond.Broadcast()
}

// Read copies the next token into p. It blocks until a token is available
// and returns io.EOF once the source has ended and every token has been
// delivered. A token longer than p is split across reads.
func (r *Reader) Read(p []byte) (int, error) {
	r.mu.Lock()
	for len(r.queue) == 0 && !r.closed {
		r.cond.Wait()
	}
	if len(r.queue) == 0 {
		err := r.err
		r.mu.Unlock()
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}
	tok := r.queue[0]
	n := copy(p, tok)
	if n < len(tok) {
		r.queue[0] = tok[n:]
	} else {
		r.queue = r.queue[1:]
	}
	more := len(r.queue) > 0
	r.mu.Unlock()

	if more {
		// Let the consumer handle this key before the next one is offered.
		runtime.Gosched()
	}
	return n, nil
}
