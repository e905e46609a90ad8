// Package keys splits a raw input byte stream into one token per keypress.
//
// A real terminal delivers each keypress as its own read. Piped input
// arrives in arbitrary chunks, so a test harness writing "\x1b[Aab" would
// otherwise look like a single paste. Reader restores the per-key cadence.
package keys

const esc = 0x1b

// Tokenize splits buf into keypress tokens. CSI sequences (ESC [ params
// intermediates final) and SS3 sequences (ESC O x) are single tokens; every
// other byte is its own token. A CSI or SS3 sequence cut off at the end of
// buf is returned as rest so it can be completed by the next chunk. A bare
// ESC at the end of buf is the Escape key and is emitted at once.
func Tokenize(buf []byte) (tokens [][]byte, rest []byte) {
	i := 0
	for i < len(buf) {
		if buf[i] != esc {
			tokens = append(tokens, buf[i:i+1])
			i++
			continue
		}
		n, complete := escapeLen(buf[i:])
		if !complete {
			return tokens, buf[i:]
		}
		tokens = append(tokens, buf[i:i+n])
		i += n
	}
	return tokens, nil
}

// escapeLen measures the escape sequence at the start of b. complete is
// false when b ends before the sequence does.
func escapeLen(b []byte) (n int, complete bool) {
	if len(b) < 2 {
		return 1, true
	}
	switch b[1] {
	case '[':
		j := 2
		for j < len(b) && b[j] >= 0x30 && b[j] <= 0x3f {
			j++
		}
		for j < len(b) && b[j] >= 0x20 && b[j] <= 0x2f {
			j++
		}
		if j == len(b) {
			return j, false
		}
		if b[j] >= 0x40 && b[j] <= 0x7e {
			return j + 1, true
		}
		// Malformed: emit the bare ESC and let the rest tokenize normally.
		return 1, true
	case 'O':
		if len(b) < 3 {
			return 2, false
		}
		return 3, true
	default:
		return 1, true
	}
}
