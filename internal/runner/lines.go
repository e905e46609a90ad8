package runner

import "bytes"

// LineSplitter turns arbitrary chunks into complete lines. A trailing partial
// line is held until more data arrives or Flush is called.
type LineSplitter struct {
	buf []byte
}

// Push appends chunk and returns every line it completed, without the
// newline or a preceding carriage return.
func (s *LineSplitter) Push(chunk []byte) []string {
	s.buf = append(s.buf, chunk...)
	var lines []string
	for {
		i := bytes.IndexByte(s.buf, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(bytes.TrimSuffix(s.buf[:i], []byte("\r"))))
		s.buf = s.buf[i+1:]
	}
	if len(s.buf) == 0 {
		s.buf = nil
	}
	return lines
}

// Flush returns the held partial line, if any.
func (s *LineSplitter) Flush() (string, bool) {
	if len(s.buf) == 0 {
		return "", false
	}
	line := string(bytes.TrimSuffix(s.buf, []byte("\r")))
	s.buf = nil
	return line, true
}
