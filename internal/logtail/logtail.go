package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns the whole file. A missing file reads as empty.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// levelTokens maps the level column written by charmbracelet/log.
var levelTokens = map[string]log.Level{
	"DEBU": log.DebugLevel,
	"INFO": log.InfoLevel,
	"WARN": log.WarnLevel,
	"ERRO": log.ErrorLevel,
	"FATA": log.FatalLevel,
}

// LineLevel extracts the level of a log line. ok is false for continuation
// lines and anything else without a level column.
func LineLevel(line string) (log.Level, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, false
	}
	lvl, ok := levelTokens[fields[1]]
	return lvl, ok
}

// FilterLevel keeps lines at or above threshold. Lines without a level column
// follow the decision made for the line before them.
func FilterLevel(lines []string, threshold log.Level) []string {
	var out []string
	keep := true
	for _, line := range lines {
		if lvl, ok := LineLevel(line); ok {
			keep = lvl >= threshold
		}
		if keep {
			out = append(out, line)
		}
	}
	return out
}

var (
	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	levelStyle = map[log.Level]lipgloss.Style{
		log.DebugLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")).Bold(true),
		log.InfoLevel:  lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F")).Bold(true),
		log.WarnLevel:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true),
		log.ErrorLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		log.FatalLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
	}
)

// ColorizeLine styles the timestamp and level columns of a log line.
func ColorizeLine(line string) string {
	lvl, ok := LineLevel(line)
	if !ok {
		return line
	}
	ts, rest, _ := strings.Cut(strings.TrimLeft(line, " "), " ")
	token, msg, _ := strings.Cut(strings.TrimLeft(rest, " "), " ")
	return timeStyle.Render(ts) + " " + levelStyle[lvl].Render(token) + " " + msg
}

// ColorizeLines applies ColorizeLine to each line.
func ColorizeLines(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = ColorizeLine(line)
	}
	return out
}
