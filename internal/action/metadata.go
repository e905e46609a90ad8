package action

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MetadataLines is how many leading lines are inspected for metadata.
	MetadataLines = 20
	marker        = "kadai:"
)

var slashComment = map[string]bool{
	".js":  true,
	".mjs": true,
	".cjs": true,
	".ts":  true,
	".mts": true,
	".tsx": true,
	".jsx": true,
}

// CommentPrefix returns the line comment token used by files with this name.
func CommentPrefix(name string) string {
	if slashComment[strings.ToLower(filepath.Ext(name))] {
		return "//"
	}
	return "#"
}

// ParseMetadata reads metadata from the first MetadataLines lines of r. The
// file is never executed. Missing names are inferred from the file name.
func ParseMetadata(name string, r io.Reader) (Meta, error) {
	meta := Meta{}
	prefix := CommentPrefix(name)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 256*1024)
	for line := 0; line < MetadataLines && scanner.Scan(); line++ {
		text := strings.TrimRight(scanner.Text(), "\r")
		if line == 0 && strings.HasPrefix(text, "#!") {
			meta.Shebang = strings.TrimSpace(text)
			continue
		}
		key, value, ok := parseMetaLine(text, prefix)
		if !ok {
			continue
		}
		switch key {
		case "name":
			meta.Name = value
		case "emoji":
			meta.Emoji = value
		case "description":
			meta.Description = value
		case "confirm":
			meta.Confirm = parseBool(value)
		case "hidden":
			meta.Hidden = parseBool(value)
		case "fullscreen":
			meta.Fullscreen = parseBool(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return Meta{}, fmt.Errorf("read metadata: %w", err)
	}

	if meta.Name == "" {
		meta.Name = HumanizeName(name)
	}
	return meta, nil
}

func parseMetaLine(line, prefix string) (key, value string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, prefix) {
		return "", "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(trimmed, prefix))
	if !strings.HasPrefix(rest, marker) {
		return "", "", false
	}
	rest = strings.TrimPrefix(rest, marker)
	key, value, _ = strings.Cut(rest, " ")
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "", "", false
	}
	return key, strings.TrimSpace(value), true
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "1", "on":
		return true
	default:
		return false
	}
}

// HumanizeName turns "deploy-staging.sh" into "Deploy Staging".
func HumanizeName(name string) string {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	words := strings.FieldsFunc(stem, func(r rune) bool {
		return r == '-' || r == '_' || unicode.IsSpace(r)
	})
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	if len(words) == 0 {
		return stem
	}
	return strings.Join(words, " ")
}
