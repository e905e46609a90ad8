// Package logtail reads the tail of the kadai log file for `kadai logs`.
//
// Read keeps a ring buffer of the last N lines, so memory stays bounded no
// matter how large the file has grown. FilterLevel and ColorizeLine
// understand the text layout written by charmbracelet/log:
//
//	2026-03-01T12:00:00Z WARN kadai: source refresh failed source=ops err="..."
package logtail
