// Package debug formats internal structures for debug reports.
package debug

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// TreeWriter builds indented text dump. Long text values are shortened to
// limit runes (0 - no limit) so dumps of big documents stay readable.
type TreeWriter struct {
	w     *strings.Builder
	limit int
}

func NewTreeWriter(limit int) *TreeWriter {
	return &TreeWriter{w: &strings.Builder{}, limit: max(limit, 0)}
}

func (tw *TreeWriter) String() string {
	return tw.w.String()
}

func (tw *TreeWriter) indent(depth int) {
	tw.w.WriteString(strings.Repeat("  ", max(depth, 0)))
}

// Line writes formatted line at requested depth.
func (tw *TreeWriter) Line(depth int, format string, args ...any) {
	tw.indent(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// TextBlock writes labeled quoted text value.
func (tw *TreeWriter) TextBlock(depth int, label, value string) {
	tw.indent(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value, tw.limit))
	tw.w.WriteByte('\n')
}

func encodeText(raw string, limit int) string {
	if raw == "" {
		return raw
	}
	if limit == 0 || utf8.RuneCountInString(raw) <= limit {
		return strconv.Quote(raw)
	}
	cut := 0
	for i := range raw {
		if limit == 0 {
			cut = i
			break
		}
		limit--
	}
	return fmt.Sprintf("%s... (%d bytes)", strconv.Quote(raw[:cut]), len(raw))
}
