//go:build !windows

package config

import (
	"os"
	"strings"

	"golang.org/x/term"
)

const badFileName = "_bad_file_name_"

// CleanFileName drops path separators and leading dots, so expanded part name
// always stays inside destination directory.
func CleanFileName(in string) string {
	const forbidden = string(os.PathSeparator) + string(os.PathListSeparator)

	var b strings.Builder
	for _, sym := range in {
		if !strings.ContainsRune(forbidden, sym) {
			b.WriteRune(sym)
		}
	}
	if out := strings.TrimLeft(b.String(), "."); len(out) > 0 {
		return out
	}
	return badFileName
}

// EnableColorOutput checks if colorized output is possible.
func EnableColorOutput(stream *os.File) bool {
	return term.IsTerminal(int(stream.Fd()))
}
