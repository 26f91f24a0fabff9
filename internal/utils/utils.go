// Package utils collects small, format-agnostic helpers shared across
// the CLI and the printer: apex/log padding for nested summary lines and
// ASCII detection for deciding whether a data atom looks like a string
// literal worth printing.
package utils

import (
	"unicode"

	"github.com/apex/log/handlers/cli"
)

var normalPadding = cli.Default.Padding

// Indent runs f with the cli handler's padding multiplied by level for
// the duration of the call, then restores it. Used to nest a summary
// line (decode cache stats, per-function counts) under the line above
// it without building a second logger.
func Indent(f func(s string), level int) func(string) {
	return func(s string) {
		cli.Default.Padding = normalPadding * level
		f(s)
		cli.Default.Padding = normalPadding
	}
}

// IsASCII reports whether every rune in s is printable ASCII, the test
// the printer uses to decide whether a data atom's bytes are printed as a
// string literal; atoms that fail it are not printed at all.
func IsASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
