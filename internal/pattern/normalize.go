package pattern

import (
	"regexp"
	"strings"
)

var ansiRE = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]`)

// StripANSI removes ANSI escape sequences from actual output before matching.
func StripANSI(s string) string {
	return ansiRE.ReplaceAllString(s, "")
}

// NormalizeLineEndings converts CRLF to LF. This is applied to actual
// output, never to corpus file content.
func NormalizeLineEndings(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// Normalize applies both steps used before pattern matching, then trims a
// single trailing newline. Expected-output text is reconstructed from
// corpus lines with their line terminators already stripped, so a
// command's customary trailing newline would otherwise never align.
func Normalize(s string) string {
	out := NormalizeLineEndings(StripANSI(s))
	if strings.HasSuffix(out, "\n") {
		out = out[:len(out)-1]
	}
	return out
}
