package corpus

import "strings"

// line is one physical line of a corpus file, with byte offsets measured in
// the original (un-normalized) file content, and "Text" holding the content
// with a single trailing '\r' stripped for classification purposes only.
// The updater relies on Start/End being faithful to the original bytes so
// that untouched regions are byte-identical after a rewrite.
type line struct {
	Text  string
	Start int // offset of first byte of content
	End   int // offset just past the last byte of content (excludes \r\n)
	Num   int // 1-based line number
}

// splitLines scans raw file bytes into lines, tracking absolute byte offsets.
func splitLines(data []byte) []line {
	var lines []line
	start := 0
	lineNum := 1
	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			end := i
			if end > start && data[end-1] == '\r' {
				end--
			}
			lines = append(lines, line{
				Text:  string(data[start:end]),
				Start: start,
				End:   end,
				Num:   lineNum,
			})
			start = i + 1
			lineNum++
			if i == len(data) {
				break
			}
		}
	}
	// Drop a synthetic trailing empty line produced when the file ends
	// exactly on a newline boundary (len(data) loop adds one extra empty
	// "line" after the final \n that the author never wrote).
	if len(data) > 0 && data[len(data)-1] == '\n' && len(lines) > 0 {
		last := lines[len(lines)-1]
		if last.Text == "" && last.Start == last.End && last.Start == len(data) {
			lines = lines[:len(lines)-1]
		}
	}
	return lines
}

// runLength reports whether text (untrimmed) consists solely of the given
// rune, and returns the run's length in runes; callers check that length
// against 3 or the file's delimiter length.
func runLength(text string, r rune) (int, bool) {
	if len(text) == 0 {
		return 0, false
	}
	for _, c := range text {
		if c != r {
			return 0, false
		}
	}
	return len([]rune(text)), true
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
