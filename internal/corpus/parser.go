// Package corpus implements the streaming textual parser for cctr's
// delimiter-based test corpus format (spec.md §4.1).
package corpus

import (
	"io"
	"os"
	"strings"

	"github.com/andreasjansson/cctr/internal/cctrerr"
	"github.com/andreasjansson/cctr/models"
)

// StdinToken is the positional argument that tells discovery (and, here,
// ParseFile) to read a single corpus from standard input instead of disk.
const StdinToken = "-"

// File is the parsed result of one corpus file.
type File struct {
	Path        string
	Delimiter   int // L, established by the first header
	Directives  []models.Directive
	Tests       []*models.TestCase
}

// ParseFile reads and parses a corpus file from disk, or from standard
// input when path is StdinToken (spec.md §4.4's "-" root argument).
func ParseFile(path string) (*File, error) {
	var data []byte
	var err error
	if path == StdinToken {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, &cctrerr.DiscoveryError{Path: path, Msg: err.Error()}
	}
	return Parse(path, data)
}

// Parse parses corpus file content already read into memory.
func Parse(file string, data []byte) (*File, error) {
	lines := splitLines(data)
	p := &parser{file: file, lines: lines}

	if err := p.parseFileDirectives(); err != nil {
		return nil, err
	}

	var tests []*models.TestCase
	for p.idx < len(p.lines) {
		l := p.lines[p.idx]
		if isBlank(l.Text) {
			p.idx++
			continue
		}
		n, ok := runLength(l.Text, '=')
		if !ok {
			return nil, &cctrerr.ParseError{File: file, Line: l.Num, Msg: "expected a test header (run of '=') here"}
		}
		if p.delimiter == 0 {
			if n < 3 {
				return nil, &cctrerr.ParseError{File: file, Line: l.Num, Msg: "delimiter length must be >= 3"}
			}
			p.delimiter = n
		} else if n != p.delimiter {
			return nil, &cctrerr.ParseError{File: file, Line: l.Num, Msg: "header delimiter length does not match the file's established length"}
		}
		tc, err := p.parseTest()
		if err != nil {
			return nil, err
		}
		tests = append(tests, tc)
	}

	return &File{Path: file, Delimiter: p.delimiter, Directives: p.fileDirectives, Tests: tests}, nil
}

type parser struct {
	file           string
	lines          []line
	idx            int
	delimiter      int
	fileDirectives []models.Directive
}

// parseFileDirectives consumes directive lines preceding the first header.
func (p *parser) parseFileDirectives() error {
	for p.idx < len(p.lines) {
		l := p.lines[p.idx]
		if isBlank(l.Text) {
			p.idx++
			continue
		}
		if n, ok := runLength(l.Text, '='); ok && n >= 3 {
			break
		}
		d, matched, err := parseDirective(p.file, l)
		if err != nil {
			return err
		}
		if !matched {
			return &cctrerr.ParseError{File: p.file, Line: l.Num, Msg: "expected a directive or the first test header"}
		}
		p.fileDirectives = append(p.fileDirectives, d)
		p.idx++
	}
	return checkShellPlatformCompat(p.file, 0, p.fileDirectives)
}

// parseTest parses one test block: header, name, header, [directive],
// command, fence, expected, [where-clause]. p.idx is positioned at the
// opening header on entry.
func (p *parser) parseTest() (*models.TestCase, error) {
	openLine := p.lines[p.idx]
	p.idx++

	if p.idx >= len(p.lines) {
		return nil, &cctrerr.ParseError{File: p.file, Line: openLine.Num, Msg: "unterminated test: missing test name"}
	}
	nameLine := p.lines[p.idx]
	name := strings.TrimSpace(nameLine.Text)
	p.idx++

	if p.idx >= len(p.lines) {
		return nil, &cctrerr.ParseError{File: p.file, Line: nameLine.Num, Msg: "unterminated test: missing closing header"}
	}
	closeLine := p.lines[p.idx]
	if n, ok := runLength(closeLine.Text, '='); !ok || n != p.delimiter {
		return nil, &cctrerr.ParseError{File: p.file, Line: closeLine.Num, Msg: "expected a closing test header of the same length"}
	}
	p.idx++

	var testDirectives []models.Directive
	for p.idx < len(p.lines) {
		d, matched, err := parseDirective(p.file, p.lines[p.idx])
		if err != nil {
			return nil, err
		}
		if !matched {
			break
		}
		testDirectives = append(testDirectives, d)
		p.idx++
	}
	if err := checkShellPlatformCompat(p.file, nameLine.Num, append(append([]models.Directive{}, p.fileDirectives...), testDirectives...)); err != nil {
		return nil, err
	}

	command, err := p.parseCommand(openLine.Num)
	if err != nil {
		return nil, err
	}

	expectedLines, hasWhere, err := p.collectExpected()
	if err != nil {
		return nil, err
	}

	var source models.SourceRange
	var expectedRaw string
	if len(expectedLines) > 0 {
		source = models.SourceRange{File: p.file, Start: expectedLines[0].Start, End: expectedLines[len(expectedLines)-1].End}
		texts := make([]string, len(expectedLines))
		for i, l := range expectedLines {
			texts[i] = l.Text
		}
		expectedRaw = strings.Join(texts, "\n")
	}

	var whereExprs []string
	if hasWhere {
		whereExprs, err = p.parseWhereClause()
		if err != nil {
			return nil, err
		}
	}

	return &models.TestCase{
		Name:        name,
		Command:     command,
		ExpectedRaw: expectedRaw,
		WhereExprs:  whereExprs,
		Directives:  testDirectives,
		FileLevel:   p.fileDirectives,
		Source:      source,
		Line:        openLine.Num,
	}, nil
}

// parseCommand collects lines until a fence (a run of '-' of length L).
func (p *parser) parseCommand(openLineNum int) (string, error) {
	var cmdLines []string
	for {
		if p.idx >= len(p.lines) {
			return "", &cctrerr.ParseError{File: p.file, Line: openLineNum, Msg: "unterminated test: missing command fence"}
		}
		l := p.lines[p.idx]
		if n, ok := runLength(l.Text, '-'); ok && n == p.delimiter {
			p.idx++
			break
		}
		cmdLines = append(cmdLines, l.Text)
		p.idx++
	}
	return strings.Join(cmdLines, "\n"), nil
}

// collectExpected gathers expected-output lines until the next header
// (starts a new test), a blank line immediately followed by a bare "where"
// line (starts constraints), or EOF.
func (p *parser) collectExpected() ([]line, bool, error) {
	var out []line
	for p.idx < len(p.lines) {
		l := p.lines[p.idx]
		if n, ok := runLength(l.Text, '='); ok && n == p.delimiter {
			return out, false, nil
		}
		if isBlank(l.Text) && p.idx+1 < len(p.lines) && strings.TrimSpace(p.lines[p.idx+1].Text) == "where" {
			p.idx++ // consume the blank separator
			return out, true, nil
		}
		out = append(out, l)
		p.idx++
	}
	return out, false, nil
}

// parseWhereClause consumes the "where" keyword line followed by one or
// more "* expr" bullet lines. p.idx is positioned at the "where" line.
func (p *parser) parseWhereClause() ([]string, error) {
	whereLine := p.lines[p.idx]
	p.idx++

	var exprs []string
	for p.idx < len(p.lines) {
		l := p.lines[p.idx]
		trimmed := strings.TrimSpace(l.Text)
		if !strings.HasPrefix(trimmed, "* ") {
			break
		}
		exprs = append(exprs, strings.TrimSpace(strings.TrimPrefix(trimmed, "* ")))
		p.idx++
	}
	if len(exprs) == 0 {
		return nil, &cctrerr.ParseError{File: p.file, Line: whereLine.Num, Msg: "where clause requires at least one '* expr' bullet"}
	}
	return exprs, nil
}
