package pattern

import (
	"fmt"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/andreasjansson/cctr/models"
)

var numberRE = regexp.MustCompile(`^-?\d+(?:\.\d+)?`)

// Binding is one captured hole: its raw text and its resolved typed Value.
type Binding struct {
	Name string
	Raw  string
	Kind models.Kind
	Val  models.Value
}

// Bindings maps hole name to its Binding.
type Bindings map[string]Binding

func (b Bindings) with(name, raw string, kind models.Kind) (Bindings, error) {
	val, err := ParseValue(raw, kind)
	if err != nil {
		return nil, err
	}
	out := make(Bindings, len(b)+1)
	for k, v := range b {
		out[k] = v
	}
	out[name] = Binding{Name: name, Raw: raw, Kind: kind, Val: val}
	return out, nil
}

// Mismatch describes a failed match for diff reporting.
type Mismatch struct {
	Expected string
	Actual   string
}

// Matcher holds a compiled pattern ready to be applied to actual output.
type Matcher struct {
	Parts []models.PatternPart
}

// compileCache avoids re-validating and re-wrapping the same pattern text
// across repeated test runs in a suite (setup/teardown/tests commonly
// reuse near-identical patterns in update-in-place workflows).
var compileCache, _ = lru.New[string, *Matcher](256)

// Compile builds a Matcher from pattern parts. ANSI stripping and CRLF
// normalization of actual output must happen before Match is called.
func Compile(parts []models.PatternPart) (*Matcher, error) {
	key := Render(parts)
	if m, ok := compileCache.Get(key); ok {
		return m, nil
	}
	m := &Matcher{Parts: parts}
	compileCache.Add(key, m)
	return m, nil
}

// Match applies the pattern to normalized actual output. On success it
// returns the hole bindings; on failure it returns a structured Mismatch.
func (m *Matcher) Match(actual string) (Bindings, *Mismatch) {
	ok, bindings, err := matchFrom(m.Parts, 0, actual, 0, Bindings{})
	if err != nil || !ok {
		return nil, &Mismatch{Expected: Render(m.Parts), Actual: actual}
	}
	return bindings, nil
}

func matchFrom(parts []models.PatternPart, i int, text string, pos int, bindings Bindings) (bool, Bindings, error) {
	if i == len(parts) {
		if pos == len(text) {
			return true, bindings, nil
		}
		return false, nil, nil
	}
	p := parts[i]
	if p.Hole == nil {
		lit := p.Literal
		if strings.HasPrefix(text[pos:], lit) {
			return matchFrom(parts, i+1, text, pos+len(lit), bindings)
		}
		return false, nil, nil
	}

	switch p.Hole.Kind {
	case models.HoleNumber:
		loc := numberRE.FindStringIndex(text[pos:])
		if loc == nil {
			return false, nil, nil
		}
		raw := text[pos : pos+loc[1]]
		nb, err := bindings.with(p.Hole.Name, raw, models.KindNumber)
		if err != nil {
			return false, nil, err
		}
		return matchFrom(parts, i+1, text, pos+loc[1], nb)

	case models.HoleJSONBool:
		for _, lit := range []string{"true", "false"} {
			if strings.HasPrefix(text[pos:], lit) {
				nb, err := bindings.with(p.Hole.Name, lit, models.KindBool)
				if err != nil {
					return false, nil, err
				}
				if ok, b2, err := matchFrom(parts, i+1, text, pos+len(lit), nb); ok || err != nil {
					return ok, b2, err
				}
			}
		}
		return false, nil, nil

	case models.HoleJSONString:
		n, ok := scanJSONStringLiteral(text[pos:])
		if !ok {
			return false, nil, nil
		}
		raw := text[pos : pos+n]
		nb, err := bindings.with(p.Hole.Name, raw, models.KindString)
		if err != nil {
			return false, nil, err
		}
		return matchFrom(parts, i+1, text, pos+n, nb)

	case models.HoleJSONArray, models.HoleJSONObject:
		if pos >= len(text) {
			return false, nil, nil
		}
		var n int
		var err error
		kind := models.KindArray
		if p.Hole.Kind == models.HoleJSONArray {
			n, err = ScanArray(text[pos:])
		} else {
			n, err = ScanObject(text[pos:])
			kind = models.KindObject
		}
		if err != nil {
			return false, nil, nil
		}
		raw := text[pos : pos+n]
		nb, berr := bindings.with(p.Hole.Name, raw, kind)
		if berr != nil {
			return false, nil, berr
		}
		return matchFrom(parts, i+1, text, pos+n, nb)

	case models.HoleString, models.HoleAuto:
		bounded := !anyLiteralAfter(parts, i+1)
		limit := len(text) - pos
		if bounded {
			if nl := strings.IndexByte(text[pos:], '\n'); nl >= 0 {
				limit = nl
			}
		}
		for length := 0; length <= limit; length++ {
			raw := text[pos : pos+length]
			kind := models.KindString
			if p.Hole.Kind == models.HoleAuto {
				kind = DuckType(raw)
			}
			nb, err := bindings.with(p.Hole.Name, raw, kind)
			if err != nil {
				return false, nil, err
			}
			if ok, b2, err := matchFrom(parts, i+1, text, pos+length, nb); ok || err != nil {
				return ok, b2, err
			}
		}
		return false, nil, nil
	}
	return false, nil, fmt.Errorf("unhandled hole kind %s", p.Hole.Kind)
}

func anyLiteralAfter(parts []models.PatternPart, from int) bool {
	for _, p := range parts[from:] {
		if p.Hole == nil {
			return true
		}
	}
	return false
}

// scanJSONStringLiteral scans a double-quoted JSON string starting at s[0].
func scanJSONStringLiteral(s string) (int, bool) {
	if len(s) == 0 || s[0] != '"' {
		return 0, false
	}
	escaped := false
	for i := 1; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c == '"' {
			return i + 1, true
		}
	}
	return 0, false
}
