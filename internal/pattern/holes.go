// Package pattern splits an expected-output pattern (literal text
// interleaved with typed holes) into literal runs and hole descriptors, and
// matches it against the whole of the actual command output with a
// backtracking matcher.
package pattern

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/andreasjansson/cctr/models"
)

var holeRE = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*(?::\s*([a-zA-Z_]+)\s*)?\}\}`)

// ParseParts splits pattern text into literal runs and hole descriptors, in
// source order. It does not resolve {{ VAR }} template tokens — callers must
// call ExpandTemplates first (template expansion happens before hole
// compilation, per spec.md §9's open-question resolution).
func ParseParts(text string) ([]models.PatternPart, error) {
	var parts []models.PatternPart
	seen := map[string]bool{}

	matches := holeRE.FindAllStringSubmatchIndex(text, -1)
	last := 0
	for _, m := range matches {
		if m[0] > last {
			parts = append(parts, models.PatternPart{Literal: text[last:m[0]]})
		}
		name := text[m[2]:m[3]]
		kind := models.HoleAuto
		if m[4] != -1 {
			kind = models.HoleKind(text[m[4]:m[5]])
			if !validKind(kind) {
				return nil, fmt.Errorf("unknown hole kind %q for hole %q", kind, name)
			}
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate hole name %q", name)
		}
		seen[name] = true
		parts = append(parts, models.PatternPart{Hole: &models.Hole{Name: name, Kind: kind}})
		last = m[1]
	}
	if last < len(text) {
		parts = append(parts, models.PatternPart{Literal: text[last:]})
	}

	if err := checkAdjacentGreedyHoles(parts); err != nil {
		return nil, err
	}
	return parts, nil
}

func validKind(k models.HoleKind) bool {
	switch k {
	case models.HoleAuto, models.HoleNumber, models.HoleString,
		models.HoleJSONString, models.HoleJSONBool, models.HoleJSONArray, models.HoleJSONObject:
		return true
	}
	return false
}

// isGreedyMinimal reports whether a hole kind compiles to a non-greedy `.*?`
// capture, which is ambiguous when two such holes are adjacent with no
// literal between them on the same source line.
func isGreedyMinimal(k models.HoleKind) bool {
	return k == models.HoleAuto || k == models.HoleString
}

func checkAdjacentGreedyHoles(parts []models.PatternPart) error {
	for i := 0; i+1 < len(parts); i++ {
		if parts[i].Hole == nil || parts[i+1].Hole == nil {
			continue
		}
		if !isGreedyMinimal(parts[i].Hole.Kind) && !isGreedyMinimal(parts[i+1].Hole.Kind) {
			continue
		}
		return fmt.Errorf("ambiguous adjacent holes %q and %q with no literal between them", parts[i].Hole.Name, parts[i+1].Hole.Name)
	}
	return nil
}

// HasHoles reports whether any part is a hole.
func HasHoles(parts []models.PatternPart) bool {
	for _, p := range parts {
		if p.Hole != nil {
			return true
		}
	}
	return false
}

// Render substitutes literal text back with each hole's name wrapped in
// {{ }} (used for diff display on mismatch).
func Render(parts []models.PatternPart) string {
	var b strings.Builder
	for _, p := range parts {
		if p.Hole != nil {
			b.WriteString("{{ ")
			b.WriteString(p.Hole.Name)
			if p.Hole.Kind != models.HoleAuto {
				b.WriteString(": ")
				b.WriteString(string(p.Hole.Kind))
			}
			b.WriteString(" }}")
		} else {
			b.WriteString(p.Literal)
		}
	}
	return b.String()
}
