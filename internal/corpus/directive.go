package corpus

import (
	"strings"

	"github.com/andreasjansson/cctr/internal/cctrerr"
	"github.com/andreasjansson/cctr/models"
)

// parseDirective attempts to parse one line as a %skip/%platform/%shell
// directive. ok is false when the line doesn't start with '%' at all, which
// callers use to fall back to treating the line as ordinary content.
func parseDirective(file string, l line) (models.Directive, bool, error) {
	text := strings.TrimSpace(l.Text)
	if !strings.HasPrefix(text, "%") {
		return models.Directive{}, false, nil
	}

	switch {
	case strings.HasPrefix(text, "%skip"):
		return parseSkip(file, l, text)
	case strings.HasPrefix(text, "%platform"):
		return parsePlatform(file, l, text)
	case strings.HasPrefix(text, "%shell"):
		return parseShell(file, l, text)
	default:
		return models.Directive{}, true, &cctrerr.ParseError{File: file, Line: l.Num, Msg: "unrecognized directive " + text}
	}
}

func parseSkip(file string, l line, text string) (models.Directive, bool, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(text, "%skip"))
	d := models.Directive{Kind: models.DirectiveSkip, Line: l.Num}

	if strings.HasPrefix(rest, "(") {
		end := strings.Index(rest, ")")
		if end < 0 {
			return d, true, &cctrerr.ParseError{File: file, Line: l.Num, Msg: "unterminated %skip reason"}
		}
		d.Reason = rest[1:end]
		rest = strings.TrimSpace(rest[end+1:])
	}

	if rest != "" {
		if !strings.HasPrefix(rest, "if:") {
			return d, true, &cctrerr.ParseError{File: file, Line: l.Num, Msg: "expected 'if:' after %skip reason"}
		}
		cmd := strings.TrimSpace(strings.TrimPrefix(rest, "if:"))
		if cmd == "" {
			return d, true, &cctrerr.ParseError{File: file, Line: l.Num, Msg: "%skip if: missing command"}
		}
		d.IfCommand = cmd
	}
	return d, true, nil
}

func parsePlatform(file string, l line, text string) (models.Directive, bool, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(text, "%platform"))
	if rest == "" {
		return models.Directive{}, true, &cctrerr.ParseError{File: file, Line: l.Num, Msg: "%platform requires a platform list"}
	}
	parts := strings.Split(rest, ",")
	platforms := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			platforms = append(platforms, p)
		}
	}
	return models.Directive{Kind: models.DirectivePlatform, Platforms: platforms, Line: l.Num}, true, nil
}

func parseShell(file string, l line, text string) (models.Directive, bool, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(text, "%shell"))
	if rest == "" {
		return models.Directive{}, true, &cctrerr.ParseError{File: file, Line: l.Num, Msg: "%shell requires a shell name"}
	}
	return models.Directive{Kind: models.DirectiveShell, Shell: rest, Line: l.Num}, true, nil
}

// checkShellPlatformCompat enforces the invariant that %shell and %platform
// directives accumulated for a file (or a test) must be compatible, e.g.
// `cmd` excludes non-Windows platforms.
func checkShellPlatformCompat(file string, lineNum int, ds []models.Directive) error {
	var shell string
	var platforms []string
	for _, d := range ds {
		switch d.Kind {
		case models.DirectiveShell:
			shell = d.Shell
		case models.DirectivePlatform:
			platforms = d.Platforms
		}
	}
	if shell == "" || len(platforms) == 0 {
		return nil
	}
	compat := map[string][]string{
		"cmd":        {"windows"},
		"powershell": {"windows"},
		"bash":       {"linux", "darwin", "macos", "windows", "freebsd"},
		"sh":         {"linux", "darwin", "macos", "freebsd"},
	}
	allowed, known := compat[shell]
	if !known {
		return nil
	}
	for _, p := range platforms {
		for _, a := range allowed {
			if strings.EqualFold(p, a) {
				return nil
			}
		}
	}
	return &cctrerr.ParseError{File: file, Line: lineNum, Msg: "%shell " + shell + " is incompatible with %platform " + strings.Join(platforms, ",")}
}
