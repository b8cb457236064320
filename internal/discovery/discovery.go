// Package discovery walks a test root and groups corpus files into suites.
package discovery

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/andreasjansson/cctr/internal/cctrerr"
)

// Suite is one discovered test suite: a directory containing one or more
// regular corpus files, plus optional setup/teardown/fixture.
type Suite struct {
	Name        string // suite path relative to root, or root's own dir name at root
	Dir         string // absolute directory on disk
	Files       []string
	SetupFile   string // "" if absent
	TeardownFile string // "" if absent
	FixtureDir  string // "" if absent
}

const stdinToken = "-"

// Discover walks root (a directory, a single file, or "-" for stdin) and
// returns the ordered list of suites.
func Discover(root string) ([]Suite, error) {
	if root == stdinToken {
		return []Suite{{Name: "stdin", Dir: "", Files: []string{stdinToken}}}, nil
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, &cctrerr.DiscoveryError{Path: root, Msg: err.Error()}
	}

	if !info.IsDir() {
		dir := filepath.Dir(root)
		s := Suite{Name: filepath.Base(dir), Dir: dir, Files: []string{root}}
		attachAncillary(&s, dir)
		return []Suite{s}, nil
	}

	dirFiles := map[string][]string{}
	err = filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		if insideFixtureTree(root, path) {
			return nil
		}
		base := filepath.Base(path)
		if !strings.HasSuffix(base, ".txt") || strings.HasPrefix(base, "_") {
			return nil
		}
		dir := filepath.Dir(path)
		dirFiles[dir] = append(dirFiles[dir], path)
		return nil
	})
	if err != nil {
		return nil, &cctrerr.DiscoveryError{Path: root, Msg: err.Error()}
	}

	var dirs []string
	for d := range dirFiles {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	var suites []Suite
	for _, dir := range dirs {
		files := dirFiles[dir]
		sort.Strings(files)
		name := relSuiteName(root, dir)
		s := Suite{Name: name, Dir: dir, Files: files}
		attachAncillary(&s, dir)
		suites = append(suites, s)
	}
	return suites, nil
}

func relSuiteName(root, dir string) string {
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." {
		return filepath.Base(root)
	}
	return rel
}

func insideFixtureTree(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if part == "fixture" {
			return true
		}
	}
	return false
}

func attachAncillary(s *Suite, dir string) {
	setup := filepath.Join(dir, "_setup.txt")
	if fileExists(setup) {
		s.SetupFile = setup
	}
	teardown := filepath.Join(dir, "_teardown.txt")
	if fileExists(teardown) {
		s.TeardownFile = teardown
	}
	fixture := filepath.Join(dir, "fixture")
	if st, err := os.Stat(fixture); err == nil && st.IsDir() {
		s.FixtureDir = fixture
	}
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

// MatchFilter reports whether a "suite/file: test-name" label satisfies a
// -p filter, trying a glob match first and falling back to a plain
// substring match (spec's filter is substring; glob is an additive
// convenience).
func MatchFilter(label, filter string) bool {
	if filter == "" {
		return true
	}
	if ok, err := doublestar.Match(filter, label); err == nil && ok {
		return true
	}
	return strings.Contains(label, filter)
}
