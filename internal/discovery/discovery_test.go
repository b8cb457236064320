package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDiscoverSuiteWithFixtureAndSetup(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "basics", "a.txt"), "===\na\n===\necho a\n---\na\n")
	writeFile(t, filepath.Join(root, "basics", "_setup.txt"), "===\ns\n===\necho s\n---\n")
	writeFile(t, filepath.Join(root, "basics", "_teardown.txt"), "===\nt\n===\necho t\n---\n")
	writeFile(t, filepath.Join(root, "basics", "fixture", "data.txt"), "abc")

	suites, err := Discover(root)
	require.NoError(t, err)
	require.Len(t, suites, 1)
	s := suites[0]
	assert.Equal(t, "basics", s.Name)
	assert.Len(t, s.Files, 1)
	assert.NotEmpty(t, s.SetupFile)
	assert.NotEmpty(t, s.TeardownFile)
	assert.NotEmpty(t, s.FixtureDir)
}

func TestDiscoverIgnoresFixtureTreeFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "s", "a.txt"), "===\na\n===\necho a\n---\na\n")
	writeFile(t, filepath.Join(root, "s", "fixture", "nested.txt"), "not a test")

	suites, err := Discover(root)
	require.NoError(t, err)
	require.Len(t, suites, 1)
	assert.Len(t, suites[0].Files, 1)
}

func TestDiscoverSingleFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "s", "a.txt")
	writeFile(t, path, "===\na\n===\necho a\n---\na\n")

	suites, err := Discover(path)
	require.NoError(t, err)
	require.Len(t, suites, 1)
	assert.Equal(t, []string{path}, suites[0].Files)
}

func TestDiscoverStdinToken(t *testing.T) {
	suites, err := Discover("-")
	require.NoError(t, err)
	require.Len(t, suites, 1)
	assert.Equal(t, []string{"-"}, suites[0].Files)
}

func TestMatchFilterSubstring(t *testing.T) {
	assert.True(t, MatchFilter("basics/a.txt: hello", "hello"))
	assert.False(t, MatchFilter("basics/a.txt: hello", "nope"))
	assert.True(t, MatchFilter("anything", ""))
}
