// Package workspace manages the ephemeral per-suite directory a suite's
// tests execute in: fixture copy, environment injection, teardown.
package workspace

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/andreasjansson/cctr/internal/cctrerr"
)

// Workspace is one suite's ephemeral execution directory.
type Workspace struct {
	Dir        string
	FixtureDir string // "" if the suite carried no fixture
	TestPath   string
	fs         afero.Fs
	baseTmp    string
}

// New creates a fresh temp directory for suiteName, copying fixtureSrc into
// it if present. fs is the filesystem abstraction (afero.NewOsFs() in
// production, afero.NewMemMapFs() in tests).
func New(fs afero.Fs, suiteName, testPath, fixtureSrc string) (*Workspace, error) {
	base := os.TempDir()
	dir := filepath.Join(base, "cctr-"+sanitize(suiteName)+"-"+uuid.NewString())
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, &cctrerr.WorkspaceError{Suite: suiteName, Msg: err.Error()}
	}

	w := &Workspace{Dir: dir, TestPath: testPath, fs: fs, baseTmp: base}

	if fixtureSrc != "" {
		if err := copyTree(fs, fixtureSrc, dir); err != nil {
			return nil, &cctrerr.WorkspaceError{Suite: suiteName, Msg: err.Error()}
		}
		w.FixtureDir = dir
	}
	return w, nil
}

// Env returns the environment additions injected into every child process
// spawned in this workspace.
func (w *Workspace) Env() []string {
	env := []string{
		"CCTR_WORK_DIR=" + w.Dir,
		"CCTR_TEST_PATH=" + w.TestPath,
	}
	if w.FixtureDir != "" {
		env = append(env, "CCTR_FIXTURE_DIR="+w.FixtureDir)
	}
	return env
}

// Destroy removes the workspace directory tree, unless CCTR_NO_CLEANUP is
// set (an operational escape hatch for inspecting a failing suite's
// workspace in place; see SPEC_FULL.md's supplemented-features section).
func (w *Workspace) Destroy() error {
	if os.Getenv("CCTR_NO_CLEANUP") != "" {
		return nil
	}
	return w.fs.RemoveAll(w.Dir)
}

func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '-')
		}
	}
	return string(out)
}

// copyTree recursively copies src into dst using the real OS filesystem for
// reads (fixture trees live on disk regardless of the execution fs) and the
// given fs for writes, so tests can exercise an in-memory destination.
func copyTree(fs afero.Fs, src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return fs.MkdirAll(target, 0o755)
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		out, err := fs.Create(target)
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, in)
		return err
	})
}
