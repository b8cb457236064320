// Package updater rewrites corpus files in place under `-u`, replacing a
// failing, hole-free, constraint-free test's expected-output region with
// the actual output it just produced.
package updater

import (
	"os"
	"sort"

	"github.com/spf13/afero"

	"github.com/andreasjansson/cctr/models"
)

type edit struct {
	rng  models.SourceRange
	text string
}

// Updater accumulates rewrites across a suite run and flushes them once,
// per file, from the highest byte offset to the lowest so earlier offsets
// in the same file stay valid as later ones are applied.
type Updater struct {
	edits []edit
}

func New() *Updater { return &Updater{} }

// Schedule records a pending rewrite of rng to newText. A zero-length range
// (no expected-output lines at all, i.e. an exit-only test) is never
// scheduled.
func (u *Updater) Schedule(rng models.SourceRange, newText string) {
	if rng.File == "" || rng.End <= rng.Start {
		return
	}
	u.edits = append(u.edits, edit{rng: rng, text: newText})
}

// Flush rewrites every file touched by a scheduled edit, preserving all
// bytes outside the rewritten ranges.
func (u *Updater) Flush(fs afero.Fs) error {
	if len(u.edits) == 0 {
		return nil
	}

	byFile := map[string][]edit{}
	for _, e := range u.edits {
		byFile[e.rng.File] = append(byFile[e.rng.File], e)
	}

	for file, edits := range byFile {
		sort.Slice(edits, func(i, j int) bool { return edits[i].rng.Start > edits[j].rng.Start })

		data, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		for _, e := range edits {
			if e.rng.Start > len(data) || e.rng.End > len(data) {
				continue
			}
			var out []byte
			out = append(out, data[:e.rng.Start]...)
			out = append(out, []byte(e.text)...)
			out = append(out, data[e.rng.End:]...)
			data = out
		}
		if err := afero.WriteFile(fs, file, data, 0o644); err != nil {
			return err
		}
	}
	u.edits = nil
	return nil
}
