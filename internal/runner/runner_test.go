package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasjansson/cctr/internal/discovery"
	"github.com/andreasjansson/cctr/models"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func discoverOne(t *testing.T, root string) discovery.Suite {
	t.Helper()
	suites, err := discovery.Discover(root)
	require.NoError(t, err)
	require.Len(t, suites, 1)
	return suites[0]
}

func TestScenarioSimplePass(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "===\nhello\n===\necho hi\n---\nhi\n")

	suite := discoverOne(t, root)
	res, err := Run(context.Background(), suite, Options{})
	require.NoError(t, err)
	passed, failed, skipped := res.Counts()
	assert.Equal(t, 1, passed)
	assert.Equal(t, 0, failed)
	assert.Equal(t, 0, skipped)
}

func TestScenarioHoleAndConstraint(t *testing.T) {
	root := t.TempDir()
	body := "===\ntiming ok\n===\necho 'Took 42ms'\n---\nTook {{ ms: number }}ms\n\nwhere\n* ms > 0\n* ms < 5000\n" +
		"===\ntiming bad\n===\necho 'Took 9999ms'\n---\nTook {{ ms: number }}ms\n\nwhere\n* ms > 0\n* ms < 5000\n"
	writeFile(t, filepath.Join(root, "a.txt"), body)

	suite := discoverOne(t, root)
	res, err := Run(context.Background(), suite, Options{})
	require.NoError(t, err)
	require.Len(t, res.Tests, 2)
	assert.Equal(t, models.ResultPassed, res.Tests[0].Kind)
	assert.Equal(t, models.ResultFailed, res.Tests[1].Kind)
	assert.Equal(t, models.FailureConstraintFailed, res.Tests[1].FailKind)
}

func TestScenarioExitOnly(t *testing.T) {
	root := t.TempDir()
	body := "===\npass\n===\ntrue\n---\n===\nfail\n===\nfalse\n---\n"
	writeFile(t, filepath.Join(root, "a.txt"), body)

	suite := discoverOne(t, root)
	res, err := Run(context.Background(), suite, Options{})
	require.NoError(t, err)
	require.Len(t, res.Tests, 2)
	assert.Equal(t, models.ResultPassed, res.Tests[0].Kind)
	assert.Equal(t, models.ResultFailed, res.Tests[1].Kind)
	assert.Equal(t, models.FailureNonZeroExit, res.Tests[1].FailKind)
}

func TestScenarioLongerDelimiter(t *testing.T) {
	root := t.TempDir()
	body := "====\nliteral dashes\n====\necho '---'\n----\n---\n"
	writeFile(t, filepath.Join(root, "a.txt"), body)

	suite := discoverOne(t, root)
	res, err := Run(context.Background(), suite, Options{})
	require.NoError(t, err)
	require.Len(t, res.Tests, 1)
	assert.Equal(t, models.ResultPassed, res.Tests[0].Kind)
}

func TestScenarioFixtureCopyIsolated(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "fixture", "data.txt"), "abc")
	writeFile(t, filepath.Join(root, "a.txt"), "===\nread fixture\n===\ncat \"$CCTR_FIXTURE_DIR/data.txt\"\n---\nabc\n")

	suite := discoverOne(t, root)
	res1, err := Run(context.Background(), suite, Options{})
	require.NoError(t, err)
	assert.Equal(t, models.ResultPassed, res1.Tests[0].Kind)

	res2, err := Run(context.Background(), suite, Options{})
	require.NoError(t, err)
	assert.Equal(t, models.ResultPassed, res2.Tests[0].Kind)
}

func TestScenarioTeardownRunsOnFailure(t *testing.T) {
	root := t.TempDir()
	sentinel := filepath.Join(t.TempDir(), "sentinel")
	writeFile(t, filepath.Join(root, "a.txt"), "===\nfails\n===\nfalse\n---\nnever\n")
	writeFile(t, filepath.Join(root, "_teardown.txt"), "===\nmark\n===\ntouch '"+sentinel+"'\n---\n")

	suite := discoverOne(t, root)
	res, err := Run(context.Background(), suite, Options{})
	require.NoError(t, err)
	_, failed, _ := res.Counts()
	assert.Equal(t, 1, failed)
	assert.True(t, res.TeardownOK)
	_, statErr := os.Stat(sentinel)
	assert.NoError(t, statErr)
}

func TestSetupFailureSkipsRemainingTests(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "_setup.txt"), "===\nsetup\n===\nfalse\n---\nnever\n")
	writeFile(t, filepath.Join(root, "a.txt"), "===\nregular\n===\necho hi\n---\nhi\n")

	suite := discoverOne(t, root)
	res, err := Run(context.Background(), suite, Options{})
	require.NoError(t, err)
	require.Len(t, res.Tests, 1)
	assert.Equal(t, models.ResultSkipped, res.Tests[0].Kind)
	assert.Equal(t, "setup failed", res.Tests[0].Reason)
}

func TestUpdateModeRewritesHoleFreeMismatch(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.txt")
	writeFile(t, path, "===\nstale\n===\necho hi\n---\nbye\n")

	suite := discoverOne(t, root)
	_, err := Run(context.Background(), suite, Options{Update: true, Fs: afero.NewOsFs()})
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(got), "hi")
	assert.NotContains(t, string(got), "bye")
}

func TestSkipDirective(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "===\nskipped\n===\n%skip(not ready)\necho hi\n---\nhi\n")

	suite := discoverOne(t, root)
	res, err := Run(context.Background(), suite, Options{})
	require.NoError(t, err)
	require.Len(t, res.Tests, 1)
	assert.Equal(t, models.ResultSkipped, res.Tests[0].Kind)
	assert.Equal(t, "not ready", res.Tests[0].Reason)
}
