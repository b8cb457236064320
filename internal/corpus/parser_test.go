package corpus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasjansson/cctr/models"
)

func TestSimplePass(t *testing.T) {
	f, err := Parse("t.txt", []byte("===\nhello\n===\necho hi\n---\nhi\n"))
	require.NoError(t, err)
	require.Len(t, f.Tests, 1)
	assert.Equal(t, "hello", f.Tests[0].Name)
	assert.Equal(t, "echo hi", f.Tests[0].Command)
	assert.Equal(t, "hi", f.Tests[0].ExpectedRaw)
	assert.Equal(t, 3, f.Delimiter)
}

func TestExitOnlyEmptyExpected(t *testing.T) {
	f, err := Parse("t.txt", []byte("===\nexits ok\n===\ntrue\n---\n===\nexits bad\n===\nfalse\n---\n"))
	require.NoError(t, err)
	require.Len(t, f.Tests, 2)
	assert.Equal(t, "", f.Tests[0].ExpectedRaw)
}

func TestLongerDelimiterAllowsLiteralFence(t *testing.T) {
	data := "====\nwith dashes\n====\necho '---'\n----\n---\n"
	f, err := Parse("t.txt", []byte(data))
	require.NoError(t, err)
	require.Len(t, f.Tests, 1)
	assert.Equal(t, 4, f.Delimiter)
	assert.Equal(t, "---", f.Tests[0].ExpectedRaw)
}

func TestWhereClause(t *testing.T) {
	data := "===\ntiming\n===\necho 'Took 42ms'\n---\nTook {{ ms: number }}ms\n\nwhere\n* ms > 0\n* ms < 5000\n"
	f, err := Parse("t.txt", []byte(data))
	require.NoError(t, err)
	require.Len(t, f.Tests, 1)
	assert.Equal(t, []string{"ms > 0", "ms < 5000"}, f.Tests[0].WhereExprs)
}

func TestMismatchedDelimiterLengthRejected(t *testing.T) {
	_, err := Parse("t.txt", []byte("===\na\n====\necho a\n---\na\n"))
	assert.Error(t, err)
}

func TestFileLevelDirective(t *testing.T) {
	data := "%platform linux, darwin\n===\na\n===\necho a\n---\na\n"
	f, err := Parse("t.txt", []byte(data))
	require.NoError(t, err)
	require.Len(t, f.Directives, 1)
	assert.Equal(t, models.DirectivePlatform, f.Directives[0].Kind)
}

func TestTestLevelSkipDirective(t *testing.T) {
	data := "===\na\n===\n%skip(flaky)\necho a\n---\na\n"
	f, err := Parse("t.txt", []byte(data))
	require.NoError(t, err)
	require.Len(t, f.Tests[0].Directives, 1)
	assert.Equal(t, "flaky", f.Tests[0].Directives[0].Reason)
}

func TestSourceRangeCoversExpectedBytes(t *testing.T) {
	src := "===\nhello\n===\necho hi\n---\nhi\n"
	f, err := Parse("t.txt", []byte(src))
	require.NoError(t, err)
	rng := f.Tests[0].Source
	assert.Equal(t, "hi", src[rng.Start:rng.End])
}
