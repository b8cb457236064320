package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasjansson/cctr/models"
)

func TestMatchLiteral(t *testing.T) {
	parts, err := ParseParts("hi\n")
	require.NoError(t, err)
	m, err := Compile(parts)
	require.NoError(t, err)
	_, mismatch := m.Match("hi\n")
	assert.Nil(t, mismatch)
}

func TestMatchNumberHole(t *testing.T) {
	parts, err := ParseParts("Took {{ ms: number }}ms\n")
	require.NoError(t, err)
	m, err := Compile(parts)
	require.NoError(t, err)

	bindings, mismatch := m.Match("Took 42ms\n")
	require.Nil(t, mismatch)
	assert.Equal(t, models.Number(42), bindings["ms"].Val)
}

func TestMatchNumberHoleMismatch(t *testing.T) {
	parts, err := ParseParts("Took {{ ms: number }}ms\n")
	require.NoError(t, err)
	m, err := Compile(parts)
	require.NoError(t, err)

	_, mismatch := m.Match("Took abcms\n")
	assert.NotNil(t, mismatch)
}

func TestAdjacentGreedyHolesRejected(t *testing.T) {
	_, err := ParseParts("{{ a }}{{ b }}")
	assert.Error(t, err)
}

func TestJSONObjectHole(t *testing.T) {
	parts, err := ParseParts("result: {{ obj: json_object }}\n")
	require.NoError(t, err)
	m, err := Compile(parts)
	require.NoError(t, err)

	bindings, mismatch := m.Match(`result: {"a": 1, "b": [1, 2]}` + "\n")
	require.Nil(t, mismatch)
	assert.Equal(t, models.KindObject, bindings["obj"].Val.Kind())
}

func TestDuckTypePriority(t *testing.T) {
	assert.Equal(t, models.KindObject, DuckType(`{"a": 1}`))
	assert.Equal(t, models.KindArray, DuckType(`[1, 2]`))
	assert.Equal(t, models.KindString, DuckType(`"quoted"`))
	assert.Equal(t, models.KindBool, DuckType("true"))
	assert.Equal(t, models.KindNull, DuckType("null"))
	assert.Equal(t, models.KindNumber, DuckType("3.14"))
	assert.Equal(t, models.KindString, DuckType("plain text"))
}

func TestMatcherSoundnessRoundTrip(t *testing.T) {
	parts, err := ParseParts("status={{ status: string }} code={{ code: number }}\n")
	require.NoError(t, err)
	m, err := Compile(parts)
	require.NoError(t, err)

	actual := "status=ok code=200\n"
	bindings, mismatch := m.Match(actual)
	require.Nil(t, mismatch)

	var reconstructed string
	for _, p := range parts {
		if p.Hole == nil {
			reconstructed += p.Literal
			continue
		}
		reconstructed += bindings[p.Hole.Name].Raw
	}
	assert.Equal(t, actual, reconstructed)
}

func TestNormalizeStripsANSIAndCRLF(t *testing.T) {
	got := Normalize("\x1b[32mok\x1b[0m\r\nline2\r\n")
	assert.Equal(t, "ok\nline2", got)
}

func TestExpandTemplatesLeavesUnknownTokens(t *testing.T) {
	got := ExpandTemplates("{{ WORK_DIR }}/{{ FIXTURE_DIR }}/{{ CUSTOM }}/{{ name }}", "/tmp/w", "/tmp/f", map[string]string{"CUSTOM": "x"})
	assert.Equal(t, "/tmp/w//tmp/f/x/{{ name }}", got)
}
