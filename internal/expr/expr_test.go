package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasjansson/cctr/internal/pattern"
	"github.com/andreasjansson/cctr/models"
)

func evalExpr(t *testing.T, src string, b pattern.Bindings) (bool, error) {
	t.Helper()
	return EvalBool(src, NewEnv(b))
}

func TestArithmeticPrecedence(t *testing.T) {
	ok, err := evalExpr(t, "2 + 3 * 4 == 14", nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPowerRightAssociative(t *testing.T) {
	ok, err := evalExpr(t, "2 ^ 3 ^ 2 == 512", nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStringOps(t *testing.T) {
	ok, err := evalExpr(t, `"hello world" contains "wor" and "hello" startswith "he"`, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatches(t *testing.T) {
	ok, err := evalExpr(t, `"v1.2.3" matches /^v\d+\.\d+\.\d+$/`, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHoleBindings(t *testing.T) {
	b := pattern.Bindings{"count": {Name: "count", Val: models.Number(3)}}
	ok, err := evalExpr(t, "count > 2 and count < 10", b)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestForallQuantifier(t *testing.T) {
	b := pattern.Bindings{"items": {Name: "items", Val: models.Array([]models.Value{
		models.Number(2), models.Number(4), models.Number(6),
	})}}
	ok, err := evalExpr(t, "x % 2 == 0 forall x in items", b)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBuiltins(t *testing.T) {
	b := pattern.Bindings{"arr": {Name: "arr", Val: models.Array([]models.Value{
		models.Number(1), models.Number(2), models.Number(2), models.Number(3),
	})}}
	ok, err := evalExpr(t, "sum(arr) == 8 and len(unique(arr)) == 3 and max(arr) == 3", b)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFieldAccess(t *testing.T) {
	obj := models.NewObject()
	obj.Set("status", models.String("ok"))
	b := pattern.Bindings{"resp": {Name: "resp", Val: models.ObjectValue(obj)}}
	ok, err := evalExpr(t, `resp.status == "ok"`, b)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInOperator(t *testing.T) {
	ok, err := evalExpr(t, `"b" in ["a", "b", "c"]`, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalErrorOnUndefinedIdent(t *testing.T) {
	_, err := evalExpr(t, "undefined_name == 1", nil)
	assert.Error(t, err)
}

func TestIndexPostfix(t *testing.T) {
	b := pattern.Bindings{"items": {Name: "items", Val: models.Array([]models.Value{
		models.Number(10), models.Number(20), models.Number(30),
	})}}
	ok, err := evalExpr(t, "items[0] == 10 and items[-1] == 30", b)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIndexPostfixOnString(t *testing.T) {
	b := pattern.Bindings{"name": {Name: "name", Val: models.String("abc")}}
	ok, err := evalExpr(t, `name[0] == "a" and name[-1] == "c"`, b)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNotContainsLexicalPair(t *testing.T) {
	ok, err := evalExpr(t, `"hello" not contains "zzz"`, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNotMatchesLexicalPair(t *testing.T) {
	ok, err := evalExpr(t, `"abc" not matches /^\d+$/`, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestForallOverObjectValues(t *testing.T) {
	obj := models.NewObject()
	obj.Set("a", models.Number(2))
	obj.Set("b", models.Number(4))
	b := pattern.Bindings{"counts": {Name: "counts", Val: models.ObjectValue(obj)}}
	ok, err := evalExpr(t, "x % 2 == 0 forall x in counts", b)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDivision(t *testing.T) {
	b := pattern.Bindings{"count": {Name: "count", Val: models.Number(6)}}
	ok, err := evalExpr(t, "count / 2 == 3", b)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDivisionByZero(t *testing.T) {
	_, err := evalExpr(t, "1 / 0 == 1", nil)
	assert.Error(t, err)
}

func TestMatchesAfterDivisionStillLexesRegex(t *testing.T) {
	b := pattern.Bindings{"count": {Name: "count", Val: models.Number(4)}}
	ok, err := evalExpr(t, `count / 2 == 2 and "v1" matches /^v\d+$/`, b)
	require.NoError(t, err)
	assert.True(t, ok)
}
