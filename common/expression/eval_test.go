package expression

import (
	"context"
	"testing"

	errors2 "github.com/rtenhove/zeebe/server/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eng = NewExprEngine()

func TestPositive(t *testing.T) {
	ctx := context.Background()
	vrs := make(map[string]interface{})
	res, err := Eval[bool](ctx, eng, "97 == 97", vrs)
	assert.NoError(t, err)
	assert.Equal(t, true, res)
}

func TestNoVariable(t *testing.T) {
	ctx := context.Background()
	vrs := make(map[string]interface{})
	res, err := Eval[bool](ctx, eng, "$.a == 4.5", vrs)
	assert.NoError(t, err)
	assert.Equal(t, false, res)
}

func TestVariable(t *testing.T) {
	ctx := context.Background()
	vrs := make(map[string]interface{})
	vrs["a"] = 4.5
	res, err := Eval[bool](ctx, eng, "$.a == 4.5", vrs)
	assert.NoError(t, err)
	assert.Equal(t, true, res)
}

func TestNestedPathAndStringLiteral(t *testing.T) {
	ctx := context.Background()
	vrs := map[string]interface{}{
		"order": map[string]interface{}{"total": 120, "state": "$.open"},
	}
	res, err := Eval[bool](ctx, eng, "$.order.total >= 100 && $.order.state == '$.open'", vrs)
	require.NoError(t, err)
	assert.True(t, res)
}

func TestBracketPath(t *testing.T) {
	ctx := context.Background()
	vrs := map[string]interface{}{"order id": 3}
	res, err := Eval[bool](ctx, eng, "$['order id'] < 5", vrs)
	require.NoError(t, err)
	assert.True(t, res)
}

func TestComparisonWithMissingValueFails(t *testing.T) {
	ctx := context.Background()
	_, err := Eval[bool](ctx, eng, "$.missing > 5", map[string]interface{}{})
	assert.Error(t, err)
}

func TestSyntaxError(t *testing.T) {
	ctx := context.Background()
	assert.Error(t, eng.Check(ctx, "$.a >"))
	assert.NoError(t, eng.Check(ctx, "$.a > 1"))
}

func TestCompileErrorKeepsPercentSigns(t *testing.T) {
	ctx := context.Background()
	_, err := eng.Eval(ctx, "$.a %", map[string]interface{}{})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "%!")
	assert.Contains(t, err.Error(), "%")
	assert.True(t, errors2.IsWorkflowFatal(err))
}

func TestGetVariables(t *testing.T) {
	ctx := context.Background()
	v, err := GetVariables(ctx, eng, "$.a > 1 || $.b == 'x'")
	require.NoError(t, err)
	assert.ElementsMatch(t, []Variable{{Name: "a"}, {Name: "b"}}, v)
}

func TestRewritePaths(t *testing.T) {
	assert.Equal(t, "a.b > 1", rewritePaths("$.a.b > 1"))
	assert.Equal(t, `a == "$.x"`, rewritePaths(`$.a == "$.x"`))
	assert.Equal(t, "$env['a b'] == 1", rewritePaths("$['a b'] == 1"))
}
