package mapping

import (
	"context"
	"testing"

	"github.com/rtenhove/zeebe/common/expression"
	"github.com/rtenhove/zeebe/model"
	errors2 "github.com/rtenhove/zeebe/server/errors"
	"github.com/rtenhove/zeebe/server/vars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) *Engine {
	e, err := New(expression.NewExprEngine())
	require.NoError(t, err)
	return e
}

func doc(t *testing.T, v map[string]any) []byte {
	b, err := vars.Encode(context.Background(), v)
	require.NoError(t, err)
	return b
}

func undoc(t *testing.T, b []byte) map[string]any {
	v, err := vars.Decode(context.Background(), b)
	require.NoError(t, err)
	return v
}

func TestExtractWithoutMappingsKeepsPayload(t *testing.T) {
	e := newEngine(t)
	p := doc(t, map[string]any{"a": 1})
	res, err := e.Extract(context.Background(), p, nil)
	require.NoError(t, err)
	assert.Equal(t, p, res)
}

func TestExtract(t *testing.T) {
	e := newEngine(t)
	p := doc(t, map[string]any{
		"order": map[string]any{"id": "o-1", "items": []any{"x", "y"}},
		"other": true,
	})
	res, err := e.Extract(context.Background(), p, []model.Mapping{
		{Source: "$.order.id", Target: "$.orderId"},
		{Source: "$.order.items[1]", Target: "$.item.name"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"orderId": "o-1",
		"item":    map[string]any{"name": "y"},
	}, undoc(t, res))
}

func TestExtractMissingSource(t *testing.T) {
	e := newEngine(t)
	p := doc(t, map[string]any{"a": 1})
	_, err := e.Extract(context.Background(), p, []model.Mapping{{Source: "$.b", Target: "$.b"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors2.ErrMappingFailed)
	assert.Equal(t, "No data found for query $.b.", MessageOf(err))
}

func TestExtractNullValueIsData(t *testing.T) {
	e := newEngine(t)
	p := doc(t, map[string]any{"a": nil})
	res, err := e.Extract(context.Background(), p, []model.Mapping{{Source: "$.a", Target: "$.b"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"b": nil}, undoc(t, res))
}

func TestExtractToRootRequiresObject(t *testing.T) {
	e := newEngine(t)
	p := doc(t, map[string]any{"a": 1, "o": map[string]any{"x": 2}})
	_, err := e.Extract(context.Background(), p, []model.Mapping{{Source: "$.a", Target: "$"}})
	require.Error(t, err)
	assert.Equal(t, "Processing failed, since mapping will result in a non map object (json object).", MessageOf(err))

	res, err := e.Extract(context.Background(), p, []model.Mapping{{Source: "$.o", Target: "$"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": 2}, undoc(t, res))
}

func TestMergeWithoutMappings(t *testing.T) {
	e := newEngine(t)
	job := doc(t, map[string]any{"a": 2, "c": 3})
	base := doc(t, map[string]any{"a": 1, "b": 1})
	res, err := e.Merge(context.Background(), job, base, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 2, "b": 1, "c": 3}, undoc(t, res))
}

func TestMergeIntoEmptyBase(t *testing.T) {
	e := newEngine(t)
	job := doc(t, map[string]any{"result": "ok"})
	res, err := e.Merge(context.Background(), job, vars.Empty, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"result": "ok"}, undoc(t, res))
}

func TestMergeWithMappings(t *testing.T) {
	e := newEngine(t)
	job := doc(t, map[string]any{"price": 12.5, "ignored": 1})
	base := doc(t, map[string]any{"order": map[string]any{"id": "o-1"}})
	res, err := e.Merge(context.Background(), job, base, []model.Mapping{{Source: "$.price", Target: "$.order.price"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"order": map[string]any{"id": "o-1", "price": 12.5}}, undoc(t, res))
}

func TestMergeMissingSource(t *testing.T) {
	e := newEngine(t)
	_, err := e.Merge(context.Background(), vars.Empty, vars.Empty, []model.Mapping{{Source: "$.x", Target: "$.y"}})
	require.Error(t, err)
	assert.Equal(t, "No data found for query $.x.", MessageOf(err))
}

func TestQuery(t *testing.T) {
	e := newEngine(t)
	p := doc(t, map[string]any{"key": "k-1", "list": []any{1, 2}, "obj": map[string]any{}})
	ctx := context.Background()

	res, err := e.Query(ctx, p, "$.key")
	require.NoError(t, err)
	assert.Equal(t, []any{"k-1"}, res)

	res, err = e.Query(ctx, p, "$.list[*]")
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2}, res)

	res, err = e.Query(ctx, p, "$.missing")
	require.NoError(t, err)
	assert.Empty(t, res)

	res, err = e.Query(ctx, p, "$.key.deeper")
	require.NoError(t, err)
	assert.Empty(t, res)

	res, err = e.Query(ctx, p, "$.obj")
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{}}, res)
}

func TestQueryInvalidPath(t *testing.T) {
	e := newEngine(t)
	_, err := e.Query(context.Background(), vars.Empty, "key")
	assert.Error(t, err)
}

func TestEvaluateCondition(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	p := doc(t, map[string]any{"orderValue": 150})

	ok, err := e.EvaluateCondition(ctx, "$.orderValue >= 100", p)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.EvaluateCondition(ctx, "$.orderValue < 100", p)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = e.EvaluateCondition(ctx, "$.orderValue >", p)
	assert.Error(t, err)
}

func TestToJq(t *testing.T) {
	for in, want := range map[string]string{
		"$":          ".",
		"$.a":        `.["a"]`,
		"$.a.b":      `.["a"]["b"]`,
		"$.a[0]":     `.["a"][0]`,
		"$['a b'].c": `.["a b"]["c"]`,
		"$.a[*]":     `.["a"][]`,
		"$.my-key":   `.["my-key"]`,
	} {
		got, err := toJq(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"a", "$..a", "$.a[", "$.a[x]"} {
		_, err := toJq(bad)
		assert.Error(t, err, bad)
	}
}
