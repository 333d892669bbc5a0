package vars

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeVars(t *testing.T) {
	ctx := context.Background()
	v := map[string]any{
		"first":  56,
		"second": "elvis",
		"third":  5.98,
		"nested": map[string]any{"list": []any{1, "two", true}},
	}

	e, err := Encode(ctx, v)
	require.NoError(t, err)
	d, err := Decode(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, 56, d["first"])
	assert.Equal(t, "elvis", d["second"])
	assert.Equal(t, 5.98, d["third"])
	assert.Equal(t, []any{1, "two", true}, d["nested"].(map[string]any)["list"])
}

func TestEmptyPayloads(t *testing.T) {
	ctx := context.Background()
	d, err := Decode(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, d)

	d, err = Decode(ctx, Empty)
	require.NoError(t, err)
	assert.Empty(t, d)

	b, err := Encode(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, Empty, b)
}

func TestDecodeRejectsNonMapRoot(t *testing.T) {
	b, err := EncodeAny([]any{1, 2})
	require.NoError(t, err)
	_, err = Decode(context.Background(), b)
	assert.Error(t, err)
}

func TestJSONConversion(t *testing.T) {
	ctx := context.Background()
	b, err := FromJSON(ctx, []byte(`{"orderId": 42, "price": 9.5, "tags": ["a"]}`))
	require.NoError(t, err)
	d, err := Decode(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 42, d["orderId"])
	assert.Equal(t, 9.5, d["price"])

	j, err := ToJSON(ctx, b)
	require.NoError(t, err)
	assert.JSONEq(t, `{"orderId": 42, "price": 9.5, "tags": ["a"]}`, string(j))
}

func TestEqualDocumentsEncodeEqually(t *testing.T) {
	ctx := context.Background()
	a, err := Encode(ctx, map[string]any{"z": 1, "a": 2, "m": map[string]any{"y": 1, "b": 2}})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		b, err := Encode(ctx, map[string]any{"m": map[string]any{"b": 2, "y": 1}, "a": 2, "z": 1})
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}
