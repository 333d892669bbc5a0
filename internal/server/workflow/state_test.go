package workflow

import (
	"testing"

	"github.com/rtenhove/zeebe/model"
	"github.com/stretchr/testify/assert"
)

func TestKeysCarryThePartition(t *testing.T) {
	g := newKeyGenerator(3)
	first, second := g.nextKey(), g.nextKey()
	assert.Equal(t, int64(3)<<51|1, first)
	assert.Equal(t, first+1, second)
	assert.Equal(t, int32(3), PartitionOfKey(first))
	assert.Equal(t, int32(0), PartitionOfKey(newKeyGenerator(0).nextKey()))
}

func TestInstanceIndex(t *testing.T) {
	x := newInstanceIndex()
	assert.False(t, x.isActive(1))

	inst := x.add(1, 4096, 10)
	assert.Equal(t, &instance{tokens: 1, activityInstanceKey: model.NoKey, position: 4096, workflowKey: 10}, inst)
	assert.True(t, x.isActive(1))

	inst.tokens = 0
	assert.False(t, x.isActive(1), "an instance without tokens is not active")

	x.remove(1)
	_, ok := x.get(1)
	assert.False(t, ok)
	assert.Equal(t, 0, x.len())
}

func TestActivityMap(t *testing.T) {
	m := newActivityMap()
	assert.Equal(t, model.NoKey, m.jobKey(5))

	m.add(5, "collect-money")
	assert.Equal(t, model.NoKey, m.jobKey(5))
	a, ok := m.get(5)
	assert.True(t, ok)
	a.jobKey = 99
	assert.Equal(t, int64(99), m.jobKey(5))

	m.remove(5)
	assert.Equal(t, 0, m.len())
}
