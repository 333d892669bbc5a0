package workflow

import (
	"context"
	"testing"

	"github.com/rtenhove/zeebe/model"
	"github.com/rtenhove/zeebe/server/services/logstream"
	"github.com/rtenhove/zeebe/server/vars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadCacheReadsEvictedPayloadFromLog(t *testing.T) {
	ctx := context.Background()
	log := logstream.NewMemory(1)
	first, err := vars.Encode(ctx, map[string]any{"n": 1})
	require.NoError(t, err)
	second, err := vars.Encode(ctx, map[string]any{"n": 2})
	require.NoError(t, err)

	recs := []*model.Record{
		{Key: 1, RecordType: model.RecordTypeEvent, ValueType: model.ValueTypeWorkflowInstance, Intent: model.WorkflowInstanceActivityReady, Metadata: model.NewMetadata(), Value: &model.WorkflowInstanceRecord{WorkflowInstanceKey: 10, Payload: first}},
		{Key: 2, RecordType: model.RecordTypeEvent, ValueType: model.ValueTypeWorkflowInstance, Intent: model.WorkflowInstanceActivityReady, Metadata: model.NewMetadata(), Value: &model.WorkflowInstanceRecord{WorkflowInstanceKey: 20, Payload: second}},
	}
	_, err = log.Append(ctx, recs)
	require.NoError(t, err)

	c := newPayloadCache(log, 1)
	c.add(10, recs[0].Position, first)
	c.add(20, recs[1].Position, second)
	assert.Nil(t, c.payloads.Get(10), "the first payload is evicted")

	got, err := c.get(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, first, got)
	got, err = c.get(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestPayloadCacheWithoutEntry(t *testing.T) {
	c := newPayloadCache(logstream.NewMemory(1), 4)
	got, err := c.get(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, vars.Empty, got)

	c.add(10, 4096, []byte{0x81})
	c.remove(10)
	got, err = c.get(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, vars.Empty, got)
}

func TestPayloadCacheReportsUnreadablePosition(t *testing.T) {
	c := newPayloadCache(logstream.NewMemory(1), 1)
	c.add(10, logstream.Position(7, 0), []byte{0x80})
	c.add(20, logstream.Position(8, 0), []byte{0x80})

	_, err := c.get(context.Background(), 10)
	assert.ErrorContains(t, err, "read cached payload of 10")
}
