package logstream_test

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rtenhove/zeebe/model"
	"github.com/rtenhove/zeebe/server/errors"
	"github.com/rtenhove/zeebe/server/services/logstream"
	"github.com/rtenhove/zeebe/server/services/natz"
	zensvr "github.com/rtenhove/zeebe/zen/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJetStreamLog(t *testing.T) *logstream.JetStream {
	nsvr, err := zensvr.NewNatsServer("127.0.0.1", -1)
	require.NoError(t, err)
	t.Cleanup(nsvr.Shutdown)
	nc, err := nats.Connect(nsvr.URL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	svc, err := natz.NewNatsService(context.Background(), &natz.NatsConnConfiguration{
		Conn:        nc,
		StorageType: jetstream.MemoryStorage,
		Partitions:  []int32{1},
	})
	require.NoError(t, err)
	return logstream.NewJetStream(svc.Js, 1)
}

func record(key int64, src int64, intent model.Intent) *model.Record {
	return &model.Record{
		SourcePosition: src,
		Key:            key,
		RecordType:     model.RecordTypeEvent,
		ValueType:      model.ValueTypeWorkflowInstance,
		Intent:         intent,
		Metadata:       model.NewMetadata(),
		Value:          &model.WorkflowInstanceRecord{BpmnProcessID: "order-process", WorkflowInstanceKey: key},
	}
}

func TestJetStreamAppendAndRead(t *testing.T) {
	ctx := context.Background()
	log := newJetStreamLog(t)
	assert.Equal(t, int32(1), log.PartitionID())

	last, err := log.LastSourcePosition(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), last)

	create := record(-1, -1, model.WorkflowInstanceCreate)
	create.RecordType = model.RecordTypeCommand
	pos, err := log.Append(ctx, []*model.Record{create})
	require.NoError(t, err)
	assert.Equal(t, logstream.Position(1, 0), pos)

	batch := []*model.Record{
		record(10, pos, model.WorkflowInstanceCreated),
		record(11, pos, model.WorkflowInstanceStartEventOccurred),
	}
	pos2, err := log.Append(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, logstream.Position(2, 0), pos2)
	assert.Equal(t, logstream.Position(2, 1), batch[1].Position)

	rec, err := log.ReadAt(ctx, batch[1].Position)
	require.NoError(t, err)
	assert.Equal(t, int64(11), rec.Key)
	assert.Equal(t, model.WorkflowInstanceStartEventOccurred, rec.Intent)

	_, err = log.ReadAt(ctx, logstream.Position(9, 0))
	assert.ErrorIs(t, err, errors.ErrRecordNotFound)

	last, err = log.LastSourcePosition(ctx)
	require.NoError(t, err)
	assert.Equal(t, pos, last)
}

func TestJetStreamDeduplicatesOutputOfOneSource(t *testing.T) {
	ctx := context.Background()
	log := newJetStreamLog(t)

	first, err := log.Append(ctx, []*model.Record{record(10, 4096, model.WorkflowInstanceCreated)})
	require.NoError(t, err)
	again, err := log.Append(ctx, []*model.Record{record(10, 4096, model.WorkflowInstanceCreated)})
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestJetStreamConsume(t *testing.T) {
	log := newJetStreamLog(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := log.Append(ctx, []*model.Record{record(1, -1, model.WorkflowInstanceCreate)})
	require.NoError(t, err)
	_, err = log.Append(ctx, []*model.Record{record(2, 0, model.WorkflowInstanceCreated), record(3, 0, model.WorkflowInstanceStartEventOccurred)})
	require.NoError(t, err)

	var positions []int64
	err = log.Consume(ctx, func(ctx context.Context, rec *model.Record) error {
		positions = append(positions, rec.Position)
		if len(positions) == 3 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int64{logstream.Position(1, 0), logstream.Position(2, 0), logstream.Position(2, 1)}, positions)
}
