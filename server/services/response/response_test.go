package response

import (
	"context"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/rtenhove/zeebe/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockNatsConn struct {
	mock.Mock
}

func (m *mockNatsConn) Publish(subj string, bytes []byte) error {
	return m.Called(subj, bytes).Error(0)
}

func (m *mockNatsConn) PublishMsg(msg *nats.Msg) error {
	return m.Called(msg).Error(0)
}

func (m *mockNatsConn) Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error) {
	ret := m.Called(subj, cb)
	return nil, ret.Error(1)
}

func (m *mockNatsConn) QueueSubscribe(subj string, queue string, cb nats.MsgHandler) (*nats.Subscription, error) {
	ret := m.Called(subj, queue, cb)
	return nil, ret.Error(1)
}

func (m *mockNatsConn) RequestMsgWithContext(ctx context.Context, msg *nats.Msg) (*nats.Msg, error) {
	ret := m.Called(ctx, msg)
	return nil, ret.Error(1)
}

func createCommand() *model.Record {
	md := model.NewMetadata()
	md.RequestID = 42
	md.RequestStreamID = 7
	return &model.Record{
		Position:       4096,
		SourcePosition: -1,
		Key:            -1,
		RecordType:     model.RecordTypeCommand,
		ValueType:      model.ValueTypeWorkflowInstance,
		Intent:         model.WorkflowInstanceCreate,
		Metadata:       md,
		Value:          &model.WorkflowInstanceRecord{BpmnProcessID: "order-process"},
	}
}

func TestWriteRejection(t *testing.T) {
	nc := &mockNatsConn{}
	var sent *nats.Msg
	nc.On("PublishMsg", mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(0).(*nats.Msg)
	}).Return(nil).Once()

	w := NewWriter(nc, 1)
	require.NoError(t, w.WriteRejection(context.Background(), createCommand(), model.RejectionBadValue, "Workflow is not deployed"))
	nc.AssertExpectations(t)

	require.NotNil(t, sent)
	assert.Equal(t, "zeebe.response.7", sent.Subject)
	res, err := Decode(sent.Data)
	require.NoError(t, err)
	assert.True(t, res.IsRejection())
	assert.Equal(t, int64(42), res.RequestID)
	assert.Equal(t, int32(1), res.PartitionID)
	assert.Equal(t, model.RejectionBadValue, res.RejectionType)
	assert.Equal(t, "Workflow is not deployed", res.RejectionReason)
	assert.Equal(t, model.WorkflowInstanceCreate, res.Intent)
	wi, err := res.WorkflowInstance()
	require.NoError(t, err)
	assert.Equal(t, "order-process", wi.BpmnProcessID)
}

func TestWriteEvent(t *testing.T) {
	nc := &mockNatsConn{}
	var sent *nats.Msg
	nc.On("PublishMsg", mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(0).(*nats.Msg)
	}).Return(nil).Once()

	created := createCommand()
	created.RecordType = model.RecordTypeEvent
	created.Intent = model.WorkflowInstanceCreated
	created.Key = 99
	require.NoError(t, NewWriter(nc, 1).WriteEvent(context.Background(), created))

	res, err := Decode(sent.Data)
	require.NoError(t, err)
	assert.False(t, res.IsRejection())
	assert.Equal(t, int64(99), res.Key)
	assert.Equal(t, model.WorkflowInstanceCreated, res.Intent)
}

func TestNoRequestNoResponse(t *testing.T) {
	nc := &mockNatsConn{}
	rec := createCommand()
	rec.Metadata = model.NewMetadata()
	require.NoError(t, NewWriter(nc, 1).WriteEvent(context.Background(), rec))
	nc.AssertNotCalled(t, "PublishMsg", mock.Anything)
}
