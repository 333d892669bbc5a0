package output

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rtenhove/zeebe/model"
	"github.com/rtenhove/zeebe/server/services/deployment"
	"github.com/rtenhove/zeebe/server/services/response"
	"github.com/rtenhove/zeebe/server/tools/tracer"
	"github.com/rtenhove/zeebe/server/vars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	old := Stream
	Stream = buf
	t.Cleanup(func() { Stream = old })
	return buf
}

func createdResponse(t *testing.T) *response.Response {
	t.Helper()
	doc, err := vars.Encode(context.Background(), map[string]any{"orderId": "o-1"})
	require.NoError(t, err)
	v, err := msgpack.Marshal(&model.WorkflowInstanceRecord{
		BpmnProcessID:       "order-process",
		Version:             2,
		WorkflowKey:         20,
		WorkflowInstanceKey: 2251799813685249,
		Payload:             doc,
	})
	require.NoError(t, err)
	return &response.Response{
		RequestID:   1,
		PartitionID: 1,
		Position:    4096,
		Key:         2251799813685249,
		RecordType:  model.RecordTypeEvent,
		ValueType:   model.ValueTypeWorkflowInstance,
		Intent:      model.WorkflowInstanceCreated,
		Value:       v,
	}
}

func TestJsonResponse(t *testing.T) {
	buf := capture(t)
	require.NoError(t, (&Json{}).OutputResponse(createdResponse(t)))
	out := ResponseOutput{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "CREATED", out.Intent)
	assert.False(t, out.Rejected)
	assert.Equal(t, int64(2251799813685249), out.Key)
	assert.Equal(t, "order-process", out.Value["bpmnProcessId"])
	assert.Equal(t, map[string]any{"orderId": "o-1"}, out.Value["payload"])
}

func TestJsonRejection(t *testing.T) {
	buf := capture(t)
	res := createdResponse(t)
	res.RecordType = model.RecordTypeCommandRejection
	res.Intent = model.WorkflowInstanceCancel
	res.RejectionType = model.RejectionNotApplicable
	res.RejectionReason = "Workflow instance is not running"
	require.NoError(t, (&Json{}).OutputResponse(res))
	out := ResponseOutput{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.True(t, out.Rejected)
	assert.Equal(t, "CANCEL", out.Intent)
	assert.Equal(t, "Workflow instance is not running", out.RejectionReason)
}

func TestJsonDeployResult(t *testing.T) {
	buf := capture(t)
	(&Json{}).OutputDeployResult([]deployment.Response{{Found: true, Key: 20, Version: 2, BpmnProcessID: "order-process"}})
	assert.JSONEq(t, `{"workflows":[{"workflowKey":20,"bpmnProcessId":"order-process","version":2}]}`, buf.String())
}

func TestTextOutput(t *testing.T) {
	buf := capture(t)
	c := &Text{}
	c.OutputDeployResult([]deployment.Response{{Found: true, Key: 20, Version: 2, BpmnProcessID: "order-process"}})
	require.NoError(t, c.OutputResponse(createdResponse(t)))
	c.OutputJobCompleted(77)
	require.NoError(t, c.OutputEntry(&tracer.Entry{
		Position:       4096,
		SourcePosition: -1,
		Key:            1,
		RecordType:     "EVENT",
		ValueType:      "WORKFLOW_INSTANCE",
		Intent:         "CREATED",
		Payload:        map[string]any{"orderId": "o-1"},
	}))
	out := buf.String()
	assert.Contains(t, out, "order-process")
	assert.Contains(t, out, "CREATED")
	assert.Contains(t, out, "completed job 77")
	assert.Contains(t, out, `{"orderId":"o-1"}`)
}
