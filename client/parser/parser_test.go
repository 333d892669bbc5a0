package parser

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/rtenhove/zeebe/common/expression"
	"github.com/rtenhove/zeebe/model"
	"github.com/rtenhove/zeebe/server/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFile(t *testing.T, name string) ([]*model.Workflow, error) {
	b, err := os.ReadFile("../../testdata/" + name)
	require.NoError(t, err)
	return Parse(context.Background(), expression.NewExprEngine(), bytes.NewBuffer(b))
}

func TestParseServiceTask(t *testing.T) {
	wfs, err := parseFile(t, "order-process.bpmn")
	require.NoError(t, err)
	require.Len(t, wfs, 1)
	wf := wfs[0]
	assert.Equal(t, "order-process", wf.BpmnProcessID)
	require.NotNil(t, wf.InitialStartEvent)
	assert.Equal(t, "order-placed", wf.InitialStartEvent.ID)
	assert.Equal(t, model.AspectTakeSequenceFlow, wf.InitialStartEvent.Aspect())

	st, ok := wf.FindFlowElement("collect-money").(*model.ServiceTask)
	require.True(t, ok)
	assert.Equal(t, "payment-service", st.TaskType)
	assert.Equal(t, int32(5), st.Retries)
	assert.Equal(t, map[string]string{"method": "VISA"}, st.Headers)
	assert.Equal(t, []model.Mapping{{Source: "$.order.total", Target: "$.amount"}}, st.IO.Inputs)
	assert.Equal(t, []model.Mapping{{Source: "$.transactionId", Target: "$.payment.transactionId"}}, st.IO.Outputs)
	assert.Equal(t, model.OutputBehaviorMerge, st.IO.OutputBehavior)
	require.Len(t, st.Outgoing(), 1)
	assert.Equal(t, "order-delivered", st.Outgoing()[0].Target.ElementID())

	end, ok := wf.FindFlowElement("order-delivered").(*model.EndEvent)
	require.True(t, ok)
	assert.Equal(t, model.AspectConsumeToken, end.Aspect())
}

func TestParseExclusiveGateway(t *testing.T) {
	wfs, err := parseFile(t, "exclusive-gateway.bpmn")
	require.NoError(t, err)
	gw, ok := wfs[0].FindFlowElement("split").(*model.ExclusiveGateway)
	require.True(t, ok)
	assert.Equal(t, model.AspectExclusiveSplit, gw.Aspect())
	require.NotNil(t, gw.DefaultFlow)
	assert.Equal(t, "to-standard", gw.DefaultFlow.ID)

	conditioned := gw.ConditionedFlows()
	require.Len(t, conditioned, 2)
	assert.Equal(t, "to-express", conditioned[0].ID)
	assert.Equal(t, "$.orderValue >= 100", conditioned[0].Condition)
	assert.Equal(t, "to-priority", conditioned[1].ID)
}

func TestParseMessageCatchEvent(t *testing.T) {
	wfs, err := parseFile(t, "message-catch.bpmn")
	require.NoError(t, err)
	ce, ok := wfs[0].FindFlowElement("wait-for-payment").(*model.IntermediateMessageCatchEvent)
	require.True(t, ok)
	assert.Equal(t, "payment-received", ce.MessageName)
	assert.Equal(t, "$.orderId", ce.CorrelationKey)
	assert.Equal(t, model.AspectTakeSequenceFlow, ce.Aspect())
}

func TestParseProcessByID(t *testing.T) {
	b, err := os.ReadFile("../../testdata/order-process.bpmn")
	require.NoError(t, err)
	ctx := context.Background()
	eng := expression.NewExprEngine()

	wf, err := ParseProcess(ctx, eng, bytes.NewReader(b), "order-process")
	require.NoError(t, err)
	assert.Equal(t, "order-process", wf.BpmnProcessID)

	_, err = ParseProcess(ctx, eng, bytes.NewReader(b), "other")
	assert.ErrorIs(t, err, errors.ErrInvalidDefinition)
}

func TestSequenceFlowIntoStartEventParses(t *testing.T) {
	wfs, err := parseFile(t, "start-loop.bpmn")
	require.NoError(t, err)
	f, ok := wfs[0].FindFlowElement("back-to-start").(*model.SequenceFlow)
	require.True(t, ok)
	assert.IsType(t, &model.StartEvent{}, f.Target)
}
