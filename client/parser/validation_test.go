package parser

import (
	"bytes"
	"context"
	"testing"

	"github.com/rtenhove/zeebe/common/expression"
	"github.com/rtenhove/zeebe/server/errors"
	"github.com/stretchr/testify/assert"
)

func Test_MissingServiceTaskDefinition(t *testing.T) {
	_, err := parseFile(t, "bad/missing-task-definition.bpmn")
	assert.ErrorIs(t, err, errors.ErrInvalidDefinition)
}

func TestValidateGatewayFlowsNeedConditions(t *testing.T) {
	_, err := parseFile(t, "bad/gateway-missing-condition.bpmn")
	assert.ErrorIs(t, err, errors.ErrInvalidDefinition)
	assert.ErrorContains(t, err, "needs a condition")
}

func TestUnsupportedElement(t *testing.T) {
	_, err := parseFile(t, "bad/unsupported-element.bpmn")
	assert.ErrorIs(t, err, errors.ErrInvalidDefinition)
	assert.ErrorContains(t, err, "parallelGateway")
}

func TestValidateConditionSyntax(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<bpmn:definitions xmlns:bpmn="http://www.omg.org/spec/BPMN/20100524/MODEL">
  <bpmn:process id="p" isExecutable="true">
    <bpmn:startEvent id="start" />
    <bpmn:sequenceFlow id="f1" sourceRef="start" targetRef="gw" />
    <bpmn:exclusiveGateway id="gw" />
    <bpmn:sequenceFlow id="f2" sourceRef="gw" targetRef="end">
      <bpmn:conditionExpression>$.a &gt;</bpmn:conditionExpression>
    </bpmn:sequenceFlow>
    <bpmn:endEvent id="end" />
  </bpmn:process>
</bpmn:definitions>`
	_, err := Parse(context.Background(), expression.NewExprEngine(), bytes.NewBufferString(doc))
	assert.ErrorIs(t, err, errors.ErrInvalidDefinition)
}

func TestValidName(t *testing.T) {
	assert.NoError(t, validName("order-process"))
	assert.Error(t, validName(""))
	assert.Error(t, validName(".hidden"))
	assert.Error(t, validName("with space"))
}
