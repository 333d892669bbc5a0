package workflow

import (
	"context"
	"testing"

	"github.com/rtenhove/zeebe/common/expression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorkflowCache(t *testing.T) *workflowCache {
	c, err := newWorkflowCache(&MockWorkflowFetcher{}, expression.NewExprEngine(), 10)
	require.NoError(t, err)
	t.Cleanup(c.close)
	return c
}

func TestWorkflowCacheTracksVersions(t *testing.T) {
	ctx := context.Background()
	c := newTestWorkflowCache(t)

	v2, err := c.addWorkflow(ctx, deployedResponse(t, 20, 2, "order-process", "order-process.bpmn"))
	require.NoError(t, err)
	v1, err := c.addWorkflow(ctx, deployedResponse(t, 10, 1, "order-process", "order-process.bpmn"))
	require.NoError(t, err)

	assert.Same(t, v1, c.getByKey(10))
	assert.Same(t, v1, c.getByProcessIDAndVersion("order-process", 1))
	assert.Same(t, v2, c.getByProcessIDAndVersion("order-process", 2))
	assert.Same(t, v2, c.getLatestByProcessID("order-process"), "an older version does not replace the latest")
	assert.Nil(t, c.getByProcessIDAndVersion("order-process", 3))
	assert.Nil(t, c.getLatestByProcessID("gateway-process"))
	assert.Equal(t, "order-placed", v1.Workflow.InitialStartEvent.ID)
}

func TestWorkflowCacheParsesAWorkflowOnce(t *testing.T) {
	ctx := context.Background()
	c := newTestWorkflowCache(t)
	buf := deployedResponse(t, 10, 1, "order-process", "order-process.bpmn")

	first, err := c.addWorkflow(ctx, buf)
	require.NoError(t, err)
	again, err := c.addWorkflow(ctx, buf)
	require.NoError(t, err)
	assert.Same(t, first, again)
}

func TestWorkflowCacheIgnoresMissingWorkflow(t *testing.T) {
	c := newTestWorkflowCache(t)
	wf, err := c.addWorkflow(context.Background(), notDeployedResponse(t))
	require.NoError(t, err)
	assert.Nil(t, wf)

	_, err = c.addWorkflow(context.Background(), []byte("not msgpack"))
	assert.Error(t, err)
}

func TestWorkflowCacheRejectsInvalidResource(t *testing.T) {
	c := newTestWorkflowCache(t)
	_, err := c.addWorkflow(context.Background(), deployedResponse(t, 10, 1, "bad", "bad/unsupported-element.bpmn"))
	assert.Error(t, err)
	assert.Nil(t, c.getByKey(10))
}
