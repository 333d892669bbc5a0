package workflow

import (
	"bytes"
	"context"
	"fmt"

	"github.com/rtenhove/zeebe/client/parser"
	"github.com/rtenhove/zeebe/common/cache"
	"github.com/rtenhove/zeebe/common/expression"
	"github.com/rtenhove/zeebe/common/future"
	"github.com/rtenhove/zeebe/model"
	"github.com/rtenhove/zeebe/server/services/deployment"
)

// WorkflowFetcher looks up deployed workflows. The answer is a raw deployment response.
//
//go:generate mockery
type WorkflowFetcher interface {
	Fetch(ctx context.Context, req deployment.Request) ([]byte, error)
}

type processVersion struct {
	bpmnProcessID string
	version       int32
}

type latestVersion struct {
	key     int64
	version int32
}

// workflowCache holds the deployed workflows the partition has seen.
// Lookups are synchronous and only answer from memory, fetches go to the deployment service.
type workflowCache struct {
	byKey    *cache.Cache[int64, *model.DeployedWorkflow]
	versions map[processVersion]int64
	latest   map[string]latestVersion
	fetcher  WorkflowFetcher
	eng      expression.Engine
}

func newWorkflowCache(fetcher WorkflowFetcher, eng expression.Engine, size int64) (*workflowCache, error) {
	backend, err := cache.NewRistrettoCacheBackend[int64, *model.DeployedWorkflow](size)
	if err != nil {
		return nil, fmt.Errorf("create workflow cache: %w", err)
	}
	return &workflowCache{
		byKey:    cache.New[int64, *model.DeployedWorkflow](backend),
		versions: make(map[processVersion]int64),
		latest:   make(map[string]latestVersion),
		fetcher:  fetcher,
		eng:      eng,
	}, nil
}

func (c *workflowCache) getByKey(key int64) *model.DeployedWorkflow {
	if wf, ok := c.byKey.Get(key); ok {
		return wf
	}
	return nil
}

func (c *workflowCache) getByProcessIDAndVersion(bpmnProcessID string, version int32) *model.DeployedWorkflow {
	key, ok := c.versions[processVersion{bpmnProcessID: bpmnProcessID, version: version}]
	if !ok {
		return nil
	}
	return c.getByKey(key)
}

func (c *workflowCache) getLatestByProcessID(bpmnProcessID string) *model.DeployedWorkflow {
	l, ok := c.latest[bpmnProcessID]
	if !ok {
		return nil
	}
	return c.getByKey(l.key)
}

func (c *workflowCache) close() {
	c.byKey.Close()
}

func (c *workflowCache) fetchByKey(ctx context.Context, key int64) *future.Future[[]byte] {
	return c.fetch(ctx, deployment.ByKey(key))
}

func (c *workflowCache) fetchByProcessIDAndVersion(ctx context.Context, bpmnProcessID string, version int32) *future.Future[[]byte] {
	return c.fetch(ctx, deployment.ByProcessIDAndVersion(bpmnProcessID, version))
}

func (c *workflowCache) fetchLatestByProcessID(ctx context.Context, bpmnProcessID string) *future.Future[[]byte] {
	return c.fetch(ctx, deployment.LatestByProcessID(bpmnProcessID))
}

func (c *workflowCache) fetch(ctx context.Context, req deployment.Request) *future.Future[[]byte] {
	return future.Go(ctx, func(ctx context.Context) ([]byte, error) {
		return c.fetcher.Fetch(ctx, req)
	})
}

// addWorkflow parses a fetched deployment response and caches the workflow it carries.
// It returns nil when the response holds no deployed workflow.
func (c *workflowCache) addWorkflow(ctx context.Context, buf []byte) (*model.DeployedWorkflow, error) {
	res, err := deployment.DecodeResponse(buf)
	if err != nil {
		return nil, fmt.Errorf("add workflow: %w", err)
	}
	if !res.Found {
		return nil, nil
	}
	wf, err := cache.Cacheable(res.Key, func() (*model.DeployedWorkflow, error) {
		graph, err := parser.ParseProcess(ctx, c.eng, bytes.NewReader(res.Resource), res.BpmnProcessID)
		if err != nil {
			return nil, fmt.Errorf("parse workflow %s version %d: %w", res.BpmnProcessID, res.Version, err)
		}
		return &model.DeployedWorkflow{
			Key:           res.Key,
			Version:       res.Version,
			BpmnProcessID: res.BpmnProcessID,
			Workflow:      graph,
		}, nil
	}, c.byKey)
	if err != nil {
		return nil, fmt.Errorf("add workflow: %w", err)
	}
	c.versions[processVersion{bpmnProcessID: wf.BpmnProcessID, version: wf.Version}] = wf.Key
	if cur, ok := c.latest[wf.BpmnProcessID]; !ok || cur.version <= wf.Version {
		c.latest[wf.BpmnProcessID] = latestVersion{key: wf.Key, version: wf.Version}
	}
	return wf, nil
}
