package workflow

import (
	"context"
	"fmt"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rtenhove/zeebe/server/services/logstream"
	"github.com/rtenhove/zeebe/server/vars"
)

// payloadCache remembers the payload a workflow instance had before its current activity mapped it.
// Only a bounded number of payloads is held in memory. The log position of every entry is kept so that an
// evicted payload can be read back from the record it came from.
type payloadCache struct {
	positions map[int64]int64
	payloads  *ttlcache.Cache[int64, []byte]
	stream    logstream.Stream
}

func newPayloadCache(stream logstream.Stream, size int) *payloadCache {
	if size < 1 {
		size = 1
	}
	return &payloadCache{
		positions: make(map[int64]int64),
		payloads: ttlcache.New(
			ttlcache.WithCapacity[int64, []byte](uint64(size)),
			ttlcache.WithDisableTouchOnHit[int64, []byte](),
		),
		stream: stream,
	}
}

func (c *payloadCache) add(workflowInstanceKey int64, position int64, payload []byte) {
	c.positions[workflowInstanceKey] = position
	c.payloads.Set(workflowInstanceKey, payload, ttlcache.NoTTL)
}

// get returns the cached payload of an instance. An instance without an entry has the empty document.
func (c *payloadCache) get(ctx context.Context, workflowInstanceKey int64) ([]byte, error) {
	if item := c.payloads.Get(workflowInstanceKey); item != nil {
		return item.Value(), nil
	}
	pos, ok := c.positions[workflowInstanceKey]
	if !ok {
		return vars.Empty, nil
	}
	rec, err := c.stream.ReadAt(ctx, pos)
	if err != nil {
		return nil, fmt.Errorf("read cached payload of %d at %d: %w", workflowInstanceKey, pos, err)
	}
	wi := rec.WorkflowInstance()
	if wi == nil {
		return nil, fmt.Errorf("read cached payload of %d at %d: record %s has no workflow instance value", workflowInstanceKey, pos, rec)
	}
	c.payloads.Set(workflowInstanceKey, wi.Payload, ttlcache.NoTTL)
	return wi.Payload, nil
}

func (c *payloadCache) remove(workflowInstanceKey int64) {
	delete(c.positions, workflowInstanceKey)
	c.payloads.Delete(workflowInstanceKey)
}
