package deployment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rtenhove/zeebe/client/parser"
	"github.com/rtenhove/zeebe/common"
	"github.com/rtenhove/zeebe/common/expression"
	"github.com/rtenhove/zeebe/common/logx"
	"github.com/rtenhove/zeebe/server/errors/keys"
	"github.com/vmihailenco/msgpack/v5"
)

type storedWorkflow struct {
	BpmnProcessID string `msgpack:"bpmnProcessId"`
	Version       int32  `msgpack:"version"`
	Resource      []byte `msgpack:"resource"`
}

// Repository keeps deployed workflows in a key value bucket.
//
// Every version of a process lives under def.<process id>.<version>. The revision at which that entry was created is
// the workflow key, key.<workflow key> points back at the entry, and latest.<process id> holds the newest version.
type Repository struct {
	kv  jetstream.KeyValue
	eng expression.Engine
}

// NewRepository creates a repository over the workflow bucket.
func NewRepository(kv jetstream.KeyValue, eng expression.Engine) *Repository {
	return &Repository{kv: kv, eng: eng}
}

// Deploy validates a BPMN resource and stores a new version of every process it declares.
// Deploying a process whose latest version has the same resource returns that version.
func (r *Repository) Deploy(ctx context.Context, resource []byte) ([]Response, error) {
	ctx, log := logx.ContextWith(ctx, "deployment.Deploy")
	wfs, err := parser.Parse(ctx, r.eng, bytes.NewReader(resource))
	if err != nil {
		return nil, fmt.Errorf("deploy: %w", err)
	}
	ret := make([]Response, 0, len(wfs))
	for _, wf := range wfs {
		latest, err := r.Lookup(ctx, LatestByProcessID(wf.BpmnProcessID))
		if err != nil {
			return nil, fmt.Errorf("deploy %s: %w", wf.BpmnProcessID, err)
		}
		if latest.Found && bytes.Equal(latest.Resource, resource) {
			log.Info("resource unchanged, keeping deployed version", slog.String(keys.ProcessID, wf.BpmnProcessID), slog.Int64(keys.WorkflowKey, latest.Key))
			ret = append(ret, *latest)
			continue
		}
		var version int32
		if err := common.UpdateKV(ctx, r.kv, latestKey(wf.BpmnProcessID), func(v []byte) ([]byte, error) {
			version = 1
			if v != nil {
				cur, err := strconv.ParseInt(string(v), 10, 32)
				if err != nil {
					return nil, fmt.Errorf("parse latest version: %w", err)
				}
				version = int32(cur) + 1
			}
			return []byte(strconv.Itoa(int(version))), nil
		}); err != nil {
			return nil, fmt.Errorf("deploy %s: next version: %w", wf.BpmnProcessID, err)
		}
		b, err := msgpack.Marshal(&storedWorkflow{BpmnProcessID: wf.BpmnProcessID, Version: version, Resource: resource})
		if err != nil {
			return nil, fmt.Errorf("deploy %s: encode: %w", wf.BpmnProcessID, err)
		}
		defKey := definitionKey(wf.BpmnProcessID, version)
		rev, err := common.Create(ctx, r.kv, defKey, b)
		if err != nil {
			return nil, fmt.Errorf("deploy %s: %w", wf.BpmnProcessID, err)
		}
		if err := common.Save(ctx, r.kv, indexKey(int64(rev)), []byte(defKey)); err != nil {
			return nil, fmt.Errorf("deploy %s: index key: %w", wf.BpmnProcessID, err)
		}
		log.Info("workflow deployed", slog.String(keys.ProcessID, wf.BpmnProcessID), slog.Int(keys.Version, int(version)), slog.Int64(keys.WorkflowKey, int64(rev)))
		ret = append(ret, Response{Found: true, Key: int64(rev), Version: version, BpmnProcessID: wf.BpmnProcessID, Resource: resource})
	}
	return ret, nil
}

// Lookup resolves a request. A workflow that does not exist is not an error: the response reports Found=false.
func (r *Repository) Lookup(ctx context.Context, req Request) (*Response, error) {
	var defKey string
	switch {
	case req.Key > 0:
		v, err := common.Load(ctx, r.kv, indexKey(req.Key))
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return &Response{}, nil
		} else if err != nil {
			return nil, fmt.Errorf("lookup key %d: %w", req.Key, err)
		}
		defKey = string(v)
	case req.Version > 0:
		defKey = definitionKey(req.BpmnProcessID, req.Version)
	default:
		v, err := common.Load(ctx, r.kv, latestKey(req.BpmnProcessID))
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return &Response{}, nil
		} else if err != nil {
			return nil, fmt.Errorf("lookup latest %s: %w", req.BpmnProcessID, err)
		}
		ver, err := strconv.ParseInt(string(v), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("lookup latest %s: parse version: %w", req.BpmnProcessID, err)
		}
		defKey = definitionKey(req.BpmnProcessID, int32(ver))
	}

	entry, err := r.kv.Get(ctx, defKey)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return &Response{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", defKey, err)
	}
	if req.Key > 0 && entry.Revision() != uint64(req.Key) {
		return &Response{}, nil
	}
	stored := &storedWorkflow{}
	if err := msgpack.Unmarshal(entry.Value(), stored); err != nil {
		return nil, fmt.Errorf("lookup %s: decode: %w", defKey, err)
	}
	return &Response{
		Found:         true,
		Key:           int64(entry.Revision()),
		Version:       stored.Version,
		BpmnProcessID: stored.BpmnProcessID,
		Resource:      stored.Resource,
	}, nil
}

func definitionKey(bpmnProcessID string, version int32) string {
	return "def." + bpmnProcessID + "." + strconv.Itoa(int(version))
}

func indexKey(key int64) string {
	return "key." + strconv.FormatInt(key, 10)
}

func latestKey(bpmnProcessID string) string {
	return "latest." + bpmnProcessID
}
