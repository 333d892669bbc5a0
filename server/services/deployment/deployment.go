// Package deployment stores deployed workflows and answers lookups for them over NATS.
package deployment

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Request asks for one deployed workflow. Key wins over the process id; a version below 1 asks for the latest.
type Request struct {
	Key           int64  `msgpack:"key"`
	BpmnProcessID string `msgpack:"bpmnProcessId"`
	Version       int32  `msgpack:"version"`
}

// Response carries a deployed workflow, or Found=false when none matched.
type Response struct {
	Found         bool   `msgpack:"found"`
	Key           int64  `msgpack:"key"`
	Version       int32  `msgpack:"version"`
	BpmnProcessID string `msgpack:"bpmnProcessId"`
	Resource      []byte `msgpack:"resource"`
}

// ByKey asks for the workflow deployed under key.
func ByKey(key int64) Request {
	return Request{Key: key}
}

// ByProcessIDAndVersion asks for one version of a process.
func ByProcessIDAndVersion(bpmnProcessID string, version int32) Request {
	return Request{BpmnProcessID: bpmnProcessID, Version: version}
}

// LatestByProcessID asks for the newest version of a process.
func LatestByProcessID(bpmnProcessID string) Request {
	return Request{BpmnProcessID: bpmnProcessID, Version: -1}
}

// DecodeResponse reads a lookup answer.
func DecodeResponse(b []byte) (*Response, error) {
	res := &Response{}
	if err := msgpack.Unmarshal(b, res); err != nil {
		return nil, fmt.Errorf("decode deployment response: %w", err)
	}
	return res, nil
}
