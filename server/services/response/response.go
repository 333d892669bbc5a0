// Package response answers client requests that arrived as commands on a partition log.
package response

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/rtenhove/zeebe/common"
	"github.com/rtenhove/zeebe/common/logx"
	"github.com/rtenhove/zeebe/common/telemetry"
	"github.com/rtenhove/zeebe/model"
	"github.com/rtenhove/zeebe/server/errors/keys"
	"github.com/rtenhove/zeebe/server/messages"
	"github.com/vmihailenco/msgpack/v5"
)

// Response is what a client receives for a request.
type Response struct {
	RequestID       int64               `msgpack:"requestId"`
	PartitionID     int32               `msgpack:"partitionId"`
	Position        int64               `msgpack:"position"`
	Key             int64               `msgpack:"key"`
	RecordType      model.RecordType    `msgpack:"recordType"`
	ValueType       model.ValueType     `msgpack:"valueType"`
	Intent          model.Intent        `msgpack:"intent"`
	RejectionType   model.RejectionType `msgpack:"rejectionType"`
	RejectionReason string              `msgpack:"rejectionReason,omitempty"`
	Value           msgpack.RawMessage  `msgpack:"value"`
}

// IsRejection reports whether the request was refused.
func (r *Response) IsRejection() bool {
	return r.RecordType == model.RecordTypeCommandRejection
}

// WorkflowInstance decodes the value of a workflow instance response.
func (r *Response) WorkflowInstance() (*model.WorkflowInstanceRecord, error) {
	if r.ValueType != model.ValueTypeWorkflowInstance {
		return nil, fmt.Errorf("response carries a %s value", r.ValueType)
	}
	v := &model.WorkflowInstanceRecord{}
	if err := msgpack.Unmarshal(r.Value, v); err != nil {
		return nil, fmt.Errorf("decode workflow instance response: %w", err)
	}
	return v, nil
}

// Decode reads a response published by a Writer.
func Decode(b []byte) (*Response, error) {
	r := &Response{}
	if err := msgpack.Unmarshal(b, r); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return r, nil
}

// Writer publishes responses on the subject of the request stream that sent the command.
type Writer struct {
	nc        common.NatsConn
	partition int32
}

// NewWriter creates a response writer for one partition.
func NewWriter(nc common.NatsConn, partitionID int32) *Writer {
	return &Writer{nc: nc, partition: partitionID}
}

// WriteEvent answers the request carried in the metadata of rec with rec itself.
func (w *Writer) WriteEvent(ctx context.Context, rec *model.Record) error {
	return w.write(ctx, rec, rec.Metadata, model.RejectionNone, "")
}

// WriteRejection answers the request of command with a rejection.
func (w *Writer) WriteRejection(ctx context.Context, command *model.Record, rejectionType model.RejectionType, reason string) error {
	rej := *command
	rej.RecordType = model.RecordTypeCommandRejection
	return w.write(ctx, &rej, command.Metadata, rejectionType, reason)
}

func (w *Writer) write(ctx context.Context, rec *model.Record, md model.Metadata, rejectionType model.RejectionType, reason string) error {
	if !md.HasRequest() {
		return nil
	}
	v, err := msgpack.Marshal(rec.Value)
	if err != nil {
		return fmt.Errorf("encode response value: %w", err)
	}
	b, err := msgpack.Marshal(&Response{
		RequestID:       md.RequestID,
		PartitionID:     w.partition,
		Position:        rec.Position,
		Key:             rec.Key,
		RecordType:      rec.RecordType,
		ValueType:       rec.ValueType,
		Intent:          rec.Intent,
		RejectionType:   rejectionType,
		RejectionReason: reason,
		Value:           v,
	})
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	msg := nats.NewMsg(fmt.Sprintf(messages.ResponseSubject, md.RequestStreamID))
	msg.Data = b
	telemetry.CtxToNatsMsg(ctx, msg)
	if err := w.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish response: %w", err)
	}
	log := logx.FromContext(ctx)
	if log.Enabled(ctx, slog.LevelDebug) {
		log.Debug("response sent", slog.Int64(keys.RequestID, md.RequestID), slog.Int(keys.RequestStreamID, int(md.RequestStreamID)), slog.String(keys.Intent, rec.IntentName()))
	}
	return nil
}
