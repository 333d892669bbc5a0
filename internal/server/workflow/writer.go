package workflow

import (
	"github.com/rtenhove/zeebe/model"
)

// metadataOption adjusts the metadata of a written record.
type metadataOption func(md *model.Metadata)

// withRequest marks a record as the answer to the client request that issued a command.
func withRequest(command *model.Record) metadataOption {
	return func(md *model.Metadata) {
		md.RequestID = command.Metadata.RequestID
		md.RequestStreamID = command.Metadata.RequestStreamID
	}
}

// streamWriter collects the records produced while processing one record.
// The collected records are appended to the log as a single batch once processing finished.
type streamWriter struct {
	keys    *keyGenerator
	source  *model.Record
	trace   map[string]string
	records []*model.Record
}

func newStreamWriter(keys *keyGenerator, source *model.Record, trace map[string]string) *streamWriter {
	return &streamWriter{keys: keys, source: source, trace: trace}
}

// WriteNewEvent writes an event about a new entity and returns the key generated for it.
func (w *streamWriter) WriteNewEvent(intent model.Intent, value model.Value) int64 {
	key := w.keys.nextKey()
	w.write(key, model.RecordTypeEvent, intent, value)
	return key
}

// WriteFollowUpEvent writes an event about an existing entity.
func (w *streamWriter) WriteFollowUpEvent(key int64, intent model.Intent, value model.Value, opts ...metadataOption) {
	w.write(key, model.RecordTypeEvent, intent, value, opts...)
}

// WriteNewCommand writes a command that asks another processor to create an entity.
func (w *streamWriter) WriteNewCommand(intent model.Intent, value model.Value) {
	w.write(model.NoKey, model.RecordTypeCommand, intent, value)
}

// WriteFollowUpCommand writes a command about an existing entity.
func (w *streamWriter) WriteFollowUpCommand(key int64, intent model.Intent, value model.Value) {
	w.write(key, model.RecordTypeCommand, intent, value)
}

// WriteRejection writes the rejection of a command. value replaces the value of the command when not nil.
func (w *streamWriter) WriteRejection(command *model.Record, value model.Value, rejectionType model.RejectionType, reason string, opts ...metadataOption) {
	if value == nil {
		value = command.Value
	}
	opts = append(opts, func(md *model.Metadata) {
		md.RejectionType = rejectionType
		md.RejectionReason = reason
	})
	w.writeAs(command.Key, model.RecordTypeCommandRejection, command.ValueType, command.Intent, value, opts...)
}

// NewBatch groups follow-up records that must be appended together.
func (w *streamWriter) NewBatch() *batchWriter {
	return &batchWriter{w: w}
}

func (w *streamWriter) write(key int64, recordType model.RecordType, intent model.Intent, value model.Value, opts ...metadataOption) {
	w.writeAs(key, recordType, value.ValueType(), intent, value, opts...)
}

func (w *streamWriter) writeAs(key int64, recordType model.RecordType, valueType model.ValueType, intent model.Intent, value model.Value, opts ...metadataOption) {
	md := model.NewMetadata()
	md.Trace = w.trace
	for _, opt := range opts {
		opt(&md)
	}
	w.records = append(w.records, &model.Record{
		Position:       -1,
		SourcePosition: w.source.Position,
		Key:            key,
		RecordType:     recordType,
		ValueType:      valueType,
		Intent:         intent,
		Metadata:       md,
		Value:          value,
	})
}

func (w *streamWriter) reset() {
	w.records = nil
}

// batchWriter adds records to the batch of its stream writer.
// Everything a record produces is appended atomically, so a batch only documents intent at the call site.
type batchWriter struct {
	w *streamWriter
}

func (b *batchWriter) AddFollowUpEvent(key int64, intent model.Intent, value model.Value, opts ...metadataOption) {
	b.w.WriteFollowUpEvent(key, intent, value, opts...)
}

func (b *batchWriter) AddFollowUpCommand(key int64, intent model.Intent, value model.Value) {
	b.w.WriteFollowUpCommand(key, intent, value)
}
