package model

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// recordEnvelope is the wire shape of a record. The position is not part of it: the log derives positions from
// where the record was stored.
type recordEnvelope struct {
	SourcePosition int64              `msgpack:"sourcePosition"`
	Key            int64              `msgpack:"key"`
	RecordType     RecordType         `msgpack:"recordType"`
	ValueType      ValueType          `msgpack:"valueType"`
	Intent         Intent             `msgpack:"intent"`
	Metadata       Metadata           `msgpack:"metadata"`
	Value          msgpack.RawMessage `msgpack:"value"`
}

// EncodeBatch serialises records that must be stored atomically.
func EncodeBatch(records []*Record) ([]byte, error) {
	envs := make([]recordEnvelope, 0, len(records))
	for _, r := range records {
		var (
			v   []byte
			err error
		)
		if u, ok := r.Value.(*UnknownValue); ok {
			v = u.Raw
		} else if v, err = marshal(r.Value); err != nil {
			return nil, fmt.Errorf("encode %s value: %w", r.ValueType, err)
		}
		envs = append(envs, recordEnvelope{
			SourcePosition: r.SourcePosition,
			Key:            r.Key,
			RecordType:     r.RecordType,
			ValueType:      r.ValueType,
			Intent:         r.Intent,
			Metadata:       r.Metadata,
			Value:          v,
		})
	}
	b, err := marshal(envs)
	if err != nil {
		return nil, fmt.Errorf("encode record batch: %w", err)
	}
	return b, nil
}

// DecodeBatch is the reverse of EncodeBatch. Positions are left at zero.
func DecodeBatch(b []byte) ([]*Record, error) {
	var envs []recordEnvelope
	if err := msgpack.Unmarshal(b, &envs); err != nil {
		return nil, fmt.Errorf("decode record batch: %w", err)
	}
	ret := make([]*Record, 0, len(envs))
	for _, e := range envs {
		var v Value
		switch e.ValueType {
		case ValueTypeWorkflowInstance:
			v = &WorkflowInstanceRecord{}
		case ValueTypeJob:
			v = &JobRecord{}
		case ValueTypeIncident:
			v = &IncidentRecord{}
		default:
			v = &UnknownValue{Type: e.ValueType, Raw: append([]byte(nil), e.Value...)}
		}
		if _, opaque := v.(*UnknownValue); !opaque {
			if err := msgpack.Unmarshal(e.Value, v); err != nil {
				return nil, fmt.Errorf("decode %s value: %w", e.ValueType, err)
			}
		}
		ret = append(ret, &Record{
			SourcePosition: e.SourcePosition,
			Key:            e.Key,
			RecordType:     e.RecordType,
			ValueType:      e.ValueType,
			Intent:         e.Intent,
			Metadata:       e.Metadata,
			Value:          v,
		})
	}
	return ret, nil
}

// marshal encodes with sorted map keys so that equal values always produce equal bytes.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
