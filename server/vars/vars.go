package vars

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/rtenhove/zeebe/common/logx"
	"github.com/vmihailenco/msgpack/v5"
)

// Empty is the encoded empty document.
var Empty = []byte{0x80}

// Encode encodes a document. Map keys are sorted so that equal documents always encode to equal bytes.
func Encode(ctx context.Context, doc map[string]any) ([]byte, error) {
	if doc == nil {
		return Empty, nil
	}
	b, err := EncodeAny(doc)
	if err != nil {
		return nil, logx.Err(ctx, "encode payload", err)
	}
	return b, nil
}

// EncodeAny encodes any msgpack-able value with sorted map keys.
func EncodeAny(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("msgpack encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode decodes a document. An absent payload is an empty document; a payload whose root is not a map is an error.
func Decode(ctx context.Context, b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return map[string]any{}, nil
	}
	v, err := DecodeAny(b)
	if err != nil {
		return nil, logx.Err(ctx, "decode payload", err)
	}
	switch doc := v.(type) {
	case map[string]any:
		return doc, nil
	case nil:
		return map[string]any{}, nil
	default:
		return nil, fmt.Errorf("decode payload: document root is %T, not a map", v)
	}
}

// DecodeAny decodes any msgpack value into the plain Go types understood by the mapping and condition engines.
func DecodeAny(b []byte) (any, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.UseLooseInterfaceDecoding(true)
	v, err := dec.DecodeInterface()
	if err != nil {
		return nil, fmt.Errorf("msgpack decode: %w", err)
	}
	return Normalize(v), nil
}

// Normalize converts decoded values into int, float64, string, bool, nil, []any and map[string]any.
func Normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			x[k] = Normalize(e)
		}
		return x
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[fmt.Sprint(k)] = Normalize(e)
		}
		return m
	case []any:
		for i, e := range x {
			x[i] = Normalize(e)
		}
		return x
	case int8:
		return int(x)
	case int16:
		return int(x)
	case int32:
		return int(x)
	case int64:
		return int(x)
	case uint8:
		return int(x)
	case uint16:
		return int(x)
	case uint32:
		return int(x)
	case uint64:
		if x > math.MaxInt64 {
			return float64(x)
		}
		return int(x)
	case float32:
		return float64(x)
	case []byte:
		return string(x)
	default:
		return v
	}
}

// FromJSON converts a JSON object into an encoded document.
func FromJSON(ctx context.Context, b []byte) ([]byte, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return Empty, nil
	}
	doc := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse json payload: %w", err)
	}
	return Encode(ctx, fromJSONNumbers(doc).(map[string]any))
}

// ToJSON renders an encoded document as JSON.
func ToJSON(ctx context.Context, b []byte) ([]byte, error) {
	doc, err := Decode(ctx, b)
	if err != nil {
		return nil, err
	}
	ret, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("render json payload: %w", err)
	}
	return ret, nil
}

func fromJSONNumbers(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			x[k] = fromJSONNumbers(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = fromJSONNumbers(e)
		}
		return x
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return int(i)
		}
		f, _ := x.Float64()
		return f
	default:
		return v
	}
}
