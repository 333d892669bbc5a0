// Package mapping moves payload values between workflow instances and jobs.
//
// Mapping sources and targets are JSON paths. They are translated into jq path expressions and evaluated
// with gojq against msgpack payload documents.
package mapping

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/itchyny/gojq"
	"github.com/rtenhove/zeebe/common/expression"
	"github.com/rtenhove/zeebe/common/logx"
	"github.com/rtenhove/zeebe/model"
	errors2 "github.com/rtenhove/zeebe/server/errors"
	"github.com/rtenhove/zeebe/server/vars"
)

const (
	msgNoData        = "No data found for query %s."
	msgRootNotObject = "Processing failed, since mapping will result in a non map object (json object)."
)

// Error is a mapping failure. Its message is suitable for an incident.
type Error struct {
	Message string
}

// Error returns the incident message.
func (e *Error) Error() string { return e.Message }

// Unwrap allows errors.Is(err, errors.ErrMappingFailed).
func (e *Error) Unwrap() error { return errors2.ErrMappingFailed }

// MessageOf returns the incident message carried by a mapping error, or the plain error text.
func MessageOf(err error) string {
	var me *Error
	if errors.As(err, &me) {
		return me.Message
	}
	return err.Error()
}

// Engine extracts, merges and queries payload documents and evaluates conditions over them.
type Engine struct {
	mx         sync.Mutex
	paths      map[string]*gojq.Code
	setpath    *gojq.Code
	conditions expression.Engine
}

// New creates a mapping engine that evaluates conditions with the given expression engine.
func New(conditions expression.Engine) (*Engine, error) {
	q, err := gojq.Parse("setpath($p; $v)")
	if err != nil {
		return nil, fmt.Errorf("parse setpath: %w", err)
	}
	c, err := gojq.Compile(q, gojq.WithVariables([]string{"$p", "$v"}))
	if err != nil {
		return nil, fmt.Errorf("compile setpath: %w", err)
	}
	return &Engine{
		paths:      make(map[string]*gojq.Code),
		setpath:    c,
		conditions: conditions,
	}, nil
}

// Extract builds a new document from the mapped parts of payload.
// Without mappings the payload is returned unchanged.
func (e *Engine) Extract(ctx context.Context, payload []byte, mappings []model.Mapping) ([]byte, error) {
	if len(mappings) == 0 {
		return payload, nil
	}
	src, err := vars.Decode(ctx, payload)
	if err != nil {
		return nil, &Error{Message: "Failed to read payload: " + err.Error()}
	}
	var doc any = map[string]any{}
	for _, m := range mappings {
		if doc, err = e.apply(src, doc, m); err != nil {
			return nil, err
		}
	}
	return e.encode(ctx, doc)
}

// Merge merges the mapped parts of jobPayload into base.
// Without mappings every top level property of jobPayload replaces the one in base.
func (e *Engine) Merge(ctx context.Context, jobPayload []byte, base []byte, mappings []model.Mapping) ([]byte, error) {
	src, err := vars.Decode(ctx, jobPayload)
	if err != nil {
		return nil, &Error{Message: "Failed to read job payload: " + err.Error()}
	}
	target, err := vars.Decode(ctx, base)
	if err != nil {
		return nil, &Error{Message: "Failed to read payload: " + err.Error()}
	}
	if len(mappings) == 0 {
		for k, v := range src {
			target[k] = v
		}
		return e.encode(ctx, target)
	}
	var doc any = target
	for _, m := range mappings {
		if doc, err = e.apply(src, doc, m); err != nil {
			return nil, err
		}
	}
	return e.encode(ctx, doc)
}

// Query returns every value the JSON path query selects in payload. Missing values are not results.
func (e *Engine) Query(ctx context.Context, payload []byte, query string) ([]any, error) {
	doc, err := vars.Decode(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("query payload: %w", err)
	}
	paths, err := e.resolve(doc, query)
	if err != nil {
		return nil, err
	}
	ret := make([]any, 0, len(paths))
	for _, p := range paths {
		if v, ok := lookup(doc, p); ok {
			ret = append(ret, v)
		}
	}
	return ret, nil
}

// EvaluateCondition evaluates a gateway condition against payload.
func (e *Engine) EvaluateCondition(ctx context.Context, condition string, payload []byte) (bool, error) {
	doc, err := vars.Decode(ctx, payload)
	if err != nil {
		return false, fmt.Errorf("condition payload: %w", err)
	}
	res, err := expression.Eval[bool](ctx, e.conditions, condition, doc)
	if err != nil {
		return false, fmt.Errorf("condition %q: %w", condition, err)
	}
	return res, nil
}

func (e *Engine) apply(src map[string]any, doc any, m model.Mapping) (any, error) {
	paths, err := e.resolve(src, m.Source)
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}
	var val any
	found := false
	for _, p := range paths {
		if v, ok := lookup(src, p); ok {
			val, found = v, true
			break
		}
	}
	if !found {
		return nil, &Error{Message: fmt.Sprintf(msgNoData, m.Source)}
	}
	targets, err := e.resolve(nil, m.Target)
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}
	if len(targets) != 1 {
		return nil, &Error{Message: fmt.Sprintf("Target mapping %s must select exactly one location.", m.Target)}
	}
	target := targets[0]
	if len(target) == 0 {
		obj, ok := val.(map[string]any)
		if !ok {
			return nil, &Error{Message: msgRootNotObject}
		}
		merged := map[string]any{}
		if cur, ok := doc.(map[string]any); ok {
			for k, v := range cur {
				merged[k] = v
			}
		}
		for k, v := range obj {
			merged[k] = v
		}
		return merged, nil
	}
	out, err := first(e.setpath.Run(doc, target, val))
	if err != nil {
		return nil, &Error{Message: fmt.Sprintf("Failed to write %s: %s", m.Target, err)}
	}
	return out, nil
}

// resolve returns the concrete paths a JSON path query denotes in doc.
func (e *Engine) resolve(doc any, query string) ([][]any, error) {
	code, err := e.pathCode(query)
	if err != nil {
		return nil, err
	}
	var ret [][]any
	iter := code.Run(doc)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			// Walking into a scalar or a missing array simply selects nothing.
			var he *gojq.HaltError
			if errors.As(err, &he) {
				return nil, fmt.Errorf("query %s: %w", query, err)
			}
			break
		}
		p, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("query %s produced %T instead of a path", query, v)
		}
		ret = append(ret, p)
	}
	return ret, nil
}

func (e *Engine) pathCode(query string) (*gojq.Code, error) {
	e.mx.Lock()
	defer e.mx.Unlock()
	if c, ok := e.paths[query]; ok {
		return c, nil
	}
	jq, err := toJq(query)
	if err != nil {
		return nil, err
	}
	q, err := gojq.Parse("path(" + jq + ")")
	if err != nil {
		return nil, fmt.Errorf("parse json path %s: %w", query, err)
	}
	c, err := gojq.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("compile json path %s: %w", query, err)
	}
	e.paths[query] = c
	return c, nil
}

func (e *Engine) encode(ctx context.Context, doc any) ([]byte, error) {
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, &Error{Message: msgRootNotObject}
	}
	b, err := vars.Encode(ctx, m)
	if err != nil {
		return nil, logx.Err(ctx, "encode mapped payload", err)
	}
	return b, nil
}

func first(iter gojq.Iter) (any, error) {
	v, ok := iter.Next()
	if !ok {
		return nil, fmt.Errorf("no result")
	}
	if err, ok := v.(error); ok {
		return nil, err
	}
	return v, nil
}
