package workflow

import (
	"context"
	"fmt"

	"github.com/rtenhove/zeebe/common/future"
	"github.com/rtenhove/zeebe/model"
	"github.com/rtenhove/zeebe/server/errors"
)

type taskState uint8

const (
	taskProcessing taskState = iota
	taskPending
	taskResumed
	taskDone
)

func (s taskState) String() string {
	switch s {
	case taskProcessing:
		return "processing"
	case taskPending:
		return "pending"
	case taskResumed:
		return "resumed"
	case taskDone:
		return "done"
	default:
		return fmt.Sprintf("taskState(%d)", uint8(s))
	}
}

// sideEffect runs after the output of a record was appended. It returns false when it has to be retried.
type sideEffect func(ctx context.Context) bool

// Task is the processing of a single record.
// A handler may suspend the task on one asynchronous result at a time; the processor waits for it and resumes the
// task with the continuation before it looks at the next record.
type Task struct {
	record      *model.Record
	state       taskState
	writer      *streamWriter
	responses   []func(ctx context.Context) error
	sideEffects []sideEffect
	pending     <-chan struct{}
	resume      func(ctx context.Context) error
}

func newTask(record *model.Record, writer *streamWriter) *Task {
	return &Task{record: record, writer: writer}
}

// Record is the record being processed.
func (t *Task) Record() *model.Record {
	return t.record
}

// State is the lifecycle step the task is in.
func (t *Task) State() string {
	return t.state.String()
}

// respond queues a response to the client. Responses are sent once the output is appended.
func (t *Task) respond(fn func(ctx context.Context) error) {
	t.responses = append(t.responses, fn)
}

// onCommitted queues a side effect.
func (t *Task) onCommitted(fn sideEffect) {
	t.sideEffects = append(t.sideEffects, fn)
}

// await suspends t until f completes and then continues with fn.
func await[T any](t *Task, f *future.Future[T], fn func(ctx context.Context, v T, err error) error) error {
	if t.resume != nil {
		return fmt.Errorf("await on %s: %w", t.record, errors.ErrContinuationPending)
	}
	t.pending = f.Done()
	t.resume = func(ctx context.Context) error {
		v, err := f.Get(ctx)
		return fn(ctx, v, err)
	}
	return nil
}

// execute runs the handler and every continuation it registers.
func (t *Task) execute(ctx context.Context, fn func(ctx context.Context, t *Task) error) error {
	t.state = taskProcessing
	err := fn(ctx, t)
	for err == nil && t.resume != nil {
		t.state = taskPending
		select {
		case <-t.pending:
		case <-ctx.Done():
			return fmt.Errorf("suspended on %s: %w", t.record, ctx.Err())
		}
		resume := t.resume
		t.resume, t.pending = nil, nil
		t.state = taskResumed
		err = resume(ctx)
	}
	if err != nil {
		t.writer.reset()
		t.responses = nil
		t.sideEffects = nil
		return err
	}
	t.state = taskDone
	return nil
}
