package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/rtenhove/zeebe/common/future"
	"github.com/rtenhove/zeebe/model"
	errors2 "github.com/rtenhove/zeebe/server/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTask() *Task {
	src := sourceRecord()
	return newTask(src, newStreamWriter(newKeyGenerator(1), src, nil))
}

func TestTaskResumesContinuation(t *testing.T) {
	task := newTestTask()
	f := future.New[int]()
	var got int
	err := task.execute(context.Background(), func(ctx context.Context, tk *Task) error {
		require.NoError(t, await(tk, f, func(_ context.Context, v int, err error) error {
			got = v
			assert.Equal(t, "resumed", tk.State())
			return err
		}))
		f.Set(42, nil)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, "done", task.State())
}

func TestTaskAllowsOneContinuationAtATime(t *testing.T) {
	task := newTestTask()
	noop := func(context.Context, int, error) error { return nil }
	require.NoError(t, await(task, future.Completed(1, nil), noop))
	err := await(task, future.Completed(2, nil), noop)
	assert.ErrorIs(t, err, errors2.ErrContinuationPending)
}

func TestTaskChainsContinuations(t *testing.T) {
	task := newTestTask()
	var steps []int
	err := task.execute(context.Background(), func(ctx context.Context, tk *Task) error {
		return await(tk, future.Completed(1, nil), func(_ context.Context, v int, _ error) error {
			steps = append(steps, v)
			return await(tk, future.Completed(2, nil), func(_ context.Context, v int, _ error) error {
				steps = append(steps, v)
				return nil
			})
		})
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, steps)
}

func TestTaskDropsOutputOnError(t *testing.T) {
	task := newTestTask()
	boom := errors.New("boom")
	err := task.execute(context.Background(), func(ctx context.Context, tk *Task) error {
		tk.writer.WriteNewCommand(model.JobCreate, &model.JobRecord{})
		tk.respond(func(context.Context) error { return nil })
		tk.onCommitted(func(context.Context) bool { return true })
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, task.writer.records)
	assert.Empty(t, task.responses)
	assert.Empty(t, task.sideEffects)
}

func TestTaskStopsWaitingWhenCancelled(t *testing.T) {
	task := newTestTask()
	ctx, cancel := context.WithCancel(context.Background())
	err := task.execute(ctx, func(ctx context.Context, tk *Task) error {
		cancel()
		return await(tk, future.New[int](), func(context.Context, int, error) error { return nil })
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "pending", task.State())
}
