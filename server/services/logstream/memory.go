package logstream

import (
	"context"
	"fmt"
	"sync"

	"github.com/rtenhove/zeebe/model"
	"github.com/rtenhove/zeebe/server/errors"
)

// Memory is a Stream held in process memory. It backs ephemeral partitions and tests.
type Memory struct {
	mx        sync.Mutex
	partition int32
	batches   [][]byte
	appended  chan struct{}
}

// NewMemory creates an empty in-memory log.
func NewMemory(partitionID int32) *Memory {
	return &Memory{partition: partitionID, appended: make(chan struct{})}
}

// PartitionID implements Stream.
func (m *Memory) PartitionID() int32 {
	return m.partition
}

// Append implements Stream.
func (m *Memory) Append(_ context.Context, records []*model.Record) (int64, error) {
	if len(records) == 0 || len(records) > MaxBatchSize {
		return 0, fmt.Errorf("append %d records: batch size must be between 1 and %d", len(records), MaxBatchSize)
	}
	b, err := model.EncodeBatch(records)
	if err != nil {
		return 0, fmt.Errorf("append: %w", err)
	}
	m.mx.Lock()
	m.batches = append(m.batches, b)
	seq := uint64(len(m.batches))
	close(m.appended)
	m.appended = make(chan struct{})
	m.mx.Unlock()
	for i, r := range records {
		r.Position = Position(seq, i)
	}
	return Position(seq, 0), nil
}

// ReadAt implements Stream.
func (m *Memory) ReadAt(_ context.Context, position int64) (*model.Record, error) {
	seq, idx := SplitPosition(position)
	recs, err := m.batch(seq)
	if err != nil {
		return nil, err
	}
	if idx >= len(recs) {
		return nil, fmt.Errorf("read position %d: %w", position, errors.ErrRecordNotFound)
	}
	return recs[idx], nil
}

// LastSourcePosition implements Stream.
func (m *Memory) LastSourcePosition(_ context.Context) (int64, error) {
	m.mx.Lock()
	n := uint64(len(m.batches))
	m.mx.Unlock()
	for seq := n; seq > 0; seq-- {
		recs, err := m.batch(seq)
		if err != nil {
			return 0, err
		}
		if pos, ok := lastSourcePosition(recs); ok {
			return pos, nil
		}
	}
	return -1, nil
}

// Consume implements Stream.
func (m *Memory) Consume(ctx context.Context, fn func(ctx context.Context, rec *model.Record) error) error {
	var seq uint64 = 1
	for {
		m.mx.Lock()
		available := uint64(len(m.batches)) >= seq
		wait := m.appended
		m.mx.Unlock()
		if !available {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-wait:
				continue
			}
		}
		recs, err := m.batch(seq)
		if err != nil {
			return err
		}
		for _, r := range recs {
			if err := fn(ctx, r); err != nil {
				return err
			}
		}
		seq++
	}
}

// Records returns every record in the log in order.
func (m *Memory) Records() []*model.Record {
	m.mx.Lock()
	n := uint64(len(m.batches))
	m.mx.Unlock()
	ret := make([]*model.Record, 0, n)
	for seq := uint64(1); seq <= n; seq++ {
		recs, err := m.batch(seq)
		if err != nil {
			panic(err)
		}
		ret = append(ret, recs...)
	}
	return ret
}

// Batches returns the number of appends made so far.
func (m *Memory) Batches() int {
	m.mx.Lock()
	defer m.mx.Unlock()
	return len(m.batches)
}

func (m *Memory) batch(seq uint64) ([]*model.Record, error) {
	m.mx.Lock()
	if seq == 0 || seq > uint64(len(m.batches)) {
		m.mx.Unlock()
		return nil, fmt.Errorf("read batch %d: %w", seq, errors.ErrRecordNotFound)
	}
	b := m.batches[seq-1]
	m.mx.Unlock()
	recs, err := model.DecodeBatch(b)
	if err != nil {
		return nil, fmt.Errorf("read batch %d: %w", seq, err)
	}
	for i, r := range recs {
		r.Position = Position(seq, i)
	}
	return recs, nil
}

func lastSourcePosition(recs []*model.Record) (int64, bool) {
	for i := len(recs) - 1; i >= 0; i-- {
		if recs[i].SourcePosition >= 0 {
			return recs[i].SourcePosition, true
		}
	}
	return 0, false
}
