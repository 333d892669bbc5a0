// Package logstream stores the records of a partition. Every append is one atomic batch: a reader sees all of its
// records or none of them.
package logstream

import (
	"context"

	"github.com/rtenhove/zeebe/model"
)

const batchBits = 12

// MaxBatchSize is the largest number of records a single append may carry.
const MaxBatchSize = 1 << batchBits

// Stream is the ordered record log of one partition.
type Stream interface {
	// PartitionID is the partition the log belongs to.
	PartitionID() int32
	// Append stores records as one batch, assigns their positions and returns the position of the first one.
	Append(ctx context.Context, records []*model.Record) (int64, error)
	// ReadAt returns the record stored at a position.
	ReadAt(ctx context.Context, position int64) (*model.Record, error)
	// LastSourcePosition returns the highest source position of any record in the log, or -1.
	LastSourcePosition(ctx context.Context) (int64, error)
	// Consume delivers every record in log order, waiting for new records until ctx ends or fn fails.
	Consume(ctx context.Context, fn func(ctx context.Context, rec *model.Record) error) error
}

// Position combines the sequence of a batch and the index of a record within it.
func Position(seq uint64, index int) int64 {
	return int64(seq)<<batchBits | int64(index)
}

// SplitPosition is the reverse of Position.
func SplitPosition(pos int64) (uint64, int) {
	return uint64(pos >> batchBits), int(pos & (MaxBatchSize - 1))
}
