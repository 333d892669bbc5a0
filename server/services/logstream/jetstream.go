package logstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rtenhove/zeebe/common/logx"
	"github.com/rtenhove/zeebe/common/telemetry"
	"github.com/rtenhove/zeebe/model"
	errors2 "github.com/rtenhove/zeebe/server/errors"
	"github.com/rtenhove/zeebe/server/errors/keys"
	"github.com/rtenhove/zeebe/server/messages"
	"github.com/segmentio/ksuid"
)

// JetStream is a Stream stored in a NATS JetStream stream. Each append is one message; the stream sequence of the
// message and the index of a record inside it form the record position.
type JetStream struct {
	js        jetstream.JetStream
	partition int32
	name      string
	subject   string
	mx        sync.Mutex
	stream    jetstream.Stream
}

// NewJetStream opens the log of a partition. The stream must already exist.
func NewJetStream(js jetstream.JetStream, partitionID int32) *JetStream {
	return &JetStream{
		js:        js,
		partition: partitionID,
		name:      messages.PartitionStream(partitionID),
		subject:   fmt.Sprintf(messages.PartitionSubject, partitionID),
	}
}

// PartitionID implements Stream.
func (s *JetStream) PartitionID() int32 {
	return s.partition
}

// Append implements Stream. Batches written while processing a record are de-duplicated by their source position,
// so re-appending the output of a record after a crash is harmless.
func (s *JetStream) Append(ctx context.Context, records []*model.Record) (int64, error) {
	if len(records) == 0 || len(records) > MaxBatchSize {
		return 0, fmt.Errorf("append %d records: batch size must be between 1 and %d", len(records), MaxBatchSize)
	}
	b, err := model.EncodeBatch(records)
	if err != nil {
		return 0, fmt.Errorf("append: %w", err)
	}
	msg := nats.NewMsg(s.subject)
	msg.Data = b
	msg.Header.Set(messages.HeaderMsgID, s.msgID(records[0]))
	telemetry.CtxToNatsMsg(ctx, msg)
	ack, err := s.js.PublishMsg(ctx, msg, jetstream.WithExpectStream(s.name))
	if err != nil {
		return 0, fmt.Errorf("append to %s: %w", s.name, err)
	}
	if ack.Duplicate {
		logx.FromContext(ctx).Warn("duplicate batch discarded by the log", slog.Int(keys.Partition, int(s.partition)), slog.Int64(keys.SourcePosition, records[0].SourcePosition))
	}
	for i, r := range records {
		r.Position = Position(ack.Sequence, i)
	}
	return Position(ack.Sequence, 0), nil
}

func (s *JetStream) msgID(first *model.Record) string {
	if first.SourcePosition >= 0 {
		return fmt.Sprintf("%d-%d", s.partition, first.SourcePosition)
	}
	return ksuid.New().String()
}

// ReadAt implements Stream.
func (s *JetStream) ReadAt(ctx context.Context, position int64) (*model.Record, error) {
	seq, idx := SplitPosition(position)
	recs, err := s.batch(ctx, seq)
	if err != nil {
		return nil, err
	}
	if idx >= len(recs) {
		return nil, fmt.Errorf("read position %d: %w", position, errors2.ErrRecordNotFound)
	}
	return recs[idx], nil
}

// LastSourcePosition implements Stream. It walks the log backwards from the newest batch, because the processor
// writes batches in the order of their source records.
func (s *JetStream) LastSourcePosition(ctx context.Context) (int64, error) {
	st, err := s.handle(ctx)
	if err != nil {
		return 0, err
	}
	info, err := st.Info(ctx)
	if err != nil {
		return 0, fmt.Errorf("get %s info: %w", s.name, err)
	}
	for seq := info.State.LastSeq; seq > 0 && seq >= info.State.FirstSeq; seq-- {
		recs, err := s.batch(ctx, seq)
		if errors.Is(err, errors2.ErrRecordNotFound) {
			continue
		} else if err != nil {
			return 0, err
		}
		if pos, ok := lastSourcePosition(recs); ok {
			return pos, nil
		}
	}
	return -1, nil
}

// Consume implements Stream.
func (s *JetStream) Consume(ctx context.Context, fn func(ctx context.Context, rec *model.Record) error) error {
	cons, err := s.js.OrderedConsumer(ctx, s.name, jetstream.OrderedConsumerConfig{
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return fmt.Errorf("create ordered consumer on %s: %w", s.name, err)
	}
	it, err := cons.Messages()
	if err != nil {
		return fmt.Errorf("consume %s: %w", s.name, err)
	}
	stop := context.AfterFunc(ctx, it.Stop)
	defer stop()
	defer it.Stop()
	for {
		msg, err := it.Next()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("next message on %s: %w", s.name, err)
		}
		md, err := msg.Metadata()
		if err != nil {
			return fmt.Errorf("message metadata: %w", err)
		}
		recs, err := model.DecodeBatch(msg.Data())
		if err != nil {
			return fmt.Errorf("decode batch %d of %s: %w", md.Sequence.Stream, s.name, err)
		}
		for i, r := range recs {
			r.Position = Position(md.Sequence.Stream, i)
			if err := fn(ctx, r); err != nil {
				return err
			}
		}
	}
}

func (s *JetStream) handle(ctx context.Context) (jetstream.Stream, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.stream != nil {
		return s.stream, nil
	}
	st, err := s.js.Stream(ctx, s.name)
	if err != nil {
		return nil, fmt.Errorf("open stream %s: %w", s.name, err)
	}
	s.stream = st
	return st, nil
}

func (s *JetStream) batch(ctx context.Context, seq uint64) ([]*model.Record, error) {
	st, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := st.GetMsg(ctx, seq)
	if errors.Is(err, jetstream.ErrMsgNotFound) {
		return nil, fmt.Errorf("read batch %d of %s: %w", seq, s.name, errors2.ErrRecordNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("read batch %d of %s: %w", seq, s.name, err)
	}
	recs, err := model.DecodeBatch(raw.Data)
	if err != nil {
		return nil, fmt.Errorf("read batch %d of %s: %w", seq, s.name, err)
	}
	for i, r := range recs {
		r.Position = Position(seq, i)
	}
	return recs, nil
}
