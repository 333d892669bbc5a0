// Package subscription sends open message subscription commands to the message partitions.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rtenhove/zeebe/common/future"
	"github.com/rtenhove/zeebe/common/logx"
	"github.com/rtenhove/zeebe/common/telemetry"
	"github.com/rtenhove/zeebe/server/errors/keys"
	"github.com/rtenhove/zeebe/server/messages"
	"github.com/vmihailenco/msgpack/v5"
)

// OpenCommand asks a message partition to correlate a message to a waiting catch event.
type OpenCommand struct {
	WorkflowInstancePartitionID int32  `msgpack:"workflowInstancePartitionId"`
	WorkflowInstanceKey         int64  `msgpack:"workflowInstanceKey"`
	ActivityInstanceKey         int64  `msgpack:"activityInstanceKey"`
	MessageName                 string `msgpack:"messageName"`
	CorrelationKey              string `msgpack:"correlationKey"`
}

// Sender publishes open subscription commands on the subscription stream.
type Sender struct {
	js         jetstream.JetStream
	partition  int32
	mx         sync.RWMutex
	partitions []int32
}

// NewSender creates a sender for the workflow instances of one partition.
func NewSender(js jetstream.JetStream, partitionID int32) *Sender {
	return &Sender{js: js, partition: partitionID}
}

// HasPartitionIDs reports whether the partition topology is known.
func (s *Sender) HasPartitionIDs() bool {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return len(s.partitions) > 0
}

// FetchPartitionIDs discovers the partitions from their log streams and remembers them.
func (s *Sender) FetchPartitionIDs(ctx context.Context) *future.Future[[]int32] {
	return future.Go(ctx, func(ctx context.Context) ([]int32, error) {
		names := s.js.StreamNames(ctx, jetstream.WithStreamListSubject(messages.PartitionSubjectAll))
		var ids []int32
		for name := range names.Name() {
			if id, ok := messages.PartitionFromStream(name); ok {
				ids = append(ids, id)
			}
		}
		if err := names.Err(); err != nil {
			return nil, fmt.Errorf("list partition streams: %w", err)
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("list partition streams: no partitions found")
		}
		slices.Sort(ids)
		s.mx.Lock()
		s.partitions = ids
		s.mx.Unlock()
		return ids, nil
	})
}

// OpenMessageSubscription sends the command to the partition owning the correlation key.
// It returns false when the command could not be sent, in which case the caller retries.
func (s *Sender) OpenMessageSubscription(ctx context.Context, workflowInstanceKey int64, activityInstanceKey int64, messageName string, correlationKey string) bool {
	log := logx.FromContext(ctx)
	s.mx.RLock()
	partitions := s.partitions
	s.mx.RUnlock()
	if len(partitions) == 0 {
		log.Warn("open message subscription before the partitions are known")
		return false
	}
	target := PartitionFor(correlationKey, partitions)
	b, err := msgpack.Marshal(&OpenCommand{
		WorkflowInstancePartitionID: s.partition,
		WorkflowInstanceKey:         workflowInstanceKey,
		ActivityInstanceKey:         activityInstanceKey,
		MessageName:                 messageName,
		CorrelationKey:              correlationKey,
	})
	if err != nil {
		log.Error("encode open subscription command", "error", err)
		return false
	}
	msg := nats.NewMsg(fmt.Sprintf(messages.SubscriptionOpen, target))
	msg.Data = b
	msg.Header.Set(messages.HeaderMsgID, fmt.Sprintf("%d-%d", workflowInstanceKey, activityInstanceKey))
	telemetry.CtxToNatsMsg(ctx, msg)
	if _, err := s.js.PublishMsg(ctx, msg); err != nil {
		log.Warn("send open subscription command", "error", err, slog.Int(keys.Partition, int(target)))
		return false
	}
	return true
}

// PartitionFor picks the message partition responsible for a correlation key.
func PartitionFor(correlationKey string, partitions []int32) int32 {
	return partitions[xxhash.Sum64String(correlationKey)%uint64(len(partitions))]
}
