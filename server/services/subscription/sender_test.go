package subscription_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rtenhove/zeebe/server/messages"
	"github.com/rtenhove/zeebe/server/services/natz"
	"github.com/rtenhove/zeebe/server/services/subscription"
	zensvr "github.com/rtenhove/zeebe/zen/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestPartitionForIsStable(t *testing.T) {
	partitions := []int32{1, 2, 3}
	p := subscription.PartitionFor("order-123", partitions)
	assert.Contains(t, partitions, p)
	for i := 0; i < 10; i++ {
		assert.Equal(t, p, subscription.PartitionFor("order-123", partitions))
	}
	assert.Equal(t, int32(7), subscription.PartitionFor("anything", []int32{7}))
}

func TestOpenMessageSubscription(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	nsvr, err := zensvr.NewNatsServer("127.0.0.1", -1)
	require.NoError(t, err)
	t.Cleanup(nsvr.Shutdown)
	nc, err := nats.Connect(nsvr.URL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)
	svc, err := natz.NewNatsService(ctx, &natz.NatsConnConfiguration{
		Conn:        nc,
		StorageType: jetstream.MemoryStorage,
		Partitions:  []int32{1, 2, 3},
	})
	require.NoError(t, err)

	sender := subscription.NewSender(svc.Js, 2)
	assert.False(t, sender.HasPartitionIDs())
	assert.False(t, sender.OpenMessageSubscription(ctx, 10, 11, "payment-received", "order-123"))

	ids, err := sender.FetchPartitionIDs(ctx).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3}, ids)
	assert.True(t, sender.HasPartitionIDs())

	require.True(t, sender.OpenMessageSubscription(ctx, 10, 11, "payment-received", "order-123"))
	require.True(t, sender.OpenMessageSubscription(ctx, 10, 11, "payment-received", "order-123"))

	st, err := svc.Js.Stream(ctx, messages.SubscriptionStream)
	require.NoError(t, err)
	info, err := st.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.State.Msgs, "the second open is a duplicate")

	target := subscription.PartitionFor("order-123", ids)
	raw, err := st.GetLastMsgForSubject(ctx, fmt.Sprintf(messages.SubscriptionOpen, target))
	require.NoError(t, err)
	cmd := &subscription.OpenCommand{}
	require.NoError(t, msgpack.Unmarshal(raw.Data, cmd))
	assert.Equal(t, subscription.OpenCommand{
		WorkflowInstancePartitionID: 2,
		WorkflowInstanceKey:         10,
		ActivityInstanceKey:         11,
		MessageName:                 "payment-received",
		CorrelationKey:              "order-123",
	}, *cmd)
}
