package teardown

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rtenhove/zeebe/cli/flag"
	"github.com/rtenhove/zeebe/server/messages"
	"github.com/spf13/cobra"
)

// Cmd is the cobra command object
var Cmd = &cobra.Command{
	Use:   "teardown",
	Short: "Deletes every partition log and bucket from NATS",
	Long:  ``,
	RunE:  run,
	Args:  cobra.NoArgs,
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	con, err := nats.Connect(flag.Value.Server)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer con.Close()
	js, err := jetstream.New(con)
	if err != nil {
		return fmt.Errorf("connect to JetStream: %w", err)
	}

	streams := []string{messages.SubscriptionStream}
	for p := int32(1); p <= flag.Value.PartitionCount; p++ {
		streams = append(streams, messages.PartitionStream(p))
	}
	for _, s := range streams {
		if err := js.DeleteStream(ctx, s); err != nil {
			cmd.Printf("*Not Deleted Stream %s: %s\n", s, err.Error())
		} else {
			cmd.Printf("Deleted stream %s\n", s)
		}
	}
	kvDelete(ctx, cmd, js,
		messages.KvWorkflow,
		messages.KvPartitionLock,
	)
	return nil
}

func kvDelete(ctx context.Context, cmd *cobra.Command, js jetstream.JetStream, buckets ...string) {
	for _, v := range buckets {
		if err := js.DeleteKeyValue(ctx, v); err != nil {
			cmd.Printf("*Not Deleted %s: %s\n", v, err.Error())
		} else {
			cmd.Printf("Deleted %s\n", v)
		}
	}
}
