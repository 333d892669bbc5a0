package natz

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rtenhove/zeebe/common/setup"
	"github.com/rtenhove/zeebe/server/messages"
)

// NatsConfig holds the current nats configuration for the processor.
//
//go:embed nats-config.yaml
var NatsConfig string

// NatsConnConfiguration represents the configuration for a NATS connection.
//
// - Conn: The NATS connection.
// - StorageType: The storage type for JetStream.
// - Partitions: The partitions whose log streams must exist.
type NatsConnConfiguration struct {
	Conn            *nats.Conn
	StorageType     jetstream.StorageType
	JetStreamDomain string
	Partitions      []int32
}

// NatsService contains items enabling nats related communications e.g. publish, nats object manipulation
// via jetstream and KV access.
type NatsService struct {
	Js            jetstream.JetStream
	Conn          *nats.Conn
	StorageType   jetstream.StorageType
	Workflow      jetstream.KeyValue
	PartitionLock jetstream.KeyValue
}

// NewNatsService constructs a new NatsService, creating the streams and buckets that are missing.
func NewNatsService(ctx context.Context, nc *NatsConnConfiguration) (*NatsService, error) {
	var js jetstream.JetStream
	if nc.JetStreamDomain != "" {
		js2, err := jetstream.NewWithDomain(nc.Conn, nc.JetStreamDomain)
		if err != nil {
			return nil, fmt.Errorf("connect to jetstream: %w", err)
		}
		js = js2
	} else {
		js2, err := jetstream.New(nc.Conn)
		if err != nil {
			return nil, fmt.Errorf("connect to jetstream: %w", err)
		}
		js = js2
	}

	if err := setup.Nats(ctx, js, nc.StorageType, NatsConfig, nc.Partitions); err != nil {
		return nil, fmt.Errorf("set up nats queue insfrastructure: %w", err)
	}

	svc := &NatsService{
		Js:          js,
		Conn:        nc.Conn,
		StorageType: nc.StorageType,
	}
	kvs := map[string]*jetstream.KeyValue{
		messages.KvWorkflow:      &svc.Workflow,
		messages.KvPartitionLock: &svc.PartitionLock,
	}
	for k, v := range kvs {
		kv, err := js.KeyValue(ctx, k)
		if err != nil {
			return nil, fmt.Errorf("open %s KV: %w", k, err)
		}
		*v = kv
	}
	return svc, nil
}
