package util

import (
	"context"
	"fmt"
	"time"

	"github.com/rtenhove/zeebe/cli/flag"
	"github.com/rtenhove/zeebe/client"
	"github.com/rtenhove/zeebe/server/vars"
)

// GetClient dials a client configured from the CLI flags.
func GetClient(ctx context.Context) (*client.Client, error) {
	opts := []client.ConfigurationOption{client.WithPartitionCount(flag.Value.PartitionCount)}
	if flag.Value.Partition > 0 {
		opts = append(opts, client.WithPartition(flag.Value.Partition))
	}
	if flag.Value.Timeout != "" {
		d, err := time.ParseDuration(flag.Value.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse timeout: %w", err)
		}
		opts = append(opts, client.WithResponseTimeout(d))
	}
	var connectOpts []client.ConnectOption
	if flag.Value.JetStreamDomain != "" {
		connectOpts = append(connectOpts, client.WithJetStreamDomain(flag.Value.JetStreamDomain))
	}
	cl := client.New(opts...)
	if err := cl.Dial(ctx, flag.Value.Server, connectOpts...); err != nil {
		return nil, fmt.Errorf("dialling server: %w", err)
	}
	return cl, nil
}

// Payload encodes the JSON payload flag. An empty flag is an empty document.
func Payload(ctx context.Context) ([]byte, error) {
	b, err := vars.FromJSON(ctx, []byte(flag.Value.Payload))
	if err != nil {
		return nil, fmt.Errorf("payload flag: %w", err)
	}
	return b, nil
}
