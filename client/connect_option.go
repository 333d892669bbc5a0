package client

import (
	"time"

	"github.com/nats-io/nats.go"
)

// ConnectOptions collect the NATS settings of Dial.
type ConnectOptions struct {
	natsOptions     []nats.Option
	jetStreamDomain string
}

// ConnectOption changes how Dial connects.
type ConnectOption func(*ConnectOptions)

// WithNatsOption passes a NATS option to the connection.
func WithNatsOption(opt nats.Option) ConnectOption {
	return func(o *ConnectOptions) {
		o.natsOptions = append(o.natsOptions, opt)
	}
}

// WithConnectTimeout bounds how long Dial waits for the NATS server.
func WithConnectTimeout(d time.Duration) ConnectOption {
	return WithNatsOption(nats.Timeout(d))
}

// WithJetStreamDomain addresses the partition logs and the workflow repository in a JetStream domain.
func WithJetStreamDomain(domain string) ConnectOption {
	return func(o *ConnectOptions) {
		o.jetStreamDomain = domain
	}
}
