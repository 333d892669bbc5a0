package telemetry

import "github.com/nats-io/nats.go"

// NatsMsgCarrier adapts NATS message headers for OpenTelemetry propagation.
type NatsMsgCarrier struct {
	msg *nats.Msg
}

// Get returns the header value for key.
func (c *NatsMsgCarrier) Get(key string) string {
	return c.msg.Header.Get(key)
}

// Set stores a header value, creating the header if necessary.
func (c *NatsMsgCarrier) Set(key string, value string) {
	if c.msg.Header == nil {
		c.msg.Header = nats.Header{}
	}
	c.msg.Header.Set(key, value)
}

// Keys lists the header keys.
func (c *NatsMsgCarrier) Keys() []string {
	if c.msg.Header == nil {
		return make([]string, 0)
	}
	ret := make([]string, 0, len(c.msg.Header))
	for k := range c.msg.Header {
		ret = append(ret, k)
	}
	return ret
}

// NewNatsMsgCarrier wraps msg.
func NewNatsMsgCarrier(msg *nats.Msg) *NatsMsgCarrier {
	return &NatsMsgCarrier{
		msg: msg,
	}
}
