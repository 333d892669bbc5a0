package deployment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
	"github.com/rtenhove/zeebe/common/telemetry"
	errors2 "github.com/rtenhove/zeebe/server/errors"
	"github.com/rtenhove/zeebe/server/messages"
	"github.com/vmihailenco/msgpack/v5"
)

// Requester is the part of a NATS connection the lookup client needs.
type Requester interface {
	RequestMsgWithContext(ctx context.Context, msg *nats.Msg) (*nats.Msg, error)
}

// Client fetches deployed workflows from the deployment responders.
type Client struct {
	nc         Requester
	clock      clock.Clock
	timeout    time.Duration
	maxElapsed time.Duration
}

// ClientOption configures a Client.
type ClientOption func(c *Client)

// WithClock replaces the wall clock used to pace retries.
func WithClock(clk clock.Clock) ClientOption {
	return func(c *Client) {
		c.clock = clk
	}
}

// WithRetryFor bounds how long the client keeps retrying while no responder is available.
func WithRetryFor(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxElapsed = d
	}
}

// NewClient creates a lookup client. timeout bounds each request.
func NewClient(nc Requester, timeout time.Duration, opts ...ClientOption) *Client {
	c := &Client{
		nc:         nc,
		clock:      clock.New(),
		timeout:    timeout,
		maxElapsed: 10 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Fetch sends a lookup and returns the raw response. Requests are retried while no responder is listening.
func (c *Client) Fetch(ctx context.Context, req Request) ([]byte, error) {
	b, err := msgpack.Marshal(&req)
	if err != nil {
		return nil, fmt.Errorf("encode lookup request: %w", err)
	}

	bo := &backoff.ExponentialBackOff{
		InitialInterval:     10 * time.Millisecond,
		MaxInterval:         time.Second,
		Multiplier:          1.5,
		RandomizationFactor: 0.5,
		MaxElapsedTime:      c.maxElapsed,
		Stop:                backoff.Stop,
		Clock:               c.clock,
	}
	bo.Reset()
	ticker := backoff.NewTicker(backoff.WithContext(bo, ctx))
	defer ticker.Stop()

	var lastErr error
	for range ticker.C {
		msg := nats.NewMsg(messages.DeploymentLookup)
		msg.Data = b
		telemetry.CtxToNatsMsg(ctx, msg)
		res, err := c.request(ctx, msg)
		if errors.Is(err, nats.ErrNoResponders) {
			lastErr = err
			continue
		} else if err != nil {
			return nil, fmt.Errorf("lookup workflow: %w", err)
		}
		if len(res.Data) == 0 {
			return nil, fmt.Errorf("lookup workflow: responder failed to answer")
		}
		return res.Data, nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("lookup workflow: %w", ctx.Err())
	}
	return nil, fmt.Errorf("%w: %w", errors2.ErrLookupUnavailable, lastErr)
}

func (c *Client) request(ctx context.Context, msg *nats.Msg) (*nats.Msg, error) {
	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	res, err := c.nc.RequestMsgWithContext(rctx, msg)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", msg.Subject, err)
	}
	return res, nil
}
