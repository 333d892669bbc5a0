package telemetry

import (
	"context"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/propagation"
)

var prop = propagation.TraceContext{}

// CtxToNatsMsg injects the span context of ctx into the message headers.
func CtxToNatsMsg(ctx context.Context, msg *nats.Msg) {
	prop.Inject(ctx, NewNatsMsgCarrier(msg))
}

// NatsMsgToCtx extracts a remote span context carried by the message headers.
func NatsMsgToCtx(ctx context.Context, msg *nats.Msg) context.Context {
	if msg.Header == nil {
		return ctx
	}
	return prop.Extract(ctx, NewNatsMsgCarrier(msg))
}

// CtxToTrace returns the span context of ctx in the form carried by record metadata.
// It returns nil when ctx has no valid span context.
func CtxToTrace(ctx context.Context) map[string]string {
	car := propagation.MapCarrier{}
	prop.Inject(ctx, car)
	if len(car) == 0 {
		return nil
	}
	return car
}

// TraceToCtx extracts a span context carried by record metadata.
func TraceToCtx(ctx context.Context, tr map[string]string) context.Context {
	if len(tr) == 0 {
		return ctx
	}
	return prop.Extract(ctx, propagation.MapCarrier(tr))
}
