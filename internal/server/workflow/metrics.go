package workflow

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rtenhove/zeebe/common/version"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	eventsCreated   = "created"
	eventsCanceled  = "canceled"
	eventsCompleted = "completed"
)

type processorMetrics struct {
	events metric.Int64Counter
	attrs  map[string]metric.MeasurementOption
}

func newProcessorMetrics(mp metric.MeterProvider, topic string, partition int32) (*processorMetrics, error) {
	meter := mp.Meter("zeebe", metric.WithInstrumentationVersion(version.Version))
	events, err := meter.Int64Counter("workflow_instance_events_count",
		metric.WithDescription("Workflow instances created, canceled and completed on a partition."))
	if err != nil {
		return nil, fmt.Errorf("create workflow instance counter: %w", err)
	}
	m := &processorMetrics{events: events, attrs: make(map[string]metric.MeasurementOption)}
	for _, typ := range []string{eventsCreated, eventsCanceled, eventsCompleted} {
		m.attrs[typ] = metric.WithAttributeSet(attribute.NewSet(
			attribute.String("topic", topic),
			attribute.String("partition", strconv.Itoa(int(partition))),
			attribute.String("type", typ),
		))
	}
	return m, nil
}

func (m *processorMetrics) inc(ctx context.Context, typ string) {
	m.events.Add(ctx, 1, m.attrs[typ])
}
