package workflow

import (
	"context"
	errors2 "errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/rtenhove/zeebe/common/expression"
	"github.com/rtenhove/zeebe/common/future"
	"github.com/rtenhove/zeebe/common/logx"
	"github.com/rtenhove/zeebe/common/telemetry"
	"github.com/rtenhove/zeebe/common/version"
	"github.com/rtenhove/zeebe/model"
	"github.com/rtenhove/zeebe/server/errors"
	"github.com/rtenhove/zeebe/server/errors/keys"
	"github.com/rtenhove/zeebe/server/mapping"
	"github.com/rtenhove/zeebe/server/services/logstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CorrelationKeyFailure selects what happens when the correlation key of a message catch event cannot be extracted.
type CorrelationKeyFailure string

const (
	// CorrelationKeyIncident raises an IO mapping incident for the catch event.
	CorrelationKeyIncident CorrelationKeyFailure = "incident"
	// CorrelationKeyFatal fails the record without output.
	CorrelationKeyFatal CorrelationKeyFailure = "fatal"
)

// DefaultTopic names the log in metrics when no topic is configured.
const DefaultTopic = "default-topic"

// SubscriptionSender opens message subscriptions on the partitions owning correlation keys.
type SubscriptionSender interface {
	HasPartitionIDs() bool
	FetchPartitionIDs(ctx context.Context) *future.Future[[]int32]
	OpenMessageSubscription(ctx context.Context, workflowInstanceKey int64, activityInstanceKey int64, messageName string, correlationKey string) bool
}

// ResponseWriter answers the client requests that issued commands.
type ResponseWriter interface {
	WriteEvent(ctx context.Context, rec *model.Record) error
	WriteRejection(ctx context.Context, command *model.Record, rejectionType model.RejectionType, reason string) error
}

// ProcessorConfig holds the collaborators and settings of a Processor.
type ProcessorConfig struct {
	Stream                logstream.Stream
	Fetcher               WorkflowFetcher
	Subscriptions         SubscriptionSender
	Responses             ResponseWriter
	Conditions            expression.Engine
	PayloadCacheSize      int
	WorkflowCacheSize     int64
	CorrelationKeyFailure CorrelationKeyFailure
	Topic                 string
	MeterProvider         metric.MeterProvider
	Clock                 clock.Clock
}

type handlerFunc func(ctx context.Context, t *Task) error

type route struct {
	recordType model.RecordType
	valueType  model.ValueType
	intent     model.Intent
}

type handler struct {
	fn handlerFunc
	// gated handlers only run while the workflow instance of the record is active.
	gated bool
}

// Processor applies the workflow instance records of one partition in log order.
// All state is owned by the goroutine running the processor.
type Processor struct {
	partition          int32
	stream             logstream.Stream
	subscriptions      SubscriptionSender
	responses          ResponseWriter
	mapping            *mapping.Engine
	index              *instanceIndex
	activities         *activityMap
	payloads           *payloadCache
	workflows          *workflowCache
	keys               *keyGenerator
	handlers           map[route]handler
	correlationFailure CorrelationKeyFailure
	metrics            *processorMetrics
	tr                 trace.Tracer
	clock              clock.Clock
	reprocessUntil     int64
	cancel             context.CancelFunc
	wg                 sync.WaitGroup
	closeOnce          sync.Once
	done               chan struct{}
	err                error
}

// New creates a processor for the partition of cfg.Stream.
func New(cfg ProcessorConfig) (*Processor, error) {
	if cfg.Stream == nil || cfg.Fetcher == nil || cfg.Subscriptions == nil || cfg.Responses == nil {
		return nil, fmt.Errorf("new processor: stream, fetcher, subscriptions and responses are required")
	}
	if cfg.Conditions == nil {
		cfg.Conditions = expression.NewExprEngine()
	}
	switch cfg.CorrelationKeyFailure {
	case "":
		cfg.CorrelationKeyFailure = CorrelationKeyIncident
	case CorrelationKeyIncident, CorrelationKeyFatal:
	default:
		return nil, fmt.Errorf("new processor: unknown correlation key failure mode %q", cfg.CorrelationKeyFailure)
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.WorkflowCacheSize < 1 {
		cfg.WorkflowCacheSize = 1000
	}

	eng, err := mapping.New(cfg.Conditions)
	if err != nil {
		return nil, fmt.Errorf("new processor: %w", err)
	}
	workflows, err := newWorkflowCache(cfg.Fetcher, cfg.Conditions, cfg.WorkflowCacheSize)
	if err != nil {
		return nil, fmt.Errorf("new processor: %w", err)
	}
	partition := cfg.Stream.PartitionID()
	m, err := newProcessorMetrics(cfg.MeterProvider, cfg.Topic, partition)
	if err != nil {
		return nil, fmt.Errorf("new processor: %w", err)
	}

	p := &Processor{
		partition:          partition,
		stream:             cfg.Stream,
		subscriptions:      cfg.Subscriptions,
		responses:          cfg.Responses,
		mapping:            eng,
		index:              newInstanceIndex(),
		activities:         newActivityMap(),
		payloads:           newPayloadCache(cfg.Stream, cfg.PayloadCacheSize),
		workflows:          workflows,
		keys:               newKeyGenerator(partition),
		correlationFailure: cfg.CorrelationKeyFailure,
		metrics:            m,
		tr:                 otel.GetTracerProvider().Tracer("zeebe", trace.WithInstrumentationVersion(version.Version)),
		clock:              cfg.Clock,
		reprocessUntil:     -1,
		done:               make(chan struct{}),
	}
	p.registerHandlers()
	return p, nil
}

// Start runs the processor on its own goroutine until Shutdown is called or processing fails.
func (p *Processor) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(p.done)
		if err := p.Run(ctx); err != nil && !errors2.Is(err, context.Canceled) {
			p.err = err
			logx.FromContext(ctx).Error("workflow instance processor stopped", "error", err, slog.Int(keys.Partition, int(p.partition)))
		}
	}()
}

// Done is closed once a started processor stopped.
func (p *Processor) Done() <-chan struct{} {
	return p.done
}

// Err returns the error that stopped a started processor. It is only valid after Done is closed.
func (p *Processor) Err() error {
	return p.err
}

// Shutdown stops a started processor, waits for it to finish the current record and releases its caches.
func (p *Processor) Shutdown() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.closeOnce.Do(p.workflows.close)
}

// Run reprocesses the log and then applies new records as they are appended. It returns when ctx ends.
func (p *Processor) Run(ctx context.Context) error {
	ctx, log := logx.ContextWith(ctx, "workflow-instance-processor")
	last, err := p.stream.LastSourcePosition(ctx)
	if err != nil {
		return fmt.Errorf("find last source position: %w", err)
	}
	p.reprocessUntil = last
	log.Info("start processing", slog.Int(keys.Partition, int(p.partition)), slog.Int64("reprocess_until", last))
	if err := p.stream.Consume(ctx, p.process); err != nil {
		return fmt.Errorf("consume partition %d: %w", p.partition, err)
	}
	return nil
}

// Reprocessing reports whether a record at position was already processed before the processor started.
func (p *Processor) Reprocessing(position int64) bool {
	return position <= p.reprocessUntil
}

func (p *Processor) process(ctx context.Context, rec *model.Record) error {
	if _, unknown := rec.Value.(*model.UnknownValue); unknown {
		logx.FromContext(ctx).Warn("skip record of unknown value type",
			slog.Int64(keys.Position, rec.Position), slog.String(keys.ValueType, rec.ValueType.String()))
		return nil
	}
	h, ok := p.handlers[route{recordType: rec.RecordType, valueType: rec.ValueType, intent: rec.Intent}]
	if !ok {
		return nil
	}
	if h.gated {
		if wi := rec.WorkflowInstance(); wi == nil || !p.index.isActive(wi.WorkflowInstanceKey) {
			return nil
		}
	}

	ctx = telemetry.TraceToCtx(ctx, rec.Metadata.Trace)
	ctx, span := p.tr.Start(ctx, "process "+rec.ValueType.String()+" "+rec.IntentName(), trace.WithAttributes(
		attribute.Int64(keys.Position, rec.Position),
		attribute.Int64(keys.RecordKey, rec.Key),
		attribute.Int(keys.Partition, int(p.partition)),
	))
	defer span.End()
	ctx, log := logx.RecordLoggingEntrypoint(ctx, "processor", strconv.FormatInt(rec.Position, 10))
	ctx = logx.NewContext(ctx, log.With(
		slog.String(keys.RecordType, rec.RecordType.String()),
		slog.String(keys.ValueType, rec.ValueType.String()),
		slog.String(keys.Intent, rec.IntentName()),
		slog.Int64(keys.RecordKey, rec.Key),
	))

	t := newTask(rec, newStreamWriter(p.keys, rec, telemetry.CtxToTrace(ctx)))
	if err := t.execute(ctx, h.fn); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.engineErr(ctx, "abandoned record", err)
		return nil
	}
	return p.commit(ctx, t)
}

// commit appends the output of a finished task, then answers the client and runs the side effects.
// While reprocessing the output is already in the log and only the side effects run again.
func (p *Processor) commit(ctx context.Context, t *Task) error {
	reprocessing := p.Reprocessing(t.record.Position)
	if !reprocessing {
		if len(t.writer.records) > 0 {
			if err := p.append(ctx, t.writer.records); err != nil {
				return err
			}
		}
		for _, respond := range t.responses {
			if err := respond(ctx); err != nil {
				logx.FromContext(ctx).Warn("send response", "error", err)
			}
		}
	}
	for _, fn := range t.sideEffects {
		if err := p.runSideEffect(ctx, fn); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) append(ctx context.Context, records []*model.Record) error {
	bo := p.newBackOff(time.Minute)
	err := backoff.Retry(func() error {
		if _, err := p.stream.Append(ctx, records); err != nil {
			logx.FromContext(ctx).Warn("append records", "error", err)
			return err
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return fmt.Errorf("append %d records: %w", len(records), err)
	}
	return nil
}

var errNotAccepted = errors2.New("side effect not accepted")

// runSideEffect retries fn until it succeeds or ctx ends.
func (p *Processor) runSideEffect(ctx context.Context, fn sideEffect) error {
	bo := p.newBackOff(0)
	err := backoff.Retry(func() error {
		if !fn(ctx) {
			return errNotAccepted
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return fmt.Errorf("run side effect: %w", err)
	}
	return nil
}

func (p *Processor) newBackOff(maxElapsed time.Duration) *backoff.ExponentialBackOff {
	bo := &backoff.ExponentialBackOff{
		InitialInterval:     10 * time.Millisecond,
		MaxInterval:         5 * time.Second,
		Multiplier:          2,
		RandomizationFactor: 0.5,
		MaxElapsedTime:      maxElapsed,
		Stop:                backoff.Stop,
		Clock:               p.clock,
	}
	bo.Reset()
	return bo
}

// engineErr logs an error that made the processor abandon a record.
func (p *Processor) engineErr(ctx context.Context, msg string, err error, z ...any) {
	log := logx.FromContext(ctx)
	z = append(z, "error", err.Error(), "fatal", errors.IsWorkflowFatal(err))
	log.Error(msg, z...)
}
