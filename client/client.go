// Package client speaks the partition log protocol: it appends commands to a partition, waits for the processor's
// response and deploys workflows into the workflow repository.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rtenhove/zeebe/common"
	"github.com/rtenhove/zeebe/common/expression"
	"github.com/rtenhove/zeebe/common/logx"
	"github.com/rtenhove/zeebe/common/telemetry"
	"github.com/rtenhove/zeebe/internal/server/workflow"
	"github.com/rtenhove/zeebe/model"
	"github.com/rtenhove/zeebe/server/errors/keys"
	"github.com/rtenhove/zeebe/server/messages"
	"github.com/rtenhove/zeebe/server/services/deployment"
	"github.com/rtenhove/zeebe/server/services/logstream"
	"github.com/rtenhove/zeebe/server/services/response"
	"github.com/rtenhove/zeebe/server/vars"
	"github.com/segmentio/ksuid"
)

// ErrNoResponse is returned when the processor did not answer a command in time.
var ErrNoResponse = errors.New("no response from the partition processor")

// Client sends commands to partition processors and receives their responses.
type Client struct {
	id              string
	streamID        int32
	con             *nats.Conn
	js              jetstream.JetStream
	workflows       *deployment.Repository
	partitionCount  int32
	partition       int32
	responseTimeout time.Duration
	sub             *nats.Subscription
	mx              sync.Mutex
	nextRequest     int64
	pending         map[int64]chan *response.Response
	nextPartition   int32
}

// New creates a new client. Dial connects it.
func New(option ...ConfigurationOption) *Client {
	c := &Client{
		id:              ksuid.New().String(),
		streamID:        rand.Int32N(1<<30) + 1,
		partitionCount:  1,
		responseTimeout: 30 * time.Second,
		pending:         make(map[int64]chan *response.Response),
	}
	for _, i := range option {
		i.configure(c)
	}
	return c
}

// Dial instructs the client to connect to a NATS server.
func (c *Client) Dial(ctx context.Context, natsURL string, opts ...ConnectOption) error {
	connectOpts := &ConnectOptions{}
	for _, o := range opts {
		o(connectOpts)
	}
	n, err := nats.Connect(natsURL, append([]nats.Option{nats.Name("zeebe-client-" + c.id)}, connectOpts.natsOptions...)...)
	if err != nil {
		return c.clientErr(ctx, err)
	}
	if err := common.CheckVersion(ctx, n); err != nil {
		n.Close()
		return fmt.Errorf("check NATS version: %w", err)
	}
	var js jetstream.JetStream
	if connectOpts.jetStreamDomain != "" {
		js, err = jetstream.NewWithDomain(n, connectOpts.jetStreamDomain)
	} else {
		js, err = jetstream.New(n)
	}
	if err != nil {
		n.Close()
		return c.clientErr(ctx, err)
	}
	kv, err := js.KeyValue(ctx, messages.KvWorkflow)
	if err != nil {
		n.Close()
		return fmt.Errorf("open %s KV: %w", messages.KvWorkflow, err)
	}
	sub, err := n.Subscribe(fmt.Sprintf(messages.ResponseSubject, c.streamID), c.receive)
	if err != nil {
		n.Close()
		return fmt.Errorf("subscribe to responses: %w", err)
	}
	c.con = n
	c.js = js
	c.sub = sub
	c.workflows = deployment.NewRepository(kv, expression.NewExprEngine())
	return nil
}

// Close drops the connection.
func (c *Client) Close() {
	if c.con == nil {
		return
	}
	if err := c.sub.Unsubscribe(); err != nil {
		slog.Warn("unsubscribe from responses", "error", err)
	}
	c.con.Close()
}

func (c *Client) receive(msg *nats.Msg) {
	ctx, log := logx.NatsMessageLoggingEntrypoint(context.Background(), "client", msg.Header)
	res, err := response.Decode(msg.Data)
	if err != nil {
		log.Warn("discard response", "error", err)
		return
	}
	c.mx.Lock()
	ch, ok := c.pending[res.RequestID]
	delete(c.pending, res.RequestID)
	c.mx.Unlock()
	if !ok {
		log.DebugContext(ctx, "response for an unknown request", slog.Int64(keys.RequestID, res.RequestID))
		return
	}
	ch <- res
}

// Deploy stores every executable process of a BPMN resource as a new workflow version.
func (c *Client) Deploy(ctx context.Context, resource []byte) ([]deployment.Response, error) {
	res, err := c.workflows.Deploy(ctx, resource)
	if err != nil {
		return nil, c.clientErr(ctx, err)
	}
	return res, nil
}

// CreateInstance starts an instance of the given version of a process. A version below 1 starts the latest version.
func (c *Client) CreateInstance(ctx context.Context, bpmnProcessID string, version int32, payload []byte) (*response.Response, error) {
	return c.create(ctx, &model.WorkflowInstanceRecord{BpmnProcessID: bpmnProcessID, Version: version, Payload: payload})
}

// CreateInstanceByKey starts an instance of a deployed workflow.
func (c *Client) CreateInstanceByKey(ctx context.Context, workflowKey int64, payload []byte) (*response.Response, error) {
	return c.create(ctx, &model.WorkflowInstanceRecord{WorkflowKey: workflowKey, Payload: payload})
}

func (c *Client) create(ctx context.Context, value *model.WorkflowInstanceRecord) (*response.Response, error) {
	if value.Payload == nil {
		value.Payload = vars.Empty
	}
	return c.request(ctx, c.createPartition(), model.NoKey, model.WorkflowInstanceCreate, value)
}

// createPartition picks the partition of a new instance: the configured one, or else round robin.
func (c *Client) createPartition() int32 {
	if c.partition > 0 {
		return c.partition
	}
	c.mx.Lock()
	defer c.mx.Unlock()
	c.nextPartition = c.nextPartition%c.partitionCount + 1
	return c.nextPartition
}

// CancelInstance cancels a running workflow instance.
func (c *Client) CancelInstance(ctx context.Context, workflowInstanceKey int64) (*response.Response, error) {
	return c.request(ctx, workflow.PartitionOfKey(workflowInstanceKey), workflowInstanceKey, model.WorkflowInstanceCancel,
		&model.WorkflowInstanceRecord{WorkflowInstanceKey: workflowInstanceKey})
}

// UpdatePayload replaces the payload of an activity instance.
func (c *Client) UpdatePayload(ctx context.Context, workflowInstanceKey int64, activityInstanceKey int64, payload []byte) (*response.Response, error) {
	return c.request(ctx, workflow.PartitionOfKey(workflowInstanceKey), activityInstanceKey, model.WorkflowInstanceUpdatePayload,
		&model.WorkflowInstanceRecord{WorkflowInstanceKey: workflowInstanceKey, Payload: payload})
}

// CompleteJob plays a job worker for the job record at position. A job create command is first accepted with the
// command position as the job key. It returns the key of the completed job.
func (c *Client) CompleteJob(ctx context.Context, partitionID int32, position int64, payload []byte) (int64, error) {
	stream := logstream.NewJetStream(c.js, partitionID)
	rec, err := stream.ReadAt(ctx, position)
	if err != nil {
		return 0, c.clientErr(ctx, err)
	}
	job := rec.Job()
	if job == nil {
		return 0, fmt.Errorf("complete job: record at %d is a %s record", position, rec.ValueType)
	}
	var batch []*model.Record
	jobKey := rec.Key
	switch {
	case rec.RecordType == model.RecordTypeCommand && rec.Intent == model.JobCreate:
		jobKey = position
		batch = append(batch, jobEvent(jobKey, model.JobCreated, job))
	case rec.RecordType == model.RecordTypeEvent && rec.Intent == model.JobCreated:
	default:
		return 0, fmt.Errorf("complete job: record at %d is a %s %s", position, rec.RecordType, rec.IntentName())
	}
	done := *job
	if payload != nil {
		done.Payload = payload
	}
	batch = append(batch, jobEvent(jobKey, model.JobCompleted, &done))
	if _, err := stream.Append(ctx, batch); err != nil {
		return 0, c.clientErr(ctx, err)
	}
	return jobKey, nil
}

func jobEvent(key int64, intent model.Intent, job *model.JobRecord) *model.Record {
	v := *job
	return &model.Record{
		SourcePosition: -1,
		Key:            key,
		RecordType:     model.RecordTypeEvent,
		ValueType:      model.ValueTypeJob,
		Intent:         intent,
		Metadata:       model.NewMetadata(),
		Value:          &v,
	}
}

// Stream opens the log of a partition for reading.
func (c *Client) Stream(partitionID int32) logstream.Stream {
	return logstream.NewJetStream(c.js, partitionID)
}

// request appends a command to a partition and waits for the processor to answer it.
func (c *Client) request(ctx context.Context, partitionID int32, key int64, intent model.Intent, value model.Value) (*response.Response, error) {
	if partitionID < 1 || partitionID > c.partitionCount {
		return nil, fmt.Errorf("request: partition %d is outside 1..%d", partitionID, c.partitionCount)
	}
	c.mx.Lock()
	c.nextRequest++
	requestID := c.nextRequest
	ch := make(chan *response.Response, 1)
	c.pending[requestID] = ch
	c.mx.Unlock()
	defer func() {
		c.mx.Lock()
		delete(c.pending, requestID)
		c.mx.Unlock()
	}()

	md := model.NewMetadata()
	md.RequestID = requestID
	md.RequestStreamID = c.streamID
	md.Trace = telemetry.CtxToTrace(ctx)
	rec := &model.Record{
		SourcePosition: -1,
		Key:            key,
		RecordType:     model.RecordTypeCommand,
		ValueType:      value.ValueType(),
		Intent:         intent,
		Metadata:       md,
		Value:          value,
	}
	if _, err := logstream.NewJetStream(c.js, partitionID).Append(ctx, []*model.Record{rec}); err != nil {
		return nil, c.clientErr(ctx, err)
	}

	timer := time.NewTimer(c.responseTimeout)
	defer timer.Stop()
	select {
	case res := <-ch:
		return res, nil
	case <-timer.C:
		return nil, fmt.Errorf("%s %s: %w", value.ValueType(), model.IntentName(value.ValueType(), intent), ErrNoResponse)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) clientErr(_ context.Context, err error) error {
	return fmt.Errorf("client error: %w", err)
}
