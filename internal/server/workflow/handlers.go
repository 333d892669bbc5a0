package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/rtenhove/zeebe/common/future"
	"github.com/rtenhove/zeebe/common/logx"
	"github.com/rtenhove/zeebe/model"
	"github.com/rtenhove/zeebe/server/errors"
	"github.com/rtenhove/zeebe/server/errors/keys"
	"github.com/rtenhove/zeebe/server/mapping"
	"github.com/rtenhove/zeebe/server/vars"
)

// Version of a create command that asks for the latest workflow even when one is cached.
const forceLatestVersion = -2

const (
	msgWorkflowNotDeployed = "Workflow is not deployed"
	msgNotRunning          = "Workflow instance is not running"
	msgCouldNotFetch       = "Could not fetch workflow: "
	msgUnsupportedNode     = "Flow node of type '%s' is not supported."
)

func (p *Processor) registerHandlers() {
	p.handlers = make(map[route]handler)
	aspect := onElement(p, p.handleAspect)

	p.on(wiCommand(model.WorkflowInstanceCreate), p.create)
	p.on(wiEvent(model.WorkflowInstanceCreated), p.created)
	p.on(wiRejection(model.WorkflowInstanceCreate), p.createRejected)
	p.on(wiCommand(model.WorkflowInstanceCancel), p.cancelInstance)
	p.on(wiCommand(model.WorkflowInstanceUpdatePayload), p.updatePayload)
	p.onActive(wiEvent(model.WorkflowInstanceSequenceFlowTaken), onElement(p, p.sequenceFlowTaken))
	p.onActive(wiEvent(model.WorkflowInstanceActivityReady), onElement(p, p.activityReady))
	p.onActive(wiEvent(model.WorkflowInstanceActivityActivated), onElement(p, p.activityActivated))
	p.onActive(wiEvent(model.WorkflowInstanceActivityCompleting), onElement(p, p.activityCompleting))
	p.onActive(wiEvent(model.WorkflowInstanceCatchEventEntering), onElement(p, p.catchEventEntering))
	p.onActive(wiEvent(model.WorkflowInstanceStartEventOccurred), aspect)
	p.onActive(wiEvent(model.WorkflowInstanceEndEventOccurred), aspect)
	p.onActive(wiEvent(model.WorkflowInstanceGatewayActivated), aspect)
	p.onActive(wiEvent(model.WorkflowInstanceActivityCompleted), aspect)
	p.onActive(wiEvent(model.WorkflowInstanceCatchEventOccurred), aspect)
	p.on(wiEvent(model.WorkflowInstanceCanceled), p.count(eventsCanceled))
	p.on(wiEvent(model.WorkflowInstanceCompleted), p.count(eventsCompleted))
	p.on(route{recordType: model.RecordTypeEvent, valueType: model.ValueTypeJob, intent: model.JobCreated}, p.jobCreated)
	p.on(route{recordType: model.RecordTypeEvent, valueType: model.ValueTypeJob, intent: model.JobCompleted}, p.jobCompleted)
}

func (p *Processor) on(r route, fn handlerFunc) {
	p.handlers[r] = handler{fn: fn}
}

// onActive registers a handler that only sees records of active workflow instances.
func (p *Processor) onActive(r route, fn handlerFunc) {
	p.handlers[r] = handler{fn: fn, gated: true}
}

func wiCommand(i model.Intent) route {
	return route{recordType: model.RecordTypeCommand, valueType: model.ValueTypeWorkflowInstance, intent: i}
}

func wiEvent(i model.Intent) route {
	return route{recordType: model.RecordTypeEvent, valueType: model.ValueTypeWorkflowInstance, intent: i}
}

func wiRejection(i model.Intent) route {
	return route{recordType: model.RecordTypeCommandRejection, valueType: model.ValueTypeWorkflowInstance, intent: i}
}

// create starts a workflow instance of the workflow the command names by key, by version or as the latest one.
func (p *Processor) create(ctx context.Context, t *Task) error {
	value := t.record.WorkflowInstance().Copy()

	// Keys are taken before the lookup so that the key sequence does not depend on whether the workflow was cached.
	instanceKey := p.keys.nextKey()
	startEventKey := p.keys.nextKey()
	value.WorkflowInstanceKey = instanceKey

	var wf *model.DeployedWorkflow
	var fetched *future.Future[[]byte]
	switch {
	case value.WorkflowKey > 0:
		if wf = p.workflows.getByKey(value.WorkflowKey); wf == nil {
			fetched = p.workflows.fetchByKey(ctx, value.WorkflowKey)
		}
	case value.Version > 0:
		if wf = p.workflows.getByProcessIDAndVersion(value.BpmnProcessID, value.Version); wf == nil {
			fetched = p.workflows.fetchByProcessIDAndVersion(ctx, value.BpmnProcessID, value.Version)
		}
	default:
		if wf = p.workflows.getLatestByProcessID(value.BpmnProcessID); wf == nil || value.Version == forceLatestVersion {
			wf = nil
			fetched = p.workflows.fetchLatestByProcessID(ctx, value.BpmnProcessID)
		}
	}
	if fetched == nil {
		return p.acceptCreate(t, value, startEventKey, wf)
	}
	return await(t, fetched, func(ctx context.Context, buf []byte, err error) error {
		if err != nil {
			p.rejectCreate(ctx, t, value, model.RejectionProcessingError, msgCouldNotFetch+err.Error())
			return nil
		}
		wf, err := p.workflows.addWorkflow(ctx, buf)
		if err != nil {
			p.rejectCreate(ctx, t, value, model.RejectionProcessingError, msgCouldNotFetch+err.Error())
			return nil
		}
		if wf == nil {
			p.rejectCreate(ctx, t, value, model.RejectionBadValue, msgWorkflowNotDeployed)
			return nil
		}
		return p.acceptCreate(t, value, startEventKey, wf)
	})
}

func (p *Processor) acceptCreate(t *Task, value *model.WorkflowInstanceRecord, startEventKey int64, wf *model.DeployedWorkflow) error {
	start := wf.Workflow.InitialStartEvent
	if start == nil {
		return errors.Fatal(t.record, fmt.Errorf("%w: workflow %s version %d has no start event", errors.ErrFlowNodeNotFound, wf.BpmnProcessID, wf.Version))
	}
	value.BpmnProcessID = wf.BpmnProcessID
	value.WorkflowKey = wf.Key
	value.Version = wf.Version

	startEvent := value.Copy()
	startEvent.ActivityID = start.ID

	batch := t.writer.NewBatch()
	batch.AddFollowUpEvent(value.WorkflowInstanceKey, model.WorkflowInstanceCreated, value, withRequest(t.record))
	batch.AddFollowUpEvent(startEventKey, model.WorkflowInstanceStartEventOccurred, startEvent)
	return nil
}

// rejectCreate writes the rejection. The requester is answered when the rejection record is applied.
func (p *Processor) rejectCreate(ctx context.Context, t *Task, value *model.WorkflowInstanceRecord, rejectionType model.RejectionType, reason string) {
	t.writer.WriteRejection(t.record, value, rejectionType, reason, withRequest(t.record))
	logx.FromContext(ctx).Info("create rejected",
		slog.String("rejection_type", rejectionType.String()),
		slog.String("reason", reason),
		slog.String(keys.ProcessID, value.BpmnProcessID),
	)
}

func (p *Processor) created(ctx context.Context, t *Task) error {
	rec := t.record
	p.metrics.inc(ctx, eventsCreated)
	t.respond(func(ctx context.Context) error {
		return p.responses.WriteEvent(ctx, rec)
	})
	p.index.add(rec.Key, rec.Position, rec.WorkflowInstance().WorkflowKey)
	return nil
}

func (p *Processor) createRejected(_ context.Context, t *Task) error {
	rec := t.record
	t.respond(func(ctx context.Context) error {
		return p.responses.WriteRejection(ctx, rec, rec.Metadata.RejectionType, rec.Metadata.RejectionReason)
	})
	return nil
}

func (p *Processor) count(typ string) handlerFunc {
	return func(ctx context.Context, _ *Task) error {
		p.metrics.inc(ctx, typ)
		return nil
	}
}

// rejectCommand writes a rejection and answers the requester directly.
func (p *Processor) rejectCommand(t *Task, rejectionType model.RejectionType, reason string) {
	command := t.record
	t.writer.WriteRejection(command, nil, rejectionType, reason)
	t.respond(func(ctx context.Context) error {
		return p.responses.WriteRejection(ctx, command, rejectionType, reason)
	})
}

// respondOnCommand answers the requester of command with an event about the entity the command addressed.
func (p *Processor) respondOnCommand(t *Task, key int64, intent model.Intent) {
	command := t.record
	t.respond(func(ctx context.Context) error {
		return p.responses.WriteEvent(ctx, &model.Record{
			Position:       command.Position,
			SourcePosition: command.SourcePosition,
			Key:            key,
			RecordType:     model.RecordTypeEvent,
			ValueType:      command.ValueType,
			Intent:         intent,
			Metadata:       command.Metadata,
			Value:          command.Value,
		})
	})
}

// cancelInstance terminates a running workflow instance together with its open activity and job.
func (p *Processor) cancelInstance(ctx context.Context, t *Task) error {
	command := t.record
	inst, ok := p.index.get(command.Key)
	if !ok || inst.tokens <= 0 {
		p.rejectCommand(t, model.RejectionNotApplicable, msgNotRunning)
		return nil
	}

	created, err := p.stream.ReadAt(ctx, inst.position)
	if err != nil {
		return fmt.Errorf("cancel %d: read created event: %w", command.Key, err)
	}
	createdValue := created.WorkflowInstance()
	if createdValue == nil {
		return errors.Fatal(command, fmt.Errorf("cancel %d: record at %d is not a workflow instance record", command.Key, inst.position))
	}
	value := createdValue.Copy()
	value.Payload = vars.Empty

	activityInstanceKey := inst.activityInstanceKey
	jobKey := p.activities.jobKey(activityInstanceKey)
	var activityID string
	if a, ok := p.activities.get(activityInstanceKey); ok {
		activityID = a.activityID
	}

	batch := t.writer.NewBatch()
	if jobKey > 0 {
		batch.AddFollowUpCommand(jobKey, model.JobCancel, &model.JobRecord{
			Headers: model.JobHeaders{
				BpmnProcessID:             value.BpmnProcessID,
				WorkflowDefinitionVersion: value.Version,
				WorkflowKey:               value.WorkflowKey,
				WorkflowInstanceKey:       command.Key,
				ActivityID:                activityID,
				ActivityInstanceKey:       activityInstanceKey,
			},
		})
	}
	if activityInstanceKey > 0 {
		batch.AddFollowUpEvent(activityInstanceKey, model.WorkflowInstanceActivityTerminated, &model.WorkflowInstanceRecord{
			BpmnProcessID:       value.BpmnProcessID,
			Version:             value.Version,
			WorkflowKey:         value.WorkflowKey,
			WorkflowInstanceKey: command.Key,
			ActivityID:          activityID,
			Payload:             vars.Empty,
		})
		p.activities.remove(activityInstanceKey)
	}
	batch.AddFollowUpEvent(command.Key, model.WorkflowInstanceCanceled, value)
	p.respondOnCommand(t, command.Key, model.WorkflowInstanceCanceled)

	p.index.remove(command.Key)
	p.payloads.remove(command.Key)
	return nil
}

// updatePayload replaces the payload an instance continues with once its current activity completes.
func (p *Processor) updatePayload(_ context.Context, t *Task) error {
	command := t.record
	value := command.WorkflowInstance().Copy()
	if !p.index.isActive(value.WorkflowInstanceKey) {
		p.rejectCommand(t, model.RejectionNotApplicable, msgNotRunning)
		return nil
	}
	p.payloads.add(value.WorkflowInstanceKey, command.Position, value.Payload)
	t.writer.WriteFollowUpEvent(command.Key, model.WorkflowInstancePayloadUpdated, value)
	p.respondOnCommand(t, command.Key, model.WorkflowInstancePayloadUpdated)
	return nil
}

// sequenceFlowTaken enters the target node of the flow.
func (p *Processor) sequenceFlowTaken(_ context.Context, t *Task, _ *model.DeployedWorkflow, flow *model.SequenceFlow) error {
	var next model.Intent
	switch flow.Target.(type) {
	case *model.EndEvent:
		next = model.WorkflowInstanceEndEventOccurred
	case *model.ServiceTask:
		next = model.WorkflowInstanceActivityReady
	case *model.ExclusiveGateway:
		next = model.WorkflowInstanceGatewayActivated
	case *model.IntermediateMessageCatchEvent:
		next = model.WorkflowInstanceCatchEventEntering
	default:
		return errors.Fatal(t.record, fmt.Errorf("%w: "+msgUnsupportedNode, errors.ErrUnsupportedFlowNode, elementType(flow.Target)))
	}
	value := t.record.WorkflowInstance().Copy()
	value.ActivityID = flow.Target.ElementID()
	t.writer.WriteNewEvent(next, value)
	return nil
}

func elementType(n model.FlowNode) string {
	switch n.(type) {
	case *model.StartEvent:
		return "startEvent"
	case *model.EndEvent:
		return "endEvent"
	case *model.ServiceTask:
		return "serviceTask"
	case *model.ExclusiveGateway:
		return "exclusiveGateway"
	case *model.IntermediateMessageCatchEvent:
		return "intermediateCatchEvent"
	default:
		return fmt.Sprintf("%T", n)
	}
}

// activityReady applies the input mappings of a service task and activates it.
func (p *Processor) activityReady(ctx context.Context, t *Task, _ *model.DeployedWorkflow, task *model.ServiceTask) error {
	rec := t.record
	value := rec.WorkflowInstance().Copy()
	original := value.Payload

	if len(task.IO.Inputs) > 0 {
		mapped, err := p.mapping.Extract(ctx, value.Payload, task.IO.Inputs)
		if err != nil {
			p.raiseIncident(ctx, t, model.ErrorTypeIOMappingError, mapping.MessageOf(err))
			return nil
		}
		value.Payload = mapped
	}

	t.writer.WriteFollowUpEvent(rec.Key, model.WorkflowInstanceActivityActivated, value)
	p.payloads.add(value.WorkflowInstanceKey, rec.Position, original)
	if inst, ok := p.index.get(value.WorkflowInstanceKey); ok {
		inst.activityInstanceKey = rec.Key
	}
	p.activities.add(rec.Key, value.ActivityID)
	return nil
}

// activityActivated asks the job subsystem to create the job of a service task.
func (p *Processor) activityActivated(ctx context.Context, t *Task, _ *model.DeployedWorkflow, task *model.ServiceTask) error {
	rec := t.record
	value := rec.WorkflowInstance()
	job := &model.JobRecord{
		Type:    task.TaskType,
		Retries: task.Retries,
		Payload: append([]byte(nil), value.Payload...),
		Headers: model.JobHeaders{
			BpmnProcessID:             value.BpmnProcessID,
			WorkflowDefinitionVersion: value.Version,
			WorkflowKey:               value.WorkflowKey,
			WorkflowInstanceKey:       value.WorkflowInstanceKey,
			ActivityID:                task.ID,
			ActivityInstanceKey:       rec.Key,
		},
	}
	if len(task.Headers) > 0 {
		h, err := vars.EncodeAny(task.Headers)
		if err != nil {
			return fmt.Errorf("encode custom headers of %s: %w", task.ID, err)
		}
		job.CustomHeaders = h
	}
	t.writer.WriteNewCommand(model.JobCreate, job)
	logx.FromContext(ctx).Debug("job requested", slog.String(keys.JobType, task.TaskType), slog.String(keys.ElementID, task.ID))
	return nil
}

// jobCreated remembers the job of the activity that is currently open.
func (p *Processor) jobCreated(_ context.Context, t *Task) error {
	rec := t.record
	h := rec.Job().Headers
	if h.ActivityInstanceKey <= 0 {
		return nil
	}
	inst, ok := p.index.get(h.WorkflowInstanceKey)
	if !ok || inst.activityInstanceKey != h.ActivityInstanceKey {
		return nil
	}
	if a, ok := p.activities.get(h.ActivityInstanceKey); ok {
		a.jobKey = rec.Key
	}
	return nil
}

// jobCompleted continues the activity whose open job completed.
func (p *Processor) jobCompleted(_ context.Context, t *Task) error {
	rec := t.record
	job := rec.Job()
	h := job.Headers
	if h.WorkflowInstanceKey <= 0 || rec.Key <= 0 {
		return nil
	}
	a, ok := p.activities.get(h.ActivityInstanceKey)
	if !ok || a.jobKey != rec.Key {
		return nil
	}
	t.writer.WriteFollowUpEvent(h.ActivityInstanceKey, model.WorkflowInstanceActivityCompleting, &model.WorkflowInstanceRecord{
		BpmnProcessID:       h.BpmnProcessID,
		Version:             h.WorkflowDefinitionVersion,
		WorkflowKey:         h.WorkflowKey,
		WorkflowInstanceKey: h.WorkflowInstanceKey,
		ActivityID:          h.ActivityID,
		Payload:             append([]byte(nil), job.Payload...),
	})
	a.jobKey = model.NoKey
	return nil
}

// activityCompleting merges the job result into the instance payload according to the output behavior.
func (p *Processor) activityCompleting(ctx context.Context, t *Task, _ *model.DeployedWorkflow, task *model.ServiceTask) error {
	rec := t.record
	value := rec.WorkflowInstance().Copy()
	base, err := p.payloads.get(ctx, value.WorkflowInstanceKey)
	if err != nil {
		return fmt.Errorf("complete %s: %w", task.ID, err)
	}

	switch task.IO.OutputBehavior {
	case model.OutputBehaviorNone:
		value.Payload = base
	case model.OutputBehaviorOverwrite, model.OutputBehaviorMerge:
		if task.IO.OutputBehavior == model.OutputBehaviorOverwrite {
			base = vars.Empty
		}
		merged, err := p.mapping.Merge(ctx, value.Payload, base, task.IO.Outputs)
		if err != nil {
			p.raiseIncident(ctx, t, model.ErrorTypeIOMappingError, mapping.MessageOf(err))
			return nil
		}
		value.Payload = merged
	default:
		return errors.Fatal(rec, fmt.Errorf("complete %s: unknown output behavior %s", task.ID, task.IO.OutputBehavior))
	}

	t.writer.WriteFollowUpEvent(rec.Key, model.WorkflowInstanceActivityCompleted, value)
	if inst, ok := p.index.get(value.WorkflowInstanceKey); ok {
		inst.activityInstanceKey = model.NoKey
	}
	p.activities.remove(rec.Key)
	return nil
}

// catchEventEntering subscribes a message catch event to its message once the partitions are known.
func (p *Processor) catchEventEntering(ctx context.Context, t *Task, _ *model.DeployedWorkflow, ce *model.IntermediateMessageCatchEvent) error {
	if p.subscriptions.HasPartitionIDs() {
		return p.enterCatchEvent(ctx, t, ce)
	}
	return await(t, p.subscriptions.FetchPartitionIDs(ctx), func(ctx context.Context, _ []int32, err error) error {
		if err != nil {
			return fmt.Errorf("fetch partition ids: %w", err)
		}
		return p.enterCatchEvent(ctx, t, ce)
	})
}

func (p *Processor) enterCatchEvent(ctx context.Context, t *Task, ce *model.IntermediateMessageCatchEvent) error {
	rec := t.record
	value := rec.WorkflowInstance().Copy()
	correlationKey, err := p.extractCorrelationKey(ctx, ce.CorrelationKey, value.Payload)
	if err != nil {
		if p.correlationFailure == CorrelationKeyFatal {
			return fmt.Errorf("enter catch event %s: %w", ce.ID, err)
		}
		p.raiseIncident(ctx, t, model.ErrorTypeIOMappingError, err.Error())
		return nil
	}

	workflowInstanceKey, activityInstanceKey := value.WorkflowInstanceKey, rec.Key
	t.onCommitted(func(ctx context.Context) bool {
		return p.subscriptions.OpenMessageSubscription(ctx, workflowInstanceKey, activityInstanceKey, ce.MessageName, correlationKey)
	})
	t.writer.WriteFollowUpEvent(rec.Key, model.WorkflowInstanceCatchEventEntered, value)
	logx.FromContext(ctx).Debug("catch event entered",
		slog.String(keys.MessageName, ce.MessageName),
		slog.String(keys.CorrelationKey, correlationKey),
	)
	return nil
}

type correlationKeyError struct {
	reason string
}

func (e *correlationKeyError) Error() string {
	return "Failed to extract correlation-key: " + e.reason
}

func (e *correlationKeyError) Unwrap() error {
	return errors.ErrCorrelationKey
}

// extractCorrelationKey evaluates the correlation key query. It must select exactly one string or integer.
func (p *Processor) extractCorrelationKey(ctx context.Context, query string, payload []byte) (string, error) {
	results, err := p.mapping.Query(ctx, payload, query)
	if err != nil {
		return "", &correlationKeyError{reason: err.Error()}
	}
	switch len(results) {
	case 0:
		return "", &correlationKeyError{reason: "no result"}
	case 1:
	default:
		return "", &correlationKeyError{reason: fmt.Sprintf("expected exactly one result, got %d", len(results))}
	}
	switch v := results[0].(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	default:
		return "", &correlationKeyError{reason: "wrong type"}
	}
}
