package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rtenhove/zeebe/common/logx"
	"github.com/rtenhove/zeebe/model"
	"github.com/rtenhove/zeebe/server/errors"
	"github.com/rtenhove/zeebe/server/errors/keys"
)

// elementHandler handles a workflow instance record once the flow element it refers to is known.
type elementHandler[T model.FlowElement] func(ctx context.Context, t *Task, wf *model.DeployedWorkflow, el T) error

// onElement resolves the deployed workflow of a record, fetching it when it is not cached, and calls fn with the
// flow element the record's activity id names.
func onElement[T model.FlowElement](p *Processor, fn elementHandler[T]) handlerFunc {
	return func(ctx context.Context, t *Task) error {
		wi := t.record.WorkflowInstance()
		if wf := p.workflows.getByKey(wi.WorkflowKey); wf != nil {
			return resolveElement(ctx, t, wf, fn)
		}
		return await(t, p.workflows.fetchByKey(ctx, wi.WorkflowKey), func(ctx context.Context, buf []byte, err error) error {
			if err != nil {
				return fmt.Errorf("could not fetch workflow %d: %w", wi.WorkflowKey, err)
			}
			wf, err := p.workflows.addWorkflow(ctx, buf)
			if err != nil {
				return fmt.Errorf("error while processing fetched workflow %d: %w", wi.WorkflowKey, err)
			}
			if wf == nil {
				return fmt.Errorf("error while processing fetched workflow %d: %w", wi.WorkflowKey, errors.ErrWorkflowNotFound)
			}
			return resolveElement(ctx, t, wf, fn)
		})
	}
}

func resolveElement[T model.FlowElement](ctx context.Context, t *Task, wf *model.DeployedWorkflow, fn elementHandler[T]) error {
	id := t.record.WorkflowInstance().ActivityID
	found := wf.Workflow.FindFlowElement(id)
	if found == nil {
		return errors.Fatal(t.record, fmt.Errorf("%w: %q in workflow %s version %d", errors.ErrFlowNodeNotFound, id, wf.BpmnProcessID, wf.Version))
	}
	el, ok := found.(T)
	if !ok {
		return errors.Fatal(t.record, fmt.Errorf("%w: %s is a %T", errors.ErrUnsupportedFlowNode, id, found))
	}
	return fn(ctx, t, wf, el)
}

// raiseIncident reports a failure of the current record. A record that was written while resolving an incident
// fails that incident again instead of raising a new one.
func (p *Processor) raiseIncident(ctx context.Context, t *Task, errorType model.ErrorType, message string) {
	incident := model.NewIncidentFromWorkflowInstanceFailure(t.record, errorType, message)
	md := t.record.Metadata
	if !md.HasIncidentKey() {
		t.writer.WriteNewCommand(model.IncidentCreate, incident)
	} else {
		t.writer.WriteFollowUpEvent(md.IncidentKey, model.IncidentResolveFailed, incident)
	}
	logx.FromContext(ctx).Warn("incident raised",
		slog.String("error_type", errorType.String()),
		slog.String("message", message),
		slog.Int64(keys.WorkflowInstanceKey, incident.WorkflowInstanceKey),
		slog.String(keys.ElementID, incident.ActivityID),
	)
}

// handleAspect applies the BPMN aspect of the flow node a record refers to.
func (p *Processor) handleAspect(ctx context.Context, t *Task, wf *model.DeployedWorkflow, node model.FlowNode) error {
	switch aspect := node.Aspect(); aspect {
	case model.AspectTakeSequenceFlow:
		return p.takeSequenceFlow(ctx, t, node)
	case model.AspectConsumeToken:
		return p.consumeToken(ctx, t)
	case model.AspectExclusiveSplit:
		gw, ok := node.(*model.ExclusiveGateway)
		if !ok {
			return errors.Fatal(t.record, fmt.Errorf("%w: %s on %T", errors.ErrUnknownAspect, aspect, node))
		}
		return p.exclusiveSplit(ctx, t, gw)
	default:
		return errors.Fatal(t.record, fmt.Errorf("%w: %s on %s", errors.ErrUnknownAspect, aspect, node.ElementID()))
	}
}

// takeSequenceFlow leaves a node through its only outgoing flow.
func (p *Processor) takeSequenceFlow(_ context.Context, t *Task, node model.FlowNode) error {
	out := node.Outgoing()
	if len(out) != 1 {
		return errors.Fatal(t.record, fmt.Errorf("take sequence flow from %s: %d outgoing flows", node.ElementID(), len(out)))
	}
	value := t.record.WorkflowInstance().Copy()
	value.ActivityID = out[0].ID
	t.writer.WriteNewEvent(model.WorkflowInstanceSequenceFlowTaken, value)
	return nil
}

const msgNoFlowSelected = "All conditions evaluated to false and no default flow is set."

// exclusiveSplit takes the first conditioned flow whose condition holds, or else the default flow.
func (p *Processor) exclusiveSplit(ctx context.Context, t *Task, gw *model.ExclusiveGateway) error {
	value := t.record.WorkflowInstance().Copy()
	var selected *model.SequenceFlow
	for _, flow := range gw.ConditionedFlows() {
		ok, err := p.mapping.EvaluateCondition(ctx, flow.Condition, value.Payload)
		if err != nil {
			p.raiseIncident(ctx, t, model.ErrorTypeConditionError, err.Error())
			return nil
		}
		if ok {
			selected = flow
			break
		}
	}
	if selected == nil {
		selected = gw.DefaultFlow
	}
	if selected == nil {
		p.raiseIncident(ctx, t, model.ErrorTypeConditionError, msgNoFlowSelected)
		return nil
	}
	value.ActivityID = selected.ID
	t.writer.WriteNewEvent(model.WorkflowInstanceSequenceFlowTaken, value)
	return nil
}

// consumeToken completes the workflow instance when its last token is consumed.
func (p *Processor) consumeToken(_ context.Context, t *Task) error {
	value := t.record.WorkflowInstance().Copy()
	inst, ok := p.index.get(value.WorkflowInstanceKey)
	if !ok || inst.tokens != 1 {
		return nil
	}
	value.ActivityID = ""
	t.writer.WriteFollowUpEvent(value.WorkflowInstanceKey, model.WorkflowInstanceCompleted, value)
	p.index.remove(value.WorkflowInstanceKey)
	p.payloads.remove(value.WorkflowInstanceKey)
	return nil
}
