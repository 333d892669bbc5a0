package model

import "fmt"

// Aspect is the control-flow rule applied when a flow node has been reached or left.
type Aspect uint8

const (
	AspectNone             Aspect = iota // AspectNone is never declared by a valid flow node.
	AspectTakeSequenceFlow               // AspectTakeSequenceFlow continues along the single outgoing sequence flow.
	AspectConsumeToken                   // AspectConsumeToken ends the token, completing the instance when it was the last one.
	AspectExclusiveSplit                 // AspectExclusiveSplit takes the first outgoing flow whose condition holds.
)

func (a Aspect) String() string {
	switch a {
	case AspectTakeSequenceFlow:
		return "TAKE_SEQUENCE_FLOW"
	case AspectConsumeToken:
		return "CONSUME_TOKEN"
	case AspectExclusiveSplit:
		return "EXCLUSIVE_SPLIT"
	default:
		return "NONE"
	}
}

// FlowElement is any element of a workflow graph that can be addressed by id.
// The set of implementations is closed: SequenceFlow and the FlowNode kinds of this package.
type FlowElement interface {
	ElementID() string
	flowElement()
}

// FlowNode is a flow element that sequence flows connect.
type FlowNode interface {
	FlowElement
	Outgoing() []*SequenceFlow
	Aspect() Aspect
}

// FlowNodeBase holds what every flow node kind shares.
type FlowNodeBase struct {
	ID  string
	Out []*SequenceFlow
}

// ElementID returns the BPMN id of the node.
func (n *FlowNodeBase) ElementID() string { return n.ID }

// Outgoing returns the outgoing sequence flows in declaration order.
func (n *FlowNodeBase) Outgoing() []*SequenceFlow { return n.Out }

func (n *FlowNodeBase) flowElement() {}

func (n *FlowNodeBase) passThroughAspect() Aspect {
	if len(n.Out) == 0 {
		return AspectConsumeToken
	}
	return AspectTakeSequenceFlow
}

// SequenceFlow connects two flow nodes.
type SequenceFlow struct {
	ID        string
	Source    FlowNode
	Target    FlowNode
	Condition string
}

// ElementID returns the BPMN id of the flow.
func (s *SequenceFlow) ElementID() string { return s.ID }

func (s *SequenceFlow) flowElement() {}

// HasCondition reports whether the flow declares a condition expression.
func (s *SequenceFlow) HasCondition() bool { return s.Condition != "" }

// StartEvent is the entry point of a workflow.
type StartEvent struct {
	FlowNodeBase
}

// Aspect implements FlowNode.
func (e *StartEvent) Aspect() Aspect { return e.passThroughAspect() }

// EndEvent ends the token that reaches it.
type EndEvent struct {
	FlowNodeBase
}

// Aspect implements FlowNode.
func (e *EndEvent) Aspect() Aspect { return AspectConsumeToken }

// Mapping moves the value found at Source into Target. Both are JSON paths such as "$.order.id".
type Mapping struct {
	Source string
	Target string
}

// OutputBehavior decides how a job result is combined with the instance payload.
type OutputBehavior uint8

const (
	OutputBehaviorMerge     OutputBehavior = iota // OutputBehaviorMerge merges the job result into the instance payload.
	OutputBehaviorOverwrite                       // OutputBehaviorOverwrite merges the job result into an empty document.
	OutputBehaviorNone                            // OutputBehaviorNone discards the job result.
)

func (o OutputBehavior) String() string {
	switch o {
	case OutputBehaviorOverwrite:
		return "OVERWRITE"
	case OutputBehaviorNone:
		return "NONE"
	default:
		return "MERGE"
	}
}

// ParseOutputBehavior parses the BPMN attribute value, defaulting to MERGE.
func ParseOutputBehavior(s string) (OutputBehavior, error) {
	switch s {
	case "", "MERGE", "merge":
		return OutputBehaviorMerge, nil
	case "OVERWRITE", "overwrite":
		return OutputBehaviorOverwrite, nil
	case "NONE", "none":
		return OutputBehaviorNone, nil
	default:
		return OutputBehaviorMerge, fmt.Errorf("unknown output behavior %q", s)
	}
}

// IOMapping declares how payloads enter and leave a service task.
type IOMapping struct {
	Inputs         []Mapping
	Outputs        []Mapping
	OutputBehavior OutputBehavior
}

// ServiceTask creates a job and waits for its completion.
type ServiceTask struct {
	FlowNodeBase
	TaskType string
	Retries  int32
	Headers  map[string]string
	IO       IOMapping
}

// Aspect implements FlowNode.
func (t *ServiceTask) Aspect() Aspect { return t.passThroughAspect() }

// ExclusiveGateway routes the token along exactly one outgoing flow.
type ExclusiveGateway struct {
	FlowNodeBase
	DefaultFlow *SequenceFlow
}

// Aspect implements FlowNode.
func (g *ExclusiveGateway) Aspect() Aspect { return AspectExclusiveSplit }

// ConditionedFlows returns the outgoing flows declaring a condition, in declaration order.
func (g *ExclusiveGateway) ConditionedFlows() []*SequenceFlow {
	ret := make([]*SequenceFlow, 0, len(g.Out))
	for _, f := range g.Out {
		if f.HasCondition() {
			ret = append(ret, f)
		}
	}
	return ret
}

// IntermediateMessageCatchEvent waits for a message correlated by a key taken from the payload.
type IntermediateMessageCatchEvent struct {
	FlowNodeBase
	MessageName    string
	CorrelationKey string
}

// Aspect implements FlowNode.
func (e *IntermediateMessageCatchEvent) Aspect() Aspect { return e.passThroughAspect() }

// Workflow is a parsed, executable BPMN process.
type Workflow struct {
	BpmnProcessID     string
	InitialStartEvent *StartEvent
	elements          map[string]FlowElement
}

// NewWorkflow returns an empty workflow for the given process id.
func NewWorkflow(bpmnProcessID string) *Workflow {
	return &Workflow{BpmnProcessID: bpmnProcessID, elements: make(map[string]FlowElement)}
}

// Add registers an element. Element ids must be unique within a workflow.
func (w *Workflow) Add(el FlowElement) error {
	if _, ok := w.elements[el.ElementID()]; ok {
		return fmt.Errorf("duplicate element id %q", el.ElementID())
	}
	w.elements[el.ElementID()] = el
	return nil
}

// FindFlowElement returns the element with the given id, or nil.
func (w *Workflow) FindFlowElement(id string) FlowElement {
	return w.elements[id]
}

// Elements returns every element of the workflow.
func (w *Workflow) Elements() map[string]FlowElement {
	return w.elements
}

// DeployedWorkflow is a workflow as it was deployed: the graph plus its identity.
type DeployedWorkflow struct {
	Key           int64
	Version       int32
	BpmnProcessID string
	Workflow      *Workflow
}
