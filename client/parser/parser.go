package parser

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/rtenhove/zeebe/common/expression"
	"github.com/rtenhove/zeebe/model"
	errors2 "github.com/rtenhove/zeebe/server/errors"
)

// DefaultRetries is used for service tasks that do not declare a retry count.
const DefaultRetries = 3

// Parse parses every executable process of a BPMN document into a workflow.
func Parse(ctx context.Context, eng expression.Engine, rdr io.Reader) ([]*model.Workflow, error) {
	doc, err := xmlquery.Parse(rdr)
	if err != nil {
		return nil, fmt.Errorf("parse bpmn xml: %w", err)
	}
	msgs, err := parseMessages(doc)
	if err != nil {
		return nil, fmt.Errorf("parse messages: %w", err)
	}
	prs, err := xmlquery.QueryAll(doc, "//*[local-name()='process']")
	if err != nil {
		return nil, fmt.Errorf("find processes: %w", err)
	}
	ret := make([]*model.Workflow, 0, len(prs))
	for _, pr := range prs {
		if pr.SelectAttr("isExecutable") == "false" {
			continue
		}
		wf, err := parseProcess(pr, msgs)
		if err != nil {
			return nil, fmt.Errorf("process %q: %w", pr.SelectAttr("id"), err)
		}
		if err := validModel(ctx, eng, wf); err != nil {
			return nil, fmt.Errorf("process %q: %w", wf.BpmnProcessID, err)
		}
		ret = append(ret, wf)
	}
	if len(ret) == 0 {
		return nil, fmt.Errorf("no executable process found: %w", errors2.ErrInvalidDefinition)
	}
	return ret, nil
}

// ParseProcess parses a BPMN document and returns the process with the given id.
func ParseProcess(ctx context.Context, eng expression.Engine, rdr io.Reader, bpmnProcessID string) (*model.Workflow, error) {
	wfs, err := Parse(ctx, eng, rdr)
	if err != nil {
		return nil, err
	}
	for _, wf := range wfs {
		if wf.BpmnProcessID == bpmnProcessID {
			return wf, nil
		}
	}
	return nil, fmt.Errorf("process %q not found in resource: %w", bpmnProcessID, errors2.ErrInvalidDefinition)
}

type message struct {
	name           string
	correlationKey string
}

func parseMessages(doc *xmlquery.Node) (map[string]message, error) {
	nodes, err := xmlquery.QueryAll(doc, "//*[local-name()='message']")
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	ret := make(map[string]message, len(nodes))
	for _, n := range nodes {
		m := message{name: n.SelectAttr("name")}
		if sub := xmlquery.FindOne(n, "./*[local-name()='extensionElements']/*[local-name()='subscription']"); sub != nil {
			m.correlationKey = sub.SelectAttr("correlationKey")
		}
		ret[n.SelectAttr("id")] = m
	}
	return ret, nil
}

func parseProcess(pr *xmlquery.Node, msgs map[string]message) (*model.Workflow, error) {
	wf := model.NewWorkflow(pr.SelectAttr("id"))
	nodes := make(map[string]model.FlowNode)
	defaults := make(map[*model.ExclusiveGateway]string)

	for _, n := range childElements(pr) {
		id := n.SelectAttr("id")
		base := model.FlowNodeBase{ID: id}
		var node model.FlowNode
		switch n.Data {
		case "startEvent":
			se := &model.StartEvent{FlowNodeBase: base}
			if wf.InitialStartEvent != nil {
				return nil, fmt.Errorf("more than one start event: %w", errors2.ErrInvalidDefinition)
			}
			wf.InitialStartEvent = se
			node = se
		case "endEvent":
			node = &model.EndEvent{FlowNodeBase: base}
		case "serviceTask":
			st, err := parseServiceTask(n, base)
			if err != nil {
				return nil, fmt.Errorf("service task %q: %w", id, err)
			}
			node = st
		case "exclusiveGateway":
			gw := &model.ExclusiveGateway{FlowNodeBase: base}
			if d := n.SelectAttr("default"); d != "" {
				defaults[gw] = d
			}
			node = gw
		case "intermediateCatchEvent":
			ce, err := parseCatchEvent(n, base, msgs)
			if err != nil {
				return nil, fmt.Errorf("catch event %q: %w", id, err)
			}
			node = ce
		case "sequenceFlow", "extensionElements", "documentation", "laneSet", "textAnnotation", "association":
			continue
		default:
			return nil, fmt.Errorf("element %q of type %s is not supported: %w", id, n.Data, errors2.ErrInvalidDefinition)
		}
		if err := wf.Add(node); err != nil {
			return nil, fmt.Errorf("add %s: %w", n.Data, err)
		}
		nodes[id] = node
	}

	for _, n := range childElements(pr) {
		if n.Data != "sequenceFlow" {
			continue
		}
		id := n.SelectAttr("id")
		src, ok := nodes[n.SelectAttr("sourceRef")]
		if !ok {
			return nil, fmt.Errorf("sequence flow %q has unknown source %q: %w", id, n.SelectAttr("sourceRef"), errors2.ErrInvalidDefinition)
		}
		tgt, ok := nodes[n.SelectAttr("targetRef")]
		if !ok {
			return nil, fmt.Errorf("sequence flow %q has unknown target %q: %w", id, n.SelectAttr("targetRef"), errors2.ErrInvalidDefinition)
		}
		sf := &model.SequenceFlow{ID: id, Source: src, Target: tgt}
		if c := xmlquery.FindOne(n, "./*[local-name()='conditionExpression']"); c != nil {
			sf.Condition = strings.TrimSpace(c.InnerText())
		}
		if err := wf.Add(sf); err != nil {
			return nil, fmt.Errorf("add sequence flow: %w", err)
		}
		base := flowNodeBase(src)
		base.Out = append(base.Out, sf)
	}

	for gw, flowID := range defaults {
		sf, ok := wf.FindFlowElement(flowID).(*model.SequenceFlow)
		if !ok || sf.Source != model.FlowNode(gw) {
			return nil, fmt.Errorf("gateway %q default flow %q is not one of its outgoing flows: %w", gw.ID, flowID, errors2.ErrInvalidDefinition)
		}
		gw.DefaultFlow = sf
	}
	return wf, nil
}

func parseServiceTask(n *xmlquery.Node, base model.FlowNodeBase) (*model.ServiceTask, error) {
	st := &model.ServiceTask{FlowNodeBase: base, Retries: DefaultRetries}
	def := xmlquery.FindOne(n, "./*[local-name()='extensionElements']/*[local-name()='taskDefinition']")
	if def == nil {
		return nil, fmt.Errorf("missing task definition: %w", errors2.ErrInvalidDefinition)
	}
	st.TaskType = def.SelectAttr("type")
	if r := def.SelectAttr("retries"); r != "" {
		retries, err := strconv.ParseInt(r, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("retries %q: %w", r, errors2.ErrInvalidDefinition)
		}
		st.Retries = int32(retries)
	}
	for _, h := range xmlquery.Find(n, "./*[local-name()='extensionElements']/*[local-name()='taskHeaders']/*[local-name()='header']") {
		if st.Headers == nil {
			st.Headers = make(map[string]string)
		}
		st.Headers[h.SelectAttr("key")] = h.SelectAttr("value")
	}
	if iom := xmlquery.FindOne(n, "./*[local-name()='extensionElements']/*[local-name()='ioMapping']"); iom != nil {
		ob, err := model.ParseOutputBehavior(iom.SelectAttr("outputBehavior"))
		if err != nil {
			return nil, fmt.Errorf("io mapping: %w", errors2.ErrInvalidDefinition)
		}
		st.IO.OutputBehavior = ob
		for _, m := range xmlquery.Find(iom, "./*[local-name()='input']") {
			st.IO.Inputs = append(st.IO.Inputs, model.Mapping{Source: m.SelectAttr("source"), Target: m.SelectAttr("target")})
		}
		for _, m := range xmlquery.Find(iom, "./*[local-name()='output']") {
			st.IO.Outputs = append(st.IO.Outputs, model.Mapping{Source: m.SelectAttr("source"), Target: m.SelectAttr("target")})
		}
	}
	return st, nil
}

func parseCatchEvent(n *xmlquery.Node, base model.FlowNodeBase, msgs map[string]message) (*model.IntermediateMessageCatchEvent, error) {
	def := xmlquery.FindOne(n, "./*[local-name()='messageEventDefinition']")
	if def == nil {
		return nil, fmt.Errorf("only message catch events are supported: %w", errors2.ErrInvalidDefinition)
	}
	msg, ok := msgs[def.SelectAttr("messageRef")]
	if !ok {
		return nil, fmt.Errorf("unknown message %q: %w", def.SelectAttr("messageRef"), errors2.ErrInvalidDefinition)
	}
	return &model.IntermediateMessageCatchEvent{
		FlowNodeBase:   base,
		MessageName:    msg.name,
		CorrelationKey: msg.correlationKey,
	}, nil
}

func childElements(n *xmlquery.Node) []*xmlquery.Node {
	var ret []*xmlquery.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			ret = append(ret, c)
		}
	}
	return ret
}

func flowNodeBase(n model.FlowNode) *model.FlowNodeBase {
	switch t := n.(type) {
	case *model.StartEvent:
		return &t.FlowNodeBase
	case *model.EndEvent:
		return &t.FlowNodeBase
	case *model.ServiceTask:
		return &t.FlowNodeBase
	case *model.ExclusiveGateway:
		return &t.FlowNodeBase
	case *model.IntermediateMessageCatchEvent:
		return &t.FlowNodeBase
	default:
		panic(fmt.Sprintf("unknown flow node %T", n))
	}
}
