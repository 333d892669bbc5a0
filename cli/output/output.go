package output

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rtenhove/zeebe/model"
	"github.com/rtenhove/zeebe/server/services/deployment"
	"github.com/rtenhove/zeebe/server/services/response"
	"github.com/rtenhove/zeebe/server/tools/tracer"
	"github.com/rtenhove/zeebe/server/vars"
)

// Method represents the output method
type Method interface {
	OutputDeployResult(res []deployment.Response)
	OutputResponse(res *response.Response) error
	OutputJobCompleted(jobKey int64)
	OutputEntry(e *tracer.Entry) error
}

// Current is the currently selected output method.
var Current Method = &Text{}

// Stream contains the output stream.  By default this os.Stdout, however, for testing it can be set to a byte buffer for instance.
var Stream io.Writer = os.Stdout

func deployOutput(res []deployment.Response) DeployOutput {
	out := DeployOutput{Workflows: make([]DeployedWorkflowOutput, 0, len(res))}
	for _, r := range res {
		out.Workflows = append(out.Workflows, DeployedWorkflowOutput{WorkflowKey: r.Key, BpmnProcessID: r.BpmnProcessID, Version: r.Version})
	}
	return out
}

func responseOutput(res *response.Response) (ResponseOutput, error) {
	out := ResponseOutput{
		Partition: res.PartitionID,
		Position:  res.Position,
		Key:       res.Key,
		Intent:    model.IntentName(res.ValueType, res.Intent),
		Rejected:  res.IsRejection(),
	}
	if out.Rejected {
		out.RejectionType = res.RejectionType.String()
		out.RejectionReason = res.RejectionReason
	}
	if res.ValueType != model.ValueTypeWorkflowInstance {
		return out, nil
	}
	wi, err := res.WorkflowInstance()
	if err != nil {
		return out, fmt.Errorf("render response: %w", err)
	}
	payload, err := vars.Decode(context.Background(), wi.Payload)
	if err != nil {
		return out, fmt.Errorf("render response: %w", err)
	}
	out.Value = map[string]any{
		"bpmnProcessId":       wi.BpmnProcessID,
		"version":             wi.Version,
		"workflowKey":         wi.WorkflowKey,
		"workflowInstanceKey": wi.WorkflowInstanceKey,
		"payload":             payload,
	}
	if wi.ActivityID != "" {
		out.Value["activityId"] = wi.ActivityID
	}
	return out, nil
}
