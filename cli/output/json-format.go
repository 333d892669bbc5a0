package output

// DeployedWorkflowOutput is the output format for a deployed workflow.
type DeployedWorkflowOutput struct {
	WorkflowKey   int64  `json:"workflowKey"`
	BpmnProcessID string `json:"bpmnProcessId"`
	Version       int32  `json:"version"`
}

// DeployOutput is the output format for a deployment.
type DeployOutput struct {
	Workflows []DeployedWorkflowOutput `json:"workflows"`
}

// ResponseOutput is the output format for the answer of a partition processor.
type ResponseOutput struct {
	Partition       int32          `json:"partition"`
	Position        int64          `json:"position"`
	Key             int64          `json:"key"`
	Intent          string         `json:"intent"`
	Rejected        bool           `json:"rejected"`
	RejectionType   string         `json:"rejectionType,omitempty"`
	RejectionReason string         `json:"rejectionReason,omitempty"`
	Value           map[string]any `json:"value,omitempty"`
}

// JobCompletedOutput is the output format for a completed job.
type JobCompletedOutput struct {
	JobKey int64 `json:"jobKey"`
}
