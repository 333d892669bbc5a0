package model

import "fmt"

// Intent is the lifecycle step a record describes. Its meaning depends on the record's ValueType.
type Intent uint8

// Workflow instance intents.
const (
	WorkflowInstanceCreate Intent = iota
	WorkflowInstanceCreated
	WorkflowInstanceStartEventOccurred
	WorkflowInstanceEndEventOccurred
	WorkflowInstanceSequenceFlowTaken
	WorkflowInstanceGatewayActivated
	WorkflowInstanceActivityReady
	WorkflowInstanceActivityActivated
	WorkflowInstanceActivityCompleting
	WorkflowInstanceActivityCompleted
	WorkflowInstanceActivityTerminated
	WorkflowInstanceCompleted
	WorkflowInstanceCancel
	WorkflowInstanceCanceled
	WorkflowInstanceUpdatePayload
	WorkflowInstancePayloadUpdated
	WorkflowInstanceCatchEventEntering
	WorkflowInstanceCatchEventEntered
	WorkflowInstanceCatchEventOccurred
)

// Job intents.
const (
	JobCreate Intent = iota
	JobCreated
	JobActivated
	JobComplete
	JobCompleted
	JobFail
	JobFailed
	JobCancel
	JobCanceled
)

// Incident intents.
const (
	IncidentCreate Intent = iota
	IncidentCreated
	IncidentResolve
	IncidentResolved
	IncidentResolveFailed
)

var workflowInstanceIntentNames = [...]string{
	"CREATE", "CREATED", "START_EVENT_OCCURRED", "END_EVENT_OCCURRED", "SEQUENCE_FLOW_TAKEN",
	"GATEWAY_ACTIVATED", "ACTIVITY_READY", "ACTIVITY_ACTIVATED", "ACTIVITY_COMPLETING",
	"ACTIVITY_COMPLETED", "ACTIVITY_TERMINATED", "COMPLETED", "CANCEL", "CANCELED",
	"UPDATE_PAYLOAD", "PAYLOAD_UPDATED", "CATCH_EVENT_ENTERING", "CATCH_EVENT_ENTERED",
	"CATCH_EVENT_OCCURRED",
}

var jobIntentNames = [...]string{
	"CREATE", "CREATED", "ACTIVATED", "COMPLETE", "COMPLETED", "FAIL", "FAILED", "CANCEL", "CANCELED",
}

var incidentIntentNames = [...]string{
	"CREATE", "CREATED", "RESOLVE", "RESOLVED", "RESOLVE_FAILED",
}

// IntentName renders an intent in the vocabulary of a value type.
func IntentName(vt ValueType, i Intent) string {
	var names []string
	switch vt {
	case ValueTypeWorkflowInstance:
		names = workflowInstanceIntentNames[:]
	case ValueTypeJob:
		names = jobIntentNames[:]
	case ValueTypeIncident:
		names = incidentIntentNames[:]
	}
	if int(i) < len(names) {
		return names[i]
	}
	return fmt.Sprintf("Intent(%d)", uint8(i))
}

// ParseIntent is the reverse of IntentName.
func ParseIntent(vt ValueType, name string) (Intent, error) {
	for i := 0; i < 32; i++ {
		if IntentName(vt, Intent(i)) == name {
			return Intent(i), nil
		}
	}
	return 0, fmt.Errorf("unknown %s intent %q", vt, name)
}
