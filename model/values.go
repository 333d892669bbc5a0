package model

// WorkflowInstanceRecord is the value of every workflow instance record.
type WorkflowInstanceRecord struct {
	BpmnProcessID       string `msgpack:"bpmnProcessId"`
	Version             int32  `msgpack:"version"`
	WorkflowKey         int64  `msgpack:"workflowKey"`
	WorkflowInstanceKey int64  `msgpack:"workflowInstanceKey"`
	ActivityID          string `msgpack:"activityId"`
	Payload             []byte `msgpack:"payload"`
}

// ValueType implements Value.
func (*WorkflowInstanceRecord) ValueType() ValueType { return ValueTypeWorkflowInstance }

// Copy returns an independent copy of the record value.
func (w *WorkflowInstanceRecord) Copy() *WorkflowInstanceRecord {
	c := *w
	c.Payload = append([]byte(nil), w.Payload...)
	return &c
}

// JobHeaders link a job back to the workflow instance and activity that created it.
type JobHeaders struct {
	BpmnProcessID             string `msgpack:"bpmnProcessId"`
	WorkflowDefinitionVersion int32  `msgpack:"workflowDefinitionVersion"`
	WorkflowKey               int64  `msgpack:"workflowKey"`
	WorkflowInstanceKey       int64  `msgpack:"workflowInstanceKey"`
	ActivityID                string `msgpack:"activityId"`
	ActivityInstanceKey       int64  `msgpack:"activityInstanceKey"`
}

// JobRecord is the value of job records. Only the fields bridging jobs and workflow instances are modelled.
type JobRecord struct {
	Type          string     `msgpack:"type"`
	Retries       int32      `msgpack:"retries"`
	Payload       []byte     `msgpack:"payload"`
	Headers       JobHeaders `msgpack:"headers"`
	CustomHeaders []byte     `msgpack:"customHeaders,omitempty"`
}

// ValueType implements Value.
func (*JobRecord) ValueType() ValueType { return ValueTypeJob }

// ErrorType classifies an incident.
type ErrorType uint8

const (
	ErrorTypeUnknown         ErrorType = iota // ErrorTypeUnknown is the zero value.
	ErrorTypeConditionError                   // ErrorTypeConditionError is raised when a gateway condition cannot be evaluated or none matched.
	ErrorTypeIOMappingError                   // ErrorTypeIOMappingError is raised when an input or output mapping fails.
	ErrorTypeJobNoRetries                     // ErrorTypeJobNoRetries is raised by the job subsystem.
)

func (e ErrorType) String() string {
	switch e {
	case ErrorTypeConditionError:
		return "CONDITION_ERROR"
	case ErrorTypeIOMappingError:
		return "IO_MAPPING_ERROR"
	case ErrorTypeJobNoRetries:
		return "JOB_NO_RETRIES"
	default:
		return "UNKNOWN"
	}
}

// IncidentRecord is the value of incident records.
type IncidentRecord struct {
	ErrorType            ErrorType `msgpack:"errorType"`
	ErrorMessage         string    `msgpack:"errorMessage"`
	FailureEventPosition int64     `msgpack:"failureEventPosition"`
	BpmnProcessID        string    `msgpack:"bpmnProcessId"`
	WorkflowInstanceKey  int64     `msgpack:"workflowInstanceKey"`
	ActivityID           string    `msgpack:"activityId"`
	ActivityInstanceKey  int64     `msgpack:"activityInstanceKey"`
	JobKey               int64     `msgpack:"jobKey"`
	Payload              []byte    `msgpack:"payload"`
}

// ValueType implements Value.
func (*IncidentRecord) ValueType() ValueType { return ValueTypeIncident }

// NewIncidentFromWorkflowInstanceFailure describes a failure that happened while applying a workflow instance record.
func NewIncidentFromWorkflowInstanceFailure(failed *Record, errorType ErrorType, message string) *IncidentRecord {
	wi := failed.WorkflowInstance()
	return &IncidentRecord{
		ErrorType:            errorType,
		ErrorMessage:         message,
		FailureEventPosition: failed.Position,
		BpmnProcessID:        wi.BpmnProcessID,
		WorkflowInstanceKey:  wi.WorkflowInstanceKey,
		ActivityID:           wi.ActivityID,
		ActivityInstanceKey:  failed.Key,
		JobKey:               NoKey,
		Payload:              append([]byte(nil), wi.Payload...),
	}
}

// UnknownValue holds the encoded value of a record whose value type this processor does not know, such as the
// records of other subsystems sharing the partition. It is kept opaque so that positions stay intact.
type UnknownValue struct {
	Type ValueType
	Raw  []byte
}

// ValueType implements Value.
func (u *UnknownValue) ValueType() ValueType { return u.Type }
