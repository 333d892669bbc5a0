package keys

// ContextKey is the wrapper for using context keys
type ContextKey string

const (
	// Partition is the key for the partition a record belongs to.
	Partition = "partition"
	// Position is the key for the log position of a record.
	Position = "pos"
	// SourcePosition is the key for the position of the record that caused a record to be written.
	SourcePosition = "src_pos"
	// RecordKey is the key for the key of a record.
	RecordKey = "rec_key"
	// RecordType is the key for the type of a record (command, event, rejection).
	RecordType = "rec_type"
	// ValueType is the key for the value type of a record.
	ValueType = "val_type"
	// Intent is the key for the intent of a record.
	Intent = "intent"
	// ElementID is the key for the workflow element ID.
	ElementID = "el_id"
	// ElementType is the key for the BPMN name for the element.
	ElementType = "el_type"
	// WorkflowInstanceKey is the key for the unique identifier for the executing workflow instance.
	WorkflowInstanceKey = "wi_key"
	// WorkflowKey is the key for the deployed workflow that started the instance.
	WorkflowKey = "wf_key"
	// ProcessID is the key for the BPMN process id.
	ProcessID = "p_id"
	// Version is the key for the deployed workflow version.
	Version = "wf_version"
	// ActivityInstanceKey is the key for the activity instance currently open.
	ActivityInstanceKey = "ai_key"
	// JobKey is the key for a job.
	JobKey = "job_key"
	// JobType is the key for the type of executing job.
	JobType = "job_type"
	// IncidentKey is the key for an incident.
	IncidentKey = "incident_key"
	// Condition is a key for a gateway condition to evaluate.
	Condition = "el_cond"
	// MessageName is the key for the name of a message subscription.
	MessageName = "msg_name"
	// CorrelationKey is the key for the correlation key of a message subscription.
	CorrelationKey = "corr_key"
	// RequestID is the key for the id of a client request.
	RequestID = "req_id"
	// RequestStreamID is the key for the stream a client expects responses on.
	RequestStreamID = "req_stream"
)
