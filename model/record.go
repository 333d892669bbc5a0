package model

import "fmt"

// NoKey marks an absent key, for example an activity instance key when no activity is open.
const NoKey int64 = -1

// RecordType distinguishes commands from events and rejections.
type RecordType uint8

const (
	RecordTypeCommand          RecordType = iota // RecordTypeCommand is a request to change state.
	RecordTypeEvent                              // RecordTypeEvent is a fact that state changed.
	RecordTypeCommandRejection                   // RecordTypeCommandRejection is a refused command.
)

func (t RecordType) String() string {
	switch t {
	case RecordTypeCommand:
		return "COMMAND"
	case RecordTypeEvent:
		return "EVENT"
	case RecordTypeCommandRejection:
		return "COMMAND_REJECTION"
	default:
		return fmt.Sprintf("RecordType(%d)", uint8(t))
	}
}

// ValueType is the category of a record value.
type ValueType uint8

const (
	ValueTypeWorkflowInstance ValueType = iota + 1 // ValueTypeWorkflowInstance carries a WorkflowInstanceRecord.
	ValueTypeJob                                   // ValueTypeJob carries a JobRecord.
	ValueTypeIncident                              // ValueTypeIncident carries an IncidentRecord.
)

func (t ValueType) String() string {
	switch t {
	case ValueTypeWorkflowInstance:
		return "WORKFLOW_INSTANCE"
	case ValueTypeJob:
		return "JOB"
	case ValueTypeIncident:
		return "INCIDENT"
	default:
		return fmt.Sprintf("ValueType(%d)", uint8(t))
	}
}

// RejectionType classifies why a command was rejected.
type RejectionType uint8

const (
	RejectionNone            RejectionType = iota // RejectionNone is the zero value for records that are not rejections.
	RejectionBadValue                             // RejectionBadValue means the command referenced something that does not exist.
	RejectionNotApplicable                        // RejectionNotApplicable means the command does not apply to the current state.
	RejectionProcessingError                      // RejectionProcessingError means the command could not be processed.
)

func (t RejectionType) String() string {
	switch t {
	case RejectionNone:
		return "NULL_VAL"
	case RejectionBadValue:
		return "BAD_VALUE"
	case RejectionNotApplicable:
		return "NOT_APPLICABLE"
	case RejectionProcessingError:
		return "PROCESSING_ERROR"
	default:
		return fmt.Sprintf("RejectionType(%d)", uint8(t))
	}
}

// Metadata travels with every record.
type Metadata struct {
	RequestID       int64             `msgpack:"requestId"`
	RequestStreamID int32             `msgpack:"requestStreamId"`
	IncidentKey     int64             `msgpack:"incidentKey"`
	RejectionType   RejectionType     `msgpack:"rejectionType"`
	RejectionReason string            `msgpack:"rejectionReason,omitempty"`
	Trace           map[string]string `msgpack:"trace,omitempty"`
}

// HasIncidentKey reports whether the record was written while resolving an incident.
func (m Metadata) HasIncidentKey() bool {
	return m.IncidentKey > 0
}

// HasRequest reports whether the record originates from a client request that expects a response.
func (m Metadata) HasRequest() bool {
	return m.RequestStreamID > 0
}

// NewMetadata returns metadata with every key unset.
func NewMetadata() Metadata {
	return Metadata{RequestID: NoKey, RequestStreamID: -1, IncidentKey: NoKey}
}

// Value is implemented by the typed record values.
type Value interface {
	ValueType() ValueType
}

// Record is a single entry in a partition log.
type Record struct {
	Position       int64
	SourcePosition int64
	Key            int64
	RecordType     RecordType
	ValueType      ValueType
	Intent         Intent
	Metadata       Metadata
	Value          Value
}

// WorkflowInstance returns the workflow instance value of the record, or nil.
func (r *Record) WorkflowInstance() *WorkflowInstanceRecord {
	v, _ := r.Value.(*WorkflowInstanceRecord)
	return v
}

// Job returns the job value of the record, or nil.
func (r *Record) Job() *JobRecord {
	v, _ := r.Value.(*JobRecord)
	return v
}

// Incident returns the incident value of the record, or nil.
func (r *Record) Incident() *IncidentRecord {
	v, _ := r.Value.(*IncidentRecord)
	return v
}

// IntentName renders the intent of the record in the vocabulary of its value type.
func (r *Record) IntentName() string {
	return IntentName(r.ValueType, r.Intent)
}

func (r *Record) String() string {
	return fmt.Sprintf("%s %s %s key=%d pos=%d", r.RecordType, r.ValueType, r.IntentName(), r.Key, r.Position)
}
