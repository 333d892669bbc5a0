package errors

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/rtenhove/zeebe/model"
)

var (
	ErrWorkflowNotFound    = errors.New("workflow not found")                        // ErrWorkflowNotFound is returned when a deployed workflow cannot be located.
	ErrFlowNodeNotFound    = errors.New("flow node not found")                       // ErrFlowNodeNotFound is returned when a record references an element id missing from its workflow.
	ErrUnsupportedFlowNode = errors.New("unsupported flow node")                     // ErrUnsupportedFlowNode is returned when a sequence flow targets a node kind without a handler.
	ErrUnknownAspect       = errors.New("unknown bpmn aspect")                       // ErrUnknownAspect is returned when a flow node declares no known aspect.
	ErrMappingFailed       = errors.New("mapping failed")                            // ErrMappingFailed is returned when an input or output mapping cannot be applied.
	ErrCorrelationKey      = errors.New("failed to extract correlation-key")         // ErrCorrelationKey is returned when a correlation key query yields no single scalar.
	ErrRecordNotFound      = errors.New("record not found")                          // ErrRecordNotFound is returned when no record exists at a log position.
	ErrContinuationPending = errors.New("record already has a pending continuation") // ErrContinuationPending is returned when a second continuation is registered for one record.
	ErrInvalidDefinition   = errors.New("invalid workflow definition")               // ErrInvalidDefinition is returned by the BPMN parser.
	ErrLookupUnavailable   = errors.New("workflow lookup unavailable")               // ErrLookupUnavailable is returned when no deployment service answers.
)

// ErrWorkflowFatal signifies that processing a record cannot continue and must not be retried.
type ErrWorkflowFatal struct {
	Err    error
	Record *model.Record
}

// Error returns the string version of the ErrWorkflowFatal error
func (e *ErrWorkflowFatal) Error() string {
	return e.Err.Error()
}

// Unwrap exposes the cause.
func (e *ErrWorkflowFatal) Unwrap() error {
	return e.Err
}

// IsWorkflowFatal is a quick test to check whether the error contains ErrWorkflowFatal
func IsWorkflowFatal(err error) bool {
	var wff *ErrWorkflowFatal
	return errors.As(err, &wff)
}

// Fatal wraps err as an ErrWorkflowFatal for the given record.
func Fatal(rec *model.Record, err error) error {
	return &ErrWorkflowFatal{Err: err, Record: rec}
}

// Fn returns the calling function name
func Fn() string {
	pc := make([]uintptr, 1)
	runtime.Callers(2, pc)
	f := runtime.FuncForPC(pc[0])
	if f == nil {
		return "unknown"
	}
	return fmt.Sprintf("%s()", f.Name())
}
