package parser

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rtenhove/zeebe/common/expression"
	"github.com/rtenhove/zeebe/model"
	errors2 "github.com/rtenhove/zeebe/server/errors"
)

func validModel(ctx context.Context, eng expression.Engine, wf *model.Workflow) error {
	if err := validName(wf.BpmnProcessID); err != nil {
		return fmt.Errorf("invalid process id: %w", err)
	}
	if wf.InitialStartEvent == nil {
		return fmt.Errorf("model validation failed: %w", &valError{Err: errors2.ErrInvalidDefinition, Context: "process has no start event"})
	}
	// Sorted so that the reported error does not depend on map order.
	ids := make([]string, 0, len(wf.Elements()))
	for id := range wf.Elements() {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if id == "" {
			return fmt.Errorf("model validation failed: %w", &valError{Err: errors2.ErrInvalidDefinition, Context: "element without id"})
		}
		switch ele := wf.FindFlowElement(id).(type) {
		case *model.ServiceTask:
			if err := validServiceTask(ele); err != nil {
				return fmt.Errorf("invalid service task: %w", err)
			}
		case *model.ExclusiveGateway:
			if err := validGateway(ctx, eng, ele); err != nil {
				return fmt.Errorf("invalid exclusive gateway: %w", err)
			}
		case *model.IntermediateMessageCatchEvent:
			if err := validCatchEvent(ele); err != nil {
				return fmt.Errorf("invalid catch event: %w", err)
			}
		case *model.StartEvent:
			if len(ele.Out) > 1 {
				return fmt.Errorf("start event validation failed: %w", &valError{Err: errors2.ErrInvalidDefinition, Context: ele.ID + " has more than one outgoing flow"})
			}
		}
	}
	return nil
}

type valError struct {
	Err     error
	Context string
}

func (e valError) Error() string {
	return fmt.Sprintf("%s: %s\n", e.Err.Error(), e.Context)
}

//goland:noinspection GoUnnecessarilyExportedIdentifiers
func (e valError) Unwrap() error {
	return e.Err
}

func validServiceTask(j *model.ServiceTask) error {
	if j.TaskType == "" {
		return fmt.Errorf("service task validation failed: %w", &valError{Err: errors2.ErrInvalidDefinition, Context: j.ID + " has no task type"})
	}
	if len(j.Out) > 1 {
		return fmt.Errorf("service task validation failed: %w", &valError{Err: errors2.ErrInvalidDefinition, Context: j.ID + " has more than one outgoing flow"})
	}
	for _, m := range append(append([]model.Mapping{}, j.IO.Inputs...), j.IO.Outputs...) {
		if !strings.HasPrefix(m.Source, "$") || !strings.HasPrefix(m.Target, "$") {
			return fmt.Errorf("service task validation failed: %w", &valError{Err: errors2.ErrInvalidDefinition, Context: fmt.Sprintf("%s mapping %s -> %s is not a json path", j.ID, m.Source, m.Target)})
		}
	}
	return nil
}

func validGateway(ctx context.Context, eng expression.Engine, gw *model.ExclusiveGateway) error {
	if len(gw.Out) > 1 {
		for _, f := range gw.Out {
			if !f.HasCondition() && f != gw.DefaultFlow {
				return fmt.Errorf("gateway validation failed: %w", &valError{Err: errors2.ErrInvalidDefinition, Context: fmt.Sprintf("flow %s of %s needs a condition or must be the default flow", f.ID, gw.ID)})
			}
		}
	}
	for _, f := range gw.ConditionedFlows() {
		if err := eng.Check(ctx, f.Condition); err != nil {
			return fmt.Errorf("gateway validation failed: %w", &valError{Err: errors2.ErrInvalidDefinition, Context: fmt.Sprintf("flow %s condition: %s", f.ID, err)})
		}
	}
	return nil
}

func validCatchEvent(ce *model.IntermediateMessageCatchEvent) error {
	if ce.MessageName == "" {
		return fmt.Errorf("catch event validation failed: %w", &valError{Err: errors2.ErrInvalidDefinition, Context: ce.ID + " has no message name"})
	}
	if !strings.HasPrefix(ce.CorrelationKey, "$") {
		return fmt.Errorf("catch event validation failed: %w", &valError{Err: errors2.ErrInvalidDefinition, Context: ce.ID + " has no correlation key query"})
	}
	if len(ce.Out) > 1 {
		return fmt.Errorf("catch event validation failed: %w", &valError{Err: errors2.ErrInvalidDefinition, Context: ce.ID + " has more than one outgoing flow"})
	}
	return nil
}

var validKeyRe = regexp.MustCompile(`\A[-/_=\.a-zA-Z0-9]+\z`)

// is a NATS compatible name
func validName(name string) error {
	if len(name) == 0 || name[0] == '.' || name[len(name)-1] == '.' {
		return fmt.Errorf("'%s' contains invalid characters when used as a NATS key", name)
	}
	if !validKeyRe.MatchString(name) {
		return fmt.Errorf("'%s' contains invalid characters when used as a NATS key", name)
	}
	return nil
}
