package expression

import (
	"context"
	"fmt"

	"github.com/rtenhove/zeebe/common/logx"
	errors2 "github.com/rtenhove/zeebe/server/errors"
)

// Variable contains metadata about a variable.
type Variable struct {
	Name string
}

// Engine represents an expression engine implementation.
type Engine interface {
	// Eval evaluates an expression given a set of variables and returns a generic type.
	Eval(ctx context.Context, expr string, vars map[string]interface{}) (interface{}, error)
	// Check reports whether an expression compiles.
	Check(ctx context.Context, expr string) error
	// GetVariables returns a list of variables mentioned in an expression
	GetVariables(ctx context.Context, expr string) ([]Variable, error)
}

// Eval evaluates an expression given a set of variables and returns a generic type.
func Eval[T any](ctx context.Context, eng Engine, exp string, vars map[string]interface{}) (retval T, reterr error) { //nolint:ireturn
	defer func() {
		if err := recover(); err != nil {
			retval = *new(T)
			reterr = logx.Err(ctx, "panic: evaluate expression", &errors2.ErrWorkflowFatal{Err: fmt.Errorf("%v", err)}, "expression", exp)
		}
	}()
	res, err := eng.Eval(ctx, exp, vars)
	if err != nil {
		return *new(T), fmt.Errorf("evaluate expression: %w", err)
	}
	ret, ok := res.(T)
	if !ok {
		return *new(T), fmt.Errorf("evaluate expression: result %v is %T, expected %T", res, res, *new(T))
	}
	return ret, nil
}

// GetVariables returns a list of variables mentioned in an expression
func GetVariables(ctx context.Context, eng Engine, exp string) ([]Variable, error) {
	res, err := eng.GetVariables(ctx, exp)
	if err != nil {
		return nil, fmt.Errorf("get expression variables: %w", err)
	}
	return res, nil
}
