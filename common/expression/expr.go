package expression

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"
	errors2 "github.com/rtenhove/zeebe/server/errors"
)

// ExprEngine is an implementation of the expr-lang expression engine for gateway conditions.
// Payload references are written as JSON paths (`$.order.total > 100`).
type ExprEngine struct {
	mx       sync.Mutex
	programs map[string]*vm.Program
}

// NewExprEngine creates an expression engine with an empty program cache.
func NewExprEngine() *ExprEngine {
	return &ExprEngine{programs: make(map[string]*vm.Program)}
}

// Eval takes a context, a condition and a payload document. It returns the result of the evaluation.
// Compiled programs are cached per condition text.
// A condition that does not compile is returned wrapped as an ErrWorkflowFatal.
func (e *ExprEngine) Eval(ctx context.Context, exp string, vars map[string]interface{}) (interface{}, error) {
	exp = strings.TrimSpace(exp)
	if len(exp) == 0 {
		return nil, nil
	}
	prg, err := e.compile(exp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", err, &errors2.ErrWorkflowFatal{Err: err})
	}
	if vars == nil {
		vars = map[string]interface{}{}
	}
	res, err := expr.Run(prg, vars)
	if err != nil {
		return nil, fmt.Errorf("evaluate expression: %w", err)
	}
	return res, nil
}

// Check compiles a condition without evaluating it.
func (e *ExprEngine) Check(_ context.Context, exp string) error {
	if _, err := e.compile(strings.TrimSpace(exp)); err != nil {
		return fmt.Errorf("check expression %q: %w", exp, err)
	}
	return nil
}

// GetVariables returns the top level payload properties a condition reads.
func (e *ExprEngine) GetVariables(_ context.Context, exp string) ([]Variable, error) {
	exp = strings.TrimSpace(exp)
	if len(exp) == 0 {
		return nil, nil
	}
	c, err := parser.Parse(rewritePaths(exp))
	if err != nil {
		return nil, fmt.Errorf("get variables failed to parse expression %w", err)
	}

	g := &exprVariableWalker{v: make([]Variable, 0)}
	ast.Walk(&c.Node, g)
	return g.v, nil
}

func (e *ExprEngine) compile(exp string) (*vm.Program, error) {
	e.mx.Lock()
	defer e.mx.Unlock()
	if e.programs == nil {
		e.programs = make(map[string]*vm.Program)
	}
	if p, ok := e.programs[exp]; ok {
		return p, nil
	}
	p, err := expr.Compile(rewritePaths(exp), expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile expression: %w", err)
	}
	e.programs[exp] = p
	return p, nil
}

// rewritePaths turns JSON path payload references into expr identifiers.
// `$.a.b` becomes `a.b` and `$['a b']` becomes `$env['a b']`. String literals are left alone.
func rewritePaths(exp string) string {
	var sb strings.Builder
	var quote byte
	for i := 0; i < len(exp); i++ {
		c := exp[i]
		if quote != 0 {
			sb.WriteByte(c)
			if c == '\\' && i+1 < len(exp) {
				i++
				sb.WriteByte(exp[i])
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch {
		case c == '"' || c == '\'':
			quote = c
			sb.WriteByte(c)
		case c == '$' && i+1 < len(exp) && exp[i+1] == '.':
			i++
		case c == '$' && i+1 < len(exp) && exp[i+1] == '[':
			sb.WriteString("$env")
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

type exprVariableWalker struct {
	v []Variable
}

// Visit is called from the visitor to iterate all IdentifierNode types
func (w *exprVariableWalker) Visit(n *ast.Node) {
	switch t := (*n).(type) {
	case *ast.IdentifierNode:
		w.v = append(w.v, Variable{Name: t.Value})
	}
}

// Exit is unused in the variableWalker implementation
func (w *exprVariableWalker) Exit(_ *ast.Node) {}
