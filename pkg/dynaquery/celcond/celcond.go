// Package celcond provides query conditions whose match function is a CEL
// expression over two variables: field (the record's value) and operand.
package celcond

import (
	"fmt"

	"github.com/google/cel-go/cel"

	mserrors "github.com/nonibytes/dynaquery/pkg/dynaquery/errors"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/query"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/value"
)

// Condition is a compiled CEL predicate. It is safe for concurrent use.
type Condition struct {
	alias      string
	Expression string
	program    cel.Program
}

// New compiles expression, which must evaluate to a bool.
//
//	celcond.New("DivisibleBy", "int(field) % int(operand) == 0")
func New(alias, expression string) (*Condition, error) {
	if alias == "" {
		return nil, mserrors.NewError(mserrors.ErrQueryParse, "alias can't be empty")
	}
	if expression == "" {
		return nil, mserrors.NewError(mserrors.ErrQueryParse, "expression can't be empty")
	}

	env, err := cel.NewEnv(
		cel.Variable("field", cel.DynType),
		cel.Variable("operand", cel.DynType),
	)
	if err != nil {
		return nil, mserrors.Wrap(mserrors.ErrQueryParse, "create CEL environment", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, mserrors.Wrap(mserrors.ErrQueryParse, fmt.Sprintf("compile %q", expression), issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) && !ast.OutputType().IsExactType(cel.DynType) {
		return nil, mserrors.NewError(mserrors.ErrQueryParse, fmt.Sprintf("expression %q must return bool, not %s", expression, ast.OutputType()))
	}
	p, err := env.Program(ast)
	if err != nil {
		return nil, mserrors.Wrap(mserrors.ErrQueryParse, "create CEL program", err)
	}
	return &Condition{alias: alias, Expression: expression, program: p}, nil
}

// Register compiles expression and adds it to the query condition table.
func Register(alias, expression string) (*Condition, error) {
	c, err := New(alias, expression)
	if err != nil {
		return nil, err
	}
	if err := query.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Condition) Alias() string { return c.alias }

// Match evaluates the expression. Evaluation errors and non-bool results do
// not match.
func (c *Condition) Match(field, operand value.Value) bool {
	ok, err := c.Eval(field, operand)
	return err == nil && ok
}

// Eval evaluates the expression and reports evaluation errors.
func (c *Condition) Eval(field, operand value.Value) (bool, error) {
	out, _, err := c.program.Eval(map[string]any{
		"field":   field.Native(),
		"operand": operand.Native(),
	})
	if err != nil {
		return false, mserrors.Wrap(mserrors.ErrTypeMismatch, "evaluate CEL expression", err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, mserrors.NewError(mserrors.ErrTypeMismatch, fmt.Sprintf("CEL expression returned %T, not bool", out.Value()))
	}
	return b, nil
}
