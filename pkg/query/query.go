// Package query evaluates row conditions against table columns using CEL.
// Every column whose name is a valid identifier is exposed as a variable,
// so a condition like `id == 2 && size(da1) > 0` can select rows.
package query

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/google/cel-go/cel"

	"github.com/kpfaulkner/featuretables/pkg/table"
)

var ErrInvalidCondition = errors.New("invalid condition")

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var reserved = map[string]bool{
	"true": true, "false": true, "null": true, "in": true, "as": true, "break": true,
	"const": true, "continue": true, "else": true, "for": true, "function": true,
	"if": true, "import": true, "let": true, "loop": true, "package": true,
	"namespace": true, "return": true, "var": true, "void": true, "while": true,
}

// Condition is a compiled row condition.
type Condition struct {
	Expression string

	program cel.Program

	// column index for each declared column variable
	columns map[string]int
}

func celType(k table.Kind) *cel.Type {
	switch k {
	case table.Long:
		return cel.IntType
	case table.Bool:
		return cel.BoolType
	case table.Double:
		return cel.DoubleType
	case table.String:
		return cel.StringType
	case table.LongArray:
		return cel.ListType(cel.IntType)
	case table.DoubleArray:
		return cel.ListType(cel.DoubleType)
	}
	return cel.DynType
}

// Usable reports whether a column name can be referenced in a condition.
func Usable(name string) bool {
	return identifier.MatchString(name) && !reserved[name]
}

// Compile builds a condition over the given headers. Variable names in vars
// are declared as dyn and must not clash with column names.
func Compile(headers []*table.Column, expression string, vars map[string]any) (*Condition, error) {
	if expression == "" {
		return nil, fmt.Errorf("empty expression: %w", ErrInvalidCondition)
	}

	c := Condition{Expression: expression, columns: make(map[string]int)}
	var opts []cel.EnvOption
	for i, h := range headers {
		if !Usable(h.Name) {
			continue
		}
		c.columns[h.Name] = i
		opts = append(opts, cel.Variable(h.Name, celType(h.Kind)))
	}
	for k := range vars {
		if _, ok := c.columns[k]; ok {
			return nil, fmt.Errorf("variable %q shadows a column: %w", k, ErrInvalidCondition)
		}
		if !Usable(k) {
			return nil, fmt.Errorf("variable %q is not an identifier: %w", k, ErrInvalidCondition)
		}
		opts = append(opts, cel.Variable(k, cel.DynType))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating CEL environment: %w", err)
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%v: %w", issues.Err(), ErrInvalidCondition)
	}
	if ot := ast.OutputType(); !ot.IsExactType(cel.BoolType) && !ot.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression returns %v, not bool: %w", ot, ErrInvalidCondition)
	}
	p, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("creating CEL program: %w", err)
	}
	c.program = p
	return &c, nil
}

// Matches evaluates the condition against a single row.
func (c *Condition) Matches(row []table.Cell, headers []*table.Column, vars map[string]any) (bool, error) {
	activation := make(map[string]any, len(c.columns)+len(vars))
	for k, v := range vars {
		activation[k] = v
	}
	for name, i := range c.columns {
		activation[name] = cellValue(headers[i].Kind, row[i])
	}

	out, _, err := c.program.Eval(activation)
	if err != nil {
		return false, fmt.Errorf("evaluating %q: %w", c.Expression, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%q returned %v: %w", c.Expression, out.Type(), ErrInvalidCondition)
	}
	return b, nil
}

func cellValue(k table.Kind, cell table.Cell) any {
	switch k {
	case table.Long:
		return cell.L
	case table.Bool:
		return cell.B
	case table.Double:
		return cell.D
	case table.String:
		return cell.S
	case table.LongArray:
		if cell.LA == nil {
			return []int64{}
		}
		return cell.LA
	case table.DoubleArray:
		if cell.DA == nil {
			return []float64{}
		}
		return cell.DA
	}
	return nil
}
