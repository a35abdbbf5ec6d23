package vpfilter

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/vplabeler/core/pkg/vperrors"
	"github.com/vplabeler/core/pkg/vprecord"
)

// ExprFilter evaluates a compiled expr-lang boolean expression against an
// event's Fields. Compilation happens once at build time (NewExprFilter);
// Matches only runs the already-compiled program, the same split the
// teacher's ExprConditionEvaluator/ConditionCache makes between
// CompileAndCache and Evaluate.
type ExprFilter struct {
	program *vm.Program
	source  string
}

// NewExprFilter compiles expression once. The expression is evaluated with
// the event's Fields exposed as the environment, so conditions are written
// against dotted field names directly, e.g.
// `input.person_country_code == "US"`.
func NewExprFilter(expression string) (*ExprFilter, error) {
	program, err := expr.Compile(expression, expr.AsBool())
	if err != nil {
		return nil, &vperrors.BuildError{
			Component: "ExprFilter",
			Err:       fmt.Errorf("%w: compile %q: %v", vperrors.ErrInvalidArgument, expression, err),
		}
	}
	return &ExprFilter{program: program, source: expression}, nil
}

// Matches runs the compiled program against event.Fields. A runtime
// evaluation error (e.g. a referenced field absent in a way expr cannot
// treat as nil) is treated as "no match" rather than propagated, consistent
// with the core's invariant that conditions resolve to a boolean, never an
// error, once built.
func (f *ExprFilter) Matches(event *vprecord.Event) bool {
	out, err := expr.Run(f.program, map[string]any(event.Fields))
	if err != nil {
		return false
	}
	b, _ := out.(bool)
	return b
}

// Source returns the original expression, for diagnostics.
func (f *ExprFilter) Source() string {
	return f.source
}
