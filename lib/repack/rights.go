package repack

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// RightsContext is the evaluation environment for a content-admission
// expression: one content index checked against its ticket right and the
// title's DLC-ness (§4.7 "DLC titles validated per-content against the
// ticket's rights bitmap").
type RightsContext struct {
	Index     int  `expr:"index"`
	HasRight  bool `expr:"has_right"`
	IsDLC     bool `expr:"is_dlc"`
	Legit     bool `expr:"legit"`
}

// RightsPolicy compiles a content-admission expression, the same way the
// teacher compiles a scrape filter expression: a boolean predicate over a
// small typed environment, evaluated once per candidate.
type RightsPolicy struct {
	program    *vm.Program
	expression string
}

// DefaultRightsExpression admits a content if it carries its own ticket
// right, or the title isn't DLC (DLC is the only title class gated by the
// per-content rights bitmap), or the caller isn't running in "legit" mode.
const DefaultRightsExpression = "has_right or not is_dlc or not legit"

// NewRightsPolicy compiles expression into a RightsPolicy.
func NewRightsPolicy(expression string) (*RightsPolicy, error) {
	if expression == "" {
		expression = DefaultRightsExpression
	}
	program, err := expr.Compile(expression, expr.Env(RightsContext{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("repack: invalid rights expression: %w", err)
	}
	return &RightsPolicy{program: program, expression: expression}, nil
}

// Expression returns the original expression string.
func (p *RightsPolicy) Expression() string { return p.expression }

// Admit reports whether ctx's content should be included in the repackage.
func (p *RightsPolicy) Admit(ctx RightsContext) (bool, error) {
	result, err := expr.Run(p.program, ctx)
	if err != nil {
		return false, fmt.Errorf("repack: rights evaluation failed: %w", err)
	}
	return result.(bool), nil
}
