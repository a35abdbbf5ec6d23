package updater

import (
	"fmt"

	"github.com/vplabeler/core/pkg/vperrors"
	"github.com/vplabeler/core/pkg/vprecord"
)

// Assignment is one source-to-target field copy. SourceType/TargetType are
// optional declared scalar kinds; when both are non-empty, build rejects a
// mismatch between them.
type Assignment struct {
	Source     vprecord.FieldPath
	Target     vprecord.FieldPath
	SourceType string
	TargetType string
}

// ConditionalAssignmentImpl copies a fixed list of source fields to target
// fields when a single condition matches. Build validates the condition, a
// non-empty assignment list, that every source/target path resolves to at
// least one non-empty segment, and that a declared source/target type pair
// agrees — this package's Event representation has no static per-path type
// to check when no type is declared, so an undeclared pair is accepted.
type ConditionalAssignmentImpl struct {
	condition   Condition
	assignments []Assignment
}

// NewConditionalAssignment requires a condition and at least one
// assignment, each with resolvable source/target paths and, if both sides
// declare a type, matching types.
func NewConditionalAssignment(condition Condition, assignments []Assignment) (*ConditionalAssignmentImpl, error) {
	if condition == nil {
		return nil, &vperrors.BuildError{
			Component: "ConditionalAssignment",
			Err:       fmt.Errorf("%w: missing condition", vperrors.ErrInvalidArgument),
		}
	}
	if len(assignments) == 0 {
		return nil, &vperrors.BuildError{
			Component: "ConditionalAssignment",
			Err:       fmt.Errorf("%w: empty assignment list", vperrors.ErrInvalidArgument),
		}
	}
	for _, a := range assignments {
		if !a.Source.Resolvable() {
			return nil, &vperrors.BuildError{
				Component: "ConditionalAssignment",
				Err:       fmt.Errorf("%w: unresolvable source field %q", vperrors.ErrInvalidArgument, a.Source),
			}
		}
		if !a.Target.Resolvable() {
			return nil, &vperrors.BuildError{
				Component: "ConditionalAssignment",
				Err:       fmt.Errorf("%w: unresolvable target field %q", vperrors.ErrInvalidArgument, a.Target),
			}
		}
		if a.SourceType != "" && a.TargetType != "" && a.SourceType != a.TargetType {
			return nil, &vperrors.BuildError{
				Component: "ConditionalAssignment",
				Err: fmt.Errorf("%w: source field %q is %s but target field %q is %s",
					vperrors.ErrInvalidArgument, a.Source, a.SourceType, a.Target, a.TargetType),
			}
		}
	}
	return &ConditionalAssignmentImpl{condition: condition, assignments: assignments}, nil
}

// Update never fails at runtime: if the condition doesn't match, or a
// source field is unset, that assignment is simply skipped.
func (u *ConditionalAssignmentImpl) Update(event *vprecord.Event) error {
	if !u.condition.Matches(event) {
		return nil
	}

	for _, a := range u.assignments {
		v, ok := a.Source.Get(event.Fields)
		if !ok {
			continue
		}
		a.Target.Set(event.Fields, v)
	}

	return nil
}
