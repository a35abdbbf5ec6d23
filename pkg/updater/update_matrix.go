package updater

import (
	"fmt"

	"github.com/vplabeler/core/pkg/consistenthash"
	"github.com/vplabeler/core/pkg/vperrors"
	"github.com/vplabeler/core/pkg/vprecord"
)

// UpdateMatrixImpl is the dense update matrix: columns are event templates
// matched by a ColumnMatcher, rows are event patches, and
// probabilities[r*C+c] is the chance that column c produces row r.
type UpdateMatrixImpl struct {
	matcher               ColumnMatcher
	rowHashings           []*consistenthash.DistributedConsistentHashing
	rows                  []vprecord.Fields
	randomSeed            string
	passThroughNonMatches bool
}

// NewUpdateMatrix validates that len(probabilities) == len(rows)*columns and
// builds one DistributedConsistentHashing per column.
func NewUpdateMatrix(matcher ColumnMatcher, columns int, rows []vprecord.Fields, probabilities []float64, randomSeed string, passThroughNonMatches bool) (*UpdateMatrixImpl, error) {
	if len(probabilities) != len(rows)*columns {
		return nil, &vperrors.BuildError{
			Component: "UpdateMatrix",
			Err:       fmt.Errorf("%w: probabilities has %d entries, want %d rows * %d columns", vperrors.ErrInvalidArgument, len(probabilities), len(rows), columns),
		}
	}

	hashings := make([]*consistenthash.DistributedConsistentHashing, columns)
	for c := 0; c < columns; c++ {
		choices := make([]consistenthash.Choice, len(rows))
		for r := range rows {
			choices[r] = consistenthash.Choice{ID: int32(r), Probability: probabilities[r*columns+c]}
		}
		h, err := consistenthash.Build(choices)
		if err != nil {
			return nil, &vperrors.BuildError{Component: "UpdateMatrix", Err: fmt.Errorf("column %d: %w", c, err)}
		}
		hashings[c] = h
	}

	return &UpdateMatrixImpl{
		matcher:               matcher,
		rowHashings:           hashings,
		rows:                  rows,
		randomSeed:            randomSeed,
		passThroughNonMatches: passThroughNonMatches,
	}, nil
}

// Update selects a row via SelectFromMatrix and merges it into the event,
// or honors passThroughNonMatches on no match.
func (u *UpdateMatrixImpl) Update(event *vprecord.Event) error {
	_, row, err := SelectFromMatrix(u.matcher, u.rowHashings, u.randomSeed, event)
	if err != nil {
		return err
	}
	if row == NoMatch {
		if u.passThroughNonMatches {
			return nil
		}
		return fmt.Errorf("%w: no column matched and pass_through_non_matches is false", vperrors.ErrInvalidArgument)
	}

	event.MergeFrom(u.rows[row])
	return nil
}
