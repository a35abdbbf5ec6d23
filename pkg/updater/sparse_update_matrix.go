package updater

import (
	"fmt"

	"github.com/vplabeler/core/pkg/consistenthash"
	"github.com/vplabeler/core/pkg/vperrors"
	"github.com/vplabeler/core/pkg/vprecord"
)

// SparseColumn is one column of a sparse update matrix: only the rows with
// non-zero probability are listed, each carrying its own patch and
// probability.
type SparseColumn struct {
	Rows          []vprecord.Fields
	Probabilities []float64
}

// SparseUpdateMatrixImpl is column-major: each column owns its own row list,
// unlike the dense matrix's shared row set. Otherwise identical to
// UpdateMatrixImpl modulo the two-level indexing.
type SparseUpdateMatrixImpl struct {
	matcher               ColumnMatcher
	columns               []SparseColumn
	rowHashings           []*consistenthash.DistributedConsistentHashing
	randomSeed            string
	passThroughNonMatches bool
}

// NewSparseUpdateMatrix validates each column's shape (len(Rows) ==
// len(Probabilities)) and builds one DistributedConsistentHashing per
// column over that column's own rows.
func NewSparseUpdateMatrix(matcher ColumnMatcher, columns []SparseColumn, randomSeed string, passThroughNonMatches bool) (*SparseUpdateMatrixImpl, error) {
	hashings := make([]*consistenthash.DistributedConsistentHashing, len(columns))

	for c, col := range columns {
		if len(col.Rows) != len(col.Probabilities) {
			return nil, &vperrors.BuildError{
				Component: "SparseUpdateMatrix",
				Err:       fmt.Errorf("%w: column %d has %d rows and %d probabilities", vperrors.ErrInvalidArgument, c, len(col.Rows), len(col.Probabilities)),
			}
		}

		choices := make([]consistenthash.Choice, len(col.Rows))
		for r := range col.Rows {
			choices[r] = consistenthash.Choice{ID: int32(r), Probability: col.Probabilities[r]}
		}
		h, err := consistenthash.Build(choices)
		if err != nil {
			return nil, &vperrors.BuildError{Component: "SparseUpdateMatrix", Err: fmt.Errorf("column %d: %w", c, err)}
		}
		hashings[c] = h
	}

	return &SparseUpdateMatrixImpl{
		matcher:               matcher,
		columns:               columns,
		rowHashings:           hashings,
		randomSeed:            randomSeed,
		passThroughNonMatches: passThroughNonMatches,
	}, nil
}

func (u *SparseUpdateMatrixImpl) Update(event *vprecord.Event) error {
	column, row, err := SelectFromMatrix(u.matcher, u.rowHashings, u.randomSeed, event)
	if err != nil {
		return err
	}
	if row == NoMatch {
		if u.passThroughNonMatches {
			return nil
		}
		return fmt.Errorf("%w: no column matched and pass_through_non_matches is false", vperrors.ErrInvalidArgument)
	}

	event.MergeFrom(u.columns[column].Rows[row])
	return nil
}
