// Package updater implements the six AttributesUpdater variants a branch
// node can run against its event before selecting a child: UpdateMatrix,
// SparseUpdateMatrix, ConditionalMerge, ConditionalAssignment, UpdateTree,
// and GeometricShredder. All six share the SelectFromMatrix helper where
// applicable and the same merge_from/pass-through-non-matches conventions.
package updater

import (
	"fmt"

	"github.com/vplabeler/core/pkg/consistenthash"
	"github.com/vplabeler/core/pkg/fingerprint"
	"github.com/vplabeler/core/pkg/vperrors"
	"github.com/vplabeler/core/pkg/vprecord"
)

// AttributesUpdater is the tagged-dispatch contract every updater variant
// satisfies. Per the design notes, this is a plain interface rather than a
// class hierarchy; callers hold a []AttributesUpdater and invoke Update in
// order.
type AttributesUpdater interface {
	Update(event *vprecord.Event) error
}

// ColumnMatcher is declared locally (rather than importing pkg/vpfilter's
// identical interface) so that pkg/vpfilter.FieldFiltersMatcher and
// pkg/vpfilter.HashFieldMaskMatcher satisfy it structurally, with no import
// cycle between the two packages.
type ColumnMatcher interface {
	Match(event *vprecord.Event) int
}

// NoMatch mirrors vpfilter.NoMatch; duplicated as a constant here so this
// package has no dependency on vpfilter beyond the structural ColumnMatcher
// contract.
const NoMatch = -1

// SelectFromMatrix is the shared helper behind UpdateMatrixImpl and
// SparseUpdateMatrixImpl: ask the matcher for a column, then hash the
// combination of randomSeed and the event's acting fingerprint through that
// column's distribution to get a row.
func SelectFromMatrix(matcher ColumnMatcher, rowHashings []*consistenthash.DistributedConsistentHashing, randomSeed string, event *vprecord.Event) (column, row int, err error) {
	column = matcher.Match(event)
	if column == NoMatch {
		return NoMatch, NoMatch, nil
	}

	if column < 0 || column >= len(rowHashings) {
		return 0, 0, fmt.Errorf("%w: column %d out of range of %d row hashings", vperrors.ErrInternal, column, len(rowHashings))
	}

	seed := randomSeed + fingerprint.Decimal(event.ActingFingerprint)
	row = int(rowHashings[column].Hash(seed))

	return column, row, nil
}
