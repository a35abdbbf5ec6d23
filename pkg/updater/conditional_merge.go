package updater

import (
	"fmt"

	"github.com/vplabeler/core/pkg/vperrors"
	"github.com/vplabeler/core/pkg/vprecord"
)

// Condition is declared locally so ConditionalMergeImpl and
// ConditionalAssignmentImpl don't need to import pkg/vpfilter directly;
// any vpfilter.Filter satisfies this structurally.
type Condition interface {
	Matches(event *vprecord.Event) bool
}

// ConditionalMergeEntry pairs one condition with the patch to merge in when
// it matches.
type ConditionalMergeEntry struct {
	Condition Condition
	Update    vprecord.Fields
}

// ConditionalMergeImpl merges the update of the first matching entry, in
// build order, into the event.
type ConditionalMergeImpl struct {
	entries               []ConditionalMergeEntry
	passThroughNonMatches bool
}

// NewConditionalMerge requires at least one entry.
func NewConditionalMerge(entries []ConditionalMergeEntry, passThroughNonMatches bool) (*ConditionalMergeImpl, error) {
	if len(entries) == 0 {
		return nil, &vperrors.BuildError{
			Component: "ConditionalMerge",
			Err:       fmt.Errorf("%w: no entries", vperrors.ErrInvalidArgument),
		}
	}
	return &ConditionalMergeImpl{entries: entries, passThroughNonMatches: passThroughNonMatches}, nil
}

func (u *ConditionalMergeImpl) Update(event *vprecord.Event) error {
	for _, e := range u.entries {
		if e.Condition.Matches(event) {
			event.MergeFrom(e.Update)
			return nil
		}
	}

	if u.passThroughNonMatches {
		return nil
	}
	return fmt.Errorf("%w: no condition matched and pass_through_non_matches is false", vperrors.ErrInvalidArgument)
}
