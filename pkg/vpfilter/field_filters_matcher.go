package vpfilter

import (
	"fmt"

	"github.com/vplabeler/core/pkg/vperrors"
	"github.com/vplabeler/core/pkg/vprecord"
)

// FieldFiltersMatcher returns the index of the first filter, in build
// order, whose Matches(event) is true.
type FieldFiltersMatcher struct {
	filters []Filter
}

// NewFieldFiltersMatcher builds a matcher over filters. Build fails if
// filters is empty.
func NewFieldFiltersMatcher(filters []Filter) (*FieldFiltersMatcher, error) {
	if len(filters) == 0 {
		return nil, &vperrors.BuildError{
			Component: "FieldFiltersMatcher",
			Err:       fmt.Errorf("%w: no filters", vperrors.ErrInvalidArgument),
		}
	}
	return &FieldFiltersMatcher{filters: filters}, nil
}

// Match returns the index of the first matching filter, or NoMatch.
func (m *FieldFiltersMatcher) Match(event *vprecord.Event) int {
	for i, f := range m.filters {
		if f.Matches(event) {
			return i
		}
	}
	return NoMatch
}
