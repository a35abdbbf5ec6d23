package vpfilter

import (
	"fmt"

	"github.com/vplabeler/core/pkg/fingerprint"
	"github.com/vplabeler/core/pkg/vperrors"
	"github.com/vplabeler/core/pkg/vpio"
	"github.com/vplabeler/core/pkg/vprecord"
)

// HashFieldMaskMatcher matches events against a set of column templates by
// projecting both the template and the event through a shared field mask,
// canonically encoding the projection, and comparing fingerprints — an
// O(1) lookup instead of FieldFiltersMatcher's linear scan, at the cost of
// requiring the projected templates to be pairwise distinct at build time.
type HashFieldMaskMatcher struct {
	mask   []vprecord.FieldPath
	byHash map[uint64]int
}

// NewHashFieldMaskMatcher projects each template through mask, fingerprints
// the canonical encoding, and indexes it. A hash collision between two
// distinct templates is a build error (invariant: hash-field-mask
// uniqueness).
func NewHashFieldMaskMatcher(templates []vprecord.Fields, mask []vprecord.FieldPath) (*HashFieldMaskMatcher, error) {
	m := &HashFieldMaskMatcher{
		mask:   mask,
		byHash: make(map[uint64]int, len(templates)),
	}

	for i, tmpl := range templates {
		h := m.hashOf(tmpl)
		if _, exists := m.byHash[h]; exists {
			return nil, &vperrors.BuildError{
				Component: "HashFieldMaskMatcher",
				Err:       fmt.Errorf("%w: projected templates hash-collide at index %d", vperrors.ErrInvalidArgument, i),
			}
		}
		m.byHash[h] = i
	}

	return m, nil
}

func (m *HashFieldMaskMatcher) hashOf(fields vprecord.Fields) uint64 {
	projected := vpio.ProjectFieldMask(fields, m.mask)
	return fingerprint.Fingerprint64(vpio.CanonicalEncode(projected))
}

// Match projects event.Fields through the same mask and looks up its
// fingerprint; a miss returns NoMatch.
func (m *HashFieldMaskMatcher) Match(event *vprecord.Event) int {
	h := m.hashOf(event.Fields)
	idx, ok := m.byHash[h]
	if !ok {
		return NoMatch
	}
	return idx
}
