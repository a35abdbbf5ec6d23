// Package multiplicity implements the clone-count computation and
// per-clone fingerprint re-derivation a branch node uses when its action is
// a multiplicity config rather than an updater list.
package multiplicity

import (
	"fmt"
	"math"

	"github.com/vplabeler/core/pkg/fingerprint"
	"github.com/vplabeler/core/pkg/vperrors"
	"github.com/vplabeler/core/pkg/vprecord"
)

const twoPow64 = 18446744073709551616.0

// MultiplicityImpl computes a per-event clone count and derives each
// clone's acting fingerprint.
type MultiplicityImpl struct {
	expectedConstant *float64
	expectedField    vprecord.FieldPath
	maxValue         float64
	capAtMax         bool
	personIndexField vprecord.FieldPath
	randomSeed       string
}

// Option configures either an expected_multiplicity constant or an
// expected_multiplicity_field path; exactly one must be supplied.
type Option func(*MultiplicityImpl)

// WithExpectedConstant sets a fixed expected multiplicity.
func WithExpectedConstant(v float64) Option {
	return func(m *MultiplicityImpl) { m.expectedConstant = &v }
}

// WithExpectedField sets a field path the expected multiplicity is read
// from at apply time.
func WithExpectedField(path vprecord.FieldPath) Option {
	return func(m *MultiplicityImpl) { m.expectedField = path }
}

// New builds a multiplicity config. Build fails unless exactly one of
// WithExpectedConstant/WithExpectedField is supplied and personIndexField is
// non-empty.
func New(maxValue float64, capAtMax bool, personIndexField vprecord.FieldPath, randomSeed string, opts ...Option) (*MultiplicityImpl, error) {
	m := &MultiplicityImpl{
		maxValue:         maxValue,
		capAtMax:         capAtMax,
		personIndexField: personIndexField,
		randomSeed:       randomSeed,
	}
	for _, o := range opts {
		o(m)
	}

	if len(personIndexField) == 0 {
		return nil, &vperrors.BuildError{
			Component: "Multiplicity",
			Err:       fmt.Errorf("%w: person_index_field is required", vperrors.ErrInvalidArgument),
		}
	}
	if (m.expectedConstant == nil) == (m.expectedField == nil) {
		return nil, &vperrors.BuildError{
			Component: "Multiplicity",
			Err:       fmt.Errorf("%w: exactly one of expected_multiplicity or expected_multiplicity_field is required", vperrors.ErrInvalidArgument),
		}
	}

	return m, nil
}

// PersonIndexField exposes the configured field path so the branch-node
// apply loop can write person_index = 0 on the non-cloning path.
func (m *MultiplicityImpl) PersonIndexField() vprecord.FieldPath {
	return m.personIndexField
}

// ComputeEventMultiplicity returns the number of clones this event should
// produce.
func (m *MultiplicityImpl) ComputeEventMultiplicity(event *vprecord.Event) (int32, error) {
	expected, err := m.expectedMultiplicity(event)
	if err != nil {
		return 0, err
	}

	if expected > m.maxValue {
		if !m.capAtMax {
			return 0, fmt.Errorf("%w: expected multiplicity %f exceeds max %f", vperrors.ErrOutOfRange, expected, m.maxValue)
		}
		expected = m.maxValue
	}
	if expected < 0 {
		return 0, fmt.Errorf("%w: expected multiplicity %f is negative", vperrors.ErrOutOfRange, expected)
	}

	eventSeed := fingerprint.FingerprintString(m.randomSeed + fingerprint.Decimal(event.ActingFingerprint))

	floorPart := math.Floor(expected)
	frac := expected - floorPart
	threshold := uint64(frac * twoPow64)

	count := int32(floorPart)
	if eventSeed < threshold {
		count++
	}
	return count, nil
}

func (m *MultiplicityImpl) expectedMultiplicity(event *vprecord.Event) (float64, error) {
	if m.expectedConstant != nil {
		return *m.expectedConstant, nil
	}

	v, ok := m.expectedField.Get(event.Fields)
	if !ok {
		return 0, fmt.Errorf("%w: expected_multiplicity_field %s is unset", vperrors.ErrInvalidArgument, m.expectedField)
	}

	switch t := v.(type) {
	case float64:
		return t, nil
	case int64:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	default:
		return 0, fmt.Errorf("%w: expected_multiplicity_field %s is not numeric", vperrors.ErrInvalidArgument, m.expectedField)
	}
}

// GetFingerprintForIndex re-derives the acting fingerprint for clone index.
// Index 0 always returns input unchanged.
func (m *MultiplicityImpl) GetFingerprintForIndex(input uint64, index int32) uint64 {
	if index == 0 {
		return input
	}
	return fingerprint.FingerprintString(fmt.Sprintf("%s-clone-%d-%d", m.randomSeed, index, input))
}
