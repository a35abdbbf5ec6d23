package updater

import (
	"fmt"
	"math"

	"github.com/vplabeler/core/pkg/fingerprint"
	"github.com/vplabeler/core/pkg/vperrors"
	"github.com/vplabeler/core/pkg/vprecord"
)

const twoPow64 = 18446744073709551616.0

// GeometricShredderImpl probabilistically overwrites a u64 target field
// with a hash derived from a randomness field, collapsing a
// geometric-distributed fraction of inputs onto the same derived value.
type GeometricShredderImpl struct {
	psi             float64
	randomnessField vprecord.FieldPath
	targetField     vprecord.FieldPath
	randomSeed      string
}

// NewGeometricShredder requires psi in [0, 1].
func NewGeometricShredder(psi float64, randomnessField, targetField vprecord.FieldPath, randomSeed string) (*GeometricShredderImpl, error) {
	if psi < 0 || psi > 1 {
		return nil, &vperrors.BuildError{
			Component: "GeometricShredder",
			Err:       fmt.Errorf("%w: psi=%f must be in [0,1]", vperrors.ErrInvalidArgument, psi),
		}
	}
	return &GeometricShredderImpl{psi: psi, randomnessField: randomnessField, targetField: targetField, randomSeed: randomSeed}, nil
}

func (u *GeometricShredderImpl) Update(event *vprecord.Event) error {
	var shredHash uint64

	switch u.psi {
	case 0:
		shredHash = 0
	case 1:
		randomness, ok := asUint64(u.randomnessField.Get(event.Fields))
		if !ok {
			return fmt.Errorf("%w: randomness field %s is unset", vperrors.ErrInvalidArgument, u.randomnessField)
		}
		shredHash = randomness
	default:
		randomness, ok := asUint64(u.randomnessField.Get(event.Fields))
		if !ok {
			return fmt.Errorf("%w: randomness field %s is unset", vperrors.ErrInvalidArgument, u.randomnessField)
		}
		h := fingerprint.FingerprintString(fingerprint.Decimal(randomness))
		fh := float64(h) / twoPow64
		if fh <= 0 {
			fh = math.SmallestNonzeroFloat64
		}
		expHash := -math.Log(fh)
		shredHash = uint64(expHash / -math.Log(u.psi))
	}

	if shredHash == 0 {
		return nil
	}

	target, ok := asUint64(u.targetField.Get(event.Fields))
	if !ok {
		return fmt.Errorf("%w: target field %s is unset", vperrors.ErrInvalidArgument, u.targetField)
	}

	newValue := fingerprint.FingerprintString(fmt.Sprintf("%d-shred-%d-%s", target, shredHash, u.randomSeed))
	u.targetField.Set(event.Fields, newValue)

	return nil
}

func asUint64(v any, ok bool) (uint64, bool) {
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case uint64:
		return t, true
	case int64:
		return uint64(t), true
	case float64:
		// JSON-decoded model/input fields arrive as float64; a u64
		// randomness/target value round-trips exactly up to 2^53 and is
		// truncated toward zero beyond that, same as a narrowing cast.
		return uint64(t), true
	default:
		return 0, false
	}
}
