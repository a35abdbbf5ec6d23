package consistenthash

import (
	"fmt"
	"math"

	"github.com/vplabeler/core/pkg/fingerprint"
	"github.com/vplabeler/core/pkg/vperrors"
)

const (
	// normalizeError is the slack tolerated on build when checking that
	// probabilities sum to 1.
	normalizeError = 0.01

	fullSeedFormat = "consistent-hashing-%s-%d"

	// twoPow64 is 2^64, used to interpret a fingerprint as a uniform
	// float in [0, 1).
	twoPow64 = 18446744073709551616.0
)

// Choice is one weighted option passed to Build.
type Choice struct {
	ID          int32
	Probability float64
}

// DistributedConsistentHashing picks exactly one choice id for a seed
// string, using exponentially-weighted minimum hashing: the choice whose
// -ln(h)/p is smallest wins, where h is the choice's fingerprint-derived
// uniform variate. This gives the classical distributed-consistent-hashing
// property that the chosen bucket for a fixed seed only moves when the
// distribution changes by a comparable amount.
type DistributedConsistentHashing struct {
	ids   []int32
	probs []float64
}

// Build validates and normalizes choices. It fails if choices is empty, any
// probability is negative, or the probabilities do not sum to 1 within
// +/-1%.
func Build(choices []Choice) (*DistributedConsistentHashing, error) {
	if len(choices) == 0 {
		return nil, &vperrors.BuildError{
			Component: "DistributedConsistentHashing",
			Err:       fmt.Errorf("%w: no choices", vperrors.ErrInvalidArgument),
		}
	}

	sum := 0.0
	for _, c := range choices {
		if c.Probability < 0 {
			return nil, &vperrors.BuildError{
				Component: "DistributedConsistentHashing",
				Err:       fmt.Errorf("%w: negative probability for choice %d", vperrors.ErrInvalidArgument, c.ID),
			}
		}
		sum += c.Probability
	}

	if sum < 1-normalizeError || sum > 1+normalizeError {
		return nil, &vperrors.BuildError{
			Component: "DistributedConsistentHashing",
			Err:       fmt.Errorf("%w: probabilities sum to %f, want 1±%.2f", vperrors.ErrInvalidArgument, sum, normalizeError),
		}
	}

	h := &DistributedConsistentHashing{
		ids:   make([]int32, len(choices)),
		probs: make([]float64, len(choices)),
	}
	for i, c := range choices {
		h.ids[i] = c.ID
		h.probs[i] = c.Probability / sum
	}

	return h, nil
}

// Hash returns the choice id with the smallest xi_i = -ln(h_i)/p_i, where
// h_i is the fingerprint64 of "consistent-hashing-{seed}-{choice_id}"
// interpreted as a uniform float in [0, 1). Zero-probability choices always
// yield +Inf and are never chosen. Ties (vanishingly unlikely with real
// fingerprints) favor the earliest choice in build order.
func (h *DistributedConsistentHashing) Hash(seed string) int32 {
	best := math.Inf(1)
	bestIdx := 0

	for i, p := range h.probs {
		var xi float64
		if p == 0 {
			xi = math.Inf(1)
		} else {
			fullSeed := fmt.Sprintf(fullSeedFormat, seed, h.ids[i])
			hv := fingerprint.FingerprintString(fullSeed)
			fh := float64(hv) / twoPow64
			if fh <= 0 {
				fh = math.SmallestNonzeroFloat64
			}
			xi = -math.Log(fh) / p
		}

		if xi < best {
			best = xi
			bestIdx = i
		}
	}

	return h.ids[bestIdx]
}
