package fingerprint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vplabeler/core/pkg/fingerprint"
)

func TestFingerprint64Deterministic(t *testing.T) {
	a := fingerprint.Fingerprint64([]byte("hello"))
	b := fingerprint.Fingerprint64([]byte("hello"))
	require.Equal(t, a, b)

	c := fingerprint.Fingerprint64([]byte("hello!"))
	assert.NotEqual(t, a, c)
}

func TestFingerprintStringMatchesBytes(t *testing.T) {
	s := "consistent-hashing-seed-1"
	assert.Equal(t, fingerprint.Fingerprint64([]byte(s)), fingerprint.FingerprintString(s))
}

func TestDecimalNoZeroPadding(t *testing.T) {
	assert.Equal(t, "0", fingerprint.Decimal(0))
	assert.Equal(t, "18446744073709551615", fingerprint.Decimal(^uint64(0)))
}
