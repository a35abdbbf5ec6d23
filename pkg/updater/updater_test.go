package updater_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vplabeler/core/pkg/updater"
	"github.com/vplabeler/core/pkg/vpfilter"
	"github.com/vplabeler/core/pkg/vprecord"
)

func eventWithCode(code string, seed uint64) *vprecord.Event {
	e := vprecord.NewEvent(vprecord.LabelerInput{})
	e.Fields["code"] = code
	e.ActingFingerprint = seed
	return e
}

func TestUpdateMatrixColumnConservation(t *testing.T) {
	matcher, err := vpfilter.NewFieldFiltersMatcher([]vpfilter.Filter{
		mustFilter(t, `code == "RAW_1"`),
		mustFilter(t, `code == "RAW_2"`),
	})
	require.NoError(t, err)

	rows := []vprecord.Fields{
		{"result": "C1"},
		{"result": "C2"},
	}
	probabilities := []float64{0.8, 0.2, 0.2, 0.8} // row-major, 2 rows x 2 cols

	m, err := updater.NewUpdateMatrix(matcher, 2, rows, probabilities, "seed", false)
	require.NoError(t, err)

	counts := map[string]int{}
	const n = 20000
	for i := 0; i < n; i++ {
		e := eventWithCode("RAW_1", uint64(i*2654435761+1))
		require.NoError(t, m.Update(e))
		counts[e.Fields["result"].(string)]++
	}

	assert.InDelta(t, 0.8, float64(counts["C1"])/n, 0.02)
	assert.InDelta(t, 0.2, float64(counts["C2"])/n, 0.02)
}

func TestUpdateMatrixNoMatchFailsWithoutPassThrough(t *testing.T) {
	matcher, _ := vpfilter.NewFieldFiltersMatcher([]vpfilter.Filter{mustFilter(t, `code == "RAW_1"`)})
	m, err := updater.NewUpdateMatrix(matcher, 1, []vprecord.Fields{{"x": int64(1)}}, []float64{1.0}, "seed", false)
	require.NoError(t, err)

	err = m.Update(eventWithCode("OTHER", 1))
	require.Error(t, err)
}

func TestUpdateMatrixNoMatchPassesThrough(t *testing.T) {
	matcher, _ := vpfilter.NewFieldFiltersMatcher([]vpfilter.Filter{mustFilter(t, `code == "RAW_1"`)})
	m, err := updater.NewUpdateMatrix(matcher, 1, []vprecord.Fields{{"x": int64(1)}}, []float64{1.0}, "seed", true)
	require.NoError(t, err)

	e := eventWithCode("OTHER", 1)
	require.NoError(t, m.Update(e))
	_, hasX := e.Fields["x"]
	assert.False(t, hasX)
}

func TestConditionalMergeFirstMatchWins(t *testing.T) {
	cm, err := updater.NewConditionalMerge([]updater.ConditionalMergeEntry{
		{Condition: mustFilter(t, `code == "A"`), Update: vprecord.Fields{"matched": "first"}},
		{Condition: mustFilter(t, `code == "A"`), Update: vprecord.Fields{"matched": "second"}},
	}, false)
	require.NoError(t, err)

	e := eventWithCode("A", 0)
	require.NoError(t, cm.Update(e))
	assert.Equal(t, "first", e.Fields["matched"])
}

func TestConditionalAssignment(t *testing.T) {
	cond := mustFilter(t, `acting_demo.gender != nil && acting_demo.age.min_age != nil && acting_demo.age.max_age != nil`)
	ca, err := updater.NewConditionalAssignment(cond, []updater.Assignment{
		{Source: vprecord.ParseFieldPath("acting_demo.gender"), Target: vprecord.ParseFieldPath("corrected_demo.gender")},
		{Source: vprecord.ParseFieldPath("acting_demo.age.min_age"), Target: vprecord.ParseFieldPath("corrected_demo.age.min_age")},
		{Source: vprecord.ParseFieldPath("acting_demo.age.max_age"), Target: vprecord.ParseFieldPath("corrected_demo.age.max_age")},
	})
	require.NoError(t, err)

	t.Run("missing field leaves corrected_demo untouched", func(t *testing.T) {
		e := vprecord.NewEvent(vprecord.LabelerInput{})
		vprecord.ParseFieldPath("acting_demo.gender").Set(e.Fields, "MALE")
		require.NoError(t, ca.Update(e))
		_, ok := e.Fields["corrected_demo"]
		assert.False(t, ok)
	})

	t.Run("fully populated copies every field", func(t *testing.T) {
		e := vprecord.NewEvent(vprecord.LabelerInput{})
		vprecord.ParseFieldPath("acting_demo.gender").Set(e.Fields, "MALE")
		vprecord.ParseFieldPath("acting_demo.age.min_age").Set(e.Fields, int64(18))
		vprecord.ParseFieldPath("acting_demo.age.max_age").Set(e.Fields, int64(24))
		require.NoError(t, ca.Update(e))

		gender, _ := vprecord.ParseFieldPath("corrected_demo.gender").Get(e.Fields)
		minAge, _ := vprecord.ParseFieldPath("corrected_demo.age.min_age").Get(e.Fields)
		maxAge, _ := vprecord.ParseFieldPath("corrected_demo.age.max_age").Get(e.Fields)
		assert.Equal(t, "MALE", gender)
		assert.EqualValues(t, 18, minAge)
		assert.EqualValues(t, 24, maxAge)
	})
}

func TestConditionalAssignmentRejectsUnresolvablePath(t *testing.T) {
	cond := mustFilter(t, `true`)
	_, err := updater.NewConditionalAssignment(cond, []updater.Assignment{
		{Source: vprecord.ParseFieldPath(""), Target: vprecord.ParseFieldPath("corrected_demo.gender")},
	})
	require.Error(t, err)
}

func TestConditionalAssignmentRejectsTypeMismatch(t *testing.T) {
	cond := mustFilter(t, `true`)
	_, err := updater.NewConditionalAssignment(cond, []updater.Assignment{
		{
			Source:     vprecord.ParseFieldPath("acting_demo.gender"),
			Target:     vprecord.ParseFieldPath("corrected_demo.age"),
			SourceType: "string",
			TargetType: "int64",
		},
	})
	require.Error(t, err)
}

func TestSparseUpdateMatrixRejectsShapeMismatch(t *testing.T) {
	matcher, _ := vpfilter.NewFieldFiltersMatcher([]vpfilter.Filter{mustFilter(t, `code == "RAW_1"`)})
	_, err := updater.NewSparseUpdateMatrix(matcher, []updater.SparseColumn{
		{Rows: []vprecord.Fields{{"x": int64(1)}}, Probabilities: []float64{0.5, 0.5}},
	}, "seed", false)
	require.Error(t, err)
}

func TestSparseUpdateMatrixColumnConservation(t *testing.T) {
	matcher, err := vpfilter.NewFieldFiltersMatcher([]vpfilter.Filter{
		mustFilter(t, `code == "RAW_1"`),
	})
	require.NoError(t, err)

	m, err := updater.NewSparseUpdateMatrix(matcher, []updater.SparseColumn{
		{
			Rows:          []vprecord.Fields{{"result": "C1"}, {"result": "C2"}},
			Probabilities: []float64{0.8, 0.2},
		},
	}, "seed", false)
	require.NoError(t, err)

	counts := map[string]int{}
	const n = 20000
	for i := 0; i < n; i++ {
		e := eventWithCode("RAW_1", uint64(i*2654435761+1))
		require.NoError(t, m.Update(e))
		counts[e.Fields["result"].(string)]++
	}

	assert.InDelta(t, 0.8, float64(counts["C1"])/n, 0.02)
	assert.InDelta(t, 0.2, float64(counts["C2"])/n, 0.02)
}

func TestSparseUpdateMatrixNoMatchPassesThrough(t *testing.T) {
	matcher, _ := vpfilter.NewFieldFiltersMatcher([]vpfilter.Filter{mustFilter(t, `code == "RAW_1"`)})
	m, err := updater.NewSparseUpdateMatrix(matcher, []updater.SparseColumn{
		{Rows: []vprecord.Fields{{"x": int64(1)}}, Probabilities: []float64{1.0}},
	}, "seed", true)
	require.NoError(t, err)

	e := eventWithCode("OTHER", 1)
	require.NoError(t, m.Update(e))
	_, hasX := e.Fields["x"]
	assert.False(t, hasX)
}

func TestSparseUpdateMatrixNoMatchFailsWithoutPassThrough(t *testing.T) {
	matcher, _ := vpfilter.NewFieldFiltersMatcher([]vpfilter.Filter{mustFilter(t, `code == "RAW_1"`)})
	m, err := updater.NewSparseUpdateMatrix(matcher, []updater.SparseColumn{
		{Rows: []vprecord.Fields{{"x": int64(1)}}, Probabilities: []float64{1.0}},
	}, "seed", false)
	require.NoError(t, err)

	err = m.Update(eventWithCode("OTHER", 1))
	require.Error(t, err)
}

func TestUpdateTreeDelegatesToSubRoot(t *testing.T) {
	var applied bool
	root := updater.NewUpdateTree(fakeNode(func(e *vprecord.Event) error {
		applied = true
		e.Fields["touched"] = true
		return nil
	}))

	e := vprecord.NewEvent(vprecord.LabelerInput{})
	require.NoError(t, root.Update(e))
	assert.True(t, applied)
	assert.Equal(t, true, e.Fields["touched"])
}

func TestUpdateTreePropagatesSubRootError(t *testing.T) {
	root := updater.NewUpdateTree(fakeNode(func(e *vprecord.Event) error {
		return fmt.Errorf("boom")
	}))

	require.Error(t, root.Update(vprecord.NewEvent(vprecord.LabelerInput{})))
}

type fakeNode func(event *vprecord.Event) error

func (f fakeNode) Apply(event *vprecord.Event) error { return f(event) }

func TestGeometricShredderPsiZeroLeavesUnchanged(t *testing.T) {
	s, err := updater.NewGeometricShredder(0, vprecord.ParseFieldPath("rand"), vprecord.ParseFieldPath("target"), "seed")
	require.NoError(t, err)

	e := vprecord.NewEvent(vprecord.LabelerInput{})
	e.Fields["target"] = uint64(42)
	require.NoError(t, s.Update(e))
	assert.EqualValues(t, 42, e.Fields["target"])
}

func TestGeometricShredderPsiOneRequiresRandomness(t *testing.T) {
	s, err := updater.NewGeometricShredder(1, vprecord.ParseFieldPath("rand"), vprecord.ParseFieldPath("target"), "seed")
	require.NoError(t, err)

	e := vprecord.NewEvent(vprecord.LabelerInput{})
	e.Fields["target"] = uint64(42)
	err = s.Update(e)
	require.Error(t, err)
}

func TestGeometricShredderRejectsBadPsi(t *testing.T) {
	_, err := updater.NewGeometricShredder(1.5, vprecord.ParseFieldPath("rand"), vprecord.ParseFieldPath("target"), "seed")
	require.Error(t, err)
}

func TestGeometricShredderAcceptsJSONDecodedFloat64Fields(t *testing.T) {
	// encoding/json decodes every number into an untagged any field as
	// float64 (pkg/vpio/stream.go, pkg/vprecord.LabelerInput.Extra bound
	// from HTTP); a legitimately-set u64 field must not read as "unset".
	s, err := updater.NewGeometricShredder(1, vprecord.ParseFieldPath("rand"), vprecord.ParseFieldPath("target"), "seed")
	require.NoError(t, err)

	e := vprecord.NewEvent(vprecord.LabelerInput{})
	e.Fields["rand"] = float64(7)
	e.Fields["target"] = float64(42)
	require.NoError(t, s.Update(e))
	newTarget, ok := e.Fields["target"].(uint64)
	require.True(t, ok)
	assert.NotEqual(t, uint64(42), newTarget)
}

func mustFilter(t *testing.T, expr string) vpfilter.Filter {
	t.Helper()
	f, err := vpfilter.NewExprFilter(expr)
	require.NoError(t, err, fmt.Sprintf("compiling %q", expr))
	return f
}
