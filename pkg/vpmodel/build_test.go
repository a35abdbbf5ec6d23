package vpmodel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vplabeler/core/pkg/population"
	"github.com/vplabeler/core/pkg/vpmodel"
	"github.com/vplabeler/core/pkg/vprecord"
)

func chancePtr(v float64) *float64 { return &v }
func idxPtr(v uint32) *uint32      { return &v }

func popLeaf(offset uint64) vpmodel.CompiledNode {
	return vpmodel.CompiledNode{
		Kind: vpmodel.KindPopulation,
		Population: &vpmodel.CompiledPopulationNode{
			Pools:      []population.Pool{{Offset: offset, Total: 1}},
			RandomSeed: "pop-seed",
		},
	}
}

// TestTwoWayChanceSplit mirrors scenario S1.
func TestTwoWayChanceSplit(t *testing.T) {
	lowLeaf := popLeaf(10)
	highLeaf := popLeaf(20)

	root := vpmodel.CompiledNode{
		Kind: vpmodel.KindBranch,
		Branch: &vpmodel.CompiledBranchNode{
			RandomSeed: "TestBranchNodeSeed",
			Branches: []vpmodel.CompiledBranch{
				{Child: &lowLeaf, Chance: chancePtr(0.4)},
				{Child: &highLeaf, Chance: chancePtr(0.6)},
			},
		},
	}

	node, err := vpmodel.BuildFromRoot(root)
	require.NoError(t, err)

	counts := map[int64]int{}
	const n = 10000
	for i := 0; i < n; i++ {
		e := vprecord.NewEvent(vprecord.LabelerInput{})
		e.ActingFingerprint = uint64(i)
		require.NoError(t, node.Apply(e))
		counts[e.VirtualPersonActivities[0].VirtualPersonID]++
	}

	assert.InDelta(t, 4000, counts[10], 200)
	assert.InDelta(t, 6000, counts[20], 200)
}

// TestPopulationNodeCopiesLabelRegardlessOfAssignment mirrors the original
// PopulationNodeImpl::Apply behavior of copying the event's label record
// onto the produced activity whether or not a virtual_person_id is
// assigned (including the empty-pool case).
func TestPopulationNodeCopiesLabelRegardlessOfAssignment(t *testing.T) {
	t.Run("populated pool", func(t *testing.T) {
		root := popLeaf(10)
		node, err := vpmodel.BuildFromRoot(root)
		require.NoError(t, err)

		e := vprecord.NewEvent(vprecord.LabelerInput{})
		vprecord.ParseFieldPath("label.gender").Set(e.Fields, "MALE")

		require.NoError(t, node.Apply(e))
		require.Len(t, e.VirtualPersonActivities, 1)
		assert.EqualValues(t, 10, e.VirtualPersonActivities[0].VirtualPersonID)
		assert.Equal(t, "MALE", e.VirtualPersonActivities[0].Label["gender"])
	})

	t.Run("empty population pool", func(t *testing.T) {
		root := vpmodel.CompiledNode{
			Kind: vpmodel.KindPopulation,
			Population: &vpmodel.CompiledPopulationNode{
				Pools:      nil,
				RandomSeed: "pop-seed",
			},
		}
		node, err := vpmodel.BuildFromRoot(root)
		require.NoError(t, err)

		e := vprecord.NewEvent(vprecord.LabelerInput{})
		vprecord.ParseFieldPath("label.gender").Set(e.Fields, "MALE")

		require.NoError(t, node.Apply(e))
		require.Len(t, e.VirtualPersonActivities, 1)
		assert.False(t, e.VirtualPersonActivities[0].Populated)
		assert.Equal(t, "MALE", e.VirtualPersonActivities[0].Label["gender"])
	})
}

// TestListRepresentationMatchesSingleRoot mirrors scenario S2.
func TestListRepresentationMatchesSingleRoot(t *testing.T) {
	low := popLeaf(10)
	high := popLeaf(20)

	nodes := []vpmodel.CompiledNode{
		{Index: idxPtr(2), Kind: vpmodel.KindPopulation, Population: low.Population},
		{Index: idxPtr(3), Kind: vpmodel.KindPopulation, Population: high.Population},
		{
			Kind: vpmodel.KindBranch,
			Branch: &vpmodel.CompiledBranchNode{
				RandomSeed: "TestBranchNodeSeed",
				Branches: []vpmodel.CompiledBranch{
					{NodeIndex: idxPtr(2), Chance: chancePtr(0.4)},
					{NodeIndex: idxPtr(3), Chance: chancePtr(0.6)},
				},
			},
		},
	}

	listNode, err := vpmodel.BuildFromList(nodes)
	require.NoError(t, err)

	root := vpmodel.CompiledNode{
		Kind: vpmodel.KindBranch,
		Branch: &vpmodel.CompiledBranchNode{
			RandomSeed: "TestBranchNodeSeed",
			Branches: []vpmodel.CompiledBranch{
				{Child: &low, Chance: chancePtr(0.4)},
				{Child: &high, Chance: chancePtr(0.6)},
			},
		},
	}
	rootNode, err := vpmodel.BuildFromRoot(root)
	require.NoError(t, err)

	for i := uint64(0); i < 1000; i++ {
		e1 := vprecord.NewEvent(vprecord.LabelerInput{})
		e1.ActingFingerprint = i
		e2 := vprecord.NewEvent(vprecord.LabelerInput{})
		e2.ActingFingerprint = i

		require.NoError(t, listNode.Apply(e1))
		require.NoError(t, rootNode.Apply(e2))

		assert.Equal(t, e2.VirtualPersonActivities[0].VirtualPersonID, e1.VirtualPersonActivities[0].VirtualPersonID)
	}
}

// TestConditionBranchNoMatch mirrors scenario S3.
func TestConditionBranchNoMatch(t *testing.T) {
	low := popLeaf(10)
	high := popLeaf(20)

	root := vpmodel.CompiledNode{
		Kind: vpmodel.KindBranch,
		Branch: &vpmodel.CompiledBranchNode{
			RandomSeed: "seed",
			Branches: []vpmodel.CompiledBranch{
				{Child: &low, Condition: `input.person_country_code == "X"`},
				{Child: &high, Condition: `input.person_country_code == "Y"`},
			},
		},
	}
	node, err := vpmodel.BuildFromRoot(root)
	require.NoError(t, err)

	e := vprecord.NewEvent(vprecord.LabelerInput{})
	e.Fields["input"].(vprecord.Fields)["person_country_code"] = "Z"
	err = node.Apply(e)
	require.Error(t, err)
}

// TestMultiplicityClones mirrors scenario S5.
func TestMultiplicityClones(t *testing.T) {
	leaf := popLeaf(10)

	maxVal := 2.0
	expected := 1.2
	root := vpmodel.CompiledNode{
		Kind: vpmodel.KindBranch,
		Branch: &vpmodel.CompiledBranchNode{
			RandomSeed: "seed",
			Branches: []vpmodel.CompiledBranch{
				{Child: &leaf, Chance: chancePtr(1.0)},
			},
			Multiplicity: &vpmodel.CompiledMultiplicity{
				ExpectedConstant: &expected,
				MaxValue:         maxVal,
				CapAtMax:         true,
				PersonIndexField: "person_index",
				RandomSeed:       "mult-seed",
			},
		},
	}
	node, err := vpmodel.BuildFromRoot(root)
	require.NoError(t, err)

	total := 0
	const n = 10000
	for i := 0; i < n; i++ {
		e := vprecord.NewEvent(vprecord.LabelerInput{})
		e.ActingFingerprint = uint64(i*2654435761 + 1)
		require.NoError(t, node.Apply(e))
		assert.True(t, len(e.VirtualPersonActivities) == 1 || len(e.VirtualPersonActivities) == 2)
		total += len(e.VirtualPersonActivities)
	}

	assert.InDelta(t, 12000, total, 600)
}

func TestBuildFromListRejectsDuplicateIndex(t *testing.T) {
	leaf := popLeaf(10)
	_, err := vpmodel.BuildFromList([]vpmodel.CompiledNode{
		{Index: idxPtr(1), Kind: vpmodel.KindPopulation, Population: leaf.Population},
		{Index: idxPtr(1), Kind: vpmodel.KindPopulation, Population: leaf.Population},
	})
	require.Error(t, err)
}

func TestBuildFromListRejectsDanglingReference(t *testing.T) {
	_, err := vpmodel.BuildFromList([]vpmodel.CompiledNode{
		{
			Kind: vpmodel.KindBranch,
			Branch: &vpmodel.CompiledBranchNode{
				RandomSeed: "seed",
				Branches: []vpmodel.CompiledBranch{
					{NodeIndex: idxPtr(99), Chance: chancePtr(1.0)},
				},
			},
		},
	})
	require.Error(t, err)
}

func TestBuildFromListRejectsUnreferencedEntry(t *testing.T) {
	leaf := popLeaf(10)
	orphan := popLeaf(20)

	_, err := vpmodel.BuildFromList([]vpmodel.CompiledNode{
		{Index: idxPtr(5), Kind: vpmodel.KindPopulation, Population: orphan.Population},
		{Kind: vpmodel.KindPopulation, Population: leaf.Population},
	})
	require.Error(t, err)
}

func TestSerializerRoundTrip(t *testing.T) {
	low := popLeaf(10)
	high := popLeaf(20)

	root := vpmodel.CompiledNode{
		Kind: vpmodel.KindBranch,
		Branch: &vpmodel.CompiledBranchNode{
			RandomSeed: "seed",
			Branches: []vpmodel.CompiledBranch{
				{Child: &low, Chance: chancePtr(0.4)},
				{Child: &high, Chance: chancePtr(0.6)},
			},
		},
	}

	list := vpmodel.ToNodeListRepresentation(root)
	require.Len(t, list, 3)

	fromList, err := vpmodel.BuildFromList(list)
	require.NoError(t, err)
	fromRoot, err := vpmodel.BuildFromRoot(root)
	require.NoError(t, err)

	for i := uint64(0); i < 500; i++ {
		e1 := vprecord.NewEvent(vprecord.LabelerInput{})
		e1.ActingFingerprint = i
		e2 := vprecord.NewEvent(vprecord.LabelerInput{})
		e2.ActingFingerprint = i

		require.NoError(t, fromList.Apply(e1))
		require.NoError(t, fromRoot.Apply(e2))
		assert.Equal(t, e2.VirtualPersonActivities[0].VirtualPersonID, e1.VirtualPersonActivities[0].VirtualPersonID)
	}
}
