package vpmodel

import "github.com/vplabeler/core/pkg/population"

// NodeKind tags which of the three compiled-node shapes a CompiledNode
// carries.
type NodeKind int

const (
	KindBranch NodeKind = iota
	KindPopulation
	KindStop
)

// CompiledNode is the declarative, build-time description of one node.
// Index is nil for an inline child or for a list-mode root with no
// incoming reference.
type CompiledNode struct {
	Index      *uint32
	Name       string
	Kind       NodeKind
	Branch     *CompiledBranchNode
	Population *CompiledPopulationNode
}

// CompiledBranchNode is the declarative form of a branch node.
type CompiledBranchNode struct {
	Branches     []CompiledBranch
	RandomSeed   string
	Updaters     []CompiledUpdater
	Multiplicity *CompiledMultiplicity
}

// CompiledBranch is one branch: exactly one of Child/NodeIndex and exactly
// one of Chance/Condition must be set, enforced at build time.
type CompiledBranch struct {
	Child     *CompiledNode
	NodeIndex *uint32

	Chance    *float64
	Condition string // expr-lang expression; empty means "chance selector"
}

// CompiledPopulationNode is the declarative form of a population node.
type CompiledPopulationNode struct {
	Pools      []population.Pool
	RandomSeed string
}

// CompiledUpdater is a tagged union over the six AttributesUpdater
// variants; exactly one field should be non-nil.
type CompiledUpdater struct {
	UpdateMatrix          *CompiledUpdateMatrix
	SparseUpdateMatrix    *CompiledSparseUpdateMatrix
	ConditionalMerge      *CompiledConditionalMerge
	ConditionalAssignment *CompiledConditionalAssignment
	UpdateTree            *CompiledNode
	GeometricShredder     *CompiledGeometricShredder
}

// CompiledColumnMatcher is a tagged union over the two column-matcher
// kinds; exactly one must be set.
type CompiledColumnMatcher struct {
	FieldFilterExprs []string
	HashFieldMask    *CompiledHashFieldMask
}

// CompiledHashFieldMask is the declarative form of a HashFieldMaskMatcher.
type CompiledHashFieldMask struct {
	Templates []map[string]any
	Mask      []string
}

// CompiledUpdateMatrix is the declarative form of a dense update matrix.
type CompiledUpdateMatrix struct {
	Matcher               CompiledColumnMatcher
	Columns               int
	Rows                  []map[string]any
	Probabilities         []float64
	RandomSeed            string
	PassThroughNonMatches bool
}

// CompiledSparseColumn is one column of a sparse update matrix.
type CompiledSparseColumn struct {
	Rows          []map[string]any
	Probabilities []float64
}

// CompiledSparseUpdateMatrix is the declarative form of a sparse update
// matrix.
type CompiledSparseUpdateMatrix struct {
	Matcher               CompiledColumnMatcher
	Columns               []CompiledSparseColumn
	RandomSeed            string
	PassThroughNonMatches bool
}

// CompiledConditionalMergeEntry is one {condition, update} pair.
type CompiledConditionalMergeEntry struct {
	Condition string
	Update    map[string]any
}

// CompiledConditionalMerge is the declarative form of a conditional merge.
type CompiledConditionalMerge struct {
	Entries               []CompiledConditionalMergeEntry
	PassThroughNonMatches bool
}

// CompiledAssignment is one source-to-target field copy. SourceType and
// TargetType are optional declared scalar kinds ("string", "bool", "int64",
// "uint64", "float64"); when both are set, build rejects a mismatch between
// them the same way a schema-backed field descriptor would.
type CompiledAssignment struct {
	Source     string
	Target     string
	SourceType string
	TargetType string
}

// CompiledConditionalAssignment is the declarative form of a conditional
// assignment.
type CompiledConditionalAssignment struct {
	Condition   string
	Assignments []CompiledAssignment
}

// CompiledGeometricShredder is the declarative form of a geometric
// shredder.
type CompiledGeometricShredder struct {
	Psi             float64
	RandomnessField string
	TargetField     string
	RandomSeed      string
}

// CompiledMultiplicity is the declarative form of a multiplicity config.
// Exactly one of ExpectedConstant/ExpectedField should be set.
type CompiledMultiplicity struct {
	ExpectedConstant *float64
	ExpectedField    string
	MaxValue         float64
	CapAtMax         bool
	PersonIndexField string
	RandomSeed       string
}
