package vpmodel

import (
	"fmt"

	"github.com/vplabeler/core/pkg/consistenthash"
	"github.com/vplabeler/core/pkg/multiplicity"
	"github.com/vplabeler/core/pkg/population"
	"github.com/vplabeler/core/pkg/updater"
	"github.com/vplabeler/core/pkg/vperrors"
	"github.com/vplabeler/core/pkg/vpfilter"
	"github.com/vplabeler/core/pkg/vprecord"
)

// BuildFromRoot recursively materializes a single-root compiled tree.
// Branches referencing a node by NodeIndex are rejected: in single-root
// mode there is no list to resolve them against.
func BuildFromRoot(root CompiledNode) (Node, error) {
	return buildNode(root, nil)
}

// BuildFromList assembles a topologically-sorted node list: every entry
// except possibly the last must carry an Index; entries
// are built in order, consuming already-built children from a pending map
// by index and inserting themselves under their own index once built. The
// pending map is the "index -> owned child" mapping the design notes call
// out — entries are deleted (moved out) as they're consumed, so leftover
// entries after assembly unambiguously indicate an unreferenced subtree or
// a multi-root input.
func BuildFromList(nodes []CompiledNode) (Node, error) {
	if len(nodes) == 0 {
		return nil, &vperrors.BuildError{Component: "TreeAssembly", Err: fmt.Errorf("%w: empty node list", vperrors.ErrInvalidArgument)}
	}

	pending := make(map[uint32]Node)
	rootPos := len(nodes) - 1

	for i, cn := range nodes {
		if i < rootPos && cn.Index == nil {
			return nil, &vperrors.BuildError{Component: "TreeAssembly", Err: fmt.Errorf("%w: non-root entry %d has no index", vperrors.ErrInvalidArgument, i)}
		}

		built, err := buildNode(cn, pending)
		if err != nil {
			return nil, err
		}

		if cn.Index != nil {
			if _, exists := pending[*cn.Index]; exists {
				return nil, &vperrors.BuildError{Component: "TreeAssembly", Err: fmt.Errorf("%w: duplicate index %d", vperrors.ErrInvalidArgument, *cn.Index)}
			}
			pending[*cn.Index] = built
		}

		if i == rootPos {
			if cn.Index != nil {
				// The root consumed nothing under its own index
				// yet except the entry we just inserted for it;
				// remove it so the leftover check below only
				// reports genuinely unreferenced entries.
				delete(pending, *cn.Index)
			}
			if len(pending) != 0 {
				return nil, &vperrors.BuildError{Component: "TreeAssembly", Err: fmt.Errorf("%w: %d entries never referenced by any parent", vperrors.ErrInvalidArgument, len(pending))}
			}
			return built, nil
		}
	}

	return nil, &vperrors.BuildError{Component: "TreeAssembly", Err: fmt.Errorf("%w: no root entry found", vperrors.ErrInternal)}
}

// buildNode builds one CompiledNode. pending is nil in single-root mode (in
// which case a NodeIndex reference is a build error) and non-nil in list
// mode (in which case each referenced index must already be present, and is
// removed from pending once consumed).
func buildNode(cn CompiledNode, pending map[uint32]Node) (Node, error) {
	switch cn.Kind {
	case KindBranch:
		return buildBranchNode(cn.Branch, pending)
	case KindPopulation:
		return buildPopulationNode(cn.Population)
	case KindStop:
		return &StopNode{}, nil
	default:
		return nil, &vperrors.BuildError{Component: "ModelNode", Err: fmt.Errorf("%w: unknown node kind %d", vperrors.ErrInvalidArgument, cn.Kind)}
	}
}

func resolveChild(b CompiledBranch, pending map[uint32]Node) (Node, error) {
	if (b.Child == nil) == (b.NodeIndex == nil) {
		return nil, fmt.Errorf("%w: branch must set exactly one of child or node_index", vperrors.ErrInvalidArgument)
	}

	if b.Child != nil {
		return buildNode(*b.Child, pending)
	}

	if pending == nil {
		return nil, fmt.Errorf("%w: node_index references are not allowed in single-root mode", vperrors.ErrInvalidArgument)
	}
	child, ok := pending[*b.NodeIndex]
	if !ok {
		return nil, fmt.Errorf("%w: child with index %d not provided", vperrors.ErrInvalidArgument, *b.NodeIndex)
	}
	delete(pending, *b.NodeIndex)
	return child, nil
}

func buildBranchNode(cb *CompiledBranchNode, pending map[uint32]Node) (Node, error) {
	if cb == nil {
		return nil, &vperrors.BuildError{Component: "BranchNode", Err: fmt.Errorf("%w: missing branch config", vperrors.ErrInvalidArgument)}
	}
	if len(cb.Branches) == 0 {
		return nil, &vperrors.BuildError{Component: "BranchNode", Err: fmt.Errorf("%w: at least one branch is required", vperrors.ErrInvalidArgument)}
	}
	if cb.Updaters != nil && cb.Multiplicity != nil {
		return nil, &vperrors.BuildError{Component: "BranchNode", Err: fmt.Errorf("%w: updaters and multiplicity are mutually exclusive", vperrors.ErrInvalidArgument)}
	}

	byChance := cb.Branches[0].Condition == ""
	for _, b := range cb.Branches {
		if (b.Chance != nil) == (b.Condition != "") {
			return nil, &vperrors.BuildError{Component: "BranchNode", Err: fmt.Errorf("%w: branch must set exactly one of chance or condition", vperrors.ErrInvalidArgument)}
		}
		if (b.Condition == "") != byChance {
			return nil, &vperrors.BuildError{Component: "BranchNode", Err: fmt.Errorf("%w: all branches must use the same selector kind", vperrors.ErrInvalidArgument)}
		}
	}

	children := make([]Node, len(cb.Branches))
	for i, b := range cb.Branches {
		child, err := resolveChild(b, pending)
		if err != nil {
			return nil, &vperrors.BuildError{Component: "BranchNode", Err: err}
		}
		children[i] = child
	}

	node := &BranchNode{children: children, randomSeed: cb.RandomSeed}

	if byChance {
		choices := make([]consistenthash.Choice, len(cb.Branches))
		for i, b := range cb.Branches {
			chance := 0.0
			if b.Chance != nil {
				chance = *b.Chance
			}
			choices[i] = consistenthash.Choice{ID: int32(i), Probability: chance}
		}
		h, err := consistenthash.Build(choices)
		if err != nil {
			return nil, &vperrors.BuildError{Component: "BranchNode", Err: err}
		}
		node.hashing = h
	} else {
		filters := make([]vpfilter.Filter, len(cb.Branches))
		for i, b := range cb.Branches {
			f, err := vpfilter.NewExprFilter(b.Condition)
			if err != nil {
				return nil, err
			}
			filters[i] = f
		}
		m, err := vpfilter.NewFieldFiltersMatcher(filters)
		if err != nil {
			return nil, err
		}
		node.matcher = m
	}

	if cb.Multiplicity != nil {
		m, err := buildMultiplicity(cb.Multiplicity)
		if err != nil {
			return nil, err
		}
		node.multiplier = m
	} else {
		updaters := make([]AttributesUpdater, 0, len(cb.Updaters))
		for _, cu := range cb.Updaters {
			u, err := buildUpdater(cu, pending)
			if err != nil {
				return nil, err
			}
			updaters = append(updaters, u)
		}
		node.updaters = updaters
	}

	return node, nil
}

func buildMultiplicity(cm *CompiledMultiplicity) (*multiplicity.MultiplicityImpl, error) {
	var opts []multiplicity.Option
	if cm.ExpectedConstant != nil {
		opts = append(opts, multiplicity.WithExpectedConstant(*cm.ExpectedConstant))
	}
	if cm.ExpectedField != "" {
		opts = append(opts, multiplicity.WithExpectedField(vprecord.ParseFieldPath(cm.ExpectedField)))
	}
	return multiplicity.New(cm.MaxValue, cm.CapAtMax, vprecord.ParseFieldPath(cm.PersonIndexField), cm.RandomSeed, opts...)
}

func buildPopulationNode(cp *CompiledPopulationNode) (Node, error) {
	if cp == nil {
		return nil, &vperrors.BuildError{Component: "PopulationNode", Err: fmt.Errorf("%w: missing population config", vperrors.ErrInvalidArgument)}
	}
	selector, err := population.Build(cp.Pools)
	if err != nil {
		return nil, err
	}
	return &PopulationNode{selector: selector, randomSeed: cp.RandomSeed}, nil
}

func buildColumnMatcher(m CompiledColumnMatcher) (updater.ColumnMatcher, error) {
	if (len(m.FieldFilterExprs) == 0) == (m.HashFieldMask == nil) {
		return nil, fmt.Errorf("%w: exactly one of field filters or hash field mask is required", vperrors.ErrInvalidArgument)
	}

	if m.HashFieldMask != nil {
		mask := make([]vprecord.FieldPath, len(m.HashFieldMask.Mask))
		for i, p := range m.HashFieldMask.Mask {
			mask[i] = vprecord.ParseFieldPath(p)
		}
		templates := make([]vprecord.Fields, len(m.HashFieldMask.Templates))
		for i, t := range m.HashFieldMask.Templates {
			templates[i] = toFields(t)
		}
		return vpfilter.NewHashFieldMaskMatcher(templates, mask)
	}

	filters := make([]vpfilter.Filter, len(m.FieldFilterExprs))
	for i, expr := range m.FieldFilterExprs {
		f, err := vpfilter.NewExprFilter(expr)
		if err != nil {
			return nil, err
		}
		filters[i] = f
	}
	return vpfilter.NewFieldFiltersMatcher(filters)
}

func buildUpdater(cu CompiledUpdater, pending map[uint32]Node) (AttributesUpdater, error) {
	switch {
	case cu.UpdateMatrix != nil:
		cfg := cu.UpdateMatrix
		matcher, err := buildColumnMatcher(cfg.Matcher)
		if err != nil {
			return nil, err
		}
		rows := make([]vprecord.Fields, len(cfg.Rows))
		for i, r := range cfg.Rows {
			rows[i] = toFields(r)
		}
		return updater.NewUpdateMatrix(matcher, cfg.Columns, rows, cfg.Probabilities, cfg.RandomSeed, cfg.PassThroughNonMatches)

	case cu.SparseUpdateMatrix != nil:
		cfg := cu.SparseUpdateMatrix
		matcher, err := buildColumnMatcher(cfg.Matcher)
		if err != nil {
			return nil, err
		}
		columns := make([]updater.SparseColumn, len(cfg.Columns))
		for i, c := range cfg.Columns {
			rows := make([]vprecord.Fields, len(c.Rows))
			for j, r := range c.Rows {
				rows[j] = toFields(r)
			}
			columns[i] = updater.SparseColumn{Rows: rows, Probabilities: c.Probabilities}
		}
		return updater.NewSparseUpdateMatrix(matcher, columns, cfg.RandomSeed, cfg.PassThroughNonMatches)

	case cu.ConditionalMerge != nil:
		cfg := cu.ConditionalMerge
		entries := make([]updater.ConditionalMergeEntry, len(cfg.Entries))
		for i, e := range cfg.Entries {
			f, err := vpfilter.NewExprFilter(e.Condition)
			if err != nil {
				return nil, err
			}
			entries[i] = updater.ConditionalMergeEntry{Condition: f, Update: toFields(e.Update)}
		}
		return updater.NewConditionalMerge(entries, cfg.PassThroughNonMatches)

	case cu.ConditionalAssignment != nil:
		cfg := cu.ConditionalAssignment
		cond, err := vpfilter.NewExprFilter(cfg.Condition)
		if err != nil {
			return nil, err
		}
		assignments := make([]updater.Assignment, len(cfg.Assignments))
		for i, a := range cfg.Assignments {
			assignments[i] = updater.Assignment{
				Source:     vprecord.ParseFieldPath(a.Source),
				Target:     vprecord.ParseFieldPath(a.Target),
				SourceType: a.SourceType,
				TargetType: a.TargetType,
			}
		}
		return updater.NewConditionalAssignment(cond, assignments)

	case cu.UpdateTree != nil:
		root, err := buildNode(*cu.UpdateTree, pending)
		if err != nil {
			return nil, err
		}
		return updater.NewUpdateTree(root), nil

	case cu.GeometricShredder != nil:
		cfg := cu.GeometricShredder
		return updater.NewGeometricShredder(
			cfg.Psi,
			vprecord.ParseFieldPath(cfg.RandomnessField),
			vprecord.ParseFieldPath(cfg.TargetField),
			cfg.RandomSeed,
		)

	default:
		return nil, &vperrors.BuildError{Component: "AttributesUpdater", Err: fmt.Errorf("%w: no updater variant set", vperrors.ErrInvalidArgument)}
	}
}

// toFields recursively converts a plain JSON-shaped map[string]any (as
// produced by encoding/json) into vprecord.Fields, converting nested
// map[string]any values into vprecord.Fields so Event.MergeFrom's type
// switch recognizes them.
func toFields(m map[string]any) vprecord.Fields {
	if m == nil {
		return nil
	}
	out := make(vprecord.Fields, len(m))
	for k, v := range m {
		out[k] = toValue(v)
	}
	return out
}

func toValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return toFields(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = toValue(e)
		}
		return out
	default:
		return v
	}
}
