package vpmodel

// ToNodeListRepresentation converts a single-root compiled tree into the
// topologically-sorted node-list form (depth-first post-order, replacing
// each inline child with a fresh 0-based index referencing the just-emitted
// entry). The last entry in the result is the root.
func ToNodeListRepresentation(root CompiledNode) []CompiledNode {
	var out []CompiledNode
	emitPostOrder(root, &out)
	return out
}

func emitPostOrder(cn CompiledNode, out *[]CompiledNode) uint32 {
	switch cn.Kind {
	case KindBranch:
		if cn.Branch != nil {
			branches := make([]CompiledBranch, len(cn.Branch.Branches))
			for i, b := range cn.Branch.Branches {
				branches[i] = b
				if b.Child != nil {
					idx := emitPostOrder(*b.Child, out)
					branches[i] = CompiledBranch{
						NodeIndex: &idx,
						Chance:    b.Chance,
						Condition: b.Condition,
					}
				}
			}
			rewritten := *cn.Branch
			rewritten.Branches = branches
			cn = CompiledNode{Name: cn.Name, Kind: cn.Kind, Branch: &rewritten}
		}
	case KindPopulation:
		// Leaf: no child indices to rewrite.
	case KindStop:
		// Leaf.
	}

	idx := uint32(len(*out))
	indexCopy := idx
	cn.Index = &indexCopy
	*out = append(*out, cn)
	return idx
}
