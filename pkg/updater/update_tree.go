package updater

import "github.com/vplabeler/core/pkg/vprecord"

// Node is declared locally so UpdateTreeImpl doesn't need to import
// pkg/vpmodel (which would create an import cycle back through
// AttributesUpdater); any vpmodel.Node satisfies this structurally.
type Node interface {
	Apply(event *vprecord.Event) error
}

// UpdateTreeImpl is the updater variant that lets an updater list jump back
// into ordinary node-apply machinery: its Update is exactly root.Apply.
type UpdateTreeImpl struct {
	root Node
}

// NewUpdateTree wraps an already-built sub-tree root.
func NewUpdateTree(root Node) *UpdateTreeImpl {
	return &UpdateTreeImpl{root: root}
}

func (u *UpdateTreeImpl) Update(event *vprecord.Event) error {
	return u.root.Apply(event)
}
