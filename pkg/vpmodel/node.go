// Package vpmodel implements the polymorphic compiled-node hierarchy
// (branch, population, stop) and its build-time assembly from either a
// single-root tree or a topologically-sorted node list. Per the design
// notes, each kind is a plain Go struct implementing a common Node
// interface — a tagged variant via structural typing — rather than a class
// hierarchy with virtual dispatch.
package vpmodel

import (
	"fmt"

	"github.com/vplabeler/core/pkg/consistenthash"
	"github.com/vplabeler/core/pkg/fingerprint"
	"github.com/vplabeler/core/pkg/multiplicity"
	"github.com/vplabeler/core/pkg/population"
	"github.com/vplabeler/core/pkg/vperrors"
	"github.com/vplabeler/core/pkg/vpfilter"
	"github.com/vplabeler/core/pkg/vprecord"
)

// Node is the contract every compiled node kind satisfies: apply the node's
// behavior to the event, recursing into children as needed.
type Node interface {
	Apply(event *vprecord.Event) error
}

// AttributesUpdater is the updater contract a BranchNode holds; every
// pkg/updater variant satisfies it structurally. This package imports
// pkg/updater to build updaters; the reverse import does not exist, since
// pkg/updater declares its own Node interface instead.
type AttributesUpdater interface {
	Update(event *vprecord.Event) error
}

// Multiplicity is the multiplicity contract a BranchNode holds;
// *multiplicity.MultiplicityImpl satisfies it structurally.
type Multiplicity interface {
	ComputeEventMultiplicity(event *vprecord.Event) (int32, error)
	GetFingerprintForIndex(input uint64, index int32) uint64
	PersonIndexField() vprecord.FieldPath
}

var _ Multiplicity = (*multiplicity.MultiplicityImpl)(nil)

// BranchNode selects a child by chance or by condition, optionally running
// attribute updaters or a multiplicity config first, then recurses into the
// selected child (or, for multiplicity, into each clone's selected child).
type BranchNode struct {
	children   []Node
	hashing    *consistenthash.DistributedConsistentHashing // chance selector
	matcher    *vpfilter.FieldFiltersMatcher                // condition selector
	updaters   []AttributesUpdater
	multiplier Multiplicity
	randomSeed string
}

// Apply runs any updaters, then either fans the event out across a
// multiplicity clone set or selects one child and applies it.
func (b *BranchNode) Apply(event *vprecord.Event) error {
	if b.multiplier != nil {
		return b.applyMultiplicity(event)
	}

	for _, u := range b.updaters {
		if err := u.Update(event); err != nil {
			return err
		}
	}

	child, err := b.selectChild(event)
	if err != nil {
		return err
	}
	return child.Apply(event)
}

func (b *BranchNode) selectChild(event *vprecord.Event) (Node, error) {
	var index int
	if b.hashing != nil {
		seed := b.randomSeed + fingerprint.Decimal(event.ActingFingerprint)
		index = int(b.hashing.Hash(seed))
	} else {
		index = b.matcher.Match(event)
		if index == vpfilter.NoMatch {
			return nil, fmt.Errorf("%w: no branch condition matched", vperrors.ErrInvalidArgument)
		}
	}

	if index < 0 || index >= len(b.children) {
		return nil, fmt.Errorf("%w: selected child index %d out of range of %d children", vperrors.ErrInternal, index, len(b.children))
	}
	return b.children[index], nil
}

func (b *BranchNode) applyMultiplicity(event *vprecord.Event) error {
	cloneCount, err := b.multiplier.ComputeEventMultiplicity(event)
	if err != nil {
		return err
	}

	personIndexField := b.multiplier.PersonIndexField()

	switch {
	case cloneCount == 0:
		return nil
	case cloneCount == 1:
		personIndexField.Set(event.Fields, int64(0))
		child, err := b.selectChild(event)
		if err != nil {
			return err
		}
		return child.Apply(event)
	default:
		originalFingerprint := event.ActingFingerprint
		var allActivities []vprecord.Activity

		for i := int32(0); i < cloneCount; i++ {
			clone := event.Clone()
			clone.ActingFingerprint = b.multiplier.GetFingerprintForIndex(originalFingerprint, i)
			personIndexField.Set(clone.Fields, int64(i))

			child, err := b.selectChild(clone)
			if err != nil {
				return err
			}
			if err := child.Apply(clone); err != nil {
				return err
			}

			allActivities = append(allActivities, clone.VirtualPersonActivities...)
		}

		event.VirtualPersonActivities = append(event.VirtualPersonActivities, allActivities...)
		return nil
	}
}

// PopulationNode maps a hashed seed to a concrete virtual-person id within
// its configured pools. It is a build-time-guaranteed leaf.
type PopulationNode struct {
	selector   *population.VirtualPersonSelector
	randomSeed string
}

// Apply copies the event's label record onto the current activity
// unconditionally, then hashes the event into this node's pools and
// assigns the resulting virtual-person id — unless the pools are
// collectively empty, in which case no id is assigned.
func (p *PopulationNode) Apply(event *vprecord.Event) error {
	seed := fingerprint.FingerprintString(p.randomSeed + fingerprint.Decimal(event.ActingFingerprint))

	if len(event.VirtualPersonActivities) == 0 {
		event.VirtualPersonActivities = append(event.VirtualPersonActivities, vprecord.Activity{})
	}

	activity := &event.VirtualPersonActivities[0]
	if activity.Populated {
		return fmt.Errorf("%w: activity already has a virtual_person_id", vperrors.ErrInvalidArgument)
	}

	activity.Label = event.Label()

	if p.selector.TotalPopulation() == 0 {
		return nil
	}

	activity.VirtualPersonID = p.selector.GetVirtualPersonId(seed)
	activity.Populated = true
	return nil
}

// StopNode is a no-op leaf.
type StopNode struct{}

// Apply does nothing: reaching a stop node ends that branch of the tree.
func (s *StopNode) Apply(event *vprecord.Event) error {
	return nil
}
