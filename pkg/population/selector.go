// Package population implements the virtual-person-id selector a population
// node uses to turn a hashed seed into a concrete id drawn from a set of id
// pools.
package population

import (
	"sort"

	"github.com/vplabeler/core/pkg/consistenthash"
)

// Pool is one contiguous range of virtual-person ids,
// [offset, offset+total).
type Pool struct {
	Offset uint64
	Total  uint64
}

type keptPool struct {
	offset      uint64
	indexOffset uint64
}

// VirtualPersonSelector maps a hashed seed into one id from the union of a
// population node's pools.
type VirtualPersonSelector struct {
	pools           []keptPool
	totalPopulation uint64
}

// Build skips zero-population pools, recording each kept pool's offset and
// the cumulative index at which it starts in the logical [0, total) range.
// A grand total of zero is a valid, empty pool (every pool declared
// total_population: 0, or no pools at all): TotalPopulation reports 0 and
// GetVirtualPersonId is never called, since a population node's apply skips
// straight to "no id assigned" in that case.
func Build(pools []Pool) (*VirtualPersonSelector, error) {
	s := &VirtualPersonSelector{}

	var running uint64
	for _, p := range pools {
		if p.Total == 0 {
			continue
		}
		s.pools = append(s.pools, keptPool{offset: p.Offset, indexOffset: running})
		running += p.Total
	}

	s.totalPopulation = running
	return s, nil
}

// TotalPopulation is the grand sum across kept pools.
func (s *VirtualPersonSelector) TotalPopulation() uint64 {
	return s.totalPopulation
}

// GetVirtualPersonId hashes seed into a logical index over
// [0, TotalPopulation), finds the pool owning that index, and returns the
// pool's offset plus the index's distance from the pool's start.
func (s *VirtualPersonSelector) GetVirtualPersonId(seed uint64) int64 {
	p := consistenthash.JumpConsistentHash(seed, int32(s.totalPopulation))
	logicalIndex := uint64(p)

	// Pools are sorted by construction (indexOffset is non-decreasing),
	// so find the last pool whose indexOffset <= logicalIndex.
	i := sort.Search(len(s.pools), func(i int) bool {
		return s.pools[i].indexOffset > logicalIndex
	})
	pool := s.pools[i-1]

	return int64(pool.offset + (logicalIndex - pool.indexOffset))
}
