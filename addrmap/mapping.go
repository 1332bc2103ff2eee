package addrmap

import "github.com/example/hammerfuzz/dram"

// BitFlip records a single discovered bit flip in a victim row.
type BitFlip struct {
	Row      int
	Offset   int
	Expected byte
	Actual   byte
}

// Mapping binds a HammeringPattern's aggressor IDs to DRAMAddr rows in
// one bank. It references its owning pattern only by InstanceID -
// never by pointer - so that mappings can be serialized, replayed, and
// resolved back to a pattern through a registry, rather than needing a
// live cyclic reference.
type Mapping struct {
	InstanceID string

	AggressorToAddr map[int]dram.DRAMAddr

	MinRow int
	MaxRow int
	BankNo int

	victimRows []int
	bitFlips   []BitFlip

	// ReproducibilityScore is the fraction of repeated hammering runs
	// against this mapping that reproduced at least one of its flips,
	// in [0,1]. It starts at -1 (unmeasured) rather than 0, so a mapping
	// that has simply never been replayed is distinguishable from one
	// that reproduced nothing.
	ReproducibilityScore float64
}

// NewMapping reconstructs a Mapping from its persisted fields -
// instance ID, bank, row window, and the aggressor-to-address table -
// recomputing victim rows the same way Mapper.Randomize does. Used by
// patternio when loading a mapping back from disk.
func NewMapping(instanceID string, bankNo, minRow, maxRow int, aggressorToAddr map[int]dram.DRAMAddr) *Mapping {
	m := &Mapping{
		InstanceID:           instanceID,
		AggressorToAddr:      aggressorToAddr,
		MinRow:               minRow,
		MaxRow:               maxRow,
		BankNo:               bankNo,
		ReproducibilityScore: -1,
	}
	m.victimRows = computeVictimRows(m)
	return m
}

// VictimRows returns the rows immediately adjacent to any aggressor
// row - the candidates the scanner contract checks for flips.
func (o *Mapping) VictimRows() []int {
	cp := make([]int, len(o.victimRows))
	copy(cp, o.victimRows)
	return cp
}

// BitFlips returns the flips recorded so far via RecordBitFlip.
func (o *Mapping) BitFlips() []BitFlip {
	cp := make([]BitFlip, len(o.bitFlips))
	copy(cp, o.bitFlips)
	return cp
}

// RecordBitFlip appends a discovered flip to the mapping's result list.
func (o *Mapping) RecordBitFlip(flip BitFlip) {
	o.bitFlips = append(o.bitFlips, flip)
}

// rowsUsed reports every row claimed by an aggressor in this mapping,
// used both to compute victim rows and to find unaccessed candidates.
func (o *Mapping) rowsUsed() map[int]bool {
	used := make(map[int]bool, len(o.AggressorToAddr))
	for _, addr := range o.AggressorToAddr {
		used[int(addr.Row)] = true
	}
	return used
}
