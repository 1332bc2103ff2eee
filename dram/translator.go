package dram

import "math/bits"

// baseMask clears the low 30 bits of a pointer, isolating the super-page
// aligned base of a hammering region.
const baseMask = ^(uintptr(1)<<30 - 1)

// DRAMAddr is a physical DRAM address: a bank, row, and column within
// the DIMM topology described by the MemConfig a Translator was built
// with.
type DRAMAddr struct {
	Bank uint64
	Row  uint64
	Col  uint64
}

// Translator converts between virtual addresses inside a hammering
// region and the DRAMAddr that the memory controller maps them to. It
// holds the MemConfig and base address as ordinary fields rather than
// process-wide globals, so distinct configurations can coexist in the
// same process (one per table-driven test case, for instance).
type Translator struct {
	cfg     MemConfig
	baseMSB uintptr
}

// NewTranslator returns a Translator for cfg. SetBase must be called
// before FromVirt/ToVirt are meaningful; until then the base is zero.
func NewTranslator(cfg MemConfig) *Translator {
	return &Translator{cfg: cfg}
}

// SetBase records the high-order bits (bit 30 and above) of ptr as the
// base of the hammering region. Every ToVirt result is OR'd with this
// base.
func (o *Translator) SetBase(ptr uintptr) {
	o.baseMSB = ptr & baseMask
}

// Base returns the base address previously recorded by SetBase.
func (o *Translator) Base() uintptr {
	return o.baseMSB
}

// Config returns the MemConfig the Translator was constructed with.
func (o *Translator) Config() MemConfig {
	return o.cfg
}

// FromVirt decodes the low 30 bits of v into a DRAMAddr by computing,
// for each matrix row i, the GF(2) parity of v masked by DRAMMatrix[i],
// which becomes linearized bit MTXSize-1-i.
// Addresses outside the region the Translator was configured for still
// produce a result; the caller is responsible for constraining v to the
// mapped region first.
func (o *Translator) FromVirt(v uintptr) DRAMAddr {
	var lin uint64
	for i := 0; i < MTXSize; i++ {
		lin <<= 1
		lin |= parity(uint64(v) & uint64(o.cfg.DRAMMatrix[i]))
	}

	return DRAMAddr{
		Bank: (lin >> o.cfg.BankShift) & o.cfg.BankMask,
		Row:  (lin >> o.cfg.RowShift) & o.cfg.RowMask,
		Col:  (lin >> o.cfg.ColShift) & o.cfg.ColMask,
	}
}

// Linearize packs addr's bank, row, and column into a single value using
// the Translator's shift layout, without running it through AddrMatrix.
// This is the intermediate form ToVirt inverts through the matrix.
func (o *Translator) Linearize(addr DRAMAddr) uint64 {
	return (addr.Bank << o.cfg.BankShift) |
		(addr.Row << o.cfg.RowShift) |
		(addr.Col << o.cfg.ColShift)
}

// ToVirt is the inverse of FromVirt: it linearizes addr, runs the result
// through AddrMatrix to recover the low 30 bits of a virtual address,
// then ORs in the base recorded by SetBase.
func (o *Translator) ToVirt(addr DRAMAddr) uintptr {
	lin := o.Linearize(addr)

	var res uint64
	for i := 0; i < MTXSize; i++ {
		res <<= 1
		res |= parity(lin & uint64(o.cfg.AddrMatrix[i]))
	}

	return o.baseMSB | uintptr(res)
}

// parity returns 1 if v has an odd number of set bits, 0 otherwise -
// the GF(2) dot product of v against an all-ones vector.
func parity(v uint64) uint64 {
	return uint64(bits.OnesCount64(v) & 1)
}
