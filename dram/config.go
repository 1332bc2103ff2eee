package dram

// MTXSize is the width, in rows, of a DRAM_MTX/ADDR_MTX pair: one row
// per output bit of the linearized (bank, row, column) address.
const MTXSize = 30

// MemConfig is a per-DIMM topology descriptor: the shift/mask triples
// that carve a linearized address into (bank, row, column), plus the two
// square GF(2) matrices that translate between a virtual address and
// that linearized form. DRAMMatrix and AddrMatrix must be inverses of
// one another over GF(2); Translator never checks this, it is a
// property of the DIMM the matrices were reverse engineered from.
type MemConfig struct {
	BankShift uint
	BankMask  uint64
	RowShift  uint
	RowMask   uint64
	ColShift  uint
	ColMask   uint64

	// DRAMMatrix is indexed by destination bit, most significant first:
	// DRAMMatrix[i] is the mask applied to a virtual address before
	// computing the parity that produces linearized bit MTXSize-1-i.
	DRAMMatrix [MTXSize]uint32

	// AddrMatrix is the GF(2) inverse of DRAMMatrix, used to go from a
	// linearized address back to a virtual one.
	AddrMatrix [MTXSize]uint32
}

// Key identifies a MemConfig by the DIMM topology it describes.
type Key struct {
	Channels int
	DIMMs    int
	Ranks    int
	Banks    int
}

// Registry holds the set of known MemConfigs, keyed by DIMM topology.
// NewRegistry populates it and Bootstrap only reads it; RegisterConfig
// exists for operators who have reverse engineered a DIMM not already
// known here.
type Registry struct {
	configs map[Key]MemConfig
}

// NewRegistry returns a Registry pre-loaded with the two DDR4 DIMM
// configurations most commonly reverse engineered for single- and
// dual-rank 16-bank parts.
func NewRegistry() *Registry {
	r := &Registry{
		configs: make(map[Key]MemConfig, 2),
	}

	r.RegisterConfig(Key{Channels: 1, DIMMs: 1, Ranks: 1, Banks: 16}, ddr4SingleRank16Bank)
	r.RegisterConfig(Key{Channels: 1, DIMMs: 1, Ranks: 2, Banks: 16}, ddr4DualRank16Bank)

	return r
}

// RegisterConfig adds or replaces the MemConfig for key.
func (o *Registry) RegisterConfig(key Key, cfg MemConfig) {
	o.configs[key] = cfg
}

// Lookup returns the MemConfig registered for key.
func (o *Registry) Lookup(key Key) (MemConfig, bool) {
	cfg, ok := o.configs[key]
	return cfg, ok
}

var ddr4SingleRank16Bank = MemConfig{
	BankShift: 26,
	BankMask:  0b1111,
	RowShift:  0,
	RowMask:   0b1111111111111,
	ColShift:  13,
	ColMask:   0b1111111111111,
	DRAMMatrix: [MTXSize]uint32{
		0b000000000000000010000001000000,
		0b000000000000100100000000000000,
		0b000000000001001000000000000000,
		0b000000000010010000000000000000,
		0b000000000000000001000000000000,
		0b000000000000000000100000000000,
		0b000000000000000000010000000000,
		0b000000000000000000001000000000,
		0b000000000000000000000100000000,
		0b000000000000000000000010000000,
		0b000000000000000000000001000000,
		0b000000000000000000000000100000,
		0b000000000000000000000000010000,
		0b000000000000000000000000001000,
		0b000000000000000000000000000100,
		0b000000000000000000000000000010,
		0b000000000000000000000000000001,
		0b100000000000000000000000000000,
		0b010000000000000000000000000000,
		0b001000000000000000000000000000,
		0b000100000000000000000000000000,
		0b000010000000000000000000000000,
		0b000001000000000000000000000000,
		0b000000100000000000000000000000,
		0b000000010000000000000000000000,
		0b000000001000000000000000000000,
		0b000000000100000000000000000000,
		0b000000000010000000000000000000,
		0b000000000001000000000000000000,
		0b000000000000100000000000000000,
	},
	AddrMatrix: [MTXSize]uint32{
		0b000000000000000001000000000000,
		0b000000000000000000100000000000,
		0b000000000000000000010000000000,
		0b000000000000000000001000000000,
		0b000000000000000000000100000000,
		0b000000000000000000000010000000,
		0b000000000000000000000001000000,
		0b000000000000000000000000100000,
		0b000000000000000000000000010000,
		0b000000000000000000000000001000,
		0b000000000000000000000000000100,
		0b000000000000000000000000000010,
		0b000000000000000000000000000001,
		0b000100000000000000000000000100,
		0b001000000000000000000000000010,
		0b010000000000000000000000000001,
		0b100000000010000000000000000000,
		0b000010000000000000000000000000,
		0b000001000000000000000000000000,
		0b000000100000000000000000000000,
		0b000000010000000000000000000000,
		0b000000001000000000000000000000,
		0b000000000100000000000000000000,
		0b000000000010000000000000000000,
		0b000000000001000000000000000000,
		0b000000000000100000000000000000,
		0b000000000000010000000000000000,
		0b000000000000001000000000000000,
		0b000000000000000100000000000000,
		0b000000000000000010000000000000,
	},
}

var ddr4DualRank16Bank = MemConfig{
	BankShift: 25,
	BankMask:  0b11111,
	RowShift:  0,
	RowMask:   0b111111111111,
	ColShift:  12,
	ColMask:   0b1111111111111,
	DRAMMatrix: [MTXSize]uint32{
		0b000000000000000010000001000000,
		0b000000000001000100000000000000,
		0b000000000010001000000000000000,
		0b000000000100010000000000000000,
		0b000000001000100000000000000000,
		0b000000000000000001000000000000,
		0b000000000000000000100000000000,
		0b000000000000000000010000000000,
		0b000000000000000000001000000000,
		0b000000000000000000000100000000,
		0b000000000000000000000010000000,
		0b000000000000000000000001000000,
		0b000000000000000000000000100000,
		0b000000000000000000000000010000,
		0b000000000000000000000000001000,
		0b000000000000000000000000000100,
		0b000000000000000000000000000010,
		0b000000000000000000000000000001,
		0b100000000000000000000000000000,
		0b010000000000000000000000000000,
		0b001000000000000000000000000000,
		0b000100000000000000000000000000,
		0b000010000000000000000000000000,
		0b000001000000000000000000000000,
		0b000000100000000000000000000000,
		0b000000010000000000000000000000,
		0b000000001000000000000000000000,
		0b000000000100000000000000000000,
		0b000000000010000000000000000000,
		0b000000000001000000000000000000,
	},
	AddrMatrix: [MTXSize]uint32{
		0b000000000000000000100000000000,
		0b000000000000000000010000000000,
		0b000000000000000000001000000000,
		0b000000000000000000000100000000,
		0b000000000000000000000010000000,
		0b000000000000000000000001000000,
		0b000000000000000000000000100000,
		0b000000000000000000000000010000,
		0b000000000000000000000000001000,
		0b000000000000000000000000000100,
		0b000000000000000000000000000010,
		0b000000000000000000000000000001,
		0b000010000000000000000000001000,
		0b000100000000000000000000000100,
		0b001000000000000000000000000010,
		0b010000000000000000000000000001,
		0b100000000001000000000000000000,
		0b000001000000000000000000000000,
		0b000000100000000000000000000000,
		0b000000010000000000000000000000,
		0b000000001000000000000000000000,
		0b000000000100000000000000000000,
		0b000000000010000000000000000000,
		0b000000000001000000000000000000,
		0b000000000000100000000000000000,
		0b000000000000010000000000000000,
		0b000000000000001000000000000000,
		0b000000000000000100000000000000,
		0b000000000000000010000000000000,
		0b000000000000000001000000000000,
	},
}
