// Package dram translates between virtual addresses inside a hammering
// region and the physical (bank, row, column) triple that DRAM actually
// sees, using per-DIMM XOR-parity matrices.
//
// The matrices and their derived shift/mask constants come from the DIMMs
// a caller has actually reverse engineered; two common DDR4 layouts ship
// built in via Registry. MemConfig and the active base address are plain
// values threaded through a Translator rather than process globals, so
// tests can exercise several DIMM configurations in the same process.
package dram
