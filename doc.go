// Package hammerfuzz provides the core of a DRAM Rowhammer fuzzing engine:
// an address translator, a frequency-based hammering pattern builder, an
// address mapper, and an x86-64 JIT for the refresh-synchronized hammer
// loop.
//
// APIs are separated into subpackages and documented accordingly.
//
// For scripting convenience, some "OrExit" functions and methods are
// provided in the orchestrator and cmd packages. Any errors encountered by
// these functions are treated as fatal.
package hammerfuzz
