package orchestrator

import (
	"log"

	"github.com/example/hammerfuzz/dram"
	"github.com/example/hammerfuzz/dramanalyzer"
	"github.com/example/hammerfuzz/memregion"
)

// Config wires an Orchestrator to the outside world: the memory
// region it hammers, the hardware it measures, the DIMM topology it
// assumes, and where it logs.
type Config struct {
	Allocator memregion.Allocator
	Measurer  dramanalyzer.Measurer
	Registry  *dram.Registry

	// Key selects the MemConfig to translate addresses with.
	Key dram.Key

	// RegionSize is the size, in bytes, of the region Allocator reserves.
	RegionSize int

	// Logger receives every stage transition. Defaults to log.Default().
	Logger *log.Logger

	// FatalFn is invoked in place of a hard process exit when assembly
	// fails - spec.md §7 treats this as unrecoverable. Defaults to
	// log.Fatalln.
	FatalFn func(error)

	// MaxPatternRetries bounds how many times RunIteration re-randomizes
	// parameters after hammerpattern.ErrPatternAbandoned before giving up.
	MaxPatternRetries int

	// InitialHammeringReps is the number of times a freshly mapped
	// pattern is hammered before its ReproducibilityScore has had a
	// chance to adjust that count.
	InitialHammeringReps int
}

func (o Config) withDefaults() Config {
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.FatalFn == nil {
		o.FatalFn = func(err error) { log.Fatalln(err) }
	}
	if o.MaxPatternRetries <= 0 {
		o.MaxPatternRetries = 10
	}
	if o.InitialHammeringReps <= 0 {
		o.InitialHammeringReps = 5
	}
	return o
}
