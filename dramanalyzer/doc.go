// Package dramanalyzer measures the timing properties a
// fuzzparams.Parameters.Randomize call and an addrmap bank choice need
// from real hardware: how many activations fit in one REFRESH
// interval, and whether two rows in a candidate bank actually conflict.
// Measurer is the interface orchestrator depends on; FixedMeasurer is a
// deterministic stand-in, since real timing-histogram measurement is
// out of scope here.
package dramanalyzer
