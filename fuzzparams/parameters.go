package fuzzparams

import "math/rand"

// MeasuredActivationsPerRef is the externally measured number of row
// activations that fit into one REFRESH window on the target DIMM, as
// produced by the DRAM-analyzer contract (see the dramanalyzer
// package). It is the one value Parameters.Randomize cannot draw
// itself.
type MeasuredActivationsPerRef int

// Parameters is the typed container of every randomized knob the
// pattern builder, address mapper, and JIT read from. It is a pure
// value: nothing about it is randomized except through an explicit
// Randomize call, and Randomize takes its *rand.Rand as an argument
// rather than reaching for a package-level generator.
type Parameters struct {
	NumActivationsPerRef int
	NumRefreshIntervals  int
	BasePeriod           int
	TotalActsPattern     int

	NSided    WeightedIntRange
	Amplitude Range

	AggFrequency     Range
	AggInterDistance int
	AggIntraDistance int
	NumAggressors    int

	FlushingStrategy  FlushingStrategy
	FencingStrategy   FencingStrategy
	HammeringStrategy HammeringStrategy

	UseSequentialAggressors bool

	// AggRounds is the number of inner hammering rounds per REFRESH
	// interval (agg_rounds in the reference implementation).
	AggRounds int
}

// Randomize draws every knob in Parameters from rng, using measured as
// the externally supplied activations-per-REFRESH count. It mirrors
// randomize_parameters: the measured count is padded by 20% so the
// pattern is slightly longer than one REFRESH window, leaving room for
// the shortening feedback loop to trim it back down.
func (o *Parameters) Randomize(rng *rand.Rand, measured MeasuredActivationsPerRef) {
	o.NumActivationsPerRef = int(float64(measured) * 1.2)
	if o.NumActivationsPerRef < 1 {
		o.NumActivationsPerRef = 1
	}

	o.NumRefreshIntervals = Range{Min: 1, Max: 4}.Random(rng)
	o.BasePeriod = basePeriodRange.Random(rng)

	o.NSided = WeightedIntRange{
		Max:     2,
		Weights: map[int]int{1: 2, 2: 8},
	}
	o.Amplitude = Range{Min: 1, Max: 7}

	o.AggFrequency = Range{Min: 1, Max: 20}
	o.AggInterDistance = Range{Min: 1, Max: 4}.Random(rng)
	o.AggIntraDistance = 2
	o.NumAggressors = Range{Min: 8, Max: 22}.Random(rng)

	o.FlushingStrategy = FlushEarliest
	o.FencingStrategy = FenceLatest
	o.HammeringStrategy = HammeringStrategy(Range{Min: 0, Max: 1}.Random(rng))
	o.UseSequentialAggressors = Range{Min: 0, Max: 1}.Random(rng) == 1
	o.AggRounds = Range{Min: 3, Max: 12}.Random(rng)

	o.TotalActsPattern = o.NumActivationsPerRef * o.NumRefreshIntervals
}

// basePeriodRange bounds the finest placement granularity; it must
// divide TotalActsPattern evenly enough that num_base_periods in
// hammerpattern yields at least one power-of-two multiplier.
var basePeriodRange = Range{Min: 16, Max: 64}

// RandomNSided draws a tuple size from NSided, clamped so the tuple
// fits in the remaining run of the current base period (remaining).
// When remaining is 1 or less it returns 1 directly, matching the
// reference implementation's special case rather than relying on the
// weighted draw to land there.
func (o Parameters) RandomNSided(rng *rand.Rand, remaining int) int {
	if remaining <= 1 {
		return 1
	}

	return o.NSided.Random(rng, remaining)
}

// RandomAmplitude draws an amplitude in [1, maxAmplitude], respecting
// Amplitude's configured ceiling as well.
func (o Parameters) RandomAmplitude(rng *rand.Rand, maxAmplitude int) int {
	if maxAmplitude < 1 {
		maxAmplitude = 1
	}

	upper := o.Amplitude.Max
	if maxAmplitude < upper {
		upper = maxAmplitude
	}
	if upper < o.Amplitude.Min {
		upper = o.Amplitude.Min
	}

	return Range{Min: o.Amplitude.Min, Max: upper}.Random(rng)
}
