package hammerpattern

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/example/hammerfuzz/fuzzparams"
)

// ErrPatternAbandoned is returned when slot-filling fails to saturate a
// base-period subsequence within maxTriesPerSlot attempts. The caller
// should re-randomize fuzzparams.Parameters and try again; the core
// never partially succeeds.
var ErrPatternAbandoned = errors.New("hammerpattern: pattern abandoned after exceeding max tries")

// maxTriesPerSlot bounds the number of times the fill loop may draw a
// new multiplier for one base-period starting slot before giving up.
const maxTriesPerSlot = 1000

// Builder encapsulates the mutable state the frequency-based and
// sequential algorithms share: the random source driving every draw,
// and the cyclic counter used to allocate fresh aggressor IDs. Nothing
// about a Builder is package-level state, so distinct builders can run
// concurrently with independent seeds.
type Builder struct {
	rng                *rand.Rand
	aggressorIDCounter int
}

// NewBuilder returns a Builder whose every random draw comes from rng.
// The aggressor ID counter starts at 1, matching get_n_aggressors's
// initial counter in the reference implementation.
func NewBuilder(rng *rand.Rand) *Builder {
	return &Builder{rng: rng, aggressorIDCounter: 1}
}

// nextAggressors allocates n fresh aggressor IDs from the builder's
// cyclic counter, wrapping modulo numAggressors. The counter persists
// across calls within one Builder, matching get_n_aggressors.
func (o *Builder) nextAggressors(n, numAggressors int) []Aggressor {
	aggs := make([]Aggressor, 0, n)

	for added := 0; added < n; added++ {
		aggs = append(aggs, Aggressor{ID: o.aggressorIDCounter})
		o.aggressorIDCounter = (o.aggressorIDCounter + 1) % numAggressors
	}

	return aggs
}

// randomInstanceID returns a hex-encoded random 64-bit identifier.
func (o *Builder) randomInstanceID() string {
	return fmt.Sprintf("%016x", o.rng.Uint64())
}

// randomGaussianIndex draws an index in [0, n) from a normal
// distribution centered on the middle of the list, rejection-sampled
// until the draw lands inside range. n must be > 0.
func randomGaussianIndex(rng *rand.Rand, n int) int {
	var mean float64
	if n%2 == 0 {
		mean = float64(n)/2 - 1
	} else {
		mean = float64(n-1) / 2
	}

	for {
		x := mean + rng.NormFloat64()
		if x < 0 {
			continue
		}

		idx := int(x)
		if idx < n {
			return idx
		}
	}
}

// removeSmallerThan returns the subset of vals >= n, preserving order.
// Used to enforce that once a multiplier m has been chosen for a
// starting slot, every subsequent fill for that slot uses a period no
// smaller than m's (a multiple of it), so that fills nest instead of
// colliding.
func removeSmallerThan(vals []int, n int) []int {
	out := vals[:0:0]
	for _, v := range vals {
		if v >= n {
			out = append(out, v)
		}
	}
	return out
}

// findUnfilledSlot scans the base-period-strided subsequence starting
// at offset for the first slot still holding PlaceholderAggressorID. It
// returns -1 if the whole subsequence is saturated.
func findUnfilledSlot(offset, period, patternLength int, accesses []Aggressor) int {
	for i := 0; ; i++ {
		idx := offset + i*period
		if idx >= patternLength {
			return -1
		}
		if accesses[idx].IsPlaceholder() {
			return idx
		}
	}
}

// fillSlots writes aggressors into accesses starting at startOffset,
// repeating every period slots, each occurrence repeated amplitude
// times back-to-back. It stops without error once it would write past
// patternLength.
func fillSlots(startOffset, period, amplitude int, aggressors []Aggressor, accesses []Aggressor, patternLength int) {
	for idx := startOffset; idx < patternLength; idx += period {
		for j := 0; j < amplitude; j++ {
			for a, agg := range aggressors {
				target := idx + len(aggressors)*j + a
				if target >= patternLength {
					return
				}
				accesses[target] = agg
			}
		}
	}
}

// powersOfTwoUpTo returns {1, 2, 4, ...} stopping at the largest power
// of two <= max. max must be >= 1.
func powersOfTwoUpTo(max int) []int {
	out := []int{1}
	for out[len(out)-1]*2 <= max {
		out = append(out, out[len(out)-1]*2)
	}
	return out
}

// BuildFrequencyBased runs the frequency-based composition algorithm:
// it fills every slot of a total_acts_pattern-length sequence with
// aggressor IDs drawn at power-of-two multiples of params.BasePeriod,
// maximizing the diversity of (period, amplitude) combinations aliased
// into a single REFRESH window.
func (o *Builder) BuildFrequencyBased(params fuzzparams.Parameters) (*HammeringPattern, error) {
	patternLength := params.TotalActsPattern
	basePeriod := params.BasePeriod
	numBasePeriods := patternLength / basePeriod

	accesses := make([]Aggressor, patternLength)
	for i := range accesses {
		accesses[i] = Aggressor{ID: PlaceholderAggressorID}
	}

	multipliers := powersOfTwoUpTo(numBasePeriods)

	pattern := &HammeringPattern{
		InstanceID: o.randomInstanceID(),
		BasePeriod: basePeriod,
		MaxPeriod:  multipliers[len(multipliers)-1] * basePeriod,
	}

	for k := 0; k < basePeriod; k++ {
		if !accesses[k].IsPlaceholder() {
			continue
		}

		curMultipliers := append([]int(nil), multipliers...)

		m := curMultipliers[randomGaussianIndex(o.rng, len(curMultipliers))]
		curMultipliers = removeSmallerThan(curMultipliers, m)
		curPeriod := basePeriod * m

		remaining := basePeriod - k
		n := params.RandomNSided(o.rng, remaining)
		amplitude := params.RandomAmplitude(o.rng, remaining/n)

		aggs := o.nextAggressors(n, params.NumAggressors)
		pattern.AggAccessPatterns = append(pattern.AggAccessPatterns, AggressorAccessPattern{
			Period:     curPeriod,
			Amplitude:  amplitude,
			Aggressors: aggs,
			Offset:     k,
		})
		fillSlots(k, curPeriod, amplitude, aggs, accesses, patternLength)

		tries := 0
		for {
			next := findUnfilledSlot(k, basePeriod, patternLength, accesses)
			if next == -1 {
				break
			}

			tries++
			if tries > maxTriesPerSlot {
				return nil, ErrPatternAbandoned
			}

			m = curMultipliers[randomGaussianIndex(o.rng, len(curMultipliers))]
			curMultipliers = removeSmallerThan(curMultipliers, m)
			curPeriod = basePeriod * m

			aggs = o.nextAggressors(n, params.NumAggressors)
			pattern.AggAccessPatterns = append(pattern.AggAccessPatterns, AggressorAccessPattern{
				Period:     curPeriod,
				Amplitude:  amplitude,
				Aggressors: aggs,
				Offset:     next,
			})
			fillSlots(next, curPeriod, amplitude, aggs, accesses, patternLength)
		}
	}

	pattern.Accesses = accesses

	return pattern, nil
}

// BuildSequential is the baseline variant: it picks aggressors
// row-linearly, growing the tuple size by one after each tuple is
// placed, wrapping back to N=1 once the N-sided ceiling is hit, until
// the whole pattern is filled.
func (o *Builder) BuildSequential(params fuzzparams.Parameters) (*HammeringPattern, error) {
	patternLength := params.TotalActsPattern

	accesses := make([]Aggressor, patternLength)
	for i := range accesses {
		accesses[i] = Aggressor{ID: PlaceholderAggressorID}
	}

	pattern := &HammeringPattern{
		InstanceID: o.randomInstanceID(),
		BasePeriod: params.BasePeriod,
		MaxPeriod:  patternLength,
	}

	n := 1
	pos := 0
	for pos < patternLength {
		remaining := patternLength - pos
		if n > remaining {
			n = remaining
		}

		aggs := o.nextAggressors(n, params.NumAggressors)
		pattern.AggAccessPatterns = append(pattern.AggAccessPatterns, AggressorAccessPattern{
			Period:     patternLength,
			Amplitude:  1,
			Aggressors: aggs,
			Offset:     pos,
		})

		for i, agg := range aggs {
			accesses[pos+i] = agg
		}

		pos += n
		n++
		if n > params.NSided.Max {
			n = 1
		}
	}

	pattern.Accesses = accesses

	return pattern, nil
}
