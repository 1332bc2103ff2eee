package fuzzparams

import "math/rand"

// Range is an inclusive [Min, Max] integer range.
type Range struct {
	Min int
	Max int
}

// Random draws a uniformly distributed value from the range.
func (o Range) Random(rng *rand.Rand) int {
	if o.Max <= o.Min {
		return o.Min
	}

	return o.Min + rng.Intn(o.Max-o.Min+1)
}

// Clamp returns v constrained to [Min, Max].
func (o Range) Clamp(v int) int {
	if v < o.Min {
		return o.Min
	}
	if v > o.Max {
		return o.Max
	}
	return v
}

// WeightedIntRange is an inclusive [1, Max] range plus a weight per
// value, used to bias N_sided draws toward the values an operator has
// found more productive (mirroring build_distribution's discrete
// distribution). Values with no entry in Weights get weight zero and
// are never drawn unless every candidate up to a caller's upper bound
// has weight zero, in which case the draw is uniform.
type WeightedIntRange struct {
	Max     int
	Weights map[int]int
}

// Random draws a value in [1, upperBound] (upperBound is clamped to
// Max), biased by Weights. If every candidate has weight zero, it falls
// back to a uniform draw so the distribution can never get stuck.
func (o WeightedIntRange) Random(rng *rand.Rand, upperBound int) int {
	if upperBound > o.Max {
		upperBound = o.Max
	}
	if upperBound < 1 {
		return 1
	}

	total := 0
	for n := 1; n <= upperBound; n++ {
		total += o.Weights[n]
	}

	if total == 0 {
		return 1 + rng.Intn(upperBound)
	}

	draw := rng.Intn(total)
	for n := 1; n <= upperBound; n++ {
		w := o.Weights[n]
		if draw < w {
			return n
		}
		draw -= w
	}

	return upperBound
}
