package fuzzparams

import (
	"math/rand"
	"reflect"
	"testing"
)

// TestRandomizeIsDeterministic covers invariant 8: same seed, same
// parameters.
func TestRandomizeIsDeterministic(t *testing.T) {
	var a, b Parameters

	a.Randomize(rand.New(rand.NewSource(0x1234)), 8192)
	b.Randomize(rand.New(rand.NewSource(0x1234)), 8192)

	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected identical parameters for identical seed, got %+v vs %+v", a, b)
	}
}

func TestRandomizeAppliesTwentyPercentPad(t *testing.T) {
	var p Parameters

	p.Randomize(rand.New(rand.NewSource(1)), 1000)

	if p.NumActivationsPerRef != 1200 {
		t.Fatalf("expected 1000*1.2 = 1200, got %d", p.NumActivationsPerRef)
	}
}

func TestRandomNSidedForcesOneWhenOneSlotRemains(t *testing.T) {
	var p Parameters
	p.Randomize(rand.New(rand.NewSource(2)), 8192)

	rng := rand.New(rand.NewSource(99))
	for i := 0; i < 50; i++ {
		if n := p.RandomNSided(rng, 1); n != 1 {
			t.Fatalf("expected forced N=1 when remaining=1, got %d", n)
		}
	}
}

// TestRandomNSidedSingleAllowedValue covers boundary behavior 11.
func TestRandomNSidedSingleAllowedValue(t *testing.T) {
	p := Parameters{
		NSided: WeightedIntRange{
			Max:     1,
			Weights: map[int]int{1: 1},
		},
	}

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 20; i++ {
		if n := p.RandomNSided(rng, 10); n != 1 {
			t.Fatalf("expected deterministic N=1, got %d", n)
		}
	}
}

func TestRandomAmplitudeRespectsUpperBound(t *testing.T) {
	p := Parameters{Amplitude: Range{Min: 1, Max: 7}}

	rng := rand.New(rand.NewSource(4))
	for i := 0; i < 100; i++ {
		a := p.RandomAmplitude(rng, 3)
		if a < 1 || a > 3 {
			t.Fatalf("expected amplitude in [1,3], got %d", a)
		}
	}
}

func TestWeightedIntRangeZeroWeightFallsBackUniform(t *testing.T) {
	r := WeightedIntRange{Max: 3}

	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 50; i++ {
		v := r.Random(rng, 3)
		if v < 1 || v > 3 {
			t.Fatalf("expected value in [1,3], got %d", v)
		}
	}
}
