package hammerpattern

import (
	"math/rand"
	"testing"

	"github.com/example/hammerfuzz/fuzzparams"
)

func testParams(rng *rand.Rand) fuzzparams.Parameters {
	var p fuzzparams.Parameters
	p.Randomize(rng, 8192)
	return p
}

// TestBuildFrequencyBasedHasNoPlaceholders covers invariant 3.
func TestBuildFrequencyBasedHasNoPlaceholders(t *testing.T) {
	rng := rand.New(rand.NewSource(0x1234))
	params := testParams(rng)

	b := NewBuilder(rng)
	pattern, err := b.BuildFrequencyBased(params)
	if err != nil {
		t.Fatal(err)
	}

	if pattern.HasPlaceholders() {
		t.Fatal("expected a fully filled pattern")
	}

	if len(pattern.Accesses) != params.TotalActsPattern {
		t.Fatalf("expected %d accesses, got %d", params.TotalActsPattern, len(pattern.Accesses))
	}
}

// TestBuildFrequencyBasedDeterministic covers invariant 8.
func TestBuildFrequencyBasedDeterministic(t *testing.T) {
	params := fuzzparams.Parameters{}
	params.Randomize(rand.New(rand.NewSource(0x1234)), 8192)

	b1 := NewBuilder(rand.New(rand.NewSource(0x5678)))
	p1, err := b1.BuildFrequencyBased(params)
	if err != nil {
		t.Fatal(err)
	}

	b2 := NewBuilder(rand.New(rand.NewSource(0x5678)))
	p2, err := b2.BuildFrequencyBased(params)
	if err != nil {
		t.Fatal(err)
	}

	if len(p1.Accesses) != len(p2.Accesses) {
		t.Fatalf("length mismatch: %d vs %d", len(p1.Accesses), len(p2.Accesses))
	}
	for i := range p1.Accesses {
		if p1.Accesses[i] != p2.Accesses[i] {
			t.Fatalf("accesses diverged at index %d: %+v vs %+v", i, p1.Accesses[i], p2.Accesses[i])
		}
	}
}

// TestBuildFrequencyBasedBasePeriodOne covers boundary behavior 9: every
// resulting AggressorAccessPattern degenerates to a single 1-sided,
// amplitude-1 occurrence.
func TestBuildFrequencyBasedBasePeriodOne(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	params := testParams(rng)
	params.BasePeriod = 1
	params.TotalActsPattern = params.NumActivationsPerRef * params.NumRefreshIntervals

	b := NewBuilder(rng)
	pattern, err := b.BuildFrequencyBased(params)
	if err != nil {
		t.Fatal(err)
	}

	if pattern.HasPlaceholders() {
		t.Fatal("expected a fully filled pattern")
	}

	for _, aap := range pattern.AggAccessPatterns {
		if len(aap.Aggressors) != 1 {
			t.Fatalf("expected N=1 for every access pattern when base_period=1, got %d", len(aap.Aggressors))
		}
		if aap.Amplitude != 1 {
			t.Fatalf("expected amplitude=1 for every access pattern when base_period=1, got %d", aap.Amplitude)
		}
	}
}

// TestBuildFrequencyBasedNumRefreshIntervalsOne covers boundary
// behavior 10 at the pattern-building layer: a single REFRESH interval
// still yields a fully filled pattern.
func TestBuildFrequencyBasedNumRefreshIntervalsOne(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	params := testParams(rng)
	params.NumRefreshIntervals = 1
	params.TotalActsPattern = params.NumActivationsPerRef

	b := NewBuilder(rng)
	pattern, err := b.BuildFrequencyBased(params)
	if err != nil {
		t.Fatal(err)
	}

	if pattern.HasPlaceholders() {
		t.Fatal("expected a fully filled pattern")
	}
}

// TestBuildFrequencyBasedSingleNSidedValue covers boundary behavior 11.
func TestBuildFrequencyBasedSingleNSidedValue(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	params := testParams(rng)
	params.NSided = fuzzparams.WeightedIntRange{
		Max:     1,
		Weights: map[int]int{1: 1},
	}

	b := NewBuilder(rng)
	pattern, err := b.BuildFrequencyBased(params)
	if err != nil {
		t.Fatal(err)
	}

	for _, aap := range pattern.AggAccessPatterns {
		if len(aap.Aggressors) != 1 {
			t.Fatalf("expected every tuple to be 1-sided, got N=%d", len(aap.Aggressors))
		}
	}
}

// TestBuildFrequencyBasedClaimedSlotsInRange covers invariant 4.
func TestBuildFrequencyBasedClaimedSlotsInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	params := testParams(rng)

	b := NewBuilder(rng)
	pattern, err := b.BuildFrequencyBased(params)
	if err != nil {
		t.Fatal(err)
	}

	for _, aap := range pattern.AggAccessPatterns {
		if aap.Offset < 0 || aap.Offset >= params.TotalActsPattern {
			t.Fatalf("offset %d out of range [0, %d)", aap.Offset, params.TotalActsPattern)
		}
	}
}

func TestBuildSequentialHasNoPlaceholders(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	params := testParams(rng)

	b := NewBuilder(rng)
	pattern, err := b.BuildSequential(params)
	if err != nil {
		t.Fatal(err)
	}

	if pattern.HasPlaceholders() {
		t.Fatal("expected a fully filled pattern")
	}
	if len(pattern.Accesses) != params.TotalActsPattern {
		t.Fatalf("expected %d accesses, got %d", params.TotalActsPattern, len(pattern.Accesses))
	}
}

func TestNextAggressorsWrapsModularly(t *testing.T) {
	b := NewBuilder(rand.New(rand.NewSource(1)))

	aggs := b.nextAggressors(5, 3)

	want := []int{1, 2, 0, 1, 2}
	for i, agg := range aggs {
		if agg.ID != want[i] {
			t.Fatalf("index %d: expected ID %d, got %d", i, want[i], agg.ID)
		}
	}
}

func TestFillSlotsStopsAtPatternLength(t *testing.T) {
	accesses := make([]Aggressor, 10)
	for i := range accesses {
		accesses[i] = Aggressor{ID: PlaceholderAggressorID}
	}

	// The second amplitude repetition would start at slot 10, past the
	// end of the pattern, so fillSlots must stop after slots 8 and 9.
	fillSlots(8, 2, 2, []Aggressor{{ID: 1}, {ID: 2}}, accesses, 10)

	if accesses[8].ID != 1 || accesses[9].ID != 2 {
		t.Fatalf("expected slots 8,9 filled, got %+v", accesses[8:10])
	}
}

func TestFindUnfilledSlot(t *testing.T) {
	accesses := []Aggressor{{ID: 1}, {ID: PlaceholderAggressorID}, {ID: 2}, {ID: PlaceholderAggressorID}}

	if got := findUnfilledSlot(0, 1, 4, accesses); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if got := findUnfilledSlot(0, 2, 4, accesses); got != -1 {
		t.Fatalf("expected -1 (0 and 2 both filled), got %d", got)
	}
}

func TestRemoveSmallerThan(t *testing.T) {
	got := removeSmallerThan([]int{1, 2, 4, 8}, 4)

	want := []int{4, 8}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestRandomGaussianIndexStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		idx := randomGaussianIndex(rng, 5)
		if idx < 0 || idx >= 5 {
			t.Fatalf("index %d out of range [0,5)", idx)
		}
	}
}

func TestPowersOfTwoUpTo(t *testing.T) {
	got := powersOfTwoUpTo(4)
	want := []int{1, 2, 4}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

// TestBuildFrequencyBasedPowerOfTwoPeriods covers end-to-end scenario
// E2: with base_period=64 and num_base_periods=4, every access
// pattern's period is drawn from {64, 128, 256}.
func TestBuildFrequencyBasedPowerOfTwoPeriods(t *testing.T) {
	rng := rand.New(rand.NewSource(0x1234))

	params := fuzzparams.Parameters{
		NumActivationsPerRef: 64,
		NumRefreshIntervals:  4,
		BasePeriod:           64,
		TotalActsPattern:     256,
		NSided: fuzzparams.WeightedIntRange{
			Max:     2,
			Weights: map[int]int{1: 2, 2: 8},
		},
		Amplitude:     fuzzparams.Range{Min: 1, Max: 7},
		NumAggressors: 8,
	}

	b := NewBuilder(rng)
	pattern, err := b.BuildFrequencyBased(params)
	if err != nil {
		t.Fatal(err)
	}

	if pattern.HasPlaceholders() {
		t.Fatal("expected every slot filled")
	}

	allowed := map[int]bool{64: true, 128: true, 256: true}
	for _, aap := range pattern.AggAccessPatterns {
		if !allowed[aap.Period] {
			t.Fatalf("unexpected period %d, want one of {64,128,256}", aap.Period)
		}
	}
}
