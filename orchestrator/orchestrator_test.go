package orchestrator

import (
	"math/rand"
	"testing"

	"github.com/example/hammerfuzz/dram"
	"github.com/example/hammerfuzz/dramanalyzer"
	"github.com/example/hammerfuzz/fuzzparams"
	"github.com/example/hammerfuzz/hammerpattern"
	"github.com/example/hammerfuzz/memregion"
)

// fakeAllocator satisfies memregion.Allocator with a bare Region backed
// by no real mapping, so Bootstrap can run without touching the kernel.
// Its Base is a plausible-looking but entirely fictitious address:
// nothing in these tests dereferences it.
type fakeAllocator struct {
	size int
}

func (o fakeAllocator) Allocate(size int) (memregion.Region, error) {
	return memregion.Region{Base: 0x7f0000000000, Size: size}, nil
}

func testConfig() Config {
	return Config{
		Allocator:            fakeAllocator{size: 1 << 20},
		Measurer:             dramanalyzer.NewFixedMeasurer(8192, true),
		Registry:             dram.NewRegistry(),
		Key:                  dram.Key{Channels: 1, DIMMs: 1, Ranks: 1, Banks: 16},
		RegionSize:           1 << 20,
		MaxPatternRetries:    5,
		InitialHammeringReps: 3,
	}
}

func TestBootstrapFailsForUnknownKey(t *testing.T) {
	cfg := testConfig()
	cfg.Key = dram.Key{Channels: 9, DIMMs: 9, Ranks: 9, Banks: 9}

	if _, err := Bootstrap(cfg); err == nil {
		t.Fatal("expected an error for an unregistered key")
	}
}

func TestBootstrapFailsWhenConflictsNotConfirmed(t *testing.T) {
	cfg := testConfig()
	cfg.Measurer = dramanalyzer.NewFixedMeasurer(8192, false)

	if _, err := Bootstrap(cfg); err != dram.ErrBankConflictsNotInducible {
		t.Fatalf("expected ErrBankConflictsNotInducible, got %v", err)
	}
}

func TestBootstrapSucceedsForARegisteredKey(t *testing.T) {
	cfg := testConfig()

	o, err := Bootstrap(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if o.numBanks != 16 {
		t.Fatalf("expected 16 banks, got %d", o.numBanks)
	}
	if o.hammeringReps != cfg.InitialHammeringReps {
		t.Fatalf("expected initial hammeringReps %d, got %d", cfg.InitialHammeringReps, o.hammeringReps)
	}
}

func TestRunIterationProducesAHammerRoutine(t *testing.T) {
	o, err := Bootstrap(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	result, err := o.RunIteration(rand.New(rand.NewSource(0x1234)))
	if err != nil {
		t.Fatal(err)
	}

	if result.Pattern == nil || result.Mapping == nil {
		t.Fatal("expected a pattern and mapping")
	}
	if len(result.Addresses) == 0 {
		t.Fatal("expected a non-empty exported address sequence")
	}
	if len(result.Code) == 0 {
		t.Fatal("expected non-empty assembled code")
	}
	if result.HammeringReps != 3 {
		t.Fatalf("expected 3 reps, got %d", result.HammeringReps)
	}
}

func TestRunIterationIsDeterministicForASeed(t *testing.T) {
	o1, err := Bootstrap(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	o2, err := Bootstrap(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	r1, err := o1.RunIteration(rand.New(rand.NewSource(0x1234)))
	if err != nil {
		t.Fatal(err)
	}
	r2, err := o2.RunIteration(rand.New(rand.NewSource(0x1234)))
	if err != nil {
		t.Fatal(err)
	}

	if r1.Pattern.InstanceID != r2.Pattern.InstanceID {
		t.Fatalf("expected identical instance IDs for identical seeds, got %q vs %q",
			r1.Pattern.InstanceID, r2.Pattern.InstanceID)
	}
	if len(r1.Code) != len(r2.Code) {
		t.Fatalf("expected identical code length for identical seeds, got %d vs %d", len(r1.Code), len(r2.Code))
	}
	for i := range r1.Code {
		if r1.Code[i] != r2.Code[i] {
			t.Fatalf("code diverged at byte %d for identical seeds", i)
		}
	}
}

func TestAdjustHammeringRepsRespectsBounds(t *testing.T) {
	o, err := Bootstrap(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	o.hammeringReps = maxHammeringReps
	o.AdjustHammeringReps(0.0)
	if o.hammeringReps != maxHammeringReps {
		t.Fatalf("expected hammeringReps to stay capped at %d, got %d", maxHammeringReps, o.hammeringReps)
	}

	o.hammeringReps = minHammeringReps
	o.AdjustHammeringReps(1.0)
	if o.hammeringReps != minHammeringReps {
		t.Fatalf("expected hammeringReps to stay floored at %d, got %d", minHammeringReps, o.hammeringReps)
	}

	o.hammeringReps = 5
	o.AdjustHammeringReps(-1)
	if o.hammeringReps != 5 {
		t.Fatalf("expected an unmeasured score to leave hammeringReps unchanged, got %d", o.hammeringReps)
	}
}

func TestAdjustHammeringRepsIncreasesOnLowScore(t *testing.T) {
	o, err := Bootstrap(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	o.hammeringReps = 5
	o.AdjustHammeringReps(0.1)
	if o.hammeringReps != 6 {
		t.Fatalf("expected hammeringReps to increase to 6, got %d", o.hammeringReps)
	}
}

func TestAdjustHammeringRepsDecreasesOnHighScore(t *testing.T) {
	o, err := Bootstrap(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	o.hammeringReps = 5
	o.AdjustHammeringReps(0.95)
	if o.hammeringReps != 4 {
		t.Fatalf("expected hammeringReps to decrease to 4, got %d", o.hammeringReps)
	}
}

func TestMapAcrossBanksAdvancesPastExhaustedBanks(t *testing.T) {
	cfg := testConfig()
	o, err := Bootstrap(cfg)
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewSource(0x1234))
	var params fuzzparams.Parameters
	params.Randomize(rng, o.measuredActsPerRef)

	builder := hammerpattern.NewBuilder(rng)
	pattern, err := builder.BuildFrequencyBased(params)
	if err != nil {
		t.Fatal(err)
	}

	mapping, err := o.mapAcrossBanks(rng, params, pattern)
	if err != nil {
		t.Fatal(err)
	}
	if mapping.BankNo < 0 || mapping.BankNo >= o.numBanks {
		t.Fatalf("expected BankNo within [0, %d), got %d", o.numBanks, mapping.BankNo)
	}
}
