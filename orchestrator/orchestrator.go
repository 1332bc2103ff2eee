package orchestrator

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"

	"github.com/example/hammerfuzz/addrmap"
	"github.com/example/hammerfuzz/codejit"
	"github.com/example/hammerfuzz/dram"
	"github.com/example/hammerfuzz/dramanalyzer"
	"github.com/example/hammerfuzz/fuzzparams"
	"github.com/example/hammerfuzz/hammerpattern"
	"github.com/example/hammerfuzz/memregion"
)

// minHammeringReps and maxHammeringReps bound how far
// hammeringReps can drift as ReproducibilityScore is observed across
// iterations.
const (
	minHammeringReps = 1
	maxHammeringReps = 20
)

// Orchestrator sequences one fuzzing iteration's stages over a single
// allocated region: randomize parameters, build a pattern, map it to a
// bank, assemble the hammering routine, and run it.
type Orchestrator struct {
	cfg Config

	translator *dram.Translator
	region     memregion.Region
	numBanks   int

	measuredActsPerRef fuzzparams.MeasuredActivationsPerRef

	runtime *codejit.Runtime
	jitter  *codejit.Jitter

	hammeringReps int
}

// Bootstrap allocates a region, measures its activation rate, and
// confirms the chosen MemConfig actually induces bank conflicts on
// this machine, per spec.md §5's "process-wide state initialized once
// at startup" - expressed here as one constructed value instead of a
// process global.
func Bootstrap(cfg Config) (*Orchestrator, error) {
	cfg = cfg.withDefaults()

	memConfig, ok := cfg.Registry.Lookup(cfg.Key)
	if !ok {
		return nil, fmt.Errorf("orchestrator: no MemConfig registered for key %+v", cfg.Key)
	}

	translator := dram.NewTranslator(memConfig)

	region, err := cfg.Allocator.Allocate(cfg.RegionSize)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: failed to allocate region - %w", err)
	}
	translator.SetBase(region.Base)

	ctx := context.Background()

	measured, err := cfg.Measurer.MeasureActivationsPerRef(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: failed to measure activations per REFRESH - %w", err)
	}

	probe := func(candidateRow int) (uintptr, uintptr) {
		a := translator.ToVirt(dram.DRAMAddr{Bank: 0, Row: uint64(candidateRow), Col: 0})
		b := translator.ToVirt(dram.DRAMAddr{Bank: 0, Row: uint64(candidateRow + 2), Col: 0})
		return a, b
	}

	confirmed, err := cfg.Measurer.ConfirmBankConflicts(ctx, region, dramanalyzer.BankProbe(probe))
	if err != nil {
		return nil, fmt.Errorf("orchestrator: failed to confirm bank conflicts - %w", err)
	}
	if !confirmed {
		return nil, dram.ErrBankConflictsNotInducible
	}

	return &Orchestrator{
		cfg:                cfg,
		translator:         translator,
		region:             region,
		numBanks:           int(memConfig.BankMask) + 1,
		measuredActsPerRef: fuzzparams.MeasuredActivationsPerRef(measured),
		runtime:            codejit.NewRuntime(),
		jitter:             codejit.NewJitter(),
		hammeringReps:      cfg.InitialHammeringReps,
	}, nil
}

// IterationResult is everything one call to RunIteration produced.
type IterationResult struct {
	Pattern       *hammerpattern.HammeringPattern
	Mapping       *addrmap.Mapping
	Params        fuzzparams.Parameters
	Addresses     []uintptr
	Code          []byte
	HammeringReps int
}

// RunIteration runs one full pass of the four core stages and jits the
// resulting routine, but does not execute it - running jitted code
// requires LockOSThread discipline and real hardware, which
// RunHammering (below) applies on top of a result this method returns.
func (o *Orchestrator) RunIteration(rng *rand.Rand) (*IterationResult, error) {
	st := &stageLog{logger: o.cfg.Logger}

	st.next("randomize parameters")
	var params fuzzparams.Parameters
	params.Randomize(rng, o.measuredActsPerRef)

	st.next("build pattern")
	pattern, err := o.buildPatternWithRetries(rng, params)
	if err != nil {
		return nil, err
	}

	st.next("map addresses")
	mapping, err := o.mapAcrossBanks(rng, params, pattern)
	if err != nil {
		return nil, err
	}

	st.next("export addresses")
	addresses, err := addrmap.ExportAddresses(mapping, pattern, o.translator)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: failed to export addresses - %w", err)
	}

	st.next("assemble hammer routine")
	code, err := o.jitter.Build(o.buildEmitConfig(mapping, params, addresses))
	if err != nil {
		o.cfg.FatalFn(fmt.Errorf("orchestrator: failed to assemble hammer routine - %w", err))
		return nil, err
	}

	return &IterationResult{
		Pattern:       pattern,
		Mapping:       mapping,
		Params:        params,
		Addresses:     addresses,
		Code:          code,
		HammeringReps: o.hammeringReps,
	}, nil
}

// buildEmitConfig assembles the codejit.EmitConfig for addresses hammered
// out of mapping under params. NOPAddrs are drawn from rows just past
// mapping's aggressor window, so they are never touched by the pattern
// itself and stay usable as pure latency probes.
func (o *Orchestrator) buildEmitConfig(mapping *addrmap.Mapping, params fuzzparams.Parameters, addresses []uintptr) codejit.EmitConfig {
	nopAddrs := [2]uintptr{
		o.translator.ToVirt(dram.DRAMAddr{Bank: uint64(mapping.BankNo), Row: uint64(mapping.MaxRow + 4), Col: 0}),
		o.translator.ToVirt(dram.DRAMAddr{Bank: uint64(mapping.BankNo), Row: uint64(mapping.MaxRow + 6), Col: 0}),
	}
	return codejit.EmitConfig{
		NOPAddrs:            nopAddrs,
		Addresses:           addresses,
		AggRounds:           params.AggRounds,
		NumRefreshIntervals: params.NumRefreshIntervals,
		Flushing:            params.FlushingStrategy,
		Fencing:             params.FencingStrategy,
		Strategy:            params.HammeringStrategy,
	}
}

// buildPatternWithRetries builds a frequency-based pattern, re-drawing
// fresh parameters and retrying on hammerpattern.ErrPatternAbandoned,
// per spec.md §7's recovery policy for exhausted slot-filling.
func (o *Orchestrator) buildPatternWithRetries(rng *rand.Rand, params fuzzparams.Parameters) (*hammerpattern.HammeringPattern, error) {
	builder := hammerpattern.NewBuilder(rng)

	for attempt := 0; attempt < o.cfg.MaxPatternRetries; attempt++ {
		pattern, err := builder.BuildFrequencyBased(params)
		if err == nil {
			return pattern, nil
		}
		if err != hammerpattern.ErrPatternAbandoned {
			return nil, err
		}

		o.cfg.Logger.Printf("pattern abandoned on attempt %d, re-randomizing", attempt+1)
		params.Randomize(rng, o.measuredActsPerRef)
	}

	return nil, fmt.Errorf("orchestrator: gave up building a pattern after %d attempts: %w",
		o.cfg.MaxPatternRetries, hammerpattern.ErrPatternAbandoned)
}

// mapAcrossBanks tries each bank in turn, advancing past any bank whose
// candidate row set is exhausted, per spec.md §7's recovery policy.
func (o *Orchestrator) mapAcrossBanks(rng *rand.Rand, params fuzzparams.Parameters, pattern *hammerpattern.HammeringPattern) (*addrmap.Mapping, error) {
	mapper := addrmap.NewMapper()

	for bank := 0; bank < o.numBanks; bank++ {
		mapping, err := mapper.Randomize(rng, params, pattern, bank)
		if err == nil {
			return mapping, nil
		}
		if err != addrmap.ErrCandidatesExhausted {
			return nil, err
		}

		o.cfg.Logger.Printf("candidates exhausted in bank %d, advancing", bank)
	}

	return nil, fmt.Errorf("orchestrator: every bank's candidate set was exhausted: %w", addrmap.ErrCandidatesExhausted)
}

// RunHammering shortens result's address sequence to fit one REFRESH
// window, emits the resulting code, invokes it result.HammeringReps
// times on a locked OS thread, and releases the code page before
// returning. It returns the routine's post-sync pass count (see
// codejit.Jitter.Build) from each repetition.
func (o *Orchestrator) RunHammering(result *IterationResult) ([]uint32, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	addresses, err := codejit.ShortenToFitRefresh(
		result.Addresses,
		result.Params.NumRefreshIntervals,
		result.Params.NumActivationsPerRef,
		o.probeActivations(result.Mapping, result.Params),
	)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: failed to shorten pattern to fit one REFRESH interval - %w", err)
	}
	if len(addresses) != len(result.Addresses) {
		o.cfg.Logger.Printf("shortened pattern from %d to %d addresses to fit one REFRESH interval",
			len(result.Addresses), len(addresses))
	}

	code, err := o.jitter.Build(o.buildEmitConfig(result.Mapping, result.Params, addresses))
	if err != nil {
		return nil, fmt.Errorf("orchestrator: failed to re-assemble shortened hammer routine - %w", err)
	}

	fn, err := o.runtime.Emit(code)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: failed to emit hammer routine - %w", err)
	}
	defer o.runtime.Release(fn)

	counts := make([]uint32, result.HammeringReps)
	for i := 0; i < result.HammeringReps; i++ {
		counts[i] = fn()
	}

	return counts, nil
}

// probeActivations returns a codejit.Probe that measures a candidate
// address sequence on real hardware: it assembles a routine over that
// sequence with mapping and params otherwise held fixed, runs it once on
// the already-locked OS thread, and releases the code page before
// reporting the post-sync pass count the routine returned.
//
// This probe is only ever called from inside ShortenToFitRefresh's
// trimming loop, which always has an address sequence to measure, so a
// probe failure here means the routine itself could not be built or run
// - not that shortening ran out of addresses.
func (o *Orchestrator) probeActivations(mapping *addrmap.Mapping, params fuzzparams.Parameters) codejit.Probe {
	return func(addresses []uintptr) (int, error) {
		code, err := o.jitter.Build(o.buildEmitConfig(mapping, params, addresses))
		if err != nil {
			return 0, fmt.Errorf("orchestrator: probe failed to assemble candidate routine - %w", err)
		}

		fn, err := o.runtime.Emit(code)
		if err != nil {
			return 0, fmt.Errorf("orchestrator: probe failed to emit candidate routine - %w", err)
		}
		defer o.runtime.Release(fn)

		return int(fn()), nil
	}
}

// AdjustHammeringReps updates the number of times the next mapping is
// hammered based on how reproducible this one's flips turned out to
// be: a low score means more repetitions are worth spending on mappings
// like this one, a high score means fewer are needed.
func (o *Orchestrator) AdjustHammeringReps(score float64) {
	switch {
	case score < 0:
		return // unmeasured; leave hammeringReps as is.
	case score < 0.3:
		o.hammeringReps++
	case score > 0.8 && o.hammeringReps > minHammeringReps:
		o.hammeringReps--
	}

	if o.hammeringReps > maxHammeringReps {
		o.hammeringReps = maxHammeringReps
	}
	if o.hammeringReps < minHammeringReps {
		o.hammeringReps = minHammeringReps
	}
}

// RunIterationOrExit is RunIteration, with Config.FatalFn invoked on
// failure instead of an error return.
func (o *Orchestrator) RunIterationOrExit(rng *rand.Rand) *IterationResult {
	result, err := o.RunIteration(rng)
	if err != nil {
		o.cfg.FatalFn(err)
	}
	return result
}
