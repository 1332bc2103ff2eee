package codejit

import (
	"fmt"

	"github.com/example/hammerfuzz/fuzzparams"
)

// EmitConfig describes one hammering routine to assemble. Addresses is
// the fully flattened, already-mapped access sequence an
// addrmap.Mapping produced for one pattern; NOPAddrs are two
// not-otherwise-accessed addresses used purely to measure elapsed
// accesses during the sync phases.
type EmitConfig struct {
	NOPAddrs            [2]uintptr
	Addresses           []uintptr
	AggRounds           int
	NumRefreshIntervals int
	Flushing            fuzzparams.FlushingStrategy
	Fencing             fuzzparams.FencingStrategy
	Strategy            fuzzparams.HammeringStrategy
}

// Jitter assembles the three-phase hammering routine - pre-sync to a
// REFRESH boundary, the hammering rounds themselves, and a post-sync
// that also counts its NOP-probe passes until the next REFRESH - into
// machine code ready for a Runtime to map and run.
type Jitter struct{}

// NewJitter returns a Jitter.
func NewJitter() *Jitter {
	return &Jitter{}
}

// Build assembles cfg into machine code. The returned routine takes no
// arguments and returns, in eax, the number of post-hammer sync passes
// (NOP-pair touches) that completed without detecting a REFRESH, summed
// over every refresh interval.
func (o *Jitter) Build(cfg EmitConfig) ([]byte, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("codejit: cannot build a routine with no addresses")
	}
	if cfg.NumRefreshIntervals <= 0 {
		return nil, fmt.Errorf("codejit: NumRefreshIntervals must be positive")
	}

	a := NewAssembler()

	emitSyncBlock(a, cfg.NOPAddrs, "presync_begin", "presync_end", false)

	a.MovRegImm64(RSI, uint64(cfg.NumRefreshIntervals))
	a.MovRegImm32(EDX, 0)

	a.Label("refresh_loop_begin")
	a.CmpImm32(RSI, 0)
	a.Jz("refresh_loop_end")
	a.Dec(RSI)

	effectiveRounds := cfg.AggRounds
	if cfg.Strategy == fuzzparams.Strict {
		effectiveRounds = 1
	}
	if effectiveRounds <= 0 {
		effectiveRounds = 1
	}

	for i := 0; i < effectiveRounds; i++ {
		emitHammerRound(a, cfg.Addresses, cfg.Flushing, cfg.Fencing)
	}

	emitSyncBlock(a, cfg.NOPAddrs, "postsync_begin", "postsync_end", true)

	a.Jmp("refresh_loop_begin")
	a.Label("refresh_loop_end")

	a.MovRegReg(EAX, EDX)
	a.Ret()

	return a.Assemble()
}

// emitSyncBlock assembles a spin-loop that busy-waits for the next
// REFRESH boundary, detected by a sudden jump in the access latency to
// nopAddrs. When countRefreshes is true each pass that does not detect
// a REFRESH also increments edx, the running pass counter the outer
// routine returns.
func emitSyncBlock(a *Assembler, nopAddrs [2]uintptr, begin, end string, countRefreshes bool) {
	const latencyThreshold = 1000

	a.Label(begin)

	a.MovRegImm64(RAX, uint64(nopAddrs[0]))
	a.ClFlushOpt(RAX)
	a.MovRegImm64(RAX, uint64(nopAddrs[1]))
	a.ClFlushOpt(RAX)
	a.MFence()

	// rdtscp clobbers edx (the high half of the TSC) on every call, but
	// edx also holds the running pass counter across loop iterations
	// once countRefreshes is true - save and restore it around each use.
	a.Push(RDX)
	a.Rdtscp()
	a.Pop(RDX)
	a.MovRegReg(EBX, EAX)
	a.LFence()

	a.MovRegImm64(RAX, uint64(nopAddrs[0]))
	a.MovRegMem(RCX, RAX)
	a.MovRegImm64(RAX, uint64(nopAddrs[1]))
	a.MovRegMem(RCX, RAX)

	a.Push(RDX)
	a.Rdtscp()
	a.Pop(RDX)
	a.LFence()

	a.Sub(EAX, EBX)
	a.CmpImm32(EAX, latencyThreshold)
	a.Jg(end)

	if countRefreshes {
		a.Inc(EDX)
	}

	a.Jmp(begin)
	a.Label(end)
}

// emitHammerRound assembles one pass of access-then-flush over every
// address in addresses. flushing controls whether each address's flush
// is interleaved immediately after its access (FlushEarliest) or
// batched after every address has been touched (FlushLatest); fencing
// is the analogous choice for where mfence is placed.
func emitHammerRound(a *Assembler, addresses []uintptr, flushing fuzzparams.FlushingStrategy, fencing fuzzparams.FencingStrategy) {
	emitFence := func() {
		if fencing == fuzzparams.FenceEarliest {
			a.MFence()
		}
	}

	switch flushing {
	case fuzzparams.FlushEarliest:
		for _, addr := range addresses {
			a.MovRegImm64(RAX, uint64(addr))
			a.MovRegMem(RBX, RAX)
			a.ClFlushOpt(RAX)
			emitFence()
		}
	default: // FlushLatest
		for _, addr := range addresses {
			a.MovRegImm64(RAX, uint64(addr))
			a.MovRegMem(RBX, RAX)
		}
		for _, addr := range addresses {
			a.MovRegImm64(RAX, uint64(addr))
			a.ClFlushOpt(RAX)
			emitFence()
		}
	}

	if fencing == fuzzparams.FenceLatest {
		a.MFence()
	}
}
