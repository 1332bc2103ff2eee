// Package codejit assembles and executes the x86-64 hammering routine a
// hammerpattern.HammeringPattern and addrmap.Mapping describe.
//
// It hand-encodes the small instruction set the routine needs - mov,
// cmp, sub, inc/dec, push/pop, the conditional jumps, the fence and
// cache-flush instructions, and ret - rather than pulling in a general
// assembler, because that instruction set is fixed and small enough to
// encode directly. Assembler produces the machine code; Runtime maps it
// into an executable page and binds it to a callable Go func value;
// Jitter owns the three-phase routine shape (pre-sync, hammer, post-sync)
// and the refresh-fitting feedback loop that shortens a pattern until it
// activates cleanly within one REFRESH interval.
package codejit
