// Package orchestrator sequences one fuzzing iteration: randomize
// parameters, build a pattern, map it to addresses in a bank, jit the
// hammering routine, and run it - logging each stage transition and
// applying the recovery policy spec.md §7 calls for (re-randomize on
// pattern abandonment, advance banks on candidate exhaustion, fail hard
// on a broken JIT emission).
package orchestrator
