// Package patternio persists a HammeringPattern and its AddressMappings
// to JSON and back, losslessly, so a pattern found during fuzzing can
// be replayed later without re-running the builder.
package patternio
