// Package fuzzparams holds the randomized knobs drawn once per outer
// fuzzing iteration: amplitude and tuple-size ranges, the base period,
// the measured REFRESH window length, and the codegen strategy
// selectors that hammerpattern, addrmap, and codejit all read from.
//
// All randomness flows through a caller-supplied *rand.Rand; Parameters
// never reaches for the package-level math/rand generator, so that two
// Randomize calls with the same seed produce byte-identical parameters.
package fuzzparams
