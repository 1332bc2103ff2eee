// Package hammerpattern builds an abstract HammeringPattern: a sequence
// of aggressor IDs, one per activation slot, composed from a set of
// AggressorAccessPatterns at power-of-two multiples of a base period.
//
// Builder encapsulates all of the algorithm's mutable state - the
// random source and the cyclic aggressor ID counter - so that no
// package-level state leaks between independently seeded builds.
package hammerpattern
