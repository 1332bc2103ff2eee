// Package addrmap binds the abstract aggressor IDs in a
// hammerpattern.HammeringPattern to concrete DRAMAddr rows inside a
// chosen bank, respecting the inter- and intra-tuple row spacing a
// fuzzparams.Parameters calls for.
//
// A Mapping never holds a pointer back to its owning pattern - only the
// pattern's InstanceID - so that mappings can be persisted and replayed
// independently of any particular HammeringPattern value in memory.
package addrmap
