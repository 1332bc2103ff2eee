// Package memregion provides the hammering region a pattern's
// addresses are mapped into. Allocator is the interface orchestrator
// depends on; LinuxHugePageAllocator is a real, minimal default so the
// pipeline can run end to end on an actual machine rather than stopping
// at an interface boundary.
package memregion
