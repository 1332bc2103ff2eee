package memregion

import "golang.org/x/sys/unix"

// Region is a contiguous block of memory reserved for hammering. Base
// is the address a dram.Translator's SetBase should be called with.
type Region struct {
	Base uintptr
	Size int

	mem []byte
}

// Release unmaps the region. Calling it more than once is an error.
func (o *Region) Release() error {
	if o.mem == nil {
		return errAlreadyReleased
	}
	err := unix.Munmap(o.mem)
	o.mem = nil
	return err
}
