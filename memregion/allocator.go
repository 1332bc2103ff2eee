package memregion

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

var errAlreadyReleased = errors.New("memregion: region already released")

// Allocator reserves a Region large enough to hold size bytes.
// orchestrator depends on this interface, never on a concrete
// implementation, so that tests can substitute a Region backed by a
// plain Go slice instead of a real mmap.
type Allocator interface {
	Allocate(size int) (Region, error)
}

// LinuxHugePageAllocator reserves regions from an anonymous MAP_HUGETLB
// mapping, the kind of backing store the rowhammer literature assumes,
// locked so it is never swapped out mid-hammer. When huge pages are not
// available it falls back to an ordinary anonymous mapping, which is
// not huge-page backed.
type LinuxHugePageAllocator struct{}

// NewLinuxHugePageAllocator returns a LinuxHugePageAllocator.
func NewLinuxHugePageAllocator() *LinuxHugePageAllocator {
	return &LinuxHugePageAllocator{}
}

// Allocate maps and locks a size-byte anonymous region, huge page backed
// when the kernel grants MAP_HUGETLB.
func (o *LinuxHugePageAllocator) Allocate(size int) (Region, error) {
	if size <= 0 {
		return Region{}, fmt.Errorf("memregion: size must be positive, got %d", size)
	}

	mem, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON|unix.MAP_HUGETLB)
	if err != nil {
		// Huge pages may not be configured on this machine; fall back to
		// an ordinary anonymous mapping rather than failing outright.
		mem, err = unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
		if err != nil {
			return Region{}, fmt.Errorf("memregion: failed to map %d bytes - %w", size, err)
		}
	}

	if err := unix.Mlock(mem); err != nil {
		_ = unix.Munmap(mem)
		return Region{}, fmt.Errorf("memregion: failed to lock %d bytes - %w", size, err)
	}

	return Region{
		Base: uintptr(unsafe.Pointer(&mem[0])),
		Size: size,
		mem:  mem,
	}, nil
}

// AllocateOrExit is Allocate, with DefaultExitFn invoked on failure
// instead of an error return, for CLI callers that treat an allocation
// failure as unrecoverable.
func AllocateOrExit(allocator Allocator, size int) Region {
	region, err := allocator.Allocate(size)
	if err != nil {
		DefaultExitFn(err)
	}
	return region
}
