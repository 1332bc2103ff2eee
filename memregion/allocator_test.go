package memregion

import (
	"errors"
	"testing"
)

// fakeAllocator backs Allocate with a plain Go slice, for tests that
// only care about Allocator's contract and not real mmap behavior.
type fakeAllocator struct {
	failSize int
}

func (o *fakeAllocator) Allocate(size int) (Region, error) {
	if size == o.failSize {
		return Region{}, errors.New("fakeAllocator: forced failure")
	}
	buf := make([]byte, size)
	return Region{Base: 0, Size: size, mem: buf}, nil
}

func TestLinuxHugePageAllocatorAllocateAndRelease(t *testing.T) {
	allocator := NewLinuxHugePageAllocator()

	region, err := allocator.Allocate(1 << 20)
	if err != nil {
		t.Fatalf("allocate failed: %v", err)
	}
	if region.Base == 0 {
		t.Fatal("expected a non-zero base address")
	}
	if region.Size != 1<<20 {
		t.Fatalf("expected size %d, got %d", 1<<20, region.Size)
	}

	if err := region.Release(); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if err := region.Release(); err != errAlreadyReleased {
		t.Fatalf("expected errAlreadyReleased on double release, got %v", err)
	}
}

func TestLinuxHugePageAllocatorRejectsNonPositiveSize(t *testing.T) {
	allocator := NewLinuxHugePageAllocator()
	if _, err := allocator.Allocate(0); err == nil {
		t.Fatal("expected an error for size 0")
	}
	if _, err := allocator.Allocate(-1); err == nil {
		t.Fatal("expected an error for a negative size")
	}
}

func TestAllocateOrExitInvokesDefaultExitFnOnFailure(t *testing.T) {
	orig := DefaultExitFn
	defer func() { DefaultExitFn = orig }()

	var gotErr error
	DefaultExitFn = func(err error) { gotErr = err }

	allocator := &fakeAllocator{failSize: 128}
	AllocateOrExit(allocator, 128)

	if gotErr == nil {
		t.Fatal("expected DefaultExitFn to be invoked with an error")
	}
}

func TestAllocateOrExitReturnsRegionOnSuccess(t *testing.T) {
	allocator := &fakeAllocator{failSize: -1}
	region := AllocateOrExit(allocator, 64)
	if region.Size != 64 {
		t.Fatalf("expected size 64, got %d", region.Size)
	}
}
