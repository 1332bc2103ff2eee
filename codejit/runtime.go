package codejit

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Runtime owns at most one jitted code page at a time. Emit maps a
// fresh RW page, copies code into it, then flips it to RX; Release
// unmaps it. Callers must Release the page they hold before the next
// Emit - this mirrors asmjit's JitRuntime::release contract and keeps
// this process from accumulating RX pages across fuzzing iterations.
type Runtime struct {
	active []byte
}

// NewRuntime returns a Runtime with no active page.
func NewRuntime() *Runtime {
	return &Runtime{}
}

// Emit maps code into a fresh executable page and returns it bound to
// a callable Go func value. It fails if a previous page is still
// active.
func (o *Runtime) Emit(code []byte) (func() uint32, error) {
	if o.active != nil {
		return nil, fmt.Errorf("codejit: previous code page was not released before Emit")
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("codejit: cannot emit empty code")
	}

	mem, err := unix.Mmap(-1, 0, len(code), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("codejit: failed to map code page - %w", err)
	}

	copy(mem, code)

	if err := unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		_ = unix.Munmap(mem)
		return nil, fmt.Errorf("codejit: failed to make code page executable - %w", err)
	}

	o.active = mem

	return bindActivationCounter(uintptr(unsafe.Pointer(&mem[0]))), nil
}

// Release unmaps the page bound to fn. It fails if fn was not the page
// this Runtime currently holds active.
func (o *Runtime) Release(fn func() uint32) error {
	if o.active == nil {
		return fmt.Errorf("codejit: no active code page to release")
	}
	if codePtrOf(fn) != uintptr(unsafe.Pointer(&o.active[0])) {
		return fmt.Errorf("codejit: fn does not reference this Runtime's active code page")
	}

	err := unix.Munmap(o.active)
	o.active = nil
	return err
}

// PinCurrentThreadToCPU restricts the calling OS thread to a single
// CPU, so that rdtscp-based timing probes and the hammering loop itself
// are not disturbed by a mid-run migration. Callers combine this with
// runtime.LockOSThread.
func PinCurrentThreadToCPU(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}
