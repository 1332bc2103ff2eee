package codejit

import (
	"encoding/binary"
	"fmt"
)

// Assembler builds a sequence of x86-64 machine code bytes one
// instruction at a time. Every instruction method checks and sticks an
// error the same way iokit's payload builder does: a failed call is a
// no-op on an Assembler that has already failed, and the error surfaces
// once, at Assemble.
type Assembler struct {
	buf    []byte
	labels map[string]int
	fixups []fixup
	err    error
}

type fixup struct {
	pos      int // offset of the rel32 placeholder within buf
	label    string
	instrEnd int // offset right after the rel32 field
}

// NewAssembler returns an empty Assembler.
func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]int),
	}
}

// Err returns the first error recorded by any instruction method, or
// nil if none has failed yet.
func (o *Assembler) Err() error {
	return o.err
}

func (o *Assembler) fail(err error) *Assembler {
	if o.err == nil {
		o.err = err
	}
	return o
}

func modRM(mod, reg, rm byte) byte {
	return mod<<6 | reg<<3 | rm
}

func rex(w bool) byte {
	b := byte(0x40)
	if w {
		b |= 0x08
	}
	return b
}

// Label binds name to the current end of the instruction stream. Later
// jump instructions that reference name resolve to this position.
func (o *Assembler) Label(name string) *Assembler {
	if o.err != nil {
		return o
	}
	if _, exists := o.labels[name]; exists {
		return o.fail(fmt.Errorf("codejit: label %q already bound", name))
	}
	o.labels[name] = len(o.buf)
	return o
}

// MovRegImm64 encodes "mov dst, imm64". dst must be a 64-bit register.
func (o *Assembler) MovRegImm64(dst Reg, imm uint64) *Assembler {
	if o.err != nil {
		return o
	}
	if dst.Bits != 64 {
		return o.fail(fmt.Errorf("codejit: MovRegImm64 requires a 64-bit register"))
	}
	o.buf = append(o.buf, rex(true), 0xB8+dst.Num)
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], imm)
	o.buf = append(o.buf, b[:]...)
	return o
}

// MovRegImm32 encodes "mov dst, imm32" with a zero-extending 32-bit
// write. dst must be a 32-bit register.
func (o *Assembler) MovRegImm32(dst Reg, imm uint32) *Assembler {
	if o.err != nil {
		return o
	}
	if dst.Bits != 32 {
		return o.fail(fmt.Errorf("codejit: MovRegImm32 requires a 32-bit register"))
	}
	o.buf = append(o.buf, 0xB8+dst.Num)
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], imm)
	o.buf = append(o.buf, b[:]...)
	return o
}

// MovRegReg encodes "mov dst, src". Both operands must share a width.
func (o *Assembler) MovRegReg(dst, src Reg) *Assembler {
	if o.err != nil {
		return o
	}
	if dst.Bits != src.Bits {
		return o.fail(fmt.Errorf("codejit: MovRegReg operand width mismatch"))
	}
	if dst.Bits == 64 {
		o.buf = append(o.buf, rex(true))
	}
	o.buf = append(o.buf, 0x89, modRM(3, src.Num, dst.Num))
	return o
}

// MovRegMem encodes "mov dst, [base]", a load from the address held in
// the 64-bit register base.
func (o *Assembler) MovRegMem(dst, base Reg) *Assembler {
	if o.err != nil {
		return o
	}
	if base.Bits != 64 {
		return o.fail(fmt.Errorf("codejit: MovRegMem requires a 64-bit base register"))
	}
	if dst.Bits == 64 {
		o.buf = append(o.buf, rex(true))
	}
	o.buf = append(o.buf, 0x8B, modRM(0, dst.Num, base.Num))
	return o
}

// CmpImm32 encodes "cmp dst, imm32".
func (o *Assembler) CmpImm32(dst Reg, imm uint32) *Assembler {
	if o.err != nil {
		return o
	}
	if dst.Bits == 64 {
		o.buf = append(o.buf, rex(true))
	}
	o.buf = append(o.buf, 0x81, modRM(3, 7, dst.Num))
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], imm)
	o.buf = append(o.buf, b[:]...)
	return o
}

// Sub encodes "sub dst, src" (32-bit only, which is all the routine
// below needs).
func (o *Assembler) Sub(dst, src Reg) *Assembler {
	if o.err != nil {
		return o
	}
	if dst.Bits != 32 || src.Bits != 32 {
		return o.fail(fmt.Errorf("codejit: Sub requires 32-bit operands"))
	}
	o.buf = append(o.buf, 0x29, modRM(3, src.Num, dst.Num))
	return o
}

// Dec encodes "dec dst" for a 64-bit register.
func (o *Assembler) Dec(dst Reg) *Assembler {
	if o.err != nil {
		return o
	}
	if dst.Bits != 64 {
		return o.fail(fmt.Errorf("codejit: Dec requires a 64-bit register"))
	}
	o.buf = append(o.buf, rex(true), 0xFF, modRM(3, 1, dst.Num))
	return o
}

// Inc encodes "inc dst" for a 32-bit register.
func (o *Assembler) Inc(dst Reg) *Assembler {
	if o.err != nil {
		return o
	}
	if dst.Bits != 32 {
		return o.fail(fmt.Errorf("codejit: Inc requires a 32-bit register"))
	}
	o.buf = append(o.buf, 0xFF, modRM(3, 0, dst.Num))
	return o
}

// Push encodes "push reg". In long mode push always operates on the
// full 64-bit register regardless of the width reg names.
func (o *Assembler) Push(reg Reg) *Assembler {
	if o.err != nil {
		return o
	}
	o.buf = append(o.buf, 0x50+reg.Num)
	return o
}

// Pop encodes "pop reg", the counterpart to Push.
func (o *Assembler) Pop(reg Reg) *Assembler {
	if o.err != nil {
		return o
	}
	o.buf = append(o.buf, 0x58+reg.Num)
	return o
}

func (o *Assembler) emitJump(opcode []byte, label string) *Assembler {
	if o.err != nil {
		return o
	}
	o.buf = append(o.buf, opcode...)
	pos := len(o.buf)
	o.buf = append(o.buf, 0, 0, 0, 0)
	o.fixups = append(o.fixups, fixup{pos: pos, label: label, instrEnd: pos + 4})
	return o
}

// Jmp encodes an unconditional near jump to label.
func (o *Assembler) Jmp(label string) *Assembler {
	return o.emitJump([]byte{0xE9}, label)
}

// Jz encodes "jz label".
func (o *Assembler) Jz(label string) *Assembler {
	return o.emitJump([]byte{0x0F, 0x84}, label)
}

// Jg encodes "jg label".
func (o *Assembler) Jg(label string) *Assembler {
	return o.emitJump([]byte{0x0F, 0x8F}, label)
}

// MFence encodes the mfence instruction.
func (o *Assembler) MFence() *Assembler {
	if o.err != nil {
		return o
	}
	o.buf = append(o.buf, 0x0F, 0xAE, 0xF0)
	return o
}

// LFence encodes the lfence instruction.
func (o *Assembler) LFence() *Assembler {
	if o.err != nil {
		return o
	}
	o.buf = append(o.buf, 0x0F, 0xAE, 0xE8)
	return o
}

// Rdtscp encodes rdtscp, which leaves the cycle count in edx:eax.
func (o *Assembler) Rdtscp() *Assembler {
	if o.err != nil {
		return o
	}
	o.buf = append(o.buf, 0x0F, 0x01, 0xF9)
	return o
}

// ClFlushOpt encodes "clflushopt [base]".
func (o *Assembler) ClFlushOpt(base Reg) *Assembler {
	if o.err != nil {
		return o
	}
	if base.Bits != 64 {
		return o.fail(fmt.Errorf("codejit: ClFlushOpt requires a 64-bit base register"))
	}
	o.buf = append(o.buf, 0x66, 0x0F, 0xAE, modRM(0, 7, base.Num))
	return o
}

// Ret encodes ret.
func (o *Assembler) Ret() *Assembler {
	if o.err != nil {
		return o
	}
	o.buf = append(o.buf, 0xC3)
	return o
}

// Assemble resolves every label fixup and returns the finished machine
// code. It fails if any instruction method failed earlier, or if a jump
// references a label that was never bound.
func (o *Assembler) Assemble() ([]byte, error) {
	if o.err != nil {
		return nil, o.err
	}

	for _, f := range o.fixups {
		target, ok := o.labels[f.label]
		if !ok {
			return nil, fmt.Errorf("codejit: undefined label %q", f.label)
		}
		rel := int32(target - f.instrEnd)
		binary.LittleEndian.PutUint32(o.buf[f.pos:f.pos+4], uint32(rel))
	}

	out := make([]byte, len(o.buf))
	copy(out, o.buf)
	return out, nil
}
