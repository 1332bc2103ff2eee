// Package asmkit decodes x86-64 machine code for debug logging and test
// verification of codejit's output. It is a thin wrapper around
// golang.org/x/arch/x86/x86asm that exposes the one decode-and-iterate
// pattern the rest of this module needs.
package asmkit

import (
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

const (
	SkipSyntax  DisassemblySyntax = ""
	ATTSyntax   DisassemblySyntax = "att"
	GoSyntax    DisassemblySyntax = "go"
	IntelSyntax DisassemblySyntax = "intel"
)

// DisassemblySyntax selects the mnemonic rendering used for Inst.Dis.
type DisassemblySyntax string

// NewDisassembler returns a Disassembler that decodes 64-bit x86
// instructions, rendering mnemonics in the given syntax.
func NewDisassembler(syntax DisassemblySyntax) (*Disassembler, error) {
	var disassemblyFn func(inst x86asm.Inst) string

	switch syntax {
	case SkipSyntax:
		// Do nothing.
	case ATTSyntax:
		disassemblyFn = func(inst x86asm.Inst) string {
			return x86asm.GNUSyntax(inst, 0, nil)
		}
	case GoSyntax:
		disassemblyFn = func(inst x86asm.Inst) string {
			return x86asm.GoSyntax(inst, 0, nil)
		}
	case IntelSyntax:
		disassemblyFn = func(inst x86asm.Inst) string {
			return x86asm.IntelSyntax(inst, 0, nil)
		}
	default:
		return nil, fmt.Errorf("unsupported syntax: %q", syntax)
	}

	return &Disassembler{
		disassemblyFn: disassemblyFn,
	}, nil
}

// Disassembler decodes a stream of x86-64 machine code one instruction
// at a time.
type Disassembler struct {
	disassemblyFn func(inst x86asm.Inst) string
}

// Next decodes the single instruction at the start of rawInstructions.
//
// clflushopt is handled as a special case: x86asm's opcode tables
// predate it, so the 66 0F AE /7 encoding is recognized here directly
// rather than handed to x86asm.Decode, which would otherwise reject it
// as an unknown instruction.
func (o *Disassembler) Next(rawInstructions []byte) (Inst, error) {
	if inst, ok := decodeClFlushOpt(rawInstructions); ok {
		return inst, nil
	}

	x86Inst, err := x86asm.Decode(rawInstructions, 64)
	if err != nil {
		return Inst{}, err
	}

	var disassembly string
	if o.disassemblyFn != nil {
		disassembly = o.disassemblyFn(x86Inst)
	}
	if disassembly == "" {
		disassembly = x86Inst.Op.String()
	}

	return Inst{
		Bin:  copySlice(rawInstructions, x86Inst.Len),
		Len:  x86Inst.Len,
		Dis:  disassembly,
		Op:   x86Inst.Op.String(),
		Inst: x86Inst,
	}, nil
}

// decodeClFlushOpt recognizes the fixed 4-byte "clflushopt [reg]"
// encoding this module's assembler emits: 66 0F AE, ModRM with reg
// field 7, mod 00, and no SIB/displacement.
func decodeClFlushOpt(raw []byte) (Inst, bool) {
	if len(raw) < 4 || raw[0] != 0x66 || raw[1] != 0x0F || raw[2] != 0xAE {
		return Inst{}, false
	}

	modrm := raw[3]
	if modrm>>3&0x7 != 7 || modrm>>6 != 0 {
		return Inst{}, false
	}

	return Inst{
		Bin: copySlice(raw, 4),
		Len: 4,
		Dis: fmt.Sprintf("clflushopt [reg%d]", modrm&0x7),
		Op:  "CLFLUSHOPT",
	}, true
}

// All decodes every instruction in rawInstructions in order, invoking
// onDecodeFn for each one.
func (o *Disassembler) All(rawInstructions []byte, onDecodeFn func(Inst) error) error {
	index := 0

	for {
		if isDone(rawInstructions, index) {
			return nil
		}

		inst, err := o.Next(rawInstructions[index:])
		if err != nil {
			return fmt.Errorf("failed to decode instruction %d - %w - remaining data: 0x%x",
				index, err, rawInstructions[index:])
		}

		inst.Index = index

		err = onDecodeFn(inst)
		if err != nil {
			return fmt.Errorf("on decode function failed for instruction %d (%q) - %w",
				index, inst.Dis, err)
		}

		index += inst.Len
	}
}

func copySlice(src []byte, numBytes int) []byte {
	cp := make([]byte, numBytes)

	copy(cp, src[0:numBytes])

	return cp
}

// Inst is one decoded x86-64 instruction.
type Inst struct {
	Bin   []byte
	Len   int
	Index int
	Dis   string
	Op    string
	Inst  x86asm.Inst
}

func isDone(rawInstructions []byte, index int) bool {
	return index >= len(rawInstructions)
}
