package codejit

// Reg is one general-purpose x86-64 register, named by the operand
// width the caller intends to use it at. Num is the register's 3-bit
// encoding within the 0-7 range this package restricts itself to -
// every instruction below assumes Num never needs a REX.R/X/B extension
// bit, which holds as long as only rax/rbx/rcx/rdx/rsi are used.
type Reg struct {
	Num  byte
	Bits int
}

var (
	RAX = Reg{Num: 0, Bits: 64}
	RCX = Reg{Num: 1, Bits: 64}
	RDX = Reg{Num: 2, Bits: 64}
	RBX = Reg{Num: 3, Bits: 64}
	RSI = Reg{Num: 6, Bits: 64}

	EAX = Reg{Num: 0, Bits: 32}
	ECX = Reg{Num: 1, Bits: 32}
	EDX = Reg{Num: 2, Bits: 32}
	EBX = Reg{Num: 3, Bits: 32}
	ESI = Reg{Num: 6, Bits: 32}
)
