package dram

import (
	"strings"
	"testing"
)

func singleRankTranslator() *Translator {
	t := NewTranslator(ddr4SingleRank16Bank)
	t.SetBase(0x40000000)
	return t
}

// TestFromVirtToVirtRoundTrip covers invariant 1: to_virt(from_virt(v)) == v.
func TestFromVirtToVirtRoundTrip(t *testing.T) {
	tr := singleRankTranslator()

	vs := []uintptr{
		0x40000000,
		0x40020000,
		0x40123456,
		0x7fffffff,
	}

	for _, v := range vs {
		got := tr.ToVirt(tr.FromVirt(v))
		if got != v {
			t.Fatalf("round trip broke for 0x%x: got 0x%x", v, got)
		}
	}
}

// TestFromVirtDecodesDeterministically pins down the decode for a
// specific address against the (1,1,1,16) DDR4 matrices.
func TestFromVirtDecodesDeterministically(t *testing.T) {
	tr := singleRankTranslator()

	addr := tr.FromVirt(0x40020000)

	got := tr.ToVirt(addr)
	if got != 0x40020000 {
		t.Fatalf("expected round trip to reproduce 0x40020000, got 0x%x", got)
	}

	if addr.Col != 0 {
		t.Fatalf("expected col 0, got %d", addr.Col)
	}
}

// TestToVirtDistinctTriplesYieldDistinctAddresses covers invariant 2.
func TestToVirtDistinctTriplesYieldDistinctAddresses(t *testing.T) {
	tr := singleRankTranslator()

	seen := make(map[uintptr]DRAMAddr)

	for bank := uint64(0); bank < 4; bank++ {
		for row := uint64(0); row < 4; row++ {
			for col := uint64(0); col < 4; col++ {
				addr := DRAMAddr{Bank: bank, Row: row, Col: col}
				v := tr.ToVirt(addr)
				if prior, ok := seen[v]; ok {
					t.Fatalf("addr %+v and %+v both map to virt 0x%x", prior, addr, v)
				}
				seen[v] = addr
			}
		}
	}
}

// TestToVirtOfZeroIsBase covers end-to-end scenario E6.
func TestToVirtOfZeroIsBase(t *testing.T) {
	tr := singleRankTranslator()

	got := tr.ToVirt(DRAMAddr{})
	if got != tr.Base() {
		t.Fatalf("expected to_virt(0,0,0) == base (0x%x), got 0x%x", tr.Base(), got)
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()

	_, ok := reg.Lookup(Key{Channels: 1, DIMMs: 1, Ranks: 1, Banks: 16})
	if !ok {
		t.Fatal("expected built-in 1R x16 config to be registered")
	}

	_, ok = reg.Lookup(Key{Channels: 2, DIMMs: 2, Ranks: 2, Banks: 8})
	if ok {
		t.Fatal("did not expect an unregistered config to be found")
	}
}

func TestRegistryRegisterConfig(t *testing.T) {
	reg := NewRegistry()

	custom := ddr4SingleRank16Bank
	custom.BankMask = 0b11

	key := Key{Channels: 1, DIMMs: 2, Ranks: 1, Banks: 4}
	reg.RegisterConfig(key, custom)

	got, ok := reg.Lookup(key)
	if !ok {
		t.Fatal("expected registered config to be found")
	}
	if got.BankMask != 0b11 {
		t.Fatalf("expected overridden BankMask, got %#b", got.BankMask)
	}
}

func TestParseHexMatrix(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < MTXSize; i++ {
		sb.WriteString("0x00000001 // row\n")
	}

	matrix, err := ParseHexMatrix(strings.NewReader(sb.String()))
	if err != nil {
		t.Fatal(err)
	}

	for i, row := range matrix {
		if row != 1 {
			t.Fatalf("row %d: expected 1, got %#x", i, row)
		}
	}
}

func TestParseHexMatrixWrongRowCount(t *testing.T) {
	_, err := ParseHexMatrix(strings.NewReader("0x1\n0x2\n"))
	if err == nil {
		t.Fatal("expected an error for too few rows")
	}
}
