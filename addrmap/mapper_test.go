package addrmap

import (
	"math/rand"
	"testing"

	"github.com/example/hammerfuzz/fuzzparams"
	"github.com/example/hammerfuzz/hammerpattern"
)

func buildTestPattern(t *testing.T, rng *rand.Rand) (*hammerpattern.HammeringPattern, fuzzparams.Parameters) {
	var params fuzzparams.Parameters
	params.Randomize(rng, 8192)

	b := hammerpattern.NewBuilder(rng)
	pattern, err := b.BuildFrequencyBased(params)
	if err != nil {
		t.Fatal(err)
	}

	return pattern, params
}

func TestMapperRandomizeAssignsDistinctRowsPerBank(t *testing.T) {
	rng := rand.New(rand.NewSource(0x1234))
	pattern, params := buildTestPattern(t, rng)

	mapper := NewMapper()
	mapping, err := mapper.Randomize(rng, params, pattern, 5)
	if err != nil {
		t.Fatal(err)
	}

	seenRows := make(map[int]int)
	for id, addr := range mapping.AggressorToAddr {
		if addr.Bank != 5 {
			t.Fatalf("expected bank 5, got %d", addr.Bank)
		}
		if other, ok := seenRows[int(addr.Row)]; ok {
			t.Fatalf("aggressors %d and %d both map to row %d", other, id, addr.Row)
		}
		seenRows[int(addr.Row)] = id

		if int(addr.Row) < mapping.MinRow || int(addr.Row) >= mapping.MaxRow {
			t.Fatalf("row %d outside mapped window [%d,%d)", addr.Row, mapping.MinRow, mapping.MaxRow)
		}
	}
}

func TestExportRowsPreservesDuplicates(t *testing.T) {
	rng := rand.New(rand.NewSource(0x1234))
	pattern, params := buildTestPattern(t, rng)

	mapper := NewMapper()
	mapping, err := mapper.Randomize(rng, params, pattern, 2)
	if err != nil {
		t.Fatal(err)
	}

	rows, err := ExportRows(mapping, pattern)
	if err != nil {
		t.Fatal(err)
	}

	if len(rows) != len(pattern.Accesses) {
		t.Fatalf("expected %d rows, got %d", len(pattern.Accesses), len(rows))
	}

	for i, agg := range pattern.Accesses {
		want := int(mapping.AggressorToAddr[agg.ID].Row)
		if rows[i] != want {
			t.Fatalf("slot %d: expected row %d, got %d", i, want, rows[i])
		}
	}
}

func TestGetRandomNonAccessedRows(t *testing.T) {
	rng := rand.New(rand.NewSource(0x1234))
	pattern, params := buildTestPattern(t, rng)

	mapper := NewMapper()
	mapping, err := mapper.Randomize(rng, params, pattern, 0)
	if err != nil {
		t.Fatal(err)
	}

	used := mapping.rowsUsed()

	rows := GetRandomNonAccessedRows(rng, mapping, rowUniverse, 10)
	for _, r := range rows {
		if used[r] {
			t.Fatalf("row %d is accessed, should not be returned as non-accessed", r)
		}
	}
}

func TestVictimRowsExcludeAggressorRows(t *testing.T) {
	rng := rand.New(rand.NewSource(0x1234))
	pattern, params := buildTestPattern(t, rng)

	mapper := NewMapper()
	mapping, err := mapper.Randomize(rng, params, pattern, 0)
	if err != nil {
		t.Fatal(err)
	}

	used := mapping.rowsUsed()
	for _, v := range mapping.VictimRows() {
		if used[v] {
			t.Fatalf("victim row %d is also an aggressor row", v)
		}
	}
}

func TestMapperRandomizeExhaustsCandidatesWhenSpanTooLarge(t *testing.T) {
	rng := rand.New(rand.NewSource(0x1234))
	pattern, params := buildTestPattern(t, rng)

	// Force a span far larger than rowUniverse.
	params.AggInterDistance = rowUniverse
	params.AggIntraDistance = rowUniverse

	mapper := NewMapper()
	_, err := mapper.Randomize(rng, params, pattern, 0)
	if err != ErrCandidatesExhausted {
		t.Fatalf("expected ErrCandidatesExhausted, got %v", err)
	}
}
