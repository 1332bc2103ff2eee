package addrmap

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/example/hammerfuzz/dram"
	"github.com/example/hammerfuzz/fuzzparams"
	"github.com/example/hammerfuzz/hammerpattern"
)

// ErrCandidatesExhausted is returned when the row window runs out of
// space before every aggressor ID in the pattern has been assigned a
// row. The caller should advance to the next bank.
var ErrCandidatesExhausted = errors.New("addrmap: candidate row set exhausted before every aggressor was mapped")

// rowUniverse bounds how many rows a bank is assumed to have when
// picking a random row window; it matches the row width of the
// built-in single-rank DDR4 config (13-bit row address).
const rowUniverse = 1 << 13

// Mapper assigns DRAMAddr rows to a HammeringPattern's aggressor IDs.
// It holds no state of its own between calls; every random decision it
// makes is driven by the *rand.Rand passed to Randomize.
type Mapper struct{}

// NewMapper returns a Mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// Randomize chooses a [min_row, max_row) window inside bankNo sized to
// fit every distinct aggressor in pattern, then walks the pattern's
// access patterns in order, assigning each newly seen aggressor ID the
// next row, spaced by AggIntraDistance within a tuple and
// AggInterDistance between tuples.
func (o *Mapper) Randomize(rng *rand.Rand, params fuzzparams.Parameters, pattern *hammerpattern.HammeringPattern, bankNo int) (*Mapping, error) {
	uniqueIDs := pattern.UniqueAggressorIDs()

	span := len(uniqueIDs)*(params.AggIntraDistance+params.AggInterDistance) + params.AggInterDistance
	if span > rowUniverse {
		return nil, ErrCandidatesExhausted
	}

	maxStart := rowUniverse - span
	minRow := 0
	if maxStart > 0 {
		minRow = rng.Intn(maxStart + 1)
	}
	maxRow := minRow + span

	mapping := &Mapping{
		InstanceID:           pattern.InstanceID,
		AggressorToAddr:      make(map[int]dram.DRAMAddr, len(uniqueIDs)),
		MinRow:               minRow,
		MaxRow:               maxRow,
		BankNo:               bankNo,
		ReproducibilityScore: -1,
	}

	row := minRow
	for _, aap := range pattern.AggAccessPatterns {
		for i, agg := range aap.Aggressors {
			if _, ok := mapping.AggressorToAddr[agg.ID]; ok {
				continue
			}

			if row >= maxRow {
				return nil, ErrCandidatesExhausted
			}

			mapping.AggressorToAddr[agg.ID] = dram.DRAMAddr{
				Bank: uint64(bankNo),
				Row:  uint64(row),
				Col:  0,
			}

			if i == len(aap.Aggressors)-1 {
				row += params.AggInterDistance
			} else {
				row += params.AggIntraDistance
			}
		}
	}

	mapping.victimRows = computeVictimRows(mapping)

	return mapping, nil
}

// computeVictimRows returns every row immediately adjacent (±1) to an
// aggressor row, excluding rows that are themselves aggressor rows.
func computeVictimRows(mapping *Mapping) []int {
	used := mapping.rowsUsed()

	seen := make(map[int]bool)
	var victims []int

	for _, addr := range mapping.AggressorToAddr {
		for _, neighbor := range [2]int{int(addr.Row) - 1, int(addr.Row) + 1} {
			if neighbor < 0 || used[neighbor] || seen[neighbor] {
				continue
			}
			seen[neighbor] = true
			victims = append(victims, neighbor)
		}
	}

	return victims
}

// ExportRows returns, for each slot in the pattern, the row that slot's
// aggressor was mapped to. Duplicates are preserved: the same aggessor
// mapped to the same row appears once per slot that references it.
func ExportRows(mapping *Mapping, pattern *hammerpattern.HammeringPattern) ([]int, error) {
	rows := make([]int, len(pattern.Accesses))

	for i, agg := range pattern.Accesses {
		addr, ok := mapping.AggressorToAddr[agg.ID]
		if !ok {
			return nil, fmt.Errorf("addrmap: no address mapped for aggressor ID %d", agg.ID)
		}
		rows[i] = int(addr.Row)
	}

	return rows, nil
}

// ExportAddresses is like ExportRows but returns virtual addresses,
// computed through translator.
func ExportAddresses(mapping *Mapping, pattern *hammerpattern.HammeringPattern, translator *dram.Translator) ([]uintptr, error) {
	addrs := make([]uintptr, len(pattern.Accesses))

	for i, agg := range pattern.Accesses {
		dramAddr, ok := mapping.AggressorToAddr[agg.ID]
		if !ok {
			return nil, fmt.Errorf("addrmap: no address mapped for aggressor ID %d", agg.ID)
		}
		addrs[i] = translator.ToVirt(dramAddr)
	}

	return addrs, nil
}

// GetRandomNonAccessedRows returns up to n rows in [mapping.MinRow,
// upperBound) that appear in no aggressor mapping, for use as extra
// victim candidates by an external scanner.
func GetRandomNonAccessedRows(rng *rand.Rand, mapping *Mapping, upperBound, n int) []int {
	used := mapping.rowsUsed()

	var candidates []int
	for row := mapping.MinRow; row < upperBound; row++ {
		if !used[row] {
			candidates = append(candidates, row)
		}
	}

	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	if n > len(candidates) {
		n = len(candidates)
	}

	return candidates[:n]
}

