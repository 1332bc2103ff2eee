package dramanalyzer

import (
	"context"

	"github.com/example/hammerfuzz/memregion"
)

// BankProbe accesses the two addresses a conflict test should compare
// the latency of, for a given candidate row offset within a bank.
type BankProbe func(candidateRow int) (addrA, addrB uintptr)

// Measurer reports the two hardware facts fuzzparams.Parameters and
// addrmap need but cannot derive analytically: how many row
// activations fit between two REFRESH commands on this machine, and
// whether a particular bank choice actually produces row conflicts.
type Measurer interface {
	// MeasureActivationsPerRef repeatedly hammers a row in region and
	// counts activations per observed REFRESH interval.
	MeasureActivationsPerRef(ctx context.Context, region memregion.Region) (int, error)

	// ConfirmBankConflicts samples a handful of candidate rows via
	// probe and reports whether their access latency is consistent
	// with a genuine row conflict.
	ConfirmBankConflicts(ctx context.Context, region memregion.Region, probe BankProbe) (bool, error)
}
