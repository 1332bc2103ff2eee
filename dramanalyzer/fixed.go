package dramanalyzer

import (
	"context"

	"github.com/example/hammerfuzz/memregion"
)

// FixedMeasurer is a deterministic Measurer that reports caller-supplied
// constants instead of probing real hardware timing. It is what
// cmd/hammerfuzz's -measured-acts-per-ref flag constructs, and what
// every test in this module that needs a Measurer uses.
type FixedMeasurer struct {
	ActivationsPerRef int
	ConflictsConfirmed bool
}

// NewFixedMeasurer returns a FixedMeasurer reporting the given constants.
func NewFixedMeasurer(activationsPerRef int, conflictsConfirmed bool) *FixedMeasurer {
	return &FixedMeasurer{
		ActivationsPerRef:  activationsPerRef,
		ConflictsConfirmed: conflictsConfirmed,
	}
}

// MeasureActivationsPerRef returns o.ActivationsPerRef, ignoring region.
func (o *FixedMeasurer) MeasureActivationsPerRef(ctx context.Context, region memregion.Region) (int, error) {
	return o.ActivationsPerRef, nil
}

// ConfirmBankConflicts returns o.ConflictsConfirmed without calling probe.
func (o *FixedMeasurer) ConfirmBankConflicts(ctx context.Context, region memregion.Region, probe BankProbe) (bool, error) {
	return o.ConflictsConfirmed, nil
}
