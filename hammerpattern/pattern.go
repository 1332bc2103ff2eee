package hammerpattern

import (
	"fmt"
	"strconv"
	"strings"
)

// PlaceholderAggressorID marks an access-pattern slot that has not yet
// been claimed by any AggressorAccessPattern.
const PlaceholderAggressorID = -1

// Aggressor is an abstract row participant. Two Aggressors with the
// same ID refer to the same physical row once an AddressMapping has
// bound the pattern to real addresses.
type Aggressor struct {
	ID int
}

// IsPlaceholder reports whether a is an unfilled slot.
func (a Aggressor) IsPlaceholder() bool {
	return a.ID == PlaceholderAggressorID
}

// AggressorAccessPattern is one `(period, amplitude, aggressors, offset)`
// contribution to a HammeringPattern: within each window of length
// base_period starting at Offset, Aggressors is emitted Amplitude times
// back-to-back, and that window repeats every Period slots.
type AggressorAccessPattern struct {
	Period     int
	Amplitude  int
	Aggressors []Aggressor
	Offset     int
}

// AggressorAccessPatternKey is a comparable projection of an
// AggressorAccessPattern, used to deduplicate "effective" access
// patterns across repeated mappings.
type AggressorAccessPatternKey struct {
	Period    int
	Amplitude int
	Offset    int
	AggIDs    string
}

// Key returns a's comparable projection.
func (a AggressorAccessPattern) Key() AggressorAccessPatternKey {
	ids := make([]string, len(a.Aggressors))
	for i, agg := range a.Aggressors {
		ids[i] = strconv.Itoa(agg.ID)
	}

	return AggressorAccessPatternKey{
		Period:    a.Period,
		Amplitude: a.Amplitude,
		Offset:    a.Offset,
		AggIDs:    strings.Join(ids, ","),
	}
}

// HammeringPattern is an ordered sequence of aggressor IDs, one per
// activation slot, plus the flattened list of AggressorAccessPatterns
// that produced it.
type HammeringPattern struct {
	// InstanceID is a stable identifier for this pattern. It lets an
	// AddressMapping reference its owning pattern by value instead of
	// holding a pointer back to it, resolved later through a registry
	// if one is needed.
	InstanceID string

	Accesses          []Aggressor
	AggAccessPatterns []AggressorAccessPattern

	BasePeriod int
	MaxPeriod  int
}

// HasPlaceholders reports whether any slot in Accesses is still
// unclaimed. A fully built HammeringPattern must return false.
func (o *HammeringPattern) HasPlaceholders() bool {
	for _, a := range o.Accesses {
		if a.IsPlaceholder() {
			return true
		}
	}
	return false
}

// UniqueAggressorIDs returns the distinct aggressor IDs referenced by
// the pattern's access patterns.
func (o *HammeringPattern) UniqueAggressorIDs() []int {
	seen := make(map[int]bool)
	var ids []int

	for _, aap := range o.AggAccessPatterns {
		for _, agg := range aap.Aggressors {
			if !seen[agg.ID] {
				seen[agg.ID] = true
				ids = append(ids, agg.ID)
			}
		}
	}

	return ids
}

func (o *HammeringPattern) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "HammeringPattern(%s, %d accesses, %d access patterns)",
		o.InstanceID, len(o.Accesses), len(o.AggAccessPatterns))

	return sb.String()
}
