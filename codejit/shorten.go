package codejit

import "fmt"

// maxShorteningRounds bounds ShortenToFitRefresh the same way the
// reference hammer-and-improve loop bounds itself: after this many
// rounds it accepts whatever trailing activation count remains rather
// than iterate forever against a pattern that cannot be trimmed any
// further.
const maxShorteningRounds = 25

// acceptableTrailing is the trailing-activation count ShortenToFitRefresh
// is willing to stop at once a round has pushed it this low or lower.
const acceptableTrailing = 10

// Probe runs one measurement pass over addresses - assembling, binding,
// executing, and releasing the resulting routine - and reports the raw
// activation count it returned. ShortenToFitRefresh never touches a
// Runtime directly so that its trimming logic can be exercised with a
// deterministic fake in place of real hardware timing.
type Probe func(addresses []uintptr) (activations int, err error)

// ShortenToFitRefresh repeatedly probes addresses and trims trailing
// entries until the sequence activates cleanly within one REFRESH
// interval - specifically, until the "trailing" count falls to
// acceptableTrailing or below, or maxShorteningRounds is reached. The
// trailing count is numActivationsPerRef minus the per-interval probe
// count (total / numRefreshIntervals) taken modulo numActivationsPerRef.
//
// Each round removes trailing/(2*round) addresses, so later rounds make
// progressively smaller, more conservative cuts as the sequence
// converges.
func ShortenToFitRefresh(addresses []uintptr, numRefreshIntervals, numActivationsPerRef int, probe Probe) ([]uintptr, error) {
	if numRefreshIntervals <= 0 || numActivationsPerRef <= 0 {
		return nil, fmt.Errorf("codejit: numRefreshIntervals and numActivationsPerRef must be positive")
	}

	round := 0
	for {
		round++

		total, err := probe(addresses)
		if err != nil {
			return nil, fmt.Errorf("codejit: probe failed on round %d - %w", round, err)
		}

		activationsAfterLastRefresh := (total / numRefreshIntervals) % numActivationsPerRef
		trailing := numActivationsPerRef - activationsAfterLastRefresh
		if trailing <= acceptableTrailing {
			return addresses, nil
		}

		removed := trailing / (2 * round)
		if removed > 0 {
			if removed > len(addresses) {
				removed = len(addresses)
			}
			addresses = addresses[:len(addresses)-removed]
		}

		if round >= maxShorteningRounds || len(addresses) == 0 {
			return addresses, nil
		}
	}
}
