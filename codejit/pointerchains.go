package codejit

// BuildPointerChains splits an ordered list of aggressor IDs into two
// chains of near-equal length, preserving each ID's relative order
// within its chain. It documents an alternative access pattern -
// "double pointer chasing", where the jitted routine walks two
// independent linked traversals instead of a flat address list - that
// this package's Jitter does not emit by default; nothing in the
// hammering routine above calls it.
func BuildPointerChains(ids []int) [2][]int {
	var chains [2][]int
	for i, id := range ids {
		chains[i%2] = append(chains[i%2], id)
	}
	return chains
}
