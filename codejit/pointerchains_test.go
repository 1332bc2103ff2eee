package codejit

import "testing"

func TestBuildPointerChainsBalancesLength(t *testing.T) {
	ids := []int{0, 1, 2, 3, 4, 5, 6}
	chains := BuildPointerChains(ids)

	if len(chains[0])+len(chains[1]) != len(ids) {
		t.Fatalf("chains lost or duplicated IDs: %v", chains)
	}
	if diff := len(chains[0]) - len(chains[1]); diff > 1 || diff < -1 {
		t.Fatalf("chains are not balanced: %v", chains)
	}
}

func TestBuildPointerChainsPreservesOrderWithinEachChain(t *testing.T) {
	ids := []int{10, 20, 30, 40, 50, 60}
	chains := BuildPointerChains(ids)

	want := [2][]int{{10, 30, 50}, {20, 40, 60}}
	for c := range want {
		if len(chains[c]) != len(want[c]) {
			t.Fatalf("chain %d: expected %v, got %v", c, want[c], chains[c])
		}
		for i := range want[c] {
			if chains[c][i] != want[c][i] {
				t.Fatalf("chain %d: expected %v, got %v", c, want[c], chains[c])
			}
		}
	}
}

func TestBuildPointerChainsEmptyInput(t *testing.T) {
	chains := BuildPointerChains(nil)
	if len(chains[0]) != 0 || len(chains[1]) != 0 {
		t.Fatalf("expected two empty chains, got %v", chains)
	}
}
