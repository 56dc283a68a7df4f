package coordinator

import (
	"sort"

	"github.com/validexlabs/sensorledger/internal/chainhash"
	"github.com/validexlabs/sensorledger/internal/store"
)

// chooseChain implements spec.md §4.7's longest-valid-chain consensus
// rule over {local} ∪ remotes, both already filtered to genesis-matching,
// I1-I4/Merkle-valid candidates.
//
// Absolute rule first: if local is already among the longest candidates,
// it is kept unconditionally — this is what prevents gratuitous churn
// when nodes are tied or local leads. Only once local is strictly
// shorter than the best remote does the length-gap/fingerprint logic
// below decide whether to adopt a remote chain.
func chooseChain(local []store.Block, remotes [][]store.Block) []store.Block {
	all := make([][]store.Block, 0, len(remotes)+1)
	all = append(all, local)
	all = append(all, remotes...)

	maxLen := 0
	for _, c := range all {
		if len(c) > maxLen {
			maxLen = len(c)
		}
	}
	if len(local) == maxLen {
		return local
	}

	// local is strictly shorter than the best candidate; rank the
	// remotes (local is excluded from contention from here on, but
	// still participates as the fallback "second place" length for the
	// gap computation).
	sorted := make([][]store.Block, len(all))
	copy(sorted, all)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	topLen := len(sorted[0])
	var top [][]store.Block
	for _, c := range sorted {
		if len(c) == topLen {
			top = append(top, c)
		} else {
			break
		}
	}

	if len(top) > 1 {
		return tieBreakByFingerprint(top)
	}

	secondLen := 0
	if len(sorted) > 1 {
		secondLen = len(sorted[1])
	}
	if topLen-secondLen > 2 {
		return top[0]
	}

	return local
}

// tieBreakByFingerprint adopts the candidate whose chain fingerprint
// (SHA-256 over the concatenation of block hashes) is lexicographically
// greatest, per spec.md §4.7's deterministic tie-break.
func tieBreakByFingerprint(candidates [][]store.Block) []store.Block {
	best := candidates[0]
	bestPrint := fingerprintOf(best)
	for _, c := range candidates[1:] {
		print := fingerprintOf(c)
		if print > bestPrint {
			best = c
			bestPrint = print
		}
	}
	return best
}

func fingerprintOf(chain []store.Block) string {
	hashes := make([]string, len(chain))
	for i, b := range chain {
		hashes[i] = b.Hash
	}
	return chainhash.Fingerprint(hashes)
}
