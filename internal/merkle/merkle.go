// Package merkle builds a binary Merkle tree over a chain's block hashes
// and produces/verifies inclusion proofs. Construction is level-by-level
// bottom-up; an odd node at any level is paired with itself rather than
// dropped or duplicated into the input, following the convention set out
// by the retrieved Merkle tree reference
// (neerajchowdary889-JMDN_Merkletree/merkletree/merkletree.go).
package merkle

import (
	"errors"

	"github.com/validexlabs/sensorledger/internal/chainhash"
)

// Side identifies which child a proof sibling occupies relative to the
// node being proved, so Verify folds the pair in the right order.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

// ErrOutOfRange is returned by Proof when the requested leaf index does
// not exist in the given leaf set.
var ErrOutOfRange = errors.New("merkle: index out of range")

// Step is one sibling hash in an inclusion proof, plus which side it sits
// on relative to the node being folded at that level.
type Step struct {
	Sibling string
	Side    Side
}

// Root computes the Merkle root over leaves in order. An empty leaf set
// has an empty root; a single leaf is its own root.
func Root(leaves []string) string {
	level := leaves
	if len(level) == 0 {
		return ""
	}
	for len(level) > 1 {
		level = combineLevel(level)
	}
	return level[0]
}

// Proof returns the sibling path needed to recompute the root from
// leaves[i]. The proof is empty for a single-leaf tree.
func Proof(leaves []string, i int) ([]Step, error) {
	if i < 0 || i >= len(leaves) {
		return nil, ErrOutOfRange
	}

	var steps []Step
	level := leaves
	idx := i

	for len(level) > 1 {
		pairIdx := idx ^ 1 // sibling index within the pair
		if pairIdx >= len(level) {
			// odd node at this level pairs with itself; recording its own
			// hash as the "sibling" makes Verify fold it the same way
			// combineLevel does.
			pairIdx = idx
		}

		side := SideRight
		if pairIdx < idx {
			side = SideLeft
		}
		steps = append(steps, Step{Sibling: level[pairIdx], Side: side})

		level = combineLevel(level)
		idx /= 2
	}

	return steps, nil
}

// Verify recomputes the root by folding proof against leafHash and
// compares it to root.
func Verify(leafHash string, proof []Step, root string) bool {
	current := leafHash
	for _, step := range proof {
		switch step.Side {
		case SideLeft:
			current = chainhash.HashPair(step.Sibling, current)
		case SideRight:
			current = chainhash.HashPair(current, step.Sibling)
		default:
			return false
		}
	}
	return current == root
}

func combineLevel(level []string) []string {
	next := make([]string, 0, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		if i+1 < len(level) {
			next = append(next, chainhash.HashPair(level[i], level[i+1]))
		} else {
			next = append(next, chainhash.HashPair(level[i], level[i]))
		}
	}
	return next
}

// ChainBlock is the minimal view merkle.Validate needs from a ledger
// block to check I1-I4 without importing the ledger package; callers
// (internal/coordinator) convert their blocks into this shape.
type ChainBlock struct {
	Index        int64
	Timestamp    string
	Data         string
	PreviousHash string
	Hash         string
}

// simpleValidateThreshold is the chain length below which Validate only
// checks structural invariants (I1-I4) and skips Merkle proof
// verification, per spec.
const simpleValidateThreshold = 4

// Validate checks I1-I4 for every block and, for chains of length >= 4,
// verifies each block's Merkle inclusion proof against the locally
// computed root. An empty chain is invalid. Validate only checks that
// block 0 is genesis-shaped (index 0, previousHash "0", self-consistent
// hash); matching it against the canonical local genesis is the
// consensus layer's job (internal/coordinator), since "canonical" is a
// chain-engine concept this package has no business knowing about.
func Validate(chain []ChainBlock) bool {
	if len(chain) == 0 {
		return false
	}
	if chain[0].Index != 0 || chain[0].PreviousHash != "0" {
		return false
	}

	leaves := make([]string, len(chain))
	for i, b := range chain {
		if b.Index != int64(i) {
			return false
		}
		if i > 0 && b.PreviousHash != chain[i-1].Hash {
			return false
		}
		want := chainhash.HashBlock(b.Index, b.Timestamp, b.Data, b.PreviousHash)
		if want != b.Hash {
			return false
		}
		leaves[i] = b.Hash
	}

	if len(chain) < simpleValidateThreshold {
		return true
	}

	root := Root(leaves)
	for i, leaf := range leaves {
		proof, err := Proof(leaves, i)
		if err != nil {
			return false
		}
		if !Verify(leaf, proof, root) {
			return false
		}
	}
	return true
}
