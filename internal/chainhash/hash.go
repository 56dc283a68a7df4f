// Package chainhash implements the canonical hashing recipe for ledger
// blocks. The recipe is a wire contract: it must stay byte-for-byte
// identical across every validator node regardless of host byte order or
// locale, so any change here invalidates every chain already on disk.
package chainhash

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// HashBlock computes the canonical block hash:
// SHA256(decimal(index) || timestamp || data || previousHash).
//
// timestamp is the block's ISO-8601 string, data is the raw JSON text of
// the payload (not a re-marshaled form of it), and previousHash is the
// hex hash of the preceding block (the literal "0" for genesis).
func HashBlock(index int64, timestamp, data, previousHash string) string {
	h := sha256.New()
	h.Write([]byte(strconv.FormatInt(index, 10)))
	h.Write([]byte(timestamp))
	h.Write([]byte(data))
	h.Write([]byte(previousHash))
	return hex.EncodeToString(h.Sum(nil))
}

// HashPair computes SHA256(a || b) over the hex text of two hashes, used
// by the Merkle layer to combine sibling nodes.
func HashPair(a, b string) string {
	h := sha256.New()
	h.Write([]byte(a))
	h.Write([]byte(b))
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes SHA256 over the concatenation of a chain's block
// hashes, in order. The sync coordinator (internal/coordinator) uses
// this to break ties between equal-length candidate chains
// deterministically, independent of which peer answered first.
func Fingerprint(hashes []string) string {
	h := sha256.New()
	for _, hh := range hashes {
		h.Write([]byte(hh))
	}
	return hex.EncodeToString(h.Sum(nil))
}
