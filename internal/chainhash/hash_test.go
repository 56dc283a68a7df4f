package chainhash

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"testing"
)

func TestHashBlock(t *testing.T) {
	tests := []struct {
		name         string
		index        int64
		timestamp    string
		data         string
		previousHash string
	}{
		{
			name:         "genesis",
			index:        0,
			timestamp:    "2023-01-01T00:00:00.000Z",
			data:         `{"message":"Genesis Block"}`,
			previousHash: "0",
		},
		{
			name:         "sensor payload",
			index:        1,
			timestamp:    "2024-01-01T00:01:00.000Z",
			data:         `{"sensor_id":"validator-01","value":100,"timestamp":"2024-01-01T00:01:00.000Z"}`,
			previousHash: "abc123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HashBlock(tt.index, tt.timestamp, tt.data, tt.previousHash)

			raw := sha256.Sum256([]byte(
				strconv.FormatInt(tt.index, 10) + tt.timestamp + tt.data + tt.previousHash,
			))
			want := hex.EncodeToString(raw[:])

			if got != want {
				t.Fatalf("HashBlock() = %s, want %s", got, want)
			}
		})
	}
}

func TestHashBlockGenesisMatchesSpecLiteral(t *testing.T) {
	got := HashBlock(0, "2023-01-01T00:00:00.000Z", `{"message":"Genesis Block"}`, "0")
	raw := sha256.Sum256([]byte("0" + "2023-01-01T00:00:00.000Z" + `{"message":"Genesis Block"}` + "0"))
	want := hex.EncodeToString(raw[:])
	if got != want {
		t.Fatalf("genesis hash = %s, want %s", got, want)
	}
}

func TestHashPair(t *testing.T) {
	a := HashBlock(0, "2023-01-01T00:00:00.000Z", `{"message":"Genesis Block"}`, "0")
	b := HashBlock(1, "2024-01-01T00:01:00.000Z", `{"sensor_id":"validator-01"}`, a)

	got := HashPair(a, b)
	raw := sha256.Sum256([]byte(a + b))
	want := hex.EncodeToString(raw[:])
	if got != want {
		t.Fatalf("HashPair() = %s, want %s", got, want)
	}

	if HashPair(a, b) == HashPair(b, a) {
		t.Fatalf("HashPair should not be order-independent")
	}
}

