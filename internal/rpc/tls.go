package rpc

import (
	"crypto/x509"
	"fmt"
	"os"
)

// loadCAPool reads a PEM-encoded CA bundle from path. Both the server
// (verifying client certs) and the client (verifying the peer's server
// cert) trust the same cluster CA, since every ledger-node is both a
// client and a server on the same mutually authenticated channel.
func loadCAPool(path string) (*x509.CertPool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ca bundle %q: %w", path, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(raw) {
		return nil, fmt.Errorf("ca bundle %q: no certificates parsed", path)
	}
	return pool, nil
}
