// Package clickhouse is the ClickHouse-backed implementation of
// store.Store.
package clickhouse

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

import (
	"errors"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

type (
	// Metrics is the collaborator the repository reports operation
	// outcomes to; internal/metrics.Store satisfies it.
	Metrics interface {
		Observe(operation string, err error, started time.Time)
	}
)

// Repository is a store.Store backed by ClickHouse.
type Repository struct {
	conn    clickhouse.Conn
	metrics Metrics
}

// NewRepository opens a ClickHouse connection and wraps it as a
// store.Store.
func NewRepository(dsn string, metrics Metrics) (*Repository, error) {
	if dsn == "" {
		return nil, errors.New("clickhouse dsn is required")
	}

	options, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse connection: %w", err)
	}

	return &Repository{conn: conn, metrics: metrics}, nil
}

// Close flushes and closes the underlying ClickHouse connection. Called
// once during node shutdown.
func (r *Repository) Close() error {
	start := time.Now()
	var err error
	defer func() { r.metrics.Observe("close", err, start) }()

	if err = r.conn.Close(); err != nil {
		err = fmt.Errorf("close clickhouse connection: %w", err)
		return err
	}
	return nil
}
