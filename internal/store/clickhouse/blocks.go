package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/validexlabs/sensorledger/internal/store"
)

// LastIndex returns the highest index in the main table.
func (r *Repository) LastIndex(ctx context.Context) (int64, bool, error) {
	start := time.Now()
	var err error
	defer func() { r.metrics.Observe("last_index", err, start) }()

	const query = `SELECT max(idx) FROM blocks`

	rows, qerr := r.conn.Query(ctx, query)
	if qerr != nil {
		err = fmt.Errorf("%w: query last index: %v", store.ErrStorageError, qerr)
		return 0, false, err
	}
	defer rows.Close()

	var hasRows bool
	var maxIdx *int64
	if rows.Next() {
		hasRows = true
		if serr := rows.Scan(&maxIdx); serr != nil {
			err = fmt.Errorf("%w: scan last index: %v", store.ErrStorageError, serr)
			return 0, false, err
		}
	}
	if rerr := rows.Err(); rerr != nil {
		err = fmt.Errorf("%w: iterate last index: %v", store.ErrStorageError, rerr)
		return 0, false, err
	}
	if !hasRows || maxIdx == nil {
		return 0, false, nil
	}
	return *maxIdx, true, nil
}

// Get returns the block at index.
func (r *Repository) Get(ctx context.Context, index int64) (store.Block, bool, error) {
	start := time.Now()
	var err error
	defer func() { r.metrics.Observe("get", err, start) }()

	const query = `
SELECT idx, timestamp, data, previousHash, hash
FROM blocks
WHERE idx = ?`

	rows, qerr := r.conn.Query(ctx, query, index)
	if qerr != nil {
		err = fmt.Errorf("%w: query block: %v", store.ErrStorageError, qerr)
		return store.Block{}, false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return store.Block{}, false, nil
	}

	var b store.Block
	if serr := rows.Scan(&b.Index, &b.Timestamp, &b.Data, &b.PreviousHash, &b.Hash); serr != nil {
		err = fmt.Errorf("%w: scan block: %v", store.ErrStorageError, serr)
		return store.Block{}, false, err
	}
	if rerr := rows.Err(); rerr != nil {
		err = fmt.Errorf("%w: iterate block: %v", store.ErrStorageError, rerr)
		return store.Block{}, false, err
	}
	return b, true, nil
}

// Range returns blocks with index in [lo, hi), ordered by index.
func (r *Repository) Range(ctx context.Context, lo, hi int64) ([]store.Block, error) {
	start := time.Now()
	var err error
	defer func() { r.metrics.Observe("range", err, start) }()

	const query = `
SELECT idx, timestamp, data, previousHash, hash
FROM blocks
WHERE idx >= ? AND idx < ?
ORDER BY idx`

	rows, qerr := r.conn.Query(ctx, query, lo, hi)
	if qerr != nil {
		err = fmt.Errorf("%w: query range: %v", store.ErrStorageError, qerr)
		return nil, err
	}
	defer rows.Close()

	var blocks []store.Block
	for rows.Next() {
		var b store.Block
		if serr := rows.Scan(&b.Index, &b.Timestamp, &b.Data, &b.PreviousHash, &b.Hash); serr != nil {
			err = fmt.Errorf("%w: scan range row: %v", store.ErrStorageError, serr)
			return nil, err
		}
		blocks = append(blocks, b)
	}
	if rerr := rows.Err(); rerr != nil {
		err = fmt.Errorf("%w: iterate range: %v", store.ErrStorageError, rerr)
		return nil, err
	}
	return blocks, nil
}

// Insert adds a new block, enforcing uniqueness of index and hash.
// ClickHouse's MergeTree family does not enforce uniqueness constraints
// server-side, so both checks run as lookups inside this call rather
// than relying on an insert-time conflict signal.
func (r *Repository) Insert(ctx context.Context, b store.Block) error {
	start := time.Now()
	var err error
	defer func() { r.metrics.Observe("insert", err, start) }()

	if _, ok, gerr := r.Get(ctx, b.Index); gerr != nil {
		err = gerr
		return err
	} else if ok {
		err = store.ErrDuplicateIndex
		return err
	}

	const hashQuery = `SELECT idx FROM blocks WHERE hash = ? LIMIT 1`
	rows, qerr := r.conn.Query(ctx, hashQuery, b.Hash)
	if qerr != nil {
		err = fmt.Errorf("%w: query hash collision: %v", store.ErrStorageError, qerr)
		return err
	}
	collided := rows.Next()
	rows.Close()
	if collided {
		err = store.ErrHashCollision
		return err
	}

	const insertQuery = `INSERT INTO blocks (idx, timestamp, data, previousHash, hash) VALUES`
	batch, berr := r.conn.PrepareBatch(ctx, insertQuery)
	if berr != nil {
		err = fmt.Errorf("%w: prepare insert batch: %v", store.ErrStorageError, berr)
		return err
	}
	if aerr := batch.Append(b.Index, b.Timestamp, b.Data, b.PreviousHash, b.Hash); aerr != nil {
		err = fmt.Errorf("%w: append block row: %v", store.ErrStorageError, aerr)
		return err
	}
	if serr := batch.Send(); serr != nil {
		err = fmt.Errorf("%w: send insert batch: %v", store.ErrStorageError, serr)
		return err
	}
	return nil
}

// DeleteAbove removes every block with index > i.
func (r *Repository) DeleteAbove(ctx context.Context, i int64) error {
	start := time.Now()
	var err error
	defer func() { r.metrics.Observe("delete_above", err, start) }()

	const query = `ALTER TABLE blocks DELETE WHERE idx > ?`
	if err = r.conn.Exec(ctx, query, i); err != nil {
		err = fmt.Errorf("%w: delete above %d: %v", store.ErrStorageError, i, err)
		return err
	}
	return nil
}
