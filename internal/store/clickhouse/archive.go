package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/validexlabs/sensorledger/internal/store"
)

// ArchiveBelow moves every block with index < i into blocks_archive,
// stamped with the current time, then deletes them from the main table.
func (r *Repository) ArchiveBelow(ctx context.Context, i int64) error {
	start := time.Now()
	var err error
	defer func() { r.metrics.Observe("archive_below", err, start) }()

	blocks, rerr := r.Range(ctx, 0, i)
	if rerr != nil {
		err = rerr
		return err
	}
	if len(blocks) == 0 {
		return nil
	}

	const insertQuery = `INSERT INTO blocks_archive (idx, timestamp, data, previousHash, hash, archivedAt) VALUES`
	batch, berr := r.conn.PrepareBatch(ctx, insertQuery)
	if berr != nil {
		err = fmt.Errorf("%w: prepare archive batch: %v", store.ErrStorageError, berr)
		return err
	}
	archivedAt := time.Now().UTC()
	for _, b := range blocks {
		if aerr := batch.Append(b.Index, b.Timestamp, b.Data, b.PreviousHash, b.Hash, archivedAt); aerr != nil {
			err = fmt.Errorf("%w: append archive row: %v", store.ErrStorageError, aerr)
			return err
		}
	}
	if serr := batch.Send(); serr != nil {
		err = fmt.Errorf("%w: send archive batch: %v", store.ErrStorageError, serr)
		return err
	}

	const deleteQuery = `ALTER TABLE blocks DELETE WHERE idx < ?`
	if derr := r.conn.Exec(ctx, deleteQuery, i); derr != nil {
		err = fmt.Errorf("%w: delete archived rows from main table: %v", store.ErrStorageError, derr)
		return err
	}
	return nil
}

// RestoreAll moves every archived block back into the main table and
// clears the archive.
func (r *Repository) RestoreAll(ctx context.Context) error {
	start := time.Now()
	var err error
	defer func() { r.metrics.Observe("restore_all", err, start) }()

	const selectQuery = `
SELECT idx, timestamp, data, previousHash, hash
FROM blocks_archive
ORDER BY idx`

	rows, qerr := r.conn.Query(ctx, selectQuery)
	if qerr != nil {
		err = fmt.Errorf("%w: query archive for restore: %v", store.ErrStorageError, qerr)
		return err
	}

	var blocks []store.Block
	for rows.Next() {
		var b store.Block
		if serr := rows.Scan(&b.Index, &b.Timestamp, &b.Data, &b.PreviousHash, &b.Hash); serr != nil {
			rows.Close()
			err = fmt.Errorf("%w: scan archive row: %v", store.ErrStorageError, serr)
			return err
		}
		blocks = append(blocks, b)
	}
	rows.Close()
	if rerr := rows.Err(); rerr != nil {
		err = fmt.Errorf("%w: iterate archive for restore: %v", store.ErrStorageError, rerr)
		return err
	}

	if len(blocks) > 0 {
		const insertQuery = `INSERT INTO blocks (idx, timestamp, data, previousHash, hash) VALUES`
		batch, berr := r.conn.PrepareBatch(ctx, insertQuery)
		if berr != nil {
			err = fmt.Errorf("%w: prepare restore batch: %v", store.ErrStorageError, berr)
			return err
		}
		for _, b := range blocks {
			if aerr := batch.Append(b.Index, b.Timestamp, b.Data, b.PreviousHash, b.Hash); aerr != nil {
				err = fmt.Errorf("%w: append restore row: %v", store.ErrStorageError, aerr)
				return err
			}
		}
		if serr := batch.Send(); serr != nil {
			err = fmt.Errorf("%w: send restore batch: %v", store.ErrStorageError, serr)
			return err
		}
	}

	const truncateQuery = `ALTER TABLE blocks_archive DELETE WHERE 1 = 1`
	if derr := r.conn.Exec(ctx, truncateQuery); derr != nil {
		err = fmt.Errorf("%w: clear archive after restore: %v", store.ErrStorageError, derr)
		return err
	}
	return nil
}

// ArchiveGet returns the archived block at index.
func (r *Repository) ArchiveGet(ctx context.Context, index int64) (store.ArchivedBlock, bool, error) {
	start := time.Now()
	var err error
	defer func() { r.metrics.Observe("archive_get", err, start) }()

	const query = `
SELECT idx, timestamp, data, previousHash, hash, archivedAt
FROM blocks_archive
WHERE idx = ?`

	rows, qerr := r.conn.Query(ctx, query, index)
	if qerr != nil {
		err = fmt.Errorf("%w: query archive block: %v", store.ErrStorageError, qerr)
		return store.ArchivedBlock{}, false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return store.ArchivedBlock{}, false, nil
	}

	var ab store.ArchivedBlock
	if serr := rows.Scan(&ab.Index, &ab.Timestamp, &ab.Data, &ab.PreviousHash, &ab.Hash, &ab.ArchivedAt); serr != nil {
		err = fmt.Errorf("%w: scan archive block: %v", store.ErrStorageError, serr)
		return store.ArchivedBlock{}, false, err
	}
	return ab, true, nil
}

// ArchiveSearch returns archived blocks whose Data contains substr.
func (r *Repository) ArchiveSearch(ctx context.Context, substr string) ([]store.ArchivedBlock, error) {
	start := time.Now()
	var err error
	defer func() { r.metrics.Observe("archive_search", err, start) }()

	const query = `
SELECT idx, timestamp, data, previousHash, hash, archivedAt
FROM blocks_archive
WHERE position(data, ?) > 0
ORDER BY idx`

	rows, qerr := r.conn.Query(ctx, query, substr)
	if qerr != nil {
		err = fmt.Errorf("%w: query archive search: %v", store.ErrStorageError, qerr)
		return nil, err
	}
	defer rows.Close()

	var results []store.ArchivedBlock
	for rows.Next() {
		var ab store.ArchivedBlock
		if serr := rows.Scan(&ab.Index, &ab.Timestamp, &ab.Data, &ab.PreviousHash, &ab.Hash, &ab.ArchivedAt); serr != nil {
			err = fmt.Errorf("%w: scan archive search row: %v", store.ErrStorageError, serr)
			return nil, err
		}
		results = append(results, ab)
	}
	if rerr := rows.Err(); rerr != nil {
		err = fmt.Errorf("%w: iterate archive search: %v", store.ErrStorageError, rerr)
		return nil, err
	}
	return results, nil
}

// ArchiveCompactOlderThan deletes archive rows archived before t.
func (r *Repository) ArchiveCompactOlderThan(ctx context.Context, t time.Time) error {
	start := time.Now()
	var err error
	defer func() { r.metrics.Observe("archive_compact", err, start) }()

	const query = `ALTER TABLE blocks_archive DELETE WHERE archivedAt < ?`
	if err = r.conn.Exec(ctx, query, t); err != nil {
		err = fmt.Errorf("%w: compact archive older than %s: %v", store.ErrStorageError, t, err)
		return err
	}
	return nil
}
