package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cticu/cticu-schedule/pkg/cache"
)

var _ cache.Store = (*DB)(nil)

func (d *DB) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := d.pool.QueryRow(ctx, `SELECT value FROM cache_entries WHERE cache_key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry %q: %w", key, err)
	}
	return value, nil
}

func (d *DB) Set(ctx context.Context, key string, value []byte) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO cache_entries (cache_key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (cache_key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set cache entry %q: %w", key, err)
	}
	return nil
}

func (d *DB) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := d.pool.Exec(ctx, `DELETE FROM cache_entries WHERE cache_key = ANY($1)`, keys); err != nil {
		return fmt.Errorf("failed to remove cache entries: %w", err)
	}
	return nil
}

func (d *DB) Keys(ctx context.Context) ([]string, error) {
	rows, err := d.pool.Query(ctx, `SELECT cache_key FROM cache_entries ORDER BY cache_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache keys: %w", err)
	}

	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan cache keys: %w", err)
	}
	return keys, nil
}
