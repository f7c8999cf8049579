// internal/storage/pgstore.go
//
// Postgres 後端：快照存放於單列資料表 ledger_snapshot（id 固定為 1），
// 以 INSERT ... ON CONFLICT DO UPDATE 整份覆寫。
package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

const (
	createSnapshotTable = `
CREATE TABLE IF NOT EXISTS ledger_snapshot (
	id         SMALLINT PRIMARY KEY CHECK (id = 1),
	body       JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	selectSnapshot = `SELECT body FROM ledger_snapshot WHERE id = 1`

	upsertSnapshot = `
INSERT INTO ledger_snapshot (id, body, updated_at)
VALUES (1, $1, now())
ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`
)

// PostgresStore 將快照保存於 Postgres。
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore 建立 PostgresStore。呼叫端負責 pool 的生命週期。
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate 建立快照資料表（若不存在）。
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, createSnapshotTable)
	return errors.Wrap(err, "migrate ledger_snapshot")
}

// Name implements Store.
func (s *PostgresStore) Name() string { return "postgres_snapshot" }

// Load implements Store.
func (s *PostgresStore) Load(ctx context.Context) (Snapshot, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, selectSnapshot).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "select ledger_snapshot")
	}
	return decode(body)
}

// Save implements Store.
func (s *PostgresStore) Save(ctx context.Context, snap Snapshot) error {
	stamp(&snap, s.Name())
	data, err := encode(snap, false)
	if err != nil {
		return errors.Wrapf(ErrPersistenceWrite, "encode: %v", err)
	}
	if _, err := s.pool.Exec(ctx, upsertSnapshot, data); err != nil {
		return errors.Wrapf(ErrPersistenceWrite, "upsert ledger_snapshot: %v", err)
	}
	return nil
}
