package nonce

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/pkg/errors"
)

// PGStore is an alternative, durable Store backed by PostgreSQL, grounded
// on the operational-blueprint example's use of jackc/pgx for exactly this
// kind of small operational-state table. It implements the same
// whole-list-rewrite contract as FileStore: Save replaces the entire
// baker_nonces table inside one transaction.
type PGStore struct {
	Pool *pgxpool.Pool
}

// NewPGStore wraps an existing connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{Pool: pool}
}

// pgSchema is the table PGStore expects to exist; callers run this (or an
// equivalent migration) once before first use.
const pgSchema = `
CREATE TABLE IF NOT EXISTS baker_nonces (
	level               BIGINT PRIMARY KEY,
	seed                BYTEA NOT NULL,
	seed_nonce_hash     TEXT NOT NULL,
	injected_block_hash TEXT NOT NULL,
	revealed            BOOLEAN NOT NULL
)`

// EnsureSchema creates the backing table if it doesn't already exist.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, pgSchema)
	return errors.Wrap(err, "nonce: ensure postgres schema")
}

// Load implements Store.
func (s *PGStore) Load(ctx context.Context) ([]Record, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT level, seed, seed_nonce_hash, injected_block_hash, revealed FROM baker_nonces ORDER BY level`)
	if err != nil {
		return nil, errors.Wrap(err, "nonce: query postgres store")
	}
	defer rows.Close()

	records := []Record{}

	for rows.Next() {
		var (
			level   uint32
			seedRaw []byte
			r       Record
		)

		if err := rows.Scan(&level, &seedRaw, &r.SeedNonceHash, &r.InjectedBlockHash, &r.Revealed); err != nil {
			return nil, errors.Wrap(err, "nonce: scan postgres row")
		}

		r.Level = level
		r.Seed = util.Uint256(seedRaw32(seedRaw))
		records = append(records, r)
	}

	return records, rows.Err()
}

func seedRaw32(b []byte) [32]byte {
	var out [32]byte
	copy(out[:], b)

	return out
}

// Save implements Store: it truncates and repopulates baker_nonces inside
// one transaction, matching the whole-list-rewrite semantics Store's
// contract requires.
func (s *PGStore) Save(ctx context.Context, records []Record) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "nonce: begin postgres transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `TRUNCATE baker_nonces`); err != nil {
		return errors.Wrap(err, "nonce: truncate postgres store")
	}

	batch := &pgx.Batch{}

	for _, r := range records {
		seed := r.Seed
		batch.Queue(
			`INSERT INTO baker_nonces (level, seed, seed_nonce_hash, injected_block_hash, revealed)
			 VALUES ($1, $2, $3, $4, $5)`,
			r.Level, seed[:], r.SeedNonceHash, r.InjectedBlockHash, r.Revealed,
		)
	}

	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return errors.Wrap(err, "nonce: insert postgres rows")
	}

	return errors.Wrap(tx.Commit(ctx), "nonce: commit postgres transaction")
}
