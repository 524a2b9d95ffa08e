package keyring

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite3 "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/MrEthical07/goGrant/token"
)

// SQLStore keeps key records in SQLite.
type SQLStore struct {
	db     *sql.DB
	sealer *Sealer
	now    func() time.Time
}

var _ Store = (*SQLStore)(nil)

// OpenSQL opens the database at dsn and applies migrations. dsn is a modernc.org/sqlite
// data source such as a file path or "file::memory:".
func OpenSQL(ctx context.Context, dsn string, opts ...Option) (*SQLStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps in-memory databases
	// alive across calls.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	o := applyOptions(opts)
	return &SQLStore{db: db, sealer: o.sealer, now: time.Now}, nil
}

// Add inserts r.
func (s *SQLStore) Add(ctx context.Context, r Record) (Record, error) {
	r, err := prepare(r, s.now())
	if err != nil {
		return Record{}, err
	}
	secret, err := s.sealer.Seal(r.ID, r.Secret)
	if err != nil {
		return Record{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO signing_keys (id, algorithm, secret, created_at) VALUES (?, ?, ?, ?)`,
		r.ID, r.Algorithm.String(), secret, r.CreatedAt.UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return Record{}, fmt.Errorf("%w: %s", ErrAlreadyExists, r.ID)
		}
		return Record{}, fmt.Errorf("%w: inserting key: %v", ErrUnavailable, err)
	}
	return r, nil
}

// List returns every record, newest first.
func (s *SQLStore) List(ctx context.Context) ([]Record, error) {
	return s.query(ctx, `SELECT id, algorithm, secret, created_at, retired_at
		FROM signing_keys ORDER BY created_at DESC, rowid DESC`)
}

func (s *SQLStore) query(ctx context.Context, q string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying keys: %v", ErrUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var (
			r         Record
			alg       string
			createdAt int64
			retiredAt sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &alg, &r.Secret, &createdAt, &retiredAt); err != nil {
			return nil, fmt.Errorf("%w: scanning key: %v", ErrUnavailable, err)
		}
		r.Algorithm, err = token.ParseAlgorithm(alg)
		if err != nil {
			return nil, fmt.Errorf("%w: key %s: %v", ErrInvalidRecord, r.ID, err)
		}
		r.Secret, err = s.sealer.Open(r.ID, r.Secret)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
		}
		r.CreatedAt = time.Unix(0, createdAt)
		if retiredAt.Valid {
			r.RetiredAt = time.Unix(0, retiredAt.Int64)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating keys: %v", ErrUnavailable, err)
	}
	return records, nil
}

// Retire marks id retired. Retiring a retired key is a no-op.
func (s *SQLStore) Retire(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE signing_keys SET retired_at = COALESCE(retired_at, ?) WHERE id = ?`,
		s.now().UnixNano(), id,
	)
	if err != nil {
		return fmt.Errorf("%w: retiring key: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: retiring key: %v", ErrUnavailable, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Signing implements Source.
func (s *SQLStore) Signing(ctx context.Context) (token.Key, error) {
	keys, err := s.Candidates(ctx)
	if err != nil {
		return token.Key{}, err
	}
	return signingFrom(keys)
}

// Candidates implements Source.
func (s *SQLStore) Candidates(ctx context.Context) ([]token.Key, error) {
	records, err := s.query(ctx, `SELECT id, algorithm, secret, created_at, retired_at
		FROM signing_keys WHERE retired_at IS NULL ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	return activeKeys(records), nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// isUniqueViolation checks for a SQLite UNIQUE or PRIMARY KEY constraint violation.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite3.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
