// Package store keeps the history of compilations served by the compile
// service.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Register the database/sql drivers selectable from configuration.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
)

// ErrUnknownDriver reports a driver name Open does not support.
var ErrUnknownDriver = errors.New("unknown store driver")

// Record describes one compilation.
type Record struct {
	ID          xid.ID
	CreatedAt   time.Time
	SourceBytes int
	Loops       int
	OK          bool
	Error       string
}

// NewRecord returns a record with a fresh id and the current time.
func NewRecord() Record {
	id := xid.New()
	return Record{
		ID:        id,
		CreatedAt: id.Time(),
	}
}

// Recorder saves compilation records and lists the latest ones.
type Recorder interface {
	Record(ctx context.Context, r Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// New opens the recorder selected by driver. An empty driver keeps the
// history in memory.
func New(ctx context.Context, driver, dsn string) (Recorder, error) {
	if driver == "" {
		return NewMemory(0), nil
	}

	s, err := Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// Store is a Recorder backed by a SQL database.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to a sqlite3 or mysql database.
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case "sqlite3", "mysql":
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", driver, err)
	}

	if driver == "sqlite3" {
		// An in-memory sqlite database lives in a single connection.
		db.SetMaxOpenConns(1)
	}

	return &Store{db: db, driver: driver}, nil
}

const createTable = `CREATE TABLE IF NOT EXISTS compilations (
	id           VARCHAR(20) NOT NULL PRIMARY KEY,
	created_at   BIGINT      NOT NULL,
	source_bytes INTEGER     NOT NULL,
	loops        INTEGER     NOT NULL,
	ok           BOOLEAN     NOT NULL,
	error        TEXT        NOT NULL
)`

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("failed to migrate %s store: %w", s.driver, err)
	}
	return nil
}

// Record inserts r.
func (s *Store) Record(ctx context.Context, r Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO compilations (id, created_at, source_bytes, loops, ok, error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.CreatedAt.UnixNano(), r.SourceBytes, r.Loops, r.OK, r.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record %s: %w", r.ID, err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, source_bytes, loops, ok, error
		FROM compilations
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r       Record
			id      string
			created int64
		)
		if err := rows.Scan(&id, &created, &r.SourceBytes, &r.Loops, &r.OK, &r.Error); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if r.ID, err = xid.FromString(id); err != nil {
			return nil, fmt.Errorf("bad record id %q: %w", id, err)
		}
		r.CreatedAt = time.Unix(0, created)
		records = append(records, r)
	}

	return records, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
