// =============================================================================
// Freight Survey Ingest - Store Module
// =============================================================================
//
// This module persists a processed dataset to a relational database and
// serves the filtered queries a dashboard needs.
//
// DRIVERS:
//   sqlite3  github.com/mattn/go-sqlite3, "?" placeholders
//   pgx      github.com/jackc/pgx/v5/stdlib, "$n" placeholders
//
// TABLES:
//   datasets         one row per municipality
//   zendingen        shipments
//   deelritten       sub-trips
//   lookup_entries   lookup tables of the dataset
//   region_mappings  municipality -> NUTS hierarchy
//
// =============================================================================

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ginjaninja78/freight-survey-ingest/internal/aggregate"
	"github.com/ginjaninja78/freight-survey-ingest/internal/filter"
	"github.com/ginjaninja78/freight-survey-ingest/internal/logger"
	"github.com/ginjaninja78/freight-survey-ingest/internal/lookup"
	"github.com/ginjaninja78/freight-survey-ingest/internal/types"
)

// ErrNotFound is returned when a dataset does not exist.
var ErrNotFound = errors.New("dataset not found")

// ErrUnsupportedDriver is returned by Open for an unknown driver name.
var ErrUnsupportedDriver = errors.New("unsupported driver")

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

const (
	defaultChunkSize = 5000

	// maxBindParams keeps one INSERT below the bind-parameter limit of both
	// sqlite (32766) and postgres (65535).
	maxBindParams = 30000
)

// Store persists datasets and answers filtered queries over them.
type Store interface {
	Migrate(ctx context.Context) error
	Sync(ctx context.Context, ds Dataset) error

	Years(ctx context.Context, id uuid.UUID) ([]int, error)
	Municipality(ctx context.Context, id uuid.UUID) (types.Municipality, error)
	LookupTable(ctx context.Context, id uuid.UUID, category lookup.Category) ([]types.LookupEntry, error)
	ShipmentKPIs(ctx context.Context, id uuid.UUID, f filter.Filters) (aggregate.ShipmentKPIs, error)
	SubTripKPIs(ctx context.Context, id uuid.UUID, f filter.Filters) (aggregate.SubTripKPIs, error)
	SubTrips(ctx context.Context, id uuid.UUID, f filter.Filters, page Page) (SubTripPage, error)

	Close() error
}

// Options tune syncing.
type Options struct {
	// ChunkSize is the number of rows per INSERT statement. It is lowered
	// when a statement would exceed the bind-parameter limit.
	ChunkSize int

	// MaxRetries bounds retries of a failed sync transaction.
	MaxRetries int

	Logger logger.Logger
}

type dialect struct {
	placeholder sq.PlaceholderFormat
	serial      string
}

var dialects = map[string]dialect{
	DriverSQLite:   {placeholder: sq.Question, serial: "INTEGER PRIMARY KEY"},
	DriverPostgres: {placeholder: sq.Dollar, serial: "BIGSERIAL PRIMARY KEY"},
}

type store struct {
	db      *sql.DB
	dialect dialect
	opts    Options
}

// Open connects to a database with one of the supported drivers.
func Open(driver, dsn string, opts Options) (Store, error) {
	if _, ok := dialects[driver]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// An in-memory sqlite database lives as long as its connection.
		db.SetMaxOpenConns(1)
	}
	return NewStore(db, driver, opts)
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB, driver string, opts Options) (Store, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	if opts.ChunkSize < 1 {
		opts.ChunkSize = defaultChunkSize
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &store{db: db, dialect: d, opts: opts}, nil
}

// builder returns a squirrel statement builder for the store's dialect.
func (s *store) builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(s.dialect.placeholder)
}

// Migrate creates the tables when missing.
func (s *store) Migrate(ctx context.Context) error {
	for _, stmt := range schema(s.dialect) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *store) Close() error {
	return s.db.Close()
}

func wrapErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// rowsPerStatement caps the chunk size so one INSERT stays below the
// bind-parameter limit.
func rowsPerStatement(chunkSize, columns int) int {
	limit := maxBindParams / columns
	if chunkSize > limit {
		return limit
	}
	return chunkSize
}
