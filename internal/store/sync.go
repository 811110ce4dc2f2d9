package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/ginjaninja78/freight-survey-ingest/internal/dataset"
	"github.com/ginjaninja78/freight-survey-ingest/internal/lookup"
	"github.com/ginjaninja78/freight-survey-ingest/internal/types"
)

// ErrInvalidDataset is returned for a dataset that cannot be stored.
var ErrInvalidDataset = errors.New("invalid dataset")

// Dataset is everything synced for one municipality.
type Dataset struct {
	ID           uuid.UUID
	Municipality types.Municipality
	Years        []int
	Shipments    []types.ShipmentRecord
	SubTrips     []types.SubTripRecord
	Lookups      map[lookup.Category][]types.LookupEntry
	Regions      []types.RegionMapping
	CreatedAt    time.Time
}

// FromSession collects the committed state of a session. The session must
// have a detected municipality.
func FromSession(s *dataset.Session) (Dataset, error) {
	m, ok := s.Municipality()
	if !ok {
		return Dataset{}, fmt.Errorf("%w: no municipality detected", ErrInvalidDataset)
	}

	ds := Dataset{
		ID:           s.ID(),
		Municipality: m,
		Years:        s.Years(),
		Lookups:      s.Registry().Snapshot(),
		Regions:      s.Regions(),
		CreatedAt:    s.CreatedAt(),
	}
	for _, y := range ds.Years {
		ds.Shipments = append(ds.Shipments, s.Shipments(y)...)
		ds.SubTrips = append(ds.SubTrips, s.SubTrips(y)...)
	}
	return ds, nil
}

func (ds Dataset) validate() error {
	switch {
	case ds.ID == uuid.Nil:
		return fmt.Errorf("%w: missing id", ErrInvalidDataset)
	case ds.Municipality.Code == "":
		return fmt.Errorf("%w: missing municipality code", ErrInvalidDataset)
	}
	return nil
}

// =============================================================================
// SYNC
// =============================================================================

// Sync replaces the stored dataset of the municipality with ds in a single
// transaction. A failed transaction is retried with exponential backoff.
func (s *store) Sync(ctx context.Context, ds Dataset) error {
	if err := ds.validate(); err != nil {
		return err
	}

	op := func() error {
		err := s.syncOnce(ctx, ds)
		if errors.Is(err, ErrInvalidDataset) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(s.opts.MaxRetries)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		s.opts.Logger.Warnf("Sync of %s failed, retrying in %s: %v", ds.Municipality.Code, wait, err)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return fmt.Errorf("sync dataset %s: %w", ds.ID, err)
	}

	s.opts.Logger.Infof("Synced dataset %s (%s): %d shipments, %d sub-trips",
		ds.ID, ds.Municipality.Name, len(ds.Shipments), len(ds.SubTrips))
	return nil
}

func (s *store) syncOnce(ctx context.Context, ds Dataset) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.deleteExisting(ctx, tx, ds); err != nil {
		return err
	}

	years, err := sonic.Marshal(ds.Years)
	if err != nil {
		return fmt.Errorf("%w: encode years: %v", ErrInvalidDataset, err)
	}
	createdAt := ds.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	id := ds.ID.String()
	insert := s.builder().Insert(tableDatasets).
		Columns("id", "municipality_code", "municipality_name", "years", "created_at").
		Values(id, ds.Municipality.Code, ds.Municipality.Name, string(years), createdAt.UTC())
	if err = exec(ctx, tx, insert); err != nil {
		return fmt.Errorf("insert dataset: %w", err)
	}

	if err = insertRecords(ctx, s, tx, tableShipments, shipmentColumns, id, ds.Shipments); err != nil {
		return err
	}
	if err = insertRecords(ctx, s, tx, tableSubTrips, subTripColumns, id, ds.SubTrips); err != nil {
		return err
	}

	var lookups [][]interface{}
	for _, c := range lookup.Categories {
		for _, e := range ds.Lookups[c] {
			lookups = append(lookups, []interface{}{id, string(c), e.Code, e.Description})
		}
	}
	if err = s.insertChunked(ctx, tx, tableLookups, lookupColumns, len(lookups), func(i int) []interface{} {
		return lookups[i]
	}); err != nil {
		return err
	}

	if err = s.insertChunked(ctx, tx, tableRegions, regionColumns, len(ds.Regions), func(i int) []interface{} {
		r := ds.Regions[i]
		return []interface{}{id, r.MunicipalCode, r.MunicipalName, r.NUTS1, r.NUTS2, r.NUTS3, r.Urbanization}
	}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// deleteExisting removes the municipality's previous dataset with its rows.
func (s *store) deleteExisting(ctx context.Context, tx *sql.Tx, ds Dataset) error {
	query, args, err := s.builder().Select("id").From(tableDatasets).
		Where(sq.Or{
			sq.Eq{"municipality_code": ds.Municipality.Code},
			sq.Eq{"id": ds.ID.String()},
		}).ToSql()
	if err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("select previous datasets: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	for _, table := range []string{tableShipments, tableSubTrips, tableLookups, tableRegions} {
		if err := exec(ctx, tx, s.builder().Delete(table).Where(sq.Eq{columnDatasetID: ids})); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	if err := exec(ctx, tx, s.builder().Delete(tableDatasets).Where(sq.Eq{"id": ids})); err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}

	s.opts.Logger.Debugf("Replaced %d stored dataset(s) of %s", len(ids), ds.Municipality.Code)
	return nil
}

func insertRecords[T any](ctx context.Context, s *store, tx *sql.Tx, table string, cols []column[T], id string, records []T) error {
	columns := append([]string{columnDatasetID}, names(cols)...)
	return s.insertChunked(ctx, tx, table, columns, len(records), func(i int) []interface{} {
		return append([]interface{}{id}, fields(cols, &records[i])...)
	})
}

// insertChunked inserts n rows with multi-row INSERT statements.
func (s *store) insertChunked(ctx context.Context, tx *sql.Tx, table string, columns []string, n int, row func(i int) []interface{}) error {
	per := rowsPerStatement(s.opts.ChunkSize, len(columns))
	for start := 0; start < n; start += per {
		end := min(start+per, n)

		insert := s.builder().Insert(table).Columns(columns...)
		for i := start; i < end; i++ {
			insert = insert.Values(row(i)...)
		}
		if err := exec(ctx, tx, insert); err != nil {
			return fmt.Errorf("insert into %s (rows %d-%d): %w", table, start, end, err)
		}
	}
	return nil
}

func exec(ctx context.Context, tx *sql.Tx, stmt sq.Sqlizer) error {
	query, args, err := stmt.ToSql()
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}
