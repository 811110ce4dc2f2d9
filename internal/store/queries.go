package store

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/ginjaninja78/freight-survey-ingest/internal/aggregate"
	"github.com/ginjaninja78/freight-survey-ingest/internal/filter"
	"github.com/ginjaninja78/freight-survey-ingest/internal/lookup"
	"github.com/ginjaninja78/freight-survey-ingest/internal/types"
	"github.com/ginjaninja78/freight-survey-ingest/internal/validation"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// Page selects a slice of an ordered result. Zero values select the first
// page of the default size.
type Page struct {
	Page     int `json:"page" validate:"min=1"`
	PageSize int `json:"page_size" validate:"min=1,max=1000"`
}

func (p Page) normalize() (Page, error) {
	if p.Page == 0 {
		p.Page = 1
	}
	if p.PageSize == 0 {
		p.PageSize = defaultPageSize
	}
	if err := validation.Struct(p); err != nil {
		return p, err
	}
	return p, nil
}

// SubTripPage is one page of sub-trip records.
type SubTripPage struct {
	Data       []types.SubTripRecord `json:"data"`
	Total      int                   `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

// =============================================================================
// METADATA
// =============================================================================

func (s *store) Years(ctx context.Context, id uuid.UUID) ([]int, error) {
	query, args, err := s.builder().Select("years").From(tableDatasets).
		Where(sq.Eq{"id": id.String()}).ToSql()
	if err != nil {
		return nil, err
	}

	var raw string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&raw); err != nil {
		return nil, fmt.Errorf("years: %w", wrapErr(err))
	}

	var years []int
	if err := sonic.UnmarshalString(raw, &years); err != nil {
		return nil, fmt.Errorf("years: decode %q: %w", raw, err)
	}
	return years, nil
}

func (s *store) Municipality(ctx context.Context, id uuid.UUID) (types.Municipality, error) {
	query, args, err := s.builder().Select("municipality_code", "municipality_name").From(tableDatasets).
		Where(sq.Eq{"id": id.String()}).ToSql()
	if err != nil {
		return types.Municipality{}, err
	}

	var m types.Municipality
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&m.Code, &m.Name); err != nil {
		return types.Municipality{}, fmt.Errorf("municipality: %w", wrapErr(err))
	}
	return m, nil
}

// LookupTable returns the entries of one category ordered by code.
func (s *store) LookupTable(ctx context.Context, id uuid.UUID, category lookup.Category) ([]types.LookupEntry, error) {
	query, args, err := s.builder().Select("code", "omschrijving").From(tableLookups).
		Where(sq.Eq{columnDatasetID: id.String(), "table_name": string(category)}).
		OrderBy("code").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("lookup table %s: %w", category, err)
	}
	defer rows.Close()

	var entries []types.LookupEntry
	for rows.Next() {
		var e types.LookupEntry
		if err := rows.Scan(&e.Code, &e.Description); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// KPIS
// =============================================================================

func (s *store) ShipmentKPIs(ctx context.Context, id uuid.UUID, f filter.Filters) (aggregate.ShipmentKPIs, error) {
	var k aggregate.ShipmentKPIs
	if err := f.Validate(); err != nil {
		return k, err
	}

	query, args, err := s.builder().
		Select("COALESCE(SUM(zending_aantal), 0)", "COALESCE(SUM(bruto_gewicht), 0)").
		From(tableShipments).
		Where(sq.Eq{columnDatasetID: id.String()}).
		Where(filter.Predicate(f, types.KindShipment)).
		ToSql()
	if err != nil {
		return k, err
	}

	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&k.Count, &k.Weight); err != nil {
		return k, fmt.Errorf("shipment kpis: %w", err)
	}
	return k, nil
}

// SubTripKPIs totals trips and weight. The load factor is the trip-weighted
// average as a fraction.
func (s *store) SubTripKPIs(ctx context.Context, id uuid.UUID, f filter.Filters) (aggregate.SubTripKPIs, error) {
	var k aggregate.SubTripKPIs
	if err := f.Validate(); err != nil {
		return k, err
	}

	query, args, err := s.builder().
		Select(
			"COALESCE(SUM(aantal_deelritten), 0)",
			"COALESCE(SUM(bruto_gewicht), 0)",
			"COALESCE(SUM(beladingsgraad / 100.0 * aantal_deelritten) / NULLIF(SUM(aantal_deelritten), 0), 0)",
		).
		From(tableSubTrips).
		Where(sq.Eq{columnDatasetID: id.String()}).
		Where(filter.Predicate(f, types.KindSubTrip)).
		ToSql()
	if err != nil {
		return k, err
	}

	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&k.Trips, &k.Weight, &k.LoadFactor); err != nil {
		return k, fmt.Errorf("sub-trip kpis: %w", err)
	}
	return k, nil
}

// =============================================================================
// RECORDS
// =============================================================================

// SubTrips returns one page of matching sub-trips in insertion order.
func (s *store) SubTrips(ctx context.Context, id uuid.UUID, f filter.Filters, page Page) (SubTripPage, error) {
	if err := f.Validate(); err != nil {
		return SubTripPage{}, err
	}
	page, err := page.normalize()
	if err != nil {
		return SubTripPage{}, err
	}

	where := sq.And{
		sq.Eq{columnDatasetID: id.String()},
		filter.Predicate(f, types.KindSubTrip),
	}

	countQuery, countArgs, err := s.builder().Select("COUNT(*)").From(tableSubTrips).Where(where).ToSql()
	if err != nil {
		return SubTripPage{}, err
	}
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return SubTripPage{}, fmt.Errorf("count sub-trips: %w", err)
	}

	query, args, err := s.builder().Select(names(subTripColumns)...).From(tableSubTrips).
		Where(where).
		OrderBy("id").
		Limit(uint64(page.PageSize)).
		Offset(uint64((page.Page - 1) * page.PageSize)).
		ToSql()
	if err != nil {
		return SubTripPage{}, err
	}

	data, err := scanRecords(ctx, s.db, subTripColumns, query, args)
	if err != nil {
		return SubTripPage{}, fmt.Errorf("sub-trips: %w", err)
	}

	return SubTripPage{
		Data:       data,
		Total:      total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: (total + page.PageSize - 1) / page.PageSize,
	}, nil
}

func scanRecords[T any](ctx context.Context, db *sql.DB, cols []column[T], query string, args []interface{}) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var r T
		if err := rows.Scan(fields(cols, &r)...); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
