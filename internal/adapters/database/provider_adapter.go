package database

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/entities"
	"github.com/costnav/healthcare-cost-navigator/internal/domain/repositories"
	"github.com/costnav/healthcare-cost-navigator/internal/infrastructure/clients/postgres"
	apperrors "github.com/costnav/healthcare-cost-navigator/pkg/errors"
)

var providerColumns = []interface{}{
	"p.provider_id",
	"p.provider_name",
	"p.provider_city",
	"p.provider_state",
	"p.provider_zip_code",
	"p.ms_drg_definition",
	"p.total_discharges",
	"p.average_covered_charges",
	"p.average_total_payments",
	"p.average_medicare_payments",
	"p.latitude",
	"p.longitude",
}

// ProviderAdapter implements ProviderRepository over PostgreSQL.
type ProviderAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

var _ repositories.ProviderRepository = (*ProviderAdapter)(nil)

// NewProviderAdapter creates a new provider adapter
func NewProviderAdapter(client *postgres.Client) *ProviderAdapter {
	return &ProviderAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// baseSelect joins providers with the unweighted mean of their ratings.
func (a *ProviderAdapter) baseSelect() *goqu.SelectDataset {
	cols := make([]interface{}, 0, len(providerColumns)+1)
	cols = append(cols, providerColumns...)
	cols = append(cols, goqu.AVG(goqu.I("r.rating")).As("average_rating"))

	return a.db.Select(cols...).
		From(goqu.T("providers").As("p")).
		LeftJoin(
			goqu.T("ratings").As("r"),
			goqu.On(goqu.I("p.provider_id").Eq(goqu.I("r.provider_id"))),
		).
		GroupBy(providerColumns...)
}

func procedureConditions(patterns []string) []exp.Expression {
	conditions := make([]exp.Expression, 0, len(patterns))
	for _, pattern := range patterns {
		conditions = append(conditions, goqu.I("p.ms_drg_definition").ILike(pattern))
	}
	return conditions
}

// FetchMatching returns provider rows whose procedure description matches
// any of the ILIKE patterns, joined with their average rating.
func (a *ProviderAdapter) FetchMatching(ctx context.Context, patterns []string, limit int) ([]*entities.ProviderWithRating, error) {
	if len(patterns) == 0 {
		return []*entities.ProviderWithRating{}, nil
	}

	ds := a.baseSelect().
		Where(goqu.Or(procedureConditions(patterns)...)).
		Order(goqu.I("p.provider_id").Asc(), goqu.I("p.ms_drg_definition").Asc())

	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	return a.queryRows(ctx, ds, "failed to fetch matching providers")
}

// FetchByRequest executes a structured filter request.
func (a *ProviderAdapter) FetchByRequest(ctx context.Context, req repositories.FetchRequest) ([]*entities.ProviderWithRating, error) {
	if !req.OrderBy.Valid() {
		return nil, apperrors.NewValidationError("unknown order in fetch request")
	}

	ds := a.baseSelect()

	if len(req.ProcedurePatterns) > 0 {
		ds = ds.Where(goqu.Or(procedureConditions(req.ProcedurePatterns)...))
	}
	if req.Zip != "" {
		ds = ds.Where(goqu.I("p.provider_zip_code").Eq(req.Zip))
	}
	if req.ZipPrefix != "" {
		ds = ds.Where(goqu.I("p.provider_zip_code").Like(req.ZipPrefix + "%"))
	}
	if req.City != "" {
		ds = ds.Where(goqu.I("p.provider_city").ILike(req.City))
	}
	if req.State != "" {
		ds = ds.Where(goqu.I("p.provider_state").ILike(req.State))
	}
	if req.MinRating > 0 {
		ds = ds.Having(goqu.AVG(goqu.I("r.rating")).Gte(req.MinRating))
	}

	switch req.OrderBy {
	case repositories.OrderByCostAsc:
		ds = ds.Order(goqu.I("p.average_covered_charges").Asc(), goqu.I("p.provider_id").Asc())
	case repositories.OrderByRatingDesc:
		ds = ds.Order(goqu.I("average_rating").Desc().NullsLast(), goqu.I("p.provider_id").Asc())
	case repositories.OrderByZipAsc:
		ds = ds.Order(goqu.I("p.provider_zip_code").Asc(), goqu.I("p.provider_id").Asc())
	default:
		ds = ds.Order(goqu.I("p.provider_id").Asc(), goqu.I("p.ms_drg_definition").Asc())
	}

	if req.Limit > 0 {
		ds = ds.Limit(uint(req.Limit))
	}

	return a.queryRows(ctx, ds, "failed to fetch providers by request")
}

// FetchZipCoordinates returns coordinates of any stored record with the
// given ZIP code, or nil when no record with coordinates exists.
func (a *ProviderAdapter) FetchZipCoordinates(ctx context.Context, zip string) (*entities.Location, error) {
	query, args, err := a.db.Select("latitude", "longitude").
		From("providers").
		Where(
			goqu.I("provider_zip_code").Eq(zip),
			goqu.I("latitude").IsNotNull(),
			goqu.I("longitude").IsNotNull(),
		).
		Limit(1).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build zip lookup query", err)
	}

	var lat, lon float64
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(&lat, &lon)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to look up zip coordinates", err)
	}

	return &entities.Location{Latitude: lat, Longitude: lon}, nil
}

// GetByProviderID returns all procedure rows for one provider.
func (a *ProviderAdapter) GetByProviderID(ctx context.Context, providerID string) ([]*entities.ProviderWithRating, error) {
	ds := a.baseSelect().
		Where(goqu.I("p.provider_id").Eq(providerID)).
		Order(goqu.I("p.ms_drg_definition").Asc())

	return a.queryRows(ctx, ds, "failed to get provider by id")
}

// TopRated returns the best-rated providers, optionally restricted to
// procedure descriptions matching the patterns. Uses an inner join so
// unrated providers are excluded.
func (a *ProviderAdapter) TopRated(ctx context.Context, patterns []string, limit int) ([]*entities.ProviderWithRating, error) {
	cols := make([]interface{}, 0, len(providerColumns)+1)
	cols = append(cols, providerColumns...)
	cols = append(cols, goqu.AVG(goqu.I("r.rating")).As("average_rating"))

	ds := a.db.Select(cols...).
		From(goqu.T("providers").As("p")).
		Join(
			goqu.T("ratings").As("r"),
			goqu.On(goqu.I("p.provider_id").Eq(goqu.I("r.provider_id"))),
		).
		GroupBy(providerColumns...).
		Order(goqu.I("average_rating").Desc(), goqu.I("p.provider_id").Asc())

	if len(patterns) > 0 {
		ds = ds.Where(goqu.Or(procedureConditions(patterns)...))
	}
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	return a.queryRows(ctx, ds, "failed to fetch top rated providers")
}

func (a *ProviderAdapter) queryRows(ctx context.Context, ds *goqu.SelectDataset, errMessage string) ([]*entities.ProviderWithRating, error) {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError(errMessage, err)
	}
	defer rows.Close()

	results := []*entities.ProviderWithRating{}
	for rows.Next() {
		row, err := scanProviderRow(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan provider row", err)
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("error iterating provider rows", err)
	}

	return results, nil
}

func scanProviderRow(rows *sql.Rows) (*entities.ProviderWithRating, error) {
	row := &entities.ProviderWithRating{}
	var lat, lon, avgRating sql.NullFloat64

	err := rows.Scan(
		&row.ProviderID,
		&row.Name,
		&row.City,
		&row.State,
		&row.ZipCode,
		&row.ProcedureDescription,
		&row.TotalDischarges,
		&row.AverageCoveredCharge,
		&row.AverageTotalPayment,
		&row.AverageMedicarePayment,
		&lat,
		&lon,
		&avgRating,
	)
	if err != nil {
		return nil, err
	}

	if lat.Valid && lon.Valid {
		row.Latitude = &lat.Float64
		row.Longitude = &lon.Float64
	}
	if avgRating.Valid {
		row.AverageRating = &avgRating.Float64
	}

	return row, nil
}
