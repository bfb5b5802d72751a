package repositories

import (
	"context"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/entities"
)

// OrderBy enumerates the orderings the data store may be asked for. Anything
// outside this set is rejected before reaching the store.
type OrderBy string

const (
	// OrderByNone leaves ordering to the caller (in-process ranking)
	OrderByNone OrderBy = ""

	// OrderByCostAsc orders by average covered charges ascending
	OrderByCostAsc OrderBy = "cost_asc"

	// OrderByRatingDesc orders by average rating descending, unrated last
	OrderByRatingDesc OrderBy = "rating_desc"

	// OrderByZipAsc orders by ZIP code lexically. This only approximates
	// proximity and is used when no search center is available.
	OrderByZipAsc OrderBy = "zip_asc"
)

// Valid reports whether o is one of the allowed orderings.
func (o OrderBy) Valid() bool {
	switch o {
	case OrderByNone, OrderByCostAsc, OrderByRatingDesc, OrderByZipAsc:
		return true
	}
	return false
}

// FetchRequest is a structured, validated filter request against the
// provider store. It is the only query shape the store accepts; generated
// queries from the completion service are parsed into this form and
// validated against its allow-list rather than executed as raw text.
type FetchRequest struct {
	// ProcedurePatterns are case-insensitive substring/prefix patterns
	// (ILIKE syntax) OR-combined against the procedure description.
	ProcedurePatterns []string

	Zip       string
	ZipPrefix string
	City      string
	State     string

	// MinRating filters out providers whose average rating is below the
	// threshold. Zero means no rating filter.
	MinRating float64

	OrderBy OrderBy
	Limit   int
}

// ProviderRepository is the read-only query interface over the provider
// data store. Rows come back joined with the unweighted mean rating.
type ProviderRepository interface {
	// FetchMatching returns provider rows whose procedure description
	// matches any of the given ILIKE patterns. limit <= 0 means no limit.
	FetchMatching(ctx context.Context, patterns []string, limit int) ([]*entities.ProviderWithRating, error)

	// FetchByRequest executes a structured filter request.
	FetchByRequest(ctx context.Context, req FetchRequest) ([]*entities.ProviderWithRating, error)

	// FetchZipCoordinates returns the coordinates of any stored record
	// with the given ZIP code, or nil when none carries coordinates.
	FetchZipCoordinates(ctx context.Context, zip string) (*entities.Location, error)

	// GetByProviderID returns all procedure rows for one provider.
	GetByProviderID(ctx context.Context, providerID string) ([]*entities.ProviderWithRating, error)

	// TopRated returns the best-rated providers, optionally restricted to
	// procedure descriptions matching the patterns. Providers without
	// ratings are excluded.
	TopRated(ctx context.Context, patterns []string, limit int) ([]*entities.ProviderWithRating, error)
}

// ProviderSearchRepository is an optional full-text index over provider
// procedure rows (e.g. Typesense). The orchestrator uses it when configured
// and falls back to the primary store's pattern matching otherwise.
type ProviderSearchRepository interface {
	// Search matches free-text terms against procedure descriptions and
	// provider names.
	Search(ctx context.Context, terms []string, limit int) ([]*entities.ProviderWithRating, error)

	// Index upserts one provider procedure row into the index.
	Index(ctx context.Context, row *entities.ProviderWithRating) error
}
