package entities

// ProviderRecord is one row of the CMS pricing data: a provider offering a
// single MS-DRG procedure. A provider appears once per procedure it offers,
// so (ProviderID, ProcedureDescription) is the unique pair, not ProviderID.
type ProviderRecord struct {
	ProviderID             string   `json:"provider_id" db:"provider_id"`
	Name                   string   `json:"provider_name" db:"provider_name"`
	City                   string   `json:"provider_city" db:"provider_city"`
	State                  string   `json:"provider_state" db:"provider_state"`
	ZipCode                string   `json:"provider_zip_code" db:"provider_zip_code"`
	ProcedureDescription   string   `json:"ms_drg_definition" db:"ms_drg_definition"`
	TotalDischarges        int      `json:"total_discharges" db:"total_discharges"`
	AverageCoveredCharge   float64  `json:"average_covered_charges" db:"average_covered_charges"`
	AverageTotalPayment    float64  `json:"average_total_payments" db:"average_total_payments"`
	AverageMedicarePayment float64  `json:"average_medicare_payments" db:"average_medicare_payments"`
	Latitude               *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude              *float64 `json:"longitude,omitempty" db:"longitude"`
}

// HasCoordinates reports whether the record carries a usable location.
// Records without coordinates are excluded from radius search.
func (p *ProviderRecord) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// RatingRecord is a quality rating for a provider in one category.
// Ratings are on a fixed 1.0-10.0 scale; a provider may have many.
type RatingRecord struct {
	ProviderID string  `json:"provider_id" db:"provider_id"`
	Rating     float64 `json:"rating" db:"rating"`
	Category   string  `json:"category" db:"category"`
}

// ProviderWithRating is a provider record joined with the unweighted mean
// of its ratings across categories. AverageRating is nil when the provider
// has no ratings at all.
type ProviderWithRating struct {
	ProviderRecord
	AverageRating *float64 `json:"average_rating,omitempty"`
}

// Location represents geographical coordinates
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SearchResult is the per-query view of a provider record: the record plus
// its computed average rating, distance from the search center, and
// composite value score. It lives for one request and is never persisted.
type SearchResult struct {
	ProviderRecord
	AverageRating  *float64 `json:"average_rating,omitempty"`
	DistanceKm     *float64 `json:"distance_km,omitempty"`
	CompositeScore *float64 `json:"composite_score,omitempty"`
}

// NewSearchResult builds a SearchResult from a fetched provider row.
func NewSearchResult(p *ProviderWithRating) *SearchResult {
	return &SearchResult{
		ProviderRecord: p.ProviderRecord,
		AverageRating:  p.AverageRating,
	}
}
