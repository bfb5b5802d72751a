package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/entities"
	"github.com/costnav/healthcare-cost-navigator/internal/domain/repositories"
	tsclient "github.com/costnav/healthcare-cost-navigator/internal/infrastructure/clients/typesense"
)

// TypesenseAdapter implements full-text procedure search using Typesense.
type TypesenseAdapter struct {
	client *tsclient.Client
}

var _ repositories.ProviderSearchRepository = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// Index upserts one provider procedure row into the index. The document id
// combines provider and procedure because a provider appears once per
// procedure it offers.
func (a *TypesenseAdapter) Index(ctx context.Context, row *entities.ProviderWithRating) error {
	document := map[string]interface{}{
		"id":                        documentID(row),
		"provider_id":               row.ProviderID,
		"provider_name":             row.Name,
		"city":                      row.City,
		"state":                     row.State,
		"zip_code":                  row.ZipCode,
		"procedure":                 row.ProcedureDescription,
		"total_discharges":          row.TotalDischarges,
		"average_covered_charges":   row.AverageCoveredCharge,
		"average_total_payments":    row.AverageTotalPayment,
		"average_medicare_payments": row.AverageMedicarePayment,
	}

	if row.AverageRating != nil {
		document["average_rating"] = *row.AverageRating
	}
	if row.HasCoordinates() {
		document["location"] = []float64{*row.Latitude, *row.Longitude}
	}

	_, err := a.client.Client().Collection(tsclient.ProceduresCollection).Documents().Upsert(ctx, document)
	if err != nil {
		return fmt.Errorf("failed to index provider procedure: %w", err)
	}

	return nil
}

// Search matches free-text terms against procedure descriptions and
// provider names.
func (a *TypesenseAdapter) Search(ctx context.Context, terms []string, limit int) ([]*entities.ProviderWithRating, error) {
	query := strings.TrimSpace(strings.Join(terms, " "))
	if query == "" {
		return []*entities.ProviderWithRating{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	searchParams := &api.SearchCollectionParams{
		Q:       pointer.String(query),
		QueryBy: pointer.String("procedure,provider_name"),
		PerPage: pointer.Int(limit),
	}

	result, err := a.client.Client().Collection(tsclient.ProceduresCollection).Documents().Search(ctx, searchParams)
	if err != nil {
		return nil, fmt.Errorf("failed to search provider procedures: %w", err)
	}

	rows := []*entities.ProviderWithRating{}
	if result.Hits == nil {
		return rows, nil
	}

	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		rows = append(rows, documentToRow(*hit.Document))
	}

	return rows, nil
}

func documentID(row *entities.ProviderWithRating) string {
	procedure := strings.ToLower(strings.ReplaceAll(row.ProcedureDescription, " ", "_"))
	if len(procedure) > 64 {
		procedure = procedure[:64]
	}
	return fmt.Sprintf("%s:%s", row.ProviderID, procedure)
}

func documentToRow(doc map[string]interface{}) *entities.ProviderWithRating {
	row := &entities.ProviderWithRating{}

	row.ProviderID, _ = doc["provider_id"].(string)
	row.Name, _ = doc["provider_name"].(string)
	row.City, _ = doc["city"].(string)
	row.State, _ = doc["state"].(string)
	row.ZipCode, _ = doc["zip_code"].(string)
	row.ProcedureDescription, _ = doc["procedure"].(string)

	if val, ok := doc["total_discharges"].(float64); ok {
		row.TotalDischarges = int(val)
	}
	if val, ok := doc["average_covered_charges"].(float64); ok {
		row.AverageCoveredCharge = val
	}
	if val, ok := doc["average_total_payments"].(float64); ok {
		row.AverageTotalPayment = val
	}
	if val, ok := doc["average_medicare_payments"].(float64); ok {
		row.AverageMedicarePayment = val
	}
	if val, ok := doc["average_rating"].(float64); ok {
		row.AverageRating = &val
	}

	if loc, ok := doc["location"].([]interface{}); ok && len(loc) == 2 {
		lat, latOK := loc[0].(float64)
		lon, lonOK := loc[1].(float64)
		if latOK && lonOK {
			row.Latitude = &lat
			row.Longitude = &lon
		}
	}

	return row
}
