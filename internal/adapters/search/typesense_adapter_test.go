package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/entities"
)

func TestDocumentID_CombinesProviderAndProcedure(t *testing.T) {
	row := &entities.ProviderWithRating{
		ProviderRecord: entities.ProviderRecord{
			ProviderID:           "330123",
			ProcedureDescription: "470 - MAJOR JOINT REPLACEMENT",
		},
	}

	id := documentID(row)
	assert.Equal(t, "330123:470_-_major_joint_replacement", id)
}

func TestDocumentToRow_FullDocument(t *testing.T) {
	doc := map[string]interface{}{
		"provider_id":               "330123",
		"provider_name":             "TEST MEDICAL CENTER",
		"city":                      "NEW YORK",
		"state":                     "NY",
		"zip_code":                  "10001",
		"procedure":                 "470 - MAJOR JOINT REPLACEMENT",
		"total_discharges":          float64(25),
		"average_covered_charges":   84621.5,
		"average_total_payments":    21575.0,
		"average_medicare_payments": 19284.0,
		"average_rating":            8.4,
		"location":                  []interface{}{40.75, -73.99},
	}

	row := documentToRow(doc)

	assert.Equal(t, "330123", row.ProviderID)
	assert.Equal(t, 25, row.TotalDischarges)
	assert.InDelta(t, 84621.5, row.AverageCoveredCharge, 0.001)
	require.NotNil(t, row.AverageRating)
	assert.InDelta(t, 8.4, *row.AverageRating, 0.001)
	require.True(t, row.HasCoordinates())
	assert.InDelta(t, -73.99, *row.Longitude, 0.001)
}

func TestDocumentToRow_MissingOptionalFields(t *testing.T) {
	doc := map[string]interface{}{
		"provider_id":   "330456",
		"provider_name": "RIVERSIDE HOSPITAL",
		"procedure":     "470 - MAJOR JOINT REPLACEMENT",
	}

	row := documentToRow(doc)

	assert.Nil(t, row.AverageRating)
	assert.False(t, row.HasCoordinates())
}
