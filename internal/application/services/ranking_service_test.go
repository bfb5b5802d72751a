package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/entities"
)

func searchResult(id string, cost float64, rating *float64, distance *float64, volume int) *entities.SearchResult {
	return &entities.SearchResult{
		ProviderRecord: entities.ProviderRecord{
			ProviderID:           id,
			AverageCoveredCharge: cost,
			TotalDischarges:      volume,
		},
		AverageRating: rating,
		DistanceKm:    distance,
	}
}

func TestScore_ReferenceScenario(t *testing.T) {
	// cost at the floor, perfect rating, zero distance, zero volume:
	// 1000*0.4 + 150*0.35 + 100*0.15 + 0*0.1 = 467.5
	svc := NewRankingService()
	result := searchResult("1", 1000, floatPtr(10), floatPtr(0), 0)

	assert.InDelta(t, 467.5, svc.Score(result), 1e-9)
}

func TestComponentScores(t *testing.T) {
	assert.InDelta(t, 1000, CostScore(1000), 1e-9)
	assert.InDelta(t, 1000, CostScore(500), 1e-9) // floored
	assert.InDelta(t, 20, CostScore(50000), 1e-9)

	assert.InDelta(t, 150, RatingScore(floatPtr(10)), 1e-9)
	assert.InDelta(t, 75, RatingScore(nil), 1e-9) // default 5.0

	assert.InDelta(t, 100, DistanceScore(floatPtr(0)), 1e-9)
	assert.InDelta(t, 0, DistanceScore(floatPtr(200)), 1e-9) // clamped
	assert.InDelta(t, 25, DistanceScore(nil), 1e-9)          // default 50 km

	assert.InDelta(t, 0, VolumeScore(0), 1e-9)
	assert.InDelta(t, 50, VolumeScore(1000000), 1e-9) // capped
}

func TestScore_CostMonotonicity(t *testing.T) {
	svc := NewRankingService()
	expensive := searchResult("1", 80000, floatPtr(8), floatPtr(10), 100)
	cheap := searchResult("2", 40000, floatPtr(8), floatPtr(10), 100)

	assert.Greater(t, svc.Score(cheap), svc.Score(expensive))
}

func TestRank_CheapestIsNonDecreasingInCost(t *testing.T) {
	svc := NewRankingService()
	results := []*entities.SearchResult{
		searchResult("3", 70000, nil, nil, 0),
		searchResult("1", 30000, nil, nil, 0),
		searchResult("2", 50000, nil, nil, 0),
	}

	svc.Rank(results, entities.IntentCheapest)

	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].AverageCoveredCharge, results[i].AverageCoveredCharge)
	}
}

func TestRank_BestRatedPutsUnratedLast(t *testing.T) {
	svc := NewRankingService()
	results := []*entities.SearchResult{
		searchResult("1", 50000, nil, nil, 0),
		searchResult("2", 50000, floatPtr(9.1), nil, 0),
		searchResult("3", 50000, floatPtr(7.4), nil, 0),
	}

	svc.Rank(results, entities.IntentBestRated)

	assert.Equal(t, "2", results[0].ProviderID)
	assert.Equal(t, "3", results[1].ProviderID)
	assert.Equal(t, "1", results[2].ProviderID)
}

func TestRank_NearestByDistanceThenZip(t *testing.T) {
	svc := NewRankingService()
	results := []*entities.SearchResult{
		searchResult("1", 0, nil, floatPtr(25), 0),
		searchResult("2", 0, nil, floatPtr(5), 0),
		searchResult("3", 0, nil, nil, 0),
	}
	results[2].ZipCode = "10001"

	svc.Rank(results, entities.IntentNearest)

	assert.Equal(t, "2", results[0].ProviderID)
	assert.Equal(t, "1", results[1].ProviderID)
	assert.Equal(t, "3", results[2].ProviderID)
}

func TestRank_NearestWithoutDistancesUsesZipOrder(t *testing.T) {
	svc := NewRankingService()
	results := []*entities.SearchResult{
		searchResult("1", 0, nil, nil, 0),
		searchResult("2", 0, nil, nil, 0),
	}
	results[0].ZipCode = "14201"
	results[1].ZipCode = "10001"

	svc.Rank(results, entities.IntentNearest)

	assert.Equal(t, "2", results[0].ProviderID)
}

func TestRank_ValueFillsCompositeScores(t *testing.T) {
	svc := NewRankingService()
	results := []*entities.SearchResult{
		searchResult("1", 80000, floatPtr(6), floatPtr(40), 10),
		searchResult("2", 20000, floatPtr(9), floatPtr(5), 200),
	}

	svc.Rank(results, entities.IntentValue)

	require.NotNil(t, results[0].CompositeScore)
	require.NotNil(t, results[1].CompositeScore)
	assert.Equal(t, "2", results[0].ProviderID)
	assert.GreaterOrEqual(t, *results[0].CompositeScore, *results[1].CompositeScore)
}

func TestRank_TieBreaksOnProviderID(t *testing.T) {
	svc := NewRankingService()
	results := []*entities.SearchResult{
		searchResult("B", 50000, nil, nil, 0),
		searchResult("A", 50000, nil, nil, 0),
	}

	svc.Rank(results, entities.IntentCheapest)
	assert.Equal(t, "A", results[0].ProviderID)
}
