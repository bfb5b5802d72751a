package services

import (
	"math"
	"sort"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/entities"
)

// Default inputs used when a record lacks a factor.
const (
	defaultCost       = 50000.0
	defaultRating     = 5.0
	defaultDistanceKm = 50.0
	costFloor         = 1000.0
)

// RankingService scores and orders search results. The composite value
// score is a weighted sum of normalized cost, rating, distance, and volume
// components; narrower intents sort by a single factor instead.
type RankingService struct {
	wCost     float64
	wRating   float64
	wDistance float64
	wVolume   float64
}

// NewRankingService creates a ranking service with the standard weights.
func NewRankingService() *RankingService {
	return &RankingService{
		wCost:     0.40,
		wRating:   0.35,
		wDistance: 0.15,
		wVolume:   0.10,
	}
}

// CostScore is inversely related to cost, floored at 1000 to avoid blow-up
// near zero.
func CostScore(cost float64) float64 {
	return 1_000_000 / math.Max(cost, costFloor)
}

// RatingScore scales the 1-10 rating; unrated records score as 5.0.
func RatingScore(rating *float64) float64 {
	r := defaultRating
	if rating != nil {
		r = *rating
	}
	return r * 15
}

// DistanceScore decays linearly and clamps at 0 beyond ~66.7 km. A missing
// distance scores as 50 km.
func DistanceScore(distanceKm *float64) float64 {
	d := defaultDistanceKm
	if distanceKm != nil {
		d = *distanceKm
	}
	return math.Max(0, 100-d*1.5)
}

// VolumeScore grows logarithmically with discharge volume, capped at 50.
func VolumeScore(volume int) float64 {
	return math.Min(math.Log(float64(volume)+1)*10, 50)
}

// Score computes the composite value score for one result.
func (s *RankingService) Score(result *entities.SearchResult) float64 {
	cost := result.AverageCoveredCharge
	if cost <= 0 {
		cost = defaultCost
	}

	return s.wCost*CostScore(cost) +
		s.wRating*RatingScore(result.AverageRating) +
		s.wDistance*DistanceScore(result.DistanceKm) +
		s.wVolume*VolumeScore(result.TotalDischarges)
}

// Rank orders results in place according to the intent and fills in
// composite scores for the value intent. Ties break on provider ID
// ascending so output is reproducible.
func (s *RankingService) Rank(results []*entities.SearchResult, intent entities.Intent) {
	switch intent {
	case entities.IntentCheapest:
		sort.SliceStable(results, func(i, j int) bool {
			if results[i].AverageCoveredCharge != results[j].AverageCoveredCharge {
				return results[i].AverageCoveredCharge < results[j].AverageCoveredCharge
			}
			return results[i].ProviderID < results[j].ProviderID
		})

	case entities.IntentBestRated:
		sort.SliceStable(results, func(i, j int) bool {
			ri, rj := results[i].AverageRating, results[j].AverageRating
			switch {
			case ri != nil && rj != nil && *ri != *rj:
				return *ri > *rj
			case ri != nil && rj == nil:
				return true
			case ri == nil && rj != nil:
				return false
			}
			return results[i].ProviderID < results[j].ProviderID
		})

	case entities.IntentNearest:
		sort.SliceStable(results, func(i, j int) bool {
			di, dj := results[i].DistanceKm, results[j].DistanceKm
			switch {
			case di != nil && dj != nil && *di != *dj:
				return *di < *dj
			case di != nil && dj == nil:
				return true
			case di == nil && dj != nil:
				return false
			case di == nil && dj == nil && results[i].ZipCode != results[j].ZipCode:
				// ZIP lexical order only approximates proximity; used when
				// no distance was computed.
				return results[i].ZipCode < results[j].ZipCode
			}
			return results[i].ProviderID < results[j].ProviderID
		})

	default:
		for _, r := range results {
			score := s.Score(r)
			r.CompositeScore = &score
		}
		sort.SliceStable(results, func(i, j int) bool {
			if *results[i].CompositeScore != *results[j].CompositeScore {
				return *results[i].CompositeScore > *results[j].CompositeScore
			}
			return results[i].ProviderID < results[j].ProviderID
		})
	}
}
