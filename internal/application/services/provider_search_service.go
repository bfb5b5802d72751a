package services

import (
	"context"
	"fmt"
	"regexp"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/entities"
	"github.com/costnav/healthcare-cost-navigator/internal/domain/repositories"
	"github.com/costnav/healthcare-cost-navigator/internal/infrastructure/observability"
	"github.com/costnav/healthcare-cost-navigator/pkg/config"
	apperrors "github.com/costnav/healthcare-cost-navigator/pkg/errors"
)

var zipFormat = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// SearchParams are the inputs to a provider search.
type SearchParams struct {
	ProcedureQuery string
	Zip            string
	RadiusKm       float64
	Limit          int
}

// ProviderSearchService orchestrates a provider search: resolve the search
// center, fetch procedure-matching rows, filter by radius in-process, rank,
// truncate. Store failures surface as internal errors so callers can tell
// them apart from an empty result set.
type ProviderSearchService struct {
	repo       repositories.ProviderRepository
	searchRepo repositories.ProviderSearchRepository
	resolver   *GeoResolver
	matcher    *ProcedureMatcher
	ranker     *RankingService
	cfg        *config.SearchConfig
}

// NewProviderSearchService creates a new provider search service.
// searchRepo may be nil; matching then happens entirely in the data store.
func NewProviderSearchService(
	repo repositories.ProviderRepository,
	searchRepo repositories.ProviderSearchRepository,
	resolver *GeoResolver,
	matcher *ProcedureMatcher,
	ranker *RankingService,
	cfg *config.SearchConfig,
) *ProviderSearchService {
	return &ProviderSearchService{
		repo:       repo,
		searchRepo: searchRepo,
		resolver:   resolver,
		matcher:    matcher,
		ranker:     ranker,
		cfg:        cfg,
	}
}

// Search returns ranked results for a procedure query around a ZIP code.
// Records at exactly the radius boundary are included; records without
// coordinates are excluded from radius search.
func (s *ProviderSearchService) Search(ctx context.Context, params SearchParams) ([]*entities.SearchResult, error) {
	params, err := s.validate(params)
	if err != nil {
		return nil, err
	}

	patterns := s.matcher.BuildPatterns(params.ProcedureQuery)
	if len(patterns) == 0 {
		return nil, apperrors.NewValidationError("procedure query produced no match conditions")
	}

	center := s.resolver.Resolve(ctx, params.Zip)

	rows, err := s.fetch(ctx, params.ProcedureQuery, patterns)
	if err != nil {
		observability.LoggerFromContext(ctx).Error().
			Err(err).
			Str("procedure", params.ProcedureQuery).
			Str("zip", params.Zip).
			Msg("provider fetch failed")
		return nil, err
	}

	results := []*entities.SearchResult{}
	for _, row := range rows {
		if !row.HasCoordinates() {
			continue
		}
		distance := Haversine(center.Latitude, center.Longitude, *row.Latitude, *row.Longitude)
		if distance > params.RadiusKm {
			continue
		}
		result := entities.NewSearchResult(row)
		result.DistanceKm = &distance
		results = append(results, result)
	}

	s.ranker.Rank(results, entities.IntentValue)

	if len(results) > params.Limit {
		results = results[:params.Limit]
	}
	return results, nil
}

// TopRated returns the best-rated providers, optionally restricted to a
// procedure query. Providers without ratings are excluded.
func (s *ProviderSearchService) TopRated(ctx context.Context, procedureQuery string, limit int) ([]*entities.SearchResult, error) {
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		return nil, apperrors.NewValidationError(fmt.Sprintf("limit must be at most %d", s.cfg.MaxLimit))
	}

	var patterns []string
	if procedureQuery != "" {
		patterns = s.matcher.BuildPatterns(procedureQuery)
		if len(patterns) == 0 {
			return nil, apperrors.NewValidationError("procedure query produced no match conditions")
		}
	}

	rows, err := s.repo.TopRated(ctx, patterns, limit)
	if err != nil {
		return nil, err
	}

	results := make([]*entities.SearchResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, entities.NewSearchResult(row))
	}
	return results, nil
}

// GetProvider returns all procedure rows for one provider.
func (s *ProviderSearchService) GetProvider(ctx context.Context, providerID string) ([]*entities.ProviderWithRating, error) {
	if providerID == "" {
		return nil, apperrors.NewValidationError("provider id is required")
	}
	rows, err := s.repo.GetByProviderID(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("provider %s not found", providerID))
	}
	return rows, nil
}

func (s *ProviderSearchService) validate(params SearchParams) (SearchParams, error) {
	if params.ProcedureQuery == "" {
		return params, apperrors.NewValidationError("procedure query is required")
	}
	if !zipFormat.MatchString(params.Zip) {
		return params, apperrors.NewValidationError("zip must be 5 digits, optionally with a 4-digit extension")
	}

	if params.RadiusKm == 0 {
		params.RadiusKm = s.cfg.DefaultRadiusKm
	}
	if params.RadiusKm < 0 || params.RadiusKm > s.cfg.MaxRadiusKm {
		return params, apperrors.NewValidationError(fmt.Sprintf("radius must be between 0 and %g km", s.cfg.MaxRadiusKm))
	}

	if params.Limit == 0 {
		params.Limit = s.cfg.DefaultLimit
	}
	if params.Limit < 0 || params.Limit > s.cfg.MaxLimit {
		return params, apperrors.NewValidationError(fmt.Sprintf("limit must be between 1 and %d", s.cfg.MaxLimit))
	}

	return params, nil
}

// fetch prefers the full-text index when configured and degrades to the
// primary store's pattern matching on any index failure.
func (s *ProviderSearchService) fetch(ctx context.Context, query string, patterns []string) ([]*entities.ProviderWithRating, error) {
	if s.searchRepo != nil {
		rows, err := s.searchRepo.Search(ctx, s.matcher.Terms(query), 0)
		if err == nil && len(rows) > 0 {
			return rows, nil
		}
		if err != nil {
			observability.LoggerFromContext(ctx).Warn().
				Err(err).
				Msg("search index unavailable, falling back to data store")
		}
	}
	return s.repo.FetchMatching(ctx, patterns, 0)
}
