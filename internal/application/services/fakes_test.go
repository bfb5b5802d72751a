package services

import (
	"context"
	"errors"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/entities"
	"github.com/costnav/healthcare-cost-navigator/internal/domain/repositories"
)

var errCacheMiss = errors.New("cache miss")

// fakeProviderRepository is an in-memory ProviderRepository for service tests.
type fakeProviderRepository struct {
	rows     []*entities.ProviderWithRating
	zipCoord map[string]*entities.Location

	fetchErr    error
	zipErr      error
	zipCalls    int
	lastRequest *repositories.FetchRequest
	requests    []repositories.FetchRequest
}

var _ repositories.ProviderRepository = (*fakeProviderRepository)(nil)

func (f *fakeProviderRepository) FetchMatching(ctx context.Context, patterns []string, limit int) ([]*entities.ProviderWithRating, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.rows, nil
}

func (f *fakeProviderRepository) FetchByRequest(ctx context.Context, req repositories.FetchRequest) ([]*entities.ProviderWithRating, error) {
	f.lastRequest = &req
	f.requests = append(f.requests, req)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.rows, nil
}

func (f *fakeProviderRepository) FetchZipCoordinates(ctx context.Context, zip string) (*entities.Location, error) {
	f.zipCalls++
	if f.zipErr != nil {
		return nil, f.zipErr
	}
	return f.zipCoord[zip], nil
}

func (f *fakeProviderRepository) GetByProviderID(ctx context.Context, providerID string) ([]*entities.ProviderWithRating, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	matched := []*entities.ProviderWithRating{}
	for _, row := range f.rows {
		if row.ProviderID == providerID {
			matched = append(matched, row)
		}
	}
	return matched, nil
}

func (f *fakeProviderRepository) TopRated(ctx context.Context, patterns []string, limit int) ([]*entities.ProviderWithRating, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	rated := []*entities.ProviderWithRating{}
	for _, row := range f.rows {
		if row.AverageRating != nil {
			rated = append(rated, row)
		}
	}
	if limit > 0 && len(rated) > limit {
		rated = rated[:limit]
	}
	return rated, nil
}

// fakeCompletion is a scriptable CompletionProvider.
type fakeCompletion struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
	systems   []string
}

func (f *fakeCompletion) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	idx := f.calls
	f.calls++
	f.systems = append(f.systems, systemPrompt)
	f.prompts = append(f.prompts, userPrompt)

	if idx < len(f.errs) && f.errs[idx] != nil {
		return "", f.errs[idx]
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return "", nil
}

// fakeCache is an in-memory CacheProvider.
type fakeCache struct {
	values map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string][]byte{}}
}

func (f *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := f.values[key]; ok {
		return v, nil
	}
	return nil, errCacheMiss
}

func (f *fakeCache) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	f.values[key] = value
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, key string) error {
	delete(f.values, key)
	return nil
}

func (f *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := f.values[key]
	return ok, nil
}

func floatPtr(v float64) *float64 { return &v }

func providerRow(id, name, city, zip, procedure string, cost float64, rating *float64, volume int, lat, lon *float64) *entities.ProviderWithRating {
	return &entities.ProviderWithRating{
		ProviderRecord: entities.ProviderRecord{
			ProviderID:             id,
			Name:                   name,
			City:                   city,
			State:                  "NY",
			ZipCode:                zip,
			ProcedureDescription:   procedure,
			TotalDischarges:        volume,
			AverageCoveredCharge:   cost,
			AverageTotalPayment:    cost * 0.3,
			AverageMedicarePayment: cost * 0.25,
			Latitude:               lat,
			Longitude:              lon,
		},
		AverageRating: rating,
	}
}
