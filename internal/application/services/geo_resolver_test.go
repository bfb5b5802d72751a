package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/entities"
)

func newTestResolver(repo *fakeProviderRepository) *GeoResolver {
	if repo == nil {
		return NewGeoResolver(DefaultZipTable(), DefaultRegionTable(), nil, nil)
	}
	return NewGeoResolver(DefaultZipTable(), DefaultRegionTable(), repo, nil)
}

func TestResolve_KnownZipUsesStaticTable(t *testing.T) {
	resolver := newTestResolver(nil)

	loc := resolver.Resolve(context.Background(), "10001")
	assert.InDelta(t, 40.7505, loc.Latitude, 0.0001)
	assert.InDelta(t, -73.9934, loc.Longitude, 0.0001)
}

func TestResolve_StripsZipExtension(t *testing.T) {
	resolver := newTestResolver(nil)

	loc := resolver.Resolve(context.Background(), "10001-1234")
	assert.InDelta(t, 40.7505, loc.Latitude, 0.0001)
}

func TestResolve_StoredRecordTier(t *testing.T) {
	repo := &fakeProviderRepository{
		zipCoord: map[string]*entities.Location{
			"14450": {Latitude: 43.09, Longitude: -77.44},
		},
	}
	resolver := newTestResolver(repo)

	loc := resolver.Resolve(context.Background(), "14450")
	assert.InDelta(t, 43.09, loc.Latitude, 0.0001)
	assert.InDelta(t, -77.44, loc.Longitude, 0.0001)
}

func TestResolve_RegionalHeuristicIsDeterministic(t *testing.T) {
	resolver := newTestResolver(&fakeProviderRepository{})

	first := resolver.Resolve(context.Background(), "12345")
	second := resolver.Resolve(context.Background(), "12345")
	assert.Equal(t, first, second)

	// Jitter stays within the region's bound around the Albany centroid.
	region := DefaultRegionTable()["12"]
	assert.InDelta(t, region.Lat, first.Latitude, region.Jitter+1e-9)
	assert.InDelta(t, region.Lon, first.Longitude, region.Jitter+1e-9)
}

func TestResolve_SamePrefixDifferentZipsSpreadOut(t *testing.T) {
	resolver := newTestResolver(&fakeProviderRepository{})

	a := resolver.Resolve(context.Background(), "12345")
	b := resolver.Resolve(context.Background(), "12399")
	assert.NotEqual(t, a, b)
}

func TestResolve_UnknownZipFallsBackToCenter(t *testing.T) {
	resolver := newTestResolver(&fakeProviderRepository{})

	first := resolver.Resolve(context.Background(), "99999")
	second := resolver.Resolve(context.Background(), "99999")
	assert.Equal(t, FallbackCenter, first)
	assert.Equal(t, first, second)
}

func TestResolve_StoredRecordIsCached(t *testing.T) {
	repo := &fakeProviderRepository{
		zipCoord: map[string]*entities.Location{
			"14450": {Latitude: 43.09, Longitude: -77.44},
		},
	}
	resolver := NewGeoResolver(DefaultZipTable(), DefaultRegionTable(), repo, newFakeCache())

	first := resolver.Resolve(context.Background(), "14450")
	second := resolver.Resolve(context.Background(), "14450")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.zipCalls)
}

func TestResolve_RepoErrorDegradesToHeuristic(t *testing.T) {
	repo := &fakeProviderRepository{zipErr: errors.New("store down")}
	resolver := newTestResolver(repo)

	loc := resolver.Resolve(context.Background(), "12345")
	region := DefaultRegionTable()["12"]
	assert.InDelta(t, region.Lat, loc.Latitude, region.Jitter+1e-9)
}
