package services

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"strings"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/entities"
	"github.com/costnav/healthcare-cost-navigator/internal/domain/providers"
	"github.com/costnav/healthcare-cost-navigator/internal/domain/repositories"
	"github.com/costnav/healthcare-cost-navigator/internal/infrastructure/observability"
)

const geoCacheSeconds = 24 * 60 * 60

// FallbackCenter is the centroid used when a ZIP matches nothing at all.
var FallbackCenter = entities.Location{Latitude: 40.7128, Longitude: -74.0060}

// GeoResolver maps a ZIP code to approximate coordinates. Resolution never
// fails; each tier degrades precision rather than erroring.
type GeoResolver struct {
	zips    ZipTable
	regions RegionTable
	repo    repositories.ProviderRepository
	cache   providers.CacheProvider
}

// NewGeoResolver creates a new geo resolver. repo and cache may be nil; a
// nil repo skips the stored-record tier, a nil cache skips caching.
func NewGeoResolver(zips ZipTable, regions RegionTable, repo repositories.ProviderRepository, cache providers.CacheProvider) *GeoResolver {
	return &GeoResolver{
		zips:    zips,
		regions: regions,
		repo:    repo,
		cache:   cache,
	}
}

// Resolve returns coordinates for a ZIP code. Tiers, first hit wins:
// static table, stored provider record, prefix regional centroid with
// deterministic jitter, fixed fallback center. A ZIP+4 extension is ignored.
func (g *GeoResolver) Resolve(ctx context.Context, zip string) entities.Location {
	zip = normalizeZip(zip)

	if entry, ok := g.zips[zip]; ok {
		return entities.Location{Latitude: entry.Lat, Longitude: entry.Lon}
	}

	cacheKey := "geo:zip:" + zip
	if g.cache != nil {
		if cached, err := g.cache.Get(ctx, cacheKey); err == nil {
			var loc entities.Location
			if json.Unmarshal(cached, &loc) == nil {
				return loc
			}
		}
	}

	if g.repo != nil {
		loc, err := g.repo.FetchZipCoordinates(ctx, zip)
		if err != nil {
			observability.LoggerFromContext(ctx).Warn().
				Err(err).
				Str("zip", zip).
				Msg("zip coordinate lookup failed, falling back to regional heuristic")
		} else if loc != nil {
			if g.cache != nil {
				if encoded, err := json.Marshal(loc); err == nil {
					if err := g.cache.Set(ctx, cacheKey, encoded, geoCacheSeconds); err != nil {
						observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to cache zip resolution")
					}
				}
			}
			return *loc
		}
	}

	if loc, ok := g.regionFor(zip); ok {
		return loc
	}

	return FallbackCenter
}

// regionFor matches the ZIP's numeric prefix against regional centroids,
// longest prefix first, and offsets the centroid by a jitter derived from
// the full ZIP so lookups stay reproducible.
func (g *GeoResolver) regionFor(zip string) (entities.Location, bool) {
	for _, n := range []int{2, 1} {
		if len(zip) < n {
			continue
		}
		entry, ok := g.regions[zip[:n]]
		if !ok {
			continue
		}

		latJitter, lonJitter := zipJitter(zip, entry.Jitter)
		return entities.Location{
			Latitude:  entry.Lat + latJitter,
			Longitude: entry.Lon + lonJitter,
		}, true
	}
	return entities.Location{}, false
}

// zipJitter derives a bounded offset in [-bound, bound] from the ZIP string.
// Same ZIP, same offset, every call.
func zipJitter(zip string, bound float64) (float64, float64) {
	h := fnv.New64a()
	h.Write([]byte(zip))
	sum := h.Sum64()

	latUnit := float64(sum&0xFFFF)/0xFFFF*2 - 1
	lonUnit := float64((sum>>16)&0xFFFF)/0xFFFF*2 - 1

	return latUnit * bound, lonUnit * bound
}

// normalizeZip trims whitespace and drops a ZIP+4 extension.
func normalizeZip(zip string) string {
	zip = strings.TrimSpace(zip)
	if idx := strings.IndexByte(zip, '-'); idx >= 0 {
		zip = zip[:idx]
	}
	return zip
}
