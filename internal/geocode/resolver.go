package geocode

import (
	"context"
	"log/slog"

	"github.com/agrosync/fieldops/internal/cache"
	"github.com/agrosync/fieldops/internal/geo"
	"github.com/agrosync/fieldops/internal/telemetry"
)

// Reverser looks up a place name for a position.
type Reverser interface {
	Reverse(ctx context.Context, lat, lng float64) (string, error)
}

// Resolver names positions on a best-effort basis: cached labels first, then
// the Reverser, then the coordinate fallback. It never fails.
type Resolver struct {
	reverser Reverser
	cache    *cache.LocationCache
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

// NewResolver creates a Resolver. A nil reverser always yields the fallback;
// a nil cache disables caching.
func NewResolver(r Reverser, c *cache.LocationCache, metrics *telemetry.Metrics, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{reverser: r, cache: c, metrics: metrics, logger: logger}
}

// LocationName returns the place name for lat/lng, or
// "Location at <lat>°, <lng>°" when it cannot be looked up.
func (r *Resolver) LocationName(ctx context.Context, lat, lng float64) string {
	if r.cache != nil {
		if label, ok := r.cache.Get(lat, lng); ok {
			r.metrics.GeocodeLookup(ctx, "hit")
			return label
		}
	}
	if r.reverser == nil {
		r.metrics.GeocodeLookup(ctx, "fallback")
		return geo.FallbackLocationName(lat, lng)
	}

	label, err := r.reverser.Reverse(ctx, lat, lng)
	if err != nil {
		r.metrics.GeocodeLookup(ctx, "fallback")
		r.logger.Warn("Reverse geocoding failed, using coordinates", "lat", lat, "lng", lng, "error", err)
		return geo.FallbackLocationName(lat, lng)
	}

	r.metrics.GeocodeLookup(ctx, "miss")
	if r.cache != nil {
		r.cache.Set(lat, lng, label)
	}
	return label
}
