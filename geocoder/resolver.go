package geocoder

import (
	"context"

	"github.com/apex/log"

	"incident-feed-service/models"
	"incident-feed-service/observability"
)

// AddressStore persists a resolved address onto a report record.
type AddressStore interface {
	UpdateReportAddress(ctx context.Context, reportID int64, address string) error
}

// Resolver turns a report's coordinates into a display address. Results
// are cached on the report record itself: once resolved, the external
// service is never called again for that report.
type Resolver struct {
	geocoder Geocoder
	store    AddressStore
	metrics  *observability.Metrics
}

// NewResolver creates an address resolver backed by the given geocoder
// and report store.
func NewResolver(geocoder Geocoder, store AddressStore, metrics *observability.Metrics) *Resolver {
	return &Resolver{
		geocoder: geocoder,
		store:    store,
		metrics:  metrics,
	}
}

// Resolve returns the display address for a report. Lookup failures are
// absorbed: the caller always gets a usable string, at worst the raw
// coordinates. An empty string means the report has no location at all.
func (r *Resolver) Resolve(ctx context.Context, report *models.Report) string {
	if report.Address != nil && *report.Address != "" {
		r.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return *report.Address
	}

	if !report.HasLocation() {
		return ""
	}
	lat, lon := *report.Latitude, *report.Longitude

	r.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	start := clock.Now()
	place, err := r.geocoder.Reverse(ctx, lat, lon)
	r.metrics.GeocodeDuration.Observe(clock.Now().Sub(start).Seconds())
	if err != nil {
		// Reverse geocoding is best-effort enrichment. Nothing is
		// persisted, so a later request retries the lookup.
		r.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		log.Warnf("Reverse geocode for report %d failed: %v", report.ID, err)
		return CoordinateFallback(lat, lon)
	}
	r.metrics.GeocodeRequests.WithLabelValues("success").Inc()

	address := FormatAddress(place, lat, lon)

	if err := r.store.UpdateReportAddress(ctx, report.ID, address); err != nil {
		// Failure to cache is not failure to serve.
		log.Warnf("Failed to cache address for report %d: %v", report.ID, err)
	}
	report.Address = &address

	return address
}
