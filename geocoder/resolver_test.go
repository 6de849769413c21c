package geocoder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incident-feed-service/models"
	"incident-feed-service/observability"
)

type stubGeocoder struct {
	place Place
	err   error
	calls int
}

func (s *stubGeocoder) Reverse(_ context.Context, _, _ float64) (Place, error) {
	s.calls++
	return s.place, s.err
}

type stubStore struct {
	err   error
	saved map[int64]string
}

func (s *stubStore) UpdateReportAddress(_ context.Context, reportID int64, address string) error {
	if s.err != nil {
		return s.err
	}
	if s.saved == nil {
		s.saved = make(map[int64]string)
	}
	s.saved[reportID] = address
	return nil
}

func ptr(f float64) *float64 { return &f }

func reportAt(id int64, lat, lon float64) *models.Report {
	return &models.Report{ID: id, Latitude: ptr(lat), Longitude: ptr(lon)}
}

func TestResolver_CachedAddressSkipsLookup(t *testing.T) {
	g := &stubGeocoder{}
	r := NewResolver(g, &stubStore{}, observability.NewMetricsForTesting())

	cached := "Main St, Springfield"
	report := reportAt(1, 40.0001, -75.0001)
	report.Address = &cached

	got := r.Resolve(context.Background(), report)
	assert.Equal(t, "Main St, Springfield", got)
	assert.Zero(t, g.calls, "cached report must not reach the external service")
}

func TestResolver_NoCoordinatesNoLookup(t *testing.T) {
	g := &stubGeocoder{}
	r := NewResolver(g, &stubStore{}, observability.NewMetricsForTesting())

	got := r.Resolve(context.Background(), &models.Report{ID: 2})
	assert.Empty(t, got)
	assert.Zero(t, g.calls)
}

func TestResolver_SuccessPersistsAndCaches(t *testing.T) {
	g := &stubGeocoder{place: Place{Address: AddressParts{
		Road: "Broad St", City: "Philadelphia", State: "Pennsylvania", Country: "USA",
	}}}
	store := &stubStore{}
	r := NewResolver(g, store, observability.NewMetricsForTesting())

	report := reportAt(3, 39.95, -75.16)
	got := r.Resolve(context.Background(), report)
	assert.Equal(t, "Broad St, Philadelphia, Pennsylvania, USA", got)
	assert.Equal(t, got, store.saved[3])

	require.NotNil(t, report.Address)
	assert.Equal(t, got, *report.Address)

	// The second resolution is served from the record, not the service.
	_ = r.Resolve(context.Background(), report)
	assert.Equal(t, 1, g.calls)
}

func TestResolver_LookupFailureFallsBackAndDoesNotPersist(t *testing.T) {
	g := &stubGeocoder{err: errors.New("timeout")}
	store := &stubStore{}
	r := NewResolver(g, store, observability.NewMetricsForTesting())

	report := reportAt(4, 40.0, -75.0)
	got := r.Resolve(context.Background(), report)
	assert.Equal(t, "40.00000, -75.00000", got)
	assert.Empty(t, store.saved)
	assert.Nil(t, report.Address, "a failed lookup must stay retryable")

	// A later call retries the lookup.
	_ = r.Resolve(context.Background(), report)
	assert.Equal(t, 2, g.calls)
}

func TestResolver_CacheWriteFailureStillServes(t *testing.T) {
	g := &stubGeocoder{place: Place{DisplayName: "Somewhere on Earth"}}
	store := &stubStore{err: errors.New("db gone")}
	r := NewResolver(g, store, observability.NewMetricsForTesting())

	got := r.Resolve(context.Background(), reportAt(5, 40.0, -75.0))
	assert.Equal(t, "Somewhere on Earth", got)
}
