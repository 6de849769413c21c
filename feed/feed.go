// Package feed assembles the proximity feed: radius-filtered,
// vote-and-address-enriched, distance-sorted views of incident reports.
package feed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"incident-feed-service/geo"
	"incident-feed-service/models"
	"incident-feed-service/observability"
)

// ErrNotFound is returned when an operation targets a missing report.
var ErrNotFound = errors.New("report not found")

// ValidationError marks a rejected request. Handlers map it to a 400.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

func validationf(format string, args ...any) error {
	return ValidationError(fmt.Sprintf(format, args...))
}

// Store is the report and vote storage the assembler runs against. The
// store does no radius filtering; that happens here.
type Store interface {
	CreateReport(ctx context.Context, report *models.Report) (*models.Report, error)
	GetReports(ctx context.Context) ([]models.Report, error)
	GetReportByID(ctx context.Context, id int64) (*models.Report, error)
	UpdateReportStatus(ctx context.Context, reportID int64, status string) error
	SetReportVerified(ctx context.Context, reportID int64, verified bool) error
	DeleteReport(ctx context.Context, reportID int64) error
	UpsertVote(ctx context.Context, vote *models.Vote) error
	GetVoteSummary(ctx context.Context, reportID int64, viewerID string) (models.VoteSummary, error)
	GetVoteSummaries(ctx context.Context, viewerID string) (map[int64]models.VoteSummary, error)
}

// AddressResolver resolves a display address for a report, absorbing
// lookup failures internally.
type AddressResolver interface {
	Resolve(ctx context.Context, report *models.Report) string
}

// Service implements the feed, nearby, listing and voting operations.
type Service struct {
	store         Store
	resolver      AddressResolver
	metrics       *observability.Metrics
	defaultRadius float64
}

// NewService creates the feed service. defaultRadius is the radius in
// miles used when a caller does not supply one.
func NewService(store Store, resolver AddressResolver, metrics *observability.Metrics, defaultRadius float64) *Service {
	if defaultRadius <= 0 {
		defaultRadius = 0.5
	}
	return &Service{
		store:         store,
		resolver:      resolver,
		metrics:       metrics,
		defaultRadius: defaultRadius,
	}
}

// SubmitReport validates and stores a new incident report.
func (s *Service) SubmitReport(ctx context.Context, req *models.SubmitReportRequest) (*models.Report, error) {
	var missing []string
	if req.Date == "" {
		missing = append(missing, "date")
	}
	if req.Severity == "" {
		missing = append(missing, "severity")
	}
	if req.Details == "" {
		missing = append(missing, "details")
	}
	if len(missing) > 0 {
		return nil, validationf("missing required fields: %s", strings.Join(missing, ", "))
	}

	report := &models.Report{
		Date:     req.Date,
		Severity: req.Severity,
		Details:  req.Details,
		Status:   req.Status,
	}
	if loc := req.Location; loc != nil {
		if (loc.Latitude == nil) != (loc.Longitude == nil) {
			return nil, validationf("latitude and longitude must be provided together")
		}
		report.Latitude = loc.Latitude
		report.Longitude = loc.Longitude
		if report.HasLocation() {
			report.Accuracy = loc.Accuracy
		}
	}

	report, err := s.store.CreateReport(ctx, report)
	if err != nil {
		return nil, err
	}
	s.metrics.ReportsSubmitted.Inc()
	return report, nil
}

// GetReport returns one report by id.
func (s *Service) GetReport(ctx context.Context, id int64) (*models.Report, error) {
	report, err := s.store.GetReportByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return report, nil
}

// locatedReport pairs a report with its raw, unrounded distance from
// the viewer. Sorting uses the raw value; only the display field is
// rounded.
type locatedReport struct {
	report   models.Report
	distance float64
}

// reportsWithin returns the reports with coordinates inside the radius,
// sorted ascending by distance. The sort is stable so ties keep the
// store's ordering across identical requests.
func (s *Service) reportsWithin(ctx context.Context, lat, lon, radiusMiles float64) ([]locatedReport, error) {
	reports, err := s.store.GetReports(ctx)
	if err != nil {
		return nil, err
	}

	located := make([]locatedReport, 0, len(reports))
	for _, r := range reports {
		if !r.HasLocation() {
			continue
		}
		d := geo.Miles(lat, lon, *r.Latitude, *r.Longitude)
		if d <= radiusMiles {
			located = append(located, locatedReport{report: r, distance: d})
		}
	}

	sort.SliceStable(located, func(i, j int) bool {
		return located[i].distance < located[j].distance
	})
	return located, nil
}

// Feed returns the reports within the default radius of the viewer,
// enriched with vote aggregates and resolved addresses, closest first.
// viewerID may be empty for anonymous viewers.
func (s *Service) Feed(ctx context.Context, lat, lon float64, viewerID string) ([]models.FeedEntry, error) {
	located, err := s.reportsWithin(ctx, lat, lon, s.defaultRadius)
	if err != nil {
		return nil, err
	}

	// One grouped query covers every report in the feed.
	summaries, err := s.store.GetVoteSummaries(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	entries := make([]models.FeedEntry, 0, len(located))
	for _, lr := range located {
		address := s.resolver.Resolve(ctx, &lr.report)
		entries = append(entries, models.FeedEntry{
			Report:        lr.report,
			DistanceMiles: roundMiles(lr.distance),
			Votes:         summaries[lr.report.ID],
			Address:       address,
		})
	}
	return entries, nil
}

// Nearby returns the reports within radiusMiles of the given point,
// closest first, with addresses but no vote data. A non-positive radius
// falls back to the default.
func (s *Service) Nearby(ctx context.Context, lat, lon, radiusMiles float64) ([]models.NearbyEntry, error) {
	if radiusMiles <= 0 {
		radiusMiles = s.defaultRadius
	}

	located, err := s.reportsWithin(ctx, lat, lon, radiusMiles)
	if err != nil {
		return nil, err
	}

	entries := make([]models.NearbyEntry, 0, len(located))
	for _, lr := range located {
		address := s.resolver.Resolve(ctx, &lr.report)
		entries = append(entries, models.NearbyEntry{
			Report:        lr.report,
			DistanceMiles: roundMiles(lr.distance),
			Address:       address,
		})
	}
	return entries, nil
}

// ListReports returns every report. With a viewer location, reports
// with coordinates are annotated with their distance and sorted closest
// first, and reports without coordinates follow in stored order.
// Without a location the listing is most recent first, unannotated.
func (s *Service) ListReports(ctx context.Context, lat, lon *float64) ([]models.ListedReport, error) {
	if (lat == nil) != (lon == nil) {
		return nil, validationf("latitude and longitude must be provided together")
	}

	reports, err := s.store.GetReports(ctx)
	if err != nil {
		return nil, err
	}

	listed := make([]models.ListedReport, 0, len(reports))
	if lat == nil {
		for _, r := range reports {
			listed = append(listed, models.ListedReport{Report: r})
		}
		return listed, nil
	}

	var unlocated []models.ListedReport
	type annotated struct {
		entry models.ListedReport
		raw   float64
	}
	var located []annotated
	for _, r := range reports {
		if !r.HasLocation() {
			unlocated = append(unlocated, models.ListedReport{Report: r})
			continue
		}
		raw := geo.Miles(*lat, *lon, *r.Latitude, *r.Longitude)
		display := roundMiles(raw)
		located = append(located, annotated{
			entry: models.ListedReport{Report: r, DistanceMiles: &display},
			raw:   raw,
		})
	}

	sort.SliceStable(located, func(i, j int) bool {
		return located[i].raw < located[j].raw
	})
	for _, a := range located {
		listed = append(listed, a.entry)
	}
	return append(listed, unlocated...), nil
}

// Vote records a vote and returns the updated aggregates for the
// report. A repeat vote from the same voter replaces the previous one.
func (s *Service) Vote(ctx context.Context, reportID int64, voterID string, value int) (*models.VoteSummary, error) {
	if voterID == "" {
		return nil, validationf("voter_id is required")
	}
	if value != 1 && value != -1 {
		return nil, validationf("vote value must be 1 or -1, got %d", value)
	}

	if _, err := s.GetReport(ctx, reportID); err != nil {
		return nil, err
	}

	if err := s.store.UpsertVote(ctx, &models.Vote{
		ReportID: reportID,
		VoterID:  voterID,
		Value:    value,
	}); err != nil {
		return nil, err
	}
	s.metrics.VotesCast.Inc()

	summary, err := s.store.GetVoteSummary(ctx, reportID, voterID)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// VerifyReport marks a report verified. Missing reports are an error.
func (s *Service) VerifyReport(ctx context.Context, reportID int64) error {
	if _, err := s.GetReport(ctx, reportID); err != nil {
		return err
	}
	return s.store.SetReportVerified(ctx, reportID, true)
}

// SetStatus updates the free-text status of a report.
func (s *Service) SetStatus(ctx context.Context, reportID int64, status string) error {
	if status == "" {
		return validationf("status is required")
	}
	if _, err := s.GetReport(ctx, reportID); err != nil {
		return err
	}
	return s.store.UpdateReportStatus(ctx, reportID, status)
}

// DeleteReport removes a report and its votes.
func (s *Service) DeleteReport(ctx context.Context, reportID int64) error {
	err := s.store.DeleteReport(ctx, reportID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// MapPins aggregates the located reports inside a viewport into map
// markers.
func (s *Service) MapPins(ctx context.Context, vp *geo.Viewport) ([]models.MapPin, error) {
	reports, err := s.store.GetReports(ctx)
	if err != nil {
		return nil, err
	}

	aggr := geo.NewPinAggregator(vp)
	for _, r := range reports {
		if !r.HasLocation() {
			continue
		}
		if vp.Contains(*r.Latitude, *r.Longitude) {
			aggr.AddPoint(*r.Latitude, *r.Longitude)
		}
	}
	return aggr.Pins(), nil
}

// roundMiles rounds a distance to two decimals for display. Sort keys
// stay unrounded so ties at the rounding boundary keep their true order.
func roundMiles(d float64) float64 {
	return math.Round(d*100) / 100
}
