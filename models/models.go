package models

import (
	"time"
)

// Report represents a row from the incident_reports table. Latitude,
// longitude and accuracy are either all absent or set together; the
// address is populated lazily by the first successful reverse geocode.
type Report struct {
	ID        int64     `json:"id" db:"id"`
	Date      string    `json:"date" db:"date"`
	Severity  string    `json:"severity" db:"severity"`
	Latitude  *float64  `json:"latitude,omitempty" db:"location_latitude"`
	Longitude *float64  `json:"longitude,omitempty" db:"location_longitude"`
	Accuracy  *float64  `json:"accuracy_meters,omitempty" db:"location_accuracy"`
	Details   string    `json:"details" db:"details"`
	Status    string    `json:"status" db:"status"`
	Verified  bool      `json:"verified" db:"verified"`
	Address   *string   `json:"address,omitempty" db:"address"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// HasLocation reports whether both coordinates are present.
func (r *Report) HasLocation() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// Vote represents a single voter's vote on a report. At most one row
// exists per (report, voter) pair; casting again replaces the value.
type Vote struct {
	ReportID int64  `json:"report_id" db:"report_id"`
	VoterID  string `json:"voter_id" db:"voter_id"`
	Value    int    `json:"value" db:"value"`
}

// VoteSummary holds the aggregated vote state of one report, plus the
// viewer's own vote when the viewer is known and has voted.
type VoteSummary struct {
	Score      int  `json:"score"`
	Upvotes    int  `json:"upvote_count"`
	Downvotes  int  `json:"downvote_count"`
	ViewerVote *int `json:"viewer_vote,omitempty"`
}

// FeedEntry is a report enriched for the proximity feed. It is derived
// per request and never persisted.
type FeedEntry struct {
	Report        Report      `json:"report"`
	DistanceMiles float64     `json:"distance_miles"`
	Votes         VoteSummary `json:"votes"`
	Address       string      `json:"address,omitempty"`
}

// NearbyEntry is a report annotated with its distance only; the nearby
// query skips vote enrichment.
type NearbyEntry struct {
	Report        Report  `json:"report"`
	DistanceMiles float64 `json:"distance_miles"`
	Address       string  `json:"address,omitempty"`
}

// ListedReport is a report with an optional distance annotation used by
// the unbounded listing.
type ListedReport struct {
	Report        Report   `json:"report"`
	DistanceMiles *float64 `json:"distance_miles,omitempty"`
}

// SubmitReportRequest is the POST /report payload.
type SubmitReportRequest struct {
	Date     string           `json:"date"`
	Severity string           `json:"severity"`
	Location *LocationPayload `json:"location,omitempty"`
	Details  string           `json:"details"`
	Status   string           `json:"status,omitempty"`
}

// LocationPayload carries the optional coordinates of a submission.
type LocationPayload struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Accuracy  *float64 `json:"accuracyMeters,omitempty"`
}

// NearbyRequest is the POST /reports/nearby payload.
type NearbyRequest struct {
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	RadiusMiles *float64 `json:"radius_miles,omitempty"`
}

// FeedRequest is the POST /feed payload. VoterID is optional; anonymous
// viewers still get a feed, just without viewer_vote.
type FeedRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	VoterID   string   `json:"voter_id,omitempty"`
}

// VoteRequest is the POST /reports/:id/vote payload.
type VoteRequest struct {
	VoterID string `json:"voter_id"`
	Value   int    `json:"value"`
}

// MapPin is an aggregated cluster of report pins for the map view.
type MapPin struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Count     int64   `json:"count"`
}
