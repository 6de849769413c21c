package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incident-feed-service/feed"
	"incident-feed-service/models"
	"incident-feed-service/observability"
)

// memStore is a minimal in-memory feed.Store for handler tests.
type memStore struct {
	reports map[int64]models.Report
	nextID  int64
}

func newMemStore() *memStore {
	return &memStore{reports: make(map[int64]models.Report), nextID: 1}
}

func (m *memStore) CreateReport(_ context.Context, report *models.Report) (*models.Report, error) {
	if report.Status == "" {
		report.Status = "Pending"
	}
	report.ID = m.nextID
	m.nextID++
	m.reports[report.ID] = *report
	return report, nil
}

func (m *memStore) GetReports(_ context.Context) ([]models.Report, error) {
	out := make([]models.Report, 0, len(m.reports))
	for _, r := range m.reports {
		out = append(out, r)
	}
	return out, nil
}

func (m *memStore) GetReportByID(_ context.Context, id int64) (*models.Report, error) {
	r, ok := m.reports[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &r, nil
}

func (m *memStore) UpdateReportStatus(_ context.Context, reportID int64, status string) error {
	r := m.reports[reportID]
	r.Status = status
	m.reports[reportID] = r
	return nil
}

func (m *memStore) SetReportVerified(_ context.Context, reportID int64, verified bool) error {
	r := m.reports[reportID]
	r.Verified = verified
	m.reports[reportID] = r
	return nil
}

func (m *memStore) DeleteReport(_ context.Context, reportID int64) error {
	if _, ok := m.reports[reportID]; !ok {
		return sql.ErrNoRows
	}
	delete(m.reports, reportID)
	return nil
}

func (m *memStore) UpsertVote(_ context.Context, _ *models.Vote) error { return nil }

func (m *memStore) GetVoteSummary(_ context.Context, _ int64, _ string) (models.VoteSummary, error) {
	return models.VoteSummary{}, nil
}

func (m *memStore) GetVoteSummaries(_ context.Context, _ string) (map[int64]models.VoteSummary, error) {
	return map[int64]models.VoteSummary{}, nil
}

type noopResolver struct{}

func (noopResolver) Resolve(_ context.Context, report *models.Report) string {
	if report.Address != nil {
		return *report.Address
	}
	return ""
}

func newTestHandlers() (*Handlers, *memStore) {
	store := newMemStore()
	svc := feed.NewService(store, noopResolver{}, observability.NewMetricsForTesting(), 0.5)
	return NewHandlers(svc), store
}

func postJSON(t *testing.T, body any) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jsonBody, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return w, c
}

func TestSubmitReport_Created(t *testing.T) {
	h, _ := newTestHandlers()

	w, c := postJSON(t, models.SubmitReportRequest{
		Date:     "2026-08-01",
		Severity: "High",
		Details:  "broken streetlight",
	})
	h.SubmitReport(c)

	assert.Equal(t, http.StatusCreated, w.Code)

	var report models.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.NotZero(t, report.ID)
	assert.Equal(t, "Pending", report.Status)
}

func TestSubmitReport_ValidationError(t *testing.T) {
	h, _ := newTestHandlers()

	w, c := postJSON(t, models.SubmitReportRequest{Date: "2026-08-01"})
	h.SubmitReport(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitReport_InvalidJSON(t *testing.T) {
	h, _ := newTestHandlers()
	gin.SetMode(gin.TestMode)

	req := httptest.NewRequest("POST", "/", bytes.NewBufferString("not json"))
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	h.SubmitReport(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetReport_NotFound(t *testing.T) {
	h, _ := newTestHandlers()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Params = gin.Params{{Key: "id", Value: "999"}}

	h.GetReport(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetReport_InvalidID(t *testing.T) {
	h, _ := newTestHandlers()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	h.GetReport(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeed_RequiresCoordinates(t *testing.T) {
	h, _ := newTestHandlers()

	w, c := postJSON(t, models.FeedRequest{})
	h.Feed(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVote_InvalidValue(t *testing.T) {
	h, store := newTestHandlers()
	_, err := store.CreateReport(context.Background(), &models.Report{
		Date: "2026-08-01", Severity: "High", Details: "x",
	})
	require.NoError(t, err)

	w, c := postJSON(t, models.VoteRequest{VoterID: "v1", Value: 5})
	c.Params = gin.Params{{Key: "id", Value: "1"}}

	h.Vote(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVote_MissingReport(t *testing.T) {
	h, _ := newTestHandlers()

	w, c := postJSON(t, models.VoteRequest{VoterID: "v1", Value: 1})
	c.Params = gin.Params{{Key: "id", Value: "42"}}

	h.Vote(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteReport(t *testing.T) {
	h, store := newTestHandlers()
	_, err := store.CreateReport(context.Background(), &models.Report{
		Date: "2026-08-01", Severity: "High", Details: "x",
	})
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("DELETE", "/", nil)
	c.Params = gin.Params{{Key: "id", Value: "1"}}

	h.DeleteReport(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("DELETE", "/", nil)
	c.Params = gin.Params{{Key: "id", Value: "1"}}

	h.DeleteReport(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
