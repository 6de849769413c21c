package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"incident-feed-service/feed"
	"incident-feed-service/geo"
	"incident-feed-service/models"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	svc *feed.Service
}

// NewHandlers creates a new handlers instance
func NewHandlers(svc *feed.Service) *Handlers {
	return &Handlers{svc: svc}
}

// writeError maps service errors onto HTTP statuses. Validation
// failures are the caller's fault, missing reports are 404, anything
// else is logged and reported as a 500.
func writeError(c *gin.Context, err error) {
	var verr feed.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case errors.Is(err, feed.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
	default:
		log.Errorf("request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func reportID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'id' parameter. Must be a positive integer."})
		return 0, false
	}
	return id, true
}

// SubmitReport handles POST /report
func (h *Handlers) SubmitReport(c *gin.Context) {
	var req models.SubmitReportRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	report, err := h.svc.SubmitReport(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

// GetReports handles GET /reports. With latitude and longitude query
// parameters the listing is distance-annotated and sorted closest
// first; without them it is most recent first.
func (h *Handlers) GetReports(c *gin.Context) {
	var lat, lon *float64
	if latStr := c.Query("latitude"); latStr != "" {
		parsed, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'latitude' parameter. Must be a valid number."})
			return
		}
		lat = &parsed
	}
	if lngStr := c.Query("longitude"); lngStr != "" {
		parsed, err := strconv.ParseFloat(lngStr, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'longitude' parameter. Must be a valid number."})
			return
		}
		lon = &parsed
	}

	listed, err := h.svc.ListReports(c.Request.Context(), lat, lon)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reports": listed,
		"count":   len(listed),
	})
}

// GetReport handles GET /reports/:id
func (h *Handlers) GetReport(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}

	report, err := h.svc.GetReport(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Feed handles POST /feed: the default-radius proximity feed around
// the viewer, with votes and addresses.
func (h *Handlers) Feed(c *gin.Context) {
	var req models.FeedRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude are required"})
		return
	}

	entries, err := h.svc.Feed(c.Request.Context(), *req.Latitude, *req.Longitude, req.VoterID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"feed":  entries,
		"count": len(entries),
	})
}

// Nearby handles POST /reports/nearby
func (h *Handlers) Nearby(c *gin.Context) {
	var req models.NearbyRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude are required"})
		return
	}

	var radius float64
	if req.RadiusMiles != nil {
		if *req.RadiusMiles <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'radius_miles' parameter. Must be positive."})
			return
		}
		radius = *req.RadiusMiles
	}

	entries, err := h.svc.Nearby(c.Request.Context(), *req.Latitude, *req.Longitude, radius)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reports": entries,
		"count":   len(entries),
	})
}

// Vote handles POST /reports/:id/vote
func (h *Handlers) Vote(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}

	var req models.VoteRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	summary, err := h.svc.Vote(c.Request.Context(), id, req.VoterID, req.Value)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// VerifyReport handles POST /reports/:id/verify
func (h *Handlers) VerifyReport(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}

	if err := h.svc.VerifyReport(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "verified"})
}

// SetStatus handles POST /reports/:id/status
func (h *Handlers) SetStatus(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if err := h.svc.SetStatus(c.Request.Context(), id, req.Status); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

// DeleteReport handles DELETE /reports/:id
func (h *Handlers) DeleteReport(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteReport(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MapPins handles GET /map. The viewport comes as latmin, lonmin,
// latmax, lonmax query parameters.
func (h *Handlers) MapPins(c *gin.Context) {
	var vp geo.Viewport
	for _, p := range []struct {
		name string
		dst  *float64
	}{
		{"latmin", &vp.LatMin},
		{"lonmin", &vp.LonMin},
		{"latmax", &vp.LatMax},
		{"lonmax", &vp.LonMax},
	} {
		raw := c.Query(p.name)
		if raw == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing '" + p.name + "' parameter"})
			return
		}
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid '" + p.name + "' parameter. Must be a valid number."})
			return
		}
		*p.dst = parsed
	}

	pins, err := h.svc.MapPins(c.Request.Context(), &vp)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pins":  pins,
		"count": len(pins),
	})
}

// HealthCheck returns the service health status
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "incident-feed-service",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}
