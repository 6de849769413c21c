package geo

import (
	"github.com/golang/geo/r1"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"incident-feed-service/models"
)

// Viewport is the visible lat/lon rectangle of the map client.
type Viewport struct {
	LatMin float64 `json:"latmin"`
	LonMin float64 `json:"lonmin"`
	LatMax float64 `json:"latmax"`
	LonMax float64 `json:"lonmax"`
}

type pinUnit struct {
	cnt      int64
	origCell s2.CellID
}

// PinAggregator clusters report pins into S2 cells sized so that a
// viewport renders a bounded number of markers.
type PinAggregator struct {
	level int
	aggrs map[s2.CellID]*pinUnit
}

const (
	expectedCells = 160
	minLevel      = 6
	maxLevel      = 16
)

func cellBaseLevel(vp *Viewport) int {
	minLL := s2.LatLngFromDegrees(vp.LatMin, vp.LonMin)
	maxLL := s2.LatLngFromDegrees(vp.LatMax, vp.LonMax)

	rect := s2.Rect{
		Lat: r1.Interval{
			Lo: minLL.Lat.Radians(),
			Hi: maxLL.Lat.Radians()},
		Lng: s1.Interval{
			Lo: minLL.Lng.Radians(),
			Hi: maxLL.Lng.Radians()},
	}

	vpArea := rect.Area()

	centerLat := (vp.LatMin + vp.LatMax) / 2
	centerLon := (vp.LonMin + vp.LonMax) / 2
	centerCell := s2.CellIDFromLatLng(s2.LatLngFromDegrees(centerLat, centerLon))

	for lv := maxLevel; lv >= minLevel; lv-- {
		cc := s2.CellFromCellID(centerCell.Parent(lv))
		if vpArea/cc.ApproxArea() < expectedCells {
			return lv
		}
	}
	return minLevel // Large enough level
}

// NewPinAggregator creates an aggregator sized for the given viewport.
func NewPinAggregator(vp *Viewport) *PinAggregator {
	return &PinAggregator{
		level: cellBaseLevel(vp),
		aggrs: make(map[s2.CellID]*pinUnit),
	}
}

// AddPoint adds one report location to the aggregation.
func (a *PinAggregator) AddPoint(lat, lon float64) {
	pc := s2.CellIDFromLatLng(s2.LatLngFromDegrees(lat, lon))
	parent := pc.Parent(a.level)
	if _, ok := a.aggrs[parent]; !ok {
		a.aggrs[parent] = &pinUnit{}
	}
	a.aggrs[parent].cnt += 1
	a.aggrs[parent].origCell = pc
}

// Pins returns the aggregated markers. A cell holding a single report
// keeps the report's own coordinates instead of the cell center.
func (a *PinAggregator) Pins() []models.MapPin {
	r := make([]models.MapPin, 0, len(a.aggrs))
	for c, unit := range a.aggrs {
		ll := c.LatLng()
		if unit.cnt == 1 {
			ll = unit.origCell.LatLng()
		}
		r = append(r, models.MapPin{
			Latitude:  ll.Lat.Degrees(),
			Longitude: ll.Lng.Degrees(),
			Count:     unit.cnt,
		})
	}
	return r
}

// Contains reports whether a point falls inside the viewport.
func (vp *Viewport) Contains(lat, lon float64) bool {
	return lat >= vp.LatMin && lat <= vp.LatMax &&
		lon >= vp.LonMin && lon <= vp.LonMax
}
