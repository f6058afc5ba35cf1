package station

import (
	"fmt"
	"math"
	"sort"

	"github.com/swapstation/backend-go/internal/models"
)

const (
	DefaultEarthRadiusMeters = 6371e3
	// DefaultMetersPerDegree is the arc length of one degree on the sphere
	// above, used for the degree based pre-filter.
	DefaultMetersPerDegree = 111194.92664455874
	DefaultMaxRadiusMeters = 5000
	DefaultMaxResults      = 3
	DefaultActiveState     = "1"

	// relative slack added to the bounding box so rounding can only admit more
	boxSlack = 1e-9
)

// ProximityConfig holds the constants of a nearest-station search.
type ProximityConfig struct {
	EarthRadiusMeters float64
	MetersPerDegree   float64
	MaxRadiusMeters   float64
	MaxResults        int
	ActiveState       string
}

// DefaultProximityConfig returns the production search settings
func DefaultProximityConfig() ProximityConfig {
	return ProximityConfig{
		EarthRadiusMeters: DefaultEarthRadiusMeters,
		MetersPerDegree:   DefaultMetersPerDegree,
		MaxRadiusMeters:   DefaultMaxRadiusMeters,
		MaxResults:        DefaultMaxResults,
		ActiveState:       DefaultActiveState,
	}
}

func (c ProximityConfig) validate() error {
	switch {
	case !(c.EarthRadiusMeters > 0):
		return fmt.Errorf("earth radius must be positive: %v", c.EarthRadiusMeters)
	case !(c.MetersPerDegree > 0):
		return fmt.Errorf("meters per degree must be positive: %v", c.MetersPerDegree)
	case !(c.MaxRadiusMeters >= 0):
		return fmt.Errorf("max radius must not be negative: %v", c.MaxRadiusMeters)
	case c.MaxResults < 1:
		return fmt.Errorf("max results must be at least 1: %d", c.MaxResults)
	}
	return nil
}

// ProximityEngine ranks stations by great-circle distance from a point.
// It holds no mutable state and is safe for concurrent use.
type ProximityEngine struct {
	cfg ProximityConfig
}

func NewProximityEngine(cfg ProximityConfig) (*ProximityEngine, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid proximity config: %w", err)
	}
	return &ProximityEngine{cfg: cfg}, nil
}

// Config returns the configuration the engine was built with.
func (e *ProximityEngine) Config() ProximityConfig {
	return e.cfg
}

// WithMaxResults returns an engine identical to e except for the result limit.
func (e *ProximityEngine) WithMaxResults(n int) (*ProximityEngine, error) {
	cfg := e.cfg
	cfg.MaxResults = n
	return NewProximityEngine(cfg)
}

// Nearest returns at most MaxResults active stations within MaxRadiusMeters
// of (lat, lng), nearest first, with Distance populated. Stations at equal
// distance keep their input order. The input slice is not modified.
func (e *ProximityEngine) Nearest(lat, lng float64, stations []models.Station) ([]models.Station, error) {
	if err := models.ValidateCoordinates(lat, lng); err != nil {
		return nil, err
	}

	box := e.boundingBox(lat, lng)
	candidates := make([]models.Station, 0, len(stations))
	for _, s := range stations {
		if s.State != e.cfg.ActiveState {
			continue
		}
		if !box.contains(s.Latitude, s.Longitude) {
			continue
		}
		s.Distance = Haversine(e.cfg.EarthRadiusMeters, lat, lng, s.Latitude, s.Longitude)
		if !(s.Distance <= e.cfg.MaxRadiusMeters) {
			continue
		}
		candidates = append(candidates, s)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})

	if len(candidates) > e.cfg.MaxResults {
		candidates = candidates[:e.cfg.MaxResults]
	}
	return candidates, nil
}

// boundingBox is an axis-aligned degree range around the query point that
// contains every point within the search radius.
type boundingBox struct {
	minLat, maxLat float64
	lng            float64
	lngHalfWidth   float64
	checkLng       bool
}

func (e *ProximityEngine) boundingBox(lat, lng float64) boundingBox {
	// One degree of latitude is never shorter than the arc on the sphere,
	// so take the smaller of the two when converting the radius.
	perDegree := math.Min(e.cfg.MetersPerDegree, e.cfg.EarthRadiusMeters*math.Pi/180)
	degreeRadius := e.cfg.MaxRadiusMeters / perDegree * (1 + boxSlack)

	box := boundingBox{
		minLat: lat - degreeRadius,
		maxLat: lat + degreeRadius,
		lng:    lng,
	}

	// Longitude degrees shrink with cos(lat); the widest longitude offset of
	// a point within angular distance delta is asin(sin(delta) / cos(lat)).
	// Skip the longitude test when the circle reaches a pole.
	delta := e.cfg.MaxRadiusMeters / e.cfg.EarthRadiusMeters
	phi := toRadians(math.Abs(lat))
	if phi+delta >= math.Pi/2 {
		return box
	}
	halfWidth := toDegrees(math.Asin(math.Sin(delta)/math.Cos(phi))) * (1 + boxSlack)
	box.lngHalfWidth = math.Max(halfWidth, degreeRadius)
	box.checkLng = box.lngHalfWidth < 180
	return box
}

func (b boundingBox) contains(lat, lng float64) bool {
	if lat < b.minLat || lat > b.maxLat {
		return false
	}
	if b.checkLng && math.Abs(wrapLongitude(lng-b.lng)) > b.lngHalfWidth {
		return false
	}
	return true
}
