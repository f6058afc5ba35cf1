package station

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swapstation/backend-go/internal/models"
)

const (
	cityHallLat = 25.0330
	cityHallLng = 121.5654
)

func newTestEngine(t *testing.T, radius float64, maxResults int) *ProximityEngine {
	t.Helper()
	cfg := DefaultProximityConfig()
	cfg.MaxRadiusMeters = radius
	cfg.MaxResults = maxResults
	engine, err := NewProximityEngine(cfg)
	require.NoError(t, err)
	return engine
}

// northOf returns an active station d meters due north of the query point.
func northOf(id string, lat, lng, d float64) models.Station {
	return models.Station{
		ID:        id,
		Name:      "Station " + id,
		Latitude:  lat + d/DefaultMetersPerDegree,
		Longitude: lng,
		State:     DefaultActiveState,
	}
}

func TestNewProximityEngine(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ProximityConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*ProximityConfig) {}},
		{name: "zero radius", mutate: func(c *ProximityConfig) { c.MaxRadiusMeters = 0 }},
		{name: "negative radius", mutate: func(c *ProximityConfig) { c.MaxRadiusMeters = -1 }, wantErr: true},
		{name: "no results", mutate: func(c *ProximityConfig) { c.MaxResults = 0 }, wantErr: true},
		{name: "zero earth radius", mutate: func(c *ProximityConfig) { c.EarthRadiusMeters = 0 }, wantErr: true},
		{name: "NaN meters per degree", mutate: func(c *ProximityConfig) { c.MetersPerDegree = math.NaN() }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultProximityConfig()
			tt.mutate(&cfg)
			engine, err := NewProximityEngine(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, engine)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, cfg, engine.Config())
		})
	}
}

func TestNearest_CityHallScenario(t *testing.T) {
	engine := newTestEngine(t, 5000, 3)
	stations := []models.Station{
		{ID: "east", Name: "市府東", Latitude: 25.0330, Longitude: 121.5700, State: "1"},
		{ID: "closed", Name: "市府旁", Latitude: 25.0335, Longitude: 121.5660, State: "0"},
	}

	got, err := engine.Nearest(cityHallLat, cityHallLng, stations)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "east", got[0].ID)
	assert.InDelta(t, 460, got[0].Distance, 5)

	// the input is left untouched
	assert.Zero(t, stations[0].Distance)
}

func TestNearest_NothingInRange(t *testing.T) {
	engine := newTestEngine(t, 5000, 3)
	stations := []models.Station{
		northOf("far", cityHallLat, cityHallLng, 5200),
		northOf("farther", cityHallLat, cityHallLng, 12000),
	}

	got, err := engine.Nearest(cityHallLat, cityHallLng, stations)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNearest_Truncates(t *testing.T) {
	engine := newTestEngine(t, 5000, 1)
	stations := []models.Station{
		northOf("300", cityHallLat, cityHallLng, 300),
		northOf("100", cityHallLat, cityHallLng, 100),
		northOf("200", cityHallLat, cityHallLng, 200),
	}

	got, err := engine.Nearest(cityHallLat, cityHallLng, stations)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "100", got[0].ID)
	assert.InDelta(t, 100, got[0].Distance, 0.01)
}

func TestNearest_TiesKeepInputOrder(t *testing.T) {
	engine := newTestEngine(t, 5000, 3)
	a := northOf("a", cityHallLat, cityHallLng, 250)
	b := a
	b.ID = "b"
	c := a
	c.ID = "c"

	got, err := engine.Nearest(cityHallLat, cityHallLng, []models.Station{c, a, b})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestNearest_EmptyInput(t *testing.T) {
	engine := newTestEngine(t, 5000, 3)

	got, err := engine.Nearest(cityHallLat, cityHallLng, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNearest_InvalidCoordinate(t *testing.T) {
	engine := newTestEngine(t, 5000, 3)
	stations := []models.Station{northOf("a", 0, 0, 10)}

	for _, q := range [][2]float64{{math.NaN(), 0}, {0, math.NaN()}, {91, 0}, {0, 181}, {-90.5, 0}} {
		got, err := engine.Nearest(q[0], q[1], stations)
		assert.Nil(t, got)
		var coordErr *models.InvalidCoordinateError
		assert.True(t, errors.As(err, &coordErr), "query %v", q)
	}
}

func TestNearest_HighLatitudeLongitudeBand(t *testing.T) {
	// At 70°N a degree of longitude is about 38 km, so a station 4 km east is
	// outside a naive ±0.045° longitude band while still within range.
	engine := newTestEngine(t, 5000, 3)
	lat, lng := 70.0, 25.0
	eastDeg := 4000 / (DefaultMetersPerDegree * math.Cos(toRadians(lat)))
	s := models.Station{ID: "tromso", Latitude: lat, Longitude: lng + eastDeg, State: "1"}
	require.Greater(t, eastDeg, 5000/DefaultMetersPerDegree)

	got, err := engine.Nearest(lat, lng, []models.Station{s})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 4000, got[0].Distance, 5)
}

func TestNearest_AcrossAntimeridian(t *testing.T) {
	engine := newTestEngine(t, 5000, 3)
	s := models.Station{ID: "fiji", Latitude: -16.5, Longitude: -179.99, State: "1"}

	got, err := engine.Nearest(-16.5, 179.99, []models.Station{s})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Less(t, got[0].Distance, 2500.0)
}

func TestNearest_NearPole(t *testing.T) {
	engine := newTestEngine(t, 5000, 3)
	s := models.Station{ID: "opposite", Latitude: 89.99, Longitude: -90, State: "1"}

	got, err := engine.Nearest(89.99, 90, []models.Station{s})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 2*0.01*DefaultMetersPerDegree, got[0].Distance, 1)
}

func TestBoundingBoxMatchesDegreeRadiusAtEquator(t *testing.T) {
	engine := newTestEngine(t, 5000, 3)
	box := engine.boundingBox(0, 0)
	degreeRadius := 5000 / DefaultMetersPerDegree

	assert.InEpsilon(t, degreeRadius, box.maxLat, 1e-6)
	assert.InEpsilon(t, degreeRadius, box.lngHalfWidth, 1e-6)
	assert.True(t, box.checkLng)
}

// bruteForce applies only the exact steps: status, haversine radius, sort, truncate.
func bruteForce(cfg ProximityConfig, lat, lng float64, stations []models.Station) []models.Station {
	var out []models.Station
	for _, s := range stations {
		if s.State != cfg.ActiveState {
			continue
		}
		s.Distance = Haversine(cfg.EarthRadiusMeters, lat, lng, s.Latitude, s.Longitude)
		if s.Distance <= cfg.MaxRadiusMeters {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if len(out) > cfg.MaxResults {
		out = out[:cfg.MaxResults]
	}
	return out
}

func randomStations(rng *rand.Rand, lat, lng float64, n int) []models.Station {
	stations := make([]models.Station, n)
	spreadLat := 0.2
	spreadLng := math.Min(180, 0.2/math.Max(math.Cos(toRadians(lat)), 0.01))
	for i := range stations {
		sLat := math.Max(-90, math.Min(90, lat+(rng.Float64()*2-1)*spreadLat))
		sLng := wrapLongitude(lng + (rng.Float64()*2-1)*spreadLng)
		state := DefaultActiveState
		if rng.Intn(5) == 0 {
			state = "0"
		}
		stations[i] = models.Station{
			ID:        fmt.Sprintf("S%03d", i),
			Latitude:  sLat,
			Longitude: sLng,
			State:     state,
		}
	}
	return stations
}

func TestNearest_NoFalseNegativesAgainstBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 300; i++ {
		lat := rng.Float64()*178 - 89
		lng := rng.Float64()*360 - 180
		cfg := DefaultProximityConfig()
		cfg.MaxRadiusMeters = 2000 + rng.Float64()*20000
		cfg.MaxResults = 1000
		engine, err := NewProximityEngine(cfg)
		require.NoError(t, err)

		stations := randomStations(rng, lat, lng, 200)

		got, err := engine.Nearest(lat, lng, stations)
		require.NoError(t, err)
		want := bruteForce(cfg, lat, lng, stations)

		require.Equal(t, len(want), len(got), "query (%v, %v) radius %v", lat, lng, cfg.MaxRadiusMeters)
		for j := range want {
			assert.Equal(t, want[j].ID, got[j].ID)
			assert.Equal(t, want[j].Distance, got[j].Distance)
		}
	}
}

func TestNearest_ResultProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	engine := newTestEngine(t, 8000, 4)
	cfg := engine.Config()

	for i := 0; i < 100; i++ {
		lat := 21.9 + rng.Float64()*3.4
		lng := 120 + rng.Float64()*2
		stations := randomStations(rng, lat, lng, 150)

		got, err := engine.Nearest(lat, lng, stations)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(got), cfg.MaxResults)

		for j, s := range got {
			assert.Equal(t, cfg.ActiveState, s.State)
			assert.LessOrEqual(t, Haversine(cfg.EarthRadiusMeters, lat, lng, s.Latitude, s.Longitude), cfg.MaxRadiusMeters)
			if j > 0 {
				assert.LessOrEqual(t, got[j-1].Distance, s.Distance)
			}
		}
	}
}

func TestNearest_LargerMetersPerDegreeStaysSafe(t *testing.T) {
	cfg := DefaultProximityConfig()
	cfg.MetersPerDegree = 150000
	engine, err := NewProximityEngine(cfg)
	require.NoError(t, err)

	s := northOf("edge", cityHallLat, cityHallLng, 4900)
	got, err := engine.Nearest(cityHallLat, cityHallLng, []models.Station{s})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
