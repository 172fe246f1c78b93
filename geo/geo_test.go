package geo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caravela.dev/busmetrics/geo"
	"caravela.dev/busmetrics/model"
)

func TestDistance(t *testing.T) {
	var loc = map[string]model.Point{
		"nyc":    {Lat: 40.700000, Lon: -74.100000},
		"philly": {Lat: 40.000000, Lon: -75.200000},
		"sf":     {Lat: 37.800000, Lon: -122.500000},
		"sto":    {Lat: 59.300000, Lon: 17.900000},
	}

	assert.InDelta(t, 121438.585, geo.Distance(loc["nyc"].Lat, loc["nyc"].Lon, loc["philly"].Lat, loc["philly"].Lon), 1)
	assert.InDelta(t, 4127311.071, geo.Distance(loc["nyc"].Lat, loc["nyc"].Lon, loc["sf"].Lat, loc["sf"].Lon), 10)
	assert.InDelta(t, 6318636.281, geo.Distance(loc["nyc"].Lat, loc["nyc"].Lon, loc["sto"].Lat, loc["sto"].Lon), 10)

	// Zero distance and symmetry
	assert.Equal(t, 0.0, geo.Distance(41.15, -8.61, 41.15, -8.61))
	assert.Equal(
		t,
		geo.Distance(loc["nyc"].Lat, loc["nyc"].Lon, loc["philly"].Lat, loc["philly"].Lon),
		geo.Distance(loc["philly"].Lat, loc["philly"].Lon, loc["nyc"].Lat, loc["nyc"].Lon),
	)
}

func straightLine(lat, lon, stepDeg float64, count int) []model.Point {
	coords := make([]model.Point, count)
	for i := 0; i < count; i++ {
		coords[i] = model.Point{Lat: lat + float64(i)*stepDeg, Lon: lon}
	}
	return coords
}

func TestSplitIntoSegmentsReconstructsPolyline(t *testing.T) {
	// ~55 m between consecutive points
	coords := straightLine(41.14, -8.61, 0.0005, 41)

	segments := geo.SplitIntoSegments("205", 0, coords, 200)
	require.NotEmpty(t, segments)

	// Concatenating all segment geometries in emission order must
	// reproduce the original polyline exactly.
	var reconstructed []model.Point
	for _, seg := range segments {
		reconstructed = append(reconstructed, seg.Geometry...)
	}
	assert.Equal(t, coords, reconstructed)
}

func TestSplitIntoSegmentsProperties(t *testing.T) {
	coords := straightLine(41.14, -8.61, 0.0005, 41)
	segments := geo.SplitIntoSegments("205", 1, coords, 200)

	for i, seg := range segments {
		assert.Equal(t, "205", seg.Route)
		assert.Equal(t, int8(1), seg.DirectionID)
		assert.Equal(t, i, seg.SegmentIndex)
		assert.Equal(t, geo.SegmentID("205", 1, i), seg.ID)

		first := seg.Geometry[0]
		last := seg.Geometry[len(seg.Geometry)-1]
		assert.Equal(t, first.Lat, seg.StartLat)
		assert.Equal(t, first.Lon, seg.StartLon)
		assert.Equal(t, last.Lat, seg.EndLat)
		assert.Equal(t, last.Lon, seg.EndLon)

		// All but the final segment must have reached the target.
		if i < len(segments)-1 {
			assert.GreaterOrEqual(t, seg.LengthM, 200.0)
		}
	}
}

func TestSplitIntoSegmentsDegenerate(t *testing.T) {
	assert.Nil(t, geo.SplitIntoSegments("205", 0, nil, 200))
	assert.Nil(t, geo.SplitIntoSegments("205", 0, []model.Point{{Lat: 41, Lon: -8}}, 200))
}

func TestSnapToSegment(t *testing.T) {
	segments := geo.SplitIntoSegments("205", 0, straightLine(41.14, -8.61, 0.0005, 41), 200)
	other := geo.SplitIntoSegments("305", 0, straightLine(41.14, -8.62, 0.0005, 41), 200)
	all := append(append([]model.SegmentDef{}, segments...), other...)

	// On top of the first segment's midpoint.
	id, ok := geo.SnapToSegment(segments[0].MidLat, segments[0].MidLon, "205", 0, all, 150)
	require.True(t, ok)
	assert.Equal(t, segments[0].ID, id)

	// Never matches a different route, even though route 305 runs
	// much closer to this point.
	id, ok = geo.SnapToSegment(41.14, -8.62, "205", 0, all, 150)
	assert.False(t, ok)
	assert.Equal(t, "", id)

	// Beyond max distance.
	_, ok = geo.SnapToSegment(41.5, -8.61, "205", 0, all, 150)
	assert.False(t, ok)

	// Unknown direction matches any direction.
	id, ok = geo.SnapToSegment(segments[0].MidLat, segments[0].MidLon, "205", model.DirectionUnknown, all, 150)
	require.True(t, ok)
	assert.Equal(t, segments[0].ID, id)

	// Known direction excludes other directions.
	_, ok = geo.SnapToSegment(segments[0].MidLat, segments[0].MidLon, "205", 1, all, 150)
	assert.False(t, ok)
}

func TestSnapToSegmentTieFirstWins(t *testing.T) {
	segments := []model.SegmentDef{
		{ID: "a", Route: "205", DirectionID: 0, MidLat: 41.14, MidLon: -8.61},
		{ID: "b", Route: "205", DirectionID: 0, MidLat: 41.14, MidLon: -8.61},
	}
	id, ok := geo.SnapToSegment(41.14, -8.61, "205", 0, segments, 150)
	require.True(t, ok)
	assert.Equal(t, "a", id)
}

func TestNearestStop(t *testing.T) {
	stops := []model.RouteStop{
		{Route: "205", DirectionID: 0, StopSequence: 1, StopID: "s1", Lat: 41.140, Lon: -8.61},
		{Route: "205", DirectionID: 0, StopSequence: 2, StopID: "s2", Lat: 41.145, Lon: -8.61},
		{Route: "305", DirectionID: 0, StopSequence: 1, StopID: "x1", Lat: 41.140, Lon: -8.61},
	}

	stop, ok := geo.NearestStop(41.1401, -8.61, "205", 0, stops, 80)
	require.True(t, ok)
	assert.Equal(t, "s1", stop.StopID)

	// 41.143 is ~330 m from s1 and ~220 m from s2. Nothing within 80m.
	_, ok = geo.NearestStop(41.143, -8.61, "205", 0, stops, 80)
	assert.False(t, ok)

	// Route filter applies even when another route's stop is exact.
	stop, ok = geo.NearestStop(41.140, -8.61, "305", 0, stops, 80)
	require.True(t, ok)
	assert.Equal(t, "x1", stop.StopID)
}

func TestEncodeDecodePoints(t *testing.T) {
	points := []model.Point{
		{Lat: 41.14961, Lon: -8.61099},
		{Lat: 41.15087, Lon: -8.61204},
	}

	decoded, err := geo.DecodePoints(geo.EncodePoints(points))
	require.NoError(t, err)
	assert.Equal(t, points, decoded)

	decoded, err = geo.DecodePoints("")
	require.NoError(t, err)
	assert.Nil(t, decoded)

	_, err = geo.DecodePoints("41.14 -8.61;bogus")
	assert.Error(t, err)
}
