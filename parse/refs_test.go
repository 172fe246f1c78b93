package parse_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caravela.dev/busmetrics/model"
	"caravela.dev/busmetrics/parse"
	"caravela.dev/busmetrics/storage"
)

func TestParseSegments(t *testing.T) {
	s := storage.NewMemoryStorage()

	count, err := parse.ParseSegments(s, bytes.NewBufferString(`segment_id,route,direction_id,segment_index,start_lat,start_lon,end_lat,end_lon,mid_lat,mid_lon,length_m,geometry
205-0-0,205,0,0,41.14,-8.61,41.142,-8.61,41.141,-8.61,222.4,41.14 -8.61;41.142 -8.61
205-0-1,205,0,1,41.142,-8.61,41.144,-8.61,41.143,-8.61,222.4,41.142 -8.61;41.144 -8.61`))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	segments, err := s.Segments()
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, model.SegmentDef{
		ID:           "205-0-0",
		Route:        "205",
		DirectionID:  0,
		SegmentIndex: 0,
		StartLat:     41.14,
		StartLon:     -8.61,
		EndLat:       41.142,
		EndLon:       -8.61,
		MidLat:       41.141,
		MidLon:       -8.61,
		LengthM:      222.4,
		Geometry:     []model.Point{{Lat: 41.14, Lon: -8.61}, {Lat: 41.142, Lon: -8.61}},
	}, segments[0])
}

func TestParseSegmentsErrors(t *testing.T) {
	header := "segment_id,route,direction_id,segment_index,start_lat,start_lon,end_lat,end_lon,mid_lat,mid_lon,length_m,geometry\n"

	for _, tc := range []struct {
		name string
		rows string
		err  string
	}{
		{
			"EmptyID",
			",205,0,0,41.14,-8.61,41.142,-8.61,41.141,-8.61,222.4,",
			"empty segment_id",
		},
		{
			"RepeatedID",
			"205-0-0,205,0,0,41.14,-8.61,41.142,-8.61,41.141,-8.61,222.4,\n" +
				"205-0-0,205,0,1,41.142,-8.61,41.144,-8.61,41.143,-8.61,222.4,",
			"repeated segment_id '205-0-0'",
		},
		{
			"EmptyRoute",
			"205-0-0,,0,0,41.14,-8.61,41.142,-8.61,41.141,-8.61,222.4,",
			"empty route",
		},
		{
			"BadGeometry",
			"205-0-0,205,0,0,41.14,-8.61,41.142,-8.61,41.141,-8.61,222.4,41.14;41.142 -8.61",
			"decoding geometry for segment '205-0-0'",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := storage.NewMemoryStorage()
			_, err := parse.ParseSegments(s, bytes.NewBufferString(header+tc.rows))
			assert.ErrorContains(t, err, tc.err)

			// Nothing gets written on a bad file.
			segments, err := s.Segments()
			require.NoError(t, err)
			assert.Len(t, segments, 0)
		})
	}
}

func TestParseRouteStops(t *testing.T) {
	s := storage.NewMemoryStorage()

	count, err := parse.ParseRouteStops(s, bytes.NewBufferString(`route,direction_id,stop_sequence,stop_id,stop_name,lat,lon
205,0,1,s1,Aliados,41.14,-8.61
205,0,2,s2,"Trindade, Porto",41.145,-8.61`))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	stops, err := s.RouteStops()
	require.NoError(t, err)
	require.Len(t, stops, 2)
	assert.Equal(t, "Trindade, Porto", stops[1].StopName)
	assert.Equal(t, 2, stops[1].StopSequence)
}

func TestParseRouteStopsErrors(t *testing.T) {
	header := "route,direction_id,stop_sequence,stop_id,stop_name,lat,lon\n"

	for _, tc := range []struct {
		name string
		rows string
		err  string
	}{
		{"EmptyRoute", ",0,1,s1,Aliados,41.14,-8.61", "empty route"},
		{"EmptyStopID", "205,0,1,,Aliados,41.14,-8.61", "empty stop_id"},
		{"MissingCoords", "205,0,1,s1,Aliados,0,0", "empty lat or lon for stop 's1'"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := storage.NewMemoryStorage()
			_, err := parse.ParseRouteStops(s, bytes.NewBufferString(header+tc.rows))
			assert.ErrorContains(t, err, tc.err)
		})
	}
}

func TestParseRouteSchedules(t *testing.T) {
	s := storage.NewMemoryStorage()

	count, err := parse.ParseRouteSchedules(s, bytes.NewBufferString(`route,direction_id,headway_secs
205,0,600
205,1,720`))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	schedules, err := s.RouteSchedules()
	require.NoError(t, err)
	assert.Equal(t, []model.RouteSchedule{
		{Route: "205", DirectionID: 0, HeadwaySecs: 600},
		{Route: "205", DirectionID: 1, HeadwaySecs: 720},
	}, schedules)
}

func TestParseRouteSchedulesErrors(t *testing.T) {
	header := "route,direction_id,headway_secs\n"

	for _, tc := range []struct {
		name string
		rows string
		err  string
	}{
		{"EmptyRoute", ",0,600", "empty route"},
		{"ZeroHeadway", "205,0,0", "non-positive headway_secs for route '205'"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := storage.NewMemoryStorage()
			_, err := parse.ParseRouteSchedules(s, bytes.NewBufferString(header+tc.rows))
			assert.ErrorContains(t, err, tc.err)
		})
	}
}

func TestParseSegmentsWithBOM(t *testing.T) {
	s := storage.NewMemoryStorage()

	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(`segment_id,route,direction_id,segment_index,start_lat,start_lon,end_lat,end_lon,mid_lat,mid_lon,length_m,geometry
205-0-0,205,0,0,41.14,-8.61,41.142,-8.61,41.141,-8.61,222.4,`)...)

	count, err := parse.ParseSegments(s, bytes.NewBuffer(data))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
