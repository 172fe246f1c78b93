package busmetrics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caravela.dev/busmetrics"
	"caravela.dev/busmetrics/model"
	"caravela.dev/busmetrics/storage"
	"caravela.dev/busmetrics/testutil"
)

// seedDay loads reference geometry and one morning of positions for
// route 205: three vehicles starting 20 minutes apart, pinging every
// minute for half an hour.
func seedDay(t *testing.T, s storage.Storage) {
	require.NoError(t, s.WriteSegments(testutil.Segments("205", 0, 41.14, -8.61, 3)))
	require.NoError(t, s.WriteRouteStops(testutil.Stops("205", 0, 41.14, -8.61, 2)))
	require.NoError(t, s.WriteRouteSchedules([]model.RouteSchedule{
		{Route: "205", DirectionID: 0, HeadwaySecs: 1200},
	}))

	base := day.Add(8 * time.Hour)
	for i, vehicle := range []string{"v1", "v2", "v3"} {
		start := base.Add(time.Duration(i) * 20 * time.Minute)
		points := testutil.Positions(vehicle, "205", "t-"+vehicle, 0, 41.14, -8.61, start, time.Minute, 30)
		require.NoError(t, s.WritePositions(points))
	}
}

func TestPipelineRun(t *testing.T) {
	s := storage.NewMemoryStorage()
	defer s.Close()
	seedDay(t, s)

	// A sample outside the day window must not be picked up.
	stray := testutil.Positions("v9", "205", "t-v9", 0, 41.14, -8.61, day.AddDate(0, 0, 1), time.Minute, 1)
	require.NoError(t, s.WritePositions(stray))

	p := busmetrics.NewPipeline(s)
	p.ChunkSize = 7

	summary, err := p.Run("2024-05-14")
	require.NoError(t, err)

	assert.Equal(t, busmetrics.StateDone, summary.State)
	assert.Equal(t, 90, summary.Positions)
	assert.Equal(t, 3, summary.Trips)
	assert.Equal(t, 1, summary.RoutePerformance)
	assert.Equal(t, 1, summary.StopHeadways)
	assert.True(t, summary.SegmentSpeeds > 0)

	trips, err := s.TripsByDate("2024-05-14")
	require.NoError(t, err)
	require.Len(t, trips, 3)
	for _, trip := range trips {
		assert.Equal(t, "205", trip.Route)
		assert.Equal(t, 30, trip.Positions)
		assert.Equal(t, 29*60, trip.RuntimeSecs)
		assert.Equal(t, 20.0, trip.AvgSpeed)
	}

	// Evenly spaced 20 minute headways matching the schedule: no
	// excess wait and full adherence.
	perf, err := s.RoutePerformanceByDate("2024-05-14")
	require.NoError(t, err)
	require.Len(t, perf, 1)
	assert.Equal(t, 3, perf[0].TripsObserved)
	assert.Equal(t, 1200, perf[0].AvgHeadwaySecs)
	assert.Equal(t, 0, perf[0].ExcessWaitTimeSecs)
	assert.Equal(t, 100.0, perf[0].HeadwayAdherencePct)
	assert.Equal(t, "A", perf[0].Grade)

	network, err := s.NetworkSummaryByDate("2024-05-14")
	require.NoError(t, err)
	require.NotNil(t, network)
	assert.Equal(t, 3, network.ActiveVehicles)
	assert.Equal(t, 3, network.TotalTrips)
	assert.Equal(t, 90, network.PositionsCollected)
	assert.Equal(t, "205", network.WorstRoute)
}

func TestPipelineRerunIsIdempotent(t *testing.T) {
	s := storage.NewMemoryStorage()
	defer s.Close()
	seedDay(t, s)

	p := busmetrics.NewPipeline(s)

	first, err := p.Run("2024-05-14")
	require.NoError(t, err)
	second, err := p.Run("2024-05-14")
	require.NoError(t, err)

	first.Elapsed, second.Elapsed = 0, 0
	assert.Equal(t, first, second)

	trips, err := s.TripsByDate("2024-05-14")
	require.NoError(t, err)
	assert.Len(t, trips, 3)

	speeds, err := s.SegmentSpeedsByDate("2024-05-14")
	require.NoError(t, err)
	assert.Len(t, speeds, second.SegmentSpeeds)

	headways, err := s.StopHeadwaysByDate("2024-05-14")
	require.NoError(t, err)
	assert.Len(t, headways, 1)
}

func TestPipelineEmptyDay(t *testing.T) {
	s := storage.NewMemoryStorage()
	defer s.Close()
	seedDay(t, s)

	// Pre-existing derived rows for a day with no positions are left
	// alone: an empty window is not evidence the day was empty.
	stale := []model.Trip{{VehicleID: "v1", Route: "205", Positions: 3}}
	require.NoError(t, s.ReplaceTrips("2024-05-13", stale))

	p := busmetrics.NewPipeline(s)
	summary, err := p.Run("2024-05-13")
	require.NoError(t, err)

	assert.Equal(t, busmetrics.StateDone, summary.State)
	assert.Equal(t, 0, summary.Positions)
	assert.Equal(t, 0, summary.Trips)

	trips, err := s.TripsByDate("2024-05-13")
	require.NoError(t, err)
	assert.Len(t, trips, 1)
}

func TestPipelineInvalidDate(t *testing.T) {
	s := storage.NewMemoryStorage()
	defer s.Close()

	p := busmetrics.NewPipeline(s)
	summary, err := p.Run("14-05-2024")
	assert.Error(t, err)
	assert.Equal(t, busmetrics.StateFailed, summary.State)
}

type capturingPublisher struct {
	summaries []busmetrics.RunSummary
}

func (c *capturingPublisher) PublishRunSummary(summary busmetrics.RunSummary) error {
	c.summaries = append(c.summaries, summary)
	return nil
}

func TestPipelinePublishesRunSummary(t *testing.T) {
	s := storage.NewMemoryStorage()
	defer s.Close()
	seedDay(t, s)

	pub := &capturingPublisher{}
	p := busmetrics.NewPipeline(s)
	p.Publisher = pub

	_, err := p.Run("2024-05-14")
	require.NoError(t, err)

	require.Len(t, pub.summaries, 1)
	assert.Equal(t, "2024-05-14", pub.summaries[0].Date)
	assert.Equal(t, busmetrics.StateDone, pub.summaries[0].State)
}
