package busmetrics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caravela.dev/busmetrics"
	"caravela.dev/busmetrics/model"
)

func startTimes(base time.Time, gapsSecs ...int) []time.Time {
	starts := []time.Time{base}
	for _, gap := range gapsSecs {
		starts = append(starts, starts[len(starts)-1].Add(time.Duration(gap)*time.Second))
	}
	return starts
}

func TestComputeHeadwayMetricsPerfectService(t *testing.T) {
	// Headways 600, 600, 600 against a 600s schedule.
	starts := startTimes(day.Add(8*time.Hour), 600, 600, 600)

	m := busmetrics.ComputeHeadwayMetrics(starts, 600)
	require.NotNil(t, m)

	assert.Equal(t, 600, m.AvgHeadwaySecs)
	assert.Equal(t, 300.0, m.AvgWaitSecs)
	assert.Equal(t, 300.0, m.SchedWaitSecs)
	assert.Equal(t, 0, m.ExcessWaitTimeSecs)
	assert.Equal(t, 100.0, m.HeadwayAdherencePct)
	assert.Equal(t, 0.0, m.BunchingPct)
	assert.Equal(t, 0.0, m.GappingPct)
}

func TestComputeHeadwayMetricsBunchingAndGapping(t *testing.T) {
	// 250 < 0.5*600, so bunched. 950 > 1.5*600, so gapped. Both
	// within [0, 600+180] is only true for 250.
	starts := startTimes(day.Add(8*time.Hour), 250, 950)

	m := busmetrics.ComputeHeadwayMetrics(starts, 600)
	require.NotNil(t, m)

	assert.Equal(t, 50.0, m.BunchingPct)
	assert.Equal(t, 50.0, m.GappingPct)
	assert.Equal(t, 50.0, m.HeadwayAdherencePct)
}

func TestComputeHeadwayMetricsLongGapsPullAWTUp(t *testing.T) {
	// Same average headway as a uniform 600s service, but with one
	// long gap. AWT must exceed 300s.
	starts := startTimes(day.Add(8*time.Hour), 200, 200, 1400)

	m := busmetrics.ComputeHeadwayMetrics(starts, 600)
	require.NotNil(t, m)

	assert.Equal(t, 600, m.AvgHeadwaySecs)
	assert.Greater(t, m.AvgWaitSecs, 300.0)
	assert.Greater(t, m.ExcessWaitTimeSecs, 0)
}

func TestComputeHeadwayMetricsMedianFallback(t *testing.T) {
	// No scheduled headway: the median observed headway (600)
	// becomes the reference, so SWT is 300.
	starts := startTimes(day.Add(8*time.Hour), 600, 600, 600)

	m := busmetrics.ComputeHeadwayMetrics(starts, 0)
	require.NotNil(t, m)
	assert.Equal(t, 300.0, m.SchedWaitSecs)
	assert.Equal(t, 0, m.ExcessWaitTimeSecs)
}

func TestComputeHeadwayMetricsTooFewTrips(t *testing.T) {
	assert.Nil(t, busmetrics.ComputeHeadwayMetrics(nil, 600))
	assert.Nil(t, busmetrics.ComputeHeadwayMetrics(startTimes(day), 600))
}

func TestGradeFor(t *testing.T) {
	// Both thresholds must hold for a grade; otherwise the ladder
	// falls through to the next one.
	assert.Equal(t, "A", busmetrics.GradeFor(30, 95))
	assert.Equal(t, "B", busmetrics.GradeFor(90, 85))
	assert.Equal(t, "C", busmetrics.GradeFor(200, 75))
	assert.Equal(t, "D", busmetrics.GradeFor(300, 65))
	assert.Equal(t, "E", busmetrics.GradeFor(400, 55))
	assert.Equal(t, "F", busmetrics.GradeFor(1000, 10))

	// Metrics disagree: low EWT but poor adherence drops the grade
	// to the level where both hold.
	assert.Equal(t, "B", busmetrics.GradeFor(30, 85))
	assert.Equal(t, "F", busmetrics.GradeFor(30, 40))

	// Boundary values don't qualify: thresholds are strict.
	assert.Equal(t, "B", busmetrics.GradeFor(60, 95))
	assert.Equal(t, "B", busmetrics.GradeFor(30, 90))
}

func TestBuildRoutePerformance(t *testing.T) {
	var trips []model.Trip
	base := day.Add(7 * time.Hour)
	for i := 0; i < 5; i++ {
		trips = append(trips, model.Trip{
			VehicleID:   "v1",
			Route:       "205",
			DirectionID: 0,
			StartedAt:   base.Add(time.Duration(i) * 10 * time.Minute),
			EndedAt:     base.Add(time.Duration(i)*10*time.Minute + 25*time.Minute),
			RuntimeSecs: 1500,
			Positions:   30,
			AvgSpeed:    18,
		})
	}
	// A lone trip on another route can't produce headways.
	trips = append(trips, model.Trip{
		VehicleID: "v2", Route: "305", DirectionID: 0,
		StartedAt: base, RuntimeSecs: 1200, Positions: 20, AvgSpeed: 22,
	})

	schedules := []model.RouteSchedule{{Route: "205", DirectionID: 0, HeadwaySecs: 600}}

	rows := busmetrics.BuildRoutePerformance("2024-05-14", trips, schedules)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "2024-05-14", row.Date)
	assert.Equal(t, "205", row.Route)
	assert.Equal(t, 5, row.TripsObserved)
	assert.Equal(t, 600, row.AvgHeadwaySecs)
	assert.Equal(t, 0, row.ExcessWaitTimeSecs)
	assert.Equal(t, 100.0, row.HeadwayAdherencePct)
	assert.Equal(t, 1500, row.AvgRuntimeSecs)
	assert.Equal(t, 18.0, row.AvgCommercialSpeed)
	assert.Equal(t, "A", row.Grade)
}

func TestBuildNetworkSummary(t *testing.T) {
	trips := []model.Trip{
		{VehicleID: "v1", Route: "205"},
		{VehicleID: "v1", Route: "205"},
		{VehicleID: "v2", Route: "305"},
	}
	perf := []model.RoutePerformanceDaily{
		{Route: "205", DirectionID: 0, AvgCommercialSpeed: 18, ExcessWaitTimeSecs: 40},
		{Route: "305", DirectionID: 0, AvgCommercialSpeed: 22, ExcessWaitTimeSecs: 120},
	}

	summary := busmetrics.BuildNetworkSummary("2024-05-14", trips, perf, 9000)

	assert.Equal(t, "2024-05-14", summary.Date)
	assert.Equal(t, 2, summary.ActiveVehicles)
	assert.Equal(t, 3, summary.TotalTrips)
	assert.Equal(t, 20.0, summary.AvgCommercialSpeed)
	assert.Equal(t, 80.0, summary.AvgExcessWaitTime)
	assert.Equal(t, "305", summary.WorstRoute)
	assert.Equal(t, 120.0, summary.WorstRouteEwt)
	assert.Equal(t, 9000, summary.PositionsCollected)
}

func TestBuildNetworkSummaryEmptyPerf(t *testing.T) {
	summary := busmetrics.BuildNetworkSummary("2024-05-14", nil, nil, 0)
	assert.Equal(t, "", summary.WorstRoute)
	assert.Equal(t, 0.0, summary.AvgCommercialSpeed)
}
