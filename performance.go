package busmetrics

import (
	"math"
	"sort"
	"time"

	"caravela.dev/busmetrics/model"
)

// Headways above the reference by more than this still count as
// adherent.
const AdherenceSlackSecs = 180

// HeadwayMetrics holds the wait time statistics for one
// route/direction, derived from its observed headway distribution.
type HeadwayMetrics struct {
	AvgHeadwaySecs      int
	AvgWaitSecs         float64
	SchedWaitSecs       float64
	ExcessWaitTimeSecs  int
	HeadwayAdherencePct float64
	BunchingPct         float64
	GappingPct          float64
}

// ComputeHeadwayMetrics derives wait time statistics from sorted trip
// start times. The average wait time models passengers arriving
// uniformly in time: AWT = sum(H^2) / (2 * sum(H)) over observed
// headways H, which long gaps pull upward. The reference headway is
// scheduledSecs when positive, else the median observed headway.
// Returns nil with fewer than two start times.
func ComputeHeadwayMetrics(startTimes []time.Time, scheduledSecs float64) *HeadwayMetrics {
	if len(startTimes) < 2 {
		return nil
	}

	headways := make([]float64, 0, len(startTimes)-1)
	for i := 1; i < len(startTimes); i++ {
		headways = append(headways, startTimes[i].Sub(startTimes[i-1]).Seconds())
	}

	var sumH, sumH2 float64
	for _, h := range headways {
		sumH += h
		sumH2 += h * h
	}
	if sumH <= 0 {
		return nil
	}
	awt := sumH2 / (2 * sumH)

	reference := scheduledSecs
	if reference <= 0 {
		reference = percentile(headways, 50)
	}
	swt := reference / 2
	ewt := math.Max(0, awt-swt)

	adherent, bunched, gapped := 0, 0, 0
	for _, h := range headways {
		if h <= reference+AdherenceSlackSecs {
			adherent++
		}
		if h < reference*0.5 {
			bunched++
		}
		if h > reference*1.5 {
			gapped++
		}
	}
	n := float64(len(headways))

	return &HeadwayMetrics{
		AvgHeadwaySecs:      int(math.Round(sumH / n)),
		AvgWaitSecs:         awt,
		SchedWaitSecs:       swt,
		ExcessWaitTimeSecs:  int(math.Round(ewt)),
		HeadwayAdherencePct: round1(float64(adherent) / n * 100),
		BunchingPct:         round1(float64(bunched) / n * 100),
		GappingPct:          round1(float64(gapped) / n * 100),
	}
}

type gradeThreshold struct {
	grade        string
	maxEwtSecs   float64
	minAdherence float64
}

// Best grade wins; both the EWT and adherence threshold must hold.
var gradeLadder = []gradeThreshold{
	{"A", 60, 90},
	{"B", 120, 80},
	{"C", 240, 70},
	{"D", 360, 60},
	{"E", 480, 50},
}

// GradeFor assigns a letter grade from excess wait time and headway
// adherence. A route earns the best grade for which both thresholds
// hold (EWT strictly below the cap, adherence strictly above the
// floor); otherwise F.
func GradeFor(ewtSecs, adherencePct float64) string {
	for _, t := range gradeLadder {
		if ewtSecs < t.maxEwtSecs && adherencePct > t.minAdherence {
			return t.grade
		}
	}
	return "F"
}

type routeDirKey struct {
	Route       string
	DirectionID int8
}

// BuildRoutePerformance rolls reconstructed trips up into one
// RoutePerformanceDaily row per route/direction. Groups with fewer
// than two trips are skipped, as no headway can be observed. Rows are
// ordered by (route, direction).
func BuildRoutePerformance(date string, trips []model.Trip, schedules []model.RouteSchedule) []model.RoutePerformanceDaily {
	scheduled := map[routeDirKey]float64{}
	for _, sched := range schedules {
		scheduled[routeDirKey{sched.Route, sched.DirectionID}] = sched.HeadwaySecs
	}

	groups := map[routeDirKey][]model.Trip{}
	for _, t := range trips {
		key := routeDirKey{t.Route, t.DirectionID}
		groups[key] = append(groups[key], t)
	}

	var rows []model.RoutePerformanceDaily
	for key, group := range groups {
		sort.Slice(group, func(i, j int) bool {
			return group[i].StartedAt.Before(group[j].StartedAt)
		})

		starts := make([]time.Time, len(group))
		var runtimeSum float64
		var speedSum float64
		var speedCount int
		for i, t := range group {
			starts[i] = t.StartedAt
			runtimeSum += float64(t.RuntimeSecs)
			if t.AvgSpeed > 0 {
				speedSum += t.AvgSpeed
				speedCount++
			}
		}

		metrics := ComputeHeadwayMetrics(starts, scheduled[key])
		if metrics == nil {
			continue
		}

		var avgSpeed float64
		if speedCount > 0 {
			avgSpeed = round1(speedSum / float64(speedCount))
		}

		rows = append(rows, model.RoutePerformanceDaily{
			Date:                date,
			Route:               key.Route,
			DirectionID:         key.DirectionID,
			TripsObserved:       len(group),
			AvgHeadwaySecs:      metrics.AvgHeadwaySecs,
			HeadwayAdherencePct: metrics.HeadwayAdherencePct,
			ExcessWaitTimeSecs:  metrics.ExcessWaitTimeSecs,
			AvgRuntimeSecs:      int(math.Round(runtimeSum / float64(len(group)))),
			AvgCommercialSpeed:  avgSpeed,
			BunchingPct:         metrics.BunchingPct,
			GappingPct:          metrics.GappingPct,
			Grade:               GradeFor(float64(metrics.ExcessWaitTimeSecs), metrics.HeadwayAdherencePct),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Route != rows[j].Route {
			return rows[i].Route < rows[j].Route
		}
		return rows[i].DirectionID < rows[j].DirectionID
	})

	return rows
}

// BuildNetworkSummary aggregates per-route results into the single
// network-wide row for a day. Speed and excess wait averages are
// unweighted means across route/direction rows; the row with the
// single highest EWT is reported as the worst route.
func BuildNetworkSummary(date string, trips []model.Trip, perf []model.RoutePerformanceDaily, positions int) model.NetworkSummaryDaily {
	vehicles := map[string]bool{}
	for _, t := range trips {
		vehicles[t.VehicleID] = true
	}

	summary := model.NetworkSummaryDaily{
		Date:               date,
		ActiveVehicles:     len(vehicles),
		TotalTrips:         len(trips),
		PositionsCollected: positions,
	}

	if len(perf) == 0 {
		return summary
	}

	var speedSum, ewtSum float64
	worstEwt := math.Inf(-1)
	for _, row := range perf {
		speedSum += row.AvgCommercialSpeed
		ewtSum += float64(row.ExcessWaitTimeSecs)
		if float64(row.ExcessWaitTimeSecs) > worstEwt {
			worstEwt = float64(row.ExcessWaitTimeSecs)
			summary.WorstRoute = row.Route
			summary.WorstRouteEwt = float64(row.ExcessWaitTimeSecs)
		}
	}
	summary.AvgCommercialSpeed = round1(speedSum / float64(len(perf)))
	summary.AvgExcessWaitTime = round1(ewtSum / float64(len(perf)))

	return summary
}
