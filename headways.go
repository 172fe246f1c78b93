package busmetrics

import (
	"math"
	"sort"
	"time"

	"caravela.dev/busmetrics/geo"
	"caravela.dev/busmetrics/model"
)

// Positions count as a stop visit within this distance.
const StopProximityM = 80

// Repeat detections of the same (vehicle, stop) pair within this
// window are one dwell, not separate arrivals.
const StopCooldown = 3 * time.Minute

// A stop needs at least this many arrivals to produce a row.
const MinStopObservations = 3

type vehicleStopKey struct {
	VehicleID string
	StopID    string
}

type routeStopKey struct {
	Route       string
	DirectionID int8
	StopID      string
}

// StopHeadwayAggregator detects proximity events to known stops and
// derives per-stop arrival time series. Positions must be added in
// recorded-at order, which the position stream guarantees.
type StopHeadwayAggregator struct {
	date  string
	stops []model.RouteStop

	lastSeen map[vehicleStopKey]time.Time
	arrivals map[routeStopKey][]time.Time
	stopInfo map[routeStopKey]model.RouteStop
}

func NewStopHeadwayAggregator(date string, stops []model.RouteStop) *StopHeadwayAggregator {
	return &StopHeadwayAggregator{
		date:     date,
		stops:    stops,
		lastSeen: map[vehicleStopKey]time.Time{},
		arrivals: map[routeStopKey][]time.Time{},
		stopInfo: map[routeStopKey]model.RouteStop{},
	}
}

func (a *StopHeadwayAggregator) Add(p model.PositionPoint) {
	stop, ok := geo.NearestStop(p.Lat, p.Lon, p.Route, p.DirectionID, a.stops, StopProximityM)
	if !ok {
		return
	}

	dwellKey := vehicleStopKey{VehicleID: p.VehicleID, StopID: stop.StopID}
	if last, seen := a.lastSeen[dwellKey]; seen && p.RecordedAt.Sub(last) < StopCooldown {
		a.lastSeen[dwellKey] = p.RecordedAt
		return
	}
	a.lastSeen[dwellKey] = p.RecordedAt

	key := routeStopKey{Route: stop.Route, DirectionID: stop.DirectionID, StopID: stop.StopID}
	a.arrivals[key] = append(a.arrivals[key], p.RecordedAt)
	a.stopInfo[key] = stop
}

// Rows emits one StopHeadwayDaily per stop with at least
// MinStopObservations arrivals, reporting the mean inter-arrival gap
// and its population standard deviation. Rows are ordered by (route,
// direction, stop sequence).
func (a *StopHeadwayAggregator) Rows() []model.StopHeadwayDaily {
	var rows []model.StopHeadwayDaily
	for key, times := range a.arrivals {
		if len(times) < MinStopObservations {
			continue
		}

		sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

		gaps := make([]float64, 0, len(times)-1)
		for i := 1; i < len(times); i++ {
			gaps = append(gaps, times[i].Sub(times[i-1]).Seconds())
		}

		stop := a.stopInfo[key]
		rows = append(rows, model.StopHeadwayDaily{
			Date:           a.date,
			Route:          key.Route,
			DirectionID:    key.DirectionID,
			StopID:         key.StopID,
			StopName:       stop.StopName,
			StopSequence:   stop.StopSequence,
			AvgHeadwaySecs: int(math.Round(mean(gaps))),
			HeadwayStdDev:  round1(populationStdDev(gaps)),
			Observations:   len(times),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Route != b.Route {
			return a.Route < b.Route
		}
		if a.DirectionID != b.DirectionID {
			return a.DirectionID < b.DirectionID
		}
		return a.StopSequence < b.StopSequence
	})

	return rows
}

// AggregateStopHeadways runs a StopHeadwayAggregator over a full
// slice of positions.
func AggregateStopHeadways(date string, points []model.PositionPoint, stops []model.RouteStop) []model.StopHeadwayDaily {
	a := NewStopHeadwayAggregator(date, stops)
	for _, p := range points {
		a.Add(p)
	}
	return a.Rows()
}
