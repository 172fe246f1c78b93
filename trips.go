package busmetrics

import (
	"math"
	"sort"
	"time"

	"caravela.dev/busmetrics/model"
)

// A trip is closed when the gap between consecutive samples exceeds
// this, even if the trip identifier is unchanged.
const MaxTripGap = 10 * time.Minute

// Trips with fewer samples than this are discarded as GPS noise.
const MinTripPositions = 3

type vehicleRunKey struct {
	VehicleID   string
	Route       string
	DirectionID int8
}

// TripReconstructor accumulates raw positions grouped by (vehicle,
// route, direction) and segments each group's time-ordered samples
// into discrete trips. A new trip starts when the trip identifier
// changes or when the gap since the previous sample exceeds
// MaxTripGap.
type TripReconstructor struct {
	groups map[vehicleRunKey][]model.PositionPoint
}

func NewTripReconstructor() *TripReconstructor {
	return &TripReconstructor{
		groups: map[vehicleRunKey][]model.PositionPoint{},
	}
}

func (r *TripReconstructor) Add(p model.PositionPoint) {
	key := vehicleRunKey{VehicleID: p.VehicleID, Route: p.Route, DirectionID: p.DirectionID}
	r.groups[key] = append(r.groups[key], p)
}

// Trips closes out all groups and returns the reconstructed trips.
// Output is deterministic for a given input: groups are emitted in
// sorted key order, trips within a group in time order.
func (r *TripReconstructor) Trips() []model.Trip {
	keys := make([]vehicleRunKey, 0, len(r.groups))
	for key := range r.groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Route != b.Route {
			return a.Route < b.Route
		}
		if a.DirectionID != b.DirectionID {
			return a.DirectionID < b.DirectionID
		}
		return a.VehicleID < b.VehicleID
	})

	var trips []model.Trip
	for _, key := range keys {
		trips = append(trips, reconstructGroup(r.groups[key])...)
	}
	return trips
}

// ReconstructTrips runs a TripReconstructor over a full slice of
// positions. Idempotent: identical input yields identical output.
func ReconstructTrips(points []model.PositionPoint) []model.Trip {
	r := NewTripReconstructor()
	for _, p := range points {
		r.Add(p)
	}
	return r.Trips()
}

func reconstructGroup(points []model.PositionPoint) []model.Trip {
	sort.SliceStable(points, func(i, j int) bool {
		if !points[i].RecordedAt.Equal(points[j].RecordedAt) {
			return points[i].RecordedAt.Before(points[j].RecordedAt)
		}
		return points[i].ID < points[j].ID
	})

	var trips []model.Trip
	tripPoints := []model.PositionPoint{points[0]}

	for i := 1; i < len(points); i++ {
		prev := points[i-1]
		curr := points[i]

		tripChanged := curr.TripID != "" && prev.TripID != "" && curr.TripID != prev.TripID
		gapTooLarge := curr.RecordedAt.Sub(prev.RecordedAt) > MaxTripGap

		if tripChanged || gapTooLarge {
			if len(tripPoints) >= MinTripPositions {
				trips = append(trips, finalizeTrip(tripPoints))
			}
			tripPoints = []model.PositionPoint{curr}
		} else {
			tripPoints = append(tripPoints, curr)
		}
	}

	if len(tripPoints) >= MinTripPositions {
		trips = append(trips, finalizeTrip(tripPoints))
	}

	return trips
}

func finalizeTrip(points []model.PositionPoint) model.Trip {
	first := points[0]
	last := points[len(points)-1]

	var speedSum float64
	var speedCount int
	for _, p := range points {
		if p.Speed >= 0 {
			speedSum += p.Speed
			speedCount++
		}
	}
	var avgSpeed float64
	if speedCount > 0 {
		avgSpeed = speedSum / float64(speedCount)
	}

	return model.Trip{
		VehicleID:   first.VehicleID,
		VehicleNum:  first.VehicleNum,
		Route:       first.Route,
		TripID:      first.TripID,
		DirectionID: first.DirectionID,
		StartedAt:   first.RecordedAt,
		EndedAt:     last.RecordedAt,
		RuntimeSecs: int(math.Round(last.RecordedAt.Sub(first.RecordedAt).Seconds())),
		Positions:   len(points),
		AvgSpeed:    math.Round(avgSpeed*10) / 10,
	}
}
