package model

import (
	"time"
)

// Holds all external facing types and constants.

// DirectionUnknown marks a position or reference row without a
// direction reading. Known directions are 0 and 1.
const DirectionUnknown int8 = -1

// SpeedUnknown marks a position without a speed reading. Valid
// readings are >= 0, in km/h.
const SpeedUnknown float64 = -1

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lon float64
}

// PositionPoint is a single raw telemetry sample, as written by the
// ingestion worker. Immutable; retained upstream for 24 hours.
type PositionPoint struct {
	ID          int64
	VehicleID   string
	VehicleNum  string
	Route       string
	TripID      string
	DirectionID int8
	Lat         float64
	Lon         float64
	Speed       float64
	Heading     float64
	RecordedAt  time.Time
}

// SegmentDef is a fixed-length subdivision of a route's path,
// produced by the weekly geometry refresh and consumed read-only.
// Ordered within a route/direction by SegmentIndex.
type SegmentDef struct {
	ID           string
	Route        string
	DirectionID  int8
	SegmentIndex int
	StartLat     float64
	StartLon     float64
	EndLat       float64
	EndLon       float64
	MidLat       float64
	MidLon       float64
	LengthM      float64
	Geometry     []Point
}

// RouteStop is a stop on a route/direction, ordered by StopSequence.
type RouteStop struct {
	Route        string
	DirectionID  int8
	StopSequence int
	StopID       string
	StopName     string
	Lat          float64
	Lon          float64
}

// RouteSchedule carries the scheduled headway for a route/direction,
// when the operator publishes one. Used as the reference headway for
// wait time metrics; routes without a schedule fall back to the
// median observed headway.
type RouteSchedule struct {
	Route       string
	DirectionID int8
	HeadwaySecs float64
}

// Trip is one reconstructed vehicle run. Always has at least 3
// constituent positions, all sharing vehicle, route and direction,
// with no internal gap above 10 minutes.
type Trip struct {
	VehicleID   string
	VehicleNum  string
	Route       string
	TripID      string
	DirectionID int8
	StartedAt   time.Time
	EndedAt     time.Time
	RuntimeSecs int
	Positions   int
	AvgSpeed    float64
}

// SegmentSpeedHourly aggregates speed samples on one segment during
// one UTC hour. Only emitted when at least 2 samples exist.
type SegmentSpeedHourly struct {
	SegmentID   string
	Route       string
	DirectionID int8
	HourStart   time.Time
	AvgSpeed    float64
	MedianSpeed float64
	P10Speed    float64
	P90Speed    float64
	SampleCount int
}

// RoutePerformanceDaily is the per route/direction reliability roll-up
// for one service day.
type RoutePerformanceDaily struct {
	Date                string
	Route               string
	DirectionID         int8
	TripsObserved       int
	AvgHeadwaySecs      int
	HeadwayAdherencePct float64
	ExcessWaitTimeSecs  int
	AvgRuntimeSecs      int
	AvgCommercialSpeed  float64
	BunchingPct         float64
	GappingPct          float64
	Grade               string
}

// StopHeadwayDaily summarizes headway irregularity at one stop for one
// service day. Only emitted with at least 3 arrival observations.
type StopHeadwayDaily struct {
	Date           string
	Route          string
	DirectionID    int8
	StopID         string
	StopName       string
	StopSequence   int
	AvgHeadwaySecs int
	HeadwayStdDev  float64
	Observations   int
}

// NetworkSummaryDaily is the single network-wide row for one day.
type NetworkSummaryDaily struct {
	Date               string
	ActiveVehicles     int
	TotalTrips         int
	AvgCommercialSpeed float64
	AvgExcessWaitTime  float64
	WorstRoute         string
	WorstRouteEwt      float64
	PositionsCollected int
}

// Date formats a time as a service day key (YYYY-MM-DD, UTC).
func Date(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// DayWindow returns the [start, end) UTC window for a service day key.
func DayWindow(date string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 0, 1), nil
}
