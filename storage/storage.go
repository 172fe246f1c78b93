package storage

import (
	"time"

	"caravela.dev/busmetrics/model"
)

// Storage holds raw positions, the weekly reference geometry, and the
// five derived tables owned by the daily aggregation run.
//
// All Replace* operations are idempotent for a given date: existing
// rows for that date are deleted before the new rows are inserted, in
// batches, so a re-run leaves each table in the same final state.
type Storage interface {
	PositionSource
	ReferenceWriter

	// Appends raw position samples. IDs are assigned by the store.
	WritePositions(points []model.PositionPoint) error

	// Reference data, as written by the weekly geometry refresh.
	Segments() ([]model.SegmentDef, error)
	RouteStops() ([]model.RouteStop, error)
	RouteSchedules() ([]model.RouteSchedule, error)

	ReplaceTrips(date string, trips []model.Trip) error
	ReplaceSegmentSpeeds(date string, rows []model.SegmentSpeedHourly) error
	ReplaceRoutePerformance(date string, rows []model.RoutePerformanceDaily) error
	ReplaceStopHeadways(date string, rows []model.StopHeadwayDaily) error
	ReplaceNetworkSummary(date string, row *model.NetworkSummaryDaily) error

	// Read side of the derived tables, used by the analytics query
	// endpoints and by tests.
	TripsByDate(date string) ([]model.Trip, error)
	SegmentSpeedsByDate(date string) ([]model.SegmentSpeedHourly, error)
	RoutePerformanceByDate(date string) ([]model.RoutePerformanceDaily, error)
	StopHeadwaysByDate(date string) ([]model.StopHeadwayDaily, error)
	NetworkSummaryByDate(date string) (*model.NetworkSummaryDaily, error)

	Close() error
}

// PositionSource pages through raw positions for a time window. Rows
// are ordered by (recorded_at, id) ascending and strictly after the
// cursor, at most limit per call. The aggregation pipeline only
// depends on this, which keeps it storage-agnostic.
type PositionSource interface {
	ListPositions(start, end time.Time, cursor PositionCursor, limit int) ([]model.PositionPoint, error)
}

// ReferenceWriter is the write side for reference data. Write
// replaces all previously stored rows of that kind, mirroring the
// weekly refresh semantics.
type ReferenceWriter interface {
	WriteSegments(segments []model.SegmentDef) error
	WriteRouteStops(stops []model.RouteStop) error
	WriteRouteSchedules(schedules []model.RouteSchedule) error
}

// PositionCursor is a keyset cursor into the position table. The zero
// value starts from the beginning of the window.
type PositionCursor struct {
	RecordedAt time.Time
	ID         int64
}

// After reports whether the sample sorts strictly after the cursor in
// (recorded_at, id) order.
func (c PositionCursor) After(p model.PositionPoint) bool {
	if p.RecordedAt.After(c.RecordedAt) {
		return true
	}
	return p.RecordedAt.Equal(c.RecordedAt) && p.ID > c.ID
}
