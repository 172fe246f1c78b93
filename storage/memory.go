package storage

import (
	"sort"
	"time"

	"caravela.dev/busmetrics/model"
)

// In memory implementation of Storage below. Used in tests and as a
// fallback when no database is configured.

type MemoryStorage struct {
	nextID    int64
	positions []model.PositionPoint

	segments  []model.SegmentDef
	stops     []model.RouteStop
	schedules []model.RouteSchedule

	trips         map[string][]model.Trip
	segmentSpeeds map[string][]model.SegmentSpeedHourly
	routePerf     map[string][]model.RoutePerformanceDaily
	stopHeadways  map[string][]model.StopHeadwayDaily
	networkSumm   map[string]*model.NetworkSummaryDaily
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		trips:         map[string][]model.Trip{},
		segmentSpeeds: map[string][]model.SegmentSpeedHourly{},
		routePerf:     map[string][]model.RoutePerformanceDaily{},
		stopHeadways:  map[string][]model.StopHeadwayDaily{},
		networkSumm:   map[string]*model.NetworkSummaryDaily{},
	}
}

func (s *MemoryStorage) WritePositions(points []model.PositionPoint) error {
	for _, p := range points {
		s.nextID++
		p.ID = s.nextID
		s.positions = append(s.positions, p)
	}
	return nil
}

func (s *MemoryStorage) ListPositions(start, end time.Time, cursor PositionCursor, limit int) ([]model.PositionPoint, error) {
	matched := []model.PositionPoint{}
	for _, p := range s.positions {
		if p.RecordedAt.Before(start) || !p.RecordedAt.Before(end) {
			continue
		}
		if !cursor.After(p) {
			continue
		}
		matched = append(matched, p)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].RecordedAt.Equal(matched[j].RecordedAt) {
			return matched[i].RecordedAt.Before(matched[j].RecordedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *MemoryStorage) WriteSegments(segments []model.SegmentDef) error {
	s.segments = append([]model.SegmentDef{}, segments...)
	return nil
}

func (s *MemoryStorage) WriteRouteStops(stops []model.RouteStop) error {
	s.stops = append([]model.RouteStop{}, stops...)
	return nil
}

func (s *MemoryStorage) WriteRouteSchedules(schedules []model.RouteSchedule) error {
	s.schedules = append([]model.RouteSchedule{}, schedules...)
	return nil
}

func (s *MemoryStorage) Segments() ([]model.SegmentDef, error) {
	return append([]model.SegmentDef{}, s.segments...), nil
}

func (s *MemoryStorage) RouteStops() ([]model.RouteStop, error) {
	return append([]model.RouteStop{}, s.stops...), nil
}

func (s *MemoryStorage) RouteSchedules() ([]model.RouteSchedule, error) {
	return append([]model.RouteSchedule{}, s.schedules...), nil
}

func (s *MemoryStorage) ReplaceTrips(date string, trips []model.Trip) error {
	s.trips[date] = append([]model.Trip{}, trips...)
	return nil
}

func (s *MemoryStorage) ReplaceSegmentSpeeds(date string, rows []model.SegmentSpeedHourly) error {
	s.segmentSpeeds[date] = append([]model.SegmentSpeedHourly{}, rows...)
	return nil
}

func (s *MemoryStorage) ReplaceRoutePerformance(date string, rows []model.RoutePerformanceDaily) error {
	s.routePerf[date] = append([]model.RoutePerformanceDaily{}, rows...)
	return nil
}

func (s *MemoryStorage) ReplaceStopHeadways(date string, rows []model.StopHeadwayDaily) error {
	s.stopHeadways[date] = append([]model.StopHeadwayDaily{}, rows...)
	return nil
}

func (s *MemoryStorage) ReplaceNetworkSummary(date string, row *model.NetworkSummaryDaily) error {
	if row == nil {
		delete(s.networkSumm, date)
		return nil
	}
	copied := *row
	s.networkSumm[date] = &copied
	return nil
}

func (s *MemoryStorage) TripsByDate(date string) ([]model.Trip, error) {
	return append([]model.Trip{}, s.trips[date]...), nil
}

func (s *MemoryStorage) SegmentSpeedsByDate(date string) ([]model.SegmentSpeedHourly, error) {
	return append([]model.SegmentSpeedHourly{}, s.segmentSpeeds[date]...), nil
}

func (s *MemoryStorage) RoutePerformanceByDate(date string) ([]model.RoutePerformanceDaily, error) {
	return append([]model.RoutePerformanceDaily{}, s.routePerf[date]...), nil
}

func (s *MemoryStorage) StopHeadwaysByDate(date string) ([]model.StopHeadwayDaily, error) {
	return append([]model.StopHeadwayDaily{}, s.stopHeadways[date]...), nil
}

func (s *MemoryStorage) NetworkSummaryByDate(date string) (*model.NetworkSummaryDaily, error) {
	row, ok := s.networkSumm[date]
	if !ok {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
