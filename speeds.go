package busmetrics

import (
	"sort"
	"time"

	"caravela.dev/busmetrics/geo"
	"caravela.dev/busmetrics/model"
)

// Positions snap to a segment midpoint at most this far away.
const SnapMaxDistM = 150

// Segment-hour buckets with fewer samples than this are dropped.
const MinSegmentSamples = 2

type segmentHourKey struct {
	SegmentID string
	HourStart time.Time
}

// SegmentSpeedAggregator snaps moving positions (speed > 0) onto the
// nearest reference segment and buckets the speed samples by segment
// and UTC hour.
type SegmentSpeedAggregator struct {
	segments []model.SegmentDef
	segByID  map[string]model.SegmentDef
	samples  map[segmentHourKey][]float64
}

func NewSegmentSpeedAggregator(segments []model.SegmentDef) *SegmentSpeedAggregator {
	segByID := make(map[string]model.SegmentDef, len(segments))
	for _, seg := range segments {
		segByID[seg.ID] = seg
	}
	return &SegmentSpeedAggregator{
		segments: segments,
		segByID:  segByID,
		samples:  map[segmentHourKey][]float64{},
	}
}

func (a *SegmentSpeedAggregator) Add(p model.PositionPoint) {
	if p.Speed <= 0 {
		return
	}
	segID, ok := geo.SnapToSegment(p.Lat, p.Lon, p.Route, p.DirectionID, a.segments, SnapMaxDistM)
	if !ok {
		return
	}
	key := segmentHourKey{
		SegmentID: segID,
		HourStart: p.RecordedAt.UTC().Truncate(time.Hour),
	}
	a.samples[key] = append(a.samples[key], p.Speed)
}

// Rows emits one SegmentSpeedHourly per bucket with at least
// MinSegmentSamples samples, with mean, median, p10 and p90 speeds,
// ordered by (segment id, hour).
func (a *SegmentSpeedAggregator) Rows() []model.SegmentSpeedHourly {
	var rows []model.SegmentSpeedHourly
	for key, speeds := range a.samples {
		if len(speeds) < MinSegmentSamples {
			continue
		}
		seg := a.segByID[key.SegmentID]
		rows = append(rows, model.SegmentSpeedHourly{
			SegmentID:   key.SegmentID,
			Route:       seg.Route,
			DirectionID: seg.DirectionID,
			HourStart:   key.HourStart,
			AvgSpeed:    round1(mean(speeds)),
			MedianSpeed: round1(percentile(speeds, 50)),
			P10Speed:    round1(percentile(speeds, 10)),
			P90Speed:    round1(percentile(speeds, 90)),
			SampleCount: len(speeds),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].SegmentID != rows[j].SegmentID {
			return rows[i].SegmentID < rows[j].SegmentID
		}
		return rows[i].HourStart.Before(rows[j].HourStart)
	})

	return rows
}

// AggregateSegmentSpeeds runs a SegmentSpeedAggregator over a full
// slice of positions.
func AggregateSegmentSpeeds(points []model.PositionPoint, segments []model.SegmentDef) []model.SegmentSpeedHourly {
	a := NewSegmentSpeedAggregator(segments)
	for _, p := range points {
		a.Add(p)
	}
	return a.Rows()
}
