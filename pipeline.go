package busmetrics

import (
	"log"
	"time"

	"github.com/pkg/errors"

	"caravela.dev/busmetrics/metrics"
	"caravela.dev/busmetrics/model"
	"caravela.dev/busmetrics/storage"
)

// State is the orchestrator's position in the daily run.
type State string

const (
	StateIdle                    State = "idle"
	StateStreaming               State = "streaming"
	StateReconstructing          State = "reconstructing"
	StatePersistingTrips         State = "persisting_trips"
	StateAggregatingSegments     State = "aggregating_segments"
	StateComputingRoutePerf      State = "computing_route_perf"
	StateAggregatingStopHeadways State = "aggregating_stop_headways"
	StateComputingNetworkSummary State = "computing_network_summary"
	StateDone                    State = "done"
	StateFailed                  State = "failed"
)

// RunSummary reports one daily run.
type RunSummary struct {
	Date             string        `json:"date"`
	State            State         `json:"state"`
	Positions        int           `json:"positions"`
	Trips            int           `json:"trips"`
	SegmentSpeeds    int           `json:"segmentSpeeds"`
	RoutePerformance int           `json:"routePerformance"`
	StopHeadways     int           `json:"stopHeadways"`
	Elapsed          time.Duration `json:"elapsed"`
}

// RunPublisher receives the summary of a successful run.
type RunPublisher interface {
	PublishRunSummary(summary RunSummary) error
}

// Pipeline turns one day's raw position stream into the five derived
// analytics tables. Each persistence stage deletes existing rows for
// the date before inserting, so re-running a date from scratch always
// restores consistency.
//
// A Pipeline holds no per-run state; all accumulators are local to
// Run. Callers must still serialize runs for the same date, as the
// delete-then-insert sequence takes no lock.
type Pipeline struct {
	// Rows fetched per chunk from the position store.
	ChunkSize int

	// Optional; nil disables instrumentation.
	Metrics *metrics.Collector

	// Optional; nil disables run summary publishing.
	Publisher RunPublisher

	storage storage.Storage
}

func NewPipeline(s storage.Storage) *Pipeline {
	return &Pipeline{
		ChunkSize: storage.DefaultChunkSize,
		storage:   s,
	}
}

// Run aggregates one service day (YYYY-MM-DD, UTC). On failure the
// returned summary carries the state that failed; stages completed
// before the failure remain committed.
func (p *Pipeline) Run(date string) (RunSummary, error) {
	began := time.Now()
	summary := RunSummary{Date: date, State: StateIdle}

	err := p.run(date, &summary)
	summary.Elapsed = time.Since(began)

	if err != nil {
		summary.State = StateFailed
		p.Metrics.ObserveRun("failure", summary.Elapsed)
		return summary, err
	}

	summary.State = StateDone
	p.Metrics.ObserveRun("success", summary.Elapsed)

	if p.Publisher != nil {
		if pubErr := p.Publisher.PublishRunSummary(summary); pubErr != nil {
			log.Printf("publishing run summary for %s: %v", date, pubErr)
		}
	}

	return summary, nil
}

func (p *Pipeline) run(date string, summary *RunSummary) error {
	dayStart, dayEnd, err := model.DayWindow(date)
	if err != nil {
		return errors.Wrapf(err, "invalid date %q", date)
	}

	segments, err := p.storage.Segments()
	if err != nil {
		return errors.Wrap(err, "loading segments")
	}
	stops, err := p.storage.RouteStops()
	if err != nil {
		return errors.Wrap(err, "loading route stops")
	}
	schedules, err := p.storage.RouteSchedules()
	if err != nil {
		return errors.Wrap(err, "loading route schedules")
	}

	// Streaming: one bounded pass over the day's positions, feeding
	// all three accumulators. Peak memory is one chunk plus the
	// accumulator state.
	summary.State = StateStreaming
	stageStart := time.Now()

	reconstructor := NewTripReconstructor()
	speedAgg := NewSegmentSpeedAggregator(segments)
	headwayAgg := NewStopHeadwayAggregator(date, stops)

	stream := storage.NewPositionStream(p.storage, dayStart, dayEnd, p.ChunkSize)
	for {
		chunk, err := stream.Next()
		if err != nil {
			return errors.Wrapf(err, "stage %s", summary.State)
		}
		if chunk == nil {
			break
		}
		for _, point := range chunk {
			reconstructor.Add(point)
			speedAgg.Add(point)
			headwayAgg.Add(point)
		}
		summary.Positions += len(chunk)
	}
	p.Metrics.ObserveStage(string(StateStreaming), time.Since(stageStart))
	p.Metrics.AddPositions(summary.Positions)

	// Empty day: success with zero counts, nothing touched.
	if summary.Positions == 0 {
		return nil
	}

	summary.State = StateReconstructing
	stageStart = time.Now()
	trips := reconstructor.Trips()
	summary.Trips = len(trips)
	p.Metrics.ObserveStage(string(StateReconstructing), time.Since(stageStart))
	p.Metrics.AddTrips(summary.Trips)

	summary.State = StatePersistingTrips
	stageStart = time.Now()
	if err := p.storage.ReplaceTrips(date, trips); err != nil {
		return errors.Wrapf(err, "stage %s", summary.State)
	}
	p.Metrics.ObserveStage(string(StatePersistingTrips), time.Since(stageStart))

	summary.State = StateAggregatingSegments
	stageStart = time.Now()
	segmentSpeeds := speedAgg.Rows()
	summary.SegmentSpeeds = len(segmentSpeeds)
	if err := p.storage.ReplaceSegmentSpeeds(date, segmentSpeeds); err != nil {
		return errors.Wrapf(err, "stage %s", summary.State)
	}
	p.Metrics.ObserveStage(string(StateAggregatingSegments), time.Since(stageStart))

	summary.State = StateComputingRoutePerf
	stageStart = time.Now()
	perf := BuildRoutePerformance(date, trips, schedules)
	summary.RoutePerformance = len(perf)
	if err := p.storage.ReplaceRoutePerformance(date, perf); err != nil {
		return errors.Wrapf(err, "stage %s", summary.State)
	}
	p.Metrics.ObserveStage(string(StateComputingRoutePerf), time.Since(stageStart))

	summary.State = StateAggregatingStopHeadways
	stageStart = time.Now()
	stopHeadways := headwayAgg.Rows()
	summary.StopHeadways = len(stopHeadways)
	if err := p.storage.ReplaceStopHeadways(date, stopHeadways); err != nil {
		return errors.Wrapf(err, "stage %s", summary.State)
	}
	p.Metrics.ObserveStage(string(StateAggregatingStopHeadways), time.Since(stageStart))

	summary.State = StateComputingNetworkSummary
	stageStart = time.Now()
	network := BuildNetworkSummary(date, trips, perf, summary.Positions)
	if err := p.storage.ReplaceNetworkSummary(date, &network); err != nil {
		return errors.Wrapf(err, "stage %s", summary.State)
	}
	p.Metrics.ObserveStage(string(StateComputingNetworkSummary), time.Since(stageStart))

	return nil
}
