// Package parse loads reference data exported by the weekly geometry
// refresh job: segment definitions, route stop lists and scheduled
// headways, all as CSV.
package parse

import (
	"io"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/spkg/bom"

	"caravela.dev/busmetrics/geo"
	"caravela.dev/busmetrics/model"
	"caravela.dev/busmetrics/storage"
)

func init() {
	// LazyCSVReader required (at least) to survive sloppy use of
	// quotes. The BOM reader strips unicode BOMs if present.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		return gocsv.LazyCSVReader(bom.NewReader(in))
	})
}

type SegmentCSV struct {
	ID           string  `csv:"segment_id"`
	Route        string  `csv:"route"`
	DirectionID  int8    `csv:"direction_id"`
	SegmentIndex int     `csv:"segment_index"`
	StartLat     float64 `csv:"start_lat"`
	StartLon     float64 `csv:"start_lon"`
	EndLat       float64 `csv:"end_lat"`
	EndLon       float64 `csv:"end_lon"`
	MidLat       float64 `csv:"mid_lat"`
	MidLon       float64 `csv:"mid_lon"`
	LengthM      float64 `csv:"length_m"`
	Geometry     string  `csv:"geometry"`
}

// ParseSegments reads a segment definition CSV and replaces the
// stored segments.
func ParseSegments(writer storage.ReferenceWriter, data io.Reader) (int, error) {
	segmentCsv := []*SegmentCSV{}
	if err := gocsv.Unmarshal(data, &segmentCsv); err != nil {
		return 0, errors.Wrap(err, "unmarshaling segments csv")
	}

	seen := map[string]bool{}
	segments := make([]model.SegmentDef, 0, len(segmentCsv))
	for i, row := range segmentCsv {
		if row.ID == "" {
			return 0, errors.Errorf("empty segment_id (row %d)", i+1)
		}
		if seen[row.ID] {
			return 0, errors.Errorf("repeated segment_id '%s' (row %d)", row.ID, i+1)
		}
		seen[row.ID] = true

		if row.Route == "" {
			return 0, errors.Errorf("empty route for segment '%s'", row.ID)
		}

		geometry, err := geo.DecodePoints(row.Geometry)
		if err != nil {
			return 0, errors.Wrapf(err, "decoding geometry for segment '%s'", row.ID)
		}

		segments = append(segments, model.SegmentDef{
			ID:           row.ID,
			Route:        row.Route,
			DirectionID:  row.DirectionID,
			SegmentIndex: row.SegmentIndex,
			StartLat:     row.StartLat,
			StartLon:     row.StartLon,
			EndLat:       row.EndLat,
			EndLon:       row.EndLon,
			MidLat:       row.MidLat,
			MidLon:       row.MidLon,
			LengthM:      row.LengthM,
			Geometry:     geometry,
		})
	}

	if err := writer.WriteSegments(segments); err != nil {
		return 0, errors.Wrap(err, "writing segments")
	}
	return len(segments), nil
}

type RouteStopCSV struct {
	Route        string  `csv:"route"`
	DirectionID  int8    `csv:"direction_id"`
	StopSequence int     `csv:"stop_sequence"`
	StopID       string  `csv:"stop_id"`
	StopName     string  `csv:"stop_name"`
	Lat          float64 `csv:"lat"`
	Lon          float64 `csv:"lon"`
}

// ParseRouteStops reads a route stop CSV and replaces the stored
// stop lists.
func ParseRouteStops(writer storage.ReferenceWriter, data io.Reader) (int, error) {
	stopCsv := []*RouteStopCSV{}
	if err := gocsv.Unmarshal(data, &stopCsv); err != nil {
		return 0, errors.Wrap(err, "unmarshaling route stops csv")
	}

	stops := make([]model.RouteStop, 0, len(stopCsv))
	for i, row := range stopCsv {
		if row.Route == "" {
			return 0, errors.Errorf("empty route (row %d)", i+1)
		}
		if row.StopID == "" {
			return 0, errors.Errorf("empty stop_id (row %d)", i+1)
		}
		if row.Lat == 0 || row.Lon == 0 {
			return 0, errors.Errorf("empty lat or lon for stop '%s' (row %d)", row.StopID, i+1)
		}

		stops = append(stops, model.RouteStop{
			Route:        row.Route,
			DirectionID:  row.DirectionID,
			StopSequence: row.StopSequence,
			StopID:       row.StopID,
			StopName:     row.StopName,
			Lat:          row.Lat,
			Lon:          row.Lon,
		})
	}

	if err := writer.WriteRouteStops(stops); err != nil {
		return 0, errors.Wrap(err, "writing route stops")
	}
	return len(stops), nil
}

type RouteScheduleCSV struct {
	Route       string  `csv:"route"`
	DirectionID int8    `csv:"direction_id"`
	HeadwaySecs float64 `csv:"headway_secs"`
}

// ParseRouteSchedules reads a scheduled headway CSV and replaces the
// stored schedules.
func ParseRouteSchedules(writer storage.ReferenceWriter, data io.Reader) (int, error) {
	schedCsv := []*RouteScheduleCSV{}
	if err := gocsv.Unmarshal(data, &schedCsv); err != nil {
		return 0, errors.Wrap(err, "unmarshaling route schedules csv")
	}

	schedules := make([]model.RouteSchedule, 0, len(schedCsv))
	for i, row := range schedCsv {
		if row.Route == "" {
			return 0, errors.Errorf("empty route (row %d)", i+1)
		}
		if row.HeadwaySecs <= 0 {
			return 0, errors.Errorf("non-positive headway_secs for route '%s' (row %d)", row.Route, i+1)
		}

		schedules = append(schedules, model.RouteSchedule{
			Route:       row.Route,
			DirectionID: row.DirectionID,
			HeadwaySecs: row.HeadwaySecs,
		})
	}

	if err := writer.WriteRouteSchedules(schedules); err != nil {
		return 0, errors.Wrap(err, "writing route schedules")
	}
	return len(schedules), nil
}
