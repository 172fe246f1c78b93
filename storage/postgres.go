package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"caravela.dev/busmetrics/geo"
	"caravela.dev/busmetrics/model"
)

// Rows per COPY batch when writing derived tables. Bounds the size of
// any single statement on large days.
const PSQLDerivedBatchSize = 500

type PSQLStorage struct {
	db *sql.DB
}

// Creates a new Postgres Storage using the provided connection string.
//
// If clearDB is true, all tables are dropped and recreated on
// startup. You probably only want this for testing.
func NewPSQLStorage(connStr string, clearDB bool) (*PSQLStorage, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if clearDB {
		_, err = db.Exec(`
DROP TABLE IF EXISTS position;
DROP TABLE IF EXISTS segment_def;
DROP TABLE IF EXISTS route_stop;
DROP TABLE IF EXISTS route_schedule;
DROP TABLE IF EXISTS trip;
DROP TABLE IF EXISTS segment_speed_hourly;
DROP TABLE IF EXISTS route_performance_daily;
DROP TABLE IF EXISTS stop_headway_daily;
DROP TABLE IF EXISTS network_summary_daily;
`)
		if err != nil {
			return nil, fmt.Errorf("clearing db: %w", err)
		}
	}

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS position (
    id BIGSERIAL PRIMARY KEY,
    vehicle_id TEXT NOT NULL,
    vehicle_num TEXT NOT NULL,
    route TEXT NOT NULL,
    trip_id TEXT NOT NULL,
    direction_id SMALLINT NOT NULL,
    lat DOUBLE PRECISION NOT NULL,
    lon DOUBLE PRECISION NOT NULL,
    speed DOUBLE PRECISION NOT NULL,
    heading DOUBLE PRECISION NOT NULL,
    recorded_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS position_recorded_at ON position (recorded_at, id);

CREATE TABLE IF NOT EXISTS segment_def (
    id TEXT PRIMARY KEY,
    route TEXT NOT NULL,
    direction_id SMALLINT NOT NULL,
    segment_index INTEGER NOT NULL,
    start_lat DOUBLE PRECISION NOT NULL,
    start_lon DOUBLE PRECISION NOT NULL,
    end_lat DOUBLE PRECISION NOT NULL,
    end_lon DOUBLE PRECISION NOT NULL,
    mid_lat DOUBLE PRECISION NOT NULL,
    mid_lon DOUBLE PRECISION NOT NULL,
    length_m DOUBLE PRECISION NOT NULL,
    geometry TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS route_stop (
    route TEXT NOT NULL,
    direction_id SMALLINT NOT NULL,
    stop_sequence INTEGER NOT NULL,
    stop_id TEXT NOT NULL,
    stop_name TEXT NOT NULL,
    lat DOUBLE PRECISION NOT NULL,
    lon DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (route, direction_id, stop_sequence)
);

CREATE TABLE IF NOT EXISTS route_schedule (
    route TEXT NOT NULL,
    direction_id SMALLINT NOT NULL,
    headway_secs DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (route, direction_id)
);

CREATE TABLE IF NOT EXISTS trip (
    date TEXT NOT NULL,
    vehicle_id TEXT NOT NULL,
    vehicle_num TEXT NOT NULL,
    route TEXT NOT NULL,
    trip_id TEXT NOT NULL,
    direction_id SMALLINT NOT NULL,
    started_at TIMESTAMPTZ NOT NULL,
    ended_at TIMESTAMPTZ NOT NULL,
    runtime_secs INTEGER NOT NULL,
    positions INTEGER NOT NULL,
    avg_speed DOUBLE PRECISION NOT NULL
);

CREATE INDEX IF NOT EXISTS trip_date ON trip (date);

CREATE TABLE IF NOT EXISTS segment_speed_hourly (
    date TEXT NOT NULL,
    segment_id TEXT NOT NULL,
    route TEXT NOT NULL,
    direction_id SMALLINT NOT NULL,
    hour_start TIMESTAMPTZ NOT NULL,
    avg_speed DOUBLE PRECISION NOT NULL,
    median_speed DOUBLE PRECISION NOT NULL,
    p10_speed DOUBLE PRECISION NOT NULL,
    p90_speed DOUBLE PRECISION NOT NULL,
    sample_count INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS segment_speed_hourly_date ON segment_speed_hourly (date);

CREATE TABLE IF NOT EXISTS route_performance_daily (
    date TEXT NOT NULL,
    route TEXT NOT NULL,
    direction_id SMALLINT NOT NULL,
    trips_observed INTEGER NOT NULL,
    avg_headway_secs INTEGER NOT NULL,
    headway_adherence_pct DOUBLE PRECISION NOT NULL,
    excess_wait_time_secs INTEGER NOT NULL,
    avg_runtime_secs INTEGER NOT NULL,
    avg_commercial_speed DOUBLE PRECISION NOT NULL,
    bunching_pct DOUBLE PRECISION NOT NULL,
    gapping_pct DOUBLE PRECISION NOT NULL,
    grade TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS route_performance_daily_date ON route_performance_daily (date);

CREATE TABLE IF NOT EXISTS stop_headway_daily (
    date TEXT NOT NULL,
    route TEXT NOT NULL,
    direction_id SMALLINT NOT NULL,
    stop_id TEXT NOT NULL,
    stop_name TEXT NOT NULL,
    stop_sequence INTEGER NOT NULL,
    avg_headway_secs INTEGER NOT NULL,
    headway_std_dev DOUBLE PRECISION NOT NULL,
    observations INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS stop_headway_daily_date ON stop_headway_daily (date);

CREATE TABLE IF NOT EXISTS network_summary_daily (
    date TEXT PRIMARY KEY,
    active_vehicles INTEGER NOT NULL,
    total_trips INTEGER NOT NULL,
    avg_commercial_speed DOUBLE PRECISION NOT NULL,
    avg_excess_wait_time DOUBLE PRECISION NOT NULL,
    worst_route TEXT NOT NULL,
    worst_route_ewt DOUBLE PRECISION NOT NULL,
    positions_collected INTEGER NOT NULL
);`)
	if err != nil {
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &PSQLStorage{db: db}, nil
}

func (s *PSQLStorage) WritePositions(points []model.PositionPoint) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(pq.CopyIn(
		"position",
		"vehicle_id", "vehicle_num", "route", "trip_id", "direction_id",
		"lat", "lon", "speed", "heading", "recorded_at",
	))
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		_, err = stmt.Exec(
			p.VehicleID, p.VehicleNum, p.Route, p.TripID, p.DirectionID,
			p.Lat, p.Lon, p.Speed, p.Heading, p.RecordedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("COPY position: %w", err)
		}
	}

	if _, err := stmt.Exec(); err != nil {
		return fmt.Errorf("executing statement: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

func (s *PSQLStorage) ListPositions(start, end time.Time, cursor PositionCursor, limit int) ([]model.PositionPoint, error) {
	rows, err := s.db.Query(`
SELECT
    id, vehicle_id, vehicle_num, route, trip_id, direction_id,
    lat, lon, speed, heading, recorded_at
FROM position
WHERE recorded_at >= $1 AND recorded_at < $2
  AND (recorded_at > $3 OR (recorded_at = $3 AND id > $4))
ORDER BY recorded_at, id
LIMIT $5`,
		start.UTC(), end.UTC(), cursor.RecordedAt.UTC(), cursor.ID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing positions: %w", err)
	}
	defer rows.Close()

	var points []model.PositionPoint
	for rows.Next() {
		var p model.PositionPoint
		err := rows.Scan(
			&p.ID, &p.VehicleID, &p.VehicleNum, &p.Route, &p.TripID, &p.DirectionID,
			&p.Lat, &p.Lon, &p.Speed, &p.Heading, &p.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning position: %w", err)
		}
		p.RecordedAt = p.RecordedAt.UTC()
		points = append(points, p)
	}

	return points, rows.Err()
}

// replaceReference clears table and re-inserts via COPY within one
// transaction, mirroring the weekly refresh replace semantics.
func (s *PSQLStorage) replaceReference(table string, columns []string, count int, args func(i int) []interface{}) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
		return fmt.Errorf("clearing %s: %w", table, err)
	}

	stmt, err := tx.Prepare(pq.CopyIn(table, columns...))
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < count; i++ {
		if _, err := stmt.Exec(args(i)...); err != nil {
			return fmt.Errorf("COPY %s: %w", table, err)
		}
	}

	if _, err := stmt.Exec(); err != nil {
		return fmt.Errorf("executing statement: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

func (s *PSQLStorage) WriteSegments(segments []model.SegmentDef) error {
	columns := []string{
		"id", "route", "direction_id", "segment_index",
		"start_lat", "start_lon", "end_lat", "end_lon", "mid_lat", "mid_lon",
		"length_m", "geometry",
	}
	return s.replaceReference("segment_def", columns, len(segments), func(i int) []interface{} {
		seg := segments[i]
		return []interface{}{
			seg.ID, seg.Route, seg.DirectionID, seg.SegmentIndex,
			seg.StartLat, seg.StartLon, seg.EndLat, seg.EndLon, seg.MidLat, seg.MidLon,
			seg.LengthM, geo.EncodePoints(seg.Geometry),
		}
	})
}

func (s *PSQLStorage) WriteRouteStops(stops []model.RouteStop) error {
	columns := []string{"route", "direction_id", "stop_sequence", "stop_id", "stop_name", "lat", "lon"}
	return s.replaceReference("route_stop", columns, len(stops), func(i int) []interface{} {
		stop := stops[i]
		return []interface{}{
			stop.Route, stop.DirectionID, stop.StopSequence,
			stop.StopID, stop.StopName, stop.Lat, stop.Lon,
		}
	})
}

func (s *PSQLStorage) WriteRouteSchedules(schedules []model.RouteSchedule) error {
	columns := []string{"route", "direction_id", "headway_secs"}
	return s.replaceReference("route_schedule", columns, len(schedules), func(i int) []interface{} {
		sched := schedules[i]
		return []interface{}{sched.Route, sched.DirectionID, sched.HeadwaySecs}
	})
}

func (s *PSQLStorage) Segments() ([]model.SegmentDef, error) {
	rows, err := s.db.Query(`
SELECT
    id, route, direction_id, segment_index,
    start_lat, start_lon, end_lat, end_lon, mid_lat, mid_lon,
    length_m, geometry
FROM segment_def
ORDER BY route, direction_id, segment_index`)
	if err != nil {
		return nil, fmt.Errorf("listing segments: %w", err)
	}
	defer rows.Close()

	var segments []model.SegmentDef
	for rows.Next() {
		var seg model.SegmentDef
		var geometry string
		err := rows.Scan(
			&seg.ID, &seg.Route, &seg.DirectionID, &seg.SegmentIndex,
			&seg.StartLat, &seg.StartLon, &seg.EndLat, &seg.EndLon, &seg.MidLat, &seg.MidLon,
			&seg.LengthM, &geometry,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning segment: %w", err)
		}
		seg.Geometry, err = geo.DecodePoints(geometry)
		if err != nil {
			return nil, fmt.Errorf("decoding geometry for %s: %w", seg.ID, err)
		}
		segments = append(segments, seg)
	}

	return segments, rows.Err()
}

func (s *PSQLStorage) RouteStops() ([]model.RouteStop, error) {
	rows, err := s.db.Query(`
SELECT route, direction_id, stop_sequence, stop_id, stop_name, lat, lon
FROM route_stop
ORDER BY route, direction_id, stop_sequence`)
	if err != nil {
		return nil, fmt.Errorf("listing route stops: %w", err)
	}
	defer rows.Close()

	var stops []model.RouteStop
	for rows.Next() {
		var stop model.RouteStop
		err := rows.Scan(
			&stop.Route, &stop.DirectionID, &stop.StopSequence,
			&stop.StopID, &stop.StopName, &stop.Lat, &stop.Lon,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning route stop: %w", err)
		}
		stops = append(stops, stop)
	}

	return stops, rows.Err()
}

func (s *PSQLStorage) RouteSchedules() ([]model.RouteSchedule, error) {
	rows, err := s.db.Query(`
SELECT route, direction_id, headway_secs
FROM route_schedule
ORDER BY route, direction_id`)
	if err != nil {
		return nil, fmt.Errorf("listing route schedules: %w", err)
	}
	defer rows.Close()

	var schedules []model.RouteSchedule
	for rows.Next() {
		var sched model.RouteSchedule
		if err := rows.Scan(&sched.Route, &sched.DirectionID, &sched.HeadwaySecs); err != nil {
			return nil, fmt.Errorf("scanning route schedule: %w", err)
		}
		schedules = append(schedules, sched)
	}

	return schedules, rows.Err()
}

// replaceByDate deletes all rows for date from table, then COPYs the
// new rows in batches of PSQLDerivedBatchSize, all within one
// transaction.
func (s *PSQLStorage) replaceByDate(table string, date string, columns []string, count int, args func(i int) []interface{}) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM `+table+` WHERE date = $1`, date); err != nil {
		return fmt.Errorf("deleting %s rows: %w", table, err)
	}

	for offset := 0; offset < count; offset += PSQLDerivedBatchSize {
		batchEnd := offset + PSQLDerivedBatchSize
		if batchEnd > count {
			batchEnd = count
		}

		stmt, err := tx.Prepare(pq.CopyIn(table, columns...))
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}

		for i := offset; i < batchEnd; i++ {
			if _, err := stmt.Exec(args(i)...); err != nil {
				stmt.Close()
				return fmt.Errorf("COPY %s: %w", table, err)
			}
		}

		if _, err := stmt.Exec(); err != nil {
			stmt.Close()
			return fmt.Errorf("executing statement: %w", err)
		}
		if err := stmt.Close(); err != nil {
			return fmt.Errorf("closing statement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

func (s *PSQLStorage) ReplaceTrips(date string, trips []model.Trip) error {
	columns := []string{
		"date", "vehicle_id", "vehicle_num", "route", "trip_id", "direction_id",
		"started_at", "ended_at", "runtime_secs", "positions", "avg_speed",
	}
	return s.replaceByDate("trip", date, columns, len(trips), func(i int) []interface{} {
		t := trips[i]
		return []interface{}{
			date, t.VehicleID, t.VehicleNum, t.Route, t.TripID, t.DirectionID,
			t.StartedAt.UTC(), t.EndedAt.UTC(), t.RuntimeSecs, t.Positions, t.AvgSpeed,
		}
	})
}

func (s *PSQLStorage) ReplaceSegmentSpeeds(date string, rows []model.SegmentSpeedHourly) error {
	columns := []string{
		"date", "segment_id", "route", "direction_id", "hour_start",
		"avg_speed", "median_speed", "p10_speed", "p90_speed", "sample_count",
	}
	return s.replaceByDate("segment_speed_hourly", date, columns, len(rows), func(i int) []interface{} {
		r := rows[i]
		return []interface{}{
			date, r.SegmentID, r.Route, r.DirectionID, r.HourStart.UTC(),
			r.AvgSpeed, r.MedianSpeed, r.P10Speed, r.P90Speed, r.SampleCount,
		}
	})
}

func (s *PSQLStorage) ReplaceRoutePerformance(date string, rows []model.RoutePerformanceDaily) error {
	columns := []string{
		"date", "route", "direction_id", "trips_observed", "avg_headway_secs",
		"headway_adherence_pct", "excess_wait_time_secs", "avg_runtime_secs",
		"avg_commercial_speed", "bunching_pct", "gapping_pct", "grade",
	}
	return s.replaceByDate("route_performance_daily", date, columns, len(rows), func(i int) []interface{} {
		r := rows[i]
		return []interface{}{
			date, r.Route, r.DirectionID, r.TripsObserved, r.AvgHeadwaySecs,
			r.HeadwayAdherencePct, r.ExcessWaitTimeSecs, r.AvgRuntimeSecs,
			r.AvgCommercialSpeed, r.BunchingPct, r.GappingPct, r.Grade,
		}
	})
}

func (s *PSQLStorage) ReplaceStopHeadways(date string, rows []model.StopHeadwayDaily) error {
	columns := []string{
		"date", "route", "direction_id", "stop_id", "stop_name", "stop_sequence",
		"avg_headway_secs", "headway_std_dev", "observations",
	}
	return s.replaceByDate("stop_headway_daily", date, columns, len(rows), func(i int) []interface{} {
		r := rows[i]
		return []interface{}{
			date, r.Route, r.DirectionID, r.StopID, r.StopName, r.StopSequence,
			r.AvgHeadwaySecs, r.HeadwayStdDev, r.Observations,
		}
	})
}

func (s *PSQLStorage) ReplaceNetworkSummary(date string, row *model.NetworkSummaryDaily) error {
	columns := []string{
		"date", "active_vehicles", "total_trips", "avg_commercial_speed",
		"avg_excess_wait_time", "worst_route", "worst_route_ewt", "positions_collected",
	}
	count := 0
	if row != nil {
		count = 1
	}
	return s.replaceByDate("network_summary_daily", date, columns, count, func(i int) []interface{} {
		return []interface{}{
			date, row.ActiveVehicles, row.TotalTrips, row.AvgCommercialSpeed,
			row.AvgExcessWaitTime, row.WorstRoute, row.WorstRouteEwt, row.PositionsCollected,
		}
	})
}

func (s *PSQLStorage) TripsByDate(date string) ([]model.Trip, error) {
	rows, err := s.db.Query(`
SELECT vehicle_id, vehicle_num, route, trip_id, direction_id,
    started_at, ended_at, runtime_secs, positions, avg_speed
FROM trip
WHERE date = $1
ORDER BY route, direction_id, vehicle_id, started_at`, date)
	if err != nil {
		return nil, fmt.Errorf("listing trips: %w", err)
	}
	defer rows.Close()

	var trips []model.Trip
	for rows.Next() {
		var t model.Trip
		err := rows.Scan(
			&t.VehicleID, &t.VehicleNum, &t.Route, &t.TripID, &t.DirectionID,
			&t.StartedAt, &t.EndedAt, &t.RuntimeSecs, &t.Positions, &t.AvgSpeed,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning trip: %w", err)
		}
		t.StartedAt = t.StartedAt.UTC()
		t.EndedAt = t.EndedAt.UTC()
		trips = append(trips, t)
	}

	return trips, rows.Err()
}

func (s *PSQLStorage) SegmentSpeedsByDate(date string) ([]model.SegmentSpeedHourly, error) {
	rows, err := s.db.Query(`
SELECT segment_id, route, direction_id, hour_start,
    avg_speed, median_speed, p10_speed, p90_speed, sample_count
FROM segment_speed_hourly
WHERE date = $1
ORDER BY segment_id, hour_start`, date)
	if err != nil {
		return nil, fmt.Errorf("listing segment speeds: %w", err)
	}
	defer rows.Close()

	var result []model.SegmentSpeedHourly
	for rows.Next() {
		var r model.SegmentSpeedHourly
		err := rows.Scan(
			&r.SegmentID, &r.Route, &r.DirectionID, &r.HourStart,
			&r.AvgSpeed, &r.MedianSpeed, &r.P10Speed, &r.P90Speed, &r.SampleCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning segment speed: %w", err)
		}
		r.HourStart = r.HourStart.UTC()
		result = append(result, r)
	}

	return result, rows.Err()
}

func (s *PSQLStorage) RoutePerformanceByDate(date string) ([]model.RoutePerformanceDaily, error) {
	rows, err := s.db.Query(`
SELECT date, route, direction_id, trips_observed, avg_headway_secs,
    headway_adherence_pct, excess_wait_time_secs, avg_runtime_secs,
    avg_commercial_speed, bunching_pct, gapping_pct, grade
FROM route_performance_daily
WHERE date = $1
ORDER BY route, direction_id`, date)
	if err != nil {
		return nil, fmt.Errorf("listing route performance: %w", err)
	}
	defer rows.Close()

	var result []model.RoutePerformanceDaily
	for rows.Next() {
		var r model.RoutePerformanceDaily
		err := rows.Scan(
			&r.Date, &r.Route, &r.DirectionID, &r.TripsObserved, &r.AvgHeadwaySecs,
			&r.HeadwayAdherencePct, &r.ExcessWaitTimeSecs, &r.AvgRuntimeSecs,
			&r.AvgCommercialSpeed, &r.BunchingPct, &r.GappingPct, &r.Grade,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning route performance: %w", err)
		}
		result = append(result, r)
	}

	return result, rows.Err()
}

func (s *PSQLStorage) StopHeadwaysByDate(date string) ([]model.StopHeadwayDaily, error) {
	rows, err := s.db.Query(`
SELECT date, route, direction_id, stop_id, stop_name, stop_sequence,
    avg_headway_secs, headway_std_dev, observations
FROM stop_headway_daily
WHERE date = $1
ORDER BY route, direction_id, stop_sequence`, date)
	if err != nil {
		return nil, fmt.Errorf("listing stop headways: %w", err)
	}
	defer rows.Close()

	var result []model.StopHeadwayDaily
	for rows.Next() {
		var r model.StopHeadwayDaily
		err := rows.Scan(
			&r.Date, &r.Route, &r.DirectionID, &r.StopID, &r.StopName, &r.StopSequence,
			&r.AvgHeadwaySecs, &r.HeadwayStdDev, &r.Observations,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning stop headway: %w", err)
		}
		result = append(result, r)
	}

	return result, rows.Err()
}

func (s *PSQLStorage) NetworkSummaryByDate(date string) (*model.NetworkSummaryDaily, error) {
	row := s.db.QueryRow(`
SELECT date, active_vehicles, total_trips, avg_commercial_speed,
    avg_excess_wait_time, worst_route, worst_route_ewt, positions_collected
FROM network_summary_daily
WHERE date = $1`, date)

	var r model.NetworkSummaryDaily
	err := row.Scan(
		&r.Date, &r.ActiveVehicles, &r.TotalTrips, &r.AvgCommercialSpeed,
		&r.AvgExcessWaitTime, &r.WorstRoute, &r.WorstRouteEwt, &r.PositionsCollected,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning network summary: %w", err)
	}

	return &r, nil
}

func (s *PSQLStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close db: %w", err)
	}
	return nil
}
