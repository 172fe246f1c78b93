package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"caravela.dev/busmetrics/geo"
	"caravela.dev/busmetrics/model"
)

type SQLiteConfig struct {
	OnDisk    bool
	Directory string
}

type SQLiteStorage struct {
	SQLiteConfig

	db *sql.DB
}

func NewSQLiteStorage(cfg ...SQLiteConfig) (*SQLiteStorage, error) {
	onDisk := false
	directory := ""
	if len(cfg) > 0 {
		onDisk = cfg[0].OnDisk
		directory = cfg[0].Directory
	}

	sourceName := ":memory:"
	if onDisk {
		sourceName = directory + "/busmetrics.db"
	}

	db, err := sql.Open("sqlite3", sourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS position (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    vehicle_id TEXT NOT NULL,
    vehicle_num TEXT NOT NULL,
    route TEXT NOT NULL,
    trip_id TEXT NOT NULL,
    direction_id INTEGER NOT NULL,
    lat REAL NOT NULL,
    lon REAL NOT NULL,
    speed REAL NOT NULL,
    heading REAL NOT NULL,
    recorded_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS position_recorded_at ON position (recorded_at, id);

CREATE TABLE IF NOT EXISTS segment_def (
    id TEXT PRIMARY KEY,
    route TEXT NOT NULL,
    direction_id INTEGER NOT NULL,
    segment_index INTEGER NOT NULL,
    start_lat REAL NOT NULL,
    start_lon REAL NOT NULL,
    end_lat REAL NOT NULL,
    end_lon REAL NOT NULL,
    mid_lat REAL NOT NULL,
    mid_lon REAL NOT NULL,
    length_m REAL NOT NULL,
    geometry TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS route_stop (
    route TEXT NOT NULL,
    direction_id INTEGER NOT NULL,
    stop_sequence INTEGER NOT NULL,
    stop_id TEXT NOT NULL,
    stop_name TEXT NOT NULL,
    lat REAL NOT NULL,
    lon REAL NOT NULL,
PRIMARY KEY (route, direction_id, stop_sequence)
);

CREATE TABLE IF NOT EXISTS route_schedule (
    route TEXT NOT NULL,
    direction_id INTEGER NOT NULL,
    headway_secs REAL NOT NULL,
PRIMARY KEY (route, direction_id)
);

CREATE TABLE IF NOT EXISTS trip (
    date TEXT NOT NULL,
    vehicle_id TEXT NOT NULL,
    vehicle_num TEXT NOT NULL,
    route TEXT NOT NULL,
    trip_id TEXT NOT NULL,
    direction_id INTEGER NOT NULL,
    started_at TIMESTAMP NOT NULL,
    ended_at TIMESTAMP NOT NULL,
    runtime_secs INTEGER NOT NULL,
    positions INTEGER NOT NULL,
    avg_speed REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS trip_date ON trip (date);

CREATE TABLE IF NOT EXISTS segment_speed_hourly (
    date TEXT NOT NULL,
    segment_id TEXT NOT NULL,
    route TEXT NOT NULL,
    direction_id INTEGER NOT NULL,
    hour_start TIMESTAMP NOT NULL,
    avg_speed REAL NOT NULL,
    median_speed REAL NOT NULL,
    p10_speed REAL NOT NULL,
    p90_speed REAL NOT NULL,
    sample_count INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS segment_speed_hourly_date ON segment_speed_hourly (date);

CREATE TABLE IF NOT EXISTS route_performance_daily (
    date TEXT NOT NULL,
    route TEXT NOT NULL,
    direction_id INTEGER NOT NULL,
    trips_observed INTEGER NOT NULL,
    avg_headway_secs INTEGER NOT NULL,
    headway_adherence_pct REAL NOT NULL,
    excess_wait_time_secs INTEGER NOT NULL,
    avg_runtime_secs INTEGER NOT NULL,
    avg_commercial_speed REAL NOT NULL,
    bunching_pct REAL NOT NULL,
    gapping_pct REAL NOT NULL,
    grade TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS route_performance_daily_date ON route_performance_daily (date);

CREATE TABLE IF NOT EXISTS stop_headway_daily (
    date TEXT NOT NULL,
    route TEXT NOT NULL,
    direction_id INTEGER NOT NULL,
    stop_id TEXT NOT NULL,
    stop_name TEXT NOT NULL,
    stop_sequence INTEGER NOT NULL,
    avg_headway_secs INTEGER NOT NULL,
    headway_std_dev REAL NOT NULL,
    observations INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS stop_headway_daily_date ON stop_headway_daily (date);

CREATE TABLE IF NOT EXISTS network_summary_daily (
    date TEXT PRIMARY KEY,
    active_vehicles INTEGER NOT NULL,
    total_trips INTEGER NOT NULL,
    avg_commercial_speed REAL NOT NULL,
    avg_excess_wait_time REAL NOT NULL,
    worst_route TEXT NOT NULL,
    worst_route_ewt REAL NOT NULL,
    positions_collected INTEGER NOT NULL
);`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &SQLiteStorage{
		SQLiteConfig: SQLiteConfig{
			OnDisk:    onDisk,
			Directory: directory,
		},
		db: db,
	}, nil
}

func (s *SQLiteStorage) WritePositions(points []model.PositionPoint) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
INSERT INTO position (
    vehicle_id, vehicle_num, route, trip_id, direction_id,
    lat, lon, speed, heading, recorded_at
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
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
			return fmt.Errorf("inserting position: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) ListPositions(start, end time.Time, cursor PositionCursor, limit int) ([]model.PositionPoint, error) {
	rows, err := s.db.Query(`
SELECT
    id, vehicle_id, vehicle_num, route, trip_id, direction_id,
    lat, lon, speed, heading, recorded_at
FROM position
WHERE recorded_at >= ? AND recorded_at < ?
  AND (recorded_at > ? OR (recorded_at = ? AND id > ?))
ORDER BY recorded_at, id
LIMIT ?`,
		start.UTC(), end.UTC(), cursor.RecordedAt.UTC(), cursor.RecordedAt.UTC(), cursor.ID, limit,
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

func (s *SQLiteStorage) WriteSegments(segments []model.SegmentDef) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM segment_def`); err != nil {
		return fmt.Errorf("clearing segments: %w", err)
	}

	stmt, err := tx.Prepare(`
INSERT INTO segment_def (
    id, route, direction_id, segment_index,
    start_lat, start_lon, end_lat, end_lon, mid_lat, mid_lon,
    length_m, geometry
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, seg := range segments {
		_, err = stmt.Exec(
			seg.ID, seg.Route, seg.DirectionID, seg.SegmentIndex,
			seg.StartLat, seg.StartLon, seg.EndLat, seg.EndLon, seg.MidLat, seg.MidLon,
			seg.LengthM, geo.EncodePoints(seg.Geometry),
		)
		if err != nil {
			return fmt.Errorf("inserting segment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) WriteRouteStops(stops []model.RouteStop) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM route_stop`); err != nil {
		return fmt.Errorf("clearing route stops: %w", err)
	}

	stmt, err := tx.Prepare(`
INSERT INTO route_stop (route, direction_id, stop_sequence, stop_id, stop_name, lat, lon)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, stop := range stops {
		_, err = stmt.Exec(
			stop.Route, stop.DirectionID, stop.StopSequence,
			stop.StopID, stop.StopName, stop.Lat, stop.Lon,
		)
		if err != nil {
			return fmt.Errorf("inserting route stop: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) WriteRouteSchedules(schedules []model.RouteSchedule) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM route_schedule`); err != nil {
		return fmt.Errorf("clearing route schedules: %w", err)
	}

	stmt, err := tx.Prepare(`
INSERT INTO route_schedule (route, direction_id, headway_secs)
VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, sched := range schedules {
		if _, err := stmt.Exec(sched.Route, sched.DirectionID, sched.HeadwaySecs); err != nil {
			return fmt.Errorf("inserting route schedule: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Segments() ([]model.SegmentDef, error) {
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

func (s *SQLiteStorage) RouteStops() ([]model.RouteStop, error) {
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

func (s *SQLiteStorage) RouteSchedules() ([]model.RouteSchedule, error) {
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

// replaceByDate deletes all rows for date from table, then runs
// insert over every row index in batches inside one transaction.
func (s *SQLiteStorage) replaceByDate(table, date string, count int, insert func(tx *sql.Tx, i int) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM `+table+` WHERE date = ?`, date); err != nil {
		return fmt.Errorf("deleting %s rows: %w", table, err)
	}

	for i := 0; i < count; i++ {
		if err := insert(tx, i); err != nil {
			return fmt.Errorf("inserting into %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) ReplaceTrips(date string, trips []model.Trip) error {
	return s.replaceByDate("trip", date, len(trips), func(tx *sql.Tx, i int) error {
		t := trips[i]
		_, err := tx.Exec(`
INSERT INTO trip (
    date, vehicle_id, vehicle_num, route, trip_id, direction_id,
    started_at, ended_at, runtime_secs, positions, avg_speed
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			date, t.VehicleID, t.VehicleNum, t.Route, t.TripID, t.DirectionID,
			t.StartedAt.UTC(), t.EndedAt.UTC(), t.RuntimeSecs, t.Positions, t.AvgSpeed,
		)
		return err
	})
}

func (s *SQLiteStorage) ReplaceSegmentSpeeds(date string, rows []model.SegmentSpeedHourly) error {
	return s.replaceByDate("segment_speed_hourly", date, len(rows), func(tx *sql.Tx, i int) error {
		r := rows[i]
		_, err := tx.Exec(`
INSERT INTO segment_speed_hourly (
    date, segment_id, route, direction_id, hour_start,
    avg_speed, median_speed, p10_speed, p90_speed, sample_count
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			date, r.SegmentID, r.Route, r.DirectionID, r.HourStart.UTC(),
			r.AvgSpeed, r.MedianSpeed, r.P10Speed, r.P90Speed, r.SampleCount,
		)
		return err
	})
}

func (s *SQLiteStorage) ReplaceRoutePerformance(date string, rows []model.RoutePerformanceDaily) error {
	return s.replaceByDate("route_performance_daily", date, len(rows), func(tx *sql.Tx, i int) error {
		r := rows[i]
		_, err := tx.Exec(`
INSERT INTO route_performance_daily (
    date, route, direction_id, trips_observed, avg_headway_secs,
    headway_adherence_pct, excess_wait_time_secs, avg_runtime_secs,
    avg_commercial_speed, bunching_pct, gapping_pct, grade
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			date, r.Route, r.DirectionID, r.TripsObserved, r.AvgHeadwaySecs,
			r.HeadwayAdherencePct, r.ExcessWaitTimeSecs, r.AvgRuntimeSecs,
			r.AvgCommercialSpeed, r.BunchingPct, r.GappingPct, r.Grade,
		)
		return err
	})
}

func (s *SQLiteStorage) ReplaceStopHeadways(date string, rows []model.StopHeadwayDaily) error {
	return s.replaceByDate("stop_headway_daily", date, len(rows), func(tx *sql.Tx, i int) error {
		r := rows[i]
		_, err := tx.Exec(`
INSERT INTO stop_headway_daily (
    date, route, direction_id, stop_id, stop_name, stop_sequence,
    avg_headway_secs, headway_std_dev, observations
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			date, r.Route, r.DirectionID, r.StopID, r.StopName, r.StopSequence,
			r.AvgHeadwaySecs, r.HeadwayStdDev, r.Observations,
		)
		return err
	})
}

func (s *SQLiteStorage) ReplaceNetworkSummary(date string, row *model.NetworkSummaryDaily) error {
	count := 0
	if row != nil {
		count = 1
	}
	return s.replaceByDate("network_summary_daily", date, count, func(tx *sql.Tx, i int) error {
		_, err := tx.Exec(`
INSERT INTO network_summary_daily (
    date, active_vehicles, total_trips, avg_commercial_speed,
    avg_excess_wait_time, worst_route, worst_route_ewt, positions_collected
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			date, row.ActiveVehicles, row.TotalTrips, row.AvgCommercialSpeed,
			row.AvgExcessWaitTime, row.WorstRoute, row.WorstRouteEwt, row.PositionsCollected,
		)
		return err
	})
}

func (s *SQLiteStorage) TripsByDate(date string) ([]model.Trip, error) {
	rows, err := s.db.Query(`
SELECT vehicle_id, vehicle_num, route, trip_id, direction_id,
    started_at, ended_at, runtime_secs, positions, avg_speed
FROM trip
WHERE date = ?
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

func (s *SQLiteStorage) SegmentSpeedsByDate(date string) ([]model.SegmentSpeedHourly, error) {
	rows, err := s.db.Query(`
SELECT segment_id, route, direction_id, hour_start,
    avg_speed, median_speed, p10_speed, p90_speed, sample_count
FROM segment_speed_hourly
WHERE date = ?
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

func (s *SQLiteStorage) RoutePerformanceByDate(date string) ([]model.RoutePerformanceDaily, error) {
	rows, err := s.db.Query(`
SELECT date, route, direction_id, trips_observed, avg_headway_secs,
    headway_adherence_pct, excess_wait_time_secs, avg_runtime_secs,
    avg_commercial_speed, bunching_pct, gapping_pct, grade
FROM route_performance_daily
WHERE date = ?
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

func (s *SQLiteStorage) StopHeadwaysByDate(date string) ([]model.StopHeadwayDaily, error) {
	rows, err := s.db.Query(`
SELECT date, route, direction_id, stop_id, stop_name, stop_sequence,
    avg_headway_secs, headway_std_dev, observations
FROM stop_headway_daily
WHERE date = ?
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

func (s *SQLiteStorage) NetworkSummaryByDate(date string) (*model.NetworkSummaryDaily, error) {
	row := s.db.QueryRow(`
SELECT date, active_vehicles, total_trips, avg_commercial_speed,
    avg_excess_wait_time, worst_route, worst_route_ewt, positions_collected
FROM network_summary_daily
WHERE date = ?`, date)

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

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
