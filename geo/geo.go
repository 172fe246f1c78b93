package geo

import (
	"fmt"
	"math"

	"caravela.dev/busmetrics/model"
)

const earthRadiusM = 6371000

// Distance returns the great-circle (haversine) distance between two
// WGS84 points, in meters.
func Distance(aLat, aLon, bLat, bLon float64) float64 {
	aLatRad := aLat * math.Pi / 180
	aLonRad := aLon * math.Pi / 180
	bLatRad := bLat * math.Pi / 180
	bLonRad := bLon * math.Pi / 180
	deltaLat := aLatRad - bLatRad
	deltaLon := aLonRad - bLonRad

	a := math.Cos(aLatRad)*math.Cos(bLatRad)*math.Pow(math.Sin(deltaLon/2), 2) + math.Pow(math.Sin(deltaLat/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return c * earthRadiusM
}

// SplitIntoSegments walks a route polyline and cuts it into segments
// of roughly targetLengthM meters. A segment is flushed once its
// accumulated length reaches the target, or at the end of the
// polyline (so the final segment may be shorter). Concatenating the
// Geometry of all returned segments, in order, reproduces coords
// exactly.
func SplitIntoSegments(route string, directionID int8, coords []model.Point, targetLengthM float64) []model.SegmentDef {
	if len(coords) < 2 {
		return nil
	}
	if targetLengthM <= 0 {
		targetLengthM = 200
	}

	var segments []model.SegmentDef
	segCoords := []model.Point{coords[0]}
	segLength := 0.0

	flush := func() {
		first := segCoords[0]
		last := segCoords[len(segCoords)-1]
		mid := segCoords[len(segCoords)/2]
		segments = append(segments, model.SegmentDef{
			ID:           SegmentID(route, directionID, len(segments)),
			Route:        route,
			DirectionID:  directionID,
			SegmentIndex: len(segments),
			StartLat:     first.Lat,
			StartLon:     first.Lon,
			EndLat:       last.Lat,
			EndLon:       last.Lon,
			MidLat:       mid.Lat,
			MidLon:       mid.Lon,
			LengthM:      segLength,
			Geometry:     segCoords,
		})
	}

	for i := 1; i < len(coords); i++ {
		prev := coords[i-1]
		curr := coords[i]
		segLength += Distance(prev.Lat, prev.Lon, curr.Lat, curr.Lon)
		segCoords = append(segCoords, curr)

		if segLength >= targetLengthM && i < len(coords)-1 {
			flush()
			segCoords = []model.Point{}
			segLength = 0
		}
	}

	if len(segCoords) > 0 {
		flush()
	}

	return segments
}

// SegmentID builds the deterministic id for a segment within a
// route/direction.
func SegmentID(route string, directionID int8, index int) string {
	return fmt.Sprintf("%s-%d-%d", route, directionID, index)
}

// SnapToSegment returns the id of the segment whose midpoint is
// nearest to (lat, lon), restricted to segments on the given route.
// When directionID is known, only segments of that direction are
// considered. Returns false if no candidate midpoint lies within
// maxDistM meters. Ties resolve to the first segment in input order.
func SnapToSegment(lat, lon float64, route string, directionID int8, segments []model.SegmentDef, maxDistM float64) (string, bool) {
	bestID := ""
	bestDist := math.Inf(1)

	for _, seg := range segments {
		if seg.Route != route {
			continue
		}
		if directionID != model.DirectionUnknown && seg.DirectionID != directionID {
			continue
		}
		d := Distance(lat, lon, seg.MidLat, seg.MidLon)
		if d < bestDist {
			bestDist = d
			bestID = seg.ID
		}
	}

	if bestID == "" || bestDist > maxDistM {
		return "", false
	}
	return bestID, true
}

// NearestStop returns the stop on the given route nearest to
// (lat, lon), filtered by direction when known, or false if none lies
// within maxDistM meters.
func NearestStop(lat, lon float64, route string, directionID int8, stops []model.RouteStop, maxDistM float64) (model.RouteStop, bool) {
	var best model.RouteStop
	found := false
	bestDist := math.Inf(1)

	for _, stop := range stops {
		if stop.Route != route {
			continue
		}
		if directionID != model.DirectionUnknown && stop.DirectionID != directionID {
			continue
		}
		d := Distance(lat, lon, stop.Lat, stop.Lon)
		if d < bestDist {
			bestDist = d
			best = stop
			found = true
		}
	}

	if !found || bestDist > maxDistM {
		return model.RouteStop{}, false
	}
	return best, true
}
