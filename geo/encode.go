package geo

import (
	"fmt"
	"strconv"
	"strings"

	"caravela.dev/busmetrics/model"
)

// EncodePoints serializes a polyline as "lat lon;lat lon;...". This
// is the format the weekly geometry job writes for segment geometry.
func EncodePoints(points []model.Point) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = strconv.FormatFloat(p.Lat, 'f', -1, 64) + " " + strconv.FormatFloat(p.Lon, 'f', -1, 64)
	}
	return strings.Join(parts, ";")
}

// DecodePoints parses a polyline serialized by EncodePoints.
func DecodePoints(encoded string) ([]model.Point, error) {
	if encoded == "" {
		return nil, nil
	}

	parts := strings.Split(encoded, ";")
	points := make([]model.Point, 0, len(parts))
	for _, part := range parts {
		fields := strings.Fields(part)
		if len(fields) != 2 {
			return nil, fmt.Errorf("malformed point %q", part)
		}
		lat, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing lat %q: %w", fields[0], err)
		}
		lon, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing lon %q: %w", fields[1], err)
		}
		points = append(points, model.Point{Lat: lat, Lon: lon})
	}
	return points, nil
}
