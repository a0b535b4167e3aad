// Package distance provides travel distance/duration matrices between stops.
package distance

import (
	"context"
	"errors"
	"fmt"
	"math"

	"tripsched/internal/model"
)

// Matrix holds pairwise travel between origins (rows) and destinations (columns).
type Matrix struct {
	Meters  [][]float64 `json:"distances"`
	Seconds [][]float64 `json:"durations"`
}

// Validate checks the matrix is rows x cols with finite non-negative cells.
func (m Matrix) Validate(rows, cols int) error {
	if len(m.Meters) != rows || len(m.Seconds) != rows {
		return fmt.Errorf("matrix has %d/%d rows, want %d", len(m.Meters), len(m.Seconds), rows)
	}
	for i := 0; i < rows; i++ {
		if len(m.Meters[i]) != cols || len(m.Seconds[i]) != cols {
			return fmt.Errorf("matrix row %d has wrong width, want %d", i, cols)
		}
		for j := 0; j < cols; j++ {
			for _, v := range []float64{m.Meters[i][j], m.Seconds[i][j]} {
				if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
					return fmt.Errorf("matrix cell (%d,%d) is invalid: %v", i, j, v)
				}
			}
		}
	}
	return nil
}

// Source answers distances(origins, destinations) -> matrix | error.
type Source interface {
	Name() string
	Distances(ctx context.Context, origins, destinations []model.Location) (Matrix, error)
}

// ErrMissingCoordinates is returned by geometric sources when a stop has no point.
var ErrMissingCoordinates = errors.New("stop has no coordinates")

// GreatCircle is the local geometric source: haversine distance and a constant speed.
type GreatCircle struct {
	SpeedKph float64
}

func (g GreatCircle) Name() string { return "great_circle" }

func (g GreatCircle) Distances(ctx context.Context, origins, destinations []model.Location) (Matrix, error) {
	speed := g.SpeedKph
	if speed <= 0 {
		speed = 40
	}
	for _, l := range append(append([]model.Location(nil), origins...), destinations...) {
		if l.Point == nil {
			return Matrix{}, fmt.Errorf("%q: %w", l.Address, ErrMissingCoordinates)
		}
	}
	m := Matrix{Meters: make([][]float64, len(origins)), Seconds: make([][]float64, len(origins))}
	for i, o := range origins {
		m.Meters[i] = make([]float64, len(destinations))
		m.Seconds[i] = make([]float64, len(destinations))
		for j, d := range destinations {
			meters := HaversineMeters(o.Point.Lat, o.Point.Lng, d.Point.Lat, d.Point.Lng)
			m.Meters[i][j] = meters
			m.Seconds[i][j] = meters / (speed / 3.6)
		}
	}
	return m, nil
}

// HaversineMeters is the great-circle distance between two WGS84 points.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
