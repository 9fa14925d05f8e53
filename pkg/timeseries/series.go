// Package timeseries provides keyed, time-ordered series of observations.
package timeseries

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	// ErrEmpty is returned when a series would hold no points.
	ErrEmpty = errors.New("empty series")
	// ErrNonFinite is returned when a point carries NaN or ±Inf.
	ErrNonFinite = errors.New("non-finite value")
)

// Point is a single timestamped observation.
type Point struct {
	Time  time.Time
	Value float64
}

// Observation is a point tagged with the series key it belongs to,
// as produced by input readers.
type Observation struct {
	Key   string
	Time  time.Time
	Value float64
}

// Series is an ordered sequence of points for one key.
// Timestamps are strictly increasing.
type Series struct {
	Key    string
	Points []Point
}

// New builds a series from points in any order. Points are sorted by time
// and points sharing a timestamp are merged by summing their values.
func New(key string, points []Point) (*Series, error) {
	if len(points) == 0 {
		return nil, ErrEmpty
	}

	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	merged := sorted[:0]
	for _, p := range sorted {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			return nil, fmt.Errorf("%w at %s", ErrNonFinite, p.Time.Format(time.RFC3339))
		}
		if n := len(merged); n > 0 && merged[n-1].Time.Equal(p.Time) {
			merged[n-1].Value += p.Value
			continue
		}
		merged = append(merged, p)
	}

	return &Series{Key: key, Points: merged}, nil
}

// FromValues builds a series of daily points starting at start.
// Useful for synthetic data and tests.
func FromValues(key string, start time.Time, values []float64) (*Series, error) {
	points := make([]Point, len(values))
	for i, v := range values {
		points[i] = Point{Time: start.AddDate(0, 0, i), Value: v}
	}
	return New(key, points)
}

// Len returns the number of points.
func (s *Series) Len() int {
	return len(s.Points)
}

// Values returns a copy of the observation values in time order.
func (s *Series) Values() []float64 {
	values := make([]float64, len(s.Points))
	for i, p := range s.Points {
		values[i] = p.Value
	}
	return values
}

// Times returns the timestamps in order.
func (s *Series) Times() []time.Time {
	times := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		times[i] = p.Time
	}
	return times
}

// Last returns the most recent point. It panics on an empty series,
// which New never produces.
func (s *Series) Last() Point {
	return s.Points[len(s.Points)-1]
}

// Slice returns the sub-series [from, to). The points are shared.
func (s *Series) Slice(from, to int) *Series {
	return &Series{Key: s.Key, Points: s.Points[from:to]}
}

// Tail returns the last n points, or the whole series if it is shorter.
func (s *Series) Tail(n int) *Series {
	if n >= len(s.Points) {
		return s
	}
	return s.Slice(len(s.Points)-n, len(s.Points))
}

// FromObservations builds the series for key from observations, ignoring
// their own keys.
func FromObservations(key string, obs []Observation) (*Series, error) {
	points := make([]Point, len(obs))
	for i, o := range obs {
		points[i] = Point{Time: o.Time, Value: o.Value}
	}
	return New(key, points)
}

// GroupByKey splits observations into one series per key.
func GroupByKey(obs []Observation) (map[string]*Series, error) {
	buckets := make(map[string][]Point)
	for _, o := range obs {
		buckets[o.Key] = append(buckets[o.Key], Point{Time: o.Time, Value: o.Value})
	}

	out := make(map[string]*Series, len(buckets))
	for key, points := range buckets {
		s, err := New(key, points)
		if err != nil {
			return nil, fmt.Errorf("series %q: %w", key, err)
		}
		out[key] = s
	}
	return out, nil
}

// Filter returns the observations whose key equals key.
func Filter(obs []Observation, key string) []Observation {
	var out []Observation
	for _, o := range obs {
		if o.Key == key {
			out = append(out, o)
		}
	}
	return out
}
