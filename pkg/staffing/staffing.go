// Package staffing turns demand forecasts into headcount.
package staffing

import "math"

// Planner sizes staff for a fixed per-person daily capacity.
type Planner struct {
	CapacityPerDay float64
}

// New returns a Planner. A non-positive capacity falls back to 40.
func New(capacityPerDay float64) Planner {
	if capacityPerDay <= 0 {
		capacityPerDay = 40
	}
	return Planner{CapacityPerDay: capacityPerDay}
}

// Headcount returns ceil(demand / capacity). Negative demand needs no staff.
func (p Planner) Headcount(demand float64) int {
	if demand <= 0 || math.IsNaN(demand) {
		return 0
	}
	return int(math.Ceil(demand / p.CapacityPerDay))
}

// Plan returns the headcount for each forecast value.
func (p Planner) Plan(demand []float64) []int {
	out := make([]int, len(demand))
	for i, d := range demand {
		out[i] = p.Headcount(d)
	}
	return out
}
