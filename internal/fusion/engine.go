/*
Package fusion smooths successive raw fixes into a position estimate and
derives heading and travelled distance from consecutive raw fixes.
*/
package fusion

import (
	"github.com/dumacp/go-logs/pkg/logs"
)

// State is the fused position.
type State struct {
	Estimate   [2]float64    `json:"pos"`
	Covariance [2][2]float64 `json:"cov"`
	// Bearing in degrees, from the previous raw fix to the last one.
	Bearing float64 `json:"bearing"`
	// Distance in km, from the previous raw fix to the last one.
	Distance float64 `json:"distance"`
	Previous *LatLon `json:"previous,omitempty"`
}

// Engine owns one filter and the fused state. It is not safe for concurrent
// use.
type Engine struct {
	filter Filter
	state  State
}

// NewEngine creates an Engine over f. A nil f uses a Kalman filter with the
// default noise values.
func NewEngine(f Filter) *Engine {
	if f == nil {
		f = NewKalman(DefaultProcessNoise, DefaultMeasurementNoise)
	}
	return &Engine{
		filter: f,
		state: State{
			Estimate:   f.Estimate(),
			Covariance: f.Covariance(),
		},
	}
}

// Observe folds one fix into the state. lat or lon nil means the fix carried
// no coordinates: the state is left untouched and the next positioned fix is
// measured against the last known one. A repeated position, as GGA and RMC of
// the same epoch, leaves bearing and distance as they were.
func (e *Engine) Observe(lat, lon *float64) State {
	var current *LatLon
	if lat != nil && lon != nil {
		current = &LatLon{Lat: *lat, Lon: *lon}
	}

	if current == nil {
		return e.State()
	}
	if e.state.Previous != nil && *e.state.Previous != *current {
		e.state.Bearing = Bearing(*e.state.Previous, *current)
		e.state.Distance = Distance(*e.state.Previous, *current)
	}
	e.state.Previous = current

	if err := e.filter.Update([2]float64{current.Lat, current.Lon}); err != nil {
		logs.LogWarn.Printf("filter update: %s", err)
		return e.State()
	}
	e.state.Estimate = e.filter.Estimate()
	e.state.Covariance = e.filter.Covariance()
	return e.State()
}

// State returns a copy of the current state.
func (e *Engine) State() State {
	s := e.state
	if e.state.Previous != nil {
		p := *e.state.Previous
		s.Previous = &p
	}
	return s
}
