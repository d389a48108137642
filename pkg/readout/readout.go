// Package readout formats control values for the dashboard.
package readout

import (
	"fmt"
	"math"
	"strconv"
)

// Reading is one labelled value shown on the dashboard.
type Reading struct {
	Control string  `json:"control"`
	Value   float64 `json:"value"`
	Display string  `json:"display"`
}

var labels = map[string]string{
	"throttle":  "Throttle",
	"direction": "Direction",
	"steering":  "Steering",
}

// For builds the reading for a channel. Steering is shown in whole degrees;
// the value itself is never rounded.
func For(channel string, value float64) Reading {
	label, ok := labels[channel]
	if !ok {
		label = channel
	}

	var text string
	if channel == "steering" {
		deg := math.Round(value)
		if deg == 0 {
			deg = 0 // no "-0"
		}
		text = fmt.Sprintf("%s deg", strconv.FormatFloat(deg, 'f', 0, 64))
	} else {
		text = strconv.FormatFloat(value, 'f', -1, 64)
	}

	return Reading{
		Control: channel,
		Value:   value,
		Display: label + ": " + text,
	}
}

// Scale describes the speedometer gauge.
type Scale struct {
	Min      float64   `json:"min"`
	Max      float64   `json:"max"`
	Segments int       `json:"segments"`
	Stops    []float64 `json:"stops"`
}

// MaxSegments bounds the number of gauge segments a scale may have.
const MaxSegments = 1000

// NewScale places a stop every step from min, forcing the last stop to max.
// There are ceil((max-min)/step) segments, at most MaxSegments.
func NewScale(min, max, step float64) (Scale, error) {
	for _, v := range []float64{min, max, step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Scale{}, fmt.Errorf("invalid speedometer scale [%g,%g] step %g: values must be finite", min, max, step)
		}
	}
	if max <= min || step <= 0 {
		return Scale{}, fmt.Errorf("invalid speedometer scale [%g,%g] step %g", min, max, step)
	}

	ratio := math.Ceil((max - min) / step)
	if ratio > MaxSegments {
		return Scale{}, fmt.Errorf("invalid speedometer scale [%g,%g] step %g: more than %d segments", min, max, step, MaxSegments)
	}
	segments := int(ratio)
	stops := make([]float64, segments+1)
	for i := range stops {
		stops[i] = min + float64(i)*step
	}
	stops[segments] = max

	return Scale{Min: min, Max: max, Segments: segments, Stops: stops}, nil
}

// Needle clamps a value onto the gauge.
func (s Scale) Needle(v float64) float64 {
	return math.Min(math.Max(v, s.Min), s.Max)
}
