package domain

import (
	"math"
	"time"
)

// MotionProperty is a derived temporal property (velocity, distance,
// acceleration) expressed as paired datetime/value sequences.
type MotionProperty struct {
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	Form          string          `json:"form"`
	ValueSequence []ValueSequence `json:"valueSequence"`
}

// ValueSequence is one paired run of datetimes and numeric values.
type ValueSequence struct {
	Datetimes     []string  `json:"datetimes"`
	Values        []float64 `json:"values"`
	Interpolation string    `json:"interpolation"`
}

// Unit-of-measure forms for the derived motion properties.
const (
	formSpeed        = "MTS"
	formLength       = "MTR"
	formAcceleration = "MTS2"
)

func euclidean(a, b Position) float64 {
	dims := len(a)
	if len(b) < dims {
		dims = len(b)
	}
	var sum float64
	for i := 0; i < dims; i++ {
		d := b[i] - a[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// segmentSpeeds returns the per-sample speed sequence. The value at sample i
// is the mean speed over the segment ending at i; sample 0 reuses the first
// segment's speed so the sequence pairs one-to-one with the samples.
func segmentSpeeds(t TemporalGeometryTrack) []float64 {
	n := len(t.Samples)
	speeds := make([]float64, n)
	if n < 2 || t.Interpolation == InterpolationStep {
		return speeds
	}
	for i := 1; i < n; i++ {
		dt := t.Samples[i].Time.Sub(t.Samples[i-1].Time).Seconds()
		if dt > 0 {
			speeds[i] = euclidean(t.Samples[i-1].Position, t.Samples[i].Position) / dt
		}
	}
	speeds[0] = speeds[1]
	return speeds
}

func sampleDatetimes(samples []TrackSample) []string {
	out := make([]string, 0, len(samples))
	for _, s := range samples {
		out = append(out, s.Time.UTC().Format(time.RFC3339Nano))
	}
	return out
}

// TrackVelocity derives the speed sequence of a track. Step tracks hold
// position between samples, so their velocity is zero everywhere.
func TrackVelocity(t TemporalGeometryTrack) MotionProperty {
	return MotionProperty{
		Name: "velocity",
		Type: "TReal",
		Form: formSpeed,
		ValueSequence: []ValueSequence{{
			Datetimes:     sampleDatetimes(t.Samples),
			Values:        segmentSpeeds(t),
			Interpolation: string(t.Interpolation),
		}},
	}
}

// VelocityAt derives the speed at one instant as a single discrete value.
func VelocityAt(t TemporalGeometryTrack, at time.Time) (MotionProperty, bool) {
	v, ok := motionValueAt(t, at, segmentSpeeds(t))
	if !ok {
		return MotionProperty{}, false
	}
	return MotionProperty{
		Name: "velocity",
		Type: "TReal",
		Form: formSpeed,
		ValueSequence: []ValueSequence{{
			Datetimes:     []string{at.UTC().Format(time.RFC3339Nano)},
			Values:        []float64{v},
			Interpolation: string(InterpolationDiscrete),
		}},
	}, true
}

func cumulativeDistances(t TemporalGeometryTrack) []float64 {
	n := len(t.Samples)
	dist := make([]float64, n)
	for i := 1; i < n; i++ {
		dist[i] = dist[i-1] + euclidean(t.Samples[i-1].Position, t.Samples[i].Position)
	}
	return dist
}

// TrackDistance derives the cumulative travelled distance at each sample.
func TrackDistance(t TemporalGeometryTrack) MotionProperty {
	return MotionProperty{
		Name: "distance",
		Type: "TReal",
		Form: formLength,
		ValueSequence: []ValueSequence{{
			Datetimes:     sampleDatetimes(t.Samples),
			Values:        cumulativeDistances(t),
			Interpolation: string(t.Interpolation),
		}},
	}
}

// DistanceAt derives the cumulative distance at one instant.
func DistanceAt(t TemporalGeometryTrack, at time.Time) (MotionProperty, bool) {
	v, ok := motionValueAt(t, at, cumulativeDistances(t))
	if !ok {
		return MotionProperty{}, false
	}
	return MotionProperty{
		Name: "distance",
		Type: "TReal",
		Form: formLength,
		ValueSequence: []ValueSequence{{
			Datetimes:     []string{at.UTC().Format(time.RFC3339Nano)},
			Values:        []float64{v},
			Interpolation: string(InterpolationDiscrete),
		}},
	}, true
}

func segmentAccelerations(t TemporalGeometryTrack) []float64 {
	n := len(t.Samples)
	acc := make([]float64, n)
	speeds := segmentSpeeds(t)
	if n < 2 {
		return acc
	}
	for i := 1; i < n; i++ {
		dt := t.Samples[i].Time.Sub(t.Samples[i-1].Time).Seconds()
		if dt > 0 {
			acc[i] = (speeds[i] - speeds[i-1]) / dt
		}
	}
	return acc
}

// TrackAcceleration derives the acceleration sequence from successive
// segment speeds.
func TrackAcceleration(t TemporalGeometryTrack) MotionProperty {
	return MotionProperty{
		Name: "acceleration",
		Type: "TReal",
		Form: formAcceleration,
		ValueSequence: []ValueSequence{{
			Datetimes:     sampleDatetimes(t.Samples),
			Values:        segmentAccelerations(t),
			Interpolation: string(t.Interpolation),
		}},
	}
}

// AccelerationAt derives the acceleration at one instant.
func AccelerationAt(t TemporalGeometryTrack, at time.Time) (MotionProperty, bool) {
	v, ok := motionValueAt(t, at, segmentAccelerations(t))
	if !ok {
		return MotionProperty{}, false
	}
	return MotionProperty{
		Name: "acceleration",
		Type: "TReal",
		Form: formAcceleration,
		ValueSequence: []ValueSequence{{
			Datetimes:     []string{at.UTC().Format(time.RFC3339Nano)},
			Values:        []float64{v},
			Interpolation: string(InterpolationDiscrete),
		}},
	}, true
}

// motionValueAt picks the derived value governing the query instant: the
// value of the segment containing it. A query at the first timestamp yields
// the first sample's value, not the first segment's. It reports false
// outside the track's span.
func motionValueAt(t TemporalGeometryTrack, at time.Time, perSample []float64) (float64, bool) {
	n := len(t.Samples)
	if n == 0 || at.Before(t.Samples[0].Time) || at.After(t.Samples[n-1].Time) {
		return 0, false
	}
	if at.Equal(t.Samples[0].Time) {
		return perSample[0], true
	}
	for i := 1; i < n; i++ {
		if !at.After(t.Samples[i].Time) {
			return perSample[i], true
		}
	}
	return perSample[0], true
}
