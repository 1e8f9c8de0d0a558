package domain

import (
	"sort"
	"time"
)

// PositionAt computes the track's position at the query time per the track's
// interpolation mode. It reports false when the query falls outside
// [firstTimestamp, lastTimestamp], when the track is empty, or when a
// discrete track has no sample at exactly that time.
func (t TemporalGeometryTrack) PositionAt(at time.Time) (Position, bool) {
	n := len(t.Samples)
	if n == 0 {
		return nil, false
	}
	if at.Before(t.Samples[0].Time) || at.After(t.Samples[n-1].Time) {
		return nil, false
	}
	// Index of the first sample not before the query time.
	idx := sort.Search(n, func(i int) bool { return !t.Samples[i].Time.Before(at) })
	if idx < n && t.Samples[idx].Time.Equal(at) {
		return t.Samples[idx].Position.Clone(), true
	}
	switch t.Interpolation {
	case InterpolationDiscrete:
		return nil, false
	case InterpolationStep:
		return t.Samples[idx-1].Position.Clone(), true
	default:
		return lerpPosition(t.Samples[idx-1], t.Samples[idx], at), true
	}
}

func lerpPosition(a, b TrackSample, at time.Time) Position {
	f := fraction(a.Time, b.Time, at)
	dims := len(a.Position)
	if len(b.Position) < dims {
		dims = len(b.Position)
	}
	out := make(Position, dims)
	for i := 0; i < dims; i++ {
		out[i] = a.Position[i] + (b.Position[i]-a.Position[i])*f
	}
	return out
}

// FloatAt computes a float series' value at the query time per the series'
// interpolation mode. Text series never interpolate. The same boundary rules
// apply as for PositionAt.
func (s TemporalPropertySeries) FloatAt(at time.Time) (float64, bool) {
	if s.ValueType != ValueFloat {
		return 0, false
	}
	n := len(s.Values)
	if n == 0 {
		return 0, false
	}
	if at.Before(s.Values[0].Time) || at.After(s.Values[n-1].Time) {
		return 0, false
	}
	idx := sort.Search(n, func(i int) bool { return !s.Values[i].Time.Before(at) })
	if idx < n && s.Values[idx].Time.Equal(at) {
		return s.Values[idx].Float, true
	}
	switch s.Interpolation {
	case InterpolationDiscrete:
		return 0, false
	case InterpolationStep:
		return s.Values[idx-1].Float, true
	default:
		prev, next := s.Values[idx-1], s.Values[idx]
		f := fraction(prev.Time, next.Time, at)
		return prev.Float + (next.Float-prev.Float)*f, true
	}
}

func fraction(t0, t1, at time.Time) float64 {
	span := t1.Sub(t0)
	if span <= 0 {
		return 0
	}
	return float64(at.Sub(t0)) / float64(span)
}

// FilterSamples returns the subsequence of samples whose timestamps fall in
// the range. A nil range keeps the full track; an empty intersection yields
// an empty (non-nil) slice.
func FilterSamples(samples []TrackSample, within *TimeRange) []TrackSample {
	if within == nil {
		return append([]TrackSample(nil), samples...)
	}
	out := make([]TrackSample, 0, len(samples))
	for _, s := range samples {
		if within.Contains(s.Time) {
			out = append(out, s)
		}
	}
	return out
}

// FilterValues mirrors FilterSamples for series values.
func FilterValues(values []SeriesValue, within *TimeRange) []SeriesValue {
	if within == nil {
		return append([]SeriesValue(nil), values...)
	}
	out := make([]SeriesValue, 0, len(values))
	for _, v := range values {
		if within.Contains(v.Time) {
			out = append(out, v)
		}
	}
	return out
}

// ClipTrack restricts a track to the given range. For linear tracks whose
// samples straddle a range boundary, a virtual boundary sample is
// interpolated at the exact bound so the clipped track still covers it.
func ClipTrack(t TemporalGeometryTrack, within TimeRange) TemporalGeometryTrack {
	out := t
	out.Samples = FilterSamples(t.Samples, &within)
	if t.Interpolation != InterpolationLinear {
		return out
	}
	if !within.Start.IsZero() {
		if len(out.Samples) == 0 || out.Samples[0].Time.After(within.Start) {
			if p, ok := t.PositionAt(within.Start); ok {
				out.Samples = append([]TrackSample{{Time: within.Start, Position: p}}, out.Samples...)
			}
		}
	}
	if !within.End.IsZero() {
		if len(out.Samples) == 0 || out.Samples[len(out.Samples)-1].Time.Before(within.End) {
			if p, ok := t.PositionAt(within.End); ok {
				out.Samples = append(out.Samples, TrackSample{Time: within.End, Position: p})
			}
		}
	}
	return out
}
