package domain

import (
	"testing"
	"time"
)

func sampleTrack(mode InterpolationMode) TemporalGeometryTrack {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return TemporalGeometryTrack{
		Interpolation: mode,
		NDims:         2,
		Samples: []TrackSample{
			{Time: base, Position: Position{0, 0}},
			{Time: base.Add(10 * time.Second), Position: Position{10, 0}},
			{Time: base.Add(20 * time.Second), Position: Position{10, 20}},
		},
	}
}

func TestPositionAtLinearMidpoint(t *testing.T) {
	track := sampleTrack(InterpolationLinear)
	at := track.Samples[0].Time.Add(5 * time.Second)
	pos, ok := track.PositionAt(at)
	if !ok {
		t.Fatalf("expected position at midpoint")
	}
	if pos[0] != 5 || pos[1] != 0 {
		t.Fatalf("expected (5,0), got (%v,%v)", pos[0], pos[1])
	}
}

func TestPositionAtExactSampleBypassesMode(t *testing.T) {
	for _, mode := range []InterpolationMode{InterpolationLinear, InterpolationStep, InterpolationDiscrete} {
		track := sampleTrack(mode)
		pos, ok := track.PositionAt(track.Samples[1].Time)
		if !ok {
			t.Fatalf("%s: expected position at stored timestamp", mode)
		}
		if pos[0] != 10 || pos[1] != 0 {
			t.Fatalf("%s: expected stored sample, got (%v,%v)", mode, pos[0], pos[1])
		}
	}
}

func TestPositionAtOutsideSpan(t *testing.T) {
	track := sampleTrack(InterpolationLinear)
	if _, ok := track.PositionAt(track.Samples[0].Time.Add(-time.Second)); ok {
		t.Fatalf("expected no position before first sample")
	}
	if _, ok := track.PositionAt(track.Samples[2].Time.Add(time.Second)); ok {
		t.Fatalf("expected no position after last sample")
	}
}

func TestPositionAtStepHoldsPrevious(t *testing.T) {
	track := sampleTrack(InterpolationStep)
	pos, ok := track.PositionAt(track.Samples[0].Time.Add(7 * time.Second))
	if !ok {
		t.Fatalf("expected step position")
	}
	if pos[0] != 0 || pos[1] != 0 {
		t.Fatalf("expected held first sample, got (%v,%v)", pos[0], pos[1])
	}
}

func TestPositionAtDiscreteBetweenSamples(t *testing.T) {
	track := sampleTrack(InterpolationDiscrete)
	if _, ok := track.PositionAt(track.Samples[0].Time.Add(time.Second)); ok {
		t.Fatalf("expected no discrete position between samples")
	}
}

func TestPositionAtEmptyTrack(t *testing.T) {
	track := TemporalGeometryTrack{Interpolation: InterpolationLinear}
	if _, ok := track.PositionAt(time.Now()); ok {
		t.Fatalf("expected no position for empty track")
	}
}

func TestFloatAtLinearAndStep(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	series := TemporalPropertySeries{
		ValueType:     ValueFloat,
		Interpolation: InterpolationLinear,
		Values: []SeriesValue{
			{Time: base, Float: 10},
			{Time: base.Add(10 * time.Second), Float: 20},
		},
	}
	v, ok := series.FloatAt(base.Add(5 * time.Second))
	if !ok || v != 15 {
		t.Fatalf("expected 15, got %v (ok=%v)", v, ok)
	}
	series.Interpolation = InterpolationStep
	v, ok = series.FloatAt(base.Add(5 * time.Second))
	if !ok || v != 10 {
		t.Fatalf("expected held 10, got %v (ok=%v)", v, ok)
	}
	if _, ok := series.FloatAt(base.Add(time.Minute)); ok {
		t.Fatalf("expected no value beyond last timestamp")
	}
}

func TestFloatAtRejectsTextSeries(t *testing.T) {
	series := TemporalPropertySeries{ValueType: ValueText, Values: []SeriesValue{{Time: time.Now(), Text: "go"}}}
	if _, ok := series.FloatAt(time.Now()); ok {
		t.Fatalf("text series must not interpolate")
	}
}

func TestFilterSamplesOpenBounds(t *testing.T) {
	track := sampleTrack(InterpolationLinear)
	from := track.Samples[1].Time
	got := FilterSamples(track.Samples, &TimeRange{Start: from})
	if len(got) != 2 {
		t.Fatalf("expected 2 samples from open-ended range, got %d", len(got))
	}
	got = FilterSamples(track.Samples, nil)
	if len(got) != 3 {
		t.Fatalf("expected full copy for nil range, got %d", len(got))
	}
	got = FilterSamples(track.Samples, &TimeRange{Start: from.Add(time.Hour)})
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", got)
	}
}

func TestClipTrackAddsBoundarySamples(t *testing.T) {
	track := sampleTrack(InterpolationLinear)
	base := track.Samples[0].Time
	clipped := ClipTrack(track, TimeRange{Start: base.Add(5 * time.Second), End: base.Add(15 * time.Second)})
	if len(clipped.Samples) != 3 {
		t.Fatalf("expected boundary samples plus interior, got %d", len(clipped.Samples))
	}
	first, last := clipped.Samples[0], clipped.Samples[2]
	if !first.Time.Equal(base.Add(5 * time.Second)) || first.Position[0] != 5 {
		t.Fatalf("unexpected leading boundary sample: %+v", first)
	}
	if !last.Time.Equal(base.Add(15 * time.Second)) || last.Position[1] != 10 {
		t.Fatalf("unexpected trailing boundary sample: %+v", last)
	}
}

func TestClipTrackDiscreteKeepsStoredOnly(t *testing.T) {
	track := sampleTrack(InterpolationDiscrete)
	base := track.Samples[0].Time
	clipped := ClipTrack(track, TimeRange{Start: base.Add(time.Second), End: base.Add(15 * time.Second)})
	if len(clipped.Samples) != 1 {
		t.Fatalf("expected single stored sample, got %d", len(clipped.Samples))
	}
}
