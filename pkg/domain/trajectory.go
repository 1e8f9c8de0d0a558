package domain

import (
	"fmt"
	"time"
)

// TrackDocument is the index-paired trajectory form of a track: coordinate i
// belongs to datetime i. Datetimes are RFC 3339 in UTC.
type TrackDocument struct {
	Type          string      `json:"type"`
	CRS           CRS         `json:"crs,omitempty"`
	Datetimes     []string    `json:"datetimes"`
	Coordinates   [][]float64 `json:"coordinates"`
	Interpolation string      `json:"interpolation"`
}

// SeriesDocument is the index-paired form of a property series.
type SeriesDocument struct {
	Type          string    `json:"type"`
	Name          string    `json:"name,omitempty"`
	Datetimes     []string  `json:"datetimes"`
	Values        []any     `json:"values"`
	ValueType     ValueType `json:"value_type"`
	Interpolation string    `json:"interpolation"`
}

// GeometryDocument is the serialized form of a static geometry.
type GeometryDocument struct {
	Type        GeometryType `json:"type"`
	CRS         CRS          `json:"crs,omitempty"`
	Coordinates any          `json:"coordinates"`
}

func trackKind(mode InterpolationMode) string {
	if mode == InterpolationDiscrete {
		return "MovingGeomPoint"
	}
	return "MovingPoint"
}

func seriesKind(vt ValueType) string {
	if vt == ValueText {
		return "MovingText"
	}
	return "MovingFloat"
}

// SerializeTrack converts a track to its paired-array document. An empty
// track yields empty (non-nil) arrays.
func SerializeTrack(t TemporalGeometryTrack) TrackDocument {
	doc := TrackDocument{
		Type:          trackKind(t.Interpolation),
		CRS:           t.CRS,
		Datetimes:     make([]string, 0, len(t.Samples)),
		Coordinates:   make([][]float64, 0, len(t.Samples)),
		Interpolation: string(t.Interpolation),
	}
	for _, s := range t.Samples {
		doc.Datetimes = append(doc.Datetimes, s.Time.UTC().Format(time.RFC3339Nano))
		doc.Coordinates = append(doc.Coordinates, append([]float64(nil), s.Position...))
	}
	return doc
}

// DecodeTrackDocument rebuilds track samples from a paired-array document.
// It fails when the arrays disagree in length or a datetime does not parse.
func DecodeTrackDocument(doc TrackDocument) (TemporalGeometryTrack, error) {
	if len(doc.Datetimes) != len(doc.Coordinates) {
		return TemporalGeometryTrack{}, fmt.Errorf("trajectory document: %d datetimes but %d coordinates",
			len(doc.Datetimes), len(doc.Coordinates))
	}
	t := TemporalGeometryTrack{
		CRS:           doc.CRS,
		Interpolation: InterpolationMode(doc.Interpolation),
		Samples:       make([]TrackSample, 0, len(doc.Datetimes)),
	}
	for i, dt := range doc.Datetimes {
		ts, err := time.Parse(time.RFC3339Nano, dt)
		if err != nil {
			return TemporalGeometryTrack{}, fmt.Errorf("trajectory document: datetime %d: %w", i, err)
		}
		t.Samples = append(t.Samples, TrackSample{
			Time:     ts,
			Position: append(Position(nil), doc.Coordinates[i]...),
		})
	}
	if len(t.Samples) > 0 {
		t.NDims = t.Samples[0].Position.NDims()
	}
	return t, nil
}

// SerializeSeries converts a property series to its paired-array document.
func SerializeSeries(s TemporalPropertySeries) SeriesDocument {
	doc := SeriesDocument{
		Type:          seriesKind(s.ValueType),
		Name:          s.Name,
		Datetimes:     make([]string, 0, len(s.Values)),
		Values:        make([]any, 0, len(s.Values)),
		ValueType:     s.ValueType,
		Interpolation: string(s.Interpolation),
	}
	for _, v := range s.Values {
		doc.Datetimes = append(doc.Datetimes, v.Time.UTC().Format(time.RFC3339Nano))
		if s.ValueType == ValueText {
			doc.Values = append(doc.Values, v.Text)
		} else {
			doc.Values = append(doc.Values, v.Float)
		}
	}
	return doc
}

// SerializeStaticGeometry converts a feature's static geometry to its
// document form.
func SerializeStaticGeometry(g Geometry) GeometryDocument {
	doc := GeometryDocument{Type: g.Type, CRS: g.CRS}
	switch g.Type {
	case GeometryPoint:
		doc.Coordinates = append([]float64(nil), g.Point...)
	case GeometryPolygon:
		rings := make([][][]float64, 0, len(g.Polygon))
		for _, ring := range g.Polygon {
			r := make([][]float64, 0, len(ring))
			for _, pos := range ring {
				r = append(r, append([]float64(nil), pos...))
			}
			rings = append(rings, r)
		}
		doc.Coordinates = rings
	}
	return doc
}
