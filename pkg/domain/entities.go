// Package domain defines the core persistent entities, value types, and
// persistence contracts used by mfcore.
package domain

import (
	"strings"
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in persistence buckets and errors.
const (
	// EntityCollection identifies a moving-feature collection record.
	EntityCollection EntityType = "collection"
	// EntityFeature identifies a moving feature record.
	EntityFeature EntityType = "moving_feature"
	// EntityTrack identifies a temporal geometry track record.
	EntityTrack EntityType = "temporal_geometry"
	// EntitySeries identifies a temporal property series record.
	EntitySeries EntityType = "temporal_property"
)

// InterpolationMode is the rule used to compute a position or value at a
// time between two stored samples.
type InterpolationMode string

// Canonical interpolation modes carried on tracks and series.
const (
	// InterpolationLinear interpolates linearly between bracketing samples.
	InterpolationLinear InterpolationMode = "Linear"
	// InterpolationStep holds the most recent sample value.
	InterpolationStep InterpolationMode = "Step"
	// InterpolationDiscrete defines values only at stored timestamps.
	InterpolationDiscrete InterpolationMode = "Discrete"
)

// ValueType declares the payload type of a temporal property series.
type ValueType string

// Series value types. A series keeps one type for its whole lifetime.
const (
	ValueFloat ValueType = "float"
	ValueText  ValueType = "text"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Collection is the root of ownership: it groups moving features and carries
// an arbitrary properties document.
type Collection struct {
	Base
	Properties map[string]any `json:"properties"`
}

// Interval is a closed time interval. Begin never exceeds End.
type Interval struct {
	Begin time.Time `json:"begin"`
	End   time.Time `json:"end"`
}

// Union widens the interval to cover other.
func (iv Interval) Union(other Interval) Interval {
	out := iv
	if other.Begin.Before(out.Begin) {
		out.Begin = other.Begin
	}
	if other.End.After(out.End) {
		out.End = other.End
	}
	return out
}

// MovingFeature is an entity whose position and/or attributes are tracked
// over time. It is exclusively owned by its collection.
type MovingFeature struct {
	Base
	CollectionID string         `json:"collection_id"`
	Geometry     *Geometry      `json:"geometry,omitempty"`
	Properties   map[string]any `json:"properties"`
	Lifespan     *Interval      `json:"lifespan,omitempty"`
}

// TrackSample is one time-stamped position of a track.
type TrackSample struct {
	Time     time.Time `json:"time"`
	Position Position  `json:"position"`
}

// TemporalGeometryTrack is one time-ordered sequence of positions describing
// part of a feature's motion history. Samples are strictly increasing in
// time; the CRS and interpolation mode are fixed for the track's lifetime,
// and the coordinate dimensionality is fixed by the first appended sample.
type TemporalGeometryTrack struct {
	Base
	CollectionID  string            `json:"collection_id"`
	FeatureID     string            `json:"feature_id"`
	CRS           CRS               `json:"crs"`
	Interpolation InterpolationMode `json:"interpolation"`
	NDims         int               `json:"ndims"`
	Samples       []TrackSample     `json:"samples"`
}

// Span returns the closed interval covered by the track's samples.
func (t TemporalGeometryTrack) Span() (Interval, bool) {
	if len(t.Samples) == 0 {
		return Interval{}, false
	}
	return Interval{Begin: t.Samples[0].Time, End: t.Samples[len(t.Samples)-1].Time}, true
}

// SeriesValue is one time-stamped value of a property series. Exactly one of
// Float or Text is meaningful, per the owning series' ValueType. The empty
// string is not a text value: a text series rejects it as a type mismatch, so
// text payloads must be non-empty.
type SeriesValue struct {
	Time  time.Time `json:"time"`
	Float float64   `json:"float,omitempty"`
	Text  string    `json:"text,omitempty"`
}

// TemporalPropertySeries is one time-ordered sequence of scalar or text
// values for a named property of a feature. A feature holds at most one
// series per name; the value type is fixed per series.
type TemporalPropertySeries struct {
	Base
	CollectionID  string            `json:"collection_id"`
	FeatureID     string            `json:"feature_id"`
	Name          string            `json:"name"`
	ValueType     ValueType         `json:"value_type"`
	Interpolation InterpolationMode `json:"interpolation"`
	Values        []SeriesValue     `json:"values"`
}

// Span returns the closed interval covered by the series' values.
func (s TemporalPropertySeries) Span() (Interval, bool) {
	if len(s.Values) == 0 {
		return Interval{}, false
	}
	return Interval{Begin: s.Values[0].Time, End: s.Values[len(s.Values)-1].Time}, true
}

// TrackRef addresses a track by its full ownership path.
type TrackRef struct {
	CollectionID string
	FeatureID    string
	TrackID      string
}

// SeriesRef addresses a property series by its full ownership path.
type SeriesRef struct {
	CollectionID string
	FeatureID    string
	Name         string
}

// TimeRange is a closed query interval. A zero Start or End leaves that
// bound open.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within the range (bounds inclusive).
func (r TimeRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// NormalizeID canonicalizes an identifier for lookup. The original schema
// referenced ownership keys with inconsistent casing, so identity is
// case-insensitive at the store boundary.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
