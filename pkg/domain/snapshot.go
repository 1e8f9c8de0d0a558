package domain

// CollectionSnapshot is the full serializable state of one collection and
// everything it owns. Durable backends persist one snapshot per collection.
type CollectionSnapshot struct {
	Collection Collection        `json:"collection"`
	Features   []FeatureSnapshot `json:"features"`
}

// FeatureSnapshot is the serializable state of one moving feature with its
// tracks and property series.
type FeatureSnapshot struct {
	Feature MovingFeature            `json:"feature"`
	Tracks  []TemporalGeometryTrack  `json:"tracks,omitempty"`
	Series  []TemporalPropertySeries `json:"series,omitempty"`
}
