package domain

import (
	"context"
	"time"
)

// Transaction exposes the structural mutations a persistence implementation
// must support within an atomic scope. Sample and value appends are not part
// of the transactional surface: they are serialized per track/series by the
// store so that appends to different tracks never block each other.
type Transaction interface {
	Snapshot() TransactionView
	CreateCollection(Collection) (Collection, error)
	UpdateCollectionProperties(id string, properties map[string]any) (Collection, error)
	DeleteCollection(id string) error
	CreateFeature(MovingFeature) (MovingFeature, error)
	DeleteFeature(collectionID, featureID string) error
	CreateTrack(TemporalGeometryTrack) (TemporalGeometryTrack, error)
	DeleteTrack(TrackRef) error
	CreateSeries(TemporalPropertySeries) (TemporalPropertySeries, error)
	DeleteSeries(SeriesRef) error
}

// TransactionView provides read-only access to a consistent snapshot of the
// stored hierarchy.
type TransactionView interface {
	ListCollections() []Collection
	FindCollection(id string) (Collection, bool)
	ListFeatures(collectionID string) []MovingFeature
	FindFeature(collectionID, featureID string) (MovingFeature, bool)
	ListTracks(collectionID, featureID string) []TemporalGeometryTrack
	FindTrack(TrackRef) (TemporalGeometryTrack, bool)
	ListSeries(collectionID, featureID string) []TemporalPropertySeries
	FindSeries(SeriesRef) (TemporalPropertySeries, bool)
}

// FeaturePage is one page of a stable, id-ordered feature listing.
type FeaturePage struct {
	Features       []MovingFeature `json:"features"`
	NextCursor     string          `json:"next_cursor,omitempty"`
	NumberMatched  int             `json:"number_matched"`
	NumberReturned int             `json:"number_returned"`
}

// PersistentStore is the abstraction over durable backends. Structural
// mutations run through RunInTransaction; appends and range reads address
// tracks and series directly by ownership path.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) error
	View(ctx context.Context, fn func(TransactionView) error) error

	GetCollection(id string) (Collection, bool)
	ListCollections() []Collection
	GetFeature(collectionID, featureID string) (MovingFeature, bool)
	ListFeaturePage(collectionID, cursor string, limit int) (FeaturePage, error)

	AppendSample(ctx context.Context, ref TrackRef, sample TrackSample) error
	ReadTrack(ctx context.Context, ref TrackRef, within *TimeRange) (TemporalGeometryTrack, error)
	InterpolatePosition(ctx context.Context, ref TrackRef, at time.Time) (Position, bool, error)

	AppendValue(ctx context.Context, ref SeriesRef, value SeriesValue) error
	ReadSeries(ctx context.Context, ref SeriesRef, within *TimeRange) (TemporalPropertySeries, error)
	InterpolateValue(ctx context.Context, ref SeriesRef, at time.Time) (float64, bool, error)
}
