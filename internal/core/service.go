// Package core exposes the transactional service operations over moving
// feature collections, their temporal geometry tracks, and temporal property
// series.
package core

import (
	"context"
	"time"

	"mfcore/internal/infra/persistence/memory"
	"mfcore/pkg/domain"
)

// Service exposes higher-level transactional operations for the moving
// features schema. Every operation is traced, measured, and audited.
type Service struct {
	store   PersistentStore
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		audit:   noopAuditRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store.
func NewInMemoryService(opts ...ServiceOption) *Service {
	return NewService(memory.NewStore(), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// CreateCollection persists a new collection.
func (s *Service) CreateCollection(ctx context.Context, collection Collection) (Collection, error) {
	ctx, finish := s.instrument(ctx, "create_collection", collection.ID)
	var created Collection
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreateCollection(collection)
		return err
	})
	finish(err)
	return created, err
}

// UpdateCollectionProperties replaces a collection's properties document.
func (s *Service) UpdateCollectionProperties(ctx context.Context, id string, properties map[string]any) (Collection, error) {
	ctx, finish := s.instrument(ctx, "update_collection", id)
	var updated Collection
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateCollectionProperties(id, properties)
		return err
	})
	finish(err)
	return updated, err
}

// DeleteCollection removes a collection and everything it owns.
func (s *Service) DeleteCollection(ctx context.Context, id string) error {
	ctx, finish := s.instrument(ctx, "delete_collection", id)
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteCollection(id)
	})
	finish(err)
	return err
}

// GetCollection retrieves one collection.
func (s *Service) GetCollection(ctx context.Context, id string) (Collection, error) {
	_, finish := s.instrument(ctx, "get_collection", id)
	collection, ok := s.store.GetCollection(id)
	var err error
	if !ok {
		err = domain.NotFoundError{Entity: EntityCollection, ID: id}
	}
	finish(err)
	return collection, err
}

// ListCollections returns all collections ordered by id.
func (s *Service) ListCollections(ctx context.Context) []Collection {
	_, finish := s.instrument(ctx, "list_collections", "")
	out := s.store.ListCollections()
	finish(nil)
	return out
}

// CreateFeature persists a new moving feature under its collection.
func (s *Service) CreateFeature(ctx context.Context, feature MovingFeature) (MovingFeature, error) {
	ctx, finish := s.instrument(ctx, "create_feature", feature.ID)
	var created MovingFeature
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreateFeature(feature)
		return err
	})
	finish(err)
	return created, err
}

// DeleteFeature removes a feature and its tracks and series.
func (s *Service) DeleteFeature(ctx context.Context, collectionID, featureID string) error {
	ctx, finish := s.instrument(ctx, "delete_feature", featureID)
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteFeature(collectionID, featureID)
	})
	finish(err)
	return err
}

// GetFeature retrieves one feature by its ownership path.
func (s *Service) GetFeature(ctx context.Context, collectionID, featureID string) (MovingFeature, error) {
	_, finish := s.instrument(ctx, "get_feature", featureID)
	feature, ok := s.store.GetFeature(collectionID, featureID)
	var err error
	if !ok {
		err = domain.NotFoundError{Entity: EntityFeature, ID: featureID}
	}
	finish(err)
	return feature, err
}

// ListFeatures returns one id-ordered page of a collection's features.
func (s *Service) ListFeatures(ctx context.Context, collectionID, cursor string, limit int) (FeaturePage, error) {
	_, finish := s.instrument(ctx, "list_features", collectionID)
	page, err := s.store.ListFeaturePage(collectionID, cursor, limit)
	finish(err)
	return page, err
}

// CreateTrack persists a new temporal geometry track under its feature.
func (s *Service) CreateTrack(ctx context.Context, track TemporalGeometryTrack) (TemporalGeometryTrack, error) {
	ctx, finish := s.instrument(ctx, "create_track", track.ID)
	var created TemporalGeometryTrack
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreateTrack(track)
		return err
	})
	finish(err)
	return created, err
}

// DeleteTrack removes one track.
func (s *Service) DeleteTrack(ctx context.Context, ref TrackRef) error {
	ctx, finish := s.instrument(ctx, "delete_track", ref.TrackID)
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteTrack(ref)
	})
	finish(err)
	return err
}

// ListTracks returns a feature's tracks ordered by id.
func (s *Service) ListTracks(ctx context.Context, collectionID, featureID string) ([]TemporalGeometryTrack, error) {
	ctx, finish := s.instrument(ctx, "list_tracks", featureID)
	var out []TemporalGeometryTrack
	err := s.store.View(ctx, func(view TransactionView) error {
		if _, ok := view.FindFeature(collectionID, featureID); !ok {
			return domain.NotFoundError{Entity: EntityFeature, ID: featureID}
		}
		out = view.ListTracks(collectionID, featureID)
		return nil
	})
	finish(err)
	return out, err
}

// AppendSample appends one sample to a track. Appends to the same track are
// serialized; appends to different tracks proceed concurrently.
func (s *Service) AppendSample(ctx context.Context, ref TrackRef, sample TrackSample) error {
	ctx, finish := s.instrument(ctx, "append_sample", ref.TrackID)
	err := s.store.AppendSample(ctx, ref, sample)
	finish(err)
	return err
}

// ReadTrack returns a copy of a track. With a time range, linear tracks gain
// interpolated boundary samples so the clipped track still covers the bounds.
func (s *Service) ReadTrack(ctx context.Context, ref TrackRef, within *TimeRange) (TemporalGeometryTrack, error) {
	ctx, finish := s.instrument(ctx, "read_track", ref.TrackID)
	track, err := s.store.ReadTrack(ctx, ref, nil)
	if err == nil && within != nil {
		track = domain.ClipTrack(track, *within)
	}
	finish(err)
	return track, err
}

// InterpolatePosition evaluates a track's position at one instant. The
// boolean reports whether the instant falls within the track's span.
func (s *Service) InterpolatePosition(ctx context.Context, ref TrackRef, at time.Time) (domain.Position, bool, error) {
	ctx, finish := s.instrument(ctx, "interpolate_position", ref.TrackID)
	pos, ok, err := s.store.InterpolatePosition(ctx, ref, at)
	finish(err)
	return pos, ok, err
}

// TrackDocument serializes a track to its paired datetime/coordinate form.
func (s *Service) TrackDocument(ctx context.Context, ref TrackRef, within *TimeRange) (domain.TrackDocument, error) {
	ctx, finish := s.instrument(ctx, "track_document", ref.TrackID)
	track, err := s.store.ReadTrack(ctx, ref, within)
	var doc domain.TrackDocument
	if err == nil {
		doc = domain.SerializeTrack(track)
	}
	finish(err)
	return doc, err
}

// TrackVelocity derives the speed sequence of a track, or the speed at one
// instant when at is non-nil.
func (s *Service) TrackVelocity(ctx context.Context, ref TrackRef, at *time.Time) (domain.MotionProperty, bool, error) {
	ctx, finish := s.instrument(ctx, "track_velocity", ref.TrackID)
	track, err := s.store.ReadTrack(ctx, ref, nil)
	if err != nil {
		finish(err)
		return domain.MotionProperty{}, false, err
	}
	finish(nil)
	if at != nil {
		prop, ok := domain.VelocityAt(track, *at)
		return prop, ok, nil
	}
	return domain.TrackVelocity(track), true, nil
}

// TrackDistance derives the cumulative travelled distance of a track.
func (s *Service) TrackDistance(ctx context.Context, ref TrackRef, at *time.Time) (domain.MotionProperty, bool, error) {
	ctx, finish := s.instrument(ctx, "track_distance", ref.TrackID)
	track, err := s.store.ReadTrack(ctx, ref, nil)
	if err != nil {
		finish(err)
		return domain.MotionProperty{}, false, err
	}
	finish(nil)
	if at != nil {
		prop, ok := domain.DistanceAt(track, *at)
		return prop, ok, nil
	}
	return domain.TrackDistance(track), true, nil
}

// TrackAcceleration derives the acceleration sequence of a track.
func (s *Service) TrackAcceleration(ctx context.Context, ref TrackRef, at *time.Time) (domain.MotionProperty, bool, error) {
	ctx, finish := s.instrument(ctx, "track_acceleration", ref.TrackID)
	track, err := s.store.ReadTrack(ctx, ref, nil)
	if err != nil {
		finish(err)
		return domain.MotionProperty{}, false, err
	}
	finish(nil)
	if at != nil {
		prop, ok := domain.AccelerationAt(track, *at)
		return prop, ok, nil
	}
	return domain.TrackAcceleration(track), true, nil
}

// CreateSeries persists a new temporal property series under its feature.
func (s *Service) CreateSeries(ctx context.Context, series TemporalPropertySeries) (TemporalPropertySeries, error) {
	ctx, finish := s.instrument(ctx, "create_series", series.Name)
	var created TemporalPropertySeries
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreateSeries(series)
		return err
	})
	finish(err)
	return created, err
}

// DeleteSeries removes one property series.
func (s *Service) DeleteSeries(ctx context.Context, ref SeriesRef) error {
	ctx, finish := s.instrument(ctx, "delete_series", ref.Name)
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteSeries(ref)
	})
	finish(err)
	return err
}

// ListSeries returns a feature's property series ordered by name.
func (s *Service) ListSeries(ctx context.Context, collectionID, featureID string) ([]TemporalPropertySeries, error) {
	ctx, finish := s.instrument(ctx, "list_series", featureID)
	var out []TemporalPropertySeries
	err := s.store.View(ctx, func(view TransactionView) error {
		if _, ok := view.FindFeature(collectionID, featureID); !ok {
			return domain.NotFoundError{Entity: EntityFeature, ID: featureID}
		}
		out = view.ListSeries(collectionID, featureID)
		return nil
	})
	finish(err)
	return out, err
}

// AppendValue appends one value to a property series.
func (s *Service) AppendValue(ctx context.Context, ref SeriesRef, value SeriesValue) error {
	ctx, finish := s.instrument(ctx, "append_value", ref.Name)
	err := s.store.AppendValue(ctx, ref, value)
	finish(err)
	return err
}

// ReadSeries returns a copy of a series, optionally restricted to a range.
func (s *Service) ReadSeries(ctx context.Context, ref SeriesRef, within *TimeRange) (TemporalPropertySeries, error) {
	ctx, finish := s.instrument(ctx, "read_series", ref.Name)
	series, err := s.store.ReadSeries(ctx, ref, within)
	finish(err)
	return series, err
}

// InterpolateValue evaluates a float series at one instant.
func (s *Service) InterpolateValue(ctx context.Context, ref SeriesRef, at time.Time) (float64, bool, error) {
	ctx, finish := s.instrument(ctx, "interpolate_value", ref.Name)
	v, ok, err := s.store.InterpolateValue(ctx, ref, at)
	finish(err)
	return v, ok, err
}

// SeriesDocument serializes a series to its paired datetime/value form.
func (s *Service) SeriesDocument(ctx context.Context, ref SeriesRef, within *TimeRange) (domain.SeriesDocument, error) {
	ctx, finish := s.instrument(ctx, "series_document", ref.Name)
	series, err := s.store.ReadSeries(ctx, ref, within)
	var doc domain.SeriesDocument
	if err == nil {
		doc = domain.SerializeSeries(series)
	}
	finish(err)
	return doc, err
}
