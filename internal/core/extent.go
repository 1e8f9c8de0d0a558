package core

import (
	"context"

	"mfcore/pkg/domain"
)

// Extent is the aggregate spatial and temporal envelope of a feature or a
// whole collection. CRSs lists every distinct reference system encountered,
// in first-seen order. When more than one CRS contributes, the bounding boxes
// pool raw coordinates without reprojection; callers inspect CRSs to decide
// whether the boxes are meaningful.
type Extent struct {
	CRSs     []domain.CRS     `json:"crs"`
	NDims    int              `json:"ndims"`
	BBox2D   *domain.BBox2D   `json:"bbox_2d,omitempty"`
	BBox3D   *domain.BBox3D   `json:"bbox_3d,omitempty"`
	Temporal *domain.Interval `json:"temporal,omitempty"`
}

// MixedCRS reports whether the extent pooled coordinates from more than one
// reference system.
func (e Extent) MixedCRS() bool {
	return len(e.CRSs) > 1
}

// CollectionSummary pairs a collection record with its aggregate envelope.
type CollectionSummary struct {
	Collection   Collection `json:"collection"`
	FeatureCount int        `json:"feature_count"`
	Extent       Extent     `json:"extent"`
}

// FeatureSummary pairs a feature record with its track ids and envelope.
type FeatureSummary struct {
	Feature  MovingFeature `json:"feature"`
	TrackIDs []string      `json:"track_ids"`
	Extent   Extent        `json:"extent"`
}

// extentAccumulator folds positions one at a time so aggregation never
// materializes a flattened coordinate set.
type extentAccumulator struct {
	seen     map[domain.CRS]struct{}
	order    []domain.CRS
	ndims    int
	box2     *domain.BBox2D
	box3     *domain.BBox3D
	temporal *domain.Interval
}

func newExtentAccumulator() *extentAccumulator {
	return &extentAccumulator{seen: make(map[domain.CRS]struct{})}
}

func (a *extentAccumulator) addCRS(crs domain.CRS) {
	if crs == "" {
		crs = domain.DefaultCRS
	}
	if _, ok := a.seen[crs]; ok {
		return
	}
	a.seen[crs] = struct{}{}
	a.order = append(a.order, crs)
}

func (a *extentAccumulator) addPosition(p domain.Position) {
	n := p.NDims()
	if n < 2 {
		return
	}
	if n > a.ndims {
		a.ndims = n
	}
	if a.box2 == nil {
		box := domain.NewBBox2D(p)
		a.box2 = &box
	} else {
		*a.box2 = a.box2.Extend(p)
	}
	if n == 3 {
		if a.box3 == nil {
			box := domain.NewBBox3D(p)
			a.box3 = &box
		} else {
			*a.box3 = a.box3.Extend(p)
		}
	}
}

func (a *extentAccumulator) addInterval(iv domain.Interval) {
	if a.temporal == nil {
		span := iv
		a.temporal = &span
		return
	}
	*a.temporal = a.temporal.Union(iv)
}

func (a *extentAccumulator) addTrack(t TemporalGeometryTrack) {
	if len(t.Samples) == 0 {
		return
	}
	a.addCRS(t.CRS)
	for _, sample := range t.Samples {
		a.addPosition(sample.Position)
	}
	if span, ok := t.Span(); ok {
		a.addInterval(span)
	}
}

func (a *extentAccumulator) addGeometry(g *domain.Geometry) {
	if g == nil || g.NDims() == 0 {
		return
	}
	a.addCRS(g.CRS)
	g.EachPosition(a.addPosition)
}

func (a *extentAccumulator) result() Extent {
	return Extent{
		CRSs:     a.order,
		NDims:    a.ndims,
		BBox2D:   a.box2,
		BBox3D:   a.box3,
		Temporal: a.temporal,
	}
}

func aggregateFeature(acc *extentAccumulator, view TransactionView, feature MovingFeature) {
	acc.addGeometry(feature.Geometry)
	if feature.Lifespan != nil {
		acc.addInterval(*feature.Lifespan)
	}
	for _, track := range view.ListTracks(feature.CollectionID, feature.ID) {
		acc.addTrack(track)
	}
	for _, series := range view.ListSeries(feature.CollectionID, feature.ID) {
		if span, ok := series.Span(); ok {
			acc.addInterval(span)
		}
	}
}

// FeatureExtent aggregates the envelope of one feature over its static
// geometry, tracks, and series spans.
func (s *Service) FeatureExtent(ctx context.Context, collectionID, featureID string) (Extent, error) {
	ctx, finish := s.instrument(ctx, "feature_extent", featureID)
	acc := newExtentAccumulator()
	err := s.store.View(ctx, func(view TransactionView) error {
		feature, ok := view.FindFeature(collectionID, featureID)
		if !ok {
			return domain.NotFoundError{Entity: EntityFeature, ID: featureID}
		}
		aggregateFeature(acc, view, feature)
		return nil
	})
	finish(err)
	if err != nil {
		return Extent{}, err
	}
	return acc.result(), nil
}

// CollectionExtent aggregates the envelope of every feature in a collection.
// A collection with no geometry yields an extent with no boxes and ndims 0.
// Cancellation is checked between features; a cancelled aggregation returns
// the context error and no partial result.
func (s *Service) CollectionExtent(ctx context.Context, collectionID string) (Extent, error) {
	ctx, finish := s.instrument(ctx, "collection_extent", collectionID)
	acc := newExtentAccumulator()
	err := s.store.View(ctx, func(view TransactionView) error {
		if _, ok := view.FindCollection(collectionID); !ok {
			return domain.NotFoundError{Entity: EntityCollection, ID: collectionID}
		}
		for _, feature := range view.ListFeatures(collectionID) {
			if err := ctx.Err(); err != nil {
				return err
			}
			aggregateFeature(acc, view, feature)
		}
		return nil
	})
	finish(err)
	if err != nil {
		return Extent{}, err
	}
	return acc.result(), nil
}

// SummarizeFeature pairs a feature with its track ids and aggregate extent.
func (s *Service) SummarizeFeature(ctx context.Context, collectionID, featureID string) (FeatureSummary, error) {
	ctx, finish := s.instrument(ctx, "summarize_feature", featureID)
	var summary FeatureSummary
	acc := newExtentAccumulator()
	err := s.store.View(ctx, func(view TransactionView) error {
		feature, ok := view.FindFeature(collectionID, featureID)
		if !ok {
			return domain.NotFoundError{Entity: EntityFeature, ID: featureID}
		}
		summary.Feature = feature
		for _, track := range view.ListTracks(collectionID, featureID) {
			summary.TrackIDs = append(summary.TrackIDs, track.ID)
		}
		aggregateFeature(acc, view, feature)
		return nil
	})
	finish(err)
	if err != nil {
		return FeatureSummary{}, err
	}
	summary.Extent = acc.result()
	return summary, nil
}

// Summarize pairs a collection with its feature count and aggregate extent.
func (s *Service) Summarize(ctx context.Context, collectionID string) (CollectionSummary, error) {
	ctx, finish := s.instrument(ctx, "summarize_collection", collectionID)
	var summary CollectionSummary
	acc := newExtentAccumulator()
	err := s.store.View(ctx, func(view TransactionView) error {
		collection, ok := view.FindCollection(collectionID)
		if !ok {
			return domain.NotFoundError{Entity: EntityCollection, ID: collectionID}
		}
		summary.Collection = collection
		features := view.ListFeatures(collectionID)
		summary.FeatureCount = len(features)
		for _, feature := range features {
			if err := ctx.Err(); err != nil {
				return err
			}
			aggregateFeature(acc, view, feature)
		}
		return nil
	})
	finish(err)
	if err != nil {
		return CollectionSummary{}, err
	}
	summary.Extent = acc.result()
	return summary, nil
}
