package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"mfcore/pkg/domain"
)

var extentBase = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func seedService(t *testing.T) *Service {
	t.Helper()
	svc := NewInMemoryService()
	ctx := context.Background()
	if _, err := svc.CreateCollection(ctx, Collection{Base: domain.Base{ID: "fleet"}}); err != nil {
		t.Fatalf("create collection: %v", err)
	}
	if _, err := svc.CreateFeature(ctx, MovingFeature{Base: domain.Base{ID: "vessel-1"}, CollectionID: "fleet"}); err != nil {
		t.Fatalf("create feature: %v", err)
	}
	return svc
}

func seedLinearTrack(t *testing.T, svc *Service) TrackRef {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.CreateTrack(ctx, TemporalGeometryTrack{
		Base: domain.Base{ID: "t1"}, CollectionID: "fleet", FeatureID: "vessel-1",
	}); err != nil {
		t.Fatalf("create track: %v", err)
	}
	ref := TrackRef{CollectionID: "fleet", FeatureID: "vessel-1", TrackID: "t1"}
	samples := []TrackSample{
		{Time: extentBase, Position: domain.Position{0, 0}},
		{Time: extentBase.Add(10 * time.Second), Position: domain.Position{10, 0}},
	}
	for _, sample := range samples {
		if err := svc.AppendSample(ctx, ref, sample); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return ref
}

func TestCollectionExtentCoversTrack(t *testing.T) {
	svc := seedService(t)
	ref := seedLinearTrack(t, svc)
	ctx := context.Background()

	pos, ok, err := svc.InterpolatePosition(ctx, ref, extentBase.Add(5*time.Second))
	if err != nil || !ok {
		t.Fatalf("interpolate: ok=%v err=%v", ok, err)
	}
	if pos[0] != 5 || pos[1] != 0 {
		t.Fatalf("expected (5,0), got (%v,%v)", pos[0], pos[1])
	}

	extent, err := svc.CollectionExtent(ctx, "fleet")
	if err != nil {
		t.Fatalf("extent: %v", err)
	}
	if extent.BBox2D == nil {
		t.Fatalf("expected planar bbox")
	}
	if extent.BBox2D.MinX != 0 || extent.BBox2D.MaxX != 10 || extent.BBox2D.MinY != 0 || extent.BBox2D.MaxY != 0 {
		t.Fatalf("unexpected bbox: %+v", extent.BBox2D)
	}
	if extent.NDims != 2 || extent.BBox3D != nil {
		t.Fatalf("planar track must not produce a 3d box: %+v", extent)
	}
	if len(extent.CRSs) != 1 || extent.CRSs[0] != domain.DefaultCRS {
		t.Fatalf("unexpected crs list: %v", extent.CRSs)
	}
	if extent.MixedCRS() {
		t.Fatalf("single crs must not report mixed")
	}
	if extent.Temporal == nil || !extent.Temporal.Begin.Equal(extentBase) || !extent.Temporal.End.Equal(extentBase.Add(10*time.Second)) {
		t.Fatalf("unexpected temporal span: %+v", extent.Temporal)
	}
}

func TestCollectionExtentEmptyCollection(t *testing.T) {
	svc := seedService(t)
	extent, err := svc.CollectionExtent(context.Background(), "fleet")
	if err != nil {
		t.Fatalf("extent: %v", err)
	}
	if extent.BBox2D != nil || extent.BBox3D != nil || extent.NDims != 0 {
		t.Fatalf("geometry-free collection must yield no boxes: %+v", extent)
	}
}

func TestCollectionExtentMixedCRS(t *testing.T) {
	svc := seedService(t)
	seedLinearTrack(t, svc)
	ctx := context.Background()
	if _, err := svc.CreateTrack(ctx, TemporalGeometryTrack{
		Base: domain.Base{ID: "t2"}, CollectionID: "fleet", FeatureID: "vessel-1",
		CRS: "urn:ogc:def:crs:EPSG::3857",
	}); err != nil {
		t.Fatalf("create track: %v", err)
	}
	ref := TrackRef{CollectionID: "fleet", FeatureID: "vessel-1", TrackID: "t2"}
	if err := svc.AppendSample(ctx, ref, TrackSample{Time: extentBase, Position: domain.Position{500000, 500000}}); err != nil {
		t.Fatalf("append: %v", err)
	}

	extent, err := svc.CollectionExtent(ctx, "fleet")
	if err != nil {
		t.Fatalf("extent: %v", err)
	}
	if !extent.MixedCRS() {
		t.Fatalf("expected mixed crs, got %v", extent.CRSs)
	}
	if extent.CRSs[0] != domain.DefaultCRS {
		t.Fatalf("crs order must be first-seen: %v", extent.CRSs)
	}
	// Raw pooling without reprojection keeps the foreign coordinates.
	if extent.BBox2D.MaxX != 500000 {
		t.Fatalf("expected pooled bbox, got %+v", extent.BBox2D)
	}
}

func TestCollectionExtentThreeDimensional(t *testing.T) {
	svc := seedService(t)
	ctx := context.Background()
	if _, err := svc.CreateTrack(ctx, TemporalGeometryTrack{
		Base: domain.Base{ID: "t3"}, CollectionID: "fleet", FeatureID: "vessel-1",
	}); err != nil {
		t.Fatalf("create track: %v", err)
	}
	ref := TrackRef{CollectionID: "fleet", FeatureID: "vessel-1", TrackID: "t3"}
	if err := svc.AppendSample(ctx, ref, TrackSample{Time: extentBase, Position: domain.Position{1, 2, 3}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := svc.AppendSample(ctx, ref, TrackSample{Time: extentBase.Add(time.Second), Position: domain.Position{4, 5, 6}}); err != nil {
		t.Fatalf("append: %v", err)
	}

	extent, err := svc.CollectionExtent(ctx, "fleet")
	if err != nil {
		t.Fatalf("extent: %v", err)
	}
	if extent.NDims != 3 || extent.BBox3D == nil {
		t.Fatalf("expected volumetric extent: %+v", extent)
	}
	if extent.BBox3D.MinZ != 3 || extent.BBox3D.MaxZ != 6 {
		t.Fatalf("unexpected z bounds: %+v", extent.BBox3D)
	}
}

func TestCollectionExtentCancellation(t *testing.T) {
	svc := seedService(t)
	seedLinearTrack(t, svc)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.CollectionExtent(ctx, "fleet"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestFeatureExtentIncludesGeometryAndLifespan(t *testing.T) {
	svc := NewInMemoryService()
	ctx := context.Background()
	if _, err := svc.CreateCollection(ctx, Collection{Base: domain.Base{ID: "fleet"}}); err != nil {
		t.Fatalf("create collection: %v", err)
	}
	lifespan := domain.Interval{Begin: extentBase.Add(-time.Hour), End: extentBase.Add(time.Hour)}
	if _, err := svc.CreateFeature(ctx, MovingFeature{
		Base:         domain.Base{ID: "buoy-1"},
		CollectionID: "fleet",
		Geometry:     &domain.Geometry{Type: domain.GeometryPoint, Point: domain.Position{-20, 30}},
		Lifespan:     &lifespan,
	}); err != nil {
		t.Fatalf("create feature: %v", err)
	}
	if _, err := svc.CreateSeries(ctx, TemporalPropertySeries{
		CollectionID: "fleet", FeatureID: "buoy-1", Name: "temp", ValueType: domain.ValueFloat,
		Values: []SeriesValue{{Time: extentBase.Add(2 * time.Hour), Float: 21}},
	}); err != nil {
		t.Fatalf("create series: %v", err)
	}

	extent, err := svc.FeatureExtent(ctx, "fleet", "buoy-1")
	if err != nil {
		t.Fatalf("extent: %v", err)
	}
	if extent.BBox2D == nil || extent.BBox2D.MinX != -20 || extent.BBox2D.MaxY != 30 {
		t.Fatalf("static geometry missing from extent: %+v", extent.BBox2D)
	}
	if extent.Temporal == nil || !extent.Temporal.Begin.Equal(lifespan.Begin) {
		t.Fatalf("lifespan missing from temporal span: %+v", extent.Temporal)
	}
	if !extent.Temporal.End.Equal(extentBase.Add(2 * time.Hour)) {
		t.Fatalf("series span must widen the temporal extent: %+v", extent.Temporal)
	}

	if _, err := svc.FeatureExtent(ctx, "fleet", "missing"); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	svc := seedService(t)
	seedLinearTrack(t, svc)
	summary, err := svc.Summarize(context.Background(), "fleet")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.Collection.ID != "fleet" || summary.FeatureCount != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Extent.BBox2D == nil {
		t.Fatalf("summary extent missing bbox")
	}
}

func TestSummarizeFeature(t *testing.T) {
	svc := seedService(t)
	seedLinearTrack(t, svc)
	summary, err := svc.SummarizeFeature(context.Background(), "fleet", "vessel-1")
	if err != nil {
		t.Fatalf("summarize feature: %v", err)
	}
	if summary.Feature.ID != "vessel-1" {
		t.Fatalf("unexpected feature: %+v", summary.Feature)
	}
	if len(summary.TrackIDs) != 1 || summary.TrackIDs[0] != "t1" {
		t.Fatalf("unexpected track ids: %v", summary.TrackIDs)
	}
	if summary.Extent.BBox2D == nil || summary.Extent.BBox2D.MaxX != 10 {
		t.Fatalf("unexpected extent: %+v", summary.Extent)
	}
	if _, err := svc.SummarizeFeature(context.Background(), "fleet", "ghost"); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
