package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"mfcore/pkg/domain"
)

func seedCollection(t *testing.T, store *Store) (string, string) {
	t.Helper()
	ctx := context.Background()
	err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateCollection(domain.Collection{Base: domain.Base{ID: "fleet"}}); err != nil {
			return err
		}
		_, err := tx.CreateFeature(domain.MovingFeature{Base: domain.Base{ID: "vessel-1"}, CollectionID: "fleet"})
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return "fleet", "vessel-1"
}

func seedTrack(t *testing.T, store *Store, collectionID, featureID, trackID string, mode domain.InterpolationMode) domain.TrackRef {
	t.Helper()
	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateTrack(domain.TemporalGeometryTrack{
			Base:          domain.Base{ID: trackID},
			CollectionID:  collectionID,
			FeatureID:     featureID,
			Interpolation: mode,
		})
		return err
	})
	if err != nil {
		t.Fatalf("seed track: %v", err)
	}
	return domain.TrackRef{CollectionID: collectionID, FeatureID: featureID, TrackID: trackID}
}

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	cid, fid := seedCollection(t, store)
	ref := seedTrack(t, store, cid, fid, "t1", domain.InterpolationLinear)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		sample := domain.TrackSample{Time: base.Add(time.Duration(i) * time.Second), Position: domain.Position{float64(i), 0}}
		if err := store.AppendSample(ctx, ref, sample); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	track, err := store.ReadTrack(ctx, ref, nil)
	if err != nil {
		t.Fatalf("read track: %v", err)
	}
	if len(track.Samples) != 3 || track.NDims != 2 {
		t.Fatalf("unexpected track state: %d samples, ndims %d", len(track.Samples), track.NDims)
	}
	partial, err := store.ReadTrack(ctx, ref, &domain.TimeRange{Start: base.Add(time.Second)})
	if err != nil {
		t.Fatalf("read range: %v", err)
	}
	if len(partial.Samples) != 2 {
		t.Fatalf("expected 2 samples in range, got %d", len(partial.Samples))
	}
	pos, ok, err := store.InterpolatePosition(ctx, ref, base.Add(1500*time.Millisecond))
	if err != nil || !ok {
		t.Fatalf("interpolate: ok=%v err=%v", ok, err)
	}
	if pos[0] != 1.5 {
		t.Fatalf("expected x=1.5, got %v", pos[0])
	}
}

func TestAppendSampleRejectsStaleTimestampAndLeavesTrackUnchanged(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	cid, fid := seedCollection(t, store)
	ref := seedTrack(t, store, cid, fid, "t1", domain.InterpolationLinear)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := store.AppendSample(ctx, ref, domain.TrackSample{Time: base, Position: domain.Position{0, 0}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	err := store.AppendSample(ctx, ref, domain.TrackSample{Time: base, Position: domain.Position{1, 1}})
	if !domain.IsTemporalOrder(err) {
		t.Fatalf("expected temporal order error, got %v", err)
	}
	err = store.AppendSample(ctx, ref, domain.TrackSample{Time: base.Add(-time.Second), Position: domain.Position{1, 1}})
	if !domain.IsTemporalOrder(err) {
		t.Fatalf("expected temporal order error for earlier timestamp, got %v", err)
	}
	track, err := store.ReadTrack(ctx, ref, nil)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(track.Samples) != 1 {
		t.Fatalf("rejected appends must not mutate the track, got %d samples", len(track.Samples))
	}
}

func TestAppendSampleDimensionality(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	cid, fid := seedCollection(t, store)
	ref := seedTrack(t, store, cid, fid, "t1", domain.InterpolationLinear)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := store.AppendSample(ctx, ref, domain.TrackSample{Time: base, Position: domain.Position{1}}); err == nil {
		t.Fatalf("expected rejection of 1-dim first sample")
	}
	if err := store.AppendSample(ctx, ref, domain.TrackSample{Time: base, Position: domain.Position{1, 2, 3}}); err != nil {
		t.Fatalf("3-dim first sample: %v", err)
	}
	err := store.AppendSample(ctx, ref, domain.TrackSample{Time: base.Add(time.Second), Position: domain.Position{1, 2}})
	var mismatch domain.CRSMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected dimensionality mismatch, got %v", err)
	}
	if mismatch.Want != 3 || mismatch.Got != 2 {
		t.Fatalf("unexpected mismatch detail: %+v", mismatch)
	}
}

func TestConcurrentAppendsToSeparateTracks(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	cid, fid := seedCollection(t, store)
	refA := seedTrack(t, store, cid, fid, "a", domain.InterpolationLinear)
	refB := seedTrack(t, store, cid, fid, "b", domain.InterpolationLinear)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	const n = 200
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, ref := range []domain.TrackRef{refA, refB} {
		wg.Add(1)
		go func(ref domain.TrackRef) {
			defer wg.Done()
			for i := 0; i < n; i++ {
				sample := domain.TrackSample{Time: base.Add(time.Duration(i) * time.Millisecond), Position: domain.Position{float64(i), 0}}
				if err := store.AppendSample(ctx, ref, sample); err != nil {
					errs <- err
					return
				}
			}
		}(ref)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent append: %v", err)
	}
	for _, ref := range []domain.TrackRef{refA, refB} {
		track, err := store.ReadTrack(ctx, ref, nil)
		if err != nil {
			t.Fatalf("read %s: %v", ref.TrackID, err)
		}
		if len(track.Samples) != n {
			t.Fatalf("track %s: expected %d samples, got %d", ref.TrackID, n, len(track.Samples))
		}
	}
}

func TestListFeaturePageStableCursor(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateCollection(domain.Collection{Base: domain.Base{ID: "fleet"}}); err != nil {
			return err
		}
		for i := 0; i < 5; i++ {
			id := fmt.Sprintf("vessel-%d", i)
			if _, err := tx.CreateFeature(domain.MovingFeature{Base: domain.Base{ID: id}, CollectionID: "fleet"}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	first, err := store.ListFeaturePage("fleet", "", 2)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if first.NumberMatched != 5 || first.NumberReturned != 2 {
		t.Fatalf("unexpected counts: matched=%d returned=%d", first.NumberMatched, first.NumberReturned)
	}
	if first.NextCursor == "" {
		t.Fatalf("expected continuation cursor")
	}
	again, err := store.ListFeaturePage("fleet", "", 2)
	if err != nil {
		t.Fatalf("repeat page 1: %v", err)
	}
	if first.Features[0].ID != again.Features[0].ID || first.Features[1].ID != again.Features[1].ID {
		t.Fatalf("identical cursor and limit must yield the same page")
	}

	var all []string
	cursor := ""
	for {
		page, err := store.ListFeaturePage("fleet", cursor, 2)
		if err != nil {
			t.Fatalf("page: %v", err)
		}
		for _, f := range page.Features {
			all = append(all, f.ID)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	if len(all) != 5 {
		t.Fatalf("expected all 5 features across pages, got %d: %v", len(all), all)
	}
	for i := 1; i < len(all); i++ {
		if all[i-1] >= all[i] {
			t.Fatalf("pages out of order: %v", all)
		}
	}

	if _, err := store.ListFeaturePage("missing", "", 2); !domain.IsNotFound(err) {
		t.Fatalf("expected not found for missing collection, got %v", err)
	}
}

func TestCaseInsensitiveIdentifiers(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateCollection(domain.Collection{Base: domain.Base{ID: "Fleet"}}); err != nil {
			return err
		}
		_, err := tx.CreateFeature(domain.MovingFeature{Base: domain.Base{ID: "Vessel-1"}, CollectionID: "FLEET"})
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, ok := store.GetFeature("fleet", "VESSEL-1"); !ok {
		t.Fatalf("expected case-insensitive lookup")
	}
	err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateCollection(domain.Collection{Base: domain.Base{ID: "FLEET"}})
		return err
	})
	if !domain.IsConstraint(err) {
		t.Fatalf("expected constraint violation for case-folded duplicate, got %v", err)
	}
}

func TestCascadeDelete(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	cid, fid := seedCollection(t, store)
	ref := seedTrack(t, store, cid, fid, "t1", domain.InterpolationLinear)
	err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateSeries(domain.TemporalPropertySeries{
			CollectionID: cid, FeatureID: fid, Name: "speed", ValueType: domain.ValueFloat,
		})
		return err
	})
	if err != nil {
		t.Fatalf("seed series: %v", err)
	}

	if err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteFeature(cid, fid)
	}); err != nil {
		t.Fatalf("delete feature: %v", err)
	}
	if _, err := store.ReadTrack(ctx, ref, nil); !domain.IsNotFound(err) {
		t.Fatalf("expected cascade to remove track, got %v", err)
	}
	sref := domain.SeriesRef{CollectionID: cid, FeatureID: fid, Name: "speed"}
	if _, err := store.ReadSeries(ctx, sref, nil); !domain.IsNotFound(err) {
		t.Fatalf("expected cascade to remove series, got %v", err)
	}

	if err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteCollection(cid)
	}); err != nil {
		t.Fatalf("delete collection: %v", err)
	}
	if _, ok := store.GetCollection(cid); ok {
		t.Fatalf("expected collection removed")
	}
}

func TestTransactionRollbackOnError(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	seedCollection(t, store)
	boom := errors.New("boom")
	err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateFeature(domain.MovingFeature{Base: domain.Base{ID: "vessel-2"}, CollectionID: "fleet"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected propagated error, got %v", err)
	}
	if _, ok := store.GetFeature("fleet", "vessel-2"); ok {
		t.Fatalf("failed transaction must not commit")
	}
}

func TestSeriesTypeEnforcement(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	cid, fid := seedCollection(t, store)
	err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateSeries(domain.TemporalPropertySeries{
			CollectionID: cid, FeatureID: fid, Name: "speed", ValueType: domain.ValueFloat,
		}); err != nil {
			return err
		}
		_, err := tx.CreateSeries(domain.TemporalPropertySeries{
			CollectionID: cid, FeatureID: fid, Name: "status", ValueType: domain.ValueText, Interpolation: domain.InterpolationDiscrete,
		})
		return err
	})
	if err != nil {
		t.Fatalf("seed series: %v", err)
	}

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	speed := domain.SeriesRef{CollectionID: cid, FeatureID: fid, Name: "speed"}
	status := domain.SeriesRef{CollectionID: cid, FeatureID: fid, Name: "status"}

	if err := store.AppendValue(ctx, speed, domain.SeriesValue{Time: base, Float: 12.5}); err != nil {
		t.Fatalf("append float: %v", err)
	}
	var mismatch domain.TypeMismatchError
	if err := store.AppendValue(ctx, speed, domain.SeriesValue{Time: base.Add(time.Second), Text: "fast"}); !errors.As(err, &mismatch) {
		t.Fatalf("expected type mismatch, got %v", err)
	}
	if err := store.AppendValue(ctx, status, domain.SeriesValue{Time: base, Text: "moored"}); err != nil {
		t.Fatalf("append text: %v", err)
	}
	if err := store.AppendValue(ctx, status, domain.SeriesValue{Time: base.Add(time.Second)}); !errors.As(err, &mismatch) {
		t.Fatalf("expected type mismatch for empty text, got %v", err)
	}

	v, ok, err := store.InterpolateValue(ctx, speed, base)
	if err != nil || !ok || v != 12.5 {
		t.Fatalf("interpolate float: v=%v ok=%v err=%v", v, ok, err)
	}
	if _, _, err := store.InterpolateValue(ctx, status, base); !errors.As(err, &mismatch) {
		t.Fatalf("expected mismatch interpolating text series, got %v", err)
	}
}

func TestExportImportState(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	cid, fid := seedCollection(t, store)
	ref := seedTrack(t, store, cid, fid, "t1", domain.InterpolationLinear)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := store.AppendSample(ctx, ref, domain.TrackSample{Time: base, Position: domain.Position{1, 2}}); err != nil {
		t.Fatalf("append: %v", err)
	}

	snapshots := store.ExportState()
	if len(snapshots) != 1 || len(snapshots[0].Features) != 1 || len(snapshots[0].Features[0].Tracks) != 1 {
		t.Fatalf("unexpected snapshot shape: %+v", snapshots)
	}

	restored := NewStore()
	restored.ImportState(snapshots)
	track, err := restored.ReadTrack(ctx, ref, nil)
	if err != nil {
		t.Fatalf("read restored: %v", err)
	}
	if len(track.Samples) != 1 || track.Samples[0].Position[1] != 2 {
		t.Fatalf("restored track mismatch: %+v", track.Samples)
	}
}

func TestCreateTrackValidatesSeedSamples(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	cid, fid := seedCollection(t, store)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateTrack(domain.TemporalGeometryTrack{
			Base:         domain.Base{ID: "bad"},
			CollectionID: cid,
			FeatureID:    fid,
			Samples: []domain.TrackSample{
				{Time: base, Position: domain.Position{0, 0}},
				{Time: base, Position: domain.Position{1, 1}},
			},
		})
		return err
	})
	if !domain.IsTemporalOrder(err) {
		t.Fatalf("expected temporal order error, got %v", err)
	}

	err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		created, err := tx.CreateTrack(domain.TemporalGeometryTrack{
			Base:         domain.Base{ID: "good"},
			CollectionID: cid,
			FeatureID:    fid,
			Samples: []domain.TrackSample{
				{Time: base, Position: domain.Position{0, 0}},
				{Time: base.Add(time.Second), Position: domain.Position{1, 1}},
			},
		})
		if err != nil {
			return err
		}
		if created.NDims != 2 || created.CRS != domain.DefaultCRS || created.Interpolation != domain.InterpolationLinear {
			t.Fatalf("defaults not applied: %+v", created)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("create track: %v", err)
	}
}
