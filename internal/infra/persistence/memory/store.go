// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"mfcore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Collection aliases domain.Collection for in-memory persistence operations.
	Collection = domain.Collection
	// MovingFeature aliases domain.MovingFeature.
	MovingFeature = domain.MovingFeature
	// TemporalGeometryTrack aliases domain.TemporalGeometryTrack.
	TemporalGeometryTrack = domain.TemporalGeometryTrack
	// TemporalPropertySeries aliases domain.TemporalPropertySeries.
	TemporalPropertySeries = domain.TemporalPropertySeries
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

const defaultPageSize = 10

// trackLog is the append arena of one track. Its mutex serializes appends to
// this track only; appends to other tracks proceed concurrently under the
// store's read lock.
type trackLog struct {
	mu    sync.Mutex
	track TemporalGeometryTrack
}

// seriesLog is the append arena of one property series.
type seriesLog struct {
	mu     sync.Mutex
	series TemporalPropertySeries
}

// featureArena holds one feature's record and the append arenas it owns,
// keyed by normalized track id and series name.
type featureArena struct {
	record MovingFeature
	tracks map[string]*trackLog
	series map[string]*seriesLog
}

// collectionArena holds one collection's record and its features, keyed by
// normalized feature id.
type collectionArena struct {
	record   Collection
	features map[string]*featureArena
}

type memoryState struct {
	collections map[string]*collectionArena
}

func newMemoryState() memoryState {
	return memoryState{collections: make(map[string]*collectionArena)}
}

// clone copies the structural maps and records. Track and series logs are
// shared by pointer: appends mutate them in place under their own mutex, and
// structural transactions only ever add or remove whole logs.
func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for key, arena := range s.collections {
		cp := &collectionArena{
			record:   cloneCollection(arena.record),
			features: make(map[string]*featureArena, len(arena.features)),
		}
		for fkey, feature := range arena.features {
			fcp := &featureArena{
				record: cloneFeature(feature.record),
				tracks: make(map[string]*trackLog, len(feature.tracks)),
				series: make(map[string]*seriesLog, len(feature.series)),
			}
			for tkey, log := range feature.tracks {
				fcp.tracks[tkey] = log
			}
			for skey, log := range feature.series {
				fcp.series[skey] = log
			}
			cp.features[fkey] = fcp
		}
		cloned.collections[key] = cp
	}
	return cloned
}

func (s memoryState) findCollection(id string) (*collectionArena, bool) {
	arena, ok := s.collections[domain.NormalizeID(id)]
	return arena, ok
}

func (s memoryState) findFeature(collectionID, featureID string) (*featureArena, bool) {
	arena, ok := s.findCollection(collectionID)
	if !ok {
		return nil, false
	}
	feature, ok := arena.features[domain.NormalizeID(featureID)]
	return feature, ok
}

func (s memoryState) findTrack(ref domain.TrackRef) (*trackLog, bool) {
	feature, ok := s.findFeature(ref.CollectionID, ref.FeatureID)
	if !ok {
		return nil, false
	}
	log, ok := feature.tracks[domain.NormalizeID(ref.TrackID)]
	return log, ok
}

func (s memoryState) findSeries(ref domain.SeriesRef) (*seriesLog, bool) {
	feature, ok := s.findFeature(ref.CollectionID, ref.FeatureID)
	if !ok {
		return nil, false
	}
	log, ok := feature.series[domain.NormalizeID(ref.Name)]
	return log, ok
}

func cloneProperties(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

func cloneCollection(c Collection) Collection {
	cp := c
	cp.Properties = cloneProperties(c.Properties)
	return cp
}

func cloneFeature(f MovingFeature) MovingFeature {
	cp := f
	cp.Properties = cloneProperties(f.Properties)
	if f.Geometry != nil {
		g := f.Geometry.Clone()
		cp.Geometry = &g
	}
	if f.Lifespan != nil {
		span := *f.Lifespan
		cp.Lifespan = &span
	}
	return cp
}

func cloneTrack(t TemporalGeometryTrack) TemporalGeometryTrack {
	cp := t
	cp.Samples = make([]domain.TrackSample, len(t.Samples))
	for i, sample := range t.Samples {
		cp.Samples[i] = domain.TrackSample{Time: sample.Time, Position: sample.Position.Clone()}
	}
	return cp
}

func cloneSeries(s TemporalPropertySeries) TemporalPropertySeries {
	cp := s
	cp.Values = append([]domain.SeriesValue(nil), s.Values...)
	return cp
}

// Store is the in-memory persistence backend. Structural mutations run under
// the store-wide write lock via transactional clones; appends run under the
// read lock serialized per track or series.
type Store struct {
	mu    sync.RWMutex
	state memoryState
	nowFn func() time.Time
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{
		state: newMemoryState(),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// NowFunc returns the time provider used by the store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// ExportState clones the full store state for external persistence, ordered
// by collection id.
func (s *Store) ExportState() []domain.CollectionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CollectionSnapshot, 0, len(s.state.collections))
	for _, arena := range s.state.collections {
		out = append(out, exportArena(arena))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Collection.ID < out[j].Collection.ID })
	return out
}

// ExportCollection clones the state of one collection.
func (s *Store) ExportCollection(id string) (domain.CollectionSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arena, ok := s.state.findCollection(id)
	if !ok {
		return domain.CollectionSnapshot{}, false
	}
	return exportArena(arena), true
}

func exportArena(arena *collectionArena) domain.CollectionSnapshot {
	snapshot := domain.CollectionSnapshot{
		Collection: cloneCollection(arena.record),
		Features:   make([]domain.FeatureSnapshot, 0, len(arena.features)),
	}
	for _, feature := range arena.features {
		fs := domain.FeatureSnapshot{Feature: cloneFeature(feature.record)}
		for _, log := range feature.tracks {
			log.mu.Lock()
			fs.Tracks = append(fs.Tracks, cloneTrack(log.track))
			log.mu.Unlock()
		}
		for _, log := range feature.series {
			log.mu.Lock()
			fs.Series = append(fs.Series, cloneSeries(log.series))
			log.mu.Unlock()
		}
		sort.Slice(fs.Tracks, func(i, j int) bool { return fs.Tracks[i].ID < fs.Tracks[j].ID })
		sort.Slice(fs.Series, func(i, j int) bool { return fs.Series[i].Name < fs.Series[j].Name })
		snapshot.Features = append(snapshot.Features, fs)
	}
	sort.Slice(snapshot.Features, func(i, j int) bool {
		return snapshot.Features[i].Feature.ID < snapshot.Features[j].Feature.ID
	})
	return snapshot
}

// ImportState replaces the store state with the provided snapshots.
func (s *Store) ImportState(snapshots []domain.CollectionSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := newMemoryState()
	for _, snapshot := range snapshots {
		importSnapshot(state, snapshot)
	}
	s.state = state
}

// ImportCollection replaces (or installs) the state of one collection.
func (s *Store) ImportCollection(snapshot domain.CollectionSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	importSnapshot(s.state, snapshot)
}

func importSnapshot(state memoryState, snapshot domain.CollectionSnapshot) {
	arena := &collectionArena{
		record:   cloneCollection(snapshot.Collection),
		features: make(map[string]*featureArena, len(snapshot.Features)),
	}
	for _, fs := range snapshot.Features {
		feature := &featureArena{
			record: cloneFeature(fs.Feature),
			tracks: make(map[string]*trackLog, len(fs.Tracks)),
			series: make(map[string]*seriesLog, len(fs.Series)),
		}
		for _, track := range fs.Tracks {
			feature.tracks[domain.NormalizeID(track.ID)] = &trackLog{track: cloneTrack(track)}
		}
		for _, series := range fs.Series {
			feature.series[domain.NormalizeID(series.Name)] = &seriesLog{series: cloneSeries(series)}
		}
		arena.features[domain.NormalizeID(fs.Feature.ID)] = feature
	}
	state.collections[domain.NormalizeID(snapshot.Collection.ID)] = arena
}

// transaction represents a structural mutation set applied to a clone of the
// store state and swapped in on success.
type transaction struct {
	store *Store
	state memoryState
	now   time.Time
}

// transactionView exposes a read-only snapshot of the transactional state.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListCollections returns all collections in the snapshot, ordered by id.
func (v transactionView) ListCollections() []Collection {
	out := make([]Collection, 0, len(v.state.collections))
	for _, arena := range v.state.collections {
		out = append(out, cloneCollection(arena.record))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindCollection retrieves a collection by id from the snapshot.
func (v transactionView) FindCollection(id string) (Collection, bool) {
	arena, ok := v.state.findCollection(id)
	if !ok {
		return Collection{}, false
	}
	return cloneCollection(arena.record), true
}

// ListFeatures returns all features of a collection, ordered by id.
func (v transactionView) ListFeatures(collectionID string) []MovingFeature {
	arena, ok := v.state.findCollection(collectionID)
	if !ok {
		return nil
	}
	out := make([]MovingFeature, 0, len(arena.features))
	for _, feature := range arena.features {
		out = append(out, cloneFeature(feature.record))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindFeature retrieves a feature by its ownership path.
func (v transactionView) FindFeature(collectionID, featureID string) (MovingFeature, bool) {
	feature, ok := v.state.findFeature(collectionID, featureID)
	if !ok {
		return MovingFeature{}, false
	}
	return cloneFeature(feature.record), true
}

// ListTracks returns all tracks of a feature, ordered by id.
func (v transactionView) ListTracks(collectionID, featureID string) []TemporalGeometryTrack {
	feature, ok := v.state.findFeature(collectionID, featureID)
	if !ok {
		return nil
	}
	out := make([]TemporalGeometryTrack, 0, len(feature.tracks))
	for _, log := range feature.tracks {
		log.mu.Lock()
		out = append(out, cloneTrack(log.track))
		log.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindTrack retrieves a track by its ownership path.
func (v transactionView) FindTrack(ref domain.TrackRef) (TemporalGeometryTrack, bool) {
	log, ok := v.state.findTrack(ref)
	if !ok {
		return TemporalGeometryTrack{}, false
	}
	log.mu.Lock()
	defer log.mu.Unlock()
	return cloneTrack(log.track), true
}

// ListSeries returns all property series of a feature, ordered by name.
func (v transactionView) ListSeries(collectionID, featureID string) []TemporalPropertySeries {
	feature, ok := v.state.findFeature(collectionID, featureID)
	if !ok {
		return nil
	}
	out := make([]TemporalPropertySeries, 0, len(feature.series))
	for _, log := range feature.series {
		log.mu.Lock()
		out = append(out, cloneSeries(log.series))
		log.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FindSeries retrieves a property series by its ownership path.
func (v transactionView) FindSeries(ref domain.SeriesRef) (TemporalPropertySeries, bool) {
	log, ok := v.state.findSeries(ref)
	if !ok {
		return TemporalPropertySeries{}, false
	}
	log.mu.Lock()
	defer log.mu.Unlock()
	return cloneSeries(log.series), true
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(_ context.Context, fn func(tx Transaction) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := s.state.clone()
	return fn(newTransactionView(&snapshot))
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// CreateCollection stores a new collection within the transaction.
func (tx *transaction) CreateCollection(c Collection) (Collection, error) {
	if c.ID == "" {
		c.ID = tx.store.newID()
	}
	c.ID = domain.NormalizeID(c.ID)
	if _, exists := tx.state.collections[c.ID]; exists {
		return Collection{}, domain.ConstraintError{Entity: domain.EntityCollection, ID: c.ID, Reason: "already exists"}
	}
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	tx.state.collections[c.ID] = &collectionArena{
		record:   cloneCollection(c),
		features: make(map[string]*featureArena),
	}
	return cloneCollection(c), nil
}

// UpdateCollectionProperties replaces a collection's properties document.
func (tx *transaction) UpdateCollectionProperties(id string, properties map[string]any) (Collection, error) {
	arena, ok := tx.state.findCollection(id)
	if !ok {
		return Collection{}, domain.NotFoundError{Entity: domain.EntityCollection, ID: id}
	}
	arena.record.Properties = cloneProperties(properties)
	arena.record.UpdatedAt = tx.now
	return cloneCollection(arena.record), nil
}

// DeleteCollection removes a collection and everything it owns.
func (tx *transaction) DeleteCollection(id string) error {
	key := domain.NormalizeID(id)
	if _, ok := tx.state.collections[key]; !ok {
		return domain.NotFoundError{Entity: domain.EntityCollection, ID: id}
	}
	delete(tx.state.collections, key)
	return nil
}

// CreateFeature stores a new moving feature under its collection.
func (tx *transaction) CreateFeature(f MovingFeature) (MovingFeature, error) {
	arena, ok := tx.state.findCollection(f.CollectionID)
	if !ok {
		return MovingFeature{}, domain.NotFoundError{Entity: domain.EntityCollection, ID: f.CollectionID}
	}
	if f.ID == "" {
		f.ID = tx.store.newID()
	}
	f.ID = domain.NormalizeID(f.ID)
	f.CollectionID = arena.record.ID
	if _, exists := arena.features[f.ID]; exists {
		return MovingFeature{}, domain.ConstraintError{Entity: domain.EntityFeature, ID: f.ID, Reason: "already exists"}
	}
	if f.Lifespan != nil && f.Lifespan.End.Before(f.Lifespan.Begin) {
		return MovingFeature{}, domain.ConstraintError{Entity: domain.EntityFeature, ID: f.ID, Reason: "lifespan end precedes begin"}
	}
	f.CreatedAt = tx.now
	f.UpdatedAt = tx.now
	arena.features[f.ID] = &featureArena{
		record: cloneFeature(f),
		tracks: make(map[string]*trackLog),
		series: make(map[string]*seriesLog),
	}
	return cloneFeature(f), nil
}

// DeleteFeature removes a feature and its tracks and series.
func (tx *transaction) DeleteFeature(collectionID, featureID string) error {
	arena, ok := tx.state.findCollection(collectionID)
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityCollection, ID: collectionID}
	}
	key := domain.NormalizeID(featureID)
	if _, ok := arena.features[key]; !ok {
		return domain.NotFoundError{Entity: domain.EntityFeature, ID: featureID}
	}
	delete(arena.features, key)
	return nil
}

// CreateTrack stores a new temporal geometry track under its feature. Any
// provided samples must already be strictly increasing with a consistent
// coordinate dimensionality.
func (tx *transaction) CreateTrack(t TemporalGeometryTrack) (TemporalGeometryTrack, error) {
	feature, ok := tx.state.findFeature(t.CollectionID, t.FeatureID)
	if !ok {
		return TemporalGeometryTrack{}, domain.NotFoundError{Entity: domain.EntityFeature, ID: t.FeatureID}
	}
	if t.ID == "" {
		t.ID = tx.store.newID()
	}
	t.ID = domain.NormalizeID(t.ID)
	t.CollectionID = domain.NormalizeID(t.CollectionID)
	t.FeatureID = domain.NormalizeID(t.FeatureID)
	if _, exists := feature.tracks[t.ID]; exists {
		return TemporalGeometryTrack{}, domain.ConstraintError{Entity: domain.EntityTrack, ID: t.ID, Reason: "already exists"}
	}
	if t.CRS == "" {
		t.CRS = domain.DefaultCRS
	}
	if t.Interpolation == "" {
		t.Interpolation = domain.InterpolationLinear
	}
	t.NDims = 0
	seed := t.Samples
	t.Samples = nil
	for i, sample := range seed {
		if err := validateSample(&t, sample); err != nil {
			return TemporalGeometryTrack{}, err
		}
		if i == 0 {
			t.NDims = len(sample.Position)
		}
	}
	t.CreatedAt = tx.now
	t.UpdatedAt = tx.now
	feature.tracks[t.ID] = &trackLog{track: cloneTrack(t)}
	return cloneTrack(t), nil
}

// DeleteTrack removes one track.
func (tx *transaction) DeleteTrack(ref domain.TrackRef) error {
	feature, ok := tx.state.findFeature(ref.CollectionID, ref.FeatureID)
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityFeature, ID: ref.FeatureID}
	}
	key := domain.NormalizeID(ref.TrackID)
	if _, ok := feature.tracks[key]; !ok {
		return domain.NotFoundError{Entity: domain.EntityTrack, ID: ref.TrackID}
	}
	delete(feature.tracks, key)
	return nil
}

// CreateSeries stores a new temporal property series under its feature.
func (tx *transaction) CreateSeries(s TemporalPropertySeries) (TemporalPropertySeries, error) {
	feature, ok := tx.state.findFeature(s.CollectionID, s.FeatureID)
	if !ok {
		return TemporalPropertySeries{}, domain.NotFoundError{Entity: domain.EntityFeature, ID: s.FeatureID}
	}
	if s.Name == "" {
		return TemporalPropertySeries{}, domain.ConstraintError{Entity: domain.EntitySeries, ID: s.Name, Reason: "name required"}
	}
	s.Name = domain.NormalizeID(s.Name)
	s.CollectionID = domain.NormalizeID(s.CollectionID)
	s.FeatureID = domain.NormalizeID(s.FeatureID)
	if s.ID == "" {
		s.ID = tx.store.newID()
	}
	if _, exists := feature.series[s.Name]; exists {
		return TemporalPropertySeries{}, domain.ConstraintError{Entity: domain.EntitySeries, ID: s.Name, Reason: "already exists"}
	}
	if s.ValueType != domain.ValueFloat && s.ValueType != domain.ValueText {
		return TemporalPropertySeries{}, domain.ConstraintError{Entity: domain.EntitySeries, ID: s.Name, Reason: "unknown value type"}
	}
	if s.Interpolation == "" {
		s.Interpolation = domain.InterpolationLinear
	}
	for i, value := range s.Values {
		if i > 0 && !value.Time.After(s.Values[i-1].Time) {
			return TemporalPropertySeries{}, domain.TemporalOrderError{
				Entity: domain.EntitySeries, ID: s.Name,
				Last: s.Values[i-1].Time, Attempted: value.Time,
			}
		}
	}
	s.CreatedAt = tx.now
	s.UpdatedAt = tx.now
	feature.series[s.Name] = &seriesLog{series: cloneSeries(s)}
	return cloneSeries(s), nil
}

// DeleteSeries removes one property series.
func (tx *transaction) DeleteSeries(ref domain.SeriesRef) error {
	feature, ok := tx.state.findFeature(ref.CollectionID, ref.FeatureID)
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityFeature, ID: ref.FeatureID}
	}
	key := domain.NormalizeID(ref.Name)
	if _, ok := feature.series[key]; !ok {
		return domain.NotFoundError{Entity: domain.EntitySeries, ID: ref.Name}
	}
	delete(feature.series, key)
	return nil
}

// GetCollection retrieves a collection by id.
func (s *Store) GetCollection(id string) (Collection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arena, ok := s.state.findCollection(id)
	if !ok {
		return Collection{}, false
	}
	return cloneCollection(arena.record), true
}

// ListCollections returns all collections ordered by id.
func (s *Store) ListCollections() []Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Collection, 0, len(s.state.collections))
	for _, arena := range s.state.collections {
		out = append(out, cloneCollection(arena.record))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetFeature retrieves a feature by its ownership path.
func (s *Store) GetFeature(collectionID, featureID string) (MovingFeature, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	feature, ok := s.state.findFeature(collectionID, featureID)
	if !ok {
		return MovingFeature{}, false
	}
	return cloneFeature(feature.record), true
}

// ListFeaturePage returns one id-ordered page of a collection's features. The
// cursor is the id of the last feature of the previous page; an empty cursor
// starts from the beginning. Identical cursor and limit always yield the same
// page for unchanged state.
func (s *Store) ListFeaturePage(collectionID, cursor string, limit int) (domain.FeaturePage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arena, ok := s.state.findCollection(collectionID)
	if !ok {
		return domain.FeaturePage{}, domain.NotFoundError{Entity: domain.EntityCollection, ID: collectionID}
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	ids := make([]string, 0, len(arena.features))
	for id := range arena.features {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	page := domain.FeaturePage{NumberMatched: len(ids)}
	after := domain.NormalizeID(cursor)
	start := 0
	if after != "" {
		start = sort.SearchStrings(ids, after)
		if start < len(ids) && ids[start] == after {
			start++
		}
	}
	for _, id := range ids[start:] {
		if len(page.Features) == limit {
			page.NextCursor = page.Features[limit-1].ID
			break
		}
		page.Features = append(page.Features, cloneFeature(arena.features[id].record))
	}
	page.NumberReturned = len(page.Features)
	return page, nil
}

func validateSample(t *TemporalGeometryTrack, sample domain.TrackSample) error {
	if n := len(t.Samples); n > 0 && !sample.Time.After(t.Samples[n-1].Time) {
		return domain.TemporalOrderError{
			Entity: domain.EntityTrack, ID: t.ID,
			Last: t.Samples[n-1].Time, Attempted: sample.Time,
		}
	}
	dims := len(sample.Position)
	if t.NDims == 0 {
		if dims != 2 && dims != 3 {
			return domain.CRSMismatchError{TrackID: t.ID, Want: 2, Got: dims}
		}
	} else if dims != t.NDims {
		return domain.CRSMismatchError{TrackID: t.ID, Want: t.NDims, Got: dims}
	}
	t.Samples = append(t.Samples, domain.TrackSample{Time: sample.Time, Position: sample.Position.Clone()})
	return nil
}

// AppendSample appends one sample to a track. Appends to the same track are
// serialized; appends to different tracks run concurrently.
func (s *Store) AppendSample(_ context.Context, ref domain.TrackRef, sample domain.TrackSample) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log, ok := s.state.findTrack(ref)
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityTrack, ID: ref.TrackID}
	}
	log.mu.Lock()
	defer log.mu.Unlock()
	if err := validateSample(&log.track, sample); err != nil {
		return err
	}
	if log.track.NDims == 0 {
		log.track.NDims = len(sample.Position)
	}
	log.track.UpdatedAt = s.nowFn()
	return nil
}

// ReadTrack returns a copy of a track, optionally restricted to a time range.
func (s *Store) ReadTrack(_ context.Context, ref domain.TrackRef, within *domain.TimeRange) (TemporalGeometryTrack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log, ok := s.state.findTrack(ref)
	if !ok {
		return TemporalGeometryTrack{}, domain.NotFoundError{Entity: domain.EntityTrack, ID: ref.TrackID}
	}
	log.mu.Lock()
	defer log.mu.Unlock()
	out := log.track
	out.Samples = domain.FilterSamples(log.track.Samples, within)
	return out, nil
}

// InterpolatePosition evaluates a track's position at one instant per its
// interpolation mode. The boolean reports whether the instant is covered.
func (s *Store) InterpolatePosition(ctx context.Context, ref domain.TrackRef, at time.Time) (domain.Position, bool, error) {
	track, err := s.ReadTrack(ctx, ref, nil)
	if err != nil {
		return nil, false, err
	}
	pos, ok := track.PositionAt(at)
	return pos, ok, nil
}

// AppendValue appends one value to a property series.
func (s *Store) AppendValue(_ context.Context, ref domain.SeriesRef, value domain.SeriesValue) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log, ok := s.state.findSeries(ref)
	if !ok {
		return domain.NotFoundError{Entity: domain.EntitySeries, ID: ref.Name}
	}
	log.mu.Lock()
	defer log.mu.Unlock()
	series := &log.series
	switch series.ValueType {
	case domain.ValueText:
		if value.Text == "" {
			return domain.TypeMismatchError{Series: series.Name, Declared: domain.ValueText, Got: domain.ValueFloat}
		}
		value.Float = 0
	default:
		if value.Text != "" {
			return domain.TypeMismatchError{Series: series.Name, Declared: domain.ValueFloat, Got: domain.ValueText}
		}
	}
	if n := len(series.Values); n > 0 && !value.Time.After(series.Values[n-1].Time) {
		return domain.TemporalOrderError{
			Entity: domain.EntitySeries, ID: series.Name,
			Last: series.Values[n-1].Time, Attempted: value.Time,
		}
	}
	series.Values = append(series.Values, value)
	series.UpdatedAt = s.nowFn()
	return nil
}

// ReadSeries returns a copy of a series, optionally restricted to a time range.
func (s *Store) ReadSeries(_ context.Context, ref domain.SeriesRef, within *domain.TimeRange) (TemporalPropertySeries, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log, ok := s.state.findSeries(ref)
	if !ok {
		return TemporalPropertySeries{}, domain.NotFoundError{Entity: domain.EntitySeries, ID: ref.Name}
	}
	log.mu.Lock()
	defer log.mu.Unlock()
	out := log.series
	out.Values = domain.FilterValues(log.series.Values, within)
	return out, nil
}

// InterpolateValue evaluates a float series at one instant. Text series
// cannot be interpolated and yield a type mismatch.
func (s *Store) InterpolateValue(ctx context.Context, ref domain.SeriesRef, at time.Time) (float64, bool, error) {
	series, err := s.ReadSeries(ctx, ref, nil)
	if err != nil {
		return 0, false, err
	}
	if series.ValueType != domain.ValueFloat {
		return 0, false, domain.TypeMismatchError{Series: series.Name, Declared: series.ValueType, Got: domain.ValueFloat}
	}
	v, ok := series.FloatAt(at)
	return v, ok, nil
}
