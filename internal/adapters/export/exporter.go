// Package export renders collections to trajectory documents and persists
// them as immutable artifacts in a blob store.
package export

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"mfcore/internal/blob"
	"mfcore/internal/core"
	"mfcore/pkg/domain"
)

// Status describes the lifecycle stage of an export request.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Artifact captures one stored export artifact.
type Artifact struct {
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Record tracks one export request and its resulting artifacts.
type Record struct {
	ID           string     `json:"id"`
	CollectionID string     `json:"collection_id"`
	Status       Status     `json:"status"`
	Error        string     `json:"error,omitempty"`
	Artifacts    []Artifact `json:"artifacts,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Exporter renders collections synchronously. Exports run on the caller's
// goroutine and respect its context.
type Exporter struct {
	service   *core.Service
	store     blob.Store
	keyPrefix string
	pageLimit int

	mu      sync.RWMutex
	records map[string]Record
}

// Option customizes an Exporter.
type Option func(*Exporter)

// WithKeyPrefix overrides the artifact key prefix (default "collections").
func WithKeyPrefix(prefix string) Option {
	return func(e *Exporter) {
		if prefix != "" {
			e.keyPrefix = prefix
		}
	}
}

// WithPageLimit overrides the feature page size used while walking a
// collection (default 100).
func WithPageLimit(limit int) Option {
	return func(e *Exporter) {
		if limit > 0 {
			e.pageLimit = limit
		}
	}
}

// New constructs an exporter over the service and blob store.
func New(service *core.Service, store blob.Store, opts ...Option) *Exporter {
	e := &Exporter{
		service:   service,
		store:     store,
		keyPrefix: "collections",
		pageLimit: 100,
		records:   make(map[string]Record),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Get returns the record for an export id.
func (e *Exporter) Get(id string) (Record, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	record, ok := e.records[id]
	return record, ok
}

// featureDocument is the serialized form of one moving feature with its
// temporal geometries and properties, paired by index.
type featureDocument struct {
	Type               string                   `json:"type"`
	ID                 string                   `json:"id"`
	Properties         map[string]any           `json:"properties,omitempty"`
	Geometry           *domain.GeometryDocument `json:"geometry,omitempty"`
	Lifespan           []string                 `json:"time,omitempty"`
	TemporalGeometries []domain.TrackDocument   `json:"temporalGeometry,omitempty"`
	TemporalProperties []domain.SeriesDocument  `json:"temporalProperties,omitempty"`
}

// collectionDocument summarizes an exported collection.
type collectionDocument struct {
	ID             string         `json:"id"`
	Properties     map[string]any `json:"properties,omitempty"`
	Extent         core.Extent    `json:"extent"`
	NumberMatched  int            `json:"numberMatched"`
	NumberReturned int            `json:"numberReturned"`
	ExportedAt     time.Time      `json:"exported_at"`
}

// ExportCollection renders every feature of the collection and uploads one
// document per feature plus a collection summary. The returned record holds
// the artifact list; on failure the record carries the error.
func (e *Exporter) ExportCollection(ctx context.Context, collectionID string) (Record, error) {
	record := Record{
		ID:           newID(),
		CollectionID: collectionID,
		Status:       StatusRunning,
		CreatedAt:    time.Now().UTC(),
	}
	e.setRecord(record)

	artifacts, err := e.run(ctx, record.ID, collectionID)
	completed := time.Now().UTC()
	record.CompletedAt = &completed
	record.Artifacts = artifacts
	if err != nil {
		record.Status = StatusFailed
		record.Error = err.Error()
		e.setRecord(record)
		return record, err
	}
	record.Status = StatusSucceeded
	e.setRecord(record)
	return record, nil
}

func (e *Exporter) run(ctx context.Context, exportID, collectionID string) ([]Artifact, error) {
	collection, err := e.service.GetCollection(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	var artifacts []Artifact
	var exported int
	cursor := ""
	for {
		page, err := e.service.ListFeatures(ctx, collection.ID, cursor, e.pageLimit)
		if err != nil {
			return artifacts, err
		}
		for _, feature := range page.Features {
			if err := ctx.Err(); err != nil {
				return artifacts, err
			}
			artifact, err := e.exportFeature(ctx, exportID, feature)
			if err != nil {
				return artifacts, err
			}
			artifacts = append(artifacts, artifact)
			exported++
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	extent, err := e.service.CollectionExtent(ctx, collection.ID)
	if err != nil {
		return artifacts, err
	}
	summary := collectionDocument{
		ID:             collection.ID,
		Properties:     collection.Properties,
		Extent:         extent,
		NumberMatched:  exported,
		NumberReturned: exported,
		ExportedAt:     time.Now().UTC(),
	}
	key := fmt.Sprintf("%s/%s/%s/collection.json", e.keyPrefix, collection.ID, exportID)
	artifact, err := e.put(ctx, key, summary)
	if err != nil {
		return artifacts, err
	}
	return append(artifacts, artifact), nil
}

func (e *Exporter) exportFeature(ctx context.Context, exportID string, feature core.MovingFeature) (Artifact, error) {
	doc := featureDocument{
		Type:       "MovingFeature",
		ID:         feature.ID,
		Properties: feature.Properties,
	}
	if feature.Geometry != nil {
		g := domain.SerializeStaticGeometry(*feature.Geometry)
		doc.Geometry = &g
	}
	if feature.Lifespan != nil {
		doc.Lifespan = []string{
			feature.Lifespan.Begin.UTC().Format(time.RFC3339Nano),
			feature.Lifespan.End.UTC().Format(time.RFC3339Nano),
		}
	}
	tracks, err := e.service.ListTracks(ctx, feature.CollectionID, feature.ID)
	if err != nil {
		return Artifact{}, err
	}
	for _, track := range tracks {
		doc.TemporalGeometries = append(doc.TemporalGeometries, domain.SerializeTrack(track))
	}
	series, err := e.service.ListSeries(ctx, feature.CollectionID, feature.ID)
	if err != nil {
		return Artifact{}, err
	}
	for _, s := range series {
		doc.TemporalProperties = append(doc.TemporalProperties, domain.SerializeSeries(s))
	}
	key := fmt.Sprintf("%s/%s/%s/features/%s.json", e.keyPrefix, feature.CollectionID, exportID, feature.ID)
	return e.put(ctx, key, doc)
}

func (e *Exporter) put(ctx context.Context, key string, payload any) (Artifact, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Artifact{}, err
	}
	info, err := e.store.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{ContentType: "application/json"})
	if err != nil {
		return Artifact{}, fmt.Errorf("store %s: %w", key, err)
	}
	return Artifact{
		Key:         info.Key,
		ContentType: info.ContentType,
		SizeBytes:   info.Size,
		URL:         info.URL,
		CreatedAt:   info.LastModified,
	}, nil
}

func (e *Exporter) setRecord(record Record) {
	e.mu.Lock()
	e.records[record.ID] = record
	e.mu.Unlock()
}

func newID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}
