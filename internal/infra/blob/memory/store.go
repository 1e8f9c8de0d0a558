// Package memory implements the blob Store in process memory, for tests and
// ephemeral runs where no artifact needs to outlive the process.
package memory

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"mfcore/internal/blob/core"
)

// object holds one blob's payload and the raw fields its Info is built from.
// The Info itself is materialized per call so callers can never alias shared
// state.
type object struct {
	data        []byte
	contentType string
	metadata    map[string]string
	etag        string
	storedAt    time.Time
}

func (o *object) info(key string) core.Info {
	return core.Info{
		Key:          key,
		Size:         int64(len(o.data)),
		ContentType:  o.contentType,
		ETag:         o.etag,
		Metadata:     copyMetadata(o.metadata),
		LastModified: o.storedAt,
	}
}

// Store implements core.Store over a mutex-guarded map.
type Store struct {
	mu      sync.RWMutex
	objects map[string]*object
}

// New returns an empty in-memory blob store.
func New() *Store { return &Store{objects: make(map[string]*object)} }

// Driver returns the blob driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Put stores a new blob under key. Like the durable backends it is
// create-only and computes a sha256 etag over the payload.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return core.Info{}, err
	}
	sum := sha256.Sum256(data)
	obj := &object{
		data:        data,
		contentType: opts.ContentType,
		metadata:    copyMetadata(opts.Metadata),
		etag:        hex.EncodeToString(sum[:]),
		storedAt:    time.Now().UTC(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[key]; exists {
		return core.Info{}, fmt.Errorf("blob %s already exists", key)
	}
	s.objects[key] = obj
	return obj.info(key), nil
}

// Get returns the blob's metadata and a reader over a copy of its payload.
func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return core.Info{}, nil, fmt.Errorf("blob %s not found", key)
	}
	payload := append([]byte(nil), obj.data...)
	return obj.info(key), io.NopCloser(bytes.NewReader(payload)), nil
}

// Head returns the blob's metadata only.
func (s *Store) Head(_ context.Context, key string) (core.Info, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return core.Info{}, fmt.Errorf("blob %s not found", key)
	}
	return obj.info(key), nil
}

// Delete removes the blob, reporting whether it existed.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return false, nil
	}
	delete(s.objects, key)
	return true, nil
}

// List returns metadata for every blob whose key carries prefix, ordered by
// key ascending.
func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	infos := make([]core.Info, 0, len(keys))
	for _, key := range keys {
		infos = append(infos, s.objects[key].info(key))
	}
	return infos, nil
}

// PresignURL is unsupported for the memory driver.
func (s *Store) PresignURL(_ context.Context, _ string, _ core.SignedURLOptions) (string, error) {
	return "", core.ErrUnsupported
}

func copyMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
