// Package store owns durable persistence: versioned artifact sets under a
// key-value store plus the manifest record pointing at the latest version.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/everstacklabs/modelfeed/internal/artifact"
)

var codec = sonic.ConfigStd

// manifestKey is the fixed key holding the serialized Manifest.
const manifestKey = "manifest"

// KV is the narrow durable-store interface the pipeline consumes.
type KV interface {
	// Get returns the value for key, or ok=false when absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Put writes the value for key, overwriting any previous value.
	Put(ctx context.Context, key, value string) error
}

// Batcher is an optional KV capability: write several keys atomically.
// The publish path uses it when available so readers never observe a
// partially written version.
type Batcher interface {
	PutAll(ctx context.Context, kvs map[string]string) error
}

// ArtifactKey names one artifact of one version in the KV keyspace.
func ArtifactKey(version string, kind artifact.Kind) string {
	return version + ":" + string(kind)
}

// Store wraps a KV with the manifest and versioned-artifact protocol.
type Store struct {
	kv KV
}

// New creates a Store over the given KV.
func New(kv KV) *Store {
	return &Store{kv: kv}
}

// Manifest reads the manifest record. A missing record yields a zero
// Manifest (the no-version state), not an error.
func (s *Store) Manifest(ctx context.Context) (*Manifest, error) {
	value, ok, err := s.kv.Get(ctx, manifestKey)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	if !ok {
		return &Manifest{}, nil
	}
	var m Manifest
	if err := codec.Unmarshal([]byte(value), &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

// PutManifest writes the manifest record.
func (s *Store) PutManifest(ctx context.Context, m *Manifest) error {
	data, err := codec.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := s.kv.Put(ctx, manifestKey, string(data)); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// Artifact reads one artifact of one version.
func (s *Store) Artifact(ctx context.Context, version string, kind artifact.Kind) ([]byte, bool, error) {
	value, ok, err := s.kv.Get(ctx, ArtifactKey(version, kind))
	if err != nil {
		return nil, false, fmt.Errorf("reading artifact %s:%s: %w", version, kind, err)
	}
	if !ok {
		return nil, false, nil
	}
	return []byte(value), true, nil
}

// Publish writes a complete artifact set under a new version key and then
// advances the manifest. The manifest update is strictly last: a failed
// artifact write leaves the previous latest pointer intact, so a reader
// can never follow the manifest to an incomplete version.
func (s *Store) Publish(ctx context.Context, version string, set *artifact.Set, etag string, now time.Time) error {
	encoded := make(map[string]string, 4)
	for _, kind := range artifact.Kinds() {
		data, err := set.Encode(kind)
		if err != nil {
			return fmt.Errorf("encoding %s artifact: %w", kind, err)
		}
		encoded[ArtifactKey(version, kind)] = string(data)
	}

	if batcher, ok := s.kv.(Batcher); ok {
		if err := batcher.PutAll(ctx, encoded); err != nil {
			return fmt.Errorf("writing version %s: %w", version, err)
		}
	} else {
		for _, kind := range artifact.Kinds() {
			key := ArtifactKey(version, kind)
			if err := s.kv.Put(ctx, key, encoded[key]); err != nil {
				return fmt.Errorf("writing artifact %s: %w", key, err)
			}
		}
	}

	m, err := s.Manifest(ctx)
	if err != nil {
		return err
	}
	m.Advance(version, etag, set.Metadata.RecordCount, now)
	return s.PutManifest(ctx, m)
}

// Touch records a refresh attempt that published nothing (the unchanged
// short-circuit). Only checked_at moves.
func (s *Store) Touch(ctx context.Context, now time.Time) error {
	m, err := s.Manifest(ctx)
	if err != nil {
		return err
	}
	m.CheckedAt = now.UTC().Format(time.RFC3339)
	return s.PutManifest(ctx, m)
}
