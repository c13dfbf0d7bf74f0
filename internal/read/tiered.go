// Package read implements the tiered read path: edge cache, then durable
// store, then the bundled snapshot. Reads never reach upstream and never
// fail outright while the bundled snapshot is present.
package read

import (
	"context"
	"log/slog"

	"github.com/everstacklabs/modelfeed/internal/artifact"
	"github.com/everstacklabs/modelfeed/internal/cache"
	"github.com/everstacklabs/modelfeed/internal/fallback"
	"github.com/everstacklabs/modelfeed/internal/store"
)

// Tier names where a read was served from.
type Tier string

const (
	TierCache    Tier = "cache"
	TierStore    Tier = "store"
	TierFallback Tier = "fallback"
)

// Tiered is the read-path facade over the cache, durable store, and
// bundled snapshot.
type Tiered struct {
	edge  *cache.Edge
	store *store.Store
}

// New creates a tiered reader.
func New(edge *cache.Edge, st *store.Store) *Tiered {
	return &Tiered{edge: edge, store: st}
}

// Get returns one artifact kind, degrading from fastest-and-freshest to
// slowest-and-stalest. A durable-store hit is written back into the edge
// cache best-effort. The returned error is non-nil only when even the
// bundled snapshot cannot be served.
func (t *Tiered) Get(ctx context.Context, kind artifact.Kind) ([]byte, Tier, error) {
	path := cache.WellKnownPath(kind)
	if body, ok := t.edge.Match(path); ok {
		return body, TierCache, nil
	}

	m, err := t.store.Manifest(ctx)
	if err != nil {
		slog.Warn("manifest read failed, serving bundled snapshot", "kind", kind, "error", err)
		return t.bundled(kind)
	}
	if !m.HasVersion() {
		return t.bundled(kind)
	}

	data, ok, err := t.store.Artifact(ctx, m.Latest, kind)
	if err != nil {
		slog.Warn("artifact read failed, serving bundled snapshot",
			"version", m.Latest, "kind", kind, "error", err)
		return t.bundled(kind)
	}
	if !ok {
		// Manifest points at a version the store doesn't hold; a
		// consistency anomaly, not a request failure.
		slog.Warn("manifest points at missing artifact, serving bundled snapshot",
			"version", m.Latest, "kind", kind)
		return t.bundled(kind)
	}

	t.edge.Put(path, data)
	return data, TierStore, nil
}

func (t *Tiered) bundled(kind artifact.Kind) ([]byte, Tier, error) {
	data, err := fallback.Artifact(kind)
	if err != nil {
		return nil, TierFallback, err
	}
	return data, TierFallback, nil
}
