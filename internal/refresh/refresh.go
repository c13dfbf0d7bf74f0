// Package refresh orchestrates the transform-and-publish pipeline:
// change detection, fetch, discovery, per-record transform, publish, and
// cache warm. One Refresher instance serves both the scheduler and the
// manual trigger, so a process never runs overlapping refreshes.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/everstacklabs/modelfeed/internal/artifact"
	"github.com/everstacklabs/modelfeed/internal/cache"
	"github.com/everstacklabs/modelfeed/internal/store"
	"github.com/everstacklabs/modelfeed/internal/transform"
	"github.com/everstacklabs/modelfeed/internal/upstream"
)

// Outcome classifies a refresh run.
type Outcome string

const (
	OutcomePublished Outcome = "published"
	OutcomeUnchanged Outcome = "unchanged"
)

// Result reports one refresh run.
type Result struct {
	Outcome     Outcome
	Version     string
	RecordCount int
	ETag        string
	Duration    time.Duration
}

// Refresher runs the refresh flow against one upstream feed.
type Refresher struct {
	mu      sync.Mutex
	client  *upstream.Client
	store   *store.Store
	edge    *cache.Edge
	feedURL string
	now     func() time.Time
}

// New creates a Refresher.
func New(client *upstream.Client, st *store.Store, edge *cache.Edge, feedURL string) *Refresher {
	if feedURL == "" {
		feedURL = upstream.DefaultFeedURL
	}
	return &Refresher{
		client:  client,
		store:   st,
		edge:    edge,
		feedURL: feedURL,
		now:     time.Now,
	}
}

// Run executes one refresh. Unless forced, a cheap change-token probe
// short-circuits the whole build when the upstream is unchanged; the
// probe is best-effort and a probe failure falls through to a full
// build. Any fetch or publish failure aborts the run without touching
// the previously published version.
func (r *Refresher) Run(ctx context.Context, force bool) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := r.now()

	if !force {
		unchanged, token := r.probeUnchanged(ctx)
		if unchanged {
			if err := r.store.Touch(ctx, r.now()); err != nil {
				slog.Warn("recording unchanged check failed", "error", err)
			}
			slog.Info("refresh skipped, upstream unchanged", "etag", token)
			return &Result{Outcome: OutcomeUnchanged, ETag: token, Duration: r.now().Sub(start)}, nil
		}
	}

	feed, err := r.client.Fetch(ctx, r.feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetching upstream feed: %w", err)
	}

	vocab := transform.Discover(feed.Entries)
	records := transformAll(feed.Entries, vocab)

	token := feed.ETag
	if token == "" {
		token = artifact.Fingerprint(feed.Raw)
	}

	// Second change check for transports without ETags: the fingerprint
	// only exists after the fetch, but it still saves the publish.
	if !force {
		m, err := r.store.Manifest(ctx)
		if err == nil && m.HasVersion() && m.ETag == token {
			if err := r.store.Touch(ctx, r.now()); err != nil {
				slog.Warn("recording unchanged check failed", "error", err)
			}
			slog.Info("refresh skipped, content fingerprint unchanged", "etag", token)
			return &Result{Outcome: OutcomeUnchanged, ETag: token, Duration: r.now().Sub(start)}, nil
		}
	}

	generatedAt := r.now()
	set := artifact.BuildSet(records, r.feedURL, generatedAt)
	version := artifact.NewVersionID(generatedAt)

	if err := r.store.Publish(ctx, version, set, token, generatedAt); err != nil {
		return nil, fmt.Errorf("publishing version %s: %w", version, err)
	}

	if err := Warm(r.edge, set); err != nil {
		// Never fatal; the read path tolerates an empty cache.
		slog.Warn("cache warm failed", "version", version, "error", err)
	}

	result := &Result{
		Outcome:     OutcomePublished,
		Version:     version,
		RecordCount: set.Metadata.RecordCount,
		ETag:        token,
		Duration:    r.now().Sub(start),
	}
	slog.Info("refresh published",
		"version", version,
		"models", result.RecordCount,
		"etag", token,
		"duration", result.Duration)
	return result, nil
}

// probeUnchanged runs the cheap pre-build check. Returns true only when
// a token was obtained and matches the manifest's recorded token.
func (r *Refresher) probeUnchanged(ctx context.Context) (bool, string) {
	token, err := r.client.Probe(ctx, r.feedURL)
	if err != nil {
		slog.Warn("change probe failed, proceeding to full build", "error", err)
		return false, ""
	}
	if token == "" {
		return false, ""
	}
	m, err := r.store.Manifest(ctx)
	if err != nil {
		slog.Warn("manifest read failed during change probe", "error", err)
		return false, token
	}
	return m.HasVersion() && m.ETag == token, token
}

// transformAll runs the record transformer over every validated entry
// and drops records that fail the published-record invariants. Entries
// are walked in sorted raw-id order so duplicate model ids resolve
// deterministically: the lexicographically later raw id wins.
func transformAll(entries map[string]map[string]any, vocab *transform.Vocab) []artifact.ModelRecord {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	byModelID := make(map[string]artifact.ModelRecord, len(ids))
	for _, id := range ids {
		rec := transform.Record(id, entries[id], vocab)
		if rec == nil {
			slog.Debug("dropping untransformable entry", "id", id)
			continue
		}
		if err := rec.Validate(); err != nil {
			slog.Warn("dropping invalid record", "id", id, "error", err)
			continue
		}
		if _, dup := byModelID[rec.ModelID]; dup {
			slog.Debug("duplicate model id after transform, last write wins",
				"model_id", rec.ModelID, "raw_id", id)
		}
		byModelID[rec.ModelID] = *rec
	}

	records := make([]artifact.ModelRecord, 0, len(byModelID))
	for _, rec := range byModelID {
		records = append(records, rec)
	}
	return records
}
