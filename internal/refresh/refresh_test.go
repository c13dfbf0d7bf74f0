package refresh

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/everstacklabs/modelfeed/internal/artifact"
	"github.com/everstacklabs/modelfeed/internal/cache"
	"github.com/everstacklabs/modelfeed/internal/store"
	"github.com/everstacklabs/modelfeed/internal/transform"
	"github.com/everstacklabs/modelfeed/internal/upstream"
)

const feedBody = `{
	"sample_spec": {"litellm_provider": "doc"},
	"openai/gpt-4": {
		"litellm_provider": "openai",
		"mode": "chat",
		"input_cost_per_token": 0.00003,
		"output_cost_per_token": 0.00006,
		"max_input_tokens": 8192,
		"max_output_tokens": 8192,
		"supports_function_calling": true
	},
	"anthropic/claude-3-opus": {
		"litellm_provider": "anthropic",
		"mode": "chat",
		"input_cost_per_token": 0.000015,
		"output_cost_per_token": 0.000075
	},
	"broken": {"mode": "chat"}
}`

type feedServer struct {
	etag    string
	body    string
	fetches int64
	probes  int64
}

func (f *feedServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f.etag != "" {
			w.Header().Set("ETag", f.etag)
		}
		if r.Method == http.MethodHead {
			atomic.AddInt64(&f.probes, 1)
			return
		}
		atomic.AddInt64(&f.fetches, 1)
		w.Write([]byte(f.body))
	})
}

func newRefresher(t *testing.T, url string) (*Refresher, *store.Store, *cache.Edge) {
	t.Helper()
	st := store.New(store.NewMemory())
	edge := cache.New(0)
	r := New(upstream.New(), st, edge, url)

	// Deterministic, strictly advancing clock so every publish in a
	// test gets its own version id.
	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	var ticks int64
	r.now = func() time.Time {
		return base.Add(time.Duration(atomic.AddInt64(&ticks, 1)) * time.Second)
	}
	return r, st, edge
}

func TestRunPublishes(t *testing.T) {
	ctx := context.Background()
	feed := &feedServer{etag: `"e1"`, body: feedBody}
	srv := httptest.NewServer(feed.handler())
	defer srv.Close()

	r, st, edge := newRefresher(t, srv.URL)
	result, err := r.Run(ctx, false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome != OutcomePublished {
		t.Fatalf("outcome = %s, want published", result.Outcome)
	}
	if result.RecordCount != 2 {
		t.Errorf("record count = %d, want 2 (sentinel and invalid entries dropped)", result.RecordCount)
	}

	m, err := st.Manifest(ctx)
	if err != nil {
		t.Fatalf("Manifest: %v", err)
	}
	if m.Latest != result.Version {
		t.Errorf("manifest latest = %q, result version = %q", m.Latest, result.Version)
	}
	if m.ETag != `"e1"` {
		t.Errorf("manifest etag = %q", m.ETag)
	}

	// The warm happened: every kind is a cache hit.
	for _, kind := range artifact.Kinds() {
		if _, ok := edge.Match(cache.WellKnownPath(kind)); !ok {
			t.Errorf("cache not warmed for %s", kind)
		}
	}
}

func TestRunShortCircuitsOnMatchingETag(t *testing.T) {
	ctx := context.Background()
	feed := &feedServer{etag: `"stable"`, body: feedBody}
	srv := httptest.NewServer(feed.handler())
	defer srv.Close()

	r, st, _ := newRefresher(t, srv.URL)
	first, err := r.Run(ctx, false)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}

	second, err := r.Run(ctx, false)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.Outcome != OutcomeUnchanged {
		t.Fatalf("outcome = %s, want unchanged", second.Outcome)
	}

	m, _ := st.Manifest(ctx)
	if m.Latest != first.Version {
		t.Error("short-circuited run must not alter latest")
	}
	if len(m.Versions) != 1 {
		t.Errorf("version log grew to %d entries on an unchanged run", len(m.Versions))
	}
	if atomic.LoadInt64(&feed.fetches) != 1 {
		t.Errorf("unchanged run performed a full fetch (%d fetches)", feed.fetches)
	}
}

func TestRunFingerprintShortCircuitWithoutETag(t *testing.T) {
	ctx := context.Background()
	feed := &feedServer{body: feedBody} // no ETag from transport
	srv := httptest.NewServer(feed.handler())
	defer srv.Close()

	r, st, _ := newRefresher(t, srv.URL)
	first, err := r.Run(ctx, false)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}

	second, err := r.Run(ctx, false)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.Outcome != OutcomeUnchanged {
		t.Fatalf("outcome = %s, want unchanged via fingerprint", second.Outcome)
	}
	if second.ETag != first.ETag {
		t.Errorf("fingerprint drifted across identical payloads: %q vs %q", second.ETag, first.ETag)
	}

	m, _ := st.Manifest(ctx)
	if len(m.Versions) != 1 {
		t.Errorf("version log = %d entries, want 1", len(m.Versions))
	}
}

func TestRunForceBypassesChangeDetection(t *testing.T) {
	ctx := context.Background()
	feed := &feedServer{etag: `"stable"`, body: feedBody}
	srv := httptest.NewServer(feed.handler())
	defer srv.Close()

	r, st, _ := newRefresher(t, srv.URL)
	if _, err := r.Run(ctx, false); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := r.Run(ctx, true)
	if err != nil {
		t.Fatalf("forced Run: %v", err)
	}
	if second.Outcome != OutcomePublished {
		t.Fatalf("forced outcome = %s, want published", second.Outcome)
	}

	m, _ := st.Manifest(ctx)
	if len(m.Versions) != 2 {
		t.Errorf("version log = %d entries, want 2", len(m.Versions))
	}
	if m.Latest != second.Version {
		t.Error("latest did not advance on forced refresh")
	}
}

func TestRunUpstreamFailureLeavesStateAlone(t *testing.T) {
	ctx := context.Background()
	feed := &feedServer{etag: `"e1"`, body: feedBody}
	srv := httptest.NewServer(feed.handler())

	r, st, _ := newRefresher(t, srv.URL)
	first, err := r.Run(ctx, false)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}

	srv.Close()
	if _, err := r.Run(ctx, true); err == nil {
		t.Fatal("expected error when upstream is unreachable")
	}

	m, _ := st.Manifest(ctx)
	if m.Latest != first.Version {
		t.Error("failed refresh corrupted the manifest")
	}
}

func TestRunMalformedPayloadAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{broken`))
	}))
	defer srv.Close()

	r, st, _ := newRefresher(t, srv.URL)
	if _, err := r.Run(context.Background(), true); err == nil {
		t.Fatal("expected error for malformed payload")
	}
	m, _ := st.Manifest(context.Background())
	if m.HasVersion() {
		t.Error("malformed payload must not publish a version")
	}
}

func TestTransformAllDropsInvalidRecords(t *testing.T) {
	entries := map[string]map[string]any{
		"openai/gpt-4": {"litellm_provider": "openai", "input_cost_per_token": 0.00003},
		"openai/bogus": {"litellm_provider": "openai", "input_cost_per_token": -0.5},
	}
	records := transformAll(entries, transform.Discover(entries))
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1 after dropping the negative-cost entry", len(records))
	}
	if records[0].ModelID != "gpt-4" {
		t.Errorf("survivor = %q, want gpt-4", records[0].ModelID)
	}
	if records[0].InputCostPerMillion < 0 {
		t.Error("published record carries a negative derived cost")
	}
}

func TestTransformAllLastWriteWins(t *testing.T) {
	entries := map[string]map[string]any{
		"gpt-4":        {"litellm_provider": "openai", "input_cost_per_token": 0.1},
		"openai/gpt-4": {"litellm_provider": "openai", "input_cost_per_token": 0.2},
	}
	records := transformAll(entries, transform.Discover(entries))
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1 after duplicate resolution", len(records))
	}
	// Sorted raw-id order: "gpt-4" then "openai/gpt-4"; the later wins.
	if records[0].InputCostPerToken != 0.2 {
		t.Errorf("winner cost = %v, want 0.2 (lexicographically later raw id)", records[0].InputCostPerToken)
	}
}
