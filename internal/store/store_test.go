package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/everstacklabs/modelfeed/internal/artifact"
)

func testSet(t *testing.T) *artifact.Set {
	t.Helper()
	records := []artifact.ModelRecord{
		{
			ProviderID: "openai", ProviderName: "OpenAI",
			ModelID: "gpt-4o", ModelName: "GPT-4o",
			ModelType:    "chat",
			Capabilities: map[string]bool{"supports_function_calling": true},
		},
	}
	return artifact.BuildSet(records, "test", time.Now())
}

func TestPublishAndReadBack(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	s := New(mem)
	set := testSet(t)
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	if err := s.Publish(ctx, "v20260828120000", set, `"etag1"`, now); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	m, err := s.Manifest(ctx)
	if err != nil {
		t.Fatalf("Manifest: %v", err)
	}
	if m.Latest != "v20260828120000" {
		t.Errorf("latest = %q", m.Latest)
	}
	if m.ETag != `"etag1"` {
		t.Errorf("etag = %q", m.ETag)
	}
	if len(m.Versions) != 1 || m.Versions[0].RecordCount != 1 {
		t.Errorf("version log = %+v", m.Versions)
	}

	for _, kind := range artifact.Kinds() {
		data, ok, err := s.Artifact(ctx, m.Latest, kind)
		if err != nil || !ok {
			t.Fatalf("Artifact(%s): ok=%v err=%v", kind, ok, err)
		}
		if len(data) == 0 {
			t.Errorf("artifact %s is empty", kind)
		}
	}

	// Four artifacts plus the manifest, nothing else.
	if got := mem.Len(); got != 5 {
		t.Errorf("stored keys = %d, want 5", got)
	}
}

func TestManifestMissingIsNoVersion(t *testing.T) {
	m, err := New(NewMemory()).Manifest(context.Background())
	if err != nil {
		t.Fatalf("Manifest: %v", err)
	}
	if m.HasVersion() {
		t.Error("fresh store should be in the no-version state")
	}
}

// failingKV rejects artifact writes but would accept a manifest write,
// proving Publish orders the manifest strictly last.
type failingKV struct {
	*Memory
}

func (f *failingKV) Put(ctx context.Context, key, value string) error {
	if strings.Contains(key, ":") {
		return errors.New("disk full")
	}
	return f.Memory.Put(ctx, key, value)
}

func (f *failingKV) PutAll(ctx context.Context, kvs map[string]string) error {
	for key, value := range kvs {
		if err := f.Put(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

func TestPublishFailureLeavesManifestUntouched(t *testing.T) {
	ctx := context.Background()
	s := New(&failingKV{Memory: NewMemory()})

	err := s.Publish(ctx, "v1", testSet(t), "", time.Now())
	if err == nil {
		t.Fatal("expected publish failure")
	}
	m, merr := s.Manifest(ctx)
	if merr != nil {
		t.Fatalf("Manifest: %v", merr)
	}
	if m.HasVersion() {
		t.Errorf("manifest advanced despite failed artifact write: %+v", m)
	}
}

func TestTouchOnlyMovesCheckedAt(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemory())
	if err := s.Publish(ctx, "v1", testSet(t), "tok", time.Unix(1000, 0)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	before, _ := s.Manifest(ctx)

	if err := s.Touch(ctx, time.Unix(5000, 0)); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	after, _ := s.Manifest(ctx)
	if after.Latest != before.Latest || after.ETag != before.ETag {
		t.Error("Touch must not alter latest or etag")
	}
	if len(after.Versions) != len(before.Versions) {
		t.Error("Touch must not append to the version log")
	}
	if after.CheckedAt == before.CheckedAt {
		t.Error("Touch should move checked_at")
	}
}

func TestSQLiteKV(t *testing.T) {
	ctx := context.Background()
	kv, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer kv.Close()

	if _, ok, err := kv.Get(ctx, "missing"); err != nil || ok {
		t.Errorf("missing key: ok=%v err=%v", ok, err)
	}

	if err := kv.Put(ctx, "k", "v1"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := kv.Put(ctx, "k", "v2"); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	value, ok, err := kv.Get(ctx, "k")
	if err != nil || !ok || value != "v2" {
		t.Errorf("Get = %q ok=%v err=%v, want v2", value, ok, err)
	}

	if err := kv.PutAll(ctx, map[string]string{"a": "1", "b": "2"}); err != nil {
		t.Fatalf("PutAll: %v", err)
	}
	if value, _, _ := kv.Get(ctx, "b"); value != "2" {
		t.Errorf("batch value = %q, want 2", value)
	}
}

func TestSQLiteBackedPublish(t *testing.T) {
	ctx := context.Background()
	kv, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer kv.Close()

	s := New(kv)
	if err := s.Publish(ctx, "v1", testSet(t), "tok", time.Now()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	m, err := s.Manifest(ctx)
	if err != nil || m.Latest != "v1" {
		t.Errorf("manifest = %+v err=%v", m, err)
	}
	if data, ok, _ := s.Artifact(ctx, "v1", artifact.KindList); !ok || len(data) == 0 {
		t.Error("list artifact missing after sqlite publish")
	}
}
