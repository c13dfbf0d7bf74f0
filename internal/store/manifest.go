package store

import "time"

// VersionEntry is one line of the manifest's append-only refresh log.
type VersionEntry struct {
	ID          string `json:"id"`
	GeneratedAt string `json:"generated_at"`
	ETag        string `json:"etag"`
	RecordCount int    `json:"record_count"`
}

// Manifest is the process-wide pointer record. Latest is the single
// source of truth for what the read path serves; empty means no version
// has ever been published.
type Manifest struct {
	Latest    string         `json:"latest"`
	ETag      string         `json:"etag"`
	CheckedAt string         `json:"checked_at"`
	Versions  []VersionEntry `json:"versions"`
}

// HasVersion reports whether any version has been published.
func (m *Manifest) HasVersion() bool {
	return m.Latest != ""
}

// Advance appends a version entry and moves the latest pointer to it.
func (m *Manifest) Advance(version, etag string, recordCount int, now time.Time) {
	ts := now.UTC().Format(time.RFC3339)
	m.Latest = version
	m.ETag = etag
	m.CheckedAt = ts
	m.Versions = append(m.Versions, VersionEntry{
		ID:          version,
		GeneratedAt: ts,
		ETag:        etag,
		RecordCount: recordCount,
	})
}
