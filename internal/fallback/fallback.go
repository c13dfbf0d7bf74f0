// Package fallback ships a build-time snapshot of one artifact set,
// served only when both the edge cache and the durable store come up
// empty. It is never refreshed at runtime.
package fallback

import (
	"fmt"
	"sync"
	"time"

	_ "embed"

	"github.com/everstacklabs/modelfeed/internal/artifact"
)

//go:embed snapshot.json
var snapshotJSON []byte

// snapshotDate is when the bundled snapshot was captured; it becomes the
// metadata generation timestamp so consumers can tell baseline data from
// fresh data.
const snapshotDate = "2026-08-01T00:00:00Z"

var (
	once    sync.Once
	set     *artifact.Set
	loadErr error
)

func load() {
	records, err := artifact.DecodeList(snapshotJSON)
	if err != nil {
		loadErr = fmt.Errorf("bundled snapshot: %w", err)
		return
	}
	captured, err := time.Parse(time.RFC3339, snapshotDate)
	if err != nil {
		loadErr = fmt.Errorf("bundled snapshot date: %w", err)
		return
	}
	set = artifact.BuildSet(records, "bundled-snapshot", captured)
}

// Set returns the bundled artifact set.
func Set() (*artifact.Set, error) {
	once.Do(load)
	return set, loadErr
}

// Artifact returns one serialized view of the bundled set.
func Artifact(kind artifact.Kind) ([]byte, error) {
	s, err := Set()
	if err != nil {
		return nil, err
	}
	return s.Encode(kind)
}
