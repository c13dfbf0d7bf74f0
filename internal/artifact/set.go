package artifact

import (
	"fmt"
	"sort"
	"time"
)

// SchemaVersion tags the artifact shape; bump when serialized fields change.
const SchemaVersion = "2.0"

// Kind names one of the four co-located views of a version's data.
type Kind string

const (
	KindList      Kind = "list"
	KindMap       Kind = "map"
	KindProviders Kind = "providers"
	KindMetadata  Kind = "metadata"
)

// Kinds returns all artifact kinds in publish order.
func Kinds() []Kind {
	return []Kind{KindList, KindMap, KindProviders, KindMetadata}
}

// Metadata describes one version's build.
type Metadata struct {
	Source        string `json:"source"`
	GeneratedAt   string `json:"generated_at"`
	RecordCount   int    `json:"record_count"`
	SchemaVersion string `json:"schema_version"`
}

// Set is one version's four views. All are derived from a single sorted
// pass, so they agree on content by construction.
type Set struct {
	List       []ModelRecord
	Map        map[string]ModelRecord
	ByProvider map[string][]ModelRecord
	Metadata   Metadata
}

// BuildSet sorts records into canonical (provider_id, model_id) order and
// derives the map and by-provider views from the sorted sequence.
// Callers must have resolved duplicate model ids already.
func BuildSet(records []ModelRecord, source string, generatedAt time.Time) *Set {
	sorted := make([]ModelRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ProviderID != sorted[j].ProviderID {
			return sorted[i].ProviderID < sorted[j].ProviderID
		}
		return sorted[i].ModelID < sorted[j].ModelID
	})

	byID := make(map[string]ModelRecord, len(sorted))
	byProvider := make(map[string][]ModelRecord)
	for _, r := range sorted {
		byID[r.ModelID] = r
		byProvider[r.ProviderID] = append(byProvider[r.ProviderID], r)
	}

	return &Set{
		List:       sorted,
		Map:        byID,
		ByProvider: byProvider,
		Metadata: Metadata{
			Source:        source,
			GeneratedAt:   generatedAt.UTC().Format(time.RFC3339),
			RecordCount:   len(sorted),
			SchemaVersion: SchemaVersion,
		},
	}
}

// Encode serializes one view as JSON.
func (s *Set) Encode(kind Kind) ([]byte, error) {
	switch kind {
	case KindList:
		return codec.Marshal(s.List)
	case KindMap:
		return codec.Marshal(s.Map)
	case KindProviders:
		return codec.Marshal(s.ByProvider)
	case KindMetadata:
		return codec.Marshal(s.Metadata)
	}
	return nil, fmt.Errorf("unknown artifact kind %q", kind)
}

// Decode parses a list artifact back into records. The map and provider
// views are rebuildable from it, so the bundled fallback ships only a list.
func DecodeList(data []byte) ([]ModelRecord, error) {
	var records []ModelRecord
	if err := codec.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding list artifact: %w", err)
	}
	return records, nil
}
