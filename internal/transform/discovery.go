// Package transform converts raw upstream feed entries into canonical
// model records. The capability and type vocabularies are discovered per
// refresh and passed in explicitly, so the transformer tracks upstream
// schema drift without code changes and overlapping refreshes can't
// contaminate each other.
package transform

import (
	"sort"
	"strings"

	"github.com/everstacklabs/modelfeed/internal/artifact"
)

// baseTypeMapping seeds the mode-tag vocabulary. Unrecognized tags get an
// identity mapping at discovery time.
var baseTypeMapping = map[string]string{
	"chat":                "chat",
	"completion":          "completion",
	"embedding":           "embedding",
	"image_generation":    "image",
	"audio_transcription": "audio",
	"audio_speech":        "audio",
	"moderation":          "moderation",
	"rerank":              "rerank",
}

// DefaultModelType is used when an entry carries no recognizable mode tag.
const DefaultModelType = "chat"

// Vocab is the refresh-scoped vocabulary: the discovered capability flag
// names and the mode-tag to model-type mapping.
type Vocab struct {
	Capabilities []string
	Types        map[string]string
}

// Discover scans all entries of one refresh and returns the vocabulary:
// every supports_* field name that is boolean on at least one entry, and
// a type mapping covering every mode tag seen.
func Discover(entries map[string]map[string]any) *Vocab {
	flags := make(map[string]struct{})
	types := make(map[string]string, len(baseTypeMapping))
	for tag, typ := range baseTypeMapping {
		types[tag] = typ
	}

	for _, entry := range entries {
		for key, val := range entry {
			if !strings.HasPrefix(key, artifact.CapabilityPrefix) {
				continue
			}
			if _, ok := val.(bool); ok {
				flags[key] = struct{}{}
			}
		}
		if mode, ok := entry["mode"].(string); ok && mode != "" {
			if _, known := types[mode]; !known {
				types[mode] = mode
			}
		}
	}

	caps := make([]string, 0, len(flags))
	for name := range flags {
		caps = append(caps, name)
	}
	sort.Strings(caps)

	return &Vocab{Capabilities: caps, Types: types}
}
