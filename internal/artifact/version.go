package artifact

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
	"time"
)

// NewVersionID derives a compact, sortable version id from a timestamp.
// Second granularity keeps hourly refreshes collision-free.
func NewVersionID(t time.Time) string {
	return "v" + t.UTC().Format("20060102150405")
}

// Fingerprint computes a deterministic content token over the normalized
// upstream payload: entries serialized in key-sorted order and folded
// through FNV-1a. Used as the change token when the transport supplies
// no ETag.
func Fingerprint(entries map[string]json.RawMessage) string {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := fnv.New64a()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write(entries[k])
		h.Write([]byte{0})
	}
	return fmt.Sprintf("fnv:%016x", h.Sum64())
}
