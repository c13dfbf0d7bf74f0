package refresh

import (
	"fmt"

	"github.com/everstacklabs/modelfeed/internal/artifact"
	"github.com/everstacklabs/modelfeed/internal/cache"
)

// Warm copies a freshly built artifact set into the edge cache under the
// four well-known paths. A pure denormalized copy: safe to lose, safe to
// overwrite, written only by the refresh flow.
func Warm(edge *cache.Edge, set *artifact.Set) error {
	for _, kind := range artifact.Kinds() {
		data, err := set.Encode(kind)
		if err != nil {
			return fmt.Errorf("encoding %s for cache warm: %w", kind, err)
		}
		edge.Put(cache.WellKnownPath(kind), data)
	}
	return nil
}
