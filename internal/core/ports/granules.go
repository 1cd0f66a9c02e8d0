package ports

import (
	"context"

	"github.com/calvales/co2scope/internal/core/domain"
)

// GranuleSource abstracts the on-disk granule collection so the use cases
// can be exercised against fixtures.
type GranuleSource interface {
	// List returns the granule paths in a stable order.
	List(ctx context.Context) ([]string, error)

	// Read decodes one granule fully into memory. Vertex columns are only
	// decoded when withFootprints is set.
	Read(ctx context.Context, path string, withFootprints bool) (*domain.Granule, error)

	// Stat gathers catalog metadata without decoding the data columns.
	Stat(ctx context.Context, path string) (*domain.GranuleInfo, error)

	// Ping reports whether the collection is reachable at all.
	Ping(ctx context.Context) error
}
