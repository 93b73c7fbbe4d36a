package catalog

import "github.com/starford/componentkit/internal/models"

// Catalog is the read/write surface used by the HTTP and MCP layers.
type Catalog interface {
	Upsert(e Entry) error
	Delete(ref models.Ref) error
	Hashes() (map[models.Ref]string, error)
	List(category models.Category) ([]Package, error)
	Get(ref models.Ref) (*Package, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

var _ Catalog = (*DB)(nil)
