package interfaces

import "github.com/ternarybob/probo/internal/models"

// CatalogService serves the static index of reference documents loaded at
// startup.
type CatalogService interface {
	// Documents returns a copy of every catalog descriptor.
	Documents() []models.DocumentDescriptor

	// Count returns the number of catalog entries.
	Count() int
}
