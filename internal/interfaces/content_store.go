package interfaces

import (
	"context"

	"github.com/ternarybob/probo/internal/models"
)

// ContentStore materializes reference documents: it resolves descriptors to
// store file identifiers, downloads content through a bounded queue, and
// extracts normalized text. Folder listings, file listings, metadata, and
// small payloads are cached with per-class TTLs.
type ContentStore interface {
	// Resolve maps one descriptor to its store file identifier.
	// Returns a not-found classified error when no stored file matches.
	Resolve(ctx context.Context, descriptor models.DocumentDescriptor) (string, error)

	// ResolveAll resolves many descriptors at once, batching same-folder
	// descriptors into a single listing call per folder. Descriptors
	// without a match are returned with an empty FileID; resolution
	// failures never abort the batch.
	ResolveAll(ctx context.Context, descriptors []models.DocumentDescriptor) []models.ResolvedDocument

	// ExistAll checks which of the given file identifiers still exist in
	// the store. Checks run in chunks with an inter-chunk pause; a failed
	// check reports the identifier as absent rather than erroring.
	ExistAll(ctx context.Context, fileIDs []string) map[string]bool

	// Fetch downloads the raw bytes for one file identifier through the
	// bounded download queue. A content-cache hit bypasses the queue.
	Fetch(ctx context.Context, fileID string) ([]byte, error)

	// ExtractText converts payload bytes to normalized plain text:
	// control characters stripped, whitespace collapsed, no truncation.
	ExtractText(data []byte) (string, error)

	// CacheSizes reports live entry counts per cache class.
	CacheSizes() map[string]int

	// QueueDepth returns the number of downloads waiting in the queue.
	QueueDepth() int

	// ClearCaches drops every cached entry and returns how many were
	// removed across all classes.
	ClearCaches() int
}
