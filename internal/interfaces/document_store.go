package interfaces

import (
	"context"

	"github.com/ternarybob/probo/internal/models"
)

// DocumentStore is the narrow contract against the remote object store
// holding the reference corpus. Implementations wrap the Google Drive API;
// the pipeline never sees provider-specific types.
type DocumentStore interface {
	// ListFolders returns the folders directly under the given parent.
	ListFolders(ctx context.Context, parentID string) ([]models.FolderInfo, error)

	// ListFiles returns the files directly inside the given folder.
	ListFiles(ctx context.Context, folderID string) ([]models.FileInfo, error)

	// GetFileBytes downloads the raw content of a single file.
	GetFileBytes(ctx context.Context, fileID string) ([]byte, error)

	// GetFileMetadata returns the metadata record for a single file.
	GetFileMetadata(ctx context.Context, fileID string) (*models.FileMetadata, error)
}
