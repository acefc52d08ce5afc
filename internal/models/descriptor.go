package models

// DocumentDescriptor identifies a reference document in the corpus without
// its content. Descriptors come from the static policy catalog loaded once
// at startup and are read-only to the pipeline.
type DocumentDescriptor struct {
	Subfolder   string   `json:"subfolder" yaml:"subfolder" validate:"required"` // Category folder name inside the store
	Name        string   `json:"name" yaml:"name" validate:"required"`           // Document file name (extension optional)
	Category    string   `json:"category" yaml:"category" validate:"required"`   // Compliance category the document belongs to
	Keywords    []string `json:"keywords" yaml:"keywords"`                       // Topical keywords for ranking
	Description string   `json:"description" yaml:"description"`                 // Short description of the document's coverage
}

// ScoredDocument pairs a descriptor with its relevance score for one
// question. Ephemeral, produced per question, never persisted.
type ScoredDocument struct {
	Descriptor DocumentDescriptor `json:"descriptor"`
	Score      int                `json:"score"`
}

// ResolvedDocument pairs a descriptor with the store file it resolved to.
// FileID is empty when no stored file matched the descriptor.
type ResolvedDocument struct {
	Descriptor DocumentDescriptor `json:"descriptor"`
	FileID     string             `json:"file_id,omitempty"`
}

// FolderInfo is a folder listing entry from the document store.
type FolderInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FileInfo is a file listing entry from the document store.
type FileInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// FileMetadata is the metadata record for a single stored file.
type FileMetadata struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mime_type"`
	ModifiedTime string `json:"modified_time"`
}
