// -----------------------------------------------------------------------
// Content Store - Descriptor resolution, bounded downloads, cached listings
// -----------------------------------------------------------------------

package content

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/interfaces"
	"github.com/ternarybob/probo/internal/models"
	"github.com/ternarybob/probo/internal/services/cache"
)

// Cache TTLs per class. Folder structure changes rarely, file listings
// more often, raw content almost never within a run.
const (
	folderCacheTTL   = 10 * time.Minute
	fileCacheTTL     = 5 * time.Minute
	metadataCacheTTL = 15 * time.Minute
	contentCacheTTL  = 30 * time.Minute
)

// maxCacheableContentBytes bounds the payloads held in the content cache.
// Larger files are always re-downloaded.
const maxCacheableContentBytes = 5 * 1024 * 1024

// Existence checks run in chunks with a pause between chunks to stay
// under store API quotas.
const (
	existenceChunkSize  = 10
	existenceChunkPause = 200 * time.Millisecond
)

const defaultDownloadConcurrency = 6

// docExtensions are stripped during name matching. Only known document
// extensions are removed so names like "Policy v2.1" keep their suffix.
var docExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".txt":  true,
	".md":   true,
	".html": true,
	".htm":  true,
	".csv":  true,
	".xlsx": true,
}

// Service materializes reference documents from the document store. It
// owns the listing, metadata, and content caches and the bounded download
// queue.
type Service struct {
	logger       arbor.ILogger
	store        interfaces.DocumentStore
	extractor    interfaces.TextExtractor
	rootFolderID string

	folderCache   *cache.Store
	fileCache     *cache.Store
	metadataCache *cache.Store
	contentCache  *cache.Store

	slots   chan struct{}
	waiting atomic.Int32
}

// Compile-time interface assertion
var _ interfaces.ContentStore = (*Service)(nil)

// NewService creates a content store over the given document store.
// downloadConcurrency bounds simultaneous downloads; non-positive values
// use the default of 6.
func NewService(store interfaces.DocumentStore, extractor interfaces.TextExtractor, rootFolderID string, downloadConcurrency int, logger arbor.ILogger) *Service {
	if downloadConcurrency <= 0 {
		downloadConcurrency = defaultDownloadConcurrency
	}

	return &Service{
		logger:        logger,
		store:         store,
		extractor:     extractor,
		rootFolderID:  rootFolderID,
		folderCache:   cache.NewStore("folders"),
		fileCache:     cache.NewStore("files"),
		metadataCache: cache.NewStore("metadata"),
		contentCache:  cache.NewStore("content"),
		slots:         make(chan struct{}, downloadConcurrency),
	}
}

// Resolve maps one descriptor to its store file identifier.
func (s *Service) Resolve(ctx context.Context, descriptor models.DocumentDescriptor) (string, error) {
	folderID, err := s.findFolder(ctx, descriptor.Subfolder)
	if err != nil {
		return "", err
	}

	files, err := s.listFiles(ctx, folderID)
	if err != nil {
		return "", err
	}

	fileID := matchFileID(files, descriptor.Name)
	if fileID == "" {
		return "", models.NewNotFoundError(fmt.Sprintf("document %q does not exist in folder %q", descriptor.Name, descriptor.Subfolder))
	}

	return fileID, nil
}

// ResolveAll resolves many descriptors, listing each distinct folder once.
// Folder failures leave their descriptors unresolved and never abort the
// rest of the batch.
func (s *Service) ResolveAll(ctx context.Context, descriptors []models.DocumentDescriptor) []models.ResolvedDocument {
	resolved := make([]models.ResolvedDocument, len(descriptors))
	for i, d := range descriptors {
		resolved[i] = models.ResolvedDocument{Descriptor: d}
	}

	// Group descriptor indexes by subfolder, preserving first-seen order
	byFolder := make(map[string][]int)
	var folderOrder []string
	for i, d := range descriptors {
		if _, seen := byFolder[d.Subfolder]; !seen {
			folderOrder = append(folderOrder, d.Subfolder)
		}
		byFolder[d.Subfolder] = append(byFolder[d.Subfolder], i)
	}

	for _, subfolder := range folderOrder {
		indexes := byFolder[subfolder]

		folderID, err := s.findFolder(ctx, subfolder)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("subfolder", subfolder).
				Int("descriptors", len(indexes)).
				Msg("Folder resolution failed")
			continue
		}

		files, err := s.listFiles(ctx, folderID)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("subfolder", subfolder).
				Msg("File listing failed")
			continue
		}

		for _, i := range indexes {
			if fileID := matchFileID(files, descriptors[i].Name); fileID != "" {
				resolved[i].FileID = fileID
			} else {
				s.logger.Debug().
					Str("name", descriptors[i].Name).
					Str("subfolder", subfolder).
					Msg("No matching store file for descriptor")
			}
		}
	}

	return resolved
}

// ExistAll checks which file identifiers still exist in the store. Checks
// run concurrently within chunks of 10 with a 200ms pause between chunks.
// A failed check reports the identifier as absent.
func (s *Service) ExistAll(ctx context.Context, fileIDs []string) map[string]bool {
	results := make(map[string]bool, len(fileIDs))
	var mu sync.Mutex

	for start := 0; start < len(fileIDs); start += existenceChunkSize {
		if start > 0 {
			select {
			case <-ctx.Done():
				// Remaining identifiers report absent
				mu.Lock()
				for _, fileID := range fileIDs[start:] {
					results[fileID] = false
				}
				mu.Unlock()
				return results
			case <-time.After(existenceChunkPause):
			}
		}

		end := start + existenceChunkSize
		if end > len(fileIDs) {
			end = len(fileIDs)
		}

		var wg sync.WaitGroup
		for _, fileID := range fileIDs[start:end] {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				exists := s.checkExists(ctx, id)
				mu.Lock()
				results[id] = exists
				mu.Unlock()
			}(fileID)
		}
		wg.Wait()
	}

	return results
}

// Fetch downloads the raw bytes for one file through the bounded download
// queue. Content-cache hits return immediately without taking a queue slot.
func (s *Service) Fetch(ctx context.Context, fileID string) ([]byte, error) {
	if cached, ok := s.contentCache.Get(fileID); ok {
		return cached.([]byte), nil
	}

	s.waiting.Add(1)
	select {
	case s.slots <- struct{}{}:
		s.waiting.Add(-1)
	case <-ctx.Done():
		s.waiting.Add(-1)
		return nil, ctx.Err()
	}
	defer func() { <-s.slots }()

	// A concurrent fetch may have populated the cache while waiting
	if cached, ok := s.contentCache.Get(fileID); ok {
		return cached.([]byte), nil
	}

	data, err := s.store.GetFileBytes(ctx, fileID)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("file_id", fileID).
			Msg("Download failed")
		return nil, err
	}

	if len(data) < maxCacheableContentBytes {
		s.contentCache.Set(fileID, data, contentCacheTTL)
	}

	return data, nil
}

// ExtractText converts payload bytes to normalized plain text.
func (s *Service) ExtractText(data []byte) (string, error) {
	return s.extractor.ExtractText(data)
}

// CacheSizes reports live entry counts per cache class.
func (s *Service) CacheSizes() map[string]int {
	return map[string]int{
		"folders":  s.folderCache.Size(),
		"files":    s.fileCache.Size(),
		"metadata": s.metadataCache.Size(),
		"content":  s.contentCache.Size(),
	}
}

// QueueDepth returns the number of downloads waiting for a queue slot.
func (s *Service) QueueDepth() int {
	return int(s.waiting.Load())
}

// ClearCaches drops every cached entry across all classes.
func (s *Service) ClearCaches() int {
	cleared := s.folderCache.Clear() +
		s.fileCache.Clear() +
		s.metadataCache.Clear() +
		s.contentCache.Clear()

	s.logger.Info().Int("entries", cleared).Msg("Content caches cleared")
	return cleared
}

// Caches exposes the owned cache stores for background sweeping.
func (s *Service) Caches() []*cache.Store {
	return []*cache.Store{s.folderCache, s.fileCache, s.metadataCache, s.contentCache}
}

func (s *Service) listFolders(ctx context.Context) ([]models.FolderInfo, error) {
	if cached, ok := s.folderCache.Get(s.rootFolderID); ok {
		return cached.([]models.FolderInfo), nil
	}

	folders, err := s.store.ListFolders(ctx, s.rootFolderID)
	if err != nil {
		return nil, err
	}

	s.folderCache.Set(s.rootFolderID, folders, folderCacheTTL)
	return folders, nil
}

func (s *Service) listFiles(ctx context.Context, folderID string) ([]models.FileInfo, error) {
	if cached, ok := s.fileCache.Get(folderID); ok {
		return cached.([]models.FileInfo), nil
	}

	files, err := s.store.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}

	s.fileCache.Set(folderID, files, fileCacheTTL)
	return files, nil
}

func (s *Service) findFolder(ctx context.Context, name string) (string, error) {
	folders, err := s.listFolders(ctx)
	if err != nil {
		return "", err
	}

	for _, folder := range folders {
		if strings.EqualFold(folder.Name, name) {
			return folder.ID, nil
		}
	}

	return "", models.NewNotFoundError(fmt.Sprintf("folder %q does not exist in the store", name))
}

func (s *Service) checkExists(ctx context.Context, fileID string) bool {
	if _, ok := s.metadataCache.Get(fileID); ok {
		return true
	}

	meta, err := s.store.GetFileMetadata(ctx, fileID)
	if err != nil {
		s.logger.Debug().
			Err(err).
			Str("file_id", fileID).
			Msg("Existence check failed, treating as absent")
		return false
	}

	s.metadataCache.Set(fileID, meta, metadataCacheTTL)
	return true
}

// matchFileID finds the store file matching a descriptor name. Exact
// normalized matches win; otherwise the first listing entry containing
// the name (or contained by it) is used.
func matchFileID(files []models.FileInfo, name string) string {
	target := normalizeDocName(name)
	if target == "" {
		return ""
	}

	for _, file := range files {
		if normalizeDocName(file.Name) == target {
			return file.ID
		}
	}

	for _, file := range files {
		candidate := normalizeDocName(file.Name)
		if candidate == "" {
			continue
		}
		if strings.Contains(candidate, target) || strings.Contains(target, candidate) {
			return file.ID
		}
	}

	return ""
}

// normalizeDocName lowercases a document name and strips one known
// document extension for comparison.
func normalizeDocName(name string) string {
	trimmed := strings.TrimSpace(name)
	if ext := strings.ToLower(filepath.Ext(trimmed)); docExtensions[ext] {
		trimmed = trimmed[:len(trimmed)-len(ext)]
	}
	return strings.ToLower(strings.TrimSpace(trimmed))
}
