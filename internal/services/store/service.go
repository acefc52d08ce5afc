// -----------------------------------------------------------------------
// Drive Document Store - Google Drive v3 access to the reference corpus
// -----------------------------------------------------------------------

package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/interfaces"
	"github.com/ternarybob/probo/internal/models"
)

// Google Workspace MIME types with dedicated handling.
const (
	MimeTypeFolder       = "application/vnd.google-apps.folder"
	MimeTypeGoogleDoc    = "application/vnd.google-apps.document"
	MimeTypeGoogleSheet  = "application/vnd.google-apps.spreadsheet"
	MimeTypeGoogleSlides = "application/vnd.google-apps.presentation"
)

// Export formats for Google Workspace files.
const (
	ExportMimeText = "text/plain"
	ExportMimeCSV  = "text/csv"
)

const (
	listPageSize   = 100
	defaultTimeout = 2 * time.Minute
)

// Service implements the document store contract against the Google Drive
// v3 API using service account credentials.
type Service struct {
	client  *drive.Service
	limiter *RateLimiter
	timeout time.Duration
	logger  arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.DocumentStore = (*Service)(nil)

// NewService creates a Drive-backed document store from service account
// credentials with read-only scope.
func NewService(ctx context.Context, cfg *common.StoreConfig, logger arbor.ILogger) (*Service, error) {
	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read store credentials: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse store credentials: %w", err)
	}

	client, err := drive.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive client: %w", err)
	}

	timeout := defaultTimeout
	if parsed, err := time.ParseDuration(cfg.Timeout); err == nil && parsed > 0 {
		timeout = parsed
	}

	return &Service{
		client:  client,
		limiter: NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
		timeout: timeout,
		logger:  logger,
	}, nil
}

// ListFolders returns the folders directly under the given parent.
func (s *Service) ListFolders(ctx context.Context, parentID string) ([]models.FolderInfo, error) {
	ctx, cancel := s.callContext(ctx)
	defer cancel()

	query := fmt.Sprintf("'%s' in parents and mimeType = '%s' and trashed = false", parentID, MimeTypeFolder)

	folders := make([]models.FolderInfo, 0)
	pageToken := ""
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		call := s.client.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name)").
			PageSize(listPageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		result, err := call.Do()
		if err != nil {
			return nil, s.wrapError("list folders", err)
		}

		for _, f := range result.Files {
			folders = append(folders, models.FolderInfo{ID: f.Id, Name: f.Name})
		}

		pageToken = result.NextPageToken
		if pageToken == "" {
			break
		}
	}

	s.logger.Debug().
		Str("parent_id", parentID).
		Int("count", len(folders)).
		Msg("Listed store folders")

	return folders, nil
}

// ListFiles returns the files directly inside the given folder.
func (s *Service) ListFiles(ctx context.Context, folderID string) ([]models.FileInfo, error) {
	ctx, cancel := s.callContext(ctx)
	defer cancel()

	query := fmt.Sprintf("'%s' in parents and mimeType != '%s' and trashed = false", folderID, MimeTypeFolder)

	files := make([]models.FileInfo, 0)
	pageToken := ""
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		call := s.client.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, size)").
			PageSize(listPageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		result, err := call.Do()
		if err != nil {
			return nil, s.wrapError("list files", err)
		}

		for _, f := range result.Files {
			files = append(files, models.FileInfo{ID: f.Id, Name: f.Name, Size: f.Size})
		}

		pageToken = result.NextPageToken
		if pageToken == "" {
			break
		}
	}

	s.logger.Debug().
		Str("folder_id", folderID).
		Int("count", len(files)).
		Msg("Listed store files")

	return files, nil
}

// GetFileMetadata returns the metadata record for a single file.
func (s *Service) GetFileMetadata(ctx context.Context, fileID string) (*models.FileMetadata, error) {
	ctx, cancel := s.callContext(ctx)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	file, err := s.client.Files.Get(fileID).
		Fields("id, name, size, mimeType, modifiedTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, s.wrapError("get file metadata", err)
	}

	return &models.FileMetadata{
		ID:           file.Id,
		Name:         file.Name,
		Size:         file.Size,
		MimeType:     file.MimeType,
		ModifiedTime: file.ModifiedTime,
	}, nil
}

// GetFileBytes downloads the raw content of a single file. Google
// Workspace documents are exported to a text format first; everything
// else downloads as stored.
func (s *Service) GetFileBytes(ctx context.Context, fileID string) ([]byte, error) {
	meta, err := s.GetFileMetadata(ctx, fileID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.callContext(ctx)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var resp *http.Response
	switch meta.MimeType {
	case MimeTypeGoogleDoc, MimeTypeGoogleSlides:
		resp, err = s.client.Files.Export(fileID, ExportMimeText).Context(ctx).Download()
	case MimeTypeGoogleSheet:
		resp, err = s.client.Files.Export(fileID, ExportMimeCSV).Context(ctx).Download()
	default:
		resp, err = s.client.Files.Get(fileID).Context(ctx).Download()
	}
	if err != nil {
		return nil, s.wrapError("download file", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewUpstreamError("failed to read file content", err)
	}

	s.logger.Debug().
		Str("file_id", fileID).
		Str("name", meta.Name).
		Int("bytes", len(data)).
		Msg("Downloaded store file")

	return data, nil
}

func (s *Service) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// wrapError classifies a Drive API failure. Rate limit responses also arm
// the limiter backoff so subsequent calls pause.
func (s *Service) wrapError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotFound:
			return models.NewNotFoundError(fmt.Sprintf("%s: resource not found", op))
		case http.StatusTooManyRequests:
			s.limiter.RecordRateLimitError(retryAfterSeconds(gerr))
			return models.NewUpstreamError(fmt.Sprintf("%s: rate limited by drive", op), err)
		}
		return models.NewUpstreamError(fmt.Sprintf("%s: drive request failed with status %d", op, gerr.Code), err)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return models.NewUpstreamError(fmt.Sprintf("%s failed", op), err)
}

func retryAfterSeconds(gerr *googleapi.Error) int {
	if gerr.Header == nil {
		return 0
	}
	value := gerr.Header.Get("Retry-After")
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return seconds
}
