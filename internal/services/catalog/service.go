// -----------------------------------------------------------------------
// Catalog Service - Static index of reference documents
// -----------------------------------------------------------------------

package catalog

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/interfaces"
	"github.com/ternarybob/probo/internal/models"
)

// Service loads and serves the static index of reference documents that
// ranking scores against. The catalog file is read once at startup;
// entries that fail validation are skipped, not fatal.
type Service struct {
	logger   arbor.ILogger
	validate *validator.Validate

	mu   sync.RWMutex
	path string
	docs []models.DocumentDescriptor
}

var _ interfaces.CatalogService = (*Service)(nil)

// catalogFile is the on-disk YAML layout.
type catalogFile struct {
	Documents []models.DocumentDescriptor `yaml:"documents"`
}

// NewService creates a catalog service and loads the configured file.
func NewService(cfg *common.CatalogConfig, logger arbor.ILogger) (*Service, error) {
	service := &Service{
		logger:   logger,
		validate: validator.New(),
		path:     cfg.Path,
	}

	if err := service.Load(); err != nil {
		return nil, err
	}

	return service, nil
}

// Load reads and validates the catalog file, atomically replacing the
// in-memory index on success.
func (s *Service) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read catalog file %s: %w", s.path, err)
	}

	var parsed catalogFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse catalog file %s: %w", s.path, err)
	}

	docs := make([]models.DocumentDescriptor, 0, len(parsed.Documents))
	skipped := 0
	for i, doc := range parsed.Documents {
		if err := s.validate.Struct(doc); err != nil {
			s.logger.Warn().
				Err(err).
				Int("entry", i).
				Str("name", doc.Name).
				Msg("Skipping invalid catalog entry")
			skipped++
			continue
		}
		docs = append(docs, doc)
	}

	s.mu.Lock()
	s.docs = docs
	s.mu.Unlock()

	s.logger.Info().
		Str("path", s.path).
		Int("documents", len(docs)).
		Int("skipped", skipped).
		Msg("Catalog loaded")

	return nil
}

// Documents returns a copy of the current document index.
func (s *Service) Documents() []models.DocumentDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]models.DocumentDescriptor, len(s.docs))
	copy(docs, s.docs)
	return docs
}

// Count returns the number of indexed documents.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
