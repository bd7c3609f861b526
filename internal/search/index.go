package search

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// mappingVersion changes with buildIndexMapping. An on-disk index written
// under another version is discarded at startup.
const mappingVersion = "1"

const batchSize = 500

// Options configures NewIndex.
type Options struct {
	DataPath string
	// InMemory skips the filesystem entirely. Tests use it.
	InMemory bool
	Logger   *slog.Logger
}

// Index is the local Bleve index of topics. Searches and writes share a
// read lock; Rebuild takes the write lock while it swaps the handle.
type Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string // empty when in memory
	logger *slog.Logger
}

// NewIndex opens the index under opts.DataPath, recreating it when it is
// unreadable or was built with an older mapping.
func NewIndex(opts Options) (*Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Index{logger: logger}
	if !opts.InMemory {
		s.path = filepath.Join(opts.DataPath, "topics.bleve")
	}

	if idx := s.openExisting(filepath.Join(opts.DataPath, "topics.version")); idx != nil {
		s.index = idx
		return s, nil
	}
	if err := s.recreate(); err != nil {
		return nil, err
	}
	if s.path != "" {
		versionPath := filepath.Join(opts.DataPath, "topics.version")
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil { //#nosec G306
			logger.Warn("search index version not recorded", "path", versionPath, "error", err)
		}
		logger.Info("created search index", "path", s.path, "mapping_version", mappingVersion)
	}
	return s, nil
}

// openExisting returns the on-disk index when it can be reused, else nil.
func (s *Index) openExisting(versionPath string) bleve.Index {
	if s.path == "" {
		return nil
	}
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if v, err := os.ReadFile(versionPath); err != nil || string(v) != mappingVersion { //#nosec G304
		s.logger.Info("search mapping changed, rebuilding index", "found", string(v), "want", mappingVersion)
		return nil
	}
	idx, err := bleve.Open(s.path)
	if err != nil {
		s.logger.Warn("search index unreadable, rebuilding", "path", s.path, "error", err)
		return nil
	}
	s.logger.Info("opened search index", "path", s.path)
	return idx
}

// recreate replaces s.index with an empty index. Callers hold mu or own s.
func (s *Index) recreate() error {
	var (
		idx bleve.Index
		err error
	)
	if s.path == "" {
		idx, err = bleve.NewMemOnly(buildIndexMapping())
	} else {
		if err := os.RemoveAll(s.path); err != nil {
			return fmt.Errorf("remove %s: %w", s.path, err)
		}
		idx, err = bleve.New(s.path, buildIndexMapping())
	}
	if err != nil {
		return fmt.Errorf("create search index: %w", err)
	}
	s.index = idx
	return nil
}

func (s *Index) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexDocument adds or replaces one topic.
func (s *Index) IndexDocument(doc *TopicDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Index(doc.ID, doc.ToMap())
}

// IndexDocuments writes docs in batches.
func (s *Index) IndexDocuments(docs []*TopicDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for start := 0; start < len(docs); start += batchSize {
		b := s.index.NewBatch()
		for _, doc := range docs[start:min(start+batchSize, len(docs))] {
			if err := b.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("index %s: %w", doc.ID, err)
			}
		}
		if err := s.index.Batch(b); err != nil {
			return fmt.Errorf("commit batch at %d: %w", start, err)
		}
	}
	return nil
}

func (s *Index) DeleteDocument(id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(id)
}

// DocumentCount reports how many topics are indexed.
func (s *Index) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild discards everything and indexes docs. Searches block until the
// empty index is in place.
func (s *Index) Rebuild(docs []*TopicDocument) error {
	s.mu.Lock()
	if err := s.index.Close(); err != nil {
		s.logger.Warn("closing search index before rebuild", "error", err)
	}
	err := s.recreate()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.logger.Info("rebuilding search index", "documents", len(docs))
	return s.IndexDocuments(docs)
}
