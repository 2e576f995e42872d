package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"image-host-client/internal/models"
	apperrors "image-host-client/pkg/errors"
	"image-host-client/pkg/logger"
)

// DefaultHistoryLimit caps the local record list when no explicit limit
// is configured
const DefaultHistoryLimit = 200

// FileRecordStore implements RecordStore over a single JSON file: one
// serialized array of records under a well-known path.
type FileRecordStore struct {
	path   string
	limit  int
	logger *logger.Logger

	mu sync.Mutex
}

// NewFileRecordStore creates a file-backed record store at the given
// path. A limit <= 0 falls back to DefaultHistoryLimit.
func NewFileRecordStore(path string, limit int) (*FileRecordStore, error) {
	if path == "" {
		return nil, apperrors.New(apperrors.ErrConfigurationError, "history file path cannot be empty", nil)
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, apperrors.New(apperrors.ErrStorageError, "failed to create history directory", err)
	}

	return &FileRecordStore{
		path:   path,
		limit:  limit,
		logger: logger.NewWithComponent("record_store"),
	}, nil
}

// Save inserts or merges a record. A record sharing the content hash of
// an existing one contributes its mirrors to that record instead of
// creating a duplicate; the merged record moves to the head.
func (s *FileRecordStore) Save(record *models.HistoryRecord) error {
	if record == nil {
		return apperrors.New(apperrors.ErrInvalidInput, "record cannot be nil", nil)
	}

	newMirrors := record.Mirrors()
	if len(newMirrors) == 0 {
		return apperrors.New(apperrors.ErrInvalidInput, "record has no URLs", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load()

	idx := s.findIndex(list, record)
	if idx >= 0 {
		existing := list[idx]
		mergeMirrors(existing, newMirrors)
		existing.CreatedAt = time.Now()
		// Move to the head: recency order is the list order
		list = append(list[:idx], list[idx+1:]...)
		list = append([]*models.HistoryRecord{existing}, list...)
	} else {
		fresh := *record
		if fresh.URL == "" {
			fresh.URL = newMirrors[0].URL
			fresh.Service = newMirrors[0].Service
		}
		fresh.AllResults = newMirrors
		if fresh.CreatedAt.IsZero() {
			fresh.CreatedAt = time.Now()
		}
		if fresh.LinkStatus == "" {
			fresh.LinkStatus = models.LinkUnknown
		}
		if fresh.LocalID == "" {
			fresh.LocalID = uuid.New().String()
		}
		list = append([]*models.HistoryRecord{&fresh}, list...)
	}

	if len(list) > s.limit {
		list = list[:s.limit]
	}

	return s.persist(list)
}

// List returns all records, newest first
func (s *FileRecordStore) List() ([]*models.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(), nil
}

// Search returns records whose filename or URL contains the keyword
func (s *FileRecordStore) Search(keyword string) ([]*models.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load()
	if keyword == "" {
		return list, nil
	}

	keyword = strings.ToLower(keyword)
	var matched []*models.HistoryRecord
	for _, rec := range list {
		if strings.Contains(strings.ToLower(rec.Filename), keyword) ||
			strings.Contains(strings.ToLower(rec.URL), keyword) {
			matched = append(matched, rec)
		}
	}
	return matched, nil
}

// RenameByURL updates the filename of the record with the given URL
func (s *FileRecordStore) RenameByURL(url, newName string) error {
	if newName == "" {
		return apperrors.New(apperrors.ErrInvalidInput, "new name cannot be empty", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load()
	for _, rec := range list {
		if rec.URL == url {
			rec.Filename = newName
			return s.persist(list)
		}
	}
	return apperrors.New(apperrors.ErrRecordNotFound, fmt.Sprintf("no record with url %s", url), nil)
}

// SetLinkStatus annotates a record's link status. The file is written
// back only when the status actually changed.
func (s *FileRecordStore) SetLinkStatus(url string, status models.LinkStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load()
	for _, rec := range list {
		if rec.URL != url {
			continue
		}
		if rec.LinkStatus == status {
			return false, nil
		}
		rec.LinkStatus = status
		if err := s.persist(list); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// DeleteByKey removes the record matching the given record key
func (s *FileRecordStore) DeleteByKey(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load()
	for i, rec := range list {
		if rec.Key() == key {
			list = append(list[:i], list[i+1:]...)
			return s.persist(list)
		}
	}
	return nil
}

// ExportAll serializes the full list as an indented JSON backup
func (s *FileRecordStore) ExportAll() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s.load(), "", "  ")
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInternalError, "failed to serialize history", err)
	}
	return data, nil
}

// ImportAll merges an external JSON array into the store. Records are
// de-duplicated by URL; the merged list is re-sorted by recency and
// re-capped.
func (s *FileRecordStore) ImportAll(data []byte) (int, error) {
	var imported []*models.HistoryRecord
	if err := json.Unmarshal(data, &imported); err != nil {
		return 0, apperrors.New(apperrors.ErrMalformedData, "import payload is not a history array", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load()
	byURL := make(map[string]*models.HistoryRecord, len(list))
	for _, rec := range list {
		byURL[rec.URL] = rec
	}

	count := 0
	for _, rec := range imported {
		if rec == nil || rec.URL == "" {
			continue
		}
		count++
		if existing, ok := byURL[rec.URL]; ok {
			mergeMirrors(existing, rec.Mirrors())
			if rec.CreatedAt.After(existing.CreatedAt) {
				existing.CreatedAt = rec.CreatedAt
			}
			continue
		}
		if rec.LinkStatus == "" {
			rec.LinkStatus = models.LinkUnknown
		}
		byURL[rec.URL] = rec
		list = append(list, rec)
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})

	if len(list) > s.limit {
		list = list[:s.limit]
	}

	if err := s.persist(list); err != nil {
		return 0, err
	}
	return count, nil
}

// Clear empties the store
func (s *FileRecordStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist([]*models.HistoryRecord{})
}

// findIndex locates an existing record by content hash, falling back to
// the primary URL for hash-less records.
func (s *FileRecordStore) findIndex(list []*models.HistoryRecord, record *models.HistoryRecord) int {
	if record.Hash != "" {
		for i, rec := range list {
			if rec.Hash == record.Hash {
				return i
			}
		}
	}
	if record.URL != "" {
		for i, rec := range list {
			if rec.URL == record.URL {
				return i
			}
		}
	}
	return -1
}

// mergeMirrors appends mirrors the record does not already carry,
// keeping entries unique by URL.
func mergeMirrors(record *models.HistoryRecord, mirrors []models.Mirror) {
	existing := record.Mirrors()
	seen := make(map[string]bool, len(existing))
	for _, m := range existing {
		seen[m.URL] = true
	}
	record.AllResults = existing
	for _, m := range mirrors {
		if m.URL == "" || seen[m.URL] {
			continue
		}
		seen[m.URL] = true
		record.AllResults = append(record.AllResults, m)
	}
}

// load reads the persisted list. Any malformed content is treated as an
// empty list rather than an error; history must never block rendering.
func (s *FileRecordStore) load() []*models.HistoryRecord {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return []*models.HistoryRecord{}
	}

	var list []*models.HistoryRecord
	if err := json.Unmarshal(raw, &list); err != nil {
		s.logger.WarnWithError("history file was unreadable, starting empty", err)
		return []*models.HistoryRecord{}
	}

	filtered := list[:0]
	for _, rec := range list {
		if rec != nil {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}

// persist writes the full list back to disk
func (s *FileRecordStore) persist(list []*models.HistoryRecord) error {
	data, err := json.Marshal(list)
	if err != nil {
		return apperrors.New(apperrors.ErrInternalError, "failed to serialize history", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return apperrors.New(apperrors.ErrStorageError, "failed to write history file", err)
	}
	return nil
}
