package storage

import (
	"image-host-client/internal/models"
)

// RecordStore interface defines the contract for the local history list.
// It is the offline fallback when no history API is configured: a
// de-duplicated, recency-ordered, capped record list.
type RecordStore interface {
	// Save inserts a record or merges it into an existing one sharing
	// its content hash (URL as fallback key). The touched record moves
	// to the head of the list.
	Save(record *models.HistoryRecord) error

	// List returns all records, newest first
	List() ([]*models.HistoryRecord, error)

	// Search returns records whose filename or URL contains the
	// keyword, case-insensitive. An empty keyword returns everything.
	Search(keyword string) ([]*models.HistoryRecord, error)

	// RenameByURL updates the filename of the record with the given URL
	RenameByURL(url, newName string) error

	// SetLinkStatus annotates a record's link status, persisting only
	// when the status actually changed. Reports whether it changed.
	SetLinkStatus(url string, status models.LinkStatus) (bool, error)

	// DeleteByKey removes the record matching the given record key
	DeleteByKey(key string) error

	// ExportAll serializes the full list as a JSON backup
	ExportAll() ([]byte, error)

	// ImportAll merges an externally supplied JSON array into the
	// store, de-duplicating by URL, and re-sorts by recency. Returns
	// the number of records imported or merged.
	ImportAll(data []byte) (int, error)

	// Clear empties the store
	Clear() error
}
