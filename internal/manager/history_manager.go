package manager

import (
	"context"
	"fmt"

	"image-host-client/internal/api"
	"image-host-client/internal/models"
	apperrors "image-host-client/pkg/errors"
	"image-host-client/pkg/logger"
)

// HistoryManager interface defines the contract for server-backed
// history operations
type HistoryManager interface {
	// FetchPage retrieves one page of history records
	FetchPage(ctx context.Context, query api.ListQuery) (*api.ListResult, error)

	// Rename changes a record's display name, rejecting records the
	// caller does not own before any request is made
	Rename(ctx context.Context, record *models.HistoryRecord, newName string) error

	// DeleteRecords removes records by server id and reports how many
	// were deleted
	DeleteRecords(ctx context.Context, records []*models.HistoryRecord) (int, error)

	// ClearAll removes every record visible under the given view mode
	ClearAll(ctx context.Context, mode models.ViewMode) error
}

// HistoryManagerImpl implements the HistoryManager interface
type HistoryManagerImpl struct {
	service api.HistoryService
	logger  *logger.Logger
}

// NewHistoryManager creates a new HistoryManager instance
func NewHistoryManager(service api.HistoryService) *HistoryManagerImpl {
	return &HistoryManagerImpl{
		service: service,
		logger:  logger.NewWithComponent("history_manager"),
	}
}

// FetchPage retrieves one page of history records. The page number is
// clamped to 1 at the bottom; clamping against the total happens in the
// presenter once the total is known.
func (hm *HistoryManagerImpl) FetchPage(ctx context.Context, query api.ListQuery) (*api.ListResult, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PageSize < 1 {
		query.PageSize = 1
	}

	result, err := hm.service.List(ctx, query)
	if err != nil {
		hm.logger.ErrorWithError("history fetch failed", err)
		return nil, err
	}
	return result, nil
}

// Rename changes a record's display name. Records the caller does not
// own are rejected without a network call; the server enforces the same
// rule authoritatively.
func (hm *HistoryManagerImpl) Rename(ctx context.Context, record *models.HistoryRecord, newName string) error {
	if record == nil {
		return apperrors.New(apperrors.ErrInvalidInput, "record cannot be nil", nil)
	}
	if newName == "" {
		return apperrors.New(apperrors.ErrInvalidInput, "new name cannot be empty", nil)
	}
	if !record.CanModify() {
		return apperrors.New(apperrors.ErrPermissionDenied,
			fmt.Sprintf("record %s belongs to another user", record.Key()), nil)
	}

	target := api.RenameTarget{ID: record.ID}
	if record.ID <= 0 {
		target.URL = record.URL
	}

	if err := hm.service.Rename(ctx, target, newName); err != nil {
		return err
	}

	hm.logger.InfoWithFields("record renamed", map[string]interface{}{
		"key": record.Key(),
	})
	return nil
}

// DeleteRecords removes records by server id. Records without a server
// id or owned by someone else are skipped; the caller is expected to
// have confirmed the action with the user.
func (hm *HistoryManagerImpl) DeleteRecords(ctx context.Context, records []*models.HistoryRecord) (int, error) {
	var ids []int64
	for _, rec := range records {
		if rec == nil || rec.ID <= 0 || !rec.CanModify() {
			continue
		}
		ids = append(ids, rec.ID)
	}
	if len(ids) == 0 {
		return 0, apperrors.New(apperrors.ErrInvalidInput, "no deletable records selected", nil)
	}

	count, err := hm.service.BatchDelete(ctx, ids)
	if err != nil {
		return 0, err
	}

	hm.logger.InfoWithFields("records deleted", map[string]interface{}{
		"requested": len(ids),
		"deleted":   count,
	})
	return count, nil
}

// ClearAll removes every record visible under the given view mode
func (hm *HistoryManagerImpl) ClearAll(ctx context.Context, mode models.ViewMode) error {
	if err := hm.service.ClearAll(ctx, mode); err != nil {
		return err
	}
	hm.logger.InfoWithFields("history cleared", map[string]interface{}{
		"view_mode": string(mode),
	})
	return nil
}
