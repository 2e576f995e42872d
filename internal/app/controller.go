package app

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"image-host-client/internal/api"
	"image-host-client/internal/config"
	"image-host-client/internal/manager"
	"image-host-client/internal/models"
	"image-host-client/internal/storage"
	"image-host-client/internal/ui"
	apperrors "image-host-client/pkg/errors"
	"image-host-client/pkg/logger"
)

// HistoryView defines the interface for history window operations the
// controller drives. The real window wraps these in the UI thread;
// tests implement them directly.
type HistoryView interface {
	SetStatus(status string)
	SetMutationsEnabled(enabled bool)
	SetAdminEnabled(enabled bool)
	Refresh()
	InvalidateThumbnail(record *models.HistoryRecord)
}

// Controller coordinates between the history view and the business
// logic layers. In server-backed mode the remote API is the source of
// truth and the local store is an offline fallback; in local-only mode
// the store is everything.
type Controller struct {
	cfg       *config.AppConfig
	store     storage.RecordStore
	service   api.HistoryService
	history   manager.HistoryManager
	validator *manager.LinkValidator
	healing   *manager.HealingManager
	presenter *ui.HistoryPresenter
	view      HistoryView
	notifier  ui.Notifier
	logger    *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	offline bool
}

// NewController creates the application controller. service may be nil
// for local-only mode.
func NewController(
	cfg *config.AppConfig,
	store storage.RecordStore,
	service api.HistoryService,
	presenter *ui.HistoryPresenter,
	view HistoryView,
	notifier ui.Notifier,
) *Controller {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		cfg:       cfg,
		store:     store,
		service:   service,
		presenter: presenter,
		view:      view,
		notifier:  notifier,
		logger:    logger.NewWithComponent("controller"),
		ctx:       ctx,
		cancel:    cancel,
	}

	if service != nil {
		c.history = manager.NewHistoryManager(service)
		c.validator = manager.NewLinkValidator(service, store, cfg.ValidatorDebounce, cfg.ProbeInterval)
		c.validator.SetOnStatusChange(func(url string, status models.LinkStatus) {
			// Patch the rendered records so the badge reflects the
			// verdict; refresh only when the current page changed
			if c.presenter.ApplyLinkStatus(url, status) {
				c.view.Refresh()
			}
		})
	}

	c.healing = manager.NewHealingManager(c.deleteHealedRecord, cfg.HealingGrace)
	c.healing.SetOnDeleted(func(record *models.HistoryRecord) {
		c.view.InvalidateThumbnail(record)
		c.notifier.Failure(fmt.Sprintf("Removed %s: its image no longer exists", record.DisplayName()))
		c.RefreshQuery()
	})

	return c
}

// Start performs the initial load and configures the view.
func (c *Controller) Start() error {
	c.logger.Info("starting controller")
	c.view.SetAdminEnabled(c.cfg.AdminView && c.serverBacked())
	c.RefreshQuery()
	return nil
}

// Stop shuts down the background workers.
func (c *Controller) Stop() {
	c.logger.Info("stopping controller")
	c.cancel()
	if c.validator != nil {
		c.validator.Stop()
	}
	c.healing.Stop()
}

// RefreshQuery reloads the current page for the presenter's browsing
// state. In server-backed mode a failed fetch falls back to the local
// store with mutations disabled, and the next refresh tries the server
// again.
func (c *Controller) RefreshQuery() {
	if c.serverBacked() {
		if c.refreshFromServer() {
			c.setOffline(false)
			c.view.SetMutationsEnabled(true)
			c.view.SetStatus(fmt.Sprintf("%d records", c.presenter.Total()))
		} else {
			c.setOffline(true)
			c.refreshFromStore()
			c.view.SetMutationsEnabled(false)
			c.view.SetStatus("Offline - showing local history")
		}
	} else {
		c.refreshFromStore()
		c.view.SetMutationsEnabled(true)
		c.view.SetStatus(fmt.Sprintf("%d records", c.presenter.Total()))
	}

	c.view.Refresh()
	if c.validator != nil && !c.isOffline() {
		c.validator.Trigger(c.presenter.PageRecords())
	}
}

// HandleRename renames one record. Re-fetching after success is the
// window's job via its query-changed callback.
func (c *Controller) HandleRename(record *models.HistoryRecord, newName string) error {
	if !c.serverBacked() {
		return c.store.RenameByURL(record.URL, newName)
	}

	if err := c.history.Rename(c.ctx, record, newName); err != nil {
		return err
	}
	// Keep the offline fallback in sync; the record may not be cached
	// locally, which is fine.
	if err := c.store.RenameByURL(record.URL, newName); err != nil &&
		!apperrors.IsCode(err, apperrors.ErrRecordNotFound) {
		c.logger.WarnWithError("local rename failed", err)
	}
	c.notifier.Success(fmt.Sprintf("Renamed to %s", newName))
	return nil
}

// HandleDeleteRecords deletes the given records.
func (c *Controller) HandleDeleteRecords(records []*models.HistoryRecord) error {
	if !c.serverBacked() {
		deleted := 0
		for _, rec := range records {
			if rec == nil {
				continue
			}
			if err := c.store.DeleteByKey(rec.Key()); err != nil {
				return err
			}
			deleted++
		}
		c.notifier.Success(fmt.Sprintf("Deleted %d record(s)", deleted))
		return nil
	}

	count, err := c.history.DeleteRecords(c.ctx, records)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if err := c.store.DeleteByKey(rec.Key()); err != nil {
			c.logger.WarnWithError("local delete failed", err)
		}
	}
	c.notifier.Success(fmt.Sprintf("Deleted %d record(s)", count))
	return nil
}

// HandleClearAll removes every record in the current view.
func (c *Controller) HandleClearAll() error {
	if !c.serverBacked() {
		if err := c.store.Clear(); err != nil {
			return err
		}
		c.notifier.Success("History cleared")
		return nil
	}

	mode := c.presenter.ViewMode()
	if err := c.history.ClearAll(c.ctx, mode); err != nil {
		return err
	}
	if mode == models.ViewPrivate {
		if err := c.store.Clear(); err != nil {
			c.logger.WarnWithError("local clear failed", err)
		}
	}
	c.notifier.Success("History cleared")
	return nil
}

// HandleGenerateManifest renders a plain-text listing of the given
// records, one filename and URL per line, for sharing the links
// alongside the images.
func (c *Controller) HandleGenerateManifest(records []*models.HistoryRecord) ([]byte, error) {
	if len(records) == 0 {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "no records selected", nil)
	}

	var buf bytes.Buffer
	for _, rec := range records {
		if rec == nil || rec.URL == "" {
			continue
		}
		fmt.Fprintf(&buf, "%s\t%s\n", rec.DisplayName(), rec.URL)
	}
	return buf.Bytes(), nil
}

// HandleExport serializes the local history for backup.
func (c *Controller) HandleExport() ([]byte, error) {
	return c.store.ExportAll()
}

// HandleImport merges a backup into the local history and returns how
// many records it contained.
func (c *Controller) HandleImport(data []byte) (int, error) {
	return c.store.ImportAll(data)
}

// HandleLoadThumbnail fetches a record's image preview. A definitive
// not-found answer reports the record to the healing manager; a
// successful load cancels any pending removal.
func (c *Controller) HandleLoadThumbnail(record *models.HistoryRecord) ([]byte, error) {
	if c.service == nil || c.isOffline() {
		return nil, apperrors.New(apperrors.ErrServiceUnavailable, "thumbnails unavailable offline", nil)
	}

	data, err := c.service.FetchThumbnail(c.ctx, record.URL)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrRecordNotFound) {
			if _, markErr := c.store.SetLinkStatus(record.URL, models.LinkBad); markErr != nil {
				c.logger.WarnWithError("failed to mark dead link", markErr)
			}
			c.healing.ReportBrokenThumbnail(record)
		}
		return nil, err
	}

	c.healing.ReportThumbnailRecovered(record)
	return data, nil
}

// RecordUpload stores a freshly uploaded image in the local history.
// Called by the upload flow of the embedding application.
func (c *Controller) RecordUpload(record *models.HistoryRecord) error {
	if err := c.store.Save(record); err != nil {
		return err
	}
	c.RefreshQuery()
	return nil
}

// refreshFromServer loads the current page from the API. Returns false
// when the server could not be reached so the caller can fall back.
func (c *Controller) refreshFromServer() bool {
	result, err := c.history.FetchPage(c.ctx, c.presenter.Query())
	if err != nil {
		appErr := apperrors.Classify(err)
		if appErr.IsRecoverable() {
			c.logger.WarnWithError("server unreachable, falling back to local history", err)
			return false
		}
		// The request itself was rejected; keep the previous page on
		// screen and just tell the user.
		c.notifier.Failure(appErr.GetUserMessage())
		return true
	}

	if c.presenter.SetServerPage(result.Records, result.Total) {
		// The requested page vanished, e.g. the last record of the
		// last page was deleted. Fetch the clamped page once.
		retry, retryErr := c.history.FetchPage(c.ctx, c.presenter.Query())
		if retryErr == nil {
			c.presenter.SetServerPage(retry.Records, retry.Total)
			result = retry
		}
	}

	// The server may have downgraded the requested view, e.g. admin
	// without the admin role.
	if result.EffectiveMode.Valid() && result.EffectiveMode != c.presenter.ViewMode() {
		c.logger.InfoWithFields("view downgraded by server", map[string]interface{}{
			"requested": string(c.presenter.ViewMode()),
			"effective": string(result.EffectiveMode),
		})
		c.presenter.SetViewMode(result.EffectiveMode)
	}
	return true
}

// refreshFromStore loads the local dataset, filtered by the active
// keyword.
func (c *Controller) refreshFromStore() {
	records, err := c.store.Search(c.presenter.Keyword())
	if err != nil {
		c.logger.ErrorWithError("failed to load local history", err)
		records = nil
	}
	c.presenter.SetDataset(records)
}

// deleteHealedRecord is the healing manager's deleter. It works against
// whichever backend owns the record.
func (c *Controller) deleteHealedRecord(ctx context.Context, record *models.HistoryRecord) error {
	if c.serverBacked() && record.ID > 0 {
		if _, err := c.history.DeleteRecords(ctx, []*models.HistoryRecord{record}); err != nil {
			return err
		}
	}
	return c.store.DeleteByKey(record.Key())
}

func (c *Controller) serverBacked() bool {
	return c.history != nil
}

func (c *Controller) isOffline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offline
}

func (c *Controller) setOffline(offline bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offline = offline
}
