package manager

import (
	"context"
	"sync"
	"time"

	"image-host-client/internal/models"
	"image-host-client/pkg/logger"
)

// RecordDeleter removes one record from wherever it is persisted. The
// controller wires this to a server batch delete or a local store
// delete depending on the active variant.
type RecordDeleter func(ctx context.Context, record *models.HistoryRecord) error

// HealingManager recovers from records whose backing object was deleted
// out-of-band: a broken thumbnail schedules the record's removal after
// a grace window, once per record, whether or not the card is still on
// screen when the timer fires.
type HealingManager struct {
	deleter RecordDeleter
	grace   time.Duration
	logger  *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	pending   map[string]*time.Timer
	completed map[string]bool
	onDeleted func(record *models.HistoryRecord)
}

// NewHealingManager creates a healing manager with the given grace
// window.
func NewHealingManager(deleter RecordDeleter, grace time.Duration) *HealingManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &HealingManager{
		deleter:   deleter,
		grace:     grace,
		logger:    logger.NewWithComponent("self_healing"),
		ctx:       ctx,
		cancel:    cancel,
		pending:   make(map[string]*time.Timer),
		completed: make(map[string]bool),
	}
}

// SetOnDeleted registers a callback fired after a record was removed,
// so the UI can fade out the card or refresh the page.
func (hm *HealingManager) SetOnDeleted(fn func(record *models.HistoryRecord)) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.onDeleted = fn
}

// ReportBrokenThumbnail schedules the record's deletion after the grace
// window. Repeated reports for the same record are ignored; the record
// is deleted at most once. Returns whether a new deletion was
// scheduled.
func (hm *HealingManager) ReportBrokenThumbnail(record *models.HistoryRecord) bool {
	if record == nil {
		return false
	}

	hm.mu.Lock()
	defer hm.mu.Unlock()

	if hm.ctx.Err() != nil {
		return false
	}

	key := record.Key()
	if hm.completed[key] {
		return false
	}
	if _, exists := hm.pending[key]; exists {
		return false
	}

	hm.logger.InfoWithFields("broken thumbnail, scheduling removal", map[string]interface{}{
		"key":   key,
		"grace": hm.grace.String(),
	})

	hm.wg.Add(1)
	hm.pending[key] = time.AfterFunc(hm.grace, func() {
		defer hm.wg.Done()
		hm.executeDeletion(key, record)
	})
	return true
}

// ReportThumbnailRecovered cancels a pending deletion when a later
// render loaded the thumbnail successfully, so a transient storage
// hiccup never destroys a live record.
func (hm *HealingManager) ReportThumbnailRecovered(record *models.HistoryRecord) {
	if record == nil {
		return
	}

	hm.mu.Lock()
	defer hm.mu.Unlock()

	key := record.Key()
	timer, exists := hm.pending[key]
	if !exists {
		return
	}
	if timer.Stop() {
		hm.wg.Done()
		delete(hm.pending, key)
		hm.logger.InfoWithFields("thumbnail recovered, removal canceled", map[string]interface{}{
			"key": key,
		})
	}
}

// IsScheduled reports whether the record currently has a pending
// deletion.
func (hm *HealingManager) IsScheduled(record *models.HistoryRecord) bool {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	_, exists := hm.pending[record.Key()]
	return exists
}

// Stop cancels all pending deletions and waits for any in-flight one.
// Cancellation happens under the lock so a report cannot schedule a new
// timer between the context check and the wait.
func (hm *HealingManager) Stop() {
	hm.mu.Lock()
	for key, timer := range hm.pending {
		if timer.Stop() {
			hm.wg.Done()
		}
		delete(hm.pending, key)
	}
	hm.cancel()
	hm.mu.Unlock()

	hm.wg.Wait()
}

// executeDeletion performs the scheduled removal once the grace window
// elapsed.
func (hm *HealingManager) executeDeletion(key string, record *models.HistoryRecord) {
	hm.mu.Lock()
	delete(hm.pending, key)
	if hm.completed[key] || hm.ctx.Err() != nil {
		hm.mu.Unlock()
		return
	}
	hm.completed[key] = true
	onDeleted := hm.onDeleted
	hm.mu.Unlock()

	ctx, cancel := context.WithTimeout(hm.ctx, 30*time.Second)
	defer cancel()

	if err := hm.deleter(ctx, record); err != nil {
		hm.logger.ErrorWithError("failed to remove dead record "+key, err)
		return
	}

	hm.logger.InfoWithFields("dead record removed", map[string]interface{}{
		"key": key,
	})

	if onDeleted != nil {
		onDeleted(record)
	}
}
