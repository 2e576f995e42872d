package manager

import (
	"context"
	"sync"
	"time"

	"image-host-client/internal/models"
	"image-host-client/pkg/logger"
)

// LinkProber issues one validation probe for a stored URL
type LinkProber interface {
	Validate(ctx context.Context, rawURL string) (models.LinkStatus, error)
}

// StatusStore persists link status annotations. Satisfied by the local
// record store; nil when history is purely server-backed.
type StatusStore interface {
	SetLinkStatus(url string, status models.LinkStatus) (bool, error)
}

// LinkValidator opportunistically verifies that recorded URLs are still
// live. Probes run on a single worker draining a FIFO queue with a
// fixed delay between probes, so a render burst never turns into a
// request storm.
type LinkValidator struct {
	prober        LinkProber
	store         StatusStore
	debounce      time.Duration
	probeInterval time.Duration
	logger        *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.Mutex
	queue         []string
	queued        map[string]bool
	results       map[string]models.LinkStatus
	draining      bool
	debounceTimer *time.Timer
	onChange      func(url string, status models.LinkStatus)
}

// NewLinkValidator creates a validator. store may be nil when statuses
// only live in memory for the current session.
func NewLinkValidator(prober LinkProber, store StatusStore, debounce, probeInterval time.Duration) *LinkValidator {
	ctx, cancel := context.WithCancel(context.Background())
	return &LinkValidator{
		prober:        prober,
		store:         store,
		debounce:      debounce,
		probeInterval: probeInterval,
		logger:        logger.NewWithComponent("link_validator"),
		ctx:           ctx,
		cancel:        cancel,
		queued:        make(map[string]bool),
		results:       make(map[string]models.LinkStatus),
	}
}

// SetOnStatusChange registers a callback fired when a record's status
// actually changed. Used for incremental UI updates instead of a full
// re-render.
func (v *LinkValidator) SetOnStatusChange(fn func(url string, status models.LinkStatus)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onChange = fn
}

// Trigger schedules a validation pass over the given records. Calls
// within the debounce window coalesce into one pass over the records of
// the latest call.
func (v *LinkValidator) Trigger(records []*models.HistoryRecord) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.ctx.Err() != nil {
		return
	}

	if v.debounceTimer != nil {
		v.debounceTimer.Stop()
	}

	snapshot := make([]*models.HistoryRecord, len(records))
	copy(snapshot, records)

	v.debounceTimer = time.AfterFunc(v.debounce, func() {
		v.collect(snapshot)
	})
}

// Status returns the validator's latest verdict for a URL, falling back
// to unknown.
func (v *LinkValidator) Status(url string) models.LinkStatus {
	v.mu.Lock()
	defer v.mu.Unlock()
	if status, ok := v.results[url]; ok {
		return status
	}
	return models.LinkUnknown
}

// Stop cancels any pending pass and waits for the in-flight probe to
// settle. Cancellation happens under the lock so collect cannot start
// a worker between the context check and the wait.
func (v *LinkValidator) Stop() {
	v.mu.Lock()
	if v.debounceTimer != nil {
		v.debounceTimer.Stop()
	}
	v.cancel()
	v.mu.Unlock()

	v.wg.Wait()
}

// collect enqueues records still in the unknown state and starts the
// worker unless one is already draining the queue.
func (v *LinkValidator) collect(records []*models.HistoryRecord) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.ctx.Err() != nil {
		return
	}

	added := 0
	for _, rec := range records {
		if rec == nil || rec.URL == "" {
			continue
		}
		// Settled records are never re-probed
		if rec.LinkStatus == models.LinkOK || rec.LinkStatus == models.LinkBad {
			continue
		}
		if s, ok := v.results[rec.URL]; ok && s != models.LinkUnknown {
			continue
		}
		if v.queued[rec.URL] {
			continue
		}
		v.queued[rec.URL] = true
		v.queue = append(v.queue, rec.URL)
		added++
	}

	if added == 0 || v.draining {
		return
	}

	v.draining = true
	v.wg.Add(1)
	go v.drain()
}

// drain processes the queue one URL at a time with a fixed delay
// between probes.
func (v *LinkValidator) drain() {
	defer v.wg.Done()

	for {
		v.mu.Lock()
		if v.ctx.Err() != nil || len(v.queue) == 0 {
			v.draining = false
			v.mu.Unlock()
			return
		}
		url := v.queue[0]
		v.queue = v.queue[1:]
		v.mu.Unlock()

		v.probe(url)

		select {
		case <-v.ctx.Done():
		case <-time.After(v.probeInterval):
		}
	}
}

// probe validates one URL and records the outcome. An inconclusive
// probe (network failure, unexpected response) leaves the record
// unknown so it can be retried on a later pass. A terminal verdict is
// announced through the status-change callback the first time it is
// reached, whether or not the URL is cached in the store; the store
// write stays best-effort so server-only records still update the UI.
func (v *LinkValidator) probe(url string) {
	status, err := v.prober.Validate(v.ctx, url)
	if err != nil {
		v.logger.WarnWithError("probe inconclusive for "+logger.Sanitize(url), err)
		status = models.LinkUnknown
	}

	if v.store != nil && status != models.LinkUnknown {
		if _, storeErr := v.store.SetLinkStatus(url, status); storeErr != nil {
			v.logger.ErrorWithError("failed to persist link status", storeErr)
		}
	}

	v.mu.Lock()
	delete(v.queued, url)
	changed := false
	if status != models.LinkUnknown {
		if prev, ok := v.results[url]; !ok || prev != status {
			changed = true
		}
		v.results[url] = status
	}
	onChange := v.onChange
	v.mu.Unlock()

	if changed && onChange != nil {
		onChange(url, status)
	}
}
