package ui

import (
	"strings"
	"sync"

	"image-host-client/internal/api"
	"image-host-client/internal/models"
)

// HistoryPresenter holds the browsing state of the history view:
// pagination, keyword filter, view mode and multi-selection. It knows
// nothing about widgets, so the whole navigation logic is testable
// without a display.
//
// It runs in one of two modes. Server-backed mode receives one page at
// a time via SetServerPage, with the total reported by the server.
// Local mode receives the full dataset via SetDataset and does the
// filtering and slicing itself.
type HistoryPresenter struct {
	mu sync.Mutex

	serverBacked bool
	pageSize     int
	page         int
	keyword      string
	viewMode     models.ViewMode
	onlyMine     bool

	// server-backed state
	pageRecords []*models.HistoryRecord
	total       int

	// local state
	dataset  []*models.HistoryRecord
	filtered []*models.HistoryRecord

	selected map[string]*models.HistoryRecord
}

// NewHistoryPresenter creates a presenter with the given page size.
func NewHistoryPresenter(pageSize int, serverBacked bool) *HistoryPresenter {
	if pageSize < 1 {
		pageSize = 1
	}
	return &HistoryPresenter{
		serverBacked: serverBacked,
		pageSize:     pageSize,
		page:         1,
		viewMode:     models.ViewPrivate,
		selected:     make(map[string]*models.HistoryRecord),
	}
}

// ServerBacked reports which mode the presenter runs in.
func (p *HistoryPresenter) ServerBacked() bool {
	return p.serverBacked
}

// Query returns the list query matching the current browsing state,
// for the controller to send to the server.
func (p *HistoryPresenter) Query() api.ListQuery {
	p.mu.Lock()
	defer p.mu.Unlock()
	return api.ListQuery{
		Page:     p.page,
		PageSize: p.pageSize,
		Keyword:  p.keyword,
		ViewMode: p.viewMode,
		OnlyMine: p.onlyMine,
	}
}

// SetServerPage installs one server page and its reported total. The
// current page is clamped in case the total shrank underneath us;
// a true return means the installed records belong to a page that no
// longer exists and the caller should fetch the clamped page.
func (p *HistoryPresenter) SetServerPage(records []*models.HistoryRecord, total int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pageRecords = records
	p.total = total
	before := p.page
	p.clampPage()
	return p.page != before
}

// SetDataset installs the full local dataset. Local mode only.
func (p *HistoryPresenter) SetDataset(records []*models.HistoryRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dataset = records
	p.refilter()
}

// PageRecords returns the records of the current page.
func (p *HistoryPresenter) PageRecords() []*models.HistoryRecord {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.serverBacked {
		return p.pageRecords
	}
	return p.pageSlice()
}

// ApplyLinkStatus writes a validation verdict into every record with
// the given URL. Returns whether a record on the current page changed,
// so the caller knows a re-render is worth it.
func (p *HistoryPresenter) ApplyLinkStatus(url string, status models.LinkStatus) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	apply := func(list []*models.HistoryRecord) bool {
		hit := false
		for _, rec := range list {
			if rec != nil && rec.URL == url && rec.LinkStatus != status {
				rec.LinkStatus = status
				hit = true
			}
		}
		return hit
	}

	if p.serverBacked {
		return apply(p.pageRecords)
	}

	// filtered shares pointers with dataset, so one pass covers both
	if !apply(p.dataset) {
		return false
	}
	for _, rec := range p.pageSlice() {
		if rec != nil && rec.URL == url {
			return true
		}
	}
	return false
}

// Page returns the current page number, starting at 1.
func (p *HistoryPresenter) Page() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page
}

// SetPage moves to the given page, clamped to the valid range. Returns
// whether the page actually changed.
func (p *HistoryPresenter) SetPage(page int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	before := p.page
	p.page = page
	p.clampPage()
	return p.page != before
}

// PageSize returns the current page size.
func (p *HistoryPresenter) PageSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pageSize
}

// SetPageSize changes the page size and jumps back to the first page,
// since old page numbers are meaningless under a new size.
func (p *HistoryPresenter) SetPageSize(size int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if size < 1 {
		size = 1
	}
	p.pageSize = size
	p.page = 1
}

// Total returns the number of records matching the current filter.
func (p *HistoryPresenter) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

// TotalPages returns the page count, at least 1 even when empty.
func (p *HistoryPresenter) TotalPages() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalPages()
}

// Keyword returns the active search keyword.
func (p *HistoryPresenter) Keyword() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.keyword
}

// SetKeyword changes the search keyword and jumps back to the first
// page.
func (p *HistoryPresenter) SetKeyword(keyword string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keyword = strings.TrimSpace(keyword)
	p.page = 1
	p.refilter()
}

// ViewMode returns the active view mode.
func (p *HistoryPresenter) ViewMode() models.ViewMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewMode
}

// SetViewMode switches view modes, resetting page and selection since
// both refer to records of the previous view.
func (p *HistoryPresenter) SetViewMode(mode models.ViewMode) {
	if !mode.Valid() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.viewMode = mode
	p.page = 1
	p.selected = make(map[string]*models.HistoryRecord)
}

// OnlyMine reports whether the shared view is restricted to the
// caller's own uploads.
func (p *HistoryPresenter) OnlyMine() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.onlyMine
}

// SetOnlyMine toggles the own-uploads restriction and jumps back to
// the first page.
func (p *HistoryPresenter) SetOnlyMine(onlyMine bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onlyMine = onlyMine
	p.page = 1
}

// ToggleSelected flips a record's selection and returns its new state.
func (p *HistoryPresenter) ToggleSelected(record *models.HistoryRecord) bool {
	if record == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	key := record.Key()
	if _, ok := p.selected[key]; ok {
		delete(p.selected, key)
		return false
	}
	p.selected[key] = record
	return true
}

// IsSelected reports whether the record is selected.
func (p *HistoryPresenter) IsSelected(record *models.HistoryRecord) bool {
	if record == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.selected[record.Key()]
	return ok
}

// SelectAllOnPage selects every record of the current page, on top of
// whatever was selected on other pages.
func (p *HistoryPresenter) SelectAllOnPage() {
	records := p.PageRecords()

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, rec := range records {
		if rec != nil {
			p.selected[rec.Key()] = rec
		}
	}
}

// ClearSelection drops every selected record.
func (p *HistoryPresenter) ClearSelection() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selected = make(map[string]*models.HistoryRecord)
}

// SelectedRecords returns the selected records in no particular order.
func (p *HistoryPresenter) SelectedRecords() []*models.HistoryRecord {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*models.HistoryRecord, 0, len(p.selected))
	for _, rec := range p.selected {
		out = append(out, rec)
	}
	return out
}

// SelectedCount returns how many records are selected across all pages.
func (p *HistoryPresenter) SelectedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.selected)
}

// refilter recomputes the filtered view of the local dataset. Callers
// hold the lock.
func (p *HistoryPresenter) refilter() {
	if p.serverBacked {
		return
	}

	if p.keyword == "" {
		p.filtered = p.dataset
	} else {
		needle := strings.ToLower(p.keyword)
		p.filtered = nil
		for _, rec := range p.dataset {
			if rec == nil {
				continue
			}
			if strings.Contains(strings.ToLower(rec.Filename), needle) ||
				strings.Contains(strings.ToLower(rec.URL), needle) {
				p.filtered = append(p.filtered, rec)
			}
		}
	}

	p.total = len(p.filtered)
	p.clampPage()
}

// pageSlice cuts the current page out of the filtered local dataset.
// Callers hold the lock.
func (p *HistoryPresenter) pageSlice() []*models.HistoryRecord {
	start := (p.page - 1) * p.pageSize
	if start >= len(p.filtered) {
		return nil
	}
	end := start + p.pageSize
	if end > len(p.filtered) {
		end = len(p.filtered)
	}
	return p.filtered[start:end]
}

// clampPage keeps the page inside [1, totalPages]. Callers hold the
// lock.
func (p *HistoryPresenter) clampPage() {
	if p.page < 1 {
		p.page = 1
	}
	if max := p.totalPages(); p.page > max {
		p.page = max
	}
}

func (p *HistoryPresenter) totalPages() int {
	pages := (p.total + p.pageSize - 1) / p.pageSize
	if pages < 1 {
		pages = 1
	}
	return pages
}
