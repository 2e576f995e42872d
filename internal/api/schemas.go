package api

import (
	"image-host-client/internal/models"
)

// ListQuery holds the parameters of a history list request
type ListQuery struct {
	Page     int
	PageSize int
	Keyword  string
	ViewMode models.ViewMode
	OnlyMine bool
}

// ListResult is the decoded outcome of a history list request
type ListResult struct {
	Records []*models.HistoryRecord
	Total   int

	// EffectiveMode is the view mode actually queried; it differs from
	// the requested mode when a missing token forced the shared view.
	EffectiveMode models.ViewMode
}

// RenameTarget identifies the record to rename: the server id when
// known, otherwise the record URL (legacy path).
type RenameTarget struct {
	ID  int64
	URL string
}

// recordPayload mirrors one history row as the server serializes it
type recordPayload struct {
	ID          int64           `json:"id"`
	URL         string          `json:"url"`
	Service     string          `json:"service"`
	Filename    string          `json:"filename"`
	Hash        string          `json:"hash"`
	AllResults  []models.Mirror `json:"all_results"`
	CreatedAt   string          `json:"created_at"`
	IsMine      *bool           `json:"is_mine"`
	LinkStatus  string          `json:"link_status"`
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	Size        int64           `json:"size"`
	ContentType string          `json:"content_type"`
}

// toRecord converts a wire payload into the domain record, normalizing
// relative URLs against the API origin and server timestamps into the
// viewer's local timezone.
func (p *recordPayload) toRecord(origin string) *models.HistoryRecord {
	rec := &models.HistoryRecord{
		ID:          p.ID,
		URL:         models.NormalizeURL(p.URL, origin),
		Service:     p.Service,
		Filename:    p.Filename,
		Hash:        p.Hash,
		IsMine:      p.IsMine,
		LinkStatus:  models.LinkUnknown,
		RawTime:     p.CreatedAt,
		Width:       p.Width,
		Height:      p.Height,
		Size:        p.Size,
		ContentType: p.ContentType,
	}

	if status := models.LinkStatus(p.LinkStatus); status == models.LinkOK || status == models.LinkBad {
		rec.LinkStatus = status
	}

	if created, err := models.ParseServerTime(p.CreatedAt); err == nil {
		rec.CreatedAt = created
	}

	for _, mirror := range p.AllResults {
		rec.AllResults = append(rec.AllResults, models.Mirror{
			Service: mirror.Service,
			URL:     models.NormalizeURL(mirror.URL, origin),
		})
	}

	return rec
}

// listResponse is the /history response envelope
type listResponse struct {
	Success bool            `json:"success"`
	Total   int             `json:"total"`
	Data    []recordPayload `json:"data"`
	Error   string          `json:"error"`
}

// renameRequest is the /history/rename request body
type renameRequest struct {
	ID       *int64 `json:"id,omitempty"`
	URL      string `json:"url,omitempty"`
	Filename string `json:"filename"`
}

// deleteRequest is the /history/delete request body
type deleteRequest struct {
	IDs []int64 `json:"ids"`
}

// deleteResponse is the /history/delete response envelope
type deleteResponse struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Error   string `json:"error"`
}

// basicResponse covers endpoints that only report success or an error
type basicResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// validateRequest is the /validate request body
type validateRequest struct {
	URL string `json:"url"`
}

// validateResponse is the /validate response envelope
type validateResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Kind    string `json:"kind"`
}
