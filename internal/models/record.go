package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// LinkStatus represents the validation state of a record's primary URL
type LinkStatus string

const (
	LinkUnknown LinkStatus = "unknown"
	LinkOK      LinkStatus = "ok"
	LinkBad     LinkStatus = "bad"
)

// ViewMode selects which slice of the server-side history is queried
type ViewMode string

const (
	ViewPrivate  ViewMode = "private"
	ViewShared   ViewMode = "shared"
	ViewAdminAll ViewMode = "admin_all"
)

// Valid reports whether the view mode is one the server understands
func (v ViewMode) Valid() bool {
	switch v {
	case ViewPrivate, ViewShared, ViewAdminAll:
		return true
	}
	return false
}

// Mirror represents one storage endpoint holding a copy of the content
type Mirror struct {
	Service string `json:"service"`
	URL     string `json:"url"`
}

// HistoryRecord represents a single uploaded image in the history list
type HistoryRecord struct {
	ID          int64      `json:"id,omitempty"`
	LocalID     string     `json:"local_id,omitempty"`
	URL         string     `json:"url"`
	Service     string     `json:"service,omitempty"`
	Filename    string     `json:"filename"`
	Hash        string     `json:"hash,omitempty"`
	AllResults  []Mirror   `json:"all_results,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	RawTime     string     `json:"-"`
	LinkStatus  LinkStatus `json:"link_status,omitempty"`
	IsMine      *bool      `json:"is_mine,omitempty"`
	Width       int        `json:"width,omitempty"`
	Height      int        `json:"height,omitempty"`
	Size        int64      `json:"size,omitempty"`
	ContentType string     `json:"content_type,omitempty"`
}

// Key returns the identifier used for selection and de-duplication:
// the server id when present, then the content hash, then the local id
// assigned by the offline store, then the URL.
func (r *HistoryRecord) Key() string {
	if r.ID > 0 {
		return fmt.Sprintf("id:%d", r.ID)
	}
	if r.Hash != "" {
		return "hash:" + r.Hash
	}
	if r.LocalID != "" {
		return "local:" + r.LocalID
	}
	return "url:" + r.URL
}

// DisplayName returns the name shown on a history card. Falls back from
// the stored filename to the content hash, then to the last path segment
// of the URL, then to a timestamp placeholder.
func (r *HistoryRecord) DisplayName() string {
	if r.Filename != "" {
		return r.Filename
	}
	if r.Hash != "" {
		return r.Hash
	}
	if segment := lastPathSegment(r.URL); segment != "" {
		return segment
	}
	return "image-" + r.CreatedAt.Format("20060102-150405")
}

// Mirrors returns the record's mirror list, synthesizing a single entry
// from the primary URL when no list was recorded.
func (r *HistoryRecord) Mirrors() []Mirror {
	if len(r.AllResults) > 0 {
		return r.AllResults
	}
	if r.URL == "" {
		return nil
	}
	return []Mirror{{Service: r.Service, URL: r.URL}}
}

// CanModify reports whether rename/delete controls apply to this record.
// Ownership is only reported in shared and admin views; records without
// the flag belong to the caller's private scope.
func (r *HistoryRecord) CanModify() bool {
	if r.IsMine == nil {
		return true
	}
	return *r.IsMine
}

// lastPathSegment extracts the final path element of a URL, without its
// query string.
func lastPathSegment(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	path := strings.TrimSuffix(u.Path, "/")
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

// NormalizeURL resolves a possibly relative URL against the given origin
// so stored records always carry absolute URLs.
func NormalizeURL(raw, origin string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.IsAbs() {
		return raw
	}
	base, err := url.Parse(origin)
	if err != nil {
		return raw
	}
	return base.ResolveReference(u).String()
}

// serverTimeLayouts are the timestamp shapes the backend emits. The
// zone-less forms are UTC timestamps missing their suffix.
var serverTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseServerTime parses a backend timestamp. Values lacking an explicit
// timezone marker are treated as UTC and converted to the viewer's local
// timezone.
func ParseServerTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range serverTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Local(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", value)
}

// DisplayTime renders the record's creation time for a history card.
// Falls back to best-effort truncation of the raw server value when it
// never parsed.
func (r *HistoryRecord) DisplayTime() string {
	if !r.CreatedAt.IsZero() {
		return r.CreatedAt.Format("2006-01-02 15:04:05")
	}
	if r.RawTime != "" {
		return FormatDisplayTime(r.RawTime)
	}
	return ""
}

// FormatDisplayTime renders a parsed timestamp for a history card. The
// raw value is passed through, truncated, when parsing failed so a bad
// timestamp never fails the render.
func FormatDisplayTime(raw string) string {
	t, err := ParseServerTime(raw)
	if err != nil {
		if len(raw) > 19 {
			return raw[:19]
		}
		return raw
	}
	return t.Format("2006-01-02 15:04:05")
}
