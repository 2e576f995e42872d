//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-host-client/internal/api"
	"image-host-client/internal/app"
	"image-host-client/internal/config"
	"image-host-client/internal/models"
	"image-host-client/internal/storage"
	"image-host-client/internal/ui"
)

// serverRecord is one history row held by the fake backend
type serverRecord struct {
	ID       int64  `json:"id"`
	URL      string `json:"url"`
	Service  string `json:"service"`
	Filename string `json:"filename"`
	Hash     string `json:"hash"`
	Created  string `json:"created_at"`
}

// fakeBackend implements the history REST API in memory
type fakeBackend struct {
	mu        sync.Mutex
	records   []serverRecord
	images    map[string][]byte
	validated int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{images: make(map[string][]byte)}
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/history", b.handleList)
	mux.HandleFunc("/history/rename", b.handleRename)
	mux.HandleFunc("/history/delete", b.handleDelete)
	mux.HandleFunc("/history/clear", b.handleClear)
	mux.HandleFunc("/validate", b.handleValidate)
	mux.HandleFunc("/img/", b.handleImage)
	return mux
}

func (b *fakeBackend) handleList(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	keyword := strings.ToLower(r.URL.Query().Get("keyword"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	var matched []serverRecord
	for _, rec := range b.records {
		if keyword == "" ||
			strings.Contains(strings.ToLower(rec.Filename), keyword) ||
			strings.Contains(strings.ToLower(rec.URL), keyword) {
			matched = append(matched, rec)
		}
	}

	start := (page - 1) * pageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}

	writeJSON(w, map[string]interface{}{
		"success": true,
		"total":   len(matched),
		"data":    matched[start:end],
	})
}

func (b *fakeBackend) handleRename(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID       *int64 `json:"id"`
		URL      string `json:"url"`
		Filename string `json:"filename"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.records {
		if (body.ID != nil && b.records[i].ID == *body.ID) || b.records[i].URL == body.URL {
			b.records[i].Filename = body.Filename
			writeJSON(w, map[string]interface{}{"success": true})
			return
		}
	}
	writeJSON(w, map[string]interface{}{"success": false, "error": "record not found"})
}

func (b *fakeBackend) handleDelete(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []int64 `json:"ids"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	b.mu.Lock()
	defer b.mu.Unlock()
	count := 0
	var kept []serverRecord
	for _, rec := range b.records {
		deleted := false
		for _, id := range body.IDs {
			if rec.ID == id {
				deleted = true
				break
			}
		}
		if deleted {
			count++
		} else {
			kept = append(kept, rec)
		}
	}
	b.records = kept
	writeJSON(w, map[string]interface{}{"success": true, "count": count})
}

func (b *fakeBackend) handleClear(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = nil
	writeJSON(w, map[string]interface{}{"success": true})
}

func (b *fakeBackend) handleValidate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.validated++

	name := body.URL[strings.LastIndex(body.URL, "/")+1:]
	if _, ok := b.images[name]; ok {
		writeJSON(w, map[string]interface{}{"success": true})
		return
	}
	writeJSON(w, map[string]interface{}{"success": false, "kind": "invalid"})
}

func (b *fakeBackend) handleImage(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	data, ok := b.images[strings.TrimPrefix(r.URL.Path, "/img/")]
	b.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Write(data)
}

func (b *fakeBackend) recordCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

func (b *fakeBackend) validateCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.validated
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

// nopView satisfies the controller's view interface
type nopView struct{}

func (nopView) SetStatus(string)                          {}
func (nopView) SetMutationsEnabled(bool)                  {}
func (nopView) SetAdminEnabled(bool)                      {}
func (nopView) Refresh()                                  {}
func (nopView) InvalidateThumbnail(*models.HistoryRecord) {}

// nopNotifier satisfies ui.Notifier
type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Failure(string) {}

// TestHistoryFlow exercises the full stack: controller, presenter,
// API client, local store and the background workers, against an
// in-memory backend.
func TestHistoryFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	backend := newFakeBackend()
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	for i := 1; i <= 3; i++ {
		name := fmt.Sprintf("photo-%d.png", i)
		backend.records = append(backend.records, serverRecord{
			ID:       int64(i),
			URL:      server.URL + "/img/" + name,
			Service:  "imgbed",
			Filename: name,
			Hash:     fmt.Sprintf("hash-%d", i),
			Created:  "2026-08-01 10:00:00",
		})
		if i != 2 {
			// photo-2 exists as a record but its image is gone
			backend.images[name] = []byte("png-bytes")
		}
	}

	cfg := config.DefaultConfig()
	cfg.ServerURL = server.URL
	cfg.AuthToken = "integration-token"
	cfg.HistoryFile = filepath.Join(t.TempDir(), "history.json")
	cfg.PageSize = 2
	cfg.ValidatorDebounce = 5 * time.Millisecond
	cfg.ProbeInterval = time.Millisecond
	cfg.HealingGrace = 20 * time.Millisecond

	store, err := storage.NewFileRecordStore(cfg.HistoryFile, cfg.HistoryLimit)
	require.NoError(t, err)

	client, err := api.NewClient(cfg.ServerURL, cfg.RequestTimeout,
		func(ctx context.Context) (string, error) { return cfg.AuthToken, nil }, nil)
	require.NoError(t, err)

	presenter := ui.NewHistoryPresenter(cfg.PageSize, true)
	controller := app.NewController(cfg, store, client, presenter, nopView{}, nopNotifier{})
	defer controller.Stop()

	t.Run("Pagination", func(t *testing.T) {
		require.NoError(t, controller.Start())

		assert.Equal(t, 3, presenter.Total())
		assert.Equal(t, 2, presenter.TotalPages())
		require.Len(t, presenter.PageRecords(), 2)
		assert.Equal(t, "photo-1.png", presenter.PageRecords()[0].Filename)

		presenter.SetPage(2)
		controller.RefreshQuery()
		require.Len(t, presenter.PageRecords(), 1)
		assert.Equal(t, "photo-3.png", presenter.PageRecords()[0].Filename)
	})

	t.Run("Keyword Search", func(t *testing.T) {
		presenter.SetKeyword("photo-1")
		controller.RefreshQuery()

		require.Len(t, presenter.PageRecords(), 1)
		assert.Equal(t, "photo-1.png", presenter.PageRecords()[0].Filename)

		presenter.SetKeyword("")
		controller.RefreshQuery()
		assert.Equal(t, 3, presenter.Total())
	})

	t.Run("Link Validation", func(t *testing.T) {
		// The page renders triggered validation of the unknown records
		require.Eventually(t, func() bool {
			return backend.validateCalls() >= 2
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("Rename", func(t *testing.T) {
		rec := presenter.PageRecords()[0]
		require.NoError(t, controller.HandleRename(rec, "first.png"))
		controller.RefreshQuery()

		assert.Equal(t, "first.png", presenter.PageRecords()[0].Filename)
	})

	t.Run("Self Healing", func(t *testing.T) {
		var missing *models.HistoryRecord
		for _, rec := range presenter.PageRecords() {
			if rec.ID == 2 {
				missing = rec
			}
		}
		require.NotNil(t, missing)

		_, err := controller.HandleLoadThumbnail(missing)
		require.Error(t, err, "image behind the record is gone")

		require.Eventually(t, func() bool {
			return backend.recordCount() == 2
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("Batch Delete", func(t *testing.T) {
		controller.RefreshQuery()
		require.NoError(t, controller.HandleDeleteRecords(presenter.PageRecords()))

		controller.RefreshQuery()
		assert.Equal(t, 0, backend.recordCount())
		assert.Equal(t, 0, presenter.Total())
	})
}
