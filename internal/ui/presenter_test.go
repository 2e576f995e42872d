package ui

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-host-client/internal/models"
)

func localDataset(n int) []*models.HistoryRecord {
	records := make([]*models.HistoryRecord, n)
	for i := 0; i < n; i++ {
		records[i] = &models.HistoryRecord{
			URL:      fmt.Sprintf("https://img.example.com/%02d.png", i+1),
			Filename: fmt.Sprintf("photo-%02d.png", i+1),
		}
	}
	return records
}

func TestPresenterPagination(t *testing.T) {
	p := NewHistoryPresenter(10, false)
	p.SetDataset(localDataset(25))

	assert.Equal(t, 25, p.Total())
	assert.Equal(t, 3, p.TotalPages())
	assert.Len(t, p.PageRecords(), 10)

	require.True(t, p.SetPage(3))
	records := p.PageRecords()
	require.Len(t, records, 5, "last page holds the remainder")
	assert.Equal(t, "photo-21.png", records[0].Filename)
	assert.Equal(t, "photo-25.png", records[4].Filename)
}

func TestPresenterClampsPage(t *testing.T) {
	p := NewHistoryPresenter(10, false)
	p.SetDataset(localDataset(25))

	p.SetPage(99)
	assert.Equal(t, 3, p.Page())

	p.SetPage(-4)
	assert.Equal(t, 1, p.Page())

	assert.False(t, p.SetPage(1), "clamped move to the same page is not a change")
}

func TestPresenterEmptyDatasetHasOnePage(t *testing.T) {
	p := NewHistoryPresenter(10, false)
	p.SetDataset(nil)

	assert.Equal(t, 1, p.TotalPages())
	assert.Equal(t, 1, p.Page())
	assert.Empty(t, p.PageRecords())
}

func TestPresenterPageSizeChangeResetsPage(t *testing.T) {
	p := NewHistoryPresenter(10, false)
	p.SetDataset(localDataset(25))
	p.SetPage(3)

	p.SetPageSize(5)
	assert.Equal(t, 1, p.Page())
	assert.Equal(t, 5, p.TotalPages())
	assert.Len(t, p.PageRecords(), 5)
}

func TestPresenterKeywordFiltersFilenameAndURL(t *testing.T) {
	p := NewHistoryPresenter(10, false)
	p.SetDataset([]*models.HistoryRecord{
		{URL: "https://a/cat.png", Filename: "kitten.png"},
		{URL: "https://a/dog.png", Filename: "puppy.png"},
		{URL: "https://b/kitten-archive.zip", Filename: "misc.zip"},
	})

	p.SetKeyword("KITTEN")
	records := p.PageRecords()
	require.Len(t, records, 2, "keyword matches filename or url, case-insensitive")
	assert.Equal(t, 2, p.Total())

	p.SetKeyword("")
	assert.Equal(t, 3, p.Total())
}

func TestPresenterKeywordResetsPage(t *testing.T) {
	p := NewHistoryPresenter(10, false)
	p.SetDataset(localDataset(25))
	p.SetPage(3)

	p.SetKeyword("photo")
	assert.Equal(t, 1, p.Page())
}

func TestPresenterServerPage(t *testing.T) {
	p := NewHistoryPresenter(10, true)
	p.SetPage(3)
	assert.False(t, p.SetServerPage(localDataset(5), 25))

	assert.Equal(t, 3, p.Page())
	assert.Equal(t, 3, p.TotalPages())
	assert.Len(t, p.PageRecords(), 5)

	// The server total shrank; the page clamps down and the caller is
	// told the records belong to a vanished page
	assert.True(t, p.SetServerPage(nil, 10))
	assert.Equal(t, 1, p.Page())
}

func TestPresenterApplyLinkStatus(t *testing.T) {
	p := NewHistoryPresenter(10, true)
	p.SetServerPage([]*models.HistoryRecord{
		{URL: "https://a/1.png"},
		{URL: "https://a/2.png"},
	}, 2)

	assert.True(t, p.ApplyLinkStatus("https://a/2.png", models.LinkBad))
	assert.Equal(t, models.LinkBad, p.PageRecords()[1].LinkStatus)

	// Same verdict again changes nothing visible
	assert.False(t, p.ApplyLinkStatus("https://a/2.png", models.LinkBad))

	// Unknown URLs change nothing
	assert.False(t, p.ApplyLinkStatus("https://a/9.png", models.LinkBad))
}

func TestPresenterApplyLinkStatusOffPageLocalRecord(t *testing.T) {
	p := NewHistoryPresenter(2, false)
	data := localDataset(5)
	p.SetDataset(data)

	// Record 5 sits on page 3; the verdict lands in the dataset but the
	// current page does not need a re-render
	assert.False(t, p.ApplyLinkStatus(data[4].URL, models.LinkBad))
	assert.Equal(t, models.LinkBad, data[4].LinkStatus)

	p.SetPage(3)
	assert.Equal(t, models.LinkBad, p.PageRecords()[0].LinkStatus)

	// On the current page the same call reports a visible change
	assert.True(t, p.ApplyLinkStatus(data[4].URL, models.LinkOK))
}

func TestPresenterQueryReflectsState(t *testing.T) {
	p := NewHistoryPresenter(20, true)
	p.SetViewMode(models.ViewShared)
	p.SetOnlyMine(true)
	p.SetKeyword("cat")
	p.SetPage(2)

	// No data installed yet so the page clamps to 1
	q := p.Query()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 20, q.PageSize)
	assert.Equal(t, "cat", q.Keyword)
	assert.Equal(t, models.ViewShared, q.ViewMode)
	assert.True(t, q.OnlyMine)
}

func TestPresenterSelection(t *testing.T) {
	p := NewHistoryPresenter(2, false)
	data := localDataset(5)
	p.SetDataset(data)

	assert.True(t, p.ToggleSelected(data[0]))
	assert.True(t, p.IsSelected(data[0]))
	assert.False(t, p.ToggleSelected(data[0]), "second toggle deselects")
	assert.Equal(t, 0, p.SelectedCount())
}

func TestPresenterSelectAllIsPageScoped(t *testing.T) {
	p := NewHistoryPresenter(2, false)
	data := localDataset(5)
	p.SetDataset(data)

	p.SelectAllOnPage()
	assert.Equal(t, 2, p.SelectedCount())

	// Selection accumulates across pages
	p.SetPage(2)
	p.SelectAllOnPage()
	assert.Equal(t, 4, p.SelectedCount())

	p.ClearSelection()
	assert.Equal(t, 0, p.SelectedCount())
}

func TestPresenterViewModeSwitchDropsSelection(t *testing.T) {
	p := NewHistoryPresenter(10, false)
	data := localDataset(3)
	p.SetDataset(data)
	p.ToggleSelected(data[0])
	p.SetPage(1)

	p.SetViewMode(models.ViewShared)
	assert.Equal(t, 0, p.SelectedCount())
	assert.Equal(t, models.ViewShared, p.ViewMode())

	// Invalid modes are ignored
	p.SetViewMode(models.ViewMode("bogus"))
	assert.Equal(t, models.ViewShared, p.ViewMode())
}
