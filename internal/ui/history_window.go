package ui

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"image-host-client/internal/models"
	"image-host-client/pkg/logger"
)

var viewModeLabels = map[models.ViewMode]string{
	models.ViewPrivate:  "My History",
	models.ViewShared:   "Shared Gallery",
	models.ViewAdminAll: "All Uploads (Admin)",
}

// HistoryWindow is the upload history browser. It renders the
// presenter's current page as cards and forwards every action to
// callbacks wired up by the controller.
type HistoryWindow struct {
	app       fyne.App
	window    fyne.Window
	presenter *HistoryPresenter
	logger    *logger.Logger

	searchEntry    *widget.Entry
	searchDebounce *Debouncer
	viewModeSelect *widget.Select
	onlyMineCheck  *widget.Check
	pageSizeSelect *widget.Select
	selectAllCheck *widget.Check
	prevBtn        *widget.Button
	nextBtn        *widget.Button
	pageLabel      *widget.Label
	deleteBtn      *widget.Button
	manifestBtn    *widget.Button
	clearBtn       *widget.Button
	exportBtn      *widget.Button
	importBtn      *widget.Button
	statusLabel    *widget.Label
	cardList       *fyne.Container

	thumbMu    sync.Mutex
	thumbCache map[string]fyne.Resource

	mutationsEnabled bool
	adminEnabled     bool

	// Callbacks for business logic integration, set by the controller
	OnQueryChanged      func()
	OnRename            func(record *models.HistoryRecord, newName string) error
	OnDeleteRecords     func(records []*models.HistoryRecord) error
	OnClearAll          func() error
	OnGenerateManifest  func(records []*models.HistoryRecord) ([]byte, error)
	OnExport            func() ([]byte, error)
	OnImport            func(data []byte) (int, error)
	OnLoadThumbnail     func(record *models.HistoryRecord) ([]byte, error)
}

// NewHistoryWindow creates the history browser window.
func NewHistoryWindow(app fyne.App, presenter *HistoryPresenter, searchDebounce *Debouncer) *HistoryWindow {
	window := app.NewWindow("Upload History")
	window.Resize(fyne.NewSize(960, 720))
	window.SetIcon(theme.FileImageIcon())

	hw := &HistoryWindow{
		app:              app,
		window:           window,
		presenter:        presenter,
		logger:           logger.NewWithComponent("history_window"),
		searchDebounce:   searchDebounce,
		thumbCache:       make(map[string]fyne.Resource),
		mutationsEnabled: true,
	}

	hw.setupUI()
	return hw
}

// Show displays the window and runs the event loop.
func (hw *HistoryWindow) Show() {
	hw.window.ShowAndRun()
}

// Window exposes the underlying window for dialogs raised elsewhere.
func (hw *HistoryWindow) Window() fyne.Window {
	return hw.window
}

// SetStatus updates the status bar.
func (hw *HistoryWindow) SetStatus(status string) {
	hw.statusLabel.SetText(status)
}

// SetMutationsEnabled switches rename, delete and clear on or off. Used
// when the view is read-only, either offline or browsing records that
// are not ours.
func (hw *HistoryWindow) SetMutationsEnabled(enabled bool) {
	hw.mutationsEnabled = enabled
	if enabled {
		hw.deleteBtn.Enable()
		hw.clearBtn.Enable()
	} else {
		hw.deleteBtn.Disable()
		hw.clearBtn.Disable()
	}
}

// SetAdminEnabled adds or removes the admin view from the mode
// selector.
func (hw *HistoryWindow) SetAdminEnabled(enabled bool) {
	hw.adminEnabled = enabled
	options := []string{viewModeLabels[models.ViewPrivate], viewModeLabels[models.ViewShared]}
	if enabled {
		options = append(options, viewModeLabels[models.ViewAdminAll])
	}
	hw.viewModeSelect.Options = options
	hw.viewModeSelect.Refresh()
}

// Refresh re-renders the current page from the presenter.
func (hw *HistoryWindow) Refresh() {
	records := hw.presenter.PageRecords()

	hw.cardList.Objects = nil
	if len(records) == 0 {
		empty := widget.NewLabel("No uploads here yet.")
		empty.Alignment = fyne.TextAlignCenter
		empty.TextStyle = fyne.TextStyle{Italic: true}
		hw.cardList.Add(empty)
	}
	for _, rec := range records {
		hw.cardList.Add(hw.buildRecordCard(rec))
	}
	hw.cardList.Refresh()

	hw.pageLabel.SetText(fmt.Sprintf("Page %d / %d  (%d records)",
		hw.presenter.Page(), hw.presenter.TotalPages(), hw.presenter.Total()))

	if hw.presenter.Page() > 1 {
		hw.prevBtn.Enable()
	} else {
		hw.prevBtn.Disable()
	}
	if hw.presenter.Page() < hw.presenter.TotalPages() {
		hw.nextBtn.Enable()
	} else {
		hw.nextBtn.Disable()
	}

	hw.updateSelectionStatus()
}

// InvalidateThumbnail drops a cached thumbnail so the next render
// reloads it.
func (hw *HistoryWindow) InvalidateThumbnail(record *models.HistoryRecord) {
	if record == nil {
		return
	}
	hw.thumbMu.Lock()
	delete(hw.thumbCache, record.Key())
	hw.thumbMu.Unlock()
}

func (hw *HistoryWindow) setupUI() {
	hw.createComponents()
	hw.window.SetContent(hw.createLayout())
}

func (hw *HistoryWindow) createComponents() {
	hw.statusLabel = widget.NewLabel("Ready")
	hw.statusLabel.TextStyle = fyne.TextStyle{Italic: true}

	hw.searchEntry = widget.NewEntry()
	hw.searchEntry.SetPlaceHolder("Search by filename or link...")
	hw.searchEntry.OnChanged = func(text string) {
		hw.searchDebounce.Do(func() {
			fyne.Do(func() {
				hw.presenter.SetKeyword(text)
				hw.notifyQueryChanged()
			})
		})
	}

	hw.viewModeSelect = widget.NewSelect(
		[]string{viewModeLabels[models.ViewPrivate], viewModeLabels[models.ViewShared]},
		func(selected string) {
			for mode, label := range viewModeLabels {
				if label == selected && mode != hw.presenter.ViewMode() {
					hw.presenter.SetViewMode(mode)
					hw.notifyQueryChanged()
					return
				}
			}
		})
	hw.viewModeSelect.SetSelected(viewModeLabels[models.ViewPrivate])

	hw.onlyMineCheck = widget.NewCheck("Only mine", func(checked bool) {
		if checked != hw.presenter.OnlyMine() {
			hw.presenter.SetOnlyMine(checked)
			hw.notifyQueryChanged()
		}
	})

	hw.pageSizeSelect = widget.NewSelect([]string{"10", "20", "50", "100"}, func(selected string) {
		size, err := strconv.Atoi(selected)
		if err != nil || size == hw.presenter.PageSize() {
			return
		}
		hw.presenter.SetPageSize(size)
		hw.notifyQueryChanged()
	})
	hw.pageSizeSelect.SetSelected(strconv.Itoa(hw.presenter.PageSize()))

	hw.selectAllCheck = widget.NewCheck("Select page", func(checked bool) {
		if checked {
			hw.presenter.SelectAllOnPage()
		} else {
			hw.presenter.ClearSelection()
		}
		hw.Refresh()
	})

	hw.prevBtn = widget.NewButton("", func() { hw.turnPage(-1) })
	hw.prevBtn.Icon = theme.NavigateBackIcon()

	hw.nextBtn = widget.NewButton("", func() { hw.turnPage(1) })
	hw.nextBtn.Icon = theme.NavigateNextIcon()

	hw.pageLabel = widget.NewLabel("Page 1 / 1")

	hw.deleteBtn = widget.NewButton("Delete Selected", hw.confirmDeleteSelected)
	hw.deleteBtn.Icon = theme.DeleteIcon()
	hw.deleteBtn.Importance = widget.DangerImportance

	hw.manifestBtn = widget.NewButton("Generate List", hw.generateManifest)
	hw.manifestBtn.Icon = theme.DocumentIcon()

	hw.clearBtn = widget.NewButton("Clear All", hw.confirmClearAll)
	hw.clearBtn.Icon = theme.ContentClearIcon()

	hw.exportBtn = widget.NewButton("Export", hw.exportHistory)
	hw.exportBtn.Icon = theme.DownloadIcon()

	hw.importBtn = widget.NewButton("Import", hw.importHistory)
	hw.importBtn.Icon = theme.UploadIcon()

	hw.cardList = container.NewVBox()
}

func (hw *HistoryWindow) createLayout() *fyne.Container {
	title := widget.NewLabel("Upload History")
	title.TextStyle = fyne.TextStyle{Bold: true}
	title.Alignment = fyne.TextAlignCenter

	filterBar := container.NewBorder(nil, nil,
		container.NewHBox(hw.viewModeSelect, hw.onlyMineCheck),
		container.NewHBox(widget.NewLabel("Per page"), hw.pageSizeSelect),
		hw.searchEntry,
	)

	actionBar := container.NewHBox(
		hw.selectAllCheck,
		hw.deleteBtn,
		hw.manifestBtn,
		widget.NewSeparator(),
		hw.clearBtn,
		widget.NewSeparator(),
		hw.exportBtn,
		hw.importBtn,
	)

	pagination := container.NewHBox(hw.prevBtn, hw.pageLabel, hw.nextBtn)

	return container.NewBorder(
		container.NewVBox(title, widget.NewSeparator(), filterBar, actionBar, widget.NewSeparator()),
		container.NewBorder(nil, nil, hw.statusLabel, pagination, nil),
		nil, nil,
		container.NewVScroll(hw.cardList),
	)
}

// buildRecordCard renders one history record with its thumbnail,
// status badge, mirrors and actions.
func (hw *HistoryWindow) buildRecordCard(rec *models.HistoryRecord) fyne.CanvasObject {
	record := rec

	// OnChanged is attached after SetChecked so restoring the state of
	// an already selected card does not toggle it back off.
	check := widget.NewCheck("", nil)
	check.SetChecked(hw.presenter.IsSelected(record))
	check.OnChanged = func(checked bool) {
		hw.presenter.ToggleSelected(record)
		hw.updateSelectionStatus()
	}

	thumb := canvas.NewImageFromResource(theme.FileImageIcon())
	thumb.FillMode = canvas.ImageFillContain
	thumb.SetMinSize(fyne.NewSize(64, 64))
	hw.loadThumbnail(record, thumb)

	nameLabel := widget.NewLabel(record.DisplayName())
	nameLabel.TextStyle = fyne.TextStyle{Bold: true}

	warnIcon := widget.NewIcon(theme.WarningIcon())
	if record.LinkStatus != models.LinkBad {
		warnIcon.Hide()
	}

	meta := fmt.Sprintf("%s  %s", record.DisplayTime(), record.Service)
	if !record.CanModify() {
		meta += "  (not yours)"
	}
	metaLabel := widget.NewLabel(meta)

	copyBtn := widget.NewButton("Copy", func() { hw.copyLink(record.URL) })
	copyBtn.Icon = theme.ContentCopyIcon()

	openBtn := widget.NewButton("Open", func() { hw.openLink(record.URL) })
	openBtn.Icon = theme.ComputerIcon()

	mirrors := record.Mirrors()
	mirrorsBtn := widget.NewButton(fmt.Sprintf("Mirrors (%d)", len(mirrors)), func() {
		hw.showMirrors(record)
	})
	if len(mirrors) < 2 {
		mirrorsBtn.Hide()
	}

	renameBtn := widget.NewButton("Rename", func() { hw.showRenameDialog(record) })
	renameBtn.Icon = theme.DocumentCreateIcon()
	if !hw.mutationsEnabled || !record.CanModify() {
		renameBtn.Disable()
	}

	info := container.NewVBox(
		container.NewHBox(nameLabel, warnIcon),
		metaLabel,
	)
	actions := container.NewHBox(copyBtn, openBtn, mirrorsBtn, renameBtn)

	card := container.NewBorder(nil, widget.NewSeparator(),
		container.NewHBox(check, thumb), actions, info)
	return card
}

// loadThumbnail fills the image asynchronously, serving repeat renders
// from the cache.
func (hw *HistoryWindow) loadThumbnail(record *models.HistoryRecord, img *canvas.Image) {
	if hw.OnLoadThumbnail == nil || record.URL == "" {
		return
	}

	key := record.Key()
	hw.thumbMu.Lock()
	cached, ok := hw.thumbCache[key]
	hw.thumbMu.Unlock()
	if ok {
		img.Resource = cached
		img.Refresh()
		return
	}

	go func() {
		data, err := hw.OnLoadThumbnail(record)
		if err != nil || len(data) == 0 {
			fyne.Do(func() {
				img.Resource = theme.BrokenImageIcon()
				img.Refresh()
			})
			return
		}

		res := fyne.NewStaticResource(key, data)
		hw.thumbMu.Lock()
		hw.thumbCache[key] = res
		hw.thumbMu.Unlock()

		fyne.Do(func() {
			img.Resource = res
			img.Refresh()
		})
	}()
}

func (hw *HistoryWindow) notifyQueryChanged() {
	if hw.OnQueryChanged != nil {
		hw.OnQueryChanged()
	}
}

func (hw *HistoryWindow) turnPage(delta int) {
	if hw.presenter.SetPage(hw.presenter.Page() + delta) {
		hw.notifyQueryChanged()
	}
}

func (hw *HistoryWindow) updateSelectionStatus() {
	count := hw.presenter.SelectedCount()
	if count > 0 {
		hw.SetStatus(fmt.Sprintf("%d selected", count))
	}
}

func (hw *HistoryWindow) copyLink(rawURL string) {
	hw.window.Clipboard().SetContent(rawURL)
	hw.SetStatus("Link copied")
}

func (hw *HistoryWindow) openLink(rawURL string) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		dialog.ShowError(err, hw.window)
		return
	}
	if err := hw.app.OpenURL(parsed); err != nil {
		dialog.ShowError(err, hw.window)
	}
}

// showMirrors lists every mirror of a record with one copy button per
// URL.
func (hw *HistoryWindow) showMirrors(record *models.HistoryRecord) {
	mirrors := record.Mirrors()
	rows := container.NewVBox()
	for _, m := range mirrors {
		mirror := m
		label := mirror.Service
		if label == "" {
			label = "mirror"
		}
		btn := widget.NewButton("Copy "+label, func() { hw.copyLink(mirror.URL) })
		btn.Icon = theme.ContentCopyIcon()
		rows.Add(container.NewBorder(nil, nil, nil, btn,
			widget.NewLabel(mirror.URL)))
	}
	dialog.ShowCustom("Mirrors of "+record.DisplayName(), "Close", rows, hw.window)
}

func (hw *HistoryWindow) showRenameDialog(record *models.HistoryRecord) {
	entry := widget.NewEntry()
	entry.SetText(record.DisplayName())

	items := []*widget.FormItem{widget.NewFormItem("Filename", entry)}
	dialog.ShowForm("Rename", "Save", "Cancel", items, func(confirmed bool) {
		if !confirmed || hw.OnRename == nil {
			return
		}
		if err := hw.OnRename(record, entry.Text); err != nil {
			dialog.ShowError(err, hw.window)
			return
		}
		hw.notifyQueryChanged()
	}, hw.window)
}

func (hw *HistoryWindow) confirmDeleteSelected() {
	selected := hw.presenter.SelectedRecords()
	if len(selected) == 0 {
		dialog.ShowInformation("Delete", "Nothing selected.", hw.window)
		return
	}

	message := fmt.Sprintf("Delete %d selected record(s)? This cannot be undone.", len(selected))
	if len(selected) > len(hw.presenter.PageRecords()) {
		message += "\n\nThe selection spans multiple pages."
	}

	dialog.ShowConfirm("Delete Selected", message, func(confirmed bool) {
		if !confirmed || hw.OnDeleteRecords == nil {
			return
		}
		if err := hw.OnDeleteRecords(selected); err != nil {
			dialog.ShowError(err, hw.window)
			return
		}
		hw.presenter.ClearSelection()
		hw.selectAllCheck.SetChecked(false)
		hw.notifyQueryChanged()
	}, hw.window)
}

// generateManifest writes a text listing of the selected records,
// filename and link per line, to a file of the user's choosing.
func (hw *HistoryWindow) generateManifest() {
	if hw.OnGenerateManifest == nil {
		return
	}
	selected := hw.presenter.SelectedRecords()
	if len(selected) == 0 {
		dialog.ShowInformation("Generate List", "Nothing selected.", hw.window)
		return
	}
	if len(selected) > len(hw.presenter.PageRecords()) {
		dialog.ShowInformation("Generate List",
			"The selection spans multiple pages; the list covers all of them.", hw.window)
	}

	dialog.ShowFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, hw.window)
			return
		}
		if writer == nil {
			return
		}
		defer writer.Close()

		data, genErr := hw.OnGenerateManifest(selected)
		if genErr != nil {
			dialog.ShowError(genErr, hw.window)
			return
		}
		if _, writeErr := writer.Write(data); writeErr != nil {
			dialog.ShowError(writeErr, hw.window)
			return
		}
		hw.SetStatus(fmt.Sprintf("Listed %d record(s)", len(selected)))
	}, hw.window)
}

func (hw *HistoryWindow) confirmClearAll() {
	mode := viewModeLabels[hw.presenter.ViewMode()]
	dialog.ShowConfirm("Clear All",
		fmt.Sprintf("Remove every record in %q? This cannot be undone.", mode),
		func(confirmed bool) {
			if !confirmed || hw.OnClearAll == nil {
				return
			}
			if err := hw.OnClearAll(); err != nil {
				dialog.ShowError(err, hw.window)
				return
			}
			hw.presenter.ClearSelection()
			hw.notifyQueryChanged()
		}, hw.window)
}

func (hw *HistoryWindow) exportHistory() {
	if hw.OnExport == nil {
		return
	}
	dialog.ShowFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, hw.window)
			return
		}
		if writer == nil {
			return
		}
		defer writer.Close()

		data, exportErr := hw.OnExport()
		if exportErr != nil {
			dialog.ShowError(exportErr, hw.window)
			return
		}
		if _, writeErr := writer.Write(data); writeErr != nil {
			dialog.ShowError(writeErr, hw.window)
			return
		}
		hw.SetStatus("History exported")
	}, hw.window)
}

func (hw *HistoryWindow) importHistory() {
	if hw.OnImport == nil {
		return
	}
	dialog.ShowFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, hw.window)
			return
		}
		if reader == nil {
			return
		}
		defer reader.Close()

		data, readErr := io.ReadAll(reader)
		if readErr != nil {
			dialog.ShowError(readErr, hw.window)
			return
		}
		count, importErr := hw.OnImport(data)
		if importErr != nil {
			dialog.ShowError(importErr, hw.window)
			return
		}
		hw.SetStatus(fmt.Sprintf("Imported %d record(s)", count))
		hw.notifyQueryChanged()
	}, hw.window)
}
