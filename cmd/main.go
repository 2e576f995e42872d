package main

import (
	"context"
	"os"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"

	"image-host-client/internal/api"
	"image-host-client/internal/app"
	"image-host-client/internal/config"
	"image-host-client/internal/models"
	"image-host-client/internal/storage"
	"image-host-client/internal/ui"
	"image-host-client/pkg/logger"
)

func main() {
	log := logger.New()
	log.Info("Image host client starting...")

	cfg, err := config.Load()
	if err != nil {
		log.ErrorWithError("invalid configuration", err)
		os.Exit(1)
	}

	store, err := storage.NewFileRecordStore(cfg.HistoryFile, cfg.HistoryLimit)
	if err != nil {
		log.ErrorWithError("failed to open local history", err)
		os.Exit(1)
	}

	var service api.HistoryService
	if cfg.ServerBacked() {
		client, clientErr := api.NewClient(cfg.ServerURL, cfg.RequestTimeout,
			func(ctx context.Context) (string, error) { return cfg.AuthToken, nil }, nil)
		if clientErr != nil {
			log.ErrorWithError("failed to create API client", clientErr)
			os.Exit(1)
		}
		service = client
	} else {
		log.Info("No server configured, running in local-only mode")
	}

	application := fyneapp.NewWithID("com.imagehost.client")

	presenter := ui.NewHistoryPresenter(cfg.PageSize, cfg.ServerBacked())
	window := ui.NewHistoryWindow(application, presenter, ui.NewDebouncer(cfg.SearchDebounce))
	notifier := ui.NewToastNotifier(application)

	controller := app.NewController(cfg, store, service, presenter,
		&uiThreadView{window: window}, notifier)

	window.OnQueryChanged = func() { go controller.RefreshQuery() }
	window.OnRename = controller.HandleRename
	window.OnDeleteRecords = controller.HandleDeleteRecords
	window.OnClearAll = controller.HandleClearAll
	window.OnGenerateManifest = controller.HandleGenerateManifest
	window.OnExport = controller.HandleExport
	window.OnImport = controller.HandleImport
	window.OnLoadThumbnail = controller.HandleLoadThumbnail

	go func() {
		if err := controller.Start(); err != nil {
			log.ErrorWithError("controller startup failed", err)
		}
	}()
	defer controller.Stop()

	log.Info("Application UI initialized")
	window.Show()
}

// uiThreadView marshals controller updates onto the UI thread. The
// controller calls these from worker goroutines.
type uiThreadView struct {
	window *ui.HistoryWindow
}

func (v *uiThreadView) SetStatus(status string) {
	fyne.Do(func() { v.window.SetStatus(status) })
}

func (v *uiThreadView) SetMutationsEnabled(enabled bool) {
	fyne.Do(func() { v.window.SetMutationsEnabled(enabled) })
}

func (v *uiThreadView) SetAdminEnabled(enabled bool) {
	fyne.Do(func() { v.window.SetAdminEnabled(enabled) })
}

func (v *uiThreadView) Refresh() {
	fyne.Do(func() { v.window.Refresh() })
}

func (v *uiThreadView) InvalidateThumbnail(record *models.HistoryRecord) {
	fyne.Do(func() { v.window.InvalidateThumbnail(record) })
}
