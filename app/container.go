package app

import (
	"log/slog"

	"github.com/soocke/stream-console/config"
	"github.com/soocke/stream-console/domain/capture"
	"github.com/soocke/stream-console/ui/model"
	"github.com/soocke/stream-console/ui/presenter"
	"github.com/soocke/stream-console/ui/view"
)

// AppContainer assembles models, services, presenters and the root view.
type AppContainer struct {
	Config     *config.Config
	ConfigPath string
	Logger     *slog.Logger
	Capture    *model.CaptureModel
	Session    *model.SessionModel
	Selection  *model.SelectionModel
	CaptureSvc capture.CaptureService
	RootView   *view.RootView
	Overlay    view.SelectionOverlay

	// Presenters
	CapturePresenter *presenter.CapturePresenter
	SessionPresenter *presenter.SessionPresenter
	StatusPresenter  *presenter.StatusPresenter
	PreviewPresenter *presenter.PreviewPresenter
	Loop             *presenter.Loop

	// fatal carries service failures from the capture goroutine to the Tk thread.
	fatal chan error
}

// BuildContainer constructs all non-Tk components. Widgets are created later
// by the app once the Tk root exists.
func BuildContainer(cfg *config.Config, cfgPath string, logger *slog.Logger, open capture.Opener) *AppContainer {
	c := &AppContainer{Config: cfg, ConfigPath: cfgPath, Logger: logger, fatal: make(chan error, 1)}
	c.Capture = &model.CaptureModel{}
	c.Session = model.NewSessionModel()
	c.Selection = model.NewSelectionModel(cfg)
	c.CaptureSvc = capture.NewCaptureService(logger, cfg, open)
	c.CaptureSvc.SetFatalHandler(func(err error) {
		select {
		case c.fatal <- err:
		default:
		}
	})
	c.RootView = view.NewRootView(cfg, cfgPath, logger)
	c.CapturePresenter = presenter.NewCapturePresenter(c.Capture, c.CaptureSvc, c.RootView)
	c.SessionPresenter = presenter.NewSessionPresenter(c.Session, c.Capture, c.CaptureSvc, c.RootView)
	c.StatusPresenter = presenter.NewStatusPresenter(c.CaptureSvc, c.RootView)
	c.PreviewPresenter = presenter.NewPreviewPresenter(c.CaptureSvc, c.RootView, logger)
	return c
}

// DrainFatal hands at most one pending service failure to the capture
// presenter. Call from the Tk thread.
func (c *AppContainer) DrainFatal() {
	select {
	case err := <-c.fatal:
		c.Logger.Error("capture.fatal", slog.Any("error", err))
		c.CapturePresenter.Fatal(err)
	default:
	}
}

// SelectArea switches the capture area. Custom capture without a saved
// region opens the overlay instead.
func (c *AppContainer) SelectArea(area string) {
	if area == config.AreaCustom && c.Selection.Active() == nil {
		if c.Overlay != nil {
			c.Overlay.OpenOrFocus()
		}
		return
	}
	c.Config.CaptureArea = area
	if err := c.Config.Save(c.ConfigPath); err != nil {
		c.Logger.Error("config.save", slog.String("path", c.ConfigPath), slog.Any("error", err))
	}
}
