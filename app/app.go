package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/soocke/stream-console/config"
	"github.com/soocke/stream-console/domain/capture"
	"github.com/soocke/stream-console/ui/presenter"
	"github.com/soocke/stream-console/ui/view"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// tick is the preview refresh period.
const tick = 33 * time.Millisecond

// Console is the Tk preview console.
type Console struct {
	c       *AppContainer
	logger  *slog.Logger
	afterID string
	areas   []string
	closed  bool
	stopped bool
}

// NewConsole builds the container and sizes the root window. open may be nil
// to use the platform capture backend.
func NewConsole(title string, width, height int, cfg *config.Config, cfgPath string, logger *slog.Logger, open capture.Opener) *Console {
	a := &Console{c: BuildContainer(cfg, cfgPath, logger, open), logger: logger}
	for _, area := range capture.SupportedAreas() {
		a.areas = append(a.areas, string(area))
	}
	App.WmTitle(title)
	WmProtocol(App, "WM_DELETE_WINDOW", a.exitHandler)
	WmGeometry(App, fmt.Sprintf("%dx%d+100+100", width, height))
	return a
}

// Run builds the widgets and blocks in the Tk event loop until the window
// closes. The capture service is stopped before returning.
func (a *Console) Run() {
	c := a.c
	c.RootView.Build(a.areas, view.Handlers{
		Toggle: func() {
			if err := c.CapturePresenter.Toggle(); err != nil {
				a.logger.Error("capture.start", slog.Any("error", err))
			}
		},
		Region:      func() { c.Overlay.OpenOrFocus() },
		Exit:        a.exitHandler,
		AreaChanged: c.SelectArea,
	})
	c.Overlay = view.NewSelectionOverlay(c.Config, c.ConfigPath, c.Selection, func() {
		c.RootView.SetArea(a.areas, c.Config.CaptureArea)
		c.RootView.ConfigPanel.Refresh()
	}, a.logger)
	c.Loop = presenter.NewLoop(c.SessionPresenter, c.StatusPresenter, c.PreviewPresenter, a.scheduleUpdate)
	c.Loop.Tick()
	App.Wait()
	a.shutdown()
}

func (a *Console) update() {
	if a.closed {
		return
	}
	a.c.DrainFatal()
	a.c.Loop.Tick()
}

func (a *Console) scheduleUpdate() {
	// TclAfter keeps updates on Tk's event loop thread.
	a.afterID = TclAfter(tick, a.update)
}

func (a *Console) exitHandler() {
	if a.closed {
		return
	}
	a.closed = true
	if a.afterID != "" {
		TclAfterCancel(a.afterID)
	}
	a.shutdown()
	Destroy(App)
}

func (a *Console) shutdown() {
	if a.stopped {
		return
	}
	a.stopped = true
	a.c.CaptureSvc.Stop()
	a.logger.Info("console.exit", slog.String("state", a.c.CaptureSvc.State().String()))
}
