package view

import (
	"image"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/soocke/stream-console/config"
	"github.com/soocke/stream-console/domain/capture"
	"github.com/soocke/stream-console/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// RootView composes the top-level console layout and wires UI callbacks.
// It owns high-level subviews and satisfies the presenter view contracts.
type RootView struct {
	cfg     *config.Config
	cfgPath string
	logger  *slog.Logger

	// Subviews
	Session     SessionStats
	ConfigPanel ConfigPanel
	CapturePrev CapturePreview

	// Widgets
	StateLabel  *LabelWidget
	StatusLabel *LabelWidget
	ErrorLabel  *LabelWidget
	AreaSelect  *TComboboxWidget
	ToggleBtn   *TButtonWidget
}

// Handlers are invoked on user actions.
type Handlers struct {
	Toggle      func()
	Region      func()
	Exit        func()
	AreaChanged func(area string)
}

func NewRootView(cfg *config.Config, cfgPath string, logger *slog.Logger) *RootView {
	return &RootView{cfg: cfg, cfgPath: cfgPath, logger: logger}
}

// Build constructs the layout. areas lists the capture areas offered in the
// dropdown; the configured area is preselected.
func (rv *RootView) Build(areas []string, h Handlers) {
	if rv == nil {
		return
	}
	theme.InitStyles()

	// Row 0: session stats, state badge, buttons frame
	rv.Session = NewSessionStats(0, 0)
	rv.StateLabel = Label(Txt("State: uninitialized"), Borderwidth(1), Relief("ridge"), Foreground("white"), Background(theme.ColorTextMuted))
	Grid(rv.StateLabel, Row(0), Column(3), Sticky("we"), Padx("0.4m"), Pady("0.3m"))

	btnFrame := Frame()
	Grid(btnFrame, Row(0), Column(4), Rowspan(3), Sticky("ne"), Padx("0.3m"), Pady("0.3m"))
	rv.ToggleBtn = TButton(Txt("Go Live"), Style(theme.StylePrimaryButton), Command(h.Toggle))
	Grid(rv.ToggleBtn, In(btnFrame), Row(0), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	if len(areas) == 0 {
		areas = []string{config.AreaFullScreen}
	}
	rv.AreaSelect = TCombobox(Values(areas), Width(18))
	Grid(rv.AreaSelect, In(btnFrame), Row(1), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	rv.AreaSelect.Current(max(slices.Index(areas, rv.cfg.CaptureArea), 0))
	Bind(rv.AreaSelect, "<<ComboboxSelected>>", Command(func() {
		idx, err := strconv.Atoi(rv.AreaSelect.Current(nil))
		if err != nil || idx < 0 || idx >= len(areas) {
			rv.logger.Error("area selection parse error", slog.Any("error", err))
			return
		}
		h.AreaChanged(areas[idx])
	}))
	regionBtn := Button(Txt("Select Region"), Command(h.Region))
	Grid(regionBtn, In(btnFrame), Row(2), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	exitBtn := TButton(Txt("Exit"), Style(theme.StyleDangerButton), Command(h.Exit))
	Grid(exitBtn, In(btnFrame), Row(3), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))

	// Row 1-2: status line and last error
	rv.StatusLabel = Label(Txt(""), Anchor("w"))
	Grid(rv.StatusLabel, Row(1), Column(0), Columnspan(4), Sticky("we"), Padx("0.4m"))
	rv.ErrorLabel = Label(Txt(""), Anchor("w"), Foreground(theme.ColorDanger))
	Grid(rv.ErrorLabel, Row(2), Column(0), Columnspan(4), Sticky("we"), Padx("0.4m"))

	rv.CapturePrev = NewCapturePreview(3)

	rv.ConfigPanel = NewConfigPanel(rv.cfg, rv.cfgPath, rv.logger)
	rv.ConfigPanel.Build(4)
}

// SetArea reflects a config change made outside the dropdown.
func (rv *RootView) SetArea(areas []string, area string) {
	if rv == nil || rv.AreaSelect == nil {
		return
	}
	if i := slices.Index(areas, area); i >= 0 {
		rv.AreaSelect.Current(i)
	}
}

// --- StatusView ---

func (rv *RootView) SetState(s capture.State) {
	if rv == nil || rv.StateLabel == nil {
		return
	}
	rv.StateLabel.Configure(Txt("State: "+s.String()), Background(theme.StateColor(s)))
	if rv.ToggleBtn != nil {
		txt := "Go Live"
		if s == capture.StateRunning || s == capture.StateRecovering || s == capture.StateInitializing {
			txt = "Stop"
		}
		rv.ToggleBtn.Configure(Txt(txt))
	}
}

func (rv *RootView) SetStatus(text string) {
	if rv != nil && rv.StatusLabel != nil {
		rv.StatusLabel.Configure(Txt(text))
	}
}

// --- SessionView ---

func (rv *RootView) SetSession(session, total time.Duration, frames uint64) {
	if rv != nil && rv.Session != nil {
		rv.Session.SetSession(session, total, frames)
	}
}

// --- PreviewView ---

func (rv *RootView) ShowFrame(img image.Image) {
	if rv != nil && rv.CapturePrev != nil {
		rv.CapturePrev.ShowFrame(img)
	}
}

func (rv *RootView) ShowPlaceholder(text string) {
	if rv != nil && rv.CapturePrev != nil {
		rv.CapturePrev.ShowPlaceholder(text)
	}
}

// --- CaptureView ---

// PreviewReset blanks the preview until the next frame arrives.
func (rv *RootView) PreviewReset() { rv.ShowPlaceholder("") }

func (rv *RootView) ConfigEditable(b bool) {
	if rv == nil {
		return
	}
	if rv.ConfigPanel != nil {
		rv.ConfigPanel.SetEditable(b)
	}
	if rv.AreaSelect != nil {
		state := "disabled"
		if b {
			state = "readonly"
		}
		rv.AreaSelect.Configure(State(state))
	}
}

func (rv *RootView) ShowError(msg string) {
	if rv != nil && rv.ErrorLabel != nil {
		rv.ErrorLabel.Configure(Txt(msg))
	}
}
