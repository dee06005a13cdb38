package view

import (
	"fmt"
	"log/slog"

	"github.com/soocke/stream-console/config"
	"github.com/soocke/stream-console/ui/model"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders
	. "modernc.org/tk9.0"
)

// SelectionOverlay manages the transparent window the user drags and resizes
// over the region to stream. Confirming switches capture to the custom area.
type SelectionOverlay interface {
	OpenOrFocus()
	Clear()
}

type selectionOverlay struct {
	logger    *slog.Logger
	cfg       *config.Config
	cfgPath   string
	selection *model.SelectionModel
	onChange  func()
	win       *ToplevelWidget
}

// NewSelectionOverlay creates a new overlay manager. onChange runs after the
// selection is confirmed or cleared.
func NewSelectionOverlay(cfg *config.Config, cfgPath string, sel *model.SelectionModel, onChange func(), logger *slog.Logger) SelectionOverlay {
	return &selectionOverlay{logger: logger, cfg: cfg, cfgPath: cfgPath, selection: sel, onChange: onChange}
}

// Desktop size assumed when placing a fresh overlay.
const screenW, screenH = 1920, 1080

func (v *selectionOverlay) OpenOrFocus() {
	if v.win != nil {
		WmGeometry(v.win.Window)
		return
	}
	win := App.Toplevel(Borderwidth(2), Background("#008080"))
	win.WmTitle("Stream Region")
	v.win = win
	geom := fmt.Sprintf("%dx%d+%d+%d", screenW*2/3, screenH*5/9, screenW/6, screenH*2/9)
	if r := v.selection.Active(); r != nil {
		geom = fmt.Sprintf("%dx%d+%d+%d", r.Dx(), r.Dy(), r.Min.X, r.Min.Y)
	}
	WmGeometry(win.Window, geom)
	WmAttributes(win.Window, "-topmost", 1)
	WmAttributes(win.Window, "-toolwindow", true)
	WmAttributes(win.Window, "-transparentcolor", "#008080")
	GridRowConfigure(win.Window, 0, Weight(1))
	GridColumnConfigure(win.Window, 0, Weight(0))
	GridColumnConfigure(win.Window, 1, Weight(1))
	GridColumnConfigure(win.Window, 2, Weight(0))
	left := win.Frame(Width(4), Background("#FFFFFF"))
	Grid(left, Row(0), Column(0), Sticky("ns"))
	center := win.Frame(Background("#008080"))
	Grid(center, Row(0), Column(1), Sticky("nsew"))
	right := win.Frame(Width(4), Background("#FFFFFF"))
	Grid(right, Row(0), Column(2), Sticky("ns"))
	controls := win.Frame()
	Grid(controls, Row(1), Column(0), Columnspan(3), Sticky("we"))
	confirm := win.Button(Txt("Stream Region [Enter]"), Command(v.confirm))
	Grid(confirm, In(controls), Row(0), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	cancel := win.Button(Txt("Cancel [Esc]"), Command(v.destroy))
	Grid(cancel, In(controls), Row(0), Column(1), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	clear := win.Button(Txt("Full Screen"), Command(v.Clear))
	Grid(clear, In(controls), Row(0), Column(2), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	Bind(win, "<Return>", Command(v.confirm))
	Bind(win, "<Escape>", Command(v.destroy))
}

func (v *selectionOverlay) Clear() {
	v.selection.Clear(v.cfg)
	v.persist()
	v.destroy()
}

func (v *selectionOverlay) confirm() {
	if v.win == nil {
		return
	}
	if rect, ok := model.ParseGeometry(WmGeometry(v.win.Window)); ok && v.selection.Set(rect, v.cfg) {
		v.logger.Info("selection.set", slog.String("region", rect.String()))
		v.persist()
	}
	v.destroy()
}

func (v *selectionOverlay) persist() {
	if v.cfg != nil {
		if err := v.cfg.Save(v.cfgPath); err != nil {
			v.logger.Error("config.save", slog.String("path", v.cfgPath), slog.Any("error", err))
		}
	}
	if v.onChange != nil {
		v.onChange()
	}
}

func (v *selectionOverlay) destroy() {
	if v.win != nil {
		Destroy(v.win)
		v.win = nil
	}
}
