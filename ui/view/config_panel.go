package view

import (
	"log/slog"
	"strings"

	"github.com/soocke/stream-console/config"
	"github.com/soocke/stream-console/ui/model"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// ConfigPanel encapsulates the capture settings form.
// It owns its widgets and writes back into *config.Config on ApplyChanges.
type ConfigPanel interface {
	Build(startRow int) (endRow int) // constructs widgets starting at startRow, returns next free row
	SetEditable(enabled bool)
	ApplyChanges() // parses widget text into underlying config and persists
	Refresh()      // reloads widget text from the config
}

type configPanel struct {
	cfg      *config.Config
	cfgPath  string
	logger   *slog.Logger
	applyBtn *ButtonWidget
	order    []string
	widgets  map[string]*TextWidget // keyed by model.Field ID
}

// NewConfigPanel creates the view bound to cfg.
func NewConfigPanel(cfg *config.Config, cfgPath string, logger *slog.Logger) ConfigPanel {
	return &configPanel{cfg: cfg, cfgPath: cfgPath, logger: logger, widgets: make(map[string]*TextWidget)}
}

func (v *configPanel) Build(startRow int) (row int) {
	row = startRow
	for _, f := range model.ConfigFields(v.cfg) {
		lbl := Label(Txt(f.Label), Anchor("w"))
		Grid(lbl, Row(row), Column(0), Sticky("w"), Padx("0.4m"), Pady("0.15m"))
		w := Text(Height(1), Width(16))
		Grid(w, Row(row), Column(1), Sticky("we"), Padx("0.4m"), Pady("0.15m"))
		w.Insert("1.0", f.Value)
		v.widgets[f.ID] = w
		v.order = append(v.order, f.ID)
		row++
	}
	v.applyBtn = Button(Txt("Apply Changes"), Command(func() { v.ApplyChanges() }))
	Grid(v.applyBtn, Row(row), Column(0), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	row++
	return row
}

func (v *configPanel) SetEditable(enabled bool) {
	state := "disabled"
	if enabled {
		state = "normal"
	}
	for _, w := range v.widgets {
		w.Configure(State(state))
	}
	if v.applyBtn != nil {
		v.applyBtn.Configure(State(state))
	}
}

func (v *configPanel) Refresh() {
	for _, f := range model.ConfigFields(v.cfg) {
		if w := v.widgets[f.ID]; w != nil {
			w.Delete("1.0", END)
			w.Insert("1.0", f.Value)
		}
	}
}

func (v *configPanel) ApplyChanges() {
	if v.cfg == nil {
		return
	}
	values := make(map[string]string, len(v.widgets))
	for _, id := range v.order {
		values[id] = strings.Join(v.widgets[id].Get("1.0", END), "")
	}
	cfg, err := model.ApplyFields(v.cfg, values)
	if err != nil {
		v.logger.Warn("config.apply", slog.Any("error", err))
		return
	}
	*v.cfg = cfg
	v.Refresh()
	if err := v.cfg.Save(v.cfgPath); err != nil {
		v.logger.Error("config.save", slog.String("path", v.cfgPath), slog.Any("error", err))
		return
	}
	v.logger.Info("config.save", slog.String("path", v.cfgPath))
}
