package model

import (
	"image"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/soocke/stream-console/config"
)

// SelectionModel holds the custom capture region chosen with the overlay and
// mirrors it into the config. The zero value has no selection.
type SelectionModel struct {
	mu   sync.Mutex
	rect image.Rectangle
}

// NewSelectionModel seeds the model from the persisted selection.
func NewSelectionModel(cfg *config.Config) *SelectionModel {
	m := &SelectionModel{}
	if cfg != nil && cfg.SelectionW > 0 && cfg.SelectionH > 0 {
		m.rect = image.Rect(cfg.SelectionX, cfg.SelectionY, cfg.SelectionX+cfg.SelectionW, cfg.SelectionY+cfg.SelectionH)
	}
	return m
}

// Active returns the current selection or nil.
func (m *SelectionModel) Active() *image.Rectangle {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rect.Empty() {
		return nil
	}
	r := m.rect
	return &r
}

// Set stores r and switches cfg to custom-area capture. Empty rectangles are
// rejected.
func (m *SelectionModel) Set(r image.Rectangle, cfg *config.Config) bool {
	if m == nil || r.Empty() {
		return false
	}
	m.mu.Lock()
	m.rect = r
	m.mu.Unlock()
	if cfg != nil {
		cfg.SelectionX, cfg.SelectionY = r.Min.X, r.Min.Y
		cfg.SelectionW, cfg.SelectionH = r.Dx(), r.Dy()
		cfg.CaptureArea = config.AreaCustom
	}
	return true
}

// Clear drops the selection. A config left on custom capture falls back to
// full screen.
func (m *SelectionModel) Clear(cfg *config.Config) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.rect = image.Rectangle{}
	m.mu.Unlock()
	if cfg != nil {
		cfg.SelectionW, cfg.SelectionH = 0, 0
		if cfg.CaptureArea == config.AreaCustom {
			cfg.CaptureArea = config.AreaFullScreen
		}
	}
}

// geometryRe matches Tk geometry strings in the format "WIDTHxHEIGHT+X+Y".
var geometryRe = regexp.MustCompile(`^(\d+)x(\d+)\+(-?\d+)\+(-?\d+)$`)

// ParseGeometry converts a Tk geometry string into a rectangle.
func ParseGeometry(g string) (image.Rectangle, bool) {
	m := geometryRe.FindStringSubmatch(strings.TrimSpace(g))
	if len(m) != 5 {
		return image.Rectangle{}, false
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	x, _ := strconv.Atoi(m[3])
	y, _ := strconv.Atoi(m[4])
	if w <= 0 || h <= 0 {
		return image.Rectangle{}, false
	}
	return image.Rect(x, y, x+w, y+h), true
}
