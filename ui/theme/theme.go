package theme

// Palette and ttk style setup for the stream console.

import (
	"github.com/soocke/stream-console/domain/capture"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

const (
	ColorBg        = "#f7f9fb"
	ColorSurface   = "#ffffff"
	ColorPrimary   = "#2563eb"
	ColorDanger    = "#dc2626"
	ColorWarning   = "#d97706"
	ColorAccent    = "#10b981"
	ColorText      = "#1e293b"
	ColorTextMuted = "#64748b"
	// ColorSignal is the preview background while no frame is available.
	ColorSignal = "#0f172a"
)

// Style names used with Style("primary.TButton") etc.
const (
	StylePrimaryButton = "primary.TButton"
	StyleDangerButton  = "danger.TButton"
	StyleStateLabel    = "state.TLabel"
)

// StateColor maps a capture state to the badge background.
func StateColor(s capture.State) string {
	switch s {
	case capture.StateRunning:
		return ColorAccent
	case capture.StateInitializing, capture.StateRecovering:
		return ColorWarning
	case capture.StateFailed:
		return ColorDanger
	}
	return ColorTextMuted
}

// InitStyles activates the base theme and configures semantic widget styles.
func InitStyles() {
	_ = ActivateTheme("azure light")
	App.Configure(Background(ColorBg))
	StyleConfigure(StylePrimaryButton, Background(ColorPrimary), Foreground("white"), Padding("4p 3p"), Borderwidth(1), Relief("ridge"))
	StyleConfigure(StyleDangerButton, Background(ColorDanger), Foreground("white"), Padding("4p 3p"), Borderwidth(1), Relief("ridge"))
	StyleConfigure(StyleStateLabel, Foreground("white"), Background(ColorTextMuted), Padding("4p 2p"), Borderwidth(1), Relief("groove"))
}
