package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/soocke/stream-console/config"
)

// Field is one editable row of the settings form.
type Field struct {
	ID    string
	Label string
	Value string
}

// ConfigFields lists the form rows for cfg in display order.
func ConfigFields(cfg *config.Config) []Field {
	c := cfg
	if c == nil {
		c = config.DefaultConfig()
	}
	return []Field{
		{"targetFps", "Target FPS", strconv.FormatFloat(c.TargetFPS, 'f', -1, 64)},
		{"outputWidth", "Output Width (0 = source)", strconv.Itoa(c.OutputWidth)},
		{"outputHeight", "Output Height (0 = source)", strconv.Itoa(c.OutputHeight)},
		{"pixelFormat", "Pixel Format (rgb/bgr/rgba/bgra)", c.PixelFormat},
		{"opaqueAlpha", "Opaque Alpha (true/false)", strconv.FormatBool(c.OpaqueAlpha)},
		{"pacing", "Pacing (hybrid/sleep/spin)", c.Pacing},
		{"displayIndex", "Display Index", strconv.Itoa(c.DisplayIndex)},
		{"windowTitle", "Window Title", c.WindowTitle},
		{"acquireTimeoutMs", "Acquire Timeout ms", strconv.Itoa(c.AcquireTimeoutMs)},
		{"maxTransientFailures", "Max Transient Failures", strconv.Itoa(c.MaxTransientFailures)},
		{"reinitAttempts", "Reinit Attempts", strconv.Itoa(c.ReinitAttempts)},
		{"simd", "SIMD (auto/off)", c.SIMD},
	}
}

// ApplyFields parses form values over a copy of cfg and validates the result.
// Unknown IDs and blank values are ignored; the first unparsable value fails
// the whole form.
func ApplyFields(cfg *config.Config, values map[string]string) (config.Config, error) {
	out := *config.DefaultConfig()
	if cfg != nil {
		out = *cfg
	}
	for id, raw := range values {
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		var err error
		switch id {
		case "targetFps":
			out.TargetFPS, err = strconv.ParseFloat(v, 64)
		case "outputWidth":
			out.OutputWidth, err = strconv.Atoi(v)
		case "outputHeight":
			out.OutputHeight, err = strconv.Atoi(v)
		case "pixelFormat":
			out.PixelFormat = strings.ToLower(v)
		case "opaqueAlpha":
			out.OpaqueAlpha, err = parseBoolLoose(v)
		case "pacing":
			out.Pacing = strings.ToLower(v)
		case "displayIndex":
			out.DisplayIndex, err = strconv.Atoi(v)
		case "windowTitle":
			out.WindowTitle = v
		case "acquireTimeoutMs":
			out.AcquireTimeoutMs, err = strconv.Atoi(v)
		case "maxTransientFailures":
			out.MaxTransientFailures, err = strconv.Atoi(v)
		case "reinitAttempts":
			out.ReinitAttempts, err = strconv.Atoi(v)
		case "simd":
			out.SIMD = strings.ToLower(v)
		}
		if err != nil {
			return out, fmt.Errorf("field %s: %w", id, err)
		}
	}
	if err := out.Validate(); err != nil {
		return out, err
	}
	return out, nil
}

func parseBoolLoose(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "y", "on", "t":
		return true, nil
	case "false", "0", "no", "n", "off", "f":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}
