package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. STREAM_CONSOLE_TARGET_FPS=30.
const EnvPrefix = "STREAM_CONSOLE"

// Capture areas.
const (
	AreaFullScreen = "full_screen"
	AreaWindow     = "window"
	AreaCustom     = "custom"
)

// Pacing modes.
const (
	PacingHybrid = "hybrid"
	PacingSleep  = "sleep"
	PacingSpin   = "spin"
)

// Config holds runtime configuration for the capture pipeline and the console.
// Fields may be loaded from a JSON file, overridden by environment variables and
// finally by command-line flags.
type Config struct {
	Debug bool `json:"debug" mapstructure:"debug"`

	// Capture source
	CaptureArea  string `json:"capture_area" mapstructure:"capture_area"`
	DisplayIndex int    `json:"display_index" mapstructure:"display_index"`
	WindowTitle  string `json:"window_title" mapstructure:"window_title"`

	// Custom area rectangle, persisted by the selection overlay.
	SelectionX int `json:"selection_x" mapstructure:"selection_x"`
	SelectionY int `json:"selection_y" mapstructure:"selection_y"`
	SelectionW int `json:"selection_w" mapstructure:"selection_w"`
	SelectionH int `json:"selection_h" mapstructure:"selection_h"`

	// Output frames
	TargetFPS    float64 `json:"target_fps" mapstructure:"target_fps"`
	OutputWidth  int     `json:"output_width" mapstructure:"output_width"`
	OutputHeight int     `json:"output_height" mapstructure:"output_height"`
	PixelFormat  string  `json:"pixel_format" mapstructure:"pixel_format"`
	OpaqueAlpha  bool    `json:"opaque_alpha" mapstructure:"opaque_alpha"`

	// Loop tuning
	Pacing               string `json:"pacing" mapstructure:"pacing"`
	AcquireTimeoutMs     int    `json:"acquire_timeout_ms" mapstructure:"acquire_timeout_ms"`
	MaxTransientFailures int    `json:"max_transient_failures" mapstructure:"max_transient_failures"`
	ReinitAttempts       int    `json:"reinit_attempts" mapstructure:"reinit_attempts"`
	ReinitDelayMs        int    `json:"reinit_delay_ms" mapstructure:"reinit_delay_ms"`
	ReinitMaxDelayMs     int    `json:"reinit_max_delay_ms" mapstructure:"reinit_max_delay_ms"`
	SIMD                 string `json:"simd" mapstructure:"simd"`
	StatsIntervalSeconds int    `json:"stats_interval_seconds" mapstructure:"stats_interval_seconds"`
}

// DefaultConfig returns a Config populated with standard defaults: full screen
// at 60 fps, downscaled to 1280x720 packed RGB.
func DefaultConfig() *Config {
	return &Config{
		Debug:                false,
		CaptureArea:          AreaFullScreen,
		DisplayIndex:         0,
		TargetFPS:            60,
		OutputWidth:          1280,
		OutputHeight:         720,
		PixelFormat:          "rgb",
		OpaqueAlpha:          true,
		Pacing:               PacingHybrid,
		AcquireTimeoutMs:     16,
		MaxTransientFailures: 30,
		ReinitAttempts:       10,
		ReinitDelayMs:        50,
		ReinitMaxDelayMs:     2000,
		SIMD:                 "auto",
		StatsIntervalSeconds: 5,
	}
}

// DefaultPath returns the per-user config location.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "stream-console", "config.json")
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	switch c.CaptureArea {
	case AreaFullScreen, AreaWindow, AreaCustom:
	default:
		c.CaptureArea = AreaFullScreen
	}
	if c.CaptureArea == AreaCustom && (c.SelectionW <= 0 || c.SelectionH <= 0) {
		c.CaptureArea = AreaFullScreen
	}
	if c.CaptureArea == AreaWindow && strings.TrimSpace(c.WindowTitle) == "" {
		c.CaptureArea = AreaFullScreen
	}
	if c.DisplayIndex < 0 {
		c.DisplayIndex = 0
	}
	if c.SelectionW < 0 {
		c.SelectionW = 0
	}
	if c.SelectionH < 0 {
		c.SelectionH = 0
	}
	if c.TargetFPS < 0 || c.TargetFPS > 240 {
		c.TargetFPS = 60
	}
	if c.OutputWidth < 0 || c.OutputHeight < 0 || (c.OutputWidth == 0) != (c.OutputHeight == 0) {
		c.OutputWidth, c.OutputHeight = 1280, 720
	}
	c.PixelFormat = strings.ToLower(c.PixelFormat)
	switch c.PixelFormat {
	case "rgb", "bgr", "rgba", "bgra":
	default:
		c.PixelFormat = "rgb"
	}
	switch c.Pacing {
	case PacingHybrid, PacingSleep, PacingSpin:
	default:
		c.Pacing = PacingHybrid
	}
	if c.AcquireTimeoutMs <= 0 || c.AcquireTimeoutMs > 1000 {
		c.AcquireTimeoutMs = 16
	}
	if c.MaxTransientFailures <= 0 {
		c.MaxTransientFailures = 30
	}
	if c.ReinitAttempts <= 0 {
		c.ReinitAttempts = 10
	}
	if c.ReinitDelayMs <= 0 {
		c.ReinitDelayMs = 50
	}
	if c.ReinitMaxDelayMs < c.ReinitDelayMs {
		c.ReinitMaxDelayMs = c.ReinitDelayMs
	}
	switch c.SIMD {
	case "auto", "off":
	default:
		c.SIMD = "auto"
	}
	if c.StatsIntervalSeconds <= 0 {
		c.StatsIntervalSeconds = 5
	}
	return nil
}

// Load reads configuration from the given JSON file path and applies
// STREAM_CONSOLE_* environment overrides. A missing file yields the defaults
// (plus overrides). On decode error it returns defaults with the error.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("json")
			if err := v.ReadInConfig(); err != nil {
				return DefaultConfig(), err
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), err
		}
	}
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return DefaultConfig(), err
	}
	_ = cfg.Validate()
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

// newViper registers every Config key with its default so AutomaticEnv can
// resolve overrides for keys absent from the file.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	def := reflect.ValueOf(DefaultConfig()).Elem()
	t := def.Type()
	for i := 0; i < t.NumField(); i++ {
		key := t.Field(i).Tag.Get("mapstructure")
		if key == "" {
			continue
		}
		v.SetDefault(key, def.Field(i).Interface())
	}
	return v
}
