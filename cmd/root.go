package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soocke/stream-console/config"
	"github.com/soocke/stream-console/debug"
	"github.com/soocke/stream-console/domain/capture"
)

// PreviewFunc runs the interactive preview console until its window closes.
type PreviewFunc func(cfg *config.Config, cfgPath string, logger *slog.Logger, open capture.Opener) error

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	ConfigPath string
	LogLevel   string
	Debug      bool

	Area        string
	Window      string
	Display     int
	FPS         float64
	Width       int
	Height      int
	PixelFormat string
	Pacing      string
	SIMD        string

	out     io.Writer
	logOut  io.Writer
	open    capture.Opener
	preview PreviewFunc
}

// Execute runs the stream-console CLI. preview backs the root command.
func Execute(preview PreviewFunc) error {
	return NewRootCommand(preview).Execute()
}

// NewRootCommand builds the command tree.
func NewRootCommand(preview PreviewFunc) *cobra.Command {
	return newRootCommand(&rootOptions{out: os.Stdout, logOut: os.Stdout, preview: preview})
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stream-console",
		Short: "Screen capture console for streaming",
		Long: `stream-console captures a display, window or screen region, converts each frame to a
fixed output size and pixel format, and keeps the newest frame ready for consumers.
Without a subcommand it opens the preview console.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd, opts)
		},
	}
	cmd.SetOut(opts.out)

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", config.DefaultPath(), "Path to the JSON config file")
	flags.StringVar(&opts.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.BoolVar(&opts.Debug, "debug", false, "Enable runtime debug loggers")
	flags.StringVar(&opts.Area, "area", "", "Capture area (full_screen, window, custom)")
	flags.StringVar(&opts.Window, "window", "", "Window title for window capture")
	flags.IntVar(&opts.Display, "display", 0, "Display index for full screen capture")
	flags.Float64Var(&opts.FPS, "fps", 0, "Target frames per second (0 = unpaced)")
	flags.IntVar(&opts.Width, "width", 0, "Output width (0 with --height 0 keeps the source size)")
	flags.IntVar(&opts.Height, "height", 0, "Output height")
	flags.StringVar(&opts.PixelFormat, "format", "", "Output pixel format (rgb, bgr, rgba, bgra)")
	flags.StringVar(&opts.Pacing, "pacing", "", "Frame pacing (hybrid, sleep, spin)")
	flags.StringVar(&opts.SIMD, "simd", "", "Row kernel selection (auto, off)")

	cmd.RegisterFlagCompletionFunc("area", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return areaNames(), cobra.ShellCompDirectiveNoFileComp
	})
	cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"rgb", "bgr", "rgba", "bgra"}, cobra.ShellCompDirectiveNoFileComp
	})

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewSnapshotCommand(opts))
	cmd.AddCommand(NewAreasCommand(opts))
	return cmd
}

func runPreview(cmd *cobra.Command, opts *rootOptions) error {
	cfg, logger, err := opts.load(cmd)
	if err != nil {
		return err
	}
	if opts.preview == nil {
		return fmt.Errorf("preview console not available in this build")
	}
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	opts.startDebug(ctx, cfg, logger)
	return opts.preview(cfg, opts.ConfigPath, logger, opts.open)
}

// load reads the config file, applies flag overrides and builds the logger.
// A broken config file is logged and replaced by defaults.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	level, err := parseLevel(o.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	logger := NewLogger(o.logOut, level)
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		logger.Warn("config.load", slog.String("path", o.ConfigPath), slog.Any("error", err))
	}
	o.applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// applyFlags copies explicitly set flags over cfg.
func (o *rootOptions) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("debug") {
		cfg.Debug = o.Debug
	}
	if changed("area") {
		cfg.CaptureArea = o.Area
	}
	if changed("window") {
		cfg.WindowTitle = o.Window
		if !changed("area") {
			cfg.CaptureArea = config.AreaWindow
		}
	}
	if changed("display") {
		cfg.DisplayIndex = o.Display
	}
	if changed("fps") {
		cfg.TargetFPS = o.FPS
	}
	if changed("width") {
		cfg.OutputWidth = o.Width
	}
	if changed("height") {
		cfg.OutputHeight = o.Height
	}
	if changed("format") {
		cfg.PixelFormat = o.PixelFormat
	}
	if changed("pacing") {
		cfg.Pacing = o.Pacing
	}
	if changed("simd") {
		cfg.SIMD = o.SIMD
	}
}

func (o *rootOptions) startDebug(ctx context.Context, cfg *config.Config, logger *slog.Logger) {
	if !cfg.Debug {
		return
	}
	debug.StartGoroutineLogger(ctx, 0, logger)
	debug.StartMemLogger(ctx, 0, logger)
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return l, fmt.Errorf("invalid --log-level %q: %w", s, err)
	}
	return l, nil
}

func areaNames() []string {
	var names []string
	for _, a := range capture.SupportedAreas() {
		names = append(names, string(a))
	}
	return names
}
