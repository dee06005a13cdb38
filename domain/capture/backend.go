package capture

import (
	"fmt"
	"slices"
)

// Open creates a Session for opts.Area using the platform backend.
func Open(opts SessionOptions) (Session, error) {
	if opts.Area == "" {
		opts.Area = AreaFullScreen
	}
	if !Supported(opts.Area) {
		return nil, fmt.Errorf("%w: %s capture", ErrNotSupported, opts.Area)
	}
	switch opts.Area {
	case AreaFullScreen:
		return openFullScreen(opts)
	case AreaWindow:
		if opts.WindowTitle == "" {
			return nil, fmt.Errorf("%w: window capture needs a window title", ErrDeviceCreation)
		}
		return openWindow(opts)
	case AreaCustom:
		if opts.Region.Empty() {
			return nil, fmt.Errorf("%w: empty capture region %v", ErrDeviceCreation, opts.Region)
		}
		return openRegion(opts)
	}
	return nil, fmt.Errorf("%w: unknown area %q", ErrNotSupported, opts.Area)
}

// SupportedAreas lists the areas Open can capture on this platform.
func SupportedAreas() []Area { return slices.Clone(supportedAreas) }

// Supported reports whether Open can capture a on this platform.
func Supported(a Area) bool { return slices.Contains(supportedAreas, a) }
