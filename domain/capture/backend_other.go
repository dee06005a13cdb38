//go:build !windows && !linux

package capture

import "fmt"

var supportedAreas []Area

func openFullScreen(SessionOptions) (Session, error) {
	return nil, fmt.Errorf("%w: full screen capture", ErrNotSupported)
}

func openWindow(SessionOptions) (Session, error) {
	return nil, fmt.Errorf("%w: window capture", ErrNotSupported)
}

func openRegion(SessionOptions) (Session, error) {
	return nil, fmt.Errorf("%w: region capture", ErrNotSupported)
}
