package capture

import "fmt"

// stagingDesc identifies a CPU-readable copy target.
type stagingDesc struct {
	Width  int
	Height int
	Format PixelFormat
}

// stagingCache holds one staging resource and recreates it only when the
// requested description changes.
type stagingCache[T any] struct {
	desc    stagingDesc
	res     T
	valid   bool
	create  func(stagingDesc) (T, error)
	destroy func(T)
	creates int
}

func (c *stagingCache[T]) get(d stagingDesc) (T, error) {
	if c.valid && c.desc == d {
		return c.res, nil
	}
	c.release()
	res, err := c.create(d)
	if err != nil {
		// counted as a failed acquire so a persistent failure ends in a rebuild
		var zero T
		return zero, fmt.Errorf("staging %dx%d %s: %w: %w", d.Width, d.Height, d.Format, ErrFrameAcquire, err)
	}
	c.res, c.desc, c.valid = res, d, true
	c.creates++
	return res, nil
}

func (c *stagingCache[T]) release() {
	if !c.valid {
		return
	}
	if c.destroy != nil {
		c.destroy(c.res)
	}
	var zero T
	c.res, c.valid = zero, false
}
