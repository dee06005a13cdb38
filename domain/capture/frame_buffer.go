package capture

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// FrameMeta describes the pixels handed to Publish.
type FrameMeta struct {
	Width      int
	Height     int
	Format     PixelFormat
	Sequence   uint64
	CapturedAt time.Time
	SessionID  string
}

type frameSlot struct {
	data []byte
	meta FrameMeta
}

// FrameBuffer is the hand-off point between the frame loop and its readers.
// It keeps two slots: the producer fills the back slot while the front slot
// holds what readers last observed. A pending bit marks a completed back
// slot; the first reader to see it flips the slots and publishes an immutable
// snapshot that every later reader shares until the next flip.
//
// Publish never waits on readers beyond the slot swap, and readers never see
// a slot the producer may write to again.
type FrameBuffer struct {
	mu      sync.Mutex
	slots   [2]frameSlot
	front   int
	pending atomic.Bool
	latest  atomic.Pointer[Frame]
	writes  atomic.Uint64
}

// NewFrameBuffer returns an empty buffer.
func NewFrameBuffer() *FrameBuffer { return &FrameBuffer{} }

// Publish moves data into the back slot and returns the storage previously
// held there, truncated to zero length, for the producer to reuse. Data must
// not be touched by the caller afterwards.
func (b *FrameBuffer) Publish(data []byte, meta FrameMeta) ([]byte, error) {
	if want := meta.Width * meta.Height * meta.Format.BytesPerPixel(); want == 0 || len(data) != want {
		return data, fmt.Errorf("%w: publish %d bytes for %dx%d %s", ErrBufferSizeMismatch, len(data), meta.Width, meta.Height, meta.Format)
	}
	b.mu.Lock()
	back := &b.slots[1-b.front]
	spare := back.data
	back.data, back.meta = data, meta
	b.pending.Store(true)
	b.mu.Unlock()
	b.writes.Add(1)
	return spare[:0], nil
}

// Latest returns the most recently completed frame, or false before the
// first Publish. It never blocks on the producer for longer than a slot
// flip plus one frame copy.
func (b *FrameBuffer) Latest() (Frame, bool) {
	if b.pending.Load() {
		b.flip()
	}
	if f := b.latest.Load(); f != nil {
		return *f, true
	}
	return Frame{}, false
}

func (b *FrameBuffer) flip() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.pending.Load() {
		return
	}
	b.front = 1 - b.front
	b.pending.Store(false)
	s := b.slots[b.front]
	data := make([]byte, len(s.data))
	copy(data, s.data)
	b.latest.Store(&Frame{
		Data:       data,
		Width:      s.meta.Width,
		Height:     s.meta.Height,
		Format:     s.meta.Format,
		Sequence:   s.meta.Sequence,
		CapturedAt: s.meta.CapturedAt,
		SessionID:  s.meta.SessionID,
	})
}

// Writes reports how many frames were published.
func (b *FrameBuffer) Writes() uint64 { return b.writes.Load() }

// Reset drops every slot and the published snapshot.
func (b *FrameBuffer) Reset() {
	b.mu.Lock()
	b.slots = [2]frameSlot{}
	b.front = 0
	b.pending.Store(false)
	b.latest.Store(nil)
	b.mu.Unlock()
}
