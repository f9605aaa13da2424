package ringbuffer

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Default sizing used when callers have no better figures.
const (
	DefaultSlots        = 3
	DefaultMaxFrameSize = 100 * 1024
)

// slot is one pre-allocated storage unit. Its data is allocated once at Init
// and never resized.
type slot struct {
	data      []byte
	length    int
	timestamp int64
	occupied  bool
	reading   bool // a consumer holds a view of this slot
}

// View is a borrowed reference to the oldest buffered frame.
// Data aliases slot memory and stays unchanged until the matching Pop.
type View struct {
	Data      []byte
	Timestamp int64
}

// Buffer is a thread-safe circular frame buffer with a drop-oldest overflow
// policy. The zero value is an uninitialized buffer; call Init before use.
type Buffer struct {
	mu       sync.Mutex
	slots    []slot
	writeIdx int
	readIdx  int

	// Lock-free status, readable without mu.
	count        atomic.Int64
	dropped      atomic.Uint64
	numSlots     atomic.Int64
	maxFrameSize atomic.Int64
	initialized  atomic.Bool
}

// New returns an initialized buffer.
func New(numSlots, maxFrameSize int) (*Buffer, error) {
	b := &Buffer{}
	if err := b.Init(numSlots, maxFrameSize); err != nil {
		return nil, err
	}
	return b, nil
}

// Init allocates numSlots slots of maxFrameSize bytes each.
// Calling Init on an initialized buffer is a no-op. On failure the buffer is
// left uninitialized.
func (b *Buffer) Init(numSlots, maxFrameSize int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized.Load() {
		return nil
	}
	if numSlots <= 0 || maxFrameSize <= 0 {
		return ErrInvalidSize
	}

	slots, err := allocSlots(numSlots, maxFrameSize)
	if err != nil {
		return err
	}

	b.slots = slots
	b.writeIdx = 0
	b.readIdx = 0
	b.count.Store(0)
	b.dropped.Store(0)
	b.numSlots.Store(int64(numSlots))
	b.maxFrameSize.Store(int64(maxFrameSize))
	b.initialized.Store(true)
	return nil
}

// allocSlots converts allocation panics (e.g. size out of range) into ErrAllocation.
func allocSlots(n, size int) (slots []slot, err error) {
	defer func() {
		if r := recover(); r != nil {
			slots = nil
			err = fmt.Errorf("%w: %v", ErrAllocation, r)
		}
	}()

	slots = make([]slot, n)
	for i := range slots {
		slots[i].data = make([]byte, size)
	}
	return slots, nil
}

// Deinit releases slot memory and returns the buffer to the uninitialized state.
func (b *Buffer) Deinit() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.initialized.Store(false)
	b.slots = nil
	b.writeIdx = 0
	b.readIdx = 0
	b.count.Store(0)
	b.dropped.Store(0)
	b.numSlots.Store(0)
	b.maxFrameSize.Store(0)
}

// Push copies data into the next write slot.
//
// When the buffer is full the oldest frame is evicted and counted as dropped.
// If the oldest frame is currently being read, the incoming frame is
// discarded instead; it is still counted as dropped and Push returns nil.
func (b *Buffer) Push(data []byte, timestamp int64) error {
	if !b.initialized.Load() {
		return ErrNotInitialized
	}
	if len(data) == 0 {
		return ErrEmptyFrame
	}
	if int64(len(data)) > b.maxFrameSize.Load() {
		return ErrFrameTooLarge
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Deinit may have raced the checks above.
	if !b.initialized.Load() {
		return ErrNotInitialized
	}

	n := len(b.slots)
	if int(b.count.Load()) >= n {
		oldest := &b.slots[b.readIdx]
		if oldest.reading {
			b.dropped.Add(1)
			return nil
		}
		oldest.occupied = false
		b.readIdx = (b.readIdx + 1) % n
		b.count.Add(-1)
		b.dropped.Add(1)
	}

	s := &b.slots[b.writeIdx]
	s.length = copy(s.data, data)
	s.timestamp = timestamp
	s.occupied = true
	s.reading = false

	b.writeIdx = (b.writeIdx + 1) % n
	b.count.Add(1)
	return nil
}

// Peek returns the oldest frame without removing it and marks its slot as
// being read. Repeated calls before Pop return the same slot.
// The caller must call Pop when done with the view.
func (b *Buffer) Peek() (View, error) {
	if !b.initialized.Load() {
		return View{}, ErrNotInitialized
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized.Load() {
		return View{}, ErrNotInitialized
	}
	if b.count.Load() == 0 {
		return View{}, ErrEmpty
	}

	s := &b.slots[b.readIdx]
	s.reading = true
	return View{
		Data:      s.data[:s.length:s.length],
		Timestamp: s.timestamp,
	}, nil
}

// Pop removes the oldest frame and releases its read mark. No-op when empty.
func (b *Buffer) Pop() {
	if !b.initialized.Load() {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized.Load() || b.count.Load() == 0 {
		return
	}

	s := &b.slots[b.readIdx]
	s.occupied = false
	s.reading = false
	b.readIdx = (b.readIdx + 1) % len(b.slots)
	b.count.Add(-1)
}

// Clear discards every buffered frame. The dropped counter is kept.
func (b *Buffer) Clear() {
	if !b.initialized.Load() {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.slots {
		b.slots[i].occupied = false
		b.slots[i].reading = false
	}
	b.readIdx = 0
	b.writeIdx = 0
	b.count.Store(0)
}

// ClearUnread discards every buffered frame except one a consumer is
// currently reading. A held frame stays at the read position, so its view
// remains valid and the matching Pop removes it.
func (b *Buffer) ClearUnread() {
	if !b.initialized.Load() {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	held := b.count.Load() > 0 && b.slots[b.readIdx].reading
	for i := range b.slots {
		if held && i == b.readIdx {
			continue
		}
		b.slots[i].occupied = false
		b.slots[i].reading = false
	}

	if held {
		b.writeIdx = (b.readIdx + 1) % len(b.slots)
		b.count.Store(1)
		return
	}
	b.readIdx = 0
	b.writeIdx = 0
	b.count.Store(0)
}

// ResetStats zeroes the dropped counter only.
func (b *Buffer) ResetStats() {
	b.dropped.Store(0)
}

// Available returns the number of buffered frames.
func (b *Buffer) Available() int { return int(b.count.Load()) }

// Empty reports whether no frame is buffered.
func (b *Buffer) Empty() bool { return b.count.Load() == 0 }

// Full reports whether every slot is occupied.
func (b *Buffer) Full() bool {
	return b.initialized.Load() && b.count.Load() >= b.numSlots.Load()
}

// Dropped returns the total number of frames dropped by the overflow policy.
func (b *Buffer) Dropped() uint64 { return b.dropped.Load() }

// Capacity returns the number of slots.
func (b *Buffer) Capacity() int { return int(b.numSlots.Load()) }

// MaxFrameSize returns the per-slot byte capacity.
func (b *Buffer) MaxFrameSize() int { return int(b.maxFrameSize.Load()) }

// Initialized reports whether Init has succeeded and Deinit has not been called since.
func (b *Buffer) Initialized() bool { return b.initialized.Load() }
