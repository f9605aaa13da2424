// Package ringbuffer provides a fixed-capacity, pre-allocated circular store
// of variable-size frames.
//
// The buffer sits between one producer (a capture loop) and any number of
// consumers (network senders). It never allocates after Init and favours
// freshness over completeness: when full, the oldest frame is dropped.
//
// # Usage
//
//	var buf ringbuffer.Buffer
//	if err := buf.Init(3, 100*1024); err != nil {
//	    return err
//	}
//	defer buf.Deinit()
//
//	_ = buf.Push(jpeg, nowMicros)
//
//	if v, err := buf.Peek(); err == nil {
//	    send(v.Data) // v.Data aliases slot memory
//	    buf.Pop()    // release the slot
//	}
//
// # Borrowed Views
//
// Peek marks the oldest slot as being read. While that flag is set the slot
// is never evicted or overwritten, even under overflow; a push that would
// need it is discarded instead (and counted as dropped). The view returned by
// Peek is only valid until the matching Pop.
//
// # Status Queries
//
// Available, Empty, Full, Dropped, Capacity and MaxFrameSize are atomic reads
// and never contend with Push/Peek/Pop.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package ringbuffer
