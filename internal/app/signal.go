package app

import "sync"

// signal is a broadcast "frame available" notification.
//
// Waiters take the current channel with Wait before checking their condition,
// so a Broadcast between the check and the select is never lost. A new
// channel is only allocated when somebody is waiting.
type signal struct {
	mu    sync.Mutex
	ch    chan struct{}
	armed bool
}

func newSignal() *signal {
	return &signal{ch: make(chan struct{})}
}

// Wait returns a channel that is closed by the next Broadcast.
func (s *signal) Wait() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = true
	return s.ch
}

// Broadcast wakes every goroutine blocked on a channel from Wait.
func (s *signal) Broadcast() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.armed {
		return
	}
	close(s.ch)
	s.ch = make(chan struct{})
	s.armed = false
}
