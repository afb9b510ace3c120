// internal/simulator/signal.go
package simulator

import (
	"sync"
	"sync/atomic"
)

// Signal is a broadcast stop flag shared by the coordinator and its workers.
// Once cancelled it stays cancelled.
type Signal struct {
	once  sync.Once
	fired atomic.Bool
	done  chan struct{}
}

// NewSignal creates an unfired signal
func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Cancel fires the signal. Calling it more than once is a no-op.
func (s *Signal) Cancel() {
	s.once.Do(func() {
		s.fired.Store(true)
		close(s.done)
	})
}

// Cancelled reports whether Cancel has been called
func (s *Signal) Cancelled() bool {
	return s.fired.Load()
}

// Done is closed when the signal fires
func (s *Signal) Done() <-chan struct{} {
	return s.done
}
