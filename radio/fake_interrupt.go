package radio

import "time"

// FakeInterrupt is an in-memory InterruptSource for tests: test code calls
// Fire to simulate an RX-done edge, and a consumer goroutine calls Wait the
// way production code waits on a GPIO pin.
type FakeInterrupt struct {
	edge   chan struct{}
	closed chan struct{}
}

// NewFakeInterrupt returns a ready-to-use FakeInterrupt.
func NewFakeInterrupt() *FakeInterrupt {
	return &FakeInterrupt{
		edge:   make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// Fire simulates one RX-done edge. Non-blocking: if a prior edge hasn't
// been consumed yet, this is a no-op, matching a real GPIO line that is
// simply already asserted.
func (f *FakeInterrupt) Fire() {
	select {
	case f.edge <- struct{}{}:
	default:
	}
}

// Wait blocks until Fire is called, the source is closed, or timeout
// elapses (0 means poll once without blocking).
func (f *FakeInterrupt) Wait(timeout time.Duration) bool {
	if timeout <= 0 {
		select {
		case <-f.edge:
			return true
		default:
			return false
		}
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-f.edge:
		return true
	case <-f.closed:
		return false
	case <-t.C:
		return false
	}
}

// Close releases the interrupt source, unblocking any in-progress Wait.
func (f *FakeInterrupt) Close() error {
	close(f.closed)
	return nil
}

var _ InterruptSource = (*FakeInterrupt)(nil)
