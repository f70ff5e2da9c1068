package report

import (
	"sync"
	"time"
)

// MockTimer is a timer fired by the test through TimerChan.
type MockTimer struct {
	TimerChan chan time.Time
}

// C returns the timer's channel.
func (m *MockTimer) C() <-chan time.Time {
	return m.TimerChan
}

// Stop is a no-op; the test owns TimerChan.
func (m *MockTimer) Stop() {}

// MockTimeProvider hands out the same MockTimer for every NewTimer call and
// records the requested durations. Now only moves when Advance is called.
type MockTimeProvider struct {
	Timer *MockTimer

	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

// NewMockTimeProvider creates a provider whose clock starts at now.
func NewMockTimeProvider(now time.Time, timer *MockTimer) *MockTimeProvider {
	return &MockTimeProvider{Timer: timer, now: now}
}

// Advance moves the clock forward by d.
func (m *MockTimeProvider) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = m.now.Add(d)
}

// NewTimer records d and returns the shared mock timer.
func (m *MockTimeProvider) NewTimer(d time.Duration) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.waits = append(m.waits, d)

	return m.Timer
}

// Now returns the mock clock's time.
func (m *MockTimeProvider) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.now
}

// Waits returns every duration passed to NewTimer.
func (m *MockTimeProvider) Waits() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]time.Duration(nil), m.waits...)
}

// RealTimer wraps time.Timer to implement the Timer interface.
type RealTimer struct {
	timer *time.Timer
}

// C returns the timer's channel.
func (r *RealTimer) C() <-chan time.Time {
	return r.timer.C
}

// Stop stops the timer.
func (r *RealTimer) Stop() {
	r.timer.Stop()
}

// RealTimeProvider implements TimeProvider using real time functions.
type RealTimeProvider struct{}

// NewTimer creates a timer firing once after d.
func (r *RealTimeProvider) NewTimer(d time.Duration) Timer {
	return &RealTimer{timer: time.NewTimer(d)}
}

// Now returns the current time.
func (r *RealTimeProvider) Now() time.Time {
	return time.Now()
}

// Timer is an interface for time.Timer to allow mocking.
type Timer interface {
	C() <-chan time.Time
	Stop()
}

// TimeProvider provides time-related functionality for dependency injection.
type TimeProvider interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}
