// Package testutil provides thread-safe fakes shared by package tests.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/Veraticus/irc-away-ntfy/pkg/idle"
	"github.com/Veraticus/irc-away-ntfy/pkg/notification"
	"github.com/Veraticus/irc-away-ntfy/pkg/source"
)

// MockNotifier is a thread-safe mock implementation of notification.Notifier for testing
type MockNotifier struct {
	mu            sync.Mutex
	notifications []notification.Notification
	attempts      []notification.Notification // Track all send attempts
	sendErr       error
	sendDelay     time.Duration
	sent          chan struct{}
}

// NewMockNotifier creates a new mock notifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{
		notifications: []notification.Notification{},
		attempts:      []notification.Notification{},
		sent:          make(chan struct{}, 64),
	}
}

// Send implements the Notifier interface. A configured delay honours ctx.
func (m *MockNotifier) Send(ctx context.Context, n notification.Notification) error {
	m.mu.Lock()
	delay := m.sendDelay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() {
		select {
		case m.sent <- struct{}{}:
		default:
		}
	}()

	m.attempts = append(m.attempts, n)

	if m.sendErr != nil {
		return m.sendErr
	}

	m.notifications = append(m.notifications, n)
	return nil
}

// Attempted returns a channel that receives once per Send call.
func (m *MockNotifier) Attempted() <-chan struct{} { return m.sent }

// GetNotifications returns a copy of successfully sent notifications
func (m *MockNotifier) GetNotifications() []notification.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]notification.Notification, len(m.notifications))
	copy(result, m.notifications)
	return result
}

// GetAttempts returns a copy of all attempted sends (including failures)
func (m *MockNotifier) GetAttempts() []notification.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]notification.Notification, len(m.attempts))
	copy(result, m.attempts)
	return result
}

// SetError sets the error to return on Send calls
func (m *MockNotifier) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// SetDelay sets a delay before each Send call
func (m *MockNotifier) SetDelay(delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendDelay = delay
}

// Clear resets the mock state
func (m *MockNotifier) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = []notification.Notification{}
	m.attempts = []notification.Notification{}
	m.sendErr = nil
	m.sendDelay = 0
}

// MockIdleOracle is a mock implementation of interfaces.IdleOracle for testing
type MockIdleOracle struct {
	mu        sync.Mutex
	state     idle.State
	callCount int
}

// NewMockIdleOracle creates an oracle that always reports state.
func NewMockIdleOracle(state idle.State) *MockIdleOracle {
	return &MockIdleOracle{state: state}
}

// Compute implements the IdleOracle interface
func (m *MockIdleOracle) Compute() idle.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	return m.state
}

// SetState changes the reported idle state
func (m *MockIdleOracle) SetState(state idle.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
}

// GetCallCount returns how many times Compute was called
func (m *MockIdleOracle) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// MockRateLimiter is a mock implementation of interfaces.RateLimiter for testing
type MockRateLimiter struct {
	mu          sync.Mutex
	allowResult bool
	allowCount  int
}

// NewMockRateLimiter creates a new mock rate limiter
func NewMockRateLimiter(allowResult bool) *MockRateLimiter {
	return &MockRateLimiter{allowResult: allowResult}
}

// Allow implements the RateLimiter interface
func (m *MockRateLimiter) Allow() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowCount++
	return m.allowResult
}

// SetAllowResult sets the result for Allow calls
func (m *MockRateLimiter) SetAllowResult(allow bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowResult = allow
}

// GetAllowCount returns how many times Allow was called
func (m *MockRateLimiter) GetAllowCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allowCount
}

// SourceResult is one scripted Poll outcome.
type SourceResult struct {
	Message *source.Message
	ModTime time.Time
	Err     error
}

// MockSource replays scripted Poll results and records the cursors it was
// called with. Once the script is exhausted it reports no change.
type MockSource struct {
	mu      sync.Mutex
	results []SourceResult
	cursors []time.Time
}

// NewMockSource creates a source replaying results in order.
func NewMockSource(results ...SourceResult) *MockSource {
	return &MockSource{results: results}
}

// Poll implements dispatch.MessageSource.
func (m *MockSource) Poll(cursor time.Time) (*source.Message, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursors = append(m.cursors, cursor)

	if len(m.results) == 0 {
		return nil, cursor, nil
	}
	r := m.results[0]
	m.results = m.results[1:]
	if r.ModTime.IsZero() {
		r.ModTime = cursor
	}
	return r.Message, r.ModTime, r.Err
}

// Push appends more scripted results.
func (m *MockSource) Push(results ...SourceResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, results...)
}

// GetCursors returns a copy of the cursors passed to Poll.
func (m *MockSource) GetCursors() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]time.Time, len(m.cursors))
	copy(result, m.cursors)
	return result
}

// CountingRateLimiter allows the first N calls and denies the rest.
type CountingRateLimiter struct {
	mu         sync.Mutex
	maxAllowed int
	calls      int
}

// NewCountingRateLimiter creates a new counting rate limiter
func NewCountingRateLimiter(maxAllowed int) *CountingRateLimiter {
	return &CountingRateLimiter{maxAllowed: maxAllowed}
}

// Allow implements the RateLimiter interface
func (c *CountingRateLimiter) Allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.calls <= c.maxAllowed
}
