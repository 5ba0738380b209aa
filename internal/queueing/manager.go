// Package queueing implements the station's two-mode main-queue
// manager (spec §4.3): stable queue-number allocation, FCFS ordering,
// bounded waiting-area capacity, and priority re-queue at head for
// fault recovery.
package queueing

import (
	"errors"
	"strconv"
	"sync"

	"github.com/evstation/charge-station/internal/clock"
	"github.com/evstation/charge-station/internal/domain"
)

// ErrQueueFull is returned by Enqueue when the main queue for a mode
// already holds Capacity entries.
var ErrQueueFull = errors.New("queue full")

const DefaultCapacity = 10

// Manager owns the two per-mode main queues. All operations are
// atomic under a single mutex (§4.3 "all operations are atomic under
// a single mutex").
type Manager struct {
	mu       sync.Mutex
	clock    clock.Clock
	capacity int

	main       map[domain.Mode][]domain.ChargingRequest
	nextNumber map[domain.Mode]int
	lastDay    int
}

func NewManager(clk clock.Clock, capacity int) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Manager{
		clock:    clk,
		capacity: capacity,
		main: map[domain.Mode][]domain.ChargingRequest{
			domain.ModeFast:    {},
			domain.ModeTrickle: {},
		},
		nextNumber: map[domain.Mode]int{
			domain.ModeFast:    1,
			domain.ModeTrickle: 1,
		},
		lastDay: clk.Now().YearDay(),
	}
}

// resetIfDayRolledLocked resets both mode counters to 1 when the
// calendar day has advanced since the last call (invariant 4).
func (m *Manager) resetIfDayRolledLocked() {
	day := m.clock.Now().YearDay()
	if day != m.lastDay {
		m.nextNumber[domain.ModeFast] = 1
		m.nextNumber[domain.ModeTrickle] = 1
		m.lastDay = day
	}
}

// Enqueue assigns a fresh queue number and appends req to the tail of
// its mode's main queue, failing with ErrQueueFull if the queue is at
// capacity.
func (m *Manager) Enqueue(req domain.ChargingRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetIfDayRolledLocked()

	if len(m.main[req.Mode]) >= m.capacity {
		return "", ErrQueueFull
	}

	n := m.nextNumber[req.Mode]
	req.QueueNumber = req.Mode.Letter() + strconv.Itoa(n)
	m.nextNumber[req.Mode] = n + 1
	m.main[req.Mode] = append(m.main[req.Mode], req)
	return req.QueueNumber, nil
}

// EnqueueHead inserts req at the front of its mode's main queue with
// its existing QueueNumber preserved, breaking FIFO intentionally for
// fault-induced re-queues (§5 ordering).
func (m *Manager) EnqueueHead(req domain.ChargingRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.main[req.Mode] = append([]domain.ChargingRequest{req}, m.main[req.Mode]...)
}

// Dequeue removes and returns the head of mode's main queue, or false
// if it is empty.
func (m *Manager) Dequeue(mode domain.Mode) (domain.ChargingRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.main[mode]
	if len(q) == 0 {
		return domain.ChargingRequest{}, false
	}
	head := q[0]
	m.main[mode] = q[1:]
	return head, true
}

func (m *Manager) Length(mode domain.Mode) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.main[mode])
}

// Snapshot returns a copy of the current ordering of mode's main
// queue, for admin views.
func (m *Manager) Snapshot(mode domain.Mode) []domain.ChargingRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ChargingRequest, len(m.main[mode]))
	copy(out, m.main[mode])
	return out
}
