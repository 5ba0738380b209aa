// Package station composes the entity stores and the queue manager
// into the single wired value the rest of the system operates on
// (spec §9: "the five stores, the queue manager, and the scheduler
// compose into one ChargingStation value wired at startup; there is
// no ambient global state").
package station

import (
	"github.com/evstation/charge-station/internal/clock"
	"github.com/evstation/charge-station/internal/domain"
	"github.com/evstation/charge-station/internal/queueing"
	"github.com/evstation/charge-station/internal/store"
)

// Station holds every piece of mutable state the charging engine
// touches. Users are keyed by UserID, Piles by PileID, Sessions by
// SessionID, Bills by BillID (append-only), Requests by CarID.
type Station struct {
	Users    *store.Store[domain.User]
	Piles    *store.Store[domain.ChargingPile]
	Sessions *store.Store[domain.ChargingSession]
	Bills    *store.Store[domain.Bill]
	Requests *store.Store[domain.ChargingRequest]

	Queue *queueing.Manager
	Clock clock.Clock
	IDs   clock.IDs

	// OptimizedDispatch toggles the §4.7 best-pile-by-total-time
	// policy in place of the plain §4.6 FCFS scheduler tick. There is
	// no wire action for it; it is an administrative, config-driven
	// choice (spec §9 Open Questions).
	OptimizedDispatch bool
}

func New(clk clock.Clock, ids clock.IDs, queueCapacity int) *Station {
	return &Station{
		Users:    store.New[domain.User](),
		Piles:    store.New[domain.ChargingPile](),
		Sessions: store.New[domain.ChargingSession](),
		Bills:    store.New[domain.Bill](),
		Requests: store.New[domain.ChargingRequest](),
		Queue:    queueing.NewManager(clk, queueCapacity),
		Clock:    clk,
		IDs:      ids,
	}
}

// SeedPiles registers the initial pile fleet. Called once at startup;
// piles are never created dynamically by the wire protocol.
func (s *Station) SeedPiles(piles []domain.ChargingPile) {
	for _, p := range piles {
		s.Piles.PutIfAbsent(p.PileID, p)
	}
}
