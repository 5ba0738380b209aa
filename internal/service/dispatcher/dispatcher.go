// Package dispatcher implements the optional batch-assignment policy
// of spec §4.7: instead of the plain per-pile FCFS tick, each waiting
// request is routed to the pile minimizing total_time(P) among idle,
// same-mode piles. Enabled administratively via Station.OptimizedDispatch;
// there is no wire action for it (spec §9 Open Questions).
package dispatcher

import (
	"github.com/evstation/charge-station/internal/domain"
	"github.com/evstation/charge-station/internal/station"
)

// totalTime computes spec §4.7's total_time(P) for candidate request
// req against pile p. Local-queue assignment is optional (spec §4.4)
// and this station bypasses it, so the sum over already-queued
// requests at P is always zero; total_time reduces to the time P
// would take to serve req alone.
func totalTime(p domain.ChargingPile, req domain.ChargingRequest) float64 {
	if p.PowerKW <= 0 {
		return 1e18
	}
	return req.RequestedKWh / p.PowerKW
}

// RunPass drains one request per mode's main queue and assigns it to
// the idle, non-faulty, non-offline pile of that mode minimizing
// total_time. assign is called with the chosen pile_id and request;
// on failure the caller is responsible for re-queuing (as the
// scheduler's assign helper does).
func RunPass(st *station.Station, assign func(pileID string, req domain.ChargingRequest)) {
	for _, mode := range []domain.Mode{domain.ModeFast, domain.ModeTrickle} {
		req, ok := st.Queue.Dequeue(mode)
		if !ok {
			continue
		}

		best, found := bestPile(st, mode, req)
		if !found {
			st.Queue.EnqueueHead(req)
			continue
		}

		assign(best.PileID, req)
	}
}

func bestPile(st *station.Station, mode domain.Mode, req domain.ChargingRequest) (domain.ChargingPile, bool) {
	var best domain.ChargingPile
	var bestTime float64
	found := false

	for _, p := range st.Piles.GetAll() {
		if p.Type != mode || p.State != domain.PileIdle {
			continue
		}
		t := totalTime(p, req)
		if !found || t < bestTime || (t == bestTime && p.PileID < best.PileID) {
			best, bestTime, found = p, t, true
		}
	}
	return best, found
}
