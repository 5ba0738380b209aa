package scheduler

import (
	"log/slog"
	"testing"
	"time"

	"github.com/evstation/charge-station/internal/clock"
	"github.com/evstation/charge-station/internal/domain"
	"github.com/evstation/charge-station/internal/mocks"
	"github.com/evstation/charge-station/internal/service/charging"
	"github.com/evstation/charge-station/internal/station"
)

func newTestStation() *station.Station {
	clk := clock.NewFrozen(time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))
	st := station.New(clk, clock.UUIDSource{}, 10)
	st.SeedPiles([]domain.ChargingPile{
		{PileID: "F01", Type: domain.ModeFast, PowerKW: 30, State: domain.PileIdle},
	})
	return st
}

// TestRunPass_PublishesTickAndAssignmentEvents exercises the
// MockEventBus the way a unit test asserts on published domain events
// without a live NATS or RabbitMQ broker (spec §4.6 scheduler tick,
// §9 event-bus wiring).
func TestRunPass_PublishesTickAndAssignmentEvents(t *testing.T) {
	st := newTestStation()
	charge := charging.New(st)

	req, err := charge.CreateRequest("CAR-A", domain.ModeFast, 30)
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}
	if req.QueueNumber != "F1" {
		t.Fatalf("expected queue number F1, got %s", req.QueueNumber)
	}

	bus := mocks.NewMockEventBus()
	sched := New(st, charge, time.Minute, slog.Default())
	sched.WithEvents(bus)

	sched.runPass()

	if len(bus.GetPublishedMessages("station.scheduler.tick")) != 1 {
		t.Fatalf("expected one tick event, got %d", len(bus.GetPublishedMessages("station.scheduler.tick")))
	}
	started := bus.GetPublishedMessages("station.session.started")
	if len(started) != 1 {
		t.Fatalf("expected one session-started event, got %d", len(started))
	}
	if got, want := string(started[0]), "F01:CAR-A"; got != want {
		t.Errorf("session-started payload = %q, want %q", got, want)
	}

	pile, ok := st.Piles.Get("F01")
	if !ok || pile.State != domain.PileCharging {
		t.Fatalf("expected F01 to be CHARGING, got %+v", pile)
	}
	if st.Queue.Length(domain.ModeFast) != 0 {
		t.Errorf("expected main[FAST] to be drained, got length %d", st.Queue.Length(domain.ModeFast))
	}
}

// TestRunPass_NoIdlePiles_PublishesTickButNoAssignment asserts the mock
// event bus observes a tick with no session-started event when every
// pile of the requested mode is unavailable, rather than assuming a
// live broker's absence would hide the bug.
func TestRunPass_NoIdlePiles_PublishesTickButNoAssignment(t *testing.T) {
	st := newTestStation()
	charge := charging.New(st)

	if err := charge.ReportFault("F01"); err != nil {
		t.Fatalf("ReportFault failed: %v", err)
	}
	if _, err := charge.CreateRequest("CAR-B", domain.ModeFast, 10); err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	bus := mocks.NewMockEventBus()
	sched := New(st, charge, time.Minute, slog.Default())
	sched.WithEvents(bus)

	sched.runPass()

	if len(bus.GetPublishedMessages("station.scheduler.tick")) != 1 {
		t.Fatalf("expected one tick event even with no assignment")
	}
	if len(bus.GetPublishedMessages("station.session.started")) != 0 {
		t.Errorf("expected no session-started event with every pile faulty")
	}
	if st.Queue.Length(domain.ModeFast) != 1 {
		t.Errorf("expected request to remain queued, got length %d", st.Queue.Length(domain.ModeFast))
	}
}
