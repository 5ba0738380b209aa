// Package scheduler implements the station's assignment loop (spec
// §4.6): a repeating tick plus on-demand wake-ups after any event
// that may enable progress, each pass assigning queued requests to
// idle piles in deterministic pile_id order.
package scheduler

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/evstation/charge-station/internal/domain"
	"github.com/evstation/charge-station/internal/observability/telemetry"
	"github.com/evstation/charge-station/internal/service/charging"
	"github.com/evstation/charge-station/internal/service/dispatcher"
	"github.com/evstation/charge-station/internal/station"
)

const DefaultTick = 5 * time.Second

var tracer = otel.Tracer("charge-station/scheduler")

// EventPublisher is told about tick completions and assignment
// outcomes so the admin dashboard's event-bus subscribers can react
// (SPEC_FULL.md DOMAIN STACK: NATS/RabbitMQ tick and session-started
// events; fault events come from charging.Service). Nil is a valid,
// fully-functional configuration.
type EventPublisher interface {
	Publish(subject string, data []byte) error
}

// Scheduler drives charging.Service.StartCharging off the station's
// main queues on a ticker and on an on-demand wake channel.
type Scheduler struct {
	st      *station.Station
	charge  *charging.Service
	tick    time.Duration
	wake    chan struct{}
	log     *slog.Logger
	optimal bool
	events  EventPublisher
}

func New(st *station.Station, charge *charging.Service, tick time.Duration, log *slog.Logger) *Scheduler {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Scheduler{
		st:      st,
		charge:  charge,
		tick:    tick,
		wake:    make(chan struct{}, 1),
		log:     log,
		optimal: st.OptimizedDispatch,
	}
}

// WithEvents attaches an optional event-bus publisher.
func (s *Scheduler) WithEvents(ep EventPublisher) *Scheduler {
	s.events = ep
	return s
}

// Wake requests an out-of-band pass without waiting for the next
// ticker fire, per spec §4.6 ("on demand after any event that may
// enable progress"). Non-blocking: a pending wake coalesces.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run blocks, driving tick passes until ctx is cancelled. The current
// pass is always allowed to finish before exiting (spec §5: "the
// scheduler exits after the current tick").
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runPass()
		case <-s.wake:
			s.runPass()
		}
	}
}

// runPass implements the §4.6 tick algorithm, or the §4.7 dispatcher
// policy when OptimizedDispatch is enabled.
func (s *Scheduler) runPass() {
	ctx, span := tracer.Start(context.Background(), "scheduler.tick")
	defer span.End()

	telemetry.SchedulerTicksTotal.Inc()
	s.recordGauges()

	if s.optimal {
		dispatcher.RunPass(s.st, s.assign)
	} else {
		piles := s.st.Piles.GetAll()
		sort.Slice(piles, func(i, j int) bool { return piles[i].PileID < piles[j].PileID })

		for _, p := range piles {
			if p.State != domain.PileIdle {
				continue
			}
			req, ok := s.st.Queue.Dequeue(p.Type)
			if !ok {
				continue
			}
			s.assign(p.PileID, req)
		}
	}

	s.publish(ctx, "station.scheduler.tick", nil)
}

// assign starts charging for req at pileID, re-queuing req at the
// head of its main queue on failure so the next tick retries it.
func (s *Scheduler) assign(pileID string, req domain.ChargingRequest) {
	if _, err := s.charge.StartCharging(pileID, req); err != nil {
		if s.log != nil {
			s.log.Warn("start_charging failed during scheduler pass",
				"pile_id", pileID, "car_id", req.CarID, "error", err)
		}
		s.st.Queue.EnqueueHead(req)
		return
	}
	s.publish(context.Background(), "station.session.started", []byte(pileID+":"+req.CarID))
}

// recordGauges snapshots per-mode queue lengths and per-pile state
// into the Prometheus gauges the admin dashboard scrapes.
func (s *Scheduler) recordGauges() {
	telemetry.MainQueueLength.WithLabelValues(string(domain.ModeFast)).Set(float64(s.st.Queue.Length(domain.ModeFast)))
	telemetry.MainQueueLength.WithLabelValues(string(domain.ModeTrickle)).Set(float64(s.st.Queue.Length(domain.ModeTrickle)))

	for _, p := range s.st.Piles.GetAll() {
		for _, state := range []domain.PileState{domain.PileIdle, domain.PileCharging, domain.PileFaulty, domain.PileOffline} {
			v := 0.0
			if p.State == state {
				v = 1.0
			}
			telemetry.PileState.WithLabelValues(p.PileID, string(state)).Set(v)
		}
	}
}

func (s *Scheduler) publish(_ context.Context, subject string, data []byte) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(subject, data); err != nil && s.log != nil {
		s.log.Warn("failed to publish scheduler event", "subject", subject, "error", err)
	}
}
