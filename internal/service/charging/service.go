// Package charging implements the core dispatch and billing
// operations of spec §4.5: request admission, session start/end,
// fault handling and recovery, and the administrative online/offline
// toggle. It is the only package permitted to take the store → queue
// → pile lock ordering (spec §5); every exported function here is
// safe to call concurrently from multiple connection workers.
package charging

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"

	"github.com/evstation/charge-station/internal/domain"
	"github.com/evstation/charge-station/internal/observability/telemetry"
	"github.com/evstation/charge-station/internal/queueing"
	"github.com/evstation/charge-station/internal/station"
	"github.com/evstation/charge-station/internal/tariff"
)

var tracer = otel.Tracer("charge-station/charging")

// BillSink receives every Bill the service produces, in addition to
// the station's own append-only Bills store. Used to feed the
// Postgres bill ledger (SPEC_FULL.md DOMAIN STACK); nil is a valid,
// fully-functional configuration.
type BillSink interface {
	Append(ctx context.Context, bill domain.Bill) error
}

// Notifier is told about completed bills so it can email the driver a
// receipt. Nil is a valid, fully-functional configuration.
type Notifier interface {
	NotifyBillCompleted(ctx context.Context, bill domain.Bill)
}

// EventPublisher mirrors scheduler.EventPublisher; kept as a separate
// interface here so this package never imports scheduler.
type EventPublisher interface {
	Publish(subject string, data []byte) error
}

// Service is the charging core, wired against one Station aggregate.
type Service struct {
	st       *station.Station
	ledger   BillSink
	notifier Notifier
	events   EventPublisher
}

func New(st *station.Station) *Service {
	return &Service{st: st}
}

// WithLedger attaches an optional external bill sink (e.g. the
// Postgres ledger) that mirrors every produced Bill.
func (s *Service) WithLedger(sink BillSink) *Service {
	s.ledger = sink
	return s
}

// WithNotifier attaches an optional driver-notification hook invoked
// after a Bill is produced.
func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// WithEvents attaches an optional event-bus publisher for fault
// notifications.
func (s *Service) WithEvents(ep EventPublisher) *Service {
	s.events = ep
	return s
}

// CreateRequest admits a new charging request for carID, queuing it
// on its mode's main queue and returning the assigned queue number.
func (s *Service) CreateRequest(carID string, mode domain.Mode, kwh float64) (domain.ChargingRequest, error) {
	_, span := tracer.Start(context.Background(), "charging.create_request")
	defer span.End()

	if mode != domain.ModeFast && mode != domain.ModeTrickle {
		return domain.ChargingRequest{}, domain.NewError(domain.ErrValidation, "invalid mode")
	}
	if kwh <= 0 {
		return domain.ChargingRequest{}, domain.NewError(domain.ErrValidation, "amount must be > 0")
	}

	if existing, ok := s.st.Requests.Get(carID); ok && existing.Active() {
		return domain.ChargingRequest{}, domain.NewError(domain.ErrConflict, "car already has an active request")
	}

	req := domain.ChargingRequest{
		CarID:        carID,
		Mode:         mode,
		RequestedKWh: kwh,
		RequestTime:  s.st.Clock.Now(),
		State:        domain.RequestWaitingMain,
	}

	number, err := s.st.Queue.Enqueue(req)
	if err != nil {
		if err == queueing.ErrQueueFull {
			return domain.ChargingRequest{}, domain.NewError(domain.ErrCapacity, "waiting area is full")
		}
		return domain.ChargingRequest{}, domain.WrapError(domain.ErrInternal, "enqueue failed", err)
	}
	req.QueueNumber = number

	s.st.Requests.Put(carID, req)
	return req, nil
}

// StartCharging assigns request to pile, transitioning both to their
// CHARGING state and opening a new Session. Called by the scheduler,
// never directly off the wire.
func (s *Service) StartCharging(pileID string, req domain.ChargingRequest) (domain.ChargingSession, error) {
	_, span := tracer.Start(context.Background(), "charging.start_charging")
	defer span.End()

	pile, ok := s.st.Piles.Get(pileID)
	if !ok {
		return domain.ChargingSession{}, domain.NewError(domain.ErrNotFound, "pile not found")
	}
	if pile.State != domain.PileIdle {
		return domain.ChargingSession{}, domain.NewError(domain.ErrState, "pile is not idle")
	}
	if req.State != domain.RequestWaitingMain && req.State != domain.RequestWaitingAtPile {
		return domain.ChargingSession{}, domain.NewError(domain.ErrState, "request is not waiting")
	}

	now := s.st.Clock.Now()
	session := domain.ChargingSession{
		SessionID:    s.st.IDs.NewID(),
		CarID:        req.CarID,
		PileID:       pileID,
		StartTime:    now,
		RequestedKWh: req.RequestedKWh,
	}

	pile.State = domain.PileCharging
	pile.CurrentSessionID = session.SessionID
	s.st.Piles.Put(pileID, pile)

	req.State = domain.RequestCharging
	req.PileID = pileID
	s.st.Requests.Put(req.CarID, req)

	s.st.Sessions.Put(session.SessionID, session)
	telemetry.RecordSessionStarted()
	return session, nil
}

// EndCharging locates the active session for carID, produces its
// Bill, updates the owning pile's cumulative counters, and frees the
// pile back to IDLE.
func (s *Service) EndCharging(carID string) (domain.Bill, error) {
	_, span := tracer.Start(context.Background(), "charging.end_charging")
	defer span.End()

	session, ok := s.findSessionByCar(carID)
	if !ok {
		return domain.Bill{}, domain.NewError(domain.ErrNotFound, "no active session for car")
	}

	pile, ok := s.st.Piles.Get(session.PileID)
	if !ok {
		return domain.Bill{}, domain.NewError(domain.ErrInternal, "session references unknown pile")
	}

	now := s.st.Clock.Now()
	delivered := session.DeliveredKWh(pile.PowerKW, now)
	chargeFee, serviceFee, totalFee := tariff.ComputeCost(delivered, session.StartTime, now)

	bill := domain.Bill{
		BillID:       s.st.IDs.NewID(),
		CarID:        carID,
		PileID:       session.PileID,
		StartTime:    session.StartTime,
		EndTime:      now,
		DeliveredKWh: delivered,
		Mode:         pile.Type,
		ChargeFee:    chargeFee,
		ServiceFee:   serviceFee,
		TotalFee:     totalFee,
	}
	s.st.Bills.Put(bill.BillID, bill)

	pile.TotalSessions++
	pile.TotalEnergy += delivered
	pile.TotalTime += now.Sub(session.StartTime)
	pile.TotalIncome += totalFee
	pile.State = domain.PileIdle
	pile.CurrentSessionID = ""
	s.st.Piles.Put(pile.PileID, pile)

	s.st.Sessions.Delete(session.SessionID)

	if req, ok := s.st.Requests.Get(carID); ok {
		req.State = domain.RequestCompleted
		s.st.Requests.Put(carID, req)
	}

	telemetry.RecordBillProduced(string(bill.Mode), delivered, totalFee, now.Sub(session.StartTime).Seconds())
	s.notifyBill(bill)

	return bill, nil
}

// notifyBill mirrors the bill to the optional ledger sink and fires
// the optional driver notification, both best-effort and off the
// EndCharging critical path (spec §7: "persistence errors do not
// abort an in-memory transition").
func (s *Service) notifyBill(bill domain.Bill) {
	if s.ledger != nil {
		go func() {
			_ = s.ledger.Append(context.Background(), bill)
		}()
	}
	if s.notifier != nil {
		go s.notifier.NotifyBillCompleted(context.Background(), bill)
	}
}

// ReportFault marks pile FAULTY. If a session is in progress it is
// interrupted without producing a partial bill (spec §4.5, §9): the
// owning request is reset to WAITING_MAIN and re-queued at the head
// of its mode's main queue.
func (s *Service) ReportFault(pileID string) error {
	pile, ok := s.st.Piles.Get(pileID)
	if !ok {
		return domain.NewError(domain.ErrNotFound, "pile not found")
	}

	if pile.State == domain.PileCharging {
		session, ok := s.st.Sessions.Get(pile.CurrentSessionID)
		if ok {
			if req, ok := s.st.Requests.Get(session.CarID); ok {
				req.State = domain.RequestWaitingMain
				req.PileID = ""
				s.st.Requests.Put(req.CarID, req)
				s.st.Queue.EnqueueHead(req)
			}
			s.st.Sessions.Delete(session.SessionID)
			telemetry.ActiveChargingSessions.Dec()
		}
		pile.CurrentSessionID = ""
	}

	pile.State = domain.PileFaulty
	s.st.Piles.Put(pileID, pile)

	if s.events != nil {
		_ = s.events.Publish("station.pile.fault", []byte(pileID))
	}
	return nil
}

// Recover transitions a FAULTY pile back to IDLE. A no-op for any
// other state.
func (s *Service) Recover(pileID string) error {
	pile, ok := s.st.Piles.Get(pileID)
	if !ok {
		return domain.NewError(domain.ErrNotFound, "pile not found")
	}
	if pile.State == domain.PileFaulty {
		pile.State = domain.PileIdle
		s.st.Piles.Put(pileID, pile)
	}
	return nil
}

// AdminSetOnline toggles a pile between IDLE and OFFLINE. Refused
// while the pile is CHARGING or FAULTY.
func (s *Service) AdminSetOnline(pileID string, online bool) error {
	pile, ok := s.st.Piles.Get(pileID)
	if !ok {
		return domain.NewError(domain.ErrNotFound, "pile not found")
	}

	switch {
	case online && pile.State == domain.PileOffline:
		pile.State = domain.PileIdle
	case !online && pile.State == domain.PileIdle:
		pile.State = domain.PileOffline
	case online && pile.State == domain.PileIdle:
		// already online, no-op
	case !online && pile.State == domain.PileOffline:
		// already offline, no-op
	default:
		return domain.NewError(domain.ErrState, fmt.Sprintf("cannot toggle pile in state %s", pile.State))
	}

	s.st.Piles.Put(pileID, pile)
	return nil
}

func (s *Service) findSessionByCar(carID string) (domain.ChargingSession, bool) {
	for _, sess := range s.st.Sessions.GetAll() {
		if sess.CarID == carID {
			return sess, true
		}
	}
	return domain.ChargingSession{}, false
}
