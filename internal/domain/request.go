package domain

import "time"

type RequestState string

const (
	RequestWaitingMain     RequestState = "WAITING_MAIN"
	RequestWaitingAtPile   RequestState = "WAITING_AT_PILE"
	RequestCharging        RequestState = "CHARGING"
	RequestCompleted       RequestState = "COMPLETED"
	RequestAwaitingPayment RequestState = "AWAITING_PAYMENT"
)

// ChargingRequest is the canonical, store-owned record for a driver's
// submitted charging request. Queues hold only its CarID as a handle.
type ChargingRequest struct {
	CarID        string       `json:"car_id"`
	Mode         Mode         `json:"mode"`
	RequestedKWh float64      `json:"requested_kwh"`
	RequestTime  time.Time    `json:"request_time"`
	State        RequestState `json:"state"`
	QueueNumber  string       `json:"queue_number,omitempty"`
	PileID       string       `json:"pile_id,omitempty"`
}

// Active reports whether the request still represents pending or
// in-progress work (invariant 2: at most one active request per car).
func (r *ChargingRequest) Active() bool {
	return r.State != RequestCompleted
}
