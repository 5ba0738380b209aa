// Package router implements the request router of spec §4.8: it maps
// wire-protocol action names onto the account and charging services
// and shapes every outcome into the {status, message?, data?}
// response envelope.
package router

import (
	"context"
	"errors"

	"github.com/evstation/charge-station/internal/domain"
	"github.com/evstation/charge-station/internal/service/accounts"
	"github.com/evstation/charge-station/internal/service/charging"
	"github.com/evstation/charge-station/internal/service/reports"
	"github.com/evstation/charge-station/internal/station"
)

// Request is one decoded wire request: {"action": ..., "data": ...}.
type Request struct {
	Action string                 `json:"action"`
	Data   map[string]interface{} `json:"data"`
}

// Response is the uniform wire envelope every action returns.
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Router dispatches decoded requests to the station's services.
type Router struct {
	st       *station.Station
	accounts *accounts.Service
	charge   *charging.Service
	wake     func()
}

// New builds a Router. wake, if non-nil, is invoked after any action
// that may enable scheduler progress (admission, online toggle,
// session end) per spec §4.6.
func New(st *station.Station, accountsSvc *accounts.Service, chargeSvc *charging.Service, wake func()) *Router {
	return &Router{st: st, accounts: accountsSvc, charge: chargeSvc, wake: wake}
}

// Dispatch routes req to its service operation and always returns a
// Response — never an error — per spec §4.8 ("all exceptions from
// services are converted to error responses").
func (r *Router) Dispatch(ctx context.Context, req Request) Response {
	switch req.Action {
	case "register":
		return r.register(ctx, req.Data)
	case "login":
		return r.login(req.Data)
	case "submit_charging_request":
		return r.submitChargingRequest(req.Data)
	case "end_charging":
		return r.endCharging(req.Data)
	case "get_charging_details":
		return r.getChargingDetails(req.Data)
	case "get_all_piles":
		return r.getAllPiles()
	case "toggle_pile_state":
		return r.togglePileState(req.Data)
	case "get_pile_queue":
		return r.getPileQueue(req.Data)
	case "get_reports":
		return r.getReports(req.Data)
	default:
		return errorResponse(domain.NewError(domain.ErrValidation, "unknown action"))
	}
}

func (r *Router) register(ctx context.Context, data map[string]interface{}) Response {
	userID, _ := data["user_id"].(string)
	password, _ := data["password"].(string)
	carID, _ := data["car_id"].(string)
	battery, _ := toFloat(data["battery_capacity"])

	if err := r.accounts.Register(ctx, userID, password, carID, battery); err != nil {
		return errorResponse(err)
	}
	return Response{Status: "success"}
}

func (r *Router) login(data map[string]interface{}) Response {
	userID, _ := data["user_id"].(string)
	password, _ := data["password"].(string)

	carID, err := r.accounts.Login(userID, password)
	if err != nil {
		return errorResponse(err)
	}
	return Response{Status: "success", Data: map[string]interface{}{
		"user_id": userID,
		"car_id":  carID,
	}}
}

func (r *Router) submitChargingRequest(data map[string]interface{}) Response {
	carID, _ := data["car_id"].(string)
	modeStr, _ := data["request_mode"].(string)
	amount, _ := toFloat(data["amount"])

	mode, ok := domain.ParseMode(modeStr)
	if !ok {
		return errorResponse(domain.NewError(domain.ErrValidation, "invalid mode"))
	}
	if amount <= 0 {
		return errorResponse(domain.NewError(domain.ErrValidation, "amount must be > 0"))
	}

	req, err := r.charge.CreateRequest(carID, mode, amount)
	if err != nil {
		return errorResponse(err)
	}
	r.notifyScheduler()
	return Response{Status: "success", Data: map[string]interface{}{
		"queue_number": req.QueueNumber,
	}}
}

func (r *Router) endCharging(data map[string]interface{}) Response {
	carID, _ := data["car_id"].(string)

	bill, err := r.charge.EndCharging(carID)
	if err != nil {
		return errorResponse(err)
	}
	r.notifyScheduler()
	return Response{Status: "success", Data: map[string]interface{}{"bill": bill}}
}

func (r *Router) getChargingDetails(data map[string]interface{}) Response {
	carID, _ := data["car_id"].(string)

	req, _ := r.st.Requests.Get(carID)

	var session *domain.ChargingSession
	for _, sess := range r.st.Sessions.GetAll() {
		if sess.CarID == carID {
			s := sess
			session = &s
			break
		}
	}

	var bills []domain.Bill
	for _, b := range r.st.Bills.GetAll() {
		if b.CarID == carID {
			bills = append(bills, b)
		}
	}

	return Response{Status: "success", Data: map[string]interface{}{
		"current_request": req,
		"current_session": session,
		"bills":           bills,
	}}
}

func (r *Router) getAllPiles() Response {
	return Response{Status: "success", Data: r.st.Piles.GetAll()}
}

func (r *Router) togglePileState(data map[string]interface{}) Response {
	pileID, _ := data["pile_id"].(string)
	start, _ := data["start"].(bool)

	if err := r.charge.AdminSetOnline(pileID, start); err != nil {
		return errorResponse(err)
	}
	r.notifyScheduler()
	return Response{Status: "success"}
}

func (r *Router) getPileQueue(data map[string]interface{}) Response {
	pileID, _ := data["pile_id"].(string)

	pile, ok := r.st.Piles.Get(pileID)
	if !ok {
		return errorResponse(domain.NewError(domain.ErrNotFound, "pile not found"))
	}
	return Response{Status: "success", Data: r.st.Queue.Snapshot(pile.Type)}
}

func (r *Router) getReports(data map[string]interface{}) Response {
	bucketStr, _ := data["time_range"].(string)
	bucket, ok := reports.ParseBucket(bucketStr)
	if !ok {
		return errorResponse(domain.NewError(domain.ErrValidation, "invalid time_range"))
	}
	rows := reports.Generate(r.st, bucket, r.st.Clock.Now())
	return Response{Status: "success", Data: rows}
}

func (r *Router) notifyScheduler() {
	if r.wake != nil {
		r.wake()
	}
}

// errorResponse shapes err into the wire envelope's bare message
// (spec §6, e.g. "invalid mode", "amount must be > 0") rather than
// the kind-prefixed internal Error() string.
func errorResponse(err error) Response {
	var de *domain.Error
	if errors.As(err, &de) {
		return Response{Status: "error", Message: de.Message}
	}
	return Response{Status: "error", Message: err.Error()}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
