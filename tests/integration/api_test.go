package integration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/evstation/charge-station/internal/adapter/router"
	"github.com/evstation/charge-station/internal/clock"
	"github.com/evstation/charge-station/internal/domain"
	"github.com/evstation/charge-station/internal/service/accounts"
	"github.com/evstation/charge-station/internal/service/auth"
	"github.com/evstation/charge-station/internal/service/charging"
	"github.com/evstation/charge-station/internal/service/scheduler"
	"github.com/evstation/charge-station/internal/station"
	"github.com/evstation/charge-station/internal/tcpserver"
)

// wireRequest/wireResponse mirror internal/wireclient's types so this
// test package doesn't need to import a cmd binary's internal package.
type wireRequest struct {
	Action string                 `json:"action"`
	Data   map[string]interface{} `json:"data"`
}

type wireResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// testStation spins up a full station (stores, queue, charging
// service, scheduler, router, TCP server) on an ephemeral port with no
// external dependencies wired in, the same composition cmd/server/main.go
// performs at startup, minus persistence and optional infra.
type testStation struct {
	addr   string
	cancel context.CancelFunc
}

func startTestStation(t *testing.T) *testStation {
	t.Helper()

	st := station.New(clock.RealClock{}, clock.UUIDSource{}, 100)
	st.SeedPiles([]domain.ChargingPile{
		{PileID: "F01", Type: domain.ModeFast, PowerKW: 30, State: domain.PileIdle},
		{PileID: "F02", Type: domain.ModeFast, PowerKW: 30, State: domain.PileIdle},
		{PileID: "T01", Type: domain.ModeTrickle, PowerKW: 10, State: domain.PileIdle},
	})

	credentials := auth.NewCredentialStore()
	accountsSvc := accounts.New(st, credentials, nil)
	chargeSvc := charging.New(st)

	logger, _ := zap.NewDevelopment()
	sched := scheduler.New(st, chargeSvc, 50*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	go sched.Run(ctx)

	rt := router.New(st, accountsSvc, chargeSvc, sched.Wake)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		cancel()
		t.Fatalf("failed to reserve a port: %v", err)
	}
	addr := lis.Addr().String()
	lis.Close()

	srv := tcpserver.New(addr, rt, 5*time.Second, 5*time.Second, logger)
	go srv.ListenAndServe(ctx)

	// Give the listener a moment to bind before the first dial.
	for i := 0; i < 50; i++ {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			conn.Close()
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	return &testStation{addr: addr, cancel: cancel}
}

func (ts *testStation) stop() { ts.cancel() }

// send dials a fresh connection, writes one action, and reads back the
// framed response the way the TCP server's byte-accumulate-until-parses
// protocol expects on the wire.
func send(t *testing.T, addr, action string, data map[string]interface{}) wireResponse {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	body, err := json.Marshal(wireRequest{Action: action, Data: data})
	if err != nil {
		t.Fatalf("marshal request failed: %v", err)
	}
	if _, err := conn.Write(body); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var buf []byte
	tmp := make([]byte, 1)
	for {
		n, err := conn.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
			var resp wireResponse
			if json.Unmarshal(buf, &resp) == nil {
				return resp
			}
		}
		if err != nil {
			t.Fatalf("read response failed (partial=%q): %v", buf, err)
		}
	}
}

// TestAPI_RegisterAndLogin exercises the register/login actions
// end-to-end over a real TCP connection.
func TestAPI_RegisterAndLogin(t *testing.T) {
	ts := startTestStation(t)
	defer ts.stop()

	t.Run("Register", func(t *testing.T) {
		resp := send(t, ts.addr, "register", map[string]interface{}{
			"user_id":          "driver-1",
			"password":         "s3cret",
			"car_id":           "CAR-001",
			"battery_capacity": 60.0,
		})
		if resp.Status != "success" {
			t.Fatalf("expected success, got %+v", resp)
		}
	})

	t.Run("DuplicateRegisterFails", func(t *testing.T) {
		resp := send(t, ts.addr, "register", map[string]interface{}{
			"user_id":          "driver-1",
			"password":         "s3cret",
			"car_id":           "CAR-001",
			"battery_capacity": 60.0,
		})
		if resp.Status != "error" {
			t.Errorf("expected a conflict error on re-registration, got %+v", resp)
		}
	})

	t.Run("Login", func(t *testing.T) {
		resp := send(t, ts.addr, "login", map[string]interface{}{
			"user_id":  "driver-1",
			"password": "s3cret",
		})
		if resp.Status != "success" {
			t.Fatalf("expected success, got %+v", resp)
		}

		var data struct {
			UserID string `json:"user_id"`
			CarID  string `json:"car_id"`
		}
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			t.Fatalf("failed to decode login response: %v", err)
		}
		if data.CarID != "CAR-001" {
			t.Errorf("expected car_id CAR-001, got %q", data.CarID)
		}
	})

	t.Run("LoginWrongPassword", func(t *testing.T) {
		resp := send(t, ts.addr, "login", map[string]interface{}{
			"user_id":  "driver-1",
			"password": "wrong",
		})
		if resp.Status != "error" {
			t.Errorf("expected error on bad password, got %+v", resp)
		}
	})
}

// TestAPI_ChargingLifecycle drives a full submit -> dispatch -> end
// flow across the wire, verifying the scheduler actually assigns a
// queued request to a pile and that ending the session produces a bill.
func TestAPI_ChargingLifecycle(t *testing.T) {
	ts := startTestStation(t)
	defer ts.stop()

	send(t, ts.addr, "register", map[string]interface{}{
		"user_id": "driver-2", "password": "pw", "car_id": "CAR-002", "battery_capacity": 60.0,
	})

	var queueNumber string
	t.Run("SubmitChargingRequest", func(t *testing.T) {
		resp := send(t, ts.addr, "submit_charging_request", map[string]interface{}{
			"car_id": "CAR-002", "request_mode": "FAST", "amount": 10.0,
		})
		if resp.Status != "success" {
			t.Fatalf("expected success, got %+v", resp)
		}
		var data struct {
			QueueNumber string `json:"queue_number"`
		}
		json.Unmarshal(resp.Data, &data)
		if data.QueueNumber == "" {
			t.Fatal("expected a non-empty queue number")
		}
		queueNumber = data.QueueNumber
	})

	t.Run("WaitForDispatch", func(t *testing.T) {
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			resp := send(t, ts.addr, "get_charging_details", map[string]interface{}{"car_id": "CAR-002"})
			var data struct {
				CurrentSession *domain.ChargingSession `json:"current_session"`
			}
			if resp.Status == "success" && json.Unmarshal(resp.Data, &data) == nil && data.CurrentSession != nil {
				return
			}
			time.Sleep(50 * time.Millisecond)
		}
		t.Fatalf("queue number %s was never dispatched to a pile", queueNumber)
	})

	t.Run("EndCharging", func(t *testing.T) {
		resp := send(t, ts.addr, "end_charging", map[string]interface{}{"car_id": "CAR-002"})
		if resp.Status != "success" {
			t.Fatalf("expected success, got %+v", resp)
		}

		var data struct {
			Bill domain.Bill `json:"bill"`
		}
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			t.Fatalf("failed to decode bill: %v", err)
		}
		if data.Bill.CarID != "CAR-002" {
			t.Errorf("expected bill for CAR-002, got %+v", data.Bill)
		}
		if data.Bill.TotalFee < 0 {
			t.Errorf("expected a non-negative total fee, got %f", data.Bill.TotalFee)
		}
	})
}

// TestAPI_AdminPileOperations exercises the operator-facing actions a
// running station must answer over the wire.
func TestAPI_AdminPileOperations(t *testing.T) {
	ts := startTestStation(t)
	defer ts.stop()

	t.Run("GetAllPiles", func(t *testing.T) {
		resp := send(t, ts.addr, "get_all_piles", map[string]interface{}{})
		if resp.Status != "success" {
			t.Fatalf("expected success, got %+v", resp)
		}
		var piles []domain.ChargingPile
		if err := json.Unmarshal(resp.Data, &piles); err != nil {
			t.Fatalf("failed to decode piles: %v", err)
		}
		if len(piles) != 3 {
			t.Errorf("expected 3 seeded piles, got %d", len(piles))
		}
	})

	t.Run("TogglePileOffline", func(t *testing.T) {
		resp := send(t, ts.addr, "toggle_pile_state", map[string]interface{}{
			"pile_id": "T01", "start": false,
		})
		if resp.Status != "success" {
			t.Fatalf("expected success, got %+v", resp)
		}
	})

	t.Run("GetPileQueue", func(t *testing.T) {
		resp := send(t, ts.addr, "get_pile_queue", map[string]interface{}{"pile_id": "F01"})
		if resp.Status != "success" {
			t.Fatalf("expected success, got %+v", resp)
		}
	})

	t.Run("UnknownAction", func(t *testing.T) {
		resp := send(t, ts.addr, "not_a_real_action", map[string]interface{}{})
		if resp.Status != "error" {
			t.Errorf("expected error for an unknown action, got %+v", resp)
		}
	})
}
