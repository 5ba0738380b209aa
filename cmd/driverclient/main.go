// Command driverclient is a terminal client for the driver-facing
// actions of spec §6 (register, login, submit_charging_request,
// end_charging, get_charging_details), grounded in
// original_source/views/user_client.py's menu of driver operations —
// reworked from its Tk GUI into a line-oriented terminal menu, the
// idiomatic Go shape for a CLI driver.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/evstation/charge-station/internal/wireclient"
)

func main() {
	addr := flag.String("addr", "localhost:8888", "charge station TCP address")
	flag.Parse()

	client := wireclient.New(*addr, 30*time.Second)
	defer client.Close()

	scanner := bufio.NewScanner(os.Stdin)
	session := &driverSession{client: client, in: scanner}

	fmt.Println("Charge Station Driver Client")
	fmt.Printf("Connecting to %s\n", *addr)

	for {
		if session.carID == "" {
			session.showLoginMenu()
			continue
		}
		session.showMainMenu()
	}
}

type driverSession struct {
	client *wireclient.Client
	in     *bufio.Scanner

	userID string
	carID  string
}

func (s *driverSession) prompt(label string) string {
	fmt.Print(label)
	s.in.Scan()
	return strings.TrimSpace(s.in.Text())
}

func (s *driverSession) showLoginMenu() {
	fmt.Println("\n1) Login  2) Register  3) Quit")
	switch s.prompt("> ") {
	case "1":
		s.login()
	case "2":
		s.register()
	case "3":
		os.Exit(0)
	default:
		fmt.Println("unrecognized choice")
	}
}

func (s *driverSession) login() {
	userID := s.prompt("user_id: ")
	password := s.prompt("password: ")

	resp, err := s.client.Send("login", map[string]interface{}{
		"user_id":  userID,
		"password": password,
	})
	if err != nil {
		fmt.Println("login failed:", err)
		return
	}

	var data struct {
		UserID string `json:"user_id"`
		CarID  string `json:"car_id"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		fmt.Println("unexpected login response:", err)
		return
	}
	s.userID = data.UserID
	s.carID = data.CarID
	fmt.Printf("logged in as %s (car %s)\n", s.userID, s.carID)
}

func (s *driverSession) register() {
	userID := s.prompt("user_id: ")
	password := s.prompt("password: ")
	carID := s.prompt("car_id: ")
	batteryStr := s.prompt("battery_capacity (kWh): ")
	battery, err := strconv.ParseFloat(batteryStr, 64)
	if err != nil {
		fmt.Println("battery_capacity must be a number")
		return
	}

	_, err = s.client.Send("register", map[string]interface{}{
		"user_id":          userID,
		"password":         password,
		"car_id":           carID,
		"battery_capacity": battery,
	})
	if err != nil {
		fmt.Println("registration failed:", err)
		return
	}
	fmt.Println("registered — you can now log in")
}

func (s *driverSession) showMainMenu() {
	fmt.Println("\n1) Submit charging request  2) Charging details  3) End charging  4) Log out  5) Quit")
	switch s.prompt("> ") {
	case "1":
		s.submitChargingRequest()
	case "2":
		s.chargingDetails()
	case "3":
		s.endCharging()
	case "4":
		s.userID, s.carID = "", ""
	case "5":
		os.Exit(0)
	default:
		fmt.Println("unrecognized choice")
	}
}

func (s *driverSession) submitChargingRequest() {
	mode := s.prompt("mode (FAST/TRICKLE): ")
	amountStr := s.prompt("amount (kWh): ")
	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil {
		fmt.Println("amount must be a number")
		return
	}

	resp, err := s.client.Send("submit_charging_request", map[string]interface{}{
		"car_id":       s.carID,
		"request_mode": strings.ToUpper(mode),
		"amount":       amount,
	})
	if err != nil {
		fmt.Println("request failed:", err)
		return
	}

	var data struct {
		QueueNumber string `json:"queue_number"`
	}
	json.Unmarshal(resp.Data, &data)
	fmt.Printf("queued as %s\n", data.QueueNumber)
}

func (s *driverSession) chargingDetails() {
	resp, err := s.client.Send("get_charging_details", map[string]interface{}{
		"car_id": s.carID,
	})
	if err != nil {
		fmt.Println("failed to fetch charging details:", err)
		return
	}
	printJSON(resp.Data)
}

func (s *driverSession) endCharging() {
	resp, err := s.client.Send("end_charging", map[string]interface{}{
		"car_id": s.carID,
	})
	if err != nil {
		fmt.Println("end_charging failed:", err)
		return
	}
	fmt.Println("charging ended, bill:")
	printJSON(resp.Data)
}

func printJSON(raw json.RawMessage) {
	var pretty interface{}
	if err := json.Unmarshal(raw, &pretty); err != nil {
		fmt.Println(string(raw))
		return
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		fmt.Println(string(raw))
		return
	}
	fmt.Println(string(out))
}
