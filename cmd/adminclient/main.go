// Command adminclient is a terminal client for the station-operator
// actions of spec §6 (get_all_piles, toggle_pile_state, get_pile_queue,
// get_reports), grounded in original_source/views/admin_client.py's
// pile-management, queue-info, and reports screens — reworked from
// its Tk GUI into a line-oriented terminal menu.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
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

	fmt.Println("Charge Station Admin Client")
	fmt.Printf("Connecting to %s\n", *addr)

	for {
		fmt.Println("\n1) List piles  2) Start pile  3) Stop pile  4) Pile queue  5) Reports  6) Quit")
		fmt.Print("> ")
		scanner.Scan()
		switch strings.TrimSpace(scanner.Text()) {
		case "1":
			listPiles(client)
		case "2":
			togglePile(client, scanner, true)
		case "3":
			togglePile(client, scanner, false)
		case "4":
			pileQueue(client, scanner)
		case "5":
			reports(client, scanner)
		case "6":
			os.Exit(0)
		default:
			fmt.Println("unrecognized choice")
		}
	}
}

func listPiles(client *wireclient.Client) {
	resp, err := client.Send("get_all_piles", map[string]interface{}{})
	if err != nil {
		fmt.Println("failed to fetch piles:", err)
		return
	}
	printJSON(resp.Data)
}

func togglePile(client *wireclient.Client, scanner *bufio.Scanner, start bool) {
	pileID := prompt(scanner, "pile_id: ")
	_, err := client.Send("toggle_pile_state", map[string]interface{}{
		"pile_id": pileID,
		"start":   start,
	})
	if err != nil {
		fmt.Println("toggle failed:", err)
		return
	}
	fmt.Println("state updated")
}

func pileQueue(client *wireclient.Client, scanner *bufio.Scanner) {
	pileID := prompt(scanner, "pile_id: ")
	resp, err := client.Send("get_pile_queue", map[string]interface{}{
		"pile_id": pileID,
	})
	if err != nil {
		fmt.Println("failed to fetch queue:", err)
		return
	}
	printJSON(resp.Data)
}

func reports(client *wireclient.Client, scanner *bufio.Scanner) {
	bucket := prompt(scanner, "time_range (day/week/month): ")
	resp, err := client.Send("get_reports", map[string]interface{}{
		"time_range": bucket,
	})
	if err != nil {
		fmt.Println("failed to fetch reports:", err)
		return
	}
	printJSON(resp.Data)
}

func prompt(scanner *bufio.Scanner, label string) string {
	fmt.Print(label)
	scanner.Scan()
	return strings.TrimSpace(scanner.Text())
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
