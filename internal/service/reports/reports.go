// Package reports answers the wire protocol's get_reports action
// (spec §6). The source implementation this spec was distilled from
// has no get_reports equivalent (spec §9 Open Questions); this
// package follows the spec's minimum bar: aggregate Bills by the
// requested time bucket, one row per pile.
package reports

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/evstation/charge-station/internal/domain"
	"github.com/evstation/charge-station/internal/ports"
	"github.com/evstation/charge-station/internal/station"
)

// Bucket is the requested aggregation window.
type Bucket string

const (
	BucketDay   Bucket = "day"
	BucketWeek  Bucket = "week"
	BucketMonth Bucket = "month"
)

func ParseBucket(s string) (Bucket, bool) {
	switch Bucket(s) {
	case BucketDay, BucketWeek, BucketMonth:
		return Bucket(s), true
	default:
		return "", false
	}
}

// Row is one pile's aggregate over the requested window.
type Row struct {
	PileID       string      `json:"pile_id"`
	Mode         domain.Mode `json:"mode"`
	SessionCount int         `json:"session_count"`
	EnergyKWh    float64     `json:"energy_kwh"`
	Revenue      float64     `json:"revenue"`
}

// Generate aggregates Bills ended within the bucket window ending at
// now, grouped by pile_id. Every pile known to the station gets a row,
// with zero counts when it has produced no Bills in-window (so
// get_all_piles and get_reports agree on the fleet roster); lifetime
// pile counters are not used.
func Generate(st *station.Station, bucket Bucket, now time.Time) []Row {
	windowStart := windowStart(bucket, now)

	byPile := make(map[string]*Row)
	for _, p := range st.Piles.GetAll() {
		byPile[p.PileID] = &Row{PileID: p.PileID, Mode: p.Type}
	}

	for _, b := range st.Bills.GetAll() {
		if b.EndTime.Before(windowStart) {
			continue
		}
		row, ok := byPile[b.PileID]
		if !ok {
			row = &Row{PileID: b.PileID, Mode: b.Mode}
			byPile[b.PileID] = row
		}
		row.SessionCount++
		row.EnergyKWh += b.DeliveredKWh
		row.Revenue += b.TotalFee
	}

	out := make([]Row, 0, len(byPile))
	for _, row := range byPile {
		row.EnergyKWh = round2(row.EnergyKWh)
		row.Revenue = round2(row.Revenue)
		out = append(out, *row)
	}
	return out
}

// GenerateCached serves the same aggregation as Generate, fronted by
// an optional best-effort cache (Redis in production,
// mocks.MockCache in tests) so a dashboard polling loop doesn't
// recompute the aggregation on every refresh. A nil cache, a cache
// miss, or a cache error all fall through to a live computation.
func GenerateCached(ctx context.Context, st *station.Station, c ports.Cache, bucket Bucket, now time.Time, ttl time.Duration) ([]Row, error) {
	key := "reports:" + string(bucket)

	if c != nil {
		if cached, err := c.Get(ctx, key); err == nil && cached != "" {
			var rows []Row
			if err := json.Unmarshal([]byte(cached), &rows); err == nil {
				return rows, nil
			}
		}
	}

	rows := Generate(st, bucket, now)

	if c != nil {
		if payload, err := json.Marshal(rows); err == nil {
			_ = c.Set(ctx, key, string(payload), ttl)
		}
	}
	return rows, nil
}

func windowStart(bucket Bucket, now time.Time) time.Time {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch bucket {
	case BucketWeek:
		return dayStart.AddDate(0, 0, -6)
	case BucketMonth:
		return dayStart.AddDate(0, 0, -29)
	default:
		return dayStart
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
