// Package tariff implements the time-of-use rate table and the
// segmented billing computation described in spec §4.1.
package tariff

import (
	"math"
	"time"
)

// ServiceFeePerKWh is the flat service fee charged regardless of the
// tariff segment.
const ServiceFeePerKWh = 0.80

type boundary struct {
	hour int
	rate float64
}

// table lists the rate effective from each boundary hour to the next,
// in day order. Peak [10,15) and [18,21); Normal [07,10) [15,18)
// [21,23); Valley [23,24) and [00,07).
var table = []boundary{
	{0, 0.40},
	{7, 0.70},
	{10, 1.00},
	{15, 0.70},
	{18, 1.00},
	{21, 0.70},
	{23, 0.40},
}

// rateAt returns the per-kWh charge rate in effect at the given hour
// of day (0-23).
func rateAt(hour int) float64 {
	rate := table[len(table)-1].rate
	for _, b := range table {
		if hour >= b.hour {
			rate = b.rate
		}
	}
	return rate
}

// nextBoundary returns the next tariff boundary strictly after t,
// which may be the first boundary of the following day.
func nextBoundary(t time.Time) time.Time {
	dayStart := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	for _, b := range table {
		candidate := dayStart.Add(time.Duration(b.hour) * time.Hour)
		if candidate.After(t) {
			return candidate
		}
	}
	// Past the last boundary of the day (23:00) — roll to 00:00 next day.
	return dayStart.Add(24 * time.Hour)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeCost splits deliveredKWh proportionally across the tariff
// segments spanned by [start, end) and returns (charge_fee,
// service_fee, total_fee), each rounded to two decimal places.
func ComputeCost(deliveredKWh float64, start, end time.Time) (chargeFee, serviceFee, totalFee float64) {
	totalHours := end.Sub(start).Hours()
	if totalHours <= 0 {
		return 0, 0, 0
	}

	var charge float64
	t0 := start
	for t0.Before(end) {
		t1 := nextBoundary(t0)
		if t1.After(end) {
			t1 = end
		}
		segmentHours := t1.Sub(t0).Hours()
		segmentKWh := deliveredKWh * segmentHours / totalHours
		charge += segmentKWh * rateAt(t0.Hour())
		t0 = t1
	}

	service := deliveredKWh * ServiceFeePerKWh
	chargeFee = round2(charge)
	serviceFee = round2(service)
	totalFee = round2(chargeFee + serviceFee)
	return chargeFee, serviceFee, totalFee
}
