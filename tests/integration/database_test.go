package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	pgstorage "github.com/evstation/charge-station/internal/adapter/storage/postgres"
	"github.com/evstation/charge-station/internal/domain"
)

// TestDatabase_BillLedgerAppend exercises BillLedger.Append against a
// real Postgres instance, covering the append-only insert path.
func TestDatabase_BillLedgerAppend(t *testing.T) {
	env := SetupTestEnvironment(t)
	if env == nil || env.GormDB == nil {
		t.Skip("Database not available")
	}

	SetupSchema(t, env.DB)
	CleanDatabase(t, env.DB)

	ledger := pgstorage.NewBillLedger(env.GormDB, env.Logger)
	ctx := context.Background()

	bill := domain.Bill{
		BillID:       uuid.New().String(),
		CarID:        "CAR-001",
		PileID:       "F01",
		StartTime:    time.Now().Add(-time.Hour),
		EndTime:      time.Now(),
		DeliveredKWh: 20,
		Mode:         domain.ModeFast,
		ChargeFee:    16.0,
		ServiceFee:   16.0,
		TotalFee:     32.0,
	}

	t.Run("Append", func(t *testing.T) {
		if err := ledger.Append(ctx, bill); err != nil {
			t.Fatalf("Failed to append bill: %v", err)
		}
	})

	t.Run("AppendIsIdempotentOnConflict", func(t *testing.T) {
		// Appending the same bill_id twice must not be treated as a
		// hard failure; bills are append-only and keyed by BillID.
		if err := ledger.Append(ctx, bill); err != nil {
			t.Fatalf("Duplicate append should be tolerated, got: %v", err)
		}
	})

	t.Run("ReadBack", func(t *testing.T) {
		var row pgstorage.BillLedgerRow
		err := env.GormDB.WithContext(ctx).First(&row, "bill_id = ?", bill.BillID).Error
		if err != nil {
			t.Fatalf("Failed to read bill back: %v", err)
		}
		if row.CarID != "CAR-001" {
			t.Errorf("Expected car_id 'CAR-001', got '%s'", row.CarID)
		}
		if row.TotalFee != 32.0 {
			t.Errorf("Expected total_fee 32.0, got %f", row.TotalFee)
		}
	})
}

// TestDatabase_BillLedgerSumSince exercises the ledger's per-pile
// aggregation query.
func TestDatabase_BillLedgerSumSince(t *testing.T) {
	env := SetupTestEnvironment(t)
	if env == nil || env.GormDB == nil {
		t.Skip("Database not available")
	}

	SetupSchema(t, env.DB)
	CleanDatabase(t, env.DB)

	ledger := pgstorage.NewBillLedger(env.GormDB, env.Logger)
	ctx := context.Background()
	since := time.Now().Add(-24 * time.Hour)

	bills := []domain.Bill{
		{
			BillID: uuid.New().String(), CarID: "CAR-001", PileID: "F01",
			StartTime: since.Add(time.Hour), EndTime: since.Add(2 * time.Hour),
			DeliveredKWh: 20, Mode: domain.ModeFast,
			ChargeFee: 16, ServiceFee: 16, TotalFee: 32,
		},
		{
			BillID: uuid.New().String(), CarID: "CAR-002", PileID: "F01",
			StartTime: since.Add(3 * time.Hour), EndTime: since.Add(4 * time.Hour),
			DeliveredKWh: 10, Mode: domain.ModeFast,
			ChargeFee: 8, ServiceFee: 8, TotalFee: 16,
		},
		{
			BillID: uuid.New().String(), CarID: "CAR-003", PileID: "T01",
			StartTime: since.Add(5 * time.Hour), EndTime: since.Add(6 * time.Hour),
			DeliveredKWh: 5, Mode: domain.ModeTrickle,
			ChargeFee: 4, ServiceFee: 4, TotalFee: 8,
		},
	}
	for _, b := range bills {
		if err := ledger.Append(ctx, b); err != nil {
			t.Fatalf("Failed to seed bill: %v", err)
		}
	}

	rows, err := ledger.SumSince(ctx, since)
	if err != nil {
		t.Fatalf("Failed to sum since: %v", err)
	}

	totals := map[string]pgstorage.PileAggregate{}
	for _, r := range rows {
		totals[r.PileID+":"+r.Mode] = r
	}

	f01 := totals["F01:FAST"]
	if f01.SessionCount != 2 {
		t.Errorf("Expected 2 sessions for F01/FAST, got %d", f01.SessionCount)
	}
	if f01.EnergyKWh != 30 {
		t.Errorf("Expected 30 kWh for F01/FAST, got %f", f01.EnergyKWh)
	}
	if f01.Revenue != 48 {
		t.Errorf("Expected revenue 48 for F01/FAST, got %f", f01.Revenue)
	}

	t01 := totals["T01:TRICKLE"]
	if t01.SessionCount != 1 {
		t.Errorf("Expected 1 session for T01/TRICKLE, got %d", t01.SessionCount)
	}
}

// TestDatabase_Transactions verifies Postgres ACID behavior the ledger
// relies on (a failed write leaves no partial row).
func TestDatabase_Transactions(t *testing.T) {
	env := SetupTestEnvironment(t)
	if env == nil || env.GormDB == nil {
		t.Skip("Database not available")
	}

	SetupSchema(t, env.DB)
	CleanDatabase(t, env.DB)

	ctx := context.Background()
	row := func(id, carID string) pgstorage.BillLedgerRow {
		return pgstorage.BillLedgerRow{
			BillID: id, CarID: carID, PileID: "F01",
			StartTime: time.Now(), EndTime: time.Now(),
			DeliveredKWh: 1, Mode: "FAST",
			ChargeFee: 1, ServiceFee: 1, TotalFee: 2,
		}
	}

	t.Run("Rollback", func(t *testing.T) {
		billID := uuid.New().String()
		r := row(billID, "CAR-ROLLBACK")
		tx := env.GormDB.WithContext(ctx).Begin()
		if err := tx.Create(&r).Error; err != nil {
			t.Fatalf("Failed to insert: %v", err)
		}
		if err := tx.Rollback().Error; err != nil {
			t.Fatalf("Failed to rollback: %v", err)
		}

		var count int64
		env.GormDB.Model(&pgstorage.BillLedgerRow{}).Where("bill_id = ?", billID).Count(&count)
		if count != 0 {
			t.Error("Bill should not exist after rollback")
		}
	})

	t.Run("Commit", func(t *testing.T) {
		billID := uuid.New().String()
		r := row(billID, "CAR-COMMIT")
		tx := env.GormDB.WithContext(ctx).Begin()
		if err := tx.Create(&r).Error; err != nil {
			tx.Rollback()
			t.Fatalf("Failed to insert: %v", err)
		}
		if err := tx.Commit().Error; err != nil {
			t.Fatalf("Failed to commit: %v", err)
		}

		var count int64
		env.GormDB.Model(&pgstorage.BillLedgerRow{}).Where("bill_id = ?", billID).Count(&count)
		if count != 1 {
			t.Error("Bill should exist after commit")
		}
	})
}
