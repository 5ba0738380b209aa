package postgres

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/evstation/charge-station/internal/domain"
)

// BillLedgerRow is the ledger's on-disk shape. It is kept distinct
// from domain.Bill (rather than tagging domain.Bill with `gorm`
// struct tags) so the charging core stays free of any persistence
// framework import.
type BillLedgerRow struct {
	BillID       string  `gorm:"primaryKey"`
	CarID        string  `gorm:"index"`
	PileID       string  `gorm:"index"`
	StartTime    time.Time
	EndTime      time.Time
	DeliveredKWh float64
	Mode         string
	ChargeFee    float64
	ServiceFee   float64
	TotalFee     float64
	CreatedAt    time.Time
}

func (BillLedgerRow) TableName() string { return "bill_ledger" }

func rowFromBill(b domain.Bill) BillLedgerRow {
	return BillLedgerRow{
		BillID:       b.BillID,
		CarID:        b.CarID,
		PileID:       b.PileID,
		StartTime:    b.StartTime,
		EndTime:      b.EndTime,
		DeliveredKWh: b.DeliveredKWh,
		Mode:         string(b.Mode),
		ChargeFee:    b.ChargeFee,
		ServiceFee:   b.ServiceFee,
		TotalFee:     b.TotalFee,
	}
}

// BillLedger appends completed bills to Postgres, separate from the
// in-memory station and its JSON snapshot files. The get_reports
// action does not read from it.
type BillLedger struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewBillLedger(db *gorm.DB, log *zap.Logger) *BillLedger {
	return &BillLedger{db: db, log: log}
}

// Append inserts one Bill row. Bills are append-only (spec §3); a
// conflicting primary key is treated as already-appended, not an error.
func (l *BillLedger) Append(ctx context.Context, bill domain.Bill) error {
	row := rowFromBill(bill)
	err := l.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	if err != nil {
		l.log.Warn("failed to append bill to ledger", zap.String("bill_id", bill.BillID), zap.Error(err))
		return err
	}
	return nil
}

// SumSince aggregates revenue and energy per pile for bills with
// end_time at or after since. Nothing in the server calls it;
// get_reports aggregates the in-memory Bills store instead.
func (l *BillLedger) SumSince(ctx context.Context, since time.Time) ([]PileAggregate, error) {
	var rows []PileAggregate
	err := l.db.WithContext(ctx).
		Model(&BillLedgerRow{}).
		Select("pile_id, mode, count(*) as session_count, sum(delivered_kwh) as energy_kwh, sum(total_fee) as revenue").
		Where("end_time >= ?", since).
		Group("pile_id, mode").
		Scan(&rows).Error
	return rows, err
}

// PileAggregate mirrors reports.Row's shape for a SQL GROUP BY result.
type PileAggregate struct {
	PileID       string  `gorm:"column:pile_id"`
	Mode         string  `gorm:"column:mode"`
	SessionCount int     `gorm:"column:session_count"`
	EnergyKWh    float64 `gorm:"column:energy_kwh"`
	Revenue      float64 `gorm:"column:revenue"`
}
