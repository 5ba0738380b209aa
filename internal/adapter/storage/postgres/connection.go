// Package postgres backs the append-only bill ledger (SPEC_FULL.md
// DOMAIN STACK) with a real Postgres table, independent of the
// per-entity JSON files spec §6 requires for the core's persisted
// state. Grounded in the teacher's internal/adapter/storage/postgres
// connection helper.
package postgres

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewConnection opens a GORM connection to Postgres for the bill
// ledger. It is entirely optional: the core's in-memory station
// operates correctly with no database configured at all (spec §1:
// "persistence ... on disk" is the core's only required collaborator).
func NewConnection(url string, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(url), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)

	log.Info("connected to postgres bill ledger")
	return db, nil
}

// RunMigrations auto-migrates the bill_ledger table. Safe to call on
// every startup: GORM only adds columns/indexes that are missing.
func RunMigrations(db *gorm.DB) error {
	return db.AutoMigrate(&BillLedgerRow{})
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
