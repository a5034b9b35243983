package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, register *CashRegister) error
	FindByID(ctx context.Context, db *gorm.DB, clinicID, id snowflake.ID) (*CashRegister, error)
	// LockOpen reads an OPEN register under a row lock of the given strength
	// (clause.LockingStrengthShare or clause.LockingStrengthUpdate). It returns
	// nil once the register is closed.
	LockOpen(ctx context.Context, db *gorm.DB, clinicID, id snowflake.ID, strength string) (*CashRegister, error)
	FindOpen(ctx context.Context, db *gorm.DB, clinicID, userID snowflake.ID) (*CashRegister, error)
	// MarkClosed moves an OPEN register to CLOSED and reports the rows changed.
	MarkClosed(ctx context.Context, db *gorm.DB, clinicID, id snowflake.ID, closingBalance decimal.Decimal, closedAt time.Time) (int64, error)
}
