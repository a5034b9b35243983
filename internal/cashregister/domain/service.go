package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/clinicledger/internal/apperr"
	"gorm.io/gorm"
)

type OpenRequest struct {
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

type Service interface {
	Open(ctx context.Context, req OpenRequest) (CashRegister, error)
	Close(ctx context.Context, registerID snowflake.ID) (CashRegister, error)
	CloseActive(ctx context.Context) (CashRegister, error)
	// GetActive returns the operator's OPEN register, or nil when none is open.
	GetActive(ctx context.Context, clinicID, operatorID snowflake.ID) (*CashRegister, error)
	// HoldOpen share-locks an OPEN register inside tx for the rest of the
	// transaction, so a concurrent close waits for it. It returns nil when the
	// register is no longer open or belongs to another operator.
	HoldOpen(ctx context.Context, tx *gorm.DB, clinicID, operatorID, registerID snowflake.ID) (*CashRegister, error)
	Summary(ctx context.Context, registerID snowflake.ID) (Summary, error)
}

var (
	ErrInvalidOpeningBalance = apperr.Validation("invalid_opening_balance", "opening balance cannot be negative")
	ErrRegisterAlreadyOpen   = apperr.Conflict("register_already_open", "operator already has an open cash register")
	ErrRegisterNotFound      = apperr.NotFound("register_not_found", "open cash register not found")
)
