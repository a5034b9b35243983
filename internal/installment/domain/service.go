package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/clinicledger/internal/apperr"
	"gorm.io/gorm"
)

type SettleRequest struct {
	Installment Installment
	NetAmount   decimal.Decimal
	MethodLabel string
}

type SettlementResult struct {
	Before    Installment  `json:"-"`
	After     Installment  `json:"installment"`
	Remainder *Installment `json:"remainder_installment,omitempty"`
}

type Service interface {
	// Settle applies a payment to the installment through tx, creating a
	// remainder installment for partial payments. Once a remainder exists the
	// parent accepts no further payments.
	Settle(ctx context.Context, tx *gorm.DB, req SettleRequest) (SettlementResult, error)
	Get(ctx context.Context, db *gorm.DB, clinicID, id snowflake.ID) (Installment, error)
	ListByPatient(ctx context.Context, clinicID, patientID snowflake.ID) ([]Installment, error)
}

var (
	ErrNotFound              = apperr.NotFound("installment_not_found", "installment not found")
	ErrInvalidAmount         = apperr.Validation("invalid_amount", "settlement amount must be positive")
	ErrExceedsBalance        = apperr.Validation("overpayment", "settlement amount exceeds the remaining balance")
	ErrBalanceCarriedForward = apperr.Validation("balance_carried_forward", "remaining balance is collected on the remainder installment")
	ErrConcurrentUpdate      = apperr.Conflict("installment_concurrent_update", "installment was changed by another receipt")
)
