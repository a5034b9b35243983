package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clinicledger/internal/apperr"
	paymentdomain "github.com/smallbiznis/clinicledger/internal/payment/domain"
	"gorm.io/gorm"
)

// InstallmentRef carries the installment labels used in the transaction description.
type InstallmentRef struct {
	ID     snowflake.ID
	Number int
	Total  int
	Notes  *string
}

type RecordReceiptRequest struct {
	ClinicID    snowflake.ID
	RegisterID  snowflake.ID
	OperatorID  snowflake.ID
	Installment InstallmentRef
	PatientName string
	Payment     paymentdomain.Validated
}

type Receipt struct {
	Event       FinancialEvent `json:"financial_event"`
	Transaction Transaction    `json:"transaction"`
}

type Service interface {
	// RecordReceipt appends the event, its transaction and the link between
	// them through tx. The caller owns commit and rollback.
	RecordReceipt(ctx context.Context, tx *gorm.DB, req RecordReceiptRequest) (Receipt, error)
	ListEvents(ctx context.Context, db *gorm.DB, clinicID, registerID snowflake.ID) ([]FinancialEvent, error)
	RegisterTotals(ctx context.Context, db *gorm.DB, clinicID, registerID snowflake.ID) (RegisterTotals, error)
}

var (
	ErrInvalidRegister    = apperr.Validation("invalid_register", "cash register is required")
	ErrInvalidOperator    = apperr.Validation("invalid_operator", "operator is required")
	ErrInvalidInstallment = apperr.Validation("invalid_installment", "installment is required")
	ErrInvalidNetAmount   = apperr.Validation("invalid_amount", "net amount must be positive")
	ErrEventAlreadyLinked = apperr.Conflict("financial_event_already_linked", "financial event already has a transaction")
)
