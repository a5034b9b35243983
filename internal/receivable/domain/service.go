package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/clinicledger/internal/apperr"
	installmentdomain "github.com/smallbiznis/clinicledger/internal/installment/domain"
	ledgerdomain "github.com/smallbiznis/clinicledger/internal/ledger/domain"
)

// SubmitReceiptRequest is an operator's receipt against one installment. A
// zero MethodID means no payment method was selected.
type SubmitReceiptRequest struct {
	InstallmentID snowflake.ID
	GrossAmount   decimal.Decimal
	Discount      decimal.Decimal
	Interest      decimal.Decimal
	MethodID      snowflake.ID
	AuthCode      string
	Justification string
}

type ReceiptResult struct {
	Event       ledgerdomain.FinancialEvent    `json:"financial_event"`
	Transaction ledgerdomain.Transaction       `json:"transaction"`
	Installment installmentdomain.Installment  `json:"installment"`
	Remainder   *installmentdomain.Installment `json:"remainder_installment,omitempty"`
}

type Service interface {
	// SubmitReceipt validates the receipt and, when accepted, writes the
	// ledger entries, the settlement and the audit entry in one transaction.
	SubmitReceipt(ctx context.Context, req SubmitReceiptRequest) (ReceiptResult, error)
}

var ErrSettlementLocked = apperr.Conflict("installment_locked", "another receipt for this installment is in progress")
