package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type EventType string

const EventTypeReceipt EventType = "RECEIPT"

const (
	TransactionTypeIncome      = "INCOME"
	CategoryInstallmentReceipt = "RECEBIMENTO_PARCELA"
	TransactionStatusPaid      = "PAID"
)

// FinancialEvent is an immutable money-movement fact. TransactionID is the
// only column written after insert, once.
type FinancialEvent struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	ClinicID        snowflake.ID    `gorm:"not null" json:"clinic_id"`
	CashRegisterID  snowflake.ID    `gorm:"not null" json:"cash_register_id"`
	OperatorID      snowflake.ID    `gorm:"not null" json:"operator_id"`
	InstallmentID   snowflake.ID    `gorm:"not null" json:"installment_id"`
	EventType       EventType       `gorm:"not null" json:"event_type"`
	OriginalAmount  decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"original_amount"`
	DiscountApplied decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"discount_applied"`
	InterestApplied decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"interest_applied"`
	NetReceived     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"net_received"`
	PaymentMethodID snowflake.ID    `gorm:"not null" json:"payment_method_id"`
	AuthCode        *string         `json:"-"`
	PartialPayment  bool            `gorm:"not null" json:"partial_payment"`
	Justification   *string         `json:"justification,omitempty"`
	OccurredAt      time.Time       `gorm:"not null" json:"occurred_at"`
	TransactionID   *snowflake.ID   `json:"transaction_id,omitempty"`
}

func (FinancialEvent) TableName() string { return "financial_events" }

// Transaction is the cash-book line produced by a financial event.
type Transaction struct {
	ID               snowflake.ID    `gorm:"primaryKey" json:"id"`
	ClinicID         snowflake.ID    `gorm:"not null" json:"clinic_id"`
	CashRegisterID   snowflake.ID    `gorm:"not null" json:"cash_register_id"`
	FinancialEventID snowflake.ID    `gorm:"not null" json:"financial_event_id"`
	Description      string          `gorm:"not null" json:"description"`
	Amount           decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Type             string          `gorm:"not null" json:"type"`
	Category         string          `gorm:"not null" json:"category"`
	Date             time.Time       `gorm:"type:date;not null" json:"date"`
	PaymentMethod    string          `gorm:"not null" json:"payment_method"`
	PaymentStatus    string          `gorm:"not null" json:"payment_status"`
	NetAmount        decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"net_amount"`
	FeeAmount        decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"fee_amount"`
	CreatedAt        time.Time       `gorm:"not null" json:"created_at"`
}

func (Transaction) TableName() string { return "transactions" }

// RegisterTotals aggregates the receipts taken under one cash register.
type RegisterTotals struct {
	ReceiptCount int64           `json:"receipt_count"`
	NetReceived  decimal.Decimal `json:"net_received"`
}
