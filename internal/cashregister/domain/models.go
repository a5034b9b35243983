package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// CashRegister is an operator's shift. Only OPEN registers accept receipts and
// CLOSED is terminal.
type CashRegister struct {
	ID             snowflake.ID     `gorm:"primaryKey" json:"id"`
	ClinicID       snowflake.ID     `gorm:"not null" json:"clinic_id"`
	UserID         snowflake.ID     `gorm:"not null" json:"user_id"`
	Status         Status           `gorm:"not null" json:"status"`
	OpeningBalance decimal.Decimal  `gorm:"type:numeric(14,2);not null" json:"opening_balance"`
	ClosingBalance *decimal.Decimal `gorm:"type:numeric(14,2)" json:"closing_balance,omitempty"`
	OpenedAt       time.Time        `gorm:"not null" json:"opened_at"`
	ClosedAt       *time.Time       `json:"closed_at,omitempty"`
}

func (CashRegister) TableName() string { return "cash_registers" }

func (r CashRegister) IsOpen() bool { return r.Status == StatusOpen }

// Summary totals the receipts recorded under one register.
type Summary struct {
	Register        CashRegister    `json:"register"`
	ReceiptCount    int64           `json:"receipt_count"`
	NetReceived     decimal.Decimal `json:"net_received"`
	ExpectedBalance decimal.Decimal `json:"expected_balance"`
}
