package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusPartial Status = "PARTIAL"
	StatusPaid    Status = "PAID"
)

// Installment is one scheduled portion of a patient's balance. Version
// increments on every settlement and guards concurrent receipts.
type Installment struct {
	ID                  snowflake.ID    `gorm:"primaryKey" json:"id"`
	ClinicID            snowflake.ID    `gorm:"not null" json:"clinic_id"`
	PatientID           snowflake.ID    `gorm:"not null" json:"patient_id"`
	ParentInstallmentID *snowflake.ID   `json:"parent_installment_id,omitempty"`
	Number              int             `gorm:"column:installment_number;not null" json:"installment_number"`
	Total               int             `gorm:"column:total_installments;not null" json:"total_installments"`
	Amount              decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	AmountPaid          decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount_paid"`
	DueDate             time.Time       `gorm:"type:date;not null" json:"due_date"`
	Status              Status          `gorm:"not null" json:"status"`
	PaidDate            *time.Time      `gorm:"type:date" json:"paid_date,omitempty"`
	PaymentMethod       *string         `json:"payment_method,omitempty"`
	Notes               *string         `json:"notes,omitempty"`
	Version             int64           `gorm:"not null" json:"version"`
	CreatedAt           time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"not null" json:"updated_at"`
}

func (Installment) TableName() string { return "installments" }

// Remaining is the unpaid part of the installment, never negative.
func (i Installment) Remaining() decimal.Decimal {
	remaining := i.Amount.Sub(i.AmountPaid)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// DeriveStatus is PAID once paid covers amount, PARTIAL while something has
// been paid, PENDING otherwise.
func DeriveStatus(amount, paid decimal.Decimal) Status {
	switch {
	case paid.GreaterThanOrEqual(amount):
		return StatusPaid
	case paid.IsPositive():
		return StatusPartial
	default:
		return StatusPending
	}
}
