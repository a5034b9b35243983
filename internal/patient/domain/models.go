package domain

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Patient is the read model of a clinic patient. Debt indicators are
// maintained outside this service.
type Patient struct {
	ID         snowflake.ID    `gorm:"primaryKey" json:"id"`
	ClinicID   snowflake.ID    `gorm:"not null" json:"clinic_id"`
	Name       string          `gorm:"not null" json:"name"`
	BadDebtor  bool            `gorm:"not null" json:"bad_debtor"`
	BalanceDue decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"balance_due"`
}

func (Patient) TableName() string { return "patients" }

func (p Patient) HasDebt() bool {
	return p.BadDebtor || p.BalanceDue.IsPositive()
}
