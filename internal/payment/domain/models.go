package domain

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Category is the configured classification of a payment method.
type Category string

const (
	CategoryCash       Category = "CASH"
	CategoryElectronic Category = "ELECTRONIC"
	CategoryOther      Category = "OTHER"
	// CategoryUnset marks methods created before categories existed; they are
	// classified by name.
	CategoryUnset Category = ""
)

type Method struct {
	ID         snowflake.ID    `gorm:"primaryKey" json:"id"`
	ClinicID   snowflake.ID    `gorm:"not null;index" json:"clinic_id"`
	Name       string          `gorm:"not null" json:"name"`
	Category   Category        `gorm:"not null;default:''" json:"category"`
	FeePercent decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"fee_percent"`
	Active     bool            `gorm:"not null;default:true" json:"active"`
}

func (Method) TableName() string { return "payment_methods" }
