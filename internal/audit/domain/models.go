package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Action types written to the financial audit trail.
const (
	ActionPaymentReceived = "PAYMENT_RECEIVED"
	ActionRegisterOpened  = "REGISTER_OPENED"
	ActionRegisterClosed  = "REGISTER_CLOSED"
)

// Entry is one append-only audit row. Old and new snapshots are stored as JSON.
type Entry struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	ClinicID   snowflake.ID      `gorm:"not null" json:"clinic_id"`
	Table      string            `gorm:"column:table_name;not null" json:"table_name"`
	RecordID   snowflake.ID      `gorm:"not null" json:"record_id"`
	ActionType string            `gorm:"not null" json:"action_type"`
	OldData    datatypes.JSONMap `gorm:"type:jsonb" json:"old_data,omitempty"`
	NewData    datatypes.JSONMap `gorm:"type:jsonb" json:"new_data,omitempty"`
	Notes      *string           `json:"notes,omitempty"`
	UserID     snowflake.ID      `gorm:"not null" json:"user_id"`
	CreatedAt  time.Time         `gorm:"not null" json:"created_at"`
}

func (Entry) TableName() string { return "financial_audit_trail" }

type ListFilter struct {
	ClinicID   snowflake.ID
	Table      string
	RecordID   snowflake.ID
	ActionType string
	BeforeID   snowflake.ID
	Limit      int
}
