package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type AppointmentStatus string

const (
	AppointmentPending    AppointmentStatus = "PENDING"
	AppointmentConfirmed  AppointmentStatus = "CONFIRMED"
	AppointmentArrived    AppointmentStatus = "ARRIVED"
	AppointmentInProgress AppointmentStatus = "IN_PROGRESS"
	AppointmentCompleted  AppointmentStatus = "COMPLETED"
	AppointmentCancelled  AppointmentStatus = "CANCELLED"
	AppointmentNoShow     AppointmentStatus = "NO_SHOW"
)

// Admittable reports whether an appointment in this status may move to ARRIVED.
func (s AppointmentStatus) Admittable() bool {
	return s == AppointmentPending || s == AppointmentConfirmed
}

type Appointment struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	ClinicID       snowflake.ID      `gorm:"not null" json:"clinic_id"`
	PatientID      snowflake.ID      `gorm:"not null" json:"patient_id"`
	ProfessionalID snowflake.ID      `gorm:"not null" json:"professional_id"`
	Status         AppointmentStatus `gorm:"not null" json:"status"`
	Type           string            `json:"type"`
	ScheduledAt    time.Time         `gorm:"not null" json:"scheduled_at"`
	UpdatedAt      time.Time         `gorm:"not null" json:"updated_at"`
}

func (Appointment) TableName() string { return "appointments" }

type QueueStatus string

const (
	QueueWaiting    QueueStatus = "WAITING"
	QueueInProgress QueueStatus = "IN_PROGRESS"
	QueueCompleted  QueueStatus = "COMPLETED"
)

type QueueItem struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	ClinicID       snowflake.ID `gorm:"not null" json:"clinic_id"`
	PatientID      snowflake.ID `gorm:"not null" json:"patient_id"`
	ProfessionalID snowflake.ID `gorm:"not null" json:"professional_id"`
	AppointmentID  snowflake.ID `gorm:"not null;uniqueIndex" json:"appointment_id"`
	Status         QueueStatus  `gorm:"not null" json:"status"`
	Type           string       `json:"type"`
	ArrivalTime    time.Time    `gorm:"not null" json:"arrival_time"`
}

func (QueueItem) TableName() string { return "attendance_queue" }

// DebtWarning is surfaced when a patient with debt is admitted because the
// clinic does not block debtors.
type DebtWarning struct {
	Code       string          `json:"code"`
	Message    string          `json:"message"`
	BalanceDue decimal.Decimal `json:"balance_due"`
	BadDebtor  bool            `json:"bad_debtor"`
}

type AdmissionResult struct {
	Appointment     Appointment  `json:"appointment"`
	QueueItem       QueueItem    `json:"queue_item"`
	Warning         *DebtWarning `json:"warning,omitempty"`
	AlreadyAdmitted bool         `json:"already_admitted"`
}
