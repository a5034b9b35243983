package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindAppointment(ctx context.Context, db *gorm.DB, clinicID, id snowflake.ID) (*Appointment, error)
	// TransitionAppointment sets the status only while it still equals from.
	TransitionAppointment(ctx context.Context, db *gorm.DB, clinicID, id snowflake.ID, from, to AppointmentStatus, at time.Time) (int64, error)
	BlocksDebtors(ctx context.Context, db *gorm.DB, clinicID snowflake.ID) (bool, error)
	FindQueueItem(ctx context.Context, db *gorm.DB, clinicID, appointmentID snowflake.ID) (*QueueItem, error)
	// InsertQueueItem does nothing when the appointment is already queued and
	// reports the rows written.
	InsertQueueItem(ctx context.Context, db *gorm.DB, item *QueueItem) (int64, error)
}
