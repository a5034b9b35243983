package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clinicledger/internal/admission/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindAppointment(ctx context.Context, db *gorm.DB, clinicID, id snowflake.ID) (*domain.Appointment, error) {
	var appointment domain.Appointment
	err := db.WithContext(ctx).Raw(
		`SELECT id, clinic_id, patient_id, professional_id, status, type, scheduled_at, updated_at
		 FROM appointments
		 WHERE clinic_id = ? AND id = ?`,
		clinicID,
		id,
	).Scan(&appointment).Error
	if err != nil {
		return nil, err
	}
	if appointment.ID == 0 {
		return nil, nil
	}
	return &appointment, nil
}

func (r *repo) TransitionAppointment(ctx context.Context, db *gorm.DB, clinicID, id snowflake.ID, from, to domain.AppointmentStatus, at time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE appointments SET status = ?, updated_at = ?
		 WHERE clinic_id = ? AND id = ? AND status = ?`,
		string(to),
		at,
		clinicID,
		id,
		string(from),
	)
	return result.RowsAffected, result.Error
}

func (r *repo) BlocksDebtors(ctx context.Context, db *gorm.DB, clinicID snowflake.ID) (bool, error) {
	var settings []struct {
		BlockDebtorsScheduling bool
	}
	err := db.WithContext(ctx).Raw(
		`SELECT block_debtors_scheduling FROM clinic_settings WHERE clinic_id = ?`,
		clinicID,
	).Scan(&settings).Error
	if err != nil {
		return false, err
	}
	if len(settings) == 0 {
		return false, nil
	}
	return settings[0].BlockDebtorsScheduling, nil
}

func (r *repo) FindQueueItem(ctx context.Context, db *gorm.DB, clinicID, appointmentID snowflake.ID) (*domain.QueueItem, error) {
	var item domain.QueueItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, clinic_id, patient_id, professional_id, appointment_id, status, type, arrival_time
		 FROM attendance_queue
		 WHERE clinic_id = ? AND appointment_id = ?`,
		clinicID,
		appointmentID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) InsertQueueItem(ctx context.Context, db *gorm.DB, item *domain.QueueItem) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO attendance_queue (id, clinic_id, patient_id, professional_id, appointment_id, status, type, arrival_time)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (appointment_id) DO NOTHING`,
		item.ID,
		item.ClinicID,
		item.PatientID,
		item.ProfessionalID,
		item.AppointmentID,
		string(item.Status),
		item.Type,
		item.ArrivalTime,
	)
	return result.RowsAffected, result.Error
}
