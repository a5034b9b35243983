package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clinicledger/internal/installment/domain"
	"gorm.io/gorm"
)

const installmentColumns = `id, clinic_id, patient_id, parent_installment_id, installment_number,
	total_installments, amount, amount_paid, due_date, status, paid_date, payment_method,
	notes, version, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, installment *domain.Installment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO installments (`+installmentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		installment.ID,
		installment.ClinicID,
		installment.PatientID,
		installment.ParentInstallmentID,
		installment.Number,
		installment.Total,
		installment.Amount,
		installment.AmountPaid,
		installment.DueDate,
		string(installment.Status),
		installment.PaidDate,
		installment.PaymentMethod,
		installment.Notes,
		installment.Version,
		installment.CreatedAt,
		installment.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, clinicID, id snowflake.ID) (*domain.Installment, error) {
	var installment domain.Installment
	err := db.WithContext(ctx).Raw(
		`SELECT `+installmentColumns+` FROM installments WHERE clinic_id = ? AND id = ?`,
		clinicID,
		id,
	).Scan(&installment).Error
	if err != nil {
		return nil, err
	}
	if installment.ID == 0 {
		return nil, nil
	}
	return &installment, nil
}

func (r *repo) FindRemainder(ctx context.Context, db *gorm.DB, clinicID, parentID snowflake.ID) (*domain.Installment, error) {
	var installment domain.Installment
	err := db.WithContext(ctx).Raw(
		`SELECT `+installmentColumns+` FROM installments
		 WHERE clinic_id = ? AND parent_installment_id = ?
		 ORDER BY id ASC
		 LIMIT 1`,
		clinicID,
		parentID,
	).Scan(&installment).Error
	if err != nil {
		return nil, err
	}
	if installment.ID == 0 {
		return nil, nil
	}
	return &installment, nil
}

func (r *repo) ListByPatient(ctx context.Context, db *gorm.DB, clinicID, patientID snowflake.ID) ([]*domain.Installment, error) {
	var installments []*domain.Installment
	err := db.WithContext(ctx).Raw(
		`SELECT `+installmentColumns+` FROM installments
		 WHERE clinic_id = ? AND patient_id = ?
		 ORDER BY installment_number ASC, id ASC`,
		clinicID,
		patientID,
	).Scan(&installments).Error
	if err != nil {
		return nil, err
	}
	return installments, nil
}

func (r *repo) UpdateSettlement(ctx context.Context, db *gorm.DB, installment *domain.Installment, expectedVersion int64) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE installments
		 SET amount_paid = ?, status = ?, paid_date = ?, payment_method = ?,
		     version = ?, updated_at = ?
		 WHERE clinic_id = ? AND id = ? AND version = ?`,
		installment.AmountPaid,
		string(installment.Status),
		installment.PaidDate,
		installment.PaymentMethod,
		installment.Version,
		installment.UpdatedAt,
		installment.ClinicID,
		installment.ID,
		expectedVersion,
	)
	return result.RowsAffected, result.Error
}
