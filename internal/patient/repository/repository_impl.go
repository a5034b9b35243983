package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clinicledger/internal/patient/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, clinicID, id snowflake.ID) (*domain.Patient, error) {
	var patient domain.Patient
	err := db.WithContext(ctx).Raw(
		`SELECT id, clinic_id, name, bad_debtor, balance_due
		 FROM patients
		 WHERE clinic_id = ? AND id = ?`,
		clinicID,
		id,
	).Scan(&patient).Error
	if err != nil {
		return nil, err
	}
	if patient.ID == 0 {
		return nil, nil
	}
	return &patient, nil
}
