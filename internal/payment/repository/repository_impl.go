package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clinicledger/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, clinicID, id snowflake.ID) (*domain.Method, error) {
	var method domain.Method
	err := db.WithContext(ctx).Raw(
		`SELECT id, clinic_id, name, category, fee_percent, active
		 FROM payment_methods WHERE clinic_id = ? AND id = ?`,
		clinicID,
		id,
	).Scan(&method).Error
	if err != nil {
		return nil, err
	}
	if method.ID == 0 {
		return nil, nil
	}
	return &method, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB, clinicID snowflake.ID) ([]*domain.Method, error) {
	var methods []*domain.Method
	err := db.WithContext(ctx).Raw(
		`SELECT id, clinic_id, name, category, fee_percent, active
		 FROM payment_methods WHERE clinic_id = ? AND active = ?
		 ORDER BY name ASC`,
		clinicID,
		true,
	).Scan(&methods).Error
	if err != nil {
		return nil, err
	}
	return methods, nil
}
