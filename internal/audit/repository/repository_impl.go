package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/clinicledger/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.Entry) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO financial_audit_trail (
			id, clinic_id, table_name, record_id, action_type,
			old_data, new_data, notes, user_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.ClinicID,
		entry.Table,
		entry.RecordID,
		entry.ActionType,
		entry.OldData,
		entry.NewData,
		entry.Notes,
		entry.UserID,
		entry.CreatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Entry, error) {
	var entries []*domain.Entry
	stmt := db.WithContext(ctx).Model(&domain.Entry{}).
		Where("clinic_id = ?", filter.ClinicID)

	if table := strings.TrimSpace(filter.Table); table != "" {
		stmt = stmt.Where("table_name = ?", table)
	}
	if filter.RecordID != 0 {
		stmt = stmt.Where("record_id = ?", filter.RecordID)
	}
	if action := strings.TrimSpace(filter.ActionType); action != "" {
		stmt = stmt.Where("action_type = ?", action)
	}
	// Snowflake ids grow with time, so the id alone orders the trail.
	if filter.BeforeID != 0 {
		stmt = stmt.Where("id < ?", filter.BeforeID)
	}

	stmt = stmt.Order("id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
