package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/clinicledger/internal/cashregister/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const registerColumns = `id, clinic_id, user_id, status, opening_balance, closing_balance, opened_at, closed_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, register *domain.CashRegister) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO cash_registers (`+registerColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		register.ID,
		register.ClinicID,
		register.UserID,
		string(register.Status),
		register.OpeningBalance,
		register.ClosingBalance,
		register.OpenedAt,
		register.ClosedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, clinicID, id snowflake.ID) (*domain.CashRegister, error) {
	var register domain.CashRegister
	err := db.WithContext(ctx).Raw(
		`SELECT `+registerColumns+` FROM cash_registers WHERE clinic_id = ? AND id = ?`,
		clinicID,
		id,
	).Scan(&register).Error
	if err != nil {
		return nil, err
	}
	if register.ID == 0 {
		return nil, nil
	}
	return &register, nil
}

func (r *repo) LockOpen(ctx context.Context, db *gorm.DB, clinicID, id snowflake.ID, strength string) (*domain.CashRegister, error) {
	var register domain.CashRegister
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: strength}).
		Where("clinic_id = ? AND id = ? AND status = ?", clinicID, id, string(domain.StatusOpen)).
		Limit(1).
		Find(&register).Error
	if err != nil {
		return nil, err
	}
	if register.ID == 0 {
		return nil, nil
	}
	return &register, nil
}

func (r *repo) FindOpen(ctx context.Context, db *gorm.DB, clinicID, userID snowflake.ID) (*domain.CashRegister, error) {
	var register domain.CashRegister
	err := db.WithContext(ctx).Raw(
		`SELECT `+registerColumns+` FROM cash_registers
		 WHERE clinic_id = ? AND user_id = ? AND status = ?
		 ORDER BY opened_at DESC
		 LIMIT 1`,
		clinicID,
		userID,
		string(domain.StatusOpen),
	).Scan(&register).Error
	if err != nil {
		return nil, err
	}
	if register.ID == 0 {
		return nil, nil
	}
	return &register, nil
}

func (r *repo) MarkClosed(ctx context.Context, db *gorm.DB, clinicID, id snowflake.ID, closingBalance decimal.Decimal, closedAt time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE cash_registers
		 SET status = ?, closing_balance = ?, closed_at = ?
		 WHERE clinic_id = ? AND id = ? AND status = ?`,
		string(domain.StatusClosed),
		closingBalance,
		closedAt,
		clinicID,
		id,
		string(domain.StatusOpen),
	)
	return result.RowsAffected, result.Error
}
