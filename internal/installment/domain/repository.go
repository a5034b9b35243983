package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, installment *Installment) error
	FindByID(ctx context.Context, db *gorm.DB, clinicID, id snowflake.ID) (*Installment, error)
	// FindRemainder returns the installment a partial settlement of parentID
	// carried the balance to, or nil.
	FindRemainder(ctx context.Context, db *gorm.DB, clinicID, parentID snowflake.ID) (*Installment, error)
	ListByPatient(ctx context.Context, db *gorm.DB, clinicID, patientID snowflake.ID) ([]*Installment, error)
	// UpdateSettlement writes the settled fields only when the stored version
	// still equals expectedVersion, and reports the number of rows changed.
	UpdateSettlement(ctx context.Context, db *gorm.DB, installment *Installment, expectedVersion int64) (int64, error)
}
