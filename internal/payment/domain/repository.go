package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, clinicID, id snowflake.ID) (*Method, error)
	ListActive(ctx context.Context, db *gorm.DB, clinicID snowflake.ID) ([]*Method, error)
}
