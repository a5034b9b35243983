package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clinicledger/internal/apperr"
	"github.com/smallbiznis/clinicledger/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func NewService(p Params) domain.Catalogue {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("payment.service"),
		repo: p.Repo,
	}
}

// Get returns an active method of the clinic. Inactive methods are reported as
// missing so they cannot take new receipts.
func (s *Service) Get(ctx context.Context, clinicID, id snowflake.ID) (domain.Method, error) {
	if clinicID == 0 || id == 0 {
		return domain.Method{}, domain.ErrMethodNotFound
	}

	method, err := s.repo.FindByID(ctx, s.db, clinicID, id)
	if err != nil {
		s.log.Error("failed to load payment method", zap.String("payment_method_id", id.String()), zap.Error(err))
		return domain.Method{}, apperr.Persistence("load payment method", err)
	}
	if method == nil || !method.Active {
		return domain.Method{}, domain.ErrMethodNotFound
	}
	return *method, nil
}

func (s *Service) ListActive(ctx context.Context, clinicID snowflake.ID) ([]domain.Method, error) {
	items, err := s.repo.ListActive(ctx, s.db, clinicID)
	if err != nil {
		return nil, apperr.Persistence("list payment methods", err)
	}

	methods := make([]domain.Method, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		methods = append(methods, *item)
	}
	return methods, nil
}
