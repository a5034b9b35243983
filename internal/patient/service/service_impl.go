package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clinicledger/internal/apperr"
	"github.com/smallbiznis/clinicledger/internal/patient/domain"
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

func NewService(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("patient.service"),
		repo: p.Repo,
	}
}

func (s *Service) Get(ctx context.Context, clinicID, id snowflake.ID) (domain.Patient, error) {
	if clinicID == 0 || id == 0 {
		return domain.Patient{}, domain.ErrPatientNotFound
	}

	patient, err := s.repo.FindByID(ctx, s.db, clinicID, id)
	if err != nil {
		s.log.Error("failed to load patient", zap.String("patient_id", id.String()), zap.Error(err))
		return domain.Patient{}, apperr.Persistence("load patient", err)
	}
	if patient == nil {
		return domain.Patient{}, domain.ErrPatientNotFound
	}
	return *patient, nil
}
