package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/clinicledger/internal/apperr"
	"github.com/smallbiznis/clinicledger/internal/clock"
	"github.com/smallbiznis/clinicledger/internal/config"
	"github.com/smallbiznis/clinicledger/internal/installment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   domain.Repository
	Config *config.ReceivablesConfigHolder `optional:"true"`
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	repo   domain.Repository
	config *config.ReceivablesConfigHolder
}

func NewService(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("installment.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		repo:   p.Repo,
		config: p.Config,
	}
}

func (s *Service) Settle(ctx context.Context, tx *gorm.DB, req domain.SettleRequest) (domain.SettlementResult, error) {
	before := req.Installment
	if before.ID == 0 {
		return domain.SettlementResult{}, domain.ErrNotFound
	}
	net := req.NetAmount
	if !net.IsPositive() {
		return domain.SettlementResult{}, domain.ErrInvalidAmount
	}
	remainingBefore := before.Remaining()
	if net.GreaterThan(remainingBefore) {
		return domain.SettlementResult{}, domain.ErrExceedsBalance
	}
	if tx == nil {
		tx = s.db
	}

	carried, err := s.repo.FindRemainder(ctx, tx, before.ClinicID, before.ID)
	if err != nil {
		return domain.SettlementResult{}, apperr.Persistence("load remainder installment", err)
	}
	if carried != nil {
		s.log.Info("settlement refused on installment with remainder",
			zap.String("installment_id", before.ID.String()),
			zap.String("remainder_installment_id", carried.ID.String()),
		)
		return domain.SettlementResult{}, domain.ErrBalanceCarriedForward
	}

	now := s.clock.Now().UTC()
	today := clock.Today(s.clock)

	after := before
	after.AmountPaid = before.AmountPaid.Add(net)
	after.Status = domain.DeriveStatus(after.Amount, after.AmountPaid)
	if after.Status == domain.StatusPaid {
		label := strings.TrimSpace(req.MethodLabel)
		after.PaidDate = &today
		after.PaymentMethod = &label
	}
	after.Version = before.Version + 1
	after.UpdatedAt = now

	rows, err := s.repo.UpdateSettlement(ctx, tx, &after, before.Version)
	if err != nil {
		return domain.SettlementResult{}, apperr.Persistence("update installment", err)
	}
	if rows == 0 {
		s.log.Warn("installment version moved during settlement",
			zap.String("installment_id", before.ID.String()),
			zap.Int64("expected_version", before.Version),
		)
		return domain.SettlementResult{}, domain.ErrConcurrentUpdate
	}

	result := domain.SettlementResult{Before: before, After: after}

	remainder := remainingBefore.Sub(net)
	if net.LessThan(remainingBefore) && remainder.IsPositive() {
		notes := fmt.Sprintf("Saldo remanescente de pagamento parcial da parcela %d/%d", before.Number, before.Total)
		parentID := before.ID
		next := domain.Installment{
			ID:                  s.genID.Generate(),
			ClinicID:            before.ClinicID,
			PatientID:           before.PatientID,
			ParentInstallmentID: &parentID,
			Number:              before.Number,
			Total:               before.Total,
			Amount:              remainder,
			AmountPaid:          decimal.Zero,
			DueDate:             today.AddDate(0, 0, s.remainderDueDays()),
			Status:              domain.StatusPending,
			Notes:               &notes,
			Version:             1,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err := s.repo.Insert(ctx, tx, &next); err != nil {
			return domain.SettlementResult{}, apperr.Persistence("insert remainder installment", err)
		}
		result.Remainder = &next
	}

	return result, nil
}

func (s *Service) Get(ctx context.Context, db *gorm.DB, clinicID, id snowflake.ID) (domain.Installment, error) {
	if clinicID == 0 || id == 0 {
		return domain.Installment{}, domain.ErrNotFound
	}
	if db == nil {
		db = s.db
	}

	item, err := s.repo.FindByID(ctx, db, clinicID, id)
	if err != nil {
		return domain.Installment{}, apperr.Persistence("load installment", err)
	}
	if item == nil {
		return domain.Installment{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) ListByPatient(ctx context.Context, clinicID, patientID snowflake.ID) ([]domain.Installment, error) {
	items, err := s.repo.ListByPatient(ctx, s.db, clinicID, patientID)
	if err != nil {
		return nil, apperr.Persistence("list installments", err)
	}

	installments := make([]domain.Installment, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		installments = append(installments, *item)
	}
	return installments, nil
}

func (s *Service) remainderDueDays() int {
	days := s.config.Get().RemainderDueDays
	if days <= 0 {
		return 7
	}
	return days
}
