package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clinicledger/internal/apperr"
	auditdomain "github.com/smallbiznis/clinicledger/internal/audit/domain"
	"github.com/smallbiznis/clinicledger/internal/cashregister/domain"
	"github.com/smallbiznis/clinicledger/internal/clock"
	"github.com/smallbiznis/clinicledger/internal/events"
	ledgerdomain "github.com/smallbiznis/clinicledger/internal/ledger/domain"
	"github.com/smallbiznis/clinicledger/internal/observability/metrics"
	"github.com/smallbiznis/clinicledger/internal/opcontext"
	"github.com/smallbiznis/clinicledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Ledger  ledgerdomain.Service
	Audit   auditdomain.Service
	Metrics *metrics.Metrics `optional:"true"`
	Events  events.Publisher `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	ledger  ledgerdomain.Service
	audit   auditdomain.Service
	metrics *metrics.Metrics
	events  events.Publisher
}

func NewService(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("cashregister.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		ledger:  p.Ledger,
		audit:   p.Audit,
		metrics: p.Metrics,
		events:  p.Events,
	}
}

func (s *Service) Open(ctx context.Context, req domain.OpenRequest) (domain.CashRegister, error) {
	clinicID, operatorID, ok := opcontext.Scope(ctx)
	if !ok {
		return domain.CashRegister{}, opcontext.ErrMissingScope
	}
	if req.OpeningBalance.IsNegative() {
		return domain.CashRegister{}, domain.ErrInvalidOpeningBalance
	}

	register := domain.CashRegister{
		ID:             s.genID.Generate(),
		ClinicID:       clinicID,
		UserID:         operatorID,
		Status:         domain.StatusOpen,
		OpeningBalance: req.OpeningBalance.Round(2),
		OpenedAt:       s.clock.Now().UTC(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindOpen(ctx, tx, clinicID, operatorID)
		if err != nil {
			return apperr.Persistence("load open cash register", err)
		}
		if existing != nil {
			return domain.ErrRegisterAlreadyOpen
		}

		// a concurrent open that passed the check above loses on the partial unique index
		if err := s.repo.Insert(ctx, tx, &register); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrRegisterAlreadyOpen
			}
			return apperr.Persistence("insert cash register", err)
		}

		_, err = s.audit.Record(ctx, tx, auditdomain.RecordRequest{
			ClinicID:   clinicID,
			Table:      register.TableName(),
			RecordID:   register.ID,
			ActionType: auditdomain.ActionRegisterOpened,
			NewData: map[string]any{
				"status":          string(register.Status),
				"opening_balance": register.OpeningBalance.StringFixed(2),
			},
			ActorID: operatorID,
		})
		return err
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindPersistence {
			s.log.Error("failed to open cash register", zap.String("operator_id", operatorID.String()), zap.Error(err))
		}
		return domain.CashRegister{}, apperr.EnsureClassified("open cash register", err)
	}

	s.metrics.RecordRegister(ctx, "opened")
	s.publish(ctx, events.New(events.TypeRegisterOpened, clinicID.String(), register.OpenedAt, map[string]any{
		"cash_register_id": register.ID.String(),
		"operator_id":      operatorID.String(),
		"opening_balance":  register.OpeningBalance.StringFixed(2),
	}))
	s.log.Info("cash register opened",
		zap.String("cash_register_id", register.ID.String()),
		zap.String("clinic_id", clinicID.String()),
		zap.String("operator_id", operatorID.String()),
	)
	return register, nil
}

func (s *Service) Close(ctx context.Context, registerID snowflake.ID) (domain.CashRegister, error) {
	clinicID, operatorID, ok := opcontext.Scope(ctx)
	if !ok {
		return domain.CashRegister{}, opcontext.ErrMissingScope
	}
	if registerID == 0 {
		return domain.CashRegister{}, domain.ErrRegisterNotFound
	}
	return s.close(ctx, clinicID, operatorID, registerID)
}

// CloseActive closes the register the calling operator currently has open.
func (s *Service) CloseActive(ctx context.Context) (domain.CashRegister, error) {
	clinicID, operatorID, ok := opcontext.Scope(ctx)
	if !ok {
		return domain.CashRegister{}, opcontext.ErrMissingScope
	}

	active, err := s.GetActive(ctx, clinicID, operatorID)
	if err != nil {
		return domain.CashRegister{}, err
	}
	if active == nil {
		return domain.CashRegister{}, domain.ErrRegisterNotFound
	}
	return s.close(ctx, clinicID, operatorID, active.ID)
}

func (s *Service) close(ctx context.Context, clinicID, operatorID, registerID snowflake.ID) (domain.CashRegister, error) {
	var closed domain.CashRegister

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// receipts in flight hold a share lock on the row, so this waits for them
		register, err := s.repo.LockOpen(ctx, tx, clinicID, registerID, clause.LockingStrengthUpdate)
		if err != nil {
			return apperr.Persistence("load cash register", err)
		}
		if register == nil {
			return domain.ErrRegisterNotFound
		}

		totals, err := s.ledger.RegisterTotals(ctx, tx, clinicID, registerID)
		if err != nil {
			return err
		}
		closingBalance := register.OpeningBalance.Add(totals.NetReceived)
		closedAt := s.clock.Now().UTC()

		rows, err := s.repo.MarkClosed(ctx, tx, clinicID, registerID, closingBalance, closedAt)
		if err != nil {
			return apperr.Persistence("close cash register", err)
		}
		if rows == 0 {
			return domain.ErrRegisterNotFound
		}

		closed = *register
		closed.Status = domain.StatusClosed
		closed.ClosingBalance = &closingBalance
		closed.ClosedAt = &closedAt

		_, err = s.audit.Record(ctx, tx, auditdomain.RecordRequest{
			ClinicID:   clinicID,
			Table:      closed.TableName(),
			RecordID:   closed.ID,
			ActionType: auditdomain.ActionRegisterClosed,
			OldData: map[string]any{
				"status": string(domain.StatusOpen),
			},
			NewData: map[string]any{
				"status":          string(domain.StatusClosed),
				"closing_balance": closingBalance.StringFixed(2),
				"receipt_count":   totals.ReceiptCount,
			},
			ActorID: operatorID,
		})
		return err
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindPersistence {
			s.log.Error("failed to close cash register", zap.String("cash_register_id", registerID.String()), zap.Error(err))
		}
		return domain.CashRegister{}, apperr.EnsureClassified("close cash register", err)
	}

	s.metrics.RecordRegister(ctx, "closed")
	s.publish(ctx, events.New(events.TypeRegisterClosed, clinicID.String(), *closed.ClosedAt, map[string]any{
		"cash_register_id": closed.ID.String(),
		"operator_id":      operatorID.String(),
		"closing_balance":  closed.ClosingBalance.StringFixed(2),
	}))
	s.log.Info("cash register closed",
		zap.String("cash_register_id", closed.ID.String()),
		zap.String("operator_id", operatorID.String()),
		zap.String("closing_balance", closed.ClosingBalance.StringFixed(2)),
	)
	return closed, nil
}

func (s *Service) GetActive(ctx context.Context, clinicID, operatorID snowflake.ID) (*domain.CashRegister, error) {
	if clinicID == 0 || operatorID == 0 {
		return nil, opcontext.ErrMissingScope
	}

	register, err := s.repo.FindOpen(ctx, s.db, clinicID, operatorID)
	if err != nil {
		return nil, apperr.Persistence("load open cash register", err)
	}
	return register, nil
}

func (s *Service) HoldOpen(ctx context.Context, tx *gorm.DB, clinicID, operatorID, registerID snowflake.ID) (*domain.CashRegister, error) {
	if tx == nil {
		tx = s.db
	}

	register, err := s.repo.LockOpen(ctx, tx, clinicID, registerID, clause.LockingStrengthShare)
	if err != nil {
		return nil, apperr.Persistence("lock cash register", err)
	}
	if register == nil || register.UserID != operatorID {
		return nil, nil
	}
	return register, nil
}

func (s *Service) Summary(ctx context.Context, registerID snowflake.ID) (domain.Summary, error) {
	clinicID, ok := opcontext.ClinicIDFromContext(ctx)
	if !ok {
		return domain.Summary{}, opcontext.ErrMissingScope
	}

	register, err := s.repo.FindByID(ctx, s.db, clinicID, registerID)
	if err != nil {
		return domain.Summary{}, apperr.Persistence("load cash register", err)
	}
	if register == nil {
		return domain.Summary{}, domain.ErrRegisterNotFound
	}

	totals, err := s.ledger.RegisterTotals(ctx, s.db, clinicID, registerID)
	if err != nil {
		return domain.Summary{}, err
	}

	expected := register.OpeningBalance.Add(totals.NetReceived)
	if register.ClosingBalance != nil {
		expected = *register.ClosingBalance
	}
	return domain.Summary{
		Register:        *register,
		ReceiptCount:    totals.ReceiptCount,
		NetReceived:     totals.NetReceived,
		ExpectedBalance: expected,
	}, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn("failed to publish event", zap.String("event_type", event.Type), zap.Error(err))
	}
}
