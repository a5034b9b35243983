package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clinicledger/internal/apperr"
	auditdomain "github.com/smallbiznis/clinicledger/internal/audit/domain"
	"github.com/smallbiznis/clinicledger/internal/audit/masking"
	cashregisterdomain "github.com/smallbiznis/clinicledger/internal/cashregister/domain"
	"github.com/smallbiznis/clinicledger/internal/clock"
	"github.com/smallbiznis/clinicledger/internal/config"
	"github.com/smallbiznis/clinicledger/internal/events"
	installmentdomain "github.com/smallbiznis/clinicledger/internal/installment/domain"
	ledgerdomain "github.com/smallbiznis/clinicledger/internal/ledger/domain"
	"github.com/smallbiznis/clinicledger/internal/lock"
	"github.com/smallbiznis/clinicledger/internal/observability/metrics"
	"github.com/smallbiznis/clinicledger/internal/observability/tracing"
	"github.com/smallbiznis/clinicledger/internal/opcontext"
	patientdomain "github.com/smallbiznis/clinicledger/internal/patient/domain"
	paymentdomain "github.com/smallbiznis/clinicledger/internal/payment/domain"
	"github.com/smallbiznis/clinicledger/internal/receivable/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("clinicledger/receivable")

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	Clock         clock.Clock
	CashRegisters cashregisterdomain.Service
	Installments  installmentdomain.Service
	Methods       paymentdomain.Catalogue
	Patients      patientdomain.Service
	Ledger        ledgerdomain.Service
	Audit         auditdomain.Service
	Locker        *lock.Locker                    `optional:"true"`
	Config        *config.ReceivablesConfigHolder `optional:"true"`
	Metrics       *metrics.Metrics                `optional:"true"`
	Events        events.Publisher                `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	clock         clock.Clock
	cashRegisters cashregisterdomain.Service
	installments  installmentdomain.Service
	methods       paymentdomain.Catalogue
	patients      patientdomain.Service
	ledger        ledgerdomain.Service
	audit         auditdomain.Service
	locker        *lock.Locker
	config        *config.ReceivablesConfigHolder
	metrics       *metrics.Metrics
	events        events.Publisher
}

func NewService(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("receivable.service"),
		clock:         p.Clock,
		cashRegisters: p.CashRegisters,
		installments:  p.Installments,
		methods:       p.Methods,
		patients:      p.Patients,
		ledger:        p.Ledger,
		audit:         p.Audit,
		locker:        p.Locker,
		config:        p.Config,
		metrics:       p.Metrics,
		events:        p.Events,
	}
}

func (s *Service) SubmitReceipt(ctx context.Context, req domain.SubmitReceiptRequest) (result domain.ReceiptResult, err error) {
	ctx, span := tracer.Start(ctx, "receivable.SubmitReceipt")
	defer func() {
		if err != nil {
			span.RecordError(tracing.SafeError(err))
			span.SetStatus(codes.Error, string(apperr.KindOf(err)))
		}
		span.End()
	}()

	clinicID, operatorID, ok := opcontext.Scope(ctx)
	if !ok {
		return domain.ReceiptResult{}, opcontext.ErrMissingScope
	}
	span.SetAttributes(attribute.String("installment_id", req.InstallmentID.String()))

	log := s.log.With(
		zap.String("clinic_id", clinicID.String()),
		zap.String("operator_id", operatorID.String()),
		zap.String("installment_id", req.InstallmentID.String()),
	)
	cfg := s.config.Get()

	register, err := s.cashRegisters.GetActive(ctx, clinicID, operatorID)
	if err != nil {
		return domain.ReceiptResult{}, s.fail(ctx, log, err)
	}

	installment, err := s.installments.Get(ctx, nil, clinicID, req.InstallmentID)
	if err != nil {
		return domain.ReceiptResult{}, s.fail(ctx, log, err)
	}

	var method *paymentdomain.Method
	if req.MethodID != 0 {
		found, err := s.methods.Get(ctx, clinicID, req.MethodID)
		if err != nil {
			return domain.ReceiptResult{}, s.fail(ctx, log, err)
		}
		method = &found
	}

	validated, err := paymentdomain.Validate(paymentdomain.ReceiptInput{
		RegisterOpen:       register != nil,
		Method:             method,
		GrossAmount:        req.GrossAmount,
		Discount:           req.Discount,
		Interest:           req.Interest,
		AuthCode:           req.AuthCode,
		Justification:      req.Justification,
		RemainingBalance:   installment.Remaining(),
		ElectronicKeywords: cfg.ElectronicKeywords,
	})
	if err != nil {
		s.reject(ctx, log, clinicID, installment, err)
		return domain.ReceiptResult{}, err
	}

	patientName, err := s.patientName(ctx, clinicID, installment.PatientID)
	if err != nil {
		return domain.ReceiptResult{}, s.fail(ctx, log, err)
	}

	if s.locker.Enabled() {
		key := lock.InstallmentKey(clinicID, installment.ID)
		token, acquired, err := s.locker.TryLock(ctx, key, cfg.LockTTL)
		if err != nil {
			return domain.ReceiptResult{}, s.fail(ctx, log, apperr.Persistence("acquire settlement lock", err))
		}
		if !acquired {
			return domain.ReceiptResult{}, s.fail(ctx, log, domain.ErrSettlementLocked)
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
				log.Warn("failed to release settlement lock", zap.Error(err))
			}
		}()
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// the share lock keeps a concurrent close from stamping its balance
		// before this receipt commits
		held, err := s.cashRegisters.HoldOpen(ctx, tx, clinicID, operatorID, register.ID)
		if err != nil {
			return err
		}
		if held == nil {
			return &paymentdomain.ValidationFailure{Violations: []paymentdomain.Violation{{
				Field:   "cash_register",
				Code:    paymentdomain.ErrNoOpenRegister.Code,
				Message: paymentdomain.ErrNoOpenRegister.Message,
			}}}
		}

		fresh, err := s.installments.Get(ctx, tx, clinicID, installment.ID)
		if err != nil {
			return err
		}
		if fresh.Version != installment.Version {
			return installmentdomain.ErrConcurrentUpdate
		}
		if validated.NetAmount.GreaterThan(fresh.Remaining()) {
			return &paymentdomain.ValidationFailure{Violations: []paymentdomain.Violation{{
				Field:   "net_amount",
				Code:    paymentdomain.ErrOverpayment.Code,
				Message: paymentdomain.ErrOverpayment.Message,
			}}}
		}

		receipt, err := s.ledger.RecordReceipt(ctx, tx, ledgerdomain.RecordReceiptRequest{
			ClinicID:   clinicID,
			RegisterID: register.ID,
			OperatorID: operatorID,
			Installment: ledgerdomain.InstallmentRef{
				ID:     fresh.ID,
				Number: fresh.Number,
				Total:  fresh.Total,
				Notes:  fresh.Notes,
			},
			PatientName: patientName,
			Payment:     validated,
		})
		if err != nil {
			return err
		}

		settlement, err := s.installments.Settle(ctx, tx, installmentdomain.SettleRequest{
			Installment: fresh,
			NetAmount:   validated.NetAmount,
			MethodLabel: validated.Method.Name,
		})
		if err != nil {
			return err
		}

		newData := map[string]any{
			"status":             string(settlement.After.Status),
			"amount_paid":        settlement.After.AmountPaid.StringFixed(2),
			"discount":           validated.Discount.StringFixed(2),
			"interest":           validated.Interest.StringFixed(2),
			"auth_code":          stringOrNil(validated.AuthCode),
			"justification":      stringOrNil(validated.Justification),
			"net_received":       validated.NetAmount.StringFixed(2),
			"financial_event_id": receipt.Event.ID.String(),
		}
		if settlement.Remainder != nil {
			newData["remainder_installment_id"] = settlement.Remainder.ID.String()
		}

		if _, err := s.audit.Record(ctx, tx, auditdomain.RecordRequest{
			ClinicID:   clinicID,
			Table:      fresh.TableName(),
			RecordID:   fresh.ID,
			ActionType: auditdomain.ActionPaymentReceived,
			OldData: map[string]any{
				"status":      string(settlement.Before.Status),
				"amount_paid": settlement.Before.AmountPaid.StringFixed(2),
			},
			NewData: newData,
			Note:    fmt.Sprintf("Recebimento via %s por operador %s", validated.Method.Name, operatorID.String()),
			ActorID: operatorID,
		}); err != nil {
			return err
		}

		result = domain.ReceiptResult{
			Event:       receipt.Event,
			Transaction: receipt.Transaction,
			Installment: settlement.After,
			Remainder:   settlement.Remainder,
		}
		return nil
	})
	if err != nil {
		var failure *paymentdomain.ValidationFailure
		if errors.As(err, &failure) {
			s.reject(ctx, log, clinicID, installment, err)
			return domain.ReceiptResult{}, err
		}
		return domain.ReceiptResult{}, s.fail(ctx, log, apperr.EnsureClassified("commit receipt", err))
	}

	s.metrics.RecordReceipt(ctx, metrics.OutcomeRecorded)
	s.metrics.RecordLedgerEvent(ctx, string(result.Event.EventType))

	payload := map[string]any{
		"financial_event_id": result.Event.ID.String(),
		"transaction_id":     result.Transaction.ID.String(),
		"cash_register_id":   register.ID.String(),
		"installment_id":     result.Installment.ID.String(),
		"installment_status": string(result.Installment.Status),
		"net_received":       result.Event.NetReceived.StringFixed(2),
		"payment_method":     validated.Method.Name,
		"partial_payment":    result.Event.PartialPayment,
	}
	if result.Remainder != nil {
		payload["remainder_installment_id"] = result.Remainder.ID.String()
	}
	s.publish(ctx, events.New(events.TypeReceiptRecorded, clinicID.String(), result.Event.OccurredAt, payload))

	log.Info("receipt recorded",
		zap.String("financial_event_id", result.Event.ID.String()),
		zap.String("cash_register_id", register.ID.String()),
		zap.String("payment_method", validated.Method.Name),
		zap.String("auth_code", masking.MaskSecret(stringValue(validated.AuthCode))),
		zap.String("net_received", validated.NetAmount.StringFixed(2)),
		zap.String("installment_status", string(result.Installment.Status)),
		zap.Bool("remainder_created", result.Remainder != nil),
	)
	return result, nil
}

// patientName labels the transaction. A missing patient row leaves the label
// to the installment notes.
func (s *Service) patientName(ctx context.Context, clinicID, patientID snowflake.ID) (string, error) {
	patient, err := s.patients.Get(ctx, clinicID, patientID)
	if errors.Is(err, patientdomain.ErrPatientNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return patient.Name, nil
}

// reject records a receipt turned down by validation. Nothing was written.
func (s *Service) reject(ctx context.Context, log *zap.Logger, clinicID snowflake.ID, installment installmentdomain.Installment, err error) {
	var codesList []string
	var failure *paymentdomain.ValidationFailure
	if errors.As(err, &failure) {
		for _, v := range failure.Violations {
			codesList = append(codesList, v.Code)
		}
	}

	s.metrics.RecordReceipt(ctx, metrics.OutcomeRejected)
	s.publish(ctx, events.New(events.TypeReceiptRejected, clinicID.String(), s.clock.Now(), map[string]any{
		"installment_id": installment.ID.String(),
		"violations":     codesList,
	}))
	log.Info("receipt rejected", zap.Strings("violations", codesList))
}

// fail counts and logs a receipt that could not be completed.
func (s *Service) fail(ctx context.Context, log *zap.Logger, err error) error {
	switch apperr.KindOf(err) {
	case apperr.KindConflict:
		s.metrics.RecordReceipt(ctx, metrics.OutcomeConflict)
		log.Warn("receipt conflicted", zap.String("code", apperr.CodeOf(err)))
	case apperr.KindNotFound, apperr.KindValidation:
		s.metrics.RecordReceipt(ctx, metrics.OutcomeRejected)
		log.Info("receipt refused", zap.String("code", apperr.CodeOf(err)))
	default:
		s.metrics.RecordReceipt(ctx, metrics.OutcomeFailed)
		log.Error("receipt failed", zap.Bool("retryable", apperr.IsRetryable(err)), zap.Error(err))
	}
	return err
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn("failed to publish event", zap.String("event_type", event.Type), zap.Error(err))
	}
}

func stringOrNil(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
