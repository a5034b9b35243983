package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/clinicledger/internal/apperr"
	"github.com/smallbiznis/clinicledger/internal/clock"
	ledgerdomain "github.com/smallbiznis/clinicledger/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) RecordReceipt(ctx context.Context, tx *gorm.DB, req ledgerdomain.RecordReceiptRequest) (ledgerdomain.Receipt, error) {
	if req.RegisterID == 0 || req.ClinicID == 0 {
		return ledgerdomain.Receipt{}, ledgerdomain.ErrInvalidRegister
	}
	if req.OperatorID == 0 {
		return ledgerdomain.Receipt{}, ledgerdomain.ErrInvalidOperator
	}
	if req.Installment.ID == 0 {
		return ledgerdomain.Receipt{}, ledgerdomain.ErrInvalidInstallment
	}
	payment := req.Payment
	if !payment.NetAmount.IsPositive() {
		return ledgerdomain.Receipt{}, ledgerdomain.ErrInvalidNetAmount
	}
	if tx == nil {
		tx = s.db
	}

	now := s.clock.Now().UTC()
	event := ledgerdomain.FinancialEvent{
		ID:              s.genID.Generate(),
		ClinicID:        req.ClinicID,
		CashRegisterID:  req.RegisterID,
		OperatorID:      req.OperatorID,
		InstallmentID:   req.Installment.ID,
		EventType:       ledgerdomain.EventTypeReceipt,
		OriginalAmount:  payment.GrossAmount,
		DiscountApplied: payment.Discount,
		InterestApplied: payment.Interest,
		NetReceived:     payment.NetAmount,
		PaymentMethodID: payment.Method.ID,
		AuthCode:        payment.AuthCode,
		PartialPayment:  payment.Partial,
		Justification:   payment.Justification,
		OccurredAt:      now,
	}

	if err := tx.WithContext(ctx).Exec(
		`INSERT INTO financial_events (
			id, clinic_id, cash_register_id, operator_id, installment_id, event_type,
			original_amount, discount_applied, interest_applied, net_received,
			payment_method_id, auth_code, partial_payment, justification, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.ClinicID,
		event.CashRegisterID,
		event.OperatorID,
		event.InstallmentID,
		string(event.EventType),
		event.OriginalAmount,
		event.DiscountApplied,
		event.InterestApplied,
		event.NetReceived,
		event.PaymentMethodID,
		event.AuthCode,
		event.PartialPayment,
		event.Justification,
		event.OccurredAt,
	).Error; err != nil {
		return ledgerdomain.Receipt{}, apperr.Persistence("insert financial event", err)
	}

	fee := FeeAmount(payment.NetAmount, payment.Method.FeePercent)
	txn := ledgerdomain.Transaction{
		ID:               s.genID.Generate(),
		ClinicID:         req.ClinicID,
		CashRegisterID:   req.RegisterID,
		FinancialEventID: event.ID,
		Description:      Description(req.Installment, req.PatientName),
		Amount:           payment.NetAmount,
		Type:             ledgerdomain.TransactionTypeIncome,
		Category:         ledgerdomain.CategoryInstallmentReceipt,
		Date:             clock.Today(s.clock),
		PaymentMethod:    payment.Method.Name,
		PaymentStatus:    ledgerdomain.TransactionStatusPaid,
		NetAmount:        payment.NetAmount.Sub(fee),
		FeeAmount:        fee,
		CreatedAt:        now,
	}

	if err := tx.WithContext(ctx).Exec(
		`INSERT INTO transactions (
			id, clinic_id, cash_register_id, financial_event_id, description, amount,
			type, category, date, payment_method, payment_status, net_amount, fee_amount, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID,
		txn.ClinicID,
		txn.CashRegisterID,
		txn.FinancialEventID,
		txn.Description,
		txn.Amount,
		txn.Type,
		txn.Category,
		txn.Date,
		txn.PaymentMethod,
		txn.PaymentStatus,
		txn.NetAmount,
		txn.FeeAmount,
		txn.CreatedAt,
	).Error; err != nil {
		return ledgerdomain.Receipt{}, apperr.Persistence("insert transaction", err)
	}

	result := tx.WithContext(ctx).Exec(
		`UPDATE financial_events SET transaction_id = ? WHERE id = ? AND transaction_id IS NULL`,
		txn.ID,
		event.ID,
	)
	if result.Error != nil {
		return ledgerdomain.Receipt{}, apperr.Persistence("link financial event", result.Error)
	}
	if result.RowsAffected != 1 {
		return ledgerdomain.Receipt{}, ledgerdomain.ErrEventAlreadyLinked
	}
	txnID := txn.ID
	event.TransactionID = &txnID

	s.log.Debug("receipt appended",
		zap.String("financial_event_id", event.ID.String()),
		zap.String("transaction_id", txn.ID.String()),
		zap.String("cash_register_id", req.RegisterID.String()),
		zap.String("net_received", payment.NetAmount.StringFixed(2)),
	)

	return ledgerdomain.Receipt{Event: event, Transaction: txn}, nil
}

func (s *Service) ListEvents(ctx context.Context, db *gorm.DB, clinicID, registerID snowflake.ID) ([]ledgerdomain.FinancialEvent, error) {
	if db == nil {
		db = s.db
	}

	var events []ledgerdomain.FinancialEvent
	err := db.WithContext(ctx).Raw(
		`SELECT id, clinic_id, cash_register_id, operator_id, installment_id, event_type,
			original_amount, discount_applied, interest_applied, net_received,
			payment_method_id, auth_code, partial_payment, justification, occurred_at, transaction_id
		 FROM financial_events
		 WHERE clinic_id = ? AND cash_register_id = ?
		 ORDER BY occurred_at ASC, id ASC`,
		clinicID,
		registerID,
	).Scan(&events).Error
	if err != nil {
		return nil, apperr.Persistence("list financial events", err)
	}
	return events, nil
}

func (s *Service) RegisterTotals(ctx context.Context, db *gorm.DB, clinicID, registerID snowflake.ID) (ledgerdomain.RegisterTotals, error) {
	events, err := s.ListEvents(ctx, db, clinicID, registerID)
	if err != nil {
		return ledgerdomain.RegisterTotals{}, err
	}

	totals := ledgerdomain.RegisterTotals{NetReceived: decimal.Zero}
	for _, event := range events {
		if event.EventType != ledgerdomain.EventTypeReceipt {
			continue
		}
		totals.ReceiptCount++
		totals.NetReceived = totals.NetReceived.Add(event.NetReceived)
	}
	return totals, nil
}

// FeeAmount is the processor fee on net, rounded to cents.
func FeeAmount(net, feePercent decimal.Decimal) decimal.Decimal {
	if !feePercent.IsPositive() {
		return decimal.Zero
	}
	return net.Mul(feePercent).Div(hundred).Round(2)
}

// Description labels the transaction as "Recebimento parcela N/T", followed by
// the patient name or, failing that, the installment notes.
func Description(installment ledgerdomain.InstallmentRef, patientName string) string {
	label := fmt.Sprintf("Recebimento parcela %d/%d", installment.Number, installment.Total)

	subject := strings.TrimSpace(patientName)
	if subject == "" && installment.Notes != nil {
		subject = strings.TrimSpace(*installment.Notes)
	}
	if subject == "" {
		return label
	}
	return label + " - " + subject
}
