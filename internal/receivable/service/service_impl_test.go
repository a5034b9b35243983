package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/clinicledger/internal/apperr"
	auditdomain "github.com/smallbiznis/clinicledger/internal/audit/domain"
	auditrepository "github.com/smallbiznis/clinicledger/internal/audit/repository"
	auditservice "github.com/smallbiznis/clinicledger/internal/audit/service"
	cashregisterdomain "github.com/smallbiznis/clinicledger/internal/cashregister/domain"
	cashregisterrepository "github.com/smallbiznis/clinicledger/internal/cashregister/repository"
	cashregisterservice "github.com/smallbiznis/clinicledger/internal/cashregister/service"
	"github.com/smallbiznis/clinicledger/internal/clock"
	"github.com/smallbiznis/clinicledger/internal/config"
	"github.com/smallbiznis/clinicledger/internal/events"
	installmentdomain "github.com/smallbiznis/clinicledger/internal/installment/domain"
	installmentrepository "github.com/smallbiznis/clinicledger/internal/installment/repository"
	installmentservice "github.com/smallbiznis/clinicledger/internal/installment/service"
	ledgerdomain "github.com/smallbiznis/clinicledger/internal/ledger/domain"
	ledgerservice "github.com/smallbiznis/clinicledger/internal/ledger/service"
	"github.com/smallbiznis/clinicledger/internal/opcontext"
	patientrepository "github.com/smallbiznis/clinicledger/internal/patient/repository"
	patientservice "github.com/smallbiznis/clinicledger/internal/patient/service"
	paymentdomain "github.com/smallbiznis/clinicledger/internal/payment/domain"
	paymentrepository "github.com/smallbiznis/clinicledger/internal/payment/repository"
	paymentservice "github.com/smallbiznis/clinicledger/internal/payment/service"
	"github.com/smallbiznis/clinicledger/internal/receivable/domain"
	"github.com/smallbiznis/clinicledger/internal/receivable/service"
	"github.com/smallbiznis/clinicledger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

const (
	clinicID      snowflake.ID = 10
	operatorID    snowflake.ID = 7
	installmentID snowflake.ID = 500
	methodPIX     snowflake.ID = 1
	methodCash    snowflake.ID = 2
	methodCheque  snowflake.ID = 3
)

type fixture struct {
	svc           domain.Service
	db            *gorm.DB
	cashRegisters cashregisterdomain.Service
	installments  installmentdomain.Service
	events        *events.Recorder
}

type wiring struct {
	wrapInstallments func(installmentdomain.Service, *gorm.DB) installmentdomain.Service
}

func newFixture(t *testing.T, w wiring) fixture {
	t.Helper()

	db := testutil.NewDB(t)
	log := zaptest.NewLogger(t)
	node := testutil.NewNode(t)
	clk := clock.NewFakeClock(testNow)
	cfg := config.NewStaticReceivablesConfigHolder(config.DefaultReceivablesConfig())
	recorder := &events.Recorder{}

	ledger := ledgerservice.NewService(ledgerservice.Params{DB: db, Log: log, GenID: node, Clock: clk})
	audit := auditservice.NewService(auditservice.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: auditrepository.Provide()})
	cashRegisters := cashregisterservice.NewService(cashregisterservice.Params{
		DB:     db,
		Log:    log,
		GenID:  node,
		Clock:  clk,
		Repo:   cashregisterrepository.Provide(),
		Ledger: ledger,
		Audit:  audit,
	})
	var installments installmentdomain.Service = installmentservice.NewService(installmentservice.Params{
		DB:     db,
		Log:    log,
		GenID:  node,
		Clock:  clk,
		Repo:   installmentrepository.Provide(),
		Config: cfg,
	})
	if w.wrapInstallments != nil {
		installments = w.wrapInstallments(installments, db)
	}

	svc := service.NewService(service.Params{
		DB:            db,
		Log:           log,
		Clock:         clk,
		CashRegisters: cashRegisters,
		Installments:  installments,
		Methods:       paymentservice.NewService(paymentservice.Params{DB: db, Log: log, Repo: paymentrepository.Provide()}),
		Patients:      patientservice.NewService(patientservice.Params{DB: db, Log: log, Repo: patientrepository.Provide()}),
		Ledger:        ledger,
		Audit:         audit,
		Config:        cfg,
		Events:        recorder,
	})

	f := fixture{svc: svc, db: db, cashRegisters: cashRegisters, installments: installments, events: recorder}
	f.seed(t)
	return f
}

func (f fixture) seed(t *testing.T) {
	t.Helper()

	stmts := []string{
		`INSERT INTO patients (id, clinic_id, name, bad_debtor, balance_due) VALUES (77, 10, 'Maria Souza', FALSE, 300)`,
		`INSERT INTO payment_methods (id, clinic_id, name, category, fee_percent, active) VALUES (1, 10, 'PIX', '', 0.99, TRUE)`,
		`INSERT INTO payment_methods (id, clinic_id, name, category, fee_percent, active) VALUES (2, 10, 'Dinheiro', 'CASH', 0, TRUE)`,
		`INSERT INTO payment_methods (id, clinic_id, name, category, fee_percent, active) VALUES (3, 10, 'Cheque', 'OTHER', 0, FALSE)`,
	}
	for _, stmt := range stmts {
		require.NoError(t, f.db.Exec(stmt).Error)
	}

	item := installmentdomain.Installment{
		ID:         installmentID,
		ClinicID:   clinicID,
		PatientID:  77,
		Number:     1,
		Total:      3,
		Amount:     decimal.RequireFromString("300.00"),
		AmountPaid: decimal.Zero,
		DueDate:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:     installmentdomain.StatusPending,
		Version:    1,
		CreatedAt:  testNow,
		UpdatedAt:  testNow,
	}
	require.NoError(t, installmentrepository.Provide().Insert(context.Background(), f.db, &item))
}

func (f fixture) openRegister(t *testing.T) cashregisterdomain.CashRegister {
	t.Helper()

	register, err := f.cashRegisters.Open(operatorCtx(), cashregisterdomain.OpenRequest{OpeningBalance: decimal.RequireFromString("100.00")})
	require.NoError(t, err)
	return register
}

func operatorCtx() context.Context {
	ctx := opcontext.WithClinicID(context.Background(), clinicID)
	return opcontext.WithOperatorID(ctx, operatorID)
}

func pixReceipt(gross string) domain.SubmitReceiptRequest {
	return domain.SubmitReceiptRequest{
		InstallmentID: installmentID,
		GrossAmount:   decimal.RequireFromString(gross),
		Discount:      decimal.Zero,
		Interest:      decimal.Zero,
		MethodID:      methodPIX,
		AuthCode:      "ABC123",
	}
}

func assertNothingWritten(t *testing.T, db *gorm.DB) {
	t.Helper()

	testutil.AssertCount(t, db, "financial_events", 0)
	testutil.AssertCount(t, db, "transactions", 0)
	testutil.AssertCount(t, db, "installments", 1)

	var receipts int64
	require.NoError(t, db.Table("financial_audit_trail").Where("action_type = ?", auditdomain.ActionPaymentReceived).Count(&receipts).Error)
	assert.Zero(t, receipts)
}

func TestSubmitPartialReceiptSplitsRemainder(t *testing.T) {
	f := newFixture(t, wiring{})
	register := f.openRegister(t)

	result, err := f.svc.SubmitReceipt(operatorCtx(), pixReceipt("150.00"))
	require.NoError(t, err)

	assert.Equal(t, installmentdomain.StatusPartial, result.Installment.Status)
	assert.Equal(t, "150.00", result.Installment.AmountPaid.StringFixed(2))
	require.NotNil(t, result.Remainder)
	assert.Equal(t, "150.00", result.Remainder.Amount.StringFixed(2))
	assert.Equal(t, installmentdomain.StatusPending, result.Remainder.Status)
	assert.True(t, result.Remainder.DueDate.Equal(time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)))

	assert.Equal(t, register.ID, result.Event.CashRegisterID)
	assert.Equal(t, "150.00", result.Event.NetReceived.StringFixed(2))
	assert.True(t, result.Event.PartialPayment)
	require.NotNil(t, result.Event.TransactionID)
	assert.Equal(t, result.Transaction.ID, *result.Event.TransactionID)
	assert.Equal(t, "Recebimento parcela 1/3 - Maria Souza", result.Transaction.Description)
	assert.Equal(t, "1.49", result.Transaction.FeeAmount.StringFixed(2))

	testutil.AssertCount(t, f.db, "financial_events", 1)
	testutil.AssertCount(t, f.db, "transactions", 1)
	testutil.AssertCount(t, f.db, "installments", 2)

	var entry auditdomain.Entry
	require.NoError(t, f.db.First(&entry, "action_type = ?", auditdomain.ActionPaymentReceived).Error)
	assert.Equal(t, "installments", entry.Table)
	assert.Equal(t, installmentID, entry.RecordID)
	require.NotNil(t, entry.Notes)
	assert.Equal(t, "Recebimento via PIX por operador 7", *entry.Notes)
	assert.Equal(t, "PENDING", entry.OldData["status"])
	assert.Equal(t, "0.00", entry.OldData["amount_paid"])
	assert.Equal(t, "PARTIAL", entry.NewData["status"])
	assert.Equal(t, "150.00", entry.NewData["amount_paid"])
	assert.Equal(t, "ABC123", entry.NewData["auth_code"])
	assert.Equal(t, result.Remainder.ID.String(), entry.NewData["remainder_installment_id"])

	assert.Equal(t, []string{events.TypeReceiptRecorded}, f.events.Types())
}

func TestSubmitReceiptCoveringBalanceMarksPaid(t *testing.T) {
	f := newFixture(t, wiring{})
	f.openRegister(t)

	first, err := f.svc.SubmitReceipt(operatorCtx(), pixReceipt("150.00"))
	require.NoError(t, err)

	require.NotNil(t, first.Remainder)

	onRemainder := pixReceipt("150.00")
	onRemainder.InstallmentID = first.Remainder.ID
	second, err := f.svc.SubmitReceipt(operatorCtx(), onRemainder)
	require.NoError(t, err)
	assert.Equal(t, first.Remainder.ID, second.Installment.ID)
	assert.Equal(t, installmentdomain.StatusPaid, second.Installment.Status)
	assert.Equal(t, "150.00", second.Installment.AmountPaid.StringFixed(2))
	require.NotNil(t, second.Installment.PaymentMethod)
	assert.Equal(t, "PIX", *second.Installment.PaymentMethod)
	assert.Nil(t, second.Remainder)
	assert.False(t, second.Event.PartialPayment)
	testutil.AssertCount(t, f.db, "installments", 2)

	// the first event keeps its original payment fields
	var stored ledgerdomain.FinancialEvent
	require.NoError(t, f.db.First(&stored, "id = ?", first.Event.ID).Error)
	assert.True(t, stored.NetReceived.Equal(first.Event.NetReceived))
	assert.True(t, stored.OriginalAmount.Equal(first.Event.OriginalAmount))
	assert.True(t, stored.PartialPayment)
	require.NotNil(t, stored.TransactionID)
	assert.Equal(t, first.Transaction.ID, *stored.TransactionID)

	var firstAudit auditdomain.Entry
	require.NoError(t, f.db.Where("action_type = ?", auditdomain.ActionPaymentReceived).Order("id asc").First(&firstAudit).Error)
	assert.Equal(t, "PARTIAL", firstAudit.NewData["status"])
	assert.Equal(t, "150.00", firstAudit.NewData["amount_paid"])
}

func TestSubmitReceiptOnSplitParentIsRefused(t *testing.T) {
	f := newFixture(t, wiring{})
	f.openRegister(t)

	_, err := f.svc.SubmitReceipt(operatorCtx(), pixReceipt("150.00"))
	require.NoError(t, err)

	_, err = f.svc.SubmitReceipt(operatorCtx(), pixReceipt("150.00"))
	assert.ErrorIs(t, err, installmentdomain.ErrBalanceCarriedForward)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	testutil.AssertCount(t, f.db, "financial_events", 1)
	testutil.AssertCount(t, f.db, "transactions", 1)
	testutil.AssertCount(t, f.db, "installments", 2)

	parent, err := f.installments.Get(context.Background(), nil, clinicID, installmentID)
	require.NoError(t, err)
	assert.Equal(t, "150.00", parent.AmountPaid.StringFixed(2))
}

func TestSubmitReceiptNetAmount(t *testing.T) {
	f := newFixture(t, wiring{})
	f.openRegister(t)

	req := domain.SubmitReceiptRequest{
		InstallmentID: installmentID,
		GrossAmount:   decimal.RequireFromString("100.00"),
		Discount:      decimal.RequireFromString("10.00"),
		Interest:      decimal.RequireFromString("5.00"),
		MethodID:      methodCash,
		Justification: "  acordo com paciente ",
	}
	result, err := f.svc.SubmitReceipt(operatorCtx(), req)
	require.NoError(t, err)

	assert.Equal(t, "95.00", result.Event.NetReceived.StringFixed(2))
	assert.Equal(t, "95.00", result.Installment.AmountPaid.StringFixed(2))
	require.NotNil(t, result.Event.Justification)
	assert.Equal(t, "acordo com paciente", *result.Event.Justification)
	assert.Nil(t, result.Event.AuthCode)
	require.NotNil(t, result.Remainder)
	assert.Equal(t, "205.00", result.Remainder.Amount.StringFixed(2))
}

func TestSubmitReceiptDiscountWithoutJustification(t *testing.T) {
	f := newFixture(t, wiring{})
	f.openRegister(t)

	req := pixReceipt("150.00")
	req.Discount = decimal.RequireFromString("20.00")

	_, err := f.svc.SubmitReceipt(operatorCtx(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, paymentdomain.ErrMissingJustification)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	assertNothingWritten(t, f.db)
	assert.Equal(t, []string{events.TypeReceiptRejected}, f.events.Types())
}

func TestSubmitReceiptWithoutRegisterReportsEveryViolation(t *testing.T) {
	f := newFixture(t, wiring{})

	req := pixReceipt("150.00")
	req.MethodID = 0

	_, err := f.svc.SubmitReceipt(operatorCtx(), req)
	var failure *paymentdomain.ValidationFailure
	require.ErrorAs(t, err, &failure)
	assert.True(t, failure.Has(paymentdomain.ErrNoOpenRegister.Code))
	assert.True(t, failure.Has(paymentdomain.ErrMissingMethod.Code))
	assertNothingWritten(t, f.db)
}

func TestSubmitReceiptElectronicNeedsAuthCode(t *testing.T) {
	f := newFixture(t, wiring{})
	f.openRegister(t)

	req := pixReceipt("150.00")
	req.AuthCode = "   "

	_, err := f.svc.SubmitReceipt(operatorCtx(), req)
	assert.ErrorIs(t, err, paymentdomain.ErrMissingAuthCode)
	assertNothingWritten(t, f.db)
}

func TestSubmitReceiptOverpayment(t *testing.T) {
	f := newFixture(t, wiring{})
	f.openRegister(t)

	_, err := f.svc.SubmitReceipt(operatorCtx(), pixReceipt("300.01"))
	assert.ErrorIs(t, err, paymentdomain.ErrOverpayment)
	assertNothingWritten(t, f.db)
}

func TestSubmitReceiptUnknownReferences(t *testing.T) {
	f := newFixture(t, wiring{})
	f.openRegister(t)

	req := pixReceipt("10.00")
	req.MethodID = methodCheque
	_, err := f.svc.SubmitReceipt(operatorCtx(), req)
	assert.ErrorIs(t, err, paymentdomain.ErrMethodNotFound)

	req = pixReceipt("10.00")
	req.InstallmentID = 999
	_, err = f.svc.SubmitReceipt(operatorCtx(), req)
	assert.ErrorIs(t, err, installmentdomain.ErrNotFound)

	_, err = f.svc.SubmitReceipt(context.Background(), pixReceipt("10.00"))
	assert.ErrorIs(t, err, opcontext.ErrMissingScope)

	assertNothingWritten(t, f.db)
}

// racingInstallments simulates a receipt committed by another process right
// after the installment was read outside the transaction.
type racingInstallments struct {
	installmentdomain.Service
	db *gorm.DB
}

func (r racingInstallments) Get(ctx context.Context, db *gorm.DB, clinicID, id snowflake.ID) (installmentdomain.Installment, error) {
	item, err := r.Service.Get(ctx, db, clinicID, id)
	if err == nil && db == nil {
		if err := r.db.Exec(`UPDATE installments SET amount_paid = 100, status = 'PARTIAL', version = version + 1 WHERE id = ?`, id).Error; err != nil {
			return installmentdomain.Installment{}, err
		}
	}
	return item, err
}

func TestSubmitReceiptStaleInstallmentConflicts(t *testing.T) {
	f := newFixture(t, wiring{wrapInstallments: func(inner installmentdomain.Service, db *gorm.DB) installmentdomain.Service {
		return racingInstallments{Service: inner, db: db}
	}})
	f.openRegister(t)

	_, err := f.svc.SubmitReceipt(operatorCtx(), pixReceipt("150.00"))
	assert.ErrorIs(t, err, installmentdomain.ErrConcurrentUpdate)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.True(t, apperr.IsRetryable(err))

	testutil.AssertCount(t, f.db, "financial_events", 0)
	testutil.AssertCount(t, f.db, "transactions", 0)
	testutil.AssertCount(t, f.db, "installments", 1)
}

// closingInstallments closes the operator's register right after the
// installment was read outside the transaction.
type closingInstallments struct {
	installmentdomain.Service
	cashRegisters func() cashregisterdomain.Service
}

func (c closingInstallments) Get(ctx context.Context, db *gorm.DB, clinicID, id snowflake.ID) (installmentdomain.Installment, error) {
	item, err := c.Service.Get(ctx, db, clinicID, id)
	if err == nil && db == nil {
		if _, err := c.cashRegisters().CloseActive(ctx); err != nil {
			return installmentdomain.Installment{}, err
		}
	}
	return item, err
}

func TestSubmitReceiptOnRegisterClosedMidRequest(t *testing.T) {
	var f fixture
	f = newFixture(t, wiring{wrapInstallments: func(inner installmentdomain.Service, db *gorm.DB) installmentdomain.Service {
		return closingInstallments{Service: inner, cashRegisters: func() cashregisterdomain.Service { return f.cashRegisters }}
	}})
	register := f.openRegister(t)

	_, err := f.svc.SubmitReceipt(operatorCtx(), pixReceipt("150.00"))
	assert.ErrorIs(t, err, paymentdomain.ErrNoOpenRegister)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	var booked int64
	require.NoError(t, f.db.Table("financial_events").Where("cash_register_id = ?", register.ID).Count(&booked).Error)
	assert.Zero(t, booked)
	assertNothingWritten(t, f.db)

	var closed cashregisterdomain.CashRegister
	require.NoError(t, f.db.First(&closed, "id = ?", register.ID).Error)
	assert.Equal(t, cashregisterdomain.StatusClosed, closed.Status)
	require.NotNil(t, closed.ClosingBalance)
	assert.Equal(t, "100.00", closed.ClosingBalance.StringFixed(2))
}

func TestSubmitReceiptRollsBackOnAuditFailure(t *testing.T) {
	f := newFixture(t, wiring{})
	f.openRegister(t)
	require.NoError(t, f.db.Exec(`DROP TABLE financial_audit_trail`).Error)

	_, err := f.svc.SubmitReceipt(operatorCtx(), pixReceipt("150.00"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))

	testutil.AssertCount(t, f.db, "financial_events", 0)
	testutil.AssertCount(t, f.db, "transactions", 0)
	testutil.AssertCount(t, f.db, "installments", 1)

	item, err := f.installments.Get(context.Background(), nil, clinicID, installmentID)
	require.NoError(t, err)
	assert.Equal(t, installmentdomain.StatusPending, item.Status)
	assert.True(t, item.AmountPaid.IsZero())
	assert.Equal(t, int64(1), item.Version)
	assert.Empty(t, f.events.Types())
}
