package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/clinicledger/internal/apperr"
	"github.com/smallbiznis/clinicledger/internal/clock"
	ledgerdomain "github.com/smallbiznis/clinicledger/internal/ledger/domain"
	paymentdomain "github.com/smallbiznis/clinicledger/internal/payment/domain"
	"github.com/smallbiznis/clinicledger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db := testutil.NewDB(t)
	svc := NewService(Params{
		DB:    db,
		Log:   zaptest.NewLogger(t),
		GenID: testutil.NewNode(t),
		Clock: clock.NewFakeClock(testNow),
	}).(*Service)
	return svc, db
}

func receiptRequest(registerID int64) ledgerdomain.RecordReceiptRequest {
	code := "ABC123"
	return ledgerdomain.RecordReceiptRequest{
		ClinicID:    10,
		RegisterID:  snowflake.ID(registerID),
		OperatorID:  7,
		Installment: ledgerdomain.InstallmentRef{ID: 500, Number: 2, Total: 6},
		PatientName: "Maria Souza",
		Payment: paymentdomain.Validated{
			Method:      paymentdomain.Method{ID: 1, Name: "PIX", FeePercent: decimal.RequireFromString("1.99")},
			GrossAmount: decimal.RequireFromString("150.00"),
			Discount:    decimal.Zero,
			Interest:    decimal.Zero,
			NetAmount:   decimal.RequireFromString("150.00"),
			AuthCode:    &code,
			Partial:     true,
		},
	}
}

func TestRecordReceiptWritesLinkedRows(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	var receipt ledgerdomain.Receipt
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		receipt, err = svc.RecordReceipt(ctx, tx, receiptRequest(900))
		return err
	})
	require.NoError(t, err)

	testutil.AssertCount(t, db, "financial_events", 1)
	testutil.AssertCount(t, db, "transactions", 1)

	var event ledgerdomain.FinancialEvent
	require.NoError(t, db.First(&event, "id = ?", receipt.Event.ID).Error)
	require.NotNil(t, event.TransactionID)
	assert.Equal(t, receipt.Transaction.ID, *event.TransactionID)
	assert.True(t, event.NetReceived.Equal(decimal.RequireFromString("150")))
	assert.True(t, event.PartialPayment)
	require.NotNil(t, event.AuthCode)
	assert.Equal(t, "ABC123", *event.AuthCode)
	assert.True(t, event.OccurredAt.Equal(testNow))

	var txn ledgerdomain.Transaction
	require.NoError(t, db.First(&txn, "id = ?", receipt.Transaction.ID).Error)
	assert.Equal(t, receipt.Event.ID, txn.FinancialEventID)
	assert.Equal(t, "Recebimento parcela 2/6 - Maria Souza", txn.Description)
	assert.Equal(t, ledgerdomain.CategoryInstallmentReceipt, txn.Category)
	assert.Equal(t, ledgerdomain.TransactionTypeIncome, txn.Type)
	assert.Equal(t, ledgerdomain.TransactionStatusPaid, txn.PaymentStatus)
	assert.Equal(t, "PIX", txn.PaymentMethod)
	assert.Equal(t, "2.99", txn.FeeAmount.StringFixed(2))
	assert.Equal(t, "147.01", txn.NetAmount.StringFixed(2))
}

func TestRecordReceiptRollsBackEventWhenTransactionFails(t *testing.T) {
	svc, db := newTestService(t)
	require.NoError(t, db.Exec("DROP TABLE transactions").Error)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.RecordReceipt(context.Background(), tx, receiptRequest(900))
		return err
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))
	testutil.AssertCount(t, db, "financial_events", 0)
}

func TestRecordReceiptRejectsInvalidRequest(t *testing.T) {
	svc, db := newTestService(t)

	req := receiptRequest(900)
	req.Payment.NetAmount = decimal.Zero
	_, err := svc.RecordReceipt(context.Background(), db, req)
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidNetAmount)

	req = receiptRequest(0)
	_, err = svc.RecordReceipt(context.Background(), db, req)
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidRegister)

	testutil.AssertCount(t, db, "financial_events", 0)
}

func TestRegisterTotals(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	for _, amount := range []string{"100.10", "0.20", "49.70"} {
		req := receiptRequest(900)
		req.Payment.GrossAmount = decimal.RequireFromString(amount)
		req.Payment.NetAmount = decimal.RequireFromString(amount)
		_, err := svc.RecordReceipt(ctx, db, req)
		require.NoError(t, err)
	}
	_, err := svc.RecordReceipt(ctx, db, receiptRequest(901))
	require.NoError(t, err)

	totals, err := svc.RegisterTotals(ctx, nil, 10, 900)
	require.NoError(t, err)
	assert.Equal(t, int64(3), totals.ReceiptCount)
	assert.Equal(t, "150.00", totals.NetReceived.StringFixed(2))

	events, err := svc.ListEvents(ctx, nil, 10, 901)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestDescription(t *testing.T) {
	notes := " Ortodontia "
	ref := ledgerdomain.InstallmentRef{Number: 1, Total: 3, Notes: &notes}

	assert.Equal(t, "Recebimento parcela 1/3 - Ana", Description(ref, "Ana"))
	assert.Equal(t, "Recebimento parcela 1/3 - Ortodontia", Description(ref, " "))
	assert.Equal(t, "Recebimento parcela 1/3", Description(ledgerdomain.InstallmentRef{Number: 1, Total: 3}, ""))
}

func TestFeeAmount(t *testing.T) {
	assert.True(t, FeeAmount(decimal.RequireFromString("100"), decimal.Zero).IsZero())
	assert.Equal(t, "3.33", FeeAmount(decimal.RequireFromString("111"), decimal.RequireFromString("3")).StringFixed(2))
}
