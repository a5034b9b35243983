package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clinicledger/internal/apperr"
	auditdomain "github.com/smallbiznis/clinicledger/internal/audit/domain"
	"github.com/smallbiznis/clinicledger/internal/audit/repository"
	"github.com/smallbiznis/clinicledger/internal/clock"
	"github.com/smallbiznis/clinicledger/internal/opcontext"
	"github.com/smallbiznis/clinicledger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db := testutil.NewDB(t)
	svc := NewService(Params{
		DB:    db,
		Log:   zaptest.NewLogger(t),
		GenID: testutil.NewNode(t),
		Clock: clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	}).(*Service)
	return svc, db
}

func TestRecordWritesSnapshots(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Record(ctx, nil, auditdomain.RecordRequest{
		ClinicID:   1,
		Table:      "installments",
		RecordID:   42,
		ActionType: auditdomain.ActionPaymentReceived,
		OldData:    map[string]any{"status": "PENDING", "amount_paid": "0"},
		NewData:    map[string]any{"status": "PARTIAL", "amount_paid": "150", "auth_code": "ABC123"},
		Note:       "Recebimento via PIX por operador 7",
		ActorID:    7,
	})
	require.NoError(t, err)
	assert.NotZero(t, entry.ID)

	var stored auditdomain.Entry
	require.NoError(t, db.First(&stored, "id = ?", entry.ID).Error)
	assert.Equal(t, "installments", stored.Table)
	assert.Equal(t, "PENDING", stored.OldData["status"])
	assert.Equal(t, "PARTIAL", stored.NewData["status"])
	assert.Equal(t, "ABC123", stored.NewData["auth_code"])
	require.NotNil(t, stored.Notes)
	assert.Equal(t, "Recebimento via PIX por operador 7", *stored.Notes)
	assert.Equal(t, snowflake.ID(7), stored.UserID)
}

func TestRecordValidatesRequest(t *testing.T) {
	svc, db := newTestService(t)

	_, err := svc.Record(context.Background(), nil, auditdomain.RecordRequest{
		ClinicID: 1,
		Table:    "installments",
		RecordID: 42,
		ActorID:  7,
	})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	testutil.AssertCount(t, db, "financial_audit_trail", 0)
}

func TestRecordRollsBackWithTransaction(t *testing.T) {
	svc, db := newTestService(t)

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := svc.Record(context.Background(), tx, auditdomain.RecordRequest{
			ClinicID:   1,
			Table:      "cash_registers",
			RecordID:   9,
			ActionType: auditdomain.ActionRegisterOpened,
			ActorID:    7,
		}); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	testutil.AssertCount(t, db, "financial_audit_trail", 0)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := opcontext.WithClinicID(context.Background(), 1)

	var ids []snowflake.ID
	for i := 0; i < 3; i++ {
		entry, err := svc.Record(ctx, nil, auditdomain.RecordRequest{
			ClinicID:   1,
			Table:      "installments",
			RecordID:   snowflake.ID(100 + i),
			ActionType: auditdomain.ActionPaymentReceived,
			ActorID:    7,
		})
		require.NoError(t, err)
		ids = append(ids, entry.ID)
	}
	_, err := svc.Record(ctx, nil, auditdomain.RecordRequest{
		ClinicID:   2,
		Table:      "installments",
		RecordID:   500,
		ActionType: auditdomain.ActionPaymentReceived,
		ActorID:    8,
	})
	require.NoError(t, err)

	req := auditdomain.ListRequest{}
	req.PageSize = 2
	first, err := svc.List(ctx, req)
	require.NoError(t, err)
	require.Len(t, first.Entries, 2)
	assert.True(t, first.PageInfo.HasMore)
	assert.Equal(t, ids[2], first.Entries[0].ID)
	assert.Equal(t, ids[1], first.Entries[1].ID)

	req.PageToken = first.PageInfo.NextPageToken
	second, err := svc.List(ctx, req)
	require.NoError(t, err)
	require.Len(t, second.Entries, 1)
	assert.False(t, second.PageInfo.HasMore)
	assert.Empty(t, second.PageInfo.NextPageToken)
	assert.Equal(t, ids[0], second.Entries[0].ID)
}

func TestListFiltersByRecord(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := opcontext.WithClinicID(context.Background(), 1)

	for _, recordID := range []snowflake.ID{10, 11, 10} {
		_, err := svc.Record(ctx, nil, auditdomain.RecordRequest{
			ClinicID:   1,
			Table:      "installments",
			RecordID:   recordID,
			ActionType: auditdomain.ActionPaymentReceived,
			ActorID:    7,
		})
		require.NoError(t, err)
	}

	resp, err := svc.List(ctx, auditdomain.ListRequest{Table: "installments", RecordID: "10"})
	require.NoError(t, err)
	assert.Len(t, resp.Entries, 2)
}

func TestListRejectsBadToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := opcontext.WithClinicID(context.Background(), 1)

	req := auditdomain.ListRequest{}
	req.PageToken = "not-base64!"
	_, err := svc.List(ctx, req)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)

	_, err = svc.List(context.Background(), auditdomain.ListRequest{})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidClinic)
}
