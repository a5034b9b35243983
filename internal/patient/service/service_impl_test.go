package service

import (
	"context"
	"testing"

	"github.com/smallbiznis/clinicledger/internal/patient/domain"
	"github.com/smallbiznis/clinicledger/internal/patient/repository"
	"github.com/smallbiznis/clinicledger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestGetPatient(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(Params{DB: db, Log: zaptest.NewLogger(t), Repo: repository.Provide()})

	require.NoError(t, db.Exec(
		`INSERT INTO patients (id, clinic_id, name, bad_debtor, balance_due) VALUES (?, ?, ?, ?, ?)`,
		77, 10, "Maria Souza", false, "450.00",
	).Error)

	patient, err := svc.Get(context.Background(), 10, 77)
	require.NoError(t, err)
	assert.Equal(t, "Maria Souza", patient.Name)
	assert.Equal(t, "450.00", patient.BalanceDue.StringFixed(2))
	assert.True(t, patient.HasDebt())

	_, err = svc.Get(context.Background(), 11, 77)
	assert.ErrorIs(t, err, domain.ErrPatientNotFound)
}
