package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/clinicledger/internal/apperr"
)

type Service interface {
	// Admit moves the appointment to ARRIVED and queues it, unless the clinic
	// blocks debtors and the patient has debt. A blocked admission restores
	// the status the appointment had before the attempt.
	Admit(ctx context.Context, appointmentID snowflake.ID) (AdmissionResult, error)
}

const WarningPatientHasDebt = "patient_has_debt"

var (
	ErrAppointmentNotFound     = apperr.NotFound("appointment_not_found", "appointment not found")
	ErrInvalidStatusTransition = apperr.Conflict("invalid_status_transition", "appointment cannot be admitted from its current status")
	ErrPatientBlocked          = apperr.PolicyBlock("patient_blocked_for_debt", "patient has outstanding debt and the clinic blocks debtors")
)

// PolicyBlockError denies an admission because of the clinic debt policy.
type PolicyBlockError struct {
	AppointmentID  snowflake.ID
	PatientID      snowflake.ID
	BalanceDue     decimal.Decimal
	BadDebtor      bool
	RestoredStatus AppointmentStatus
}

func (e *PolicyBlockError) Error() string {
	return fmt.Sprintf("%s: balance_due=%s bad_debtor=%t", ErrPatientBlocked.Code, e.BalanceDue.StringFixed(2), e.BadDebtor)
}

func (e *PolicyBlockError) ErrorKind() apperr.Kind { return apperr.KindPolicyBlock }

func (e *PolicyBlockError) Unwrap() error { return ErrPatientBlocked }

// Details is rendered next to the error message by the transport.
func (e *PolicyBlockError) Details() map[string]any {
	return map[string]any{
		"balance_due":     e.BalanceDue.StringFixed(2),
		"bad_debtor":      e.BadDebtor,
		"restored_status": string(e.RestoredStatus),
	}
}

func AsPolicyBlock(err error) (*PolicyBlockError, bool) {
	var blocked *PolicyBlockError
	if errors.As(err, &blocked) {
		return blocked, true
	}
	return nil, false
}
