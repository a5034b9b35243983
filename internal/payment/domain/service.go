package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clinicledger/internal/apperr"
)

// Catalogue resolves the payment methods configured for a clinic.
type Catalogue interface {
	Get(ctx context.Context, clinicID, id snowflake.ID) (Method, error)
	ListActive(ctx context.Context, clinicID snowflake.ID) ([]Method, error)
}

var (
	ErrMethodNotFound = apperr.NotFound("payment_method_not_found", "payment method not found")

	ErrNoOpenRegister       = apperr.Validation("no_open_register", "an open cash register is required")
	ErrMissingMethod        = apperr.Validation("missing_payment_method", "a payment method must be selected")
	ErrMissingAuthCode      = apperr.Validation("missing_auth_code", "electronic payments require an authorization code")
	ErrMissingJustification = apperr.Validation("missing_justification", "discount or interest requires a justification")
	ErrInvalidAmount        = apperr.Validation("invalid_amount", "amount must be positive")
	ErrOverpayment          = apperr.Validation("overpayment", "amount exceeds the remaining balance")
)
