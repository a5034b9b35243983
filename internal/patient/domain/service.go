package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clinicledger/internal/apperr"
)

type Service interface {
	Get(ctx context.Context, clinicID, id snowflake.ID) (Patient, error)
}

var ErrPatientNotFound = apperr.NotFound("patient_not_found", "patient not found")
