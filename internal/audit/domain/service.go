package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clinicledger/internal/apperr"
	"github.com/smallbiznis/clinicledger/pkg/db/pagination"
	"gorm.io/gorm"
)

type RecordRequest struct {
	ClinicID   snowflake.ID
	Table      string
	RecordID   snowflake.ID
	ActionType string
	OldData    map[string]any
	NewData    map[string]any
	Note       string
	ActorID    snowflake.ID
}

type ListRequest struct {
	pagination.Request
	Table      string
	RecordID   string
	ActionType string
}

type ListResponse struct {
	PageInfo pagination.Info `json:"page_info"`
	Entries  []Entry         `json:"entries"`
}

type Service interface {
	// Record writes one entry through tx so it commits with the change it describes.
	Record(ctx context.Context, tx *gorm.DB, req RecordRequest) (Entry, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidClinic    = apperr.Validation("invalid_clinic", "clinic scope is required")
	ErrInvalidTable     = apperr.Validation("invalid_table", "table name is required")
	ErrInvalidRecord    = apperr.Validation("invalid_record", "record id is required")
	ErrInvalidAction    = apperr.Validation("invalid_action", "action type is required")
	ErrInvalidActor     = apperr.Validation("invalid_actor", "actor is required")
	ErrInvalidPageToken = apperr.Validation("invalid_page_token", "page token is malformed")
)
