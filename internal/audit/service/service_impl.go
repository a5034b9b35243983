package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clinicledger/internal/apperr"
	auditdomain "github.com/smallbiznis/clinicledger/internal/audit/domain"
	"github.com/smallbiznis/clinicledger/internal/audit/masking"
	"github.com/smallbiznis/clinicledger/internal/clock"
	"github.com/smallbiznis/clinicledger/internal/opcontext"
	"github.com/smallbiznis/clinicledger/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, req auditdomain.RecordRequest) (auditdomain.Entry, error) {
	if req.ClinicID == 0 {
		return auditdomain.Entry{}, auditdomain.ErrInvalidClinic
	}
	table := strings.TrimSpace(req.Table)
	if table == "" {
		return auditdomain.Entry{}, auditdomain.ErrInvalidTable
	}
	if req.RecordID == 0 {
		return auditdomain.Entry{}, auditdomain.ErrInvalidRecord
	}
	action := strings.TrimSpace(req.ActionType)
	if action == "" {
		return auditdomain.Entry{}, auditdomain.ErrInvalidAction
	}
	if req.ActorID == 0 {
		return auditdomain.Entry{}, auditdomain.ErrInvalidActor
	}

	entry := auditdomain.Entry{
		ID:         s.genID.Generate(),
		ClinicID:   req.ClinicID,
		Table:      table,
		RecordID:   req.RecordID,
		ActionType: action,
		OldData:    snapshot(req.OldData),
		NewData:    snapshot(req.NewData),
		UserID:     req.ActorID,
		CreatedAt:  s.clock.Now().UTC(),
	}
	if note := strings.TrimSpace(req.Note); note != "" {
		entry.Notes = &note
	}

	if tx == nil {
		tx = s.db
	}
	if err := s.repo.Insert(ctx, tx, &entry); err != nil {
		s.log.Error("failed to write audit entry",
			zap.String("table", table),
			zap.String("action", action),
			zap.String("record_id", req.RecordID.String()),
			zap.Error(err),
		)
		return auditdomain.Entry{}, apperr.Persistence("insert audit entry", err)
	}

	s.log.Debug("audit entry written",
		zap.String("table", table),
		zap.String("action", action),
		zap.String("record_id", req.RecordID.String()),
		zap.Any("new_data", masking.MaskSnapshot(req.NewData)),
	)
	return entry, nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListRequest) (auditdomain.ListResponse, error) {
	clinicID, ok := opcontext.ClinicIDFromContext(ctx)
	if !ok {
		return auditdomain.ListResponse{}, auditdomain.ErrInvalidClinic
	}

	beforeID, err := req.Before()
	if err != nil {
		return auditdomain.ListResponse{}, auditdomain.ErrInvalidPageToken
	}

	var recordID snowflake.ID
	if raw := strings.TrimSpace(req.RecordID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			return auditdomain.ListResponse{}, auditdomain.ErrInvalidRecord
		}
		recordID = id
	}

	pageSize := req.Limit()
	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		ClinicID:   clinicID,
		Table:      req.Table,
		RecordID:   recordID,
		ActionType: req.ActionType,
		BeforeID:   beforeID,
		Limit:      pageSize,
	})
	if err != nil {
		return auditdomain.ListResponse{}, apperr.Persistence("list audit entries", err)
	}

	items, pageInfo := pagination.Trim(items, pageSize, func(item *auditdomain.Entry) snowflake.ID { return item.ID })

	entries := make([]auditdomain.Entry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entries = append(entries, *item)
	}

	return auditdomain.ListResponse{PageInfo: pageInfo, Entries: entries}, nil
}

func snapshot(data map[string]any) datatypes.JSONMap {
	if len(data) == 0 {
		return nil
	}
	out := make(datatypes.JSONMap, len(data))
	for key, value := range data {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out[key] = value
	}
	return out
}
