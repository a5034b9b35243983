package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/clinicledger/internal/audit/domain"
	"github.com/smallbiznis/clinicledger/pkg/db/pagination"
)

type listAuditTrailQuery struct {
	PageToken  string `form:"page_token"`
	PageSize   int    `form:"page_size" binding:"omitempty,gte=1,lte=250"`
	Table      string `form:"table"`
	RecordID   string `form:"record_id"`
	ActionType string `form:"action_type"`
}

func (s *Server) ListAuditTrail(c *gin.Context) {
	var query listAuditTrailQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListRequest{
		Request: pagination.Request{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		Table:      strings.TrimSpace(query.Table),
		RecordID:   strings.TrimSpace(query.RecordID),
		ActionType: strings.ToUpper(strings.TrimSpace(query.ActionType)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      resp.Entries,
		"page_info": resp.PageInfo,
	})
}
