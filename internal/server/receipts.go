package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/clinicledger/internal/apperr"
	receivabledomain "github.com/smallbiznis/clinicledger/internal/receivable/domain"
)

const receiptOutcomeKey = "receipt_outcome"

type submitReceiptRequest struct {
	InstallmentID snowflake.ID    `json:"installment_id" binding:"required"`
	GrossAmount   decimal.Decimal `json:"gross_amount"`
	Discount      decimal.Decimal `json:"discount"`
	Interest      decimal.Decimal `json:"interest"`
	MethodID      snowflake.ID    `json:"payment_method_id"`
	AuthCode      string          `json:"auth_code" binding:"max=64"`
	Justification string          `json:"justification" binding:"max=500"`
}

func (s *Server) SubmitReceipt(c *gin.Context) {
	var req submitReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Set(receiptOutcomeKey, "rejected")
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.receivableSvc.SubmitReceipt(c.Request.Context(), receivabledomain.SubmitReceiptRequest{
		InstallmentID: req.InstallmentID,
		GrossAmount:   req.GrossAmount,
		Discount:      req.Discount,
		Interest:      req.Interest,
		MethodID:      req.MethodID,
		AuthCode:      strings.TrimSpace(req.AuthCode),
		Justification: strings.TrimSpace(req.Justification),
	})
	if err != nil {
		c.Set(receiptOutcomeKey, receiptOutcome(err))
		AbortWithError(c, err)
		return
	}

	c.Set(receiptOutcomeKey, "recorded")
	c.JSON(http.StatusCreated, gin.H{"data": result})
}

func receiptOutcome(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return "rejected"
	case apperr.KindConflict:
		return "conflict"
	default:
		return "failed"
	}
}
