package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	cashregisterdomain "github.com/smallbiznis/clinicledger/internal/cashregister/domain"
)

type openCashRegisterRequest struct {
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

func (s *Server) OpenCashRegister(c *gin.Context) {
	var req openCashRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	register, err := s.cashRegisterSvc.Open(c.Request.Context(), cashregisterdomain.OpenRequest{
		OpeningBalance: req.OpeningBalance,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": register})
}

// GetActiveCashRegister answers with data null when the operator has no open
// register, so the front desk can prompt for one.
func (s *Server) GetActiveCashRegister(c *gin.Context) {
	clinicID, operatorID, err := requestScope(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	register, err := s.cashRegisterSvc.GetActive(c.Request.Context(), clinicID, operatorID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": register})
}

func (s *Server) CloseActiveCashRegister(c *gin.Context) {
	register, err := s.cashRegisterSvc.CloseActive(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": register})
}

func (s *Server) CloseCashRegister(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	register, err := s.cashRegisterSvc.Close(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": register})
}

func (s *Server) GetCashRegisterSummary(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	summary, err := s.cashRegisterSvc.Summary(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}
