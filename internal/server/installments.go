package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetInstallment(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	clinicID, _, err := requestScope(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	installment, err := s.installmentSvc.Get(c.Request.Context(), nil, clinicID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": installment})
}

func (s *Server) ListPatientInstallments(c *gin.Context) {
	patientID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	clinicID, _, err := requestScope(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	installments, err := s.installmentSvc.ListByPatient(c.Request.Context(), clinicID, patientID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": installments})
}
