package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdmitPatient answers 200 with the queue item, carrying a warning when the
// patient has debt at a clinic that does not block debtors.
func (s *Server) AdmitPatient(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.admissionSvc.Admit(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
