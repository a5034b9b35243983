package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/clinicledger/internal/opcontext"
)

const (
	HeaderClinic   = "X-Clinic-ID"
	HeaderOperator = "X-Operator-ID"
)

// ScopeContext resolves the clinic and operator of the request from headers
// and stores them on the request context.
func ScopeContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		clinicID, ok := parseHeaderID(c, HeaderClinic)
		if !ok {
			AbortWithError(c, newValidationError("clinic_id", "missing_clinic", "X-Clinic-ID header is required"))
			return
		}
		operatorID, ok := parseHeaderID(c, HeaderOperator)
		if !ok {
			AbortWithError(c, newValidationError("operator_id", "missing_operator", "X-Operator-ID header is required"))
			return
		}

		ctx := opcontext.WithClinicID(c.Request.Context(), clinicID)
		ctx = opcontext.WithOperatorID(ctx, operatorID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func parseHeaderID(c *gin.Context, header string) (snowflake.ID, bool) {
	raw := strings.TrimSpace(c.GetHeader(header))
	if raw == "" {
		return 0, false
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func parseIDParam(c *gin.Context, name string) (snowflake.ID, error) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := snowflake.ParseString(raw)
	if err != nil || id <= 0 {
		return 0, newValidationError(name, "invalid_"+name, "invalid "+name)
	}
	return id, nil
}

func requestScope(c *gin.Context) (snowflake.ID, snowflake.ID, error) {
	clinicID, operatorID, ok := opcontext.Scope(c.Request.Context())
	if !ok {
		return 0, 0, opcontext.ErrMissingScope
	}
	return clinicID, operatorID, nil
}
