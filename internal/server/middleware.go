package server

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/propbill/internal/observability/context"
	"github.com/smallbiznis/propbill/internal/orgcontext"
	"go.uber.org/zap"
)

// OrgContext parses :org_id, checks the organization exists and places it on
// the request context.
func (s *Server) OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, err := snowflake.ParseString(strings.TrimSpace(c.Param("org_id")))
		if err != nil || orgID <= 0 {
			AbortWithError(c, newValidationError("org_id", "invalid_organization", "invalid organization id"))
			return
		}

		if _, err := s.organizationSvc.GetByID(c.Request.Context(), orgID); err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), orgID)
		ctx = obscontext.WithOrgID(ctx, orgID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GenerateRateLimit throttles invoice generation per organization. Limiter
// outages fail open.
func (s *Server) GenerateRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.generateLimiter.Enabled() {
			c.Next()
			return
		}

		orgID, _ := orgcontext.OrgIDFromContext(c.Request.Context())
		result, err := s.generateLimiter.AllowOrg(c.Request.Context(), orgID.String())
		if err != nil {
			s.log.Warn("generate rate limit check failed", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.ResetTime.IsZero() {
			c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime.Unix(), 10))
		}
		if !result.Allowed {
			retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}

func orgIDFromRequest(c *gin.Context) (snowflake.ID, bool) {
	return orgcontext.OrgIDFromContext(c.Request.Context())
}

func parseIDParam(c *gin.Context, name string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param(name)))
	if err != nil || id <= 0 {
		AbortWithError(c, newValidationError(name, "invalid_id", "invalid id"))
		return 0, false
	}
	return id, true
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
