package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sahanr/finance-tracker/pkg"
	"github.com/sahanr/finance-tracker/pkg/auth"
	"github.com/sahanr/finance-tracker/pkg/utils"
	"go.uber.org/zap"
)

// RequireAuth resolves the caller's user id from a Bearer access token and
// stores it in the gin context. Every store operation downstream is scoped by
// this id.
func RequireAuth(logger *zap.Logger, mgr *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || utils.IsEmpty(token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, pkg.ErrorResponse{
				Code:    pkg.ErrUnauthorizedCode.Code,
				Message: "missing bearer token",
			})
			return
		}

		userID, err := mgr.ParseAccess(token)
		if err != nil {
			logger.Warn("rejected access token", zap.String(pkg.TraceId, c.GetString(pkg.TraceId)), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, pkg.ErrorResponse{
				Code:    pkg.ErrUnauthorizedCode.Code,
				Message: pkg.ErrUnauthorizedCode.Message,
			})
			return
		}

		c.Set(pkg.UserId, userID.String())
		c.Next()
	}
}
