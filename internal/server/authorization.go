package server

import (
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/vendorbill/internal/vendorcontext"
)

// authorize guards a route with the casbin policy for object and action.
// The actor role comes from the X-Actor-Role header.
func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		role := vendorcontext.RoleFromContext(ctx)
		if role == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if s.authzSvc == nil {
			AbortWithError(c, ErrForbidden)
			return
		}
		if err := s.authzSvc.Authorize(ctx, role, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
