package middleware

import (
	"net/http"

	"github.com/friedchicken888/cab432-a2/api/common"
	"github.com/gin-gonic/gin"
)

// RequireRole 检查用户是否具有指定的角色
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			common.RespondErrorAbort(c, http.StatusForbidden, "Access denied. Role information not found.")
			return
		}

		for _, allowed := range allowedRoles {
			if id.Role == allowed {
				c.Next()
				return
			}
		}

		common.RespondErrorAbort(c, http.StatusForbidden, "Access denied. Admin role required.")
	}
}
