package middleware

import (
	"github.com/gin-gonic/gin"
)

// TenantHeader 租户标识请求头
const TenantHeader = "X-Tenant-ID"

// Tenant 从请求头提取租户 ID 并写入请求上下文
func Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tenantID := c.GetHeader(TenantHeader); tenantID != "" {
			c.Set("tenant_id", tenantID)
		}
		c.Next()
	}
}

// GetTenantID gets tenant ID from context.
func GetTenantID(c *gin.Context) string {
	return c.GetString("tenant_id")
}
