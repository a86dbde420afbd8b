package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	corsMethods = "GET, POST, OPTIONS, PUT, PATCH, DELETE"
	corsHeaders = strings.Join([]string{"X-Requested-With", "Content-Type", "X-API-Key", "X-Admin-Password"}, ",")
)

// CORS разрешает запросы фронтенда с allowedOrigin.
// Preflight-запросы (OPTIONS) отвечаются сразу, без обработчиков.
func CORS(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", allowedOrigin)
		h.Set("Access-Control-Allow-Methods", corsMethods)
		h.Set("Access-Control-Allow-Headers", corsHeaders)
		h.Set("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}
