// Package access — middleware.go подключает проверку ключа к gin.
package access

import (
	"github.com/gin-gonic/gin"

	"serotonyl.ru/brusliste/internal/httpx"
)

// RequireAPIKey пропускает запрос дальше, только если Gate принял ключ из X-API-Key.
func RequireAPIKey(gate Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := gate.Authorize(c.Request.Context(), c.GetHeader(HeaderAPIKey)); err != nil {
			httpx.AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// RequireAdmin проверяет пароль администратора из X-Admin-Password.
func RequireAdmin(s *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.VerifyAdmin(c.GetHeader(HeaderAdminPassword)); err != nil {
			httpx.AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
