// Package access — handlers.go: выдача ключей по HTTP.
package access

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/brusliste/internal/httpx"
)

// Handler — обработчик POST /api/keys.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register вешает выдачу ключей на группу /api.
// limiter ограничивает частоту запросов, перед паролем, чтобы подбор тоже упирался в лимит.
func (h *Handler) Register(api *gin.RouterGroup, limiter gin.HandlerFunc) {
	api.POST("/keys", limiter, RequireAdmin(h.service), h.IssueKey)
}

// IssueKey — POST /api/keys
func (h *Handler) IssueKey(c *gin.Context) {
	key, err := h.service.IssueKey(c.Request.Context())
	if err != nil {
		httpx.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, IssuedKey{APIKey: key})
}
