// Package stats — handlers.go отдаёт статистику по HTTP.
package stats

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/brusliste/internal/httpx"
)

// Handler — обработчик GET /api/statistics.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register вешает маршрут на группу /api. Статистика открыта без ключа.
func (h *Handler) Register(api *gin.RouterGroup) {
	api.GET("/statistics", h.Statistics)
}

// Statistics — GET /api/statistics
func (h *Handler) Statistics(c *gin.Context) {
	st, err := h.service.Statistics(c.Request.Context())
	if err != nil {
		httpx.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
