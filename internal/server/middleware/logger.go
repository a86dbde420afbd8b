// Package middleware содержит промежуточные обработчики HTTP: логирование,
// восстановление после паники, rate limiting и CORS.
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// AccessLog логирует каждый запрос: метод, путь, статус, время, IP.
// 5xx пишется как Warn, 4xx как Info, остальное как Debug.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := log.WithFields(log.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    status,
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
		})

		switch {
		case status >= http.StatusInternalServerError:
			entry.Warn("HTTP-запрос завершился ошибкой")
		case status >= http.StatusBadRequest:
			entry.Info("HTTP-запрос отклонён")
		default:
			entry.Debug("HTTP-запрос")
		}
	}
}
