// Package httpx — общие куски HTTP-слоя: превращение ошибок в ответы
// и разбор параметров запроса.
//
// Обработчики не пишут ошибки сами: они вызывают AbortWithError,
// а ErrorHandlingMiddleware в конце цепочки выбирает статус и тело ответа.
package httpx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/brusliste/internal/common"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ErrorHandlingMiddleware отвечает клиенту по последней ошибке из c.Errors.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		if status >= http.StatusInternalServerError {
			// Причина сбоя уходит только в лог, клиент видит общий текст
			log.WithError(lastErr.Err).WithFields(log.Fields{
				"method": c.Request.Method,
				"path":   c.Request.URL.Path,
				"status": status,
			}).Error("Ошибка обработки запроса")
		}
		if status == http.StatusServiceUnavailable {
			c.Header("Retry-After", "1")
		}
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

// AbortWithError прерывает цепочку обработчиков с ошибкой.
func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	var vErr *common.ValidationError
	if errors.As(err, &vErr) {
		// Нарушение правил учёта — конфликт с текущим состоянием, а не кривой запрос
		if errors.Is(err, common.ErrNegativeBalance) || errors.Is(err, common.ErrOutstandingBalance) {
			return http.StatusConflict, errorPayload{Type: "conflict", Message: vErr.Message, Field: vErr.Field}
		}
		return http.StatusBadRequest, errorPayload{Type: "validation_error", Message: vErr.Message, Field: vErr.Field}
	}

	switch {
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: err.Error()}
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{Type: "unauthorized", Message: common.ErrUnauthorized.Error()}
	case errors.Is(err, common.ErrStore) && common.IsRetryable(err):
		return http.StatusServiceUnavailable, errorPayload{Type: "service_unavailable", Message: "хранилище временно недоступно, повторите запрос"}
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "внутренняя ошибка сервера"}
	}
}
