package httpx

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/brusliste/internal/common"
)

// BindJSON разбирает тело запроса. При ошибке уже вызван AbortWithError.
func BindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		AbortWithError(c, &common.ValidationError{Field: "body", Message: "некорректный JSON", Err: err})
		return false
	}
	return true
}

// BindOptionalJSON — как BindJSON, но пустое тело не ошибка: dst остаётся нулевым.
// Пустоту определяем по io.EOF, а не по ContentLength: у chunked-запроса он -1.
func BindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.Body == nil {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, &common.ValidationError{Field: "body", Message: "некорректный JSON", Err: err})
		return false
	}
	return true
}

// ParamID читает положительный id из пути (/people/:id).
func ParamID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		AbortWithError(c, common.NewValidationError(name, "id должен быть положительным числом"))
		return 0, false
	}
	return id, true
}
