// Package access проверяет ключи доступа к изменяющим запросам
// и выдаёт новые ключи.
package access

// Заголовки запроса
const (
	HeaderAPIKey        = "X-API-Key"
	HeaderAdminPassword = "X-Admin-Password"
)

// IssuedKey — ответ POST /api/keys. Ключ показывается один раз.
type IssuedKey struct {
	APIKey string `json:"api_key"`
}
