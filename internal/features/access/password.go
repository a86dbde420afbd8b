// Package access — password.go хеширует и проверяет пароль администратора (Argon2id).
package access

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Параметры Argon2id для новых хешей
const (
	argonMemory      uint32 = 64 * 1024 // 64 MB
	argonIterations  uint32 = 3
	argonParallelism uint8  = 2
	argonKeyLength   uint32 = 32
	argonSaltLength         = 16
)

// HashPassword возвращает хеш в формате
// $argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("ошибка генерации соли: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonIterations, argonMemory, argonParallelism, argonKeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonIterations, argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Ограничения на параметры чужого хеша: argon2.IDKey паникует на нулевых
// t, p и длине ключа, а огромный m съест всю память на каждом запросе.
const (
	maxArgonMemory uint32 = 1 << 21 // 2 GB
	minKeyLength          = 16
	minSaltLength         = 8
)

// PasswordHash — разобранный хеш Argon2id.
type PasswordHash struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

// ParsePasswordHash разбирает и проверяет строку вида
// $argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>.
func ParsePasswordHash(encoded string) (*PasswordHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, fmt.Errorf("некорректный формат хеша Argon2id")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, fmt.Errorf("ошибка парсинга версии Argon2id: %w", err)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("неподдерживаемая версия Argon2id: %d", version)
	}

	var h PasswordHash
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.memory, &h.iterations, &h.parallelism); err != nil {
		return nil, fmt.Errorf("ошибка парсинга параметров Argon2id: %w", err)
	}
	if h.memory == 0 || h.memory > maxArgonMemory || h.iterations == 0 || h.parallelism == 0 {
		return nil, fmt.Errorf("недопустимые параметры Argon2id: m=%d, t=%d, p=%d", h.memory, h.iterations, h.parallelism)
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, fmt.Errorf("ошибка декодирования соли: %w", err)
	}
	if len(h.salt) < minSaltLength {
		return nil, fmt.Errorf("соль короче %d байт", minSaltLength)
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, fmt.Errorf("ошибка декодирования хеша: %w", err)
	}
	if len(h.key) < minKeyLength {
		return nil, fmt.Errorf("хеш короче %d байт", minKeyLength)
	}
	return &h, nil
}

// Verify сравнивает пароль с хешем в постоянном времени.
func (h *PasswordHash) Verify(password string) bool {
	computed := argon2.IDKey([]byte(password), h.salt, h.iterations, h.memory, h.parallelism, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(computed, h.key) == 1
}
