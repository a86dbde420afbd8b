// Package access — service.go выдаёт ключи и проверяет их.
package access

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/brusliste/internal/common"
	"serotonyl.ru/brusliste/internal/config"
	"serotonyl.ru/brusliste/internal/metrics"
)

// keyBytes — длина случайной части ключа (до base64).
const keyBytes = 32

// issueAttempts — сколько раз пробуем новый ключ при совпадении хеша.
const issueAttempts = 3

// ErrKeyCollision — хеш нового ключа уже есть в api_keys.
var ErrKeyCollision = errors.New("ключ с таким хешем уже выдан")

// Gate решает, пропускать ли запрос с данным ключом.
// Учёт знает только этот интерфейс, поэтому срок жизни или отзыв ключей
// добавляются здесь, не трогая ledger.
type Gate interface {
	Authorize(ctx context.Context, token string) error
}

// Service — Gate на основе выданных ключей из БД.
type Service struct {
	store     KeyStore
	adminHash *PasswordHash // nil — выдача ключей без пароля
	metrics   *metrics.Metrics
}

// NewService создаёт сервис доступа.
// Хеш пароля разбирается сразу: с битым хешем сервис не стартует.
func NewService(store KeyStore, cfg *config.Config, m *metrics.Metrics) (*Service, error) {
	s := &Service{store: store, metrics: m}
	if cfg.AdminPasswordHash == "" {
		log.Warn("ADMIN_PASSWORD_HASH не задан: выдача ключей открыта всем (ограничена только rate limit)")
		return s, nil
	}

	hash, err := ParsePasswordHash(cfg.AdminPasswordHash)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_PASSWORD_HASH: %w", err)
	}
	s.adminHash = hash
	return s, nil
}

// Authorize пропускает только ранее выданный ключ.
func (s *Service) Authorize(ctx context.Context, token string) error {
	if token == "" {
		return common.ErrUnauthorized
	}

	ok, err := s.store.Exists(ctx, hashKey(token))
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrUnauthorized
	}
	return nil
}

// IssueKey создаёт новый случайный ключ и сохраняет его хеш.
func (s *Service) IssueKey(ctx context.Context) (string, error) {
	for attempt := 1; ; attempt++ {
		key, err := generateKey()
		if err != nil {
			return "", err
		}

		err = s.store.Insert(ctx, hashKey(key))
		if errors.Is(err, ErrKeyCollision) && attempt < issueAttempts {
			log.WithField("attempt", attempt).Warn("Совпадение хеша ключа, генерируем заново")
			continue
		}
		if err != nil {
			return "", err
		}

		s.metrics.RecordKeyIssued()
		log.Info("Выдан новый API-ключ")
		return key, nil
	}
}

// VerifyAdmin проверяет пароль на выдачу ключей.
func (s *Service) VerifyAdmin(password string) error {
	if s.adminHash == nil {
		return nil
	}
	if password == "" || !s.adminHash.Verify(password) {
		log.Warn("Неверный пароль администратора при выдаче ключа")
		return common.ErrUnauthorized
	}
	return nil
}

// generateKey — 32 случайных байта в base64 URL.
func generateKey() (string, error) {
	b := make([]byte, keyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", &common.StoreError{Op: "генерация ключа", Err: fmt.Errorf("crypto/rand: %w", err)}
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
