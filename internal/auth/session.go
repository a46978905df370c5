// Пакет auth реализует хранение сессий пользователей поверх кэша Redis
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"InventoryService/internal/model"
	"InventoryService/internal/service"
)

// ErrNoSession возвращается, когда токен отсутствует в хранилище или истёк
var ErrNoSession = errors.New("session not found")

// sessionTTL задаёт время жизни сессии, по умолчанию 24 часа или из SESSION_TTL
var sessionTTL = 24 * time.Hour

func init() {
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			sessionTTL = d
		}
	}
}

// SessionStore хранит идентичности активных сессий в Redis под непрозрачными токенами.
// Сессия несёт только id, имя и роль пользователя; больше ничего между запросами не живёт.
type SessionStore struct {
	cache service.Cache
}

// NewSessionStore создаёт новое хранилище сессий поверх кэша
func NewSessionStore(c service.Cache) *SessionStore {
	return &SessionStore{cache: c}
}

// sessionKey строит ключ Redis для токена сессии
func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

// Create выпускает новый токен сессии для пользователя и сохраняет идентичность с TTL
func (s *SessionStore) Create(ctx context.Context, user *model.User) (string, error) {
	// 256 бит случайности, hex-кодировка
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	token := hex.EncodeToString(raw)
	identity := model.Identity{UserID: user.ID, Name: user.Name, Role: user.Role}
	data, err := json.Marshal(identity)
	if err != nil {
		return "", fmt.Errorf("failed to marshal identity: %w", err)
	}
	if err := s.cache.Set(ctx, sessionKey(token), data, sessionTTL); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return token, nil
}

// Get возвращает идентичность по токену; отсутствие или истечение даёт ErrNoSession
func (s *SessionStore) Get(ctx context.Context, token string) (*model.Identity, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	data, err := s.cache.Get(ctx, sessionKey(token))
	if err != nil {
		return nil, ErrNoSession
	}
	var identity model.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal identity: %w", err)
	}
	return &identity, nil
}

// Destroy удаляет сессию по токену; удаление несуществующего токена не ошибка
func (s *SessionStore) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.cache.Invalidate(ctx, sessionKey(token))
}
