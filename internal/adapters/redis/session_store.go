// Package redisstore — хранилище сессий диалога в Redis. Включается
// настройкой SESSION_BACKEND=redis; в отличие от памяти процесса
// переживает перезапуск бота.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kubanez-create/Calibration/internal/domain"
)

type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewSessionStore(addr, password string, db int, ttl time.Duration, logger *slog.Logger) *SessionStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &SessionStore{
		client: rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// Ping проверяет соединение при старте.
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func key(ownerID int64) string {
	return fmt.Sprintf("session:%d", ownerID)
}

func (s *SessionStore) Get(ctx context.Context, ownerID int64) (domain.Session, bool, error) {
	data, err := s.client.Get(ctx, key(ownerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		s.logger.Error("redis GET failed", "key", key(ownerID), "err", err)
		return domain.Session{}, false, err
	}
	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return domain.Session{}, false, fmt.Errorf("unmarshal session: %w", err)
	}
	return sess, true, nil
}

func (s *SessionStore) Put(ctx context.Context, ownerID int64, sess domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, key(ownerID), data, s.ttl).Err(); err != nil {
		s.logger.Error("redis SET failed", "key", key(ownerID), "err", err)
		return err
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, ownerID int64) error {
	if err := s.client.Del(ctx, key(ownerID)).Err(); err != nil {
		s.logger.Error("redis DEL failed", "key", key(ownerID), "err", err)
		return err
	}
	return nil
}
