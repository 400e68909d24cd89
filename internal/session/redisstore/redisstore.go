package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"clinic_booking_bot/internal/dialogue"
	"clinic_booking_bot/internal/session"
	"clinic_booking_bot/pkg/errors"
	"clinic_booking_bot/pkg/metrics"
)

const keyPrefix = "booking:session:"

// Store хранит сессии в Redis в виде JSON с TTL
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

var _ session.Store = (*Store)(nil)

// Options параметры подключения
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// New подключается к Redis и проверяет соединение
func New(ctx context.Context, opts Options) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.ErrSessionStore.WithError(fmt.Errorf("redis ping %s: %w", opts.Addr, err))
	}
	return NewWithClient(client, opts.TTL), nil
}

// NewWithClient оборачивает готовый клиент
func NewWithClient(client *redis.Client, ttl time.Duration) *Store {
	if client == nil {
		panic("redisstore: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

func sessionKey(chatID int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, chatID)
}

// Get загружает сессию; отсутствие ключа не является ошибкой
func (s *Store) Get(ctx context.Context, chatID int64) (*dialogue.State, error) {
	data, err := s.client.Get(ctx, sessionKey(chatID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		metrics.RecordStorageOperation("session_get", "redis", "error")
		return nil, errors.ErrSessionStore.WithError(fmt.Errorf("failed to load session: %w", err))
	}

	var st dialogue.State
	if err := json.Unmarshal(data, &st); err != nil {
		metrics.RecordStorageOperation("session_get", "redis", "error")
		return nil, errors.ErrSessionStore.WithError(fmt.Errorf("failed to decode session: %w", err))
	}
	metrics.RecordStorageOperation("session_get", "redis", "success")
	return &st, nil
}

// Put сохраняет сессию и обновляет TTL
func (s *Store) Put(ctx context.Context, chatID int64, st *dialogue.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return errors.ErrSessionStore.WithError(fmt.Errorf("failed to marshal session: %w", err))
	}
	if err := s.client.Set(ctx, sessionKey(chatID), data, s.ttl).Err(); err != nil {
		metrics.RecordStorageOperation("session_put", "redis", "error")
		return errors.ErrSessionStore.WithError(fmt.Errorf("failed to persist session: %w", err))
	}
	metrics.RecordStorageOperation("session_put", "redis", "success")
	return nil
}

// Delete удаляет сессию
func (s *Store) Delete(ctx context.Context, chatID int64) error {
	if err := s.client.Del(ctx, sessionKey(chatID)).Err(); err != nil {
		return errors.ErrSessionStore.WithError(fmt.Errorf("failed to delete session: %w", err))
	}
	return nil
}

// Ping проверяет соединение с Redis
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close закрывает клиент
func (s *Store) Close() error {
	return s.client.Close()
}
