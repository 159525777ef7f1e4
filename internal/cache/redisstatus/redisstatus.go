package redisstatus

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/BearBump/ParcelBox/internal/models"
)

// StatusCache — кэш снапшотов статуса, по одной записи на посылку.
// Свежесть контролируется лениво на чтении по cached_at; ключу дополнительно
// ставится redis-TTL как страховка от накопления мусора. Потеря всех записей
// не трогает durable-хранилище: чтения просто деградируют до "не проверялось".
type StatusCache struct {
	c   *redis.Client
	ttl time.Duration
	now func() time.Time
}

func New(addr string, ttl time.Duration) *StatusCache {
	return &StatusCache{
		c: redis.NewClient(&redis.Options{
			Addr: addr,
		}),
		ttl: ttl,
		now: time.Now,
	}
}

// Get возвращает снапшот, если он есть и не старше TTL. Просроченная или
// нечитаемая запись удаляется тут же и считается промахом.
func (s *StatusCache) Get(ctx context.Context, id string) (*models.StatusSnapshot, bool, error) {
	key := statusKey(id)

	b, err := s.c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "redis get")
	}

	var snap models.StatusSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		slog.Warn("status cache entry unparseable, dropping", "key", key, "error", err.Error())
		_ = s.c.Del(ctx, key).Err()
		return nil, false, nil
	}

	if s.now().UTC().Sub(snap.CachedAt) > s.ttl {
		_ = s.c.Del(ctx, key).Err()
		return nil, false, nil
	}
	return &snap, true, nil
}

// Set безусловно перезаписывает снапшот; слияния на уровне кэша нет.
func (s *StatusCache) Set(ctx context.Context, id string, snap models.StatusSnapshot) error {
	if snap.CachedAt.IsZero() {
		snap.CachedAt = s.now().UTC()
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}
	if err := s.c.Set(ctx, statusKey(id), b, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

func (s *StatusCache) Delete(ctx context.Context, id string) error {
	if err := s.c.Del(ctx, statusKey(id)).Err(); err != nil {
		return errors.Wrap(err, "redis del")
	}
	return nil
}

func statusKey(id string) string {
	return "parcel:" + id + ":status"
}
