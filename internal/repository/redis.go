package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/carbon-tracker/internal/common"
	"github.com/joseph-ayodele/carbon-tracker/internal/entity"
)

// RedisStore keeps each record as JSON under <prefix>:record:<id> and the ids
// in insertion order in the <prefix>:records list. List pages follow that order.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

func NewRedisStore(client *redis.Client, prefix string, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = "carbon"
	}
	return &RedisStore{client: client, prefix: prefix, logger: logger}
}

// OpenRedis connects and pings the configured server.
func OpenRedis(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:                  cfg.RedisAddr,
		Password:              cfg.RedisPassword,
		DB:                    cfg.RedisDB,
		ContextTimeoutEnabled: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	s := NewRedisStore(client, cfg.KeyPrefix, logger)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.Ping(pingCtx); err != nil {
		_ = client.Close()
		return nil, err
	}
	s.logger.Info("redis store ready", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	return s, nil
}

func (s *RedisStore) recordKey(id string) string { return s.prefix + ":record:" + id }
func (s *RedisStore) indexKey() string          { return s.prefix + ":records" }

func (s *RedisStore) Create(ctx context.Context, rec *entity.AnalysisRecord) (string, error) {
	id := uuid.NewString()
	doc, err := prepare(rec, id)
	if err != nil {
		return "", err
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.recordKey(id), doc, 0)
		p.RPush(ctx, s.indexKey(), id)
		return nil
	})
	if err != nil {
		s.logger.Error("failed to store record", "id", id, "error", err)
		return "", common.PersistenceError("redis write", err)
	}
	return id, nil
}

func (s *RedisStore) GetByID(ctx context.Context, id string) (*entity.AnalysisRecord, error) {
	b, err := s.client.Get(ctx, s.recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, common.NotFoundError("bill " + id + " not found")
	}
	if err != nil {
		return nil, common.PersistenceError("redis read", err)
	}
	return decode(b)
}

func (s *RedisStore) List(ctx context.Context, page, perPage int) ([]*entity.AnalysisRecord, int, error) {
	if err := checkPage(page, perPage); err != nil {
		return nil, 0, err
	}
	total, err := s.client.LLen(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, 0, common.PersistenceError("redis count", err)
	}
	start := int64((page - 1) * perPage)
	if start >= total {
		return []*entity.AnalysisRecord{}, int(total), nil
	}
	ids, err := s.client.LRange(ctx, s.indexKey(), start, start+int64(perPage)-1).Result()
	if err != nil {
		return nil, 0, common.PersistenceError("redis range", err)
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.recordKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, 0, common.PersistenceError("redis mget", err)
	}
	out := make([]*entity.AnalysisRecord, 0, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			s.logger.Warn("indexed record missing", "id", ids[i])
			continue
		}
		rec, err := decode([]byte(str))
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, int(total), nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return common.PersistenceError("redis ping", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
