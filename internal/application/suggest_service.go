package application

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"whisperbox/internal/infrastructure/suggest"
	"whisperbox/pkg/helpers"
)

const suggestCacheKey = "suggest:messages"

// SuggestService proxies the completion API and caches its output briefly
// in Redis so bursts of dashboard loads do not burn upstream quota.
type SuggestService struct {
	Client   *suggest.Client
	Redis    *redis.Client
	Logger   *logrus.Logger
	CacheTTL time.Duration
}

func NewSuggestService(client *suggest.Client, rdb *redis.Client, logger *logrus.Logger, cacheTTL time.Duration) *SuggestService {
	return &SuggestService{Client: client, Redis: rdb, Logger: logger, CacheTTL: cacheTTL}
}

// Suggest returns a "||"-delimited string of suggested questions.
func (s *SuggestService) Suggest(ctx context.Context) (string, error) {
	if s.Redis != nil {
		var cached string
		if ok, err := helpers.RedisGetJSON(ctx, s.Redis, suggestCacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}

	text, err := s.Client.Complete(ctx)
	if err != nil {
		return "", err
	}

	if s.Redis != nil {
		if err := helpers.RedisSetJSON(ctx, s.Redis, suggestCacheKey, text, s.CacheTTL); err != nil {
			s.Logger.WithError(err).Warn("cache suggestion failed")
		}
	}
	return text, nil
}
